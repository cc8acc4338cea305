// Copyright © 2015-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// view.go implements §4.6's View and cascades: camera pose, perspective
// projection, fixed-divider cascade partitioning, per-cascade light-space
// fit, and 6-plane frustum culling. Grounded in the teacher's camera.go
// (view-transform matrix conventions: rotate X, then Y, then Z, then
// translate by -eye, stored as a viewTransform closure) and culler.go
// (simple radius-based cull, kept as a cheap pre-filter ahead of the real
// frustum test) and shadow.go (light-space view-projection and bias-matrix
// construction, generalized here from a single shadow map into K cascades).

import (
	"math"

	"github.com/emberforge/ember/math/lin"
)

// Plane is ax+by+cz+d, normalized so (a,b,c) is unit length.
type Plane struct {
	A, B, C, D float64
}

func (p Plane) dist(v lin.V3) float64 { return p.A*v.X + p.B*v.Y + p.C*v.Z + p.D }

func planeFrom(a, b, c lin.V3) Plane {
	ab := lin.V3{X: b.X - a.X, Y: b.Y - a.Y, Z: b.Z - a.Z}
	ac := lin.V3{X: c.X - a.X, Y: c.Y - a.Y, Z: c.Z - a.Z}
	n := lin.V3{}
	n.Cross(&ab, &ac)
	l := n.Len()
	if l < 1e-9 {
		return Plane{}
	}
	n.X, n.Y, n.Z = n.X/l, n.Y/l, n.Z/l
	return Plane{A: n.X, B: n.Y, C: n.Z, D: -(n.X*a.X + n.Y*a.Y + n.Z*a.Z)}
}

// Frustum is the six planes of a view volume, left/right/bottom/top/near/far,
// plus the 8 world-space corners used for light-space fitting (§4.6).
type Frustum struct {
	Planes  [6]Plane
	Corners [8]lin.V3
}

// Subview is one camera volume: the main view or one shadow cascade. It
// carries its own projection and view matrices plus the derived frustum,
// so a cascade can be culled and fit independently of the main camera.
type Subview struct {
	Eye              lin.V3
	Pitch, Yaw, Roll float64 // degrees.
	Fov, Aspect, Near, Far float64

	view *lin.M4
	proj *lin.M4
	ivew *lin.M4

	frustum Frustum
}

// NewSubview returns a subview at the identity pose; callers set Eye/
// Pitch/Yaw/Roll/Fov/Aspect/Near/Far then call Update.
func NewSubview() *Subview {
	return &Subview{Fov: 60, Aspect: 1, Near: 0.1, Far: 1000, view: &lin.M4{}, proj: &lin.M4{}, ivew: &lin.M4{}}
}

// Update rebuilds the view and projection matrices and the derived
// frustum planes/corners from the current pose (§4.6's "rotate X, then Y,
// then Z, then translate by -eye" convention).
func (s *Subview) Update() {
	rot := lin.NewQI()
	rx, ry, rz := &lin.Q{}, &lin.Q{}, &lin.Q{}
	rx.SetAa(1, 0, 0, lin.Rad(s.Pitch))
	ry.SetAa(0, 1, 0, lin.Rad(s.Yaw))
	rz.SetAa(0, 0, 1, lin.Rad(s.Roll))
	rot.Mult(rx, rot)
	rot.Mult(ry, rot)
	rot.Mult(rz, rot)
	s.view.SetQ(rot).TranslateTM(-s.Eye.X, -s.Eye.Y, -s.Eye.Z)
	s.proj.Persp(s.Fov, s.Aspect, s.Near, s.Far)
	inv := rot.Inv(rot)
	s.ivew.SetQ(inv).TranslateMT(s.Eye.X, s.Eye.Y, s.Eye.Z)
	s.rebuildFrustum()
}

func (s *Subview) View() *lin.M4    { return s.view }
func (s *Subview) Proj() *lin.M4    { return s.proj }
func (s *Subview) InvView() *lin.M4 { return s.ivew }

// rebuildFrustum recomputes the 8 world-space corners by unprojecting the
// NDC cube through the inverse view-projection, then derives the 6 planes
// from triples of those corners.
func (s *Subview) rebuildFrustum() {
	ivp := &lin.M4{}
	ip := &lin.M4{}
	ip.PerspInv(s.Fov, s.Aspect, s.Near, s.Far)
	ivp.Mult(ip, s.ivew)

	ndc := [8]lin.V4{
		{X: -1, Y: -1, Z: -1, W: 1}, {X: 1, Y: -1, Z: -1, W: 1},
		{X: 1, Y: 1, Z: -1, W: 1}, {X: -1, Y: 1, Z: -1, W: 1},
		{X: -1, Y: -1, Z: 1, W: 1}, {X: 1, Y: -1, Z: 1, W: 1},
		{X: 1, Y: 1, Z: 1, W: 1}, {X: -1, Y: 1, Z: 1, W: 1},
	}
	for i, n := range ndc {
		w := lin.V4{}
		w.MultvM(&n, ivp)
		if w.W != 0 {
			w.X, w.Y, w.Z = w.X/w.W, w.Y/w.W, w.Z/w.W
		}
		s.frustum.Corners[i] = lin.V3{X: w.X, Y: w.Y, Z: w.Z}
	}
	c := &s.frustum.Corners
	s.frustum.Planes[0] = planeFrom(c[0], c[3], c[7]) // left
	s.frustum.Planes[1] = planeFrom(c[1], c[5], c[6]) // right
	s.frustum.Planes[2] = planeFrom(c[0], c[4], c[5]) // bottom
	s.frustum.Planes[3] = planeFrom(c[3], c[2], c[6]) // top
	s.frustum.Planes[4] = planeFrom(c[0], c[1], c[2]) // near
	s.frustum.Planes[5] = planeFrom(c[4], c[7], c[6]) // far
}

// Frustum returns the subview's current 6-plane/8-corner frustum.
func (s *Subview) Frustum() Frustum { return s.frustum }

// ContainsAABB runs the §4.6 6-plane test: the box is culled (returns
// false) only when all 8 corners lie outside a single plane. The planes
// built by rebuildFrustum face out of the volume, so a corner is outside
// a plane when its distance to it is positive.
func (f Frustum) ContainsAABB(box AABB) bool {
	corners := box.Corners()
	for _, p := range f.Planes {
		allOutside := true
		for _, c := range corners {
			if p.dist(c) <= 0 {
				allOutside = false
				break
			}
		}
		if allOutside {
			return false
		}
	}
	return true
}

// View
// =============================================================================
// Cascades

// CascadeDividers are the default far-plane partitions for shadow cascades.
// NewCascades makes one cascade per divider, so by default there are three
// cascades and the last one ends at 150, not at the main view's far plane.
var CascadeDividers = [3]float64{25, 70, 150}

const AABBMarginXY = 2.0
const AABBMarginZ = 10.0

// Cascade is one shadow-mapped subvolume of the main view: its own
// perspective subview (inheriting the main view matrix, with a near/far
// slice of the main frustum) plus a light-space orthographic fit.
type Cascade struct {
	Sub *Subview

	LightView *lin.M4
	LightProj *lin.M4
	Bias      *lin.M4 // 0.5-scale-and-offset bias matrix, teacher shadow.go's bm.
}

// NewCascades builds K cascades from the main subview using CascadeDividers
// (or an explicit set, for callers wanting a different split), each
// inheriting main's pose and a near/far slice of its depth range.
func NewCascades(main *Subview, dividers []float64) []*Cascade {
	if len(dividers) == 0 {
		dividers = CascadeDividers[:]
	}
	out := make([]*Cascade, 0, len(dividers))
	near := main.Near
	for _, far := range dividers {
		sub := NewSubview()
		sub.Eye, sub.Pitch, sub.Yaw, sub.Roll = main.Eye, main.Pitch, main.Yaw, main.Roll
		sub.Fov, sub.Aspect = main.Fov, main.Aspect
		sub.Near, sub.Far = near, far
		sub.Update()
		out = append(out, &Cascade{Sub: sub, LightView: &lin.M4{}, LightProj: &lin.M4{}, Bias: biasMatrix()})
		near = far
	}
	return out
}

// biasMatrix returns the standard NDC-to-[0,1] remap used to sample a
// shadow map with texture coordinates instead of clip-space.
func biasMatrix() *lin.M4 {
	m := &lin.M4{}
	m.Xx, m.Yy, m.Zz, m.Ww = 0.5, 0.5, 0.5, 1
	m.Wx, m.Wy, m.Wz = 0.5, 0.5, 0.5
	return m
}

// Fit computes the light-space view/projection for this cascade (§4.6's
// light-space fit): a view matrix using d as forward and a stable up
// vector, eye placed 100 units back from the corner centroid along the
// light direction, projection an orthographic
// box around the transformed corners padded by AABBMarginXY/Z.
func (cs *Cascade) Fit(lightDir lin.V3) {
	fwd := lightDir
	if l := fwd.Len(); l > 1e-9 {
		fwd.X, fwd.Y, fwd.Z = fwd.X/l, fwd.Y/l, fwd.Z/l
	}
	up := lin.V3{X: 0, Y: 1, Z: 0}
	if math.Abs(fwd.Y) > 0.99 {
		up = lin.V3{X: 0, Y: 0, Z: 1}
	}

	corners := cs.Sub.Frustum().Corners
	centroid := lin.V3{}
	for _, c := range corners {
		centroid.X += c.X / 8
		centroid.Y += c.Y / 8
		centroid.Z += c.Z / 8
	}
	eye := lin.V3{X: centroid.X - fwd.X*100, Y: centroid.Y - fwd.Y*100, Z: centroid.Z - fwd.Z*100}

	right := lin.V3{}
	right.Cross(&up, &fwd)
	if right.Len() < 1e-9 {
		right = lin.V3{X: 1}
	} else {
		right.Unit()
	}
	realUp := lin.V3{}
	realUp.Cross(&fwd, &right)

	rotM := &lin.M3{Xx: right.X, Xy: realUp.X, Xz: fwd.X, Yx: right.Y, Yy: realUp.Y, Yz: fwd.Y, Zx: right.Z, Zy: realUp.Z, Zz: fwd.Z}
	q := &lin.Q{}
	q.SetM(rotM)
	cs.LightView.SetQ(q).TranslateTM(-eye.X, -eye.Y, -eye.Z)

	minV := lin.V3{X: inf64, Y: inf64, Z: inf64}
	maxV := lin.V3{X: -inf64, Y: -inf64, Z: -inf64}
	for _, c := range corners {
		lv := lin.V4{X: c.X, Y: c.Y, Z: c.Z, W: 1}
		out := lin.V4{}
		out.MultvM(&lv, cs.LightView)
		minV.X, minV.Y, minV.Z = minf(minV.X, out.X), minf(minV.Y, out.Y), minf(minV.Z, out.Z)
		maxV.X, maxV.Y, maxV.Z = maxf(maxV.X, out.X), maxf(maxV.Y, out.Y), maxf(maxV.Z, out.Z)
	}
	minV.X, maxV.X = minV.X-AABBMarginXY, maxV.X+AABBMarginXY
	minV.Y, maxV.Y = minV.Y-AABBMarginXY, maxV.Y+AABBMarginXY
	minV.Z, maxV.Z = minV.Z-AABBMarginZ, maxV.Z+AABBMarginZ
	cs.LightProj.Ortho(minV.X, maxV.X, minV.Y, maxV.Y, minV.Z, maxV.Z)
}

// View
// =============================================================================
// RadiusCull

// RadiusCuller is a cheap pre-filter ahead of the real frustum test: an
// entity further than Radius from the camera is dropped without running
// the 6-plane check (grounded in the teacher's culler.go radiusCull).
type RadiusCuller struct {
	Radius float64
}

// Cull reports whether pos should be skipped (true = cull it).
func (r RadiusCuller) Cull(camPos, pos lin.V3) bool {
	dx, dy, dz := camPos.X-pos.X, camPos.Y-pos.Y, camPos.Z-pos.Z
	return dx*dx+dy*dy+dz*dz > r.Radius*r.Radius
}
