// Copyright © 2015-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// animation.go implements §4.7's skeletal animation: per-channel keyframe
// sampling (translation/scale lerp, rotation slerp with the dot-flip and
// small-angle fallback), a time_to_idx bracket cache, and depth-first
// joint-hierarchy evaluation into a uniform-block-ready matrix array.
// Grounded in the teacher's animation.go, which drove a flat per-frame
// bone array through a single animate() call; generalized here into named
// channels/samplers/joints so animation data can come from a glTF-shaped
// asset container (§4.9) instead of only a baked frame table.

import (
	"log/slog"

	"github.com/emberforge/ember/math/lin"
)

// ChannelPath names which part of a joint's local transform a channel
// drives.
type ChannelPath int

const (
	PathTranslation ChannelPath = iota
	PathRotation
	PathScale
)

// Interpolation selects how a sampler blends between its bracketing
// keyframes.
type Interpolation int

const (
	InterpLinear Interpolation = iota
	InterpStep
	InterpCubicSpline // sampled as linear; true Hermite tangents are out of scope.
)

// Channel drives one joint's translation, rotation, or scale over time
// from a list of keyframe times and values (vec3 for T/S, quat for R).
type Channel struct {
	Joint  int
	Path   ChannelPath
	Interp Interpolation
	Times  []float64
	Vec3s  []lin.V3 // used for PathTranslation/PathScale.
	Quats  []lin.Q  // used for PathRotation.

	lastIdx int // time_to_idx cache: last bracket index found, to avoid rescanning.
}

// timeToIdx returns the index of the keyframe at or before t, starting the
// scan from the cached lastIdx so sequential per-frame evaluation at
// advancing time stays O(1) amortized.
func (c *Channel) timeToIdx(t float64) int {
	n := len(c.Times)
	if n == 0 {
		return -1
	}
	i := c.lastIdx
	if i < 0 || i >= n {
		i = 0
	}
	if c.Times[i] > t {
		i = 0
	}
	for i+1 < n && c.Times[i+1] <= t {
		i++
	}
	c.lastIdx = i
	return i
}

// jointPose is a local (unparented) translation/rotation/scale, the
// per-channel sample target before the hierarchy walk composes it into a
// world-space joint transform.
type jointPose struct {
	Loc   lin.V3
	Rot   lin.Q
	Scale lin.V3
}

// sample evaluates the channel at time t and writes the result into the
// appropriate field of joints[c.Joint]; channels referencing a nonexistent
// joint are skipped (§4.7 failure handling).
func (c *Channel) sample(t float64, joints []jointPose) bool {
	if c.Joint < 0 || c.Joint >= len(joints) {
		return false
	}
	prev := c.timeToIdx(t)
	if prev < 0 {
		return false
	}
	next := prev + 1
	if next >= len(c.Times) {
		next = prev
	}
	ratio := 0.0
	if span := c.Times[next] - c.Times[prev]; span > 1e-9 && c.Interp != InterpStep {
		ratio = (t - c.Times[prev]) / span
		ratio = clamp01(ratio)
	}

	target := &joints[c.Joint]
	switch c.Path {
	case PathTranslation:
		v := lin.V3{}
		v.Lerp(&c.Vec3s[prev], &c.Vec3s[next], ratio)
		target.Loc = v
	case PathScale:
		v := lin.V3{}
		v.Lerp(&c.Vec3s[prev], &c.Vec3s[next], ratio)
		target.Scale = v
	case PathRotation:
		q := slerp(&c.Quats[prev], &c.Quats[next], ratio)
		target.Rot = q
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// slerp implements §4.7's rotation interpolation: spherical-linear with a
// flip when the quaternions point to opposite hemispheres (dot < 0), and a
// linear (Nlerp) fallback when they are nearly coincident (dot > 0.9995),
// avoiding the division-by-near-zero that a true slerp hits there.
func slerp(a, b *lin.Q, ratio float64) lin.Q {
	bb := *b
	dot := a.Dot(&bb)
	if dot < 0 {
		bb.X, bb.Y, bb.Z, bb.W = -bb.X, -bb.Y, -bb.Z, -bb.W
		dot = -dot
	}
	out := lin.Q{}
	if dot > 0.9995 {
		out.Nlerp(a, &bb, ratio)
		return out
	}
	out.Slerp(a, &bb, ratio)
	return out
}

// Joint is one bone in a skeleton: a parent index (-1 for roots) and the
// inverse bind matrix used to move a vertex from bind pose into the
// joint's local space before the animated transform is reapplied.
type Joint struct {
	Name        string
	Parent      int
	InverseBind lin.M4
}

// Animation is a named set of channels plus the joint hierarchy they
// drive, safe to share across every Model instance that plays it (the
// teacher's own "Animation data is independent of any given instance"
// invariant, kept verbatim).
type Animation struct {
	Name     string
	Duration float64
	Channels []Channel
	Joints   []Joint // hierarchy; Channels reference Joints by index.
}

// NewAnimation returns an empty clip; callers append Channels/Joints, then
// set Duration from the maximum channel time.
func NewAnimation(name string) *Animation {
	return &Animation{Name: name}
}

// AddChannel appends a channel and extends Duration to cover its last
// keyframe.
func (a *Animation) AddChannel(c Channel) {
	a.Channels = append(a.Channels, c)
	if n := len(c.Times); n > 0 && c.Times[n-1] > a.Duration {
		a.Duration = c.Times[n-1]
	}
}

// Evaluate samples every channel at time t into local, a per-joint T/R/S
// buffer matching len(a.Joints), then walks the hierarchy depth-first to
// produce joint_transforms: jt = parent_jt · T · R · S, then
// joint_transforms[j] = jt · inverse_bind[j] (§4.7). Roots use root as
// their parent. Channels that fail to sample (nonexistent joint) are
// skipped; if every channel fails, ok is false and the caller should drop
// the animation with a warning.
func (a *Animation) Evaluate(t float64, root lin.M4, out []lin.M4) bool {
	if len(a.Joints) == 0 {
		return false
	}
	local := make([]jointPose, len(a.Joints))
	for i := range local {
		local[i] = jointPose{Rot: lin.Q{W: 1}, Scale: lin.V3{X: 1, Y: 1, Z: 1}}
	}
	anySampled := false
	for i := range a.Channels {
		if a.Channels[i].sample(t, local) {
			anySampled = true
		}
	}
	if !anySampled {
		slog.Warn("animation has no valid channels", "name", a.Name)
		return false
	}
	if len(out) < len(a.Joints) {
		out = make([]lin.M4, len(a.Joints))
	}
	var walk func(j int, parent lin.M4)
	walk = func(j int, parent lin.M4) {
		jt := &lin.M4{}
		jt.SetQ(&local[j].Rot)
		jt.ScaleSM(local[j].Scale.X, local[j].Scale.Y, local[j].Scale.Z)
		jt.TranslateMT(local[j].Loc.X, local[j].Loc.Y, local[j].Loc.Z)
		combined := &lin.M4{}
		combined.Mult(jt, &parent)
		out[j] = *combined
		ib := a.Joints[j].InverseBind
		bound := &lin.M4{}
		bound.Mult(&ib, combined)
		out[j] = *bound
		for child, joint := range a.Joints {
			if joint.Parent == j {
				walk(child, *combined)
			}
		}
	}
	for j, joint := range a.Joints {
		if joint.Parent < 0 {
			walk(j, root)
		}
	}
	return true
}
