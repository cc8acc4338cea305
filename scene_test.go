// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

import (
	"testing"

	"github.com/emberforge/ember/math/lin"
)

// cube builds a unit cube mesh centered on the origin, used to exercise
// the §2 frame loop (view/MQ/LOD) end to end without a real asset.
func cube() *Mesh {
	m, _ := NewMesh(MeshOptions{Name: "cube"})
	pos := make([]byte, 8*12)
	pts := [][3]float32{
		{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5},
		{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5},
	}
	for i, p := range pts {
		putLE32f(pos[i*12:], p[0])
		putLE32f(pos[i*12+4:], p[1])
		putLE32f(pos[i*12+8:], p[2])
	}
	m.AttrDup(AttrPosition, CompFloat, 3, 12, pos)
	m.SetIndex([]uint32{
		0, 1, 2, 0, 2, 3, // back
		4, 6, 5, 4, 7, 6, // front
		0, 4, 5, 0, 5, 1, // bottom
		3, 2, 6, 3, 6, 7, // top
		0, 3, 7, 0, 7, 4, // left
		1, 5, 6, 1, 6, 2, // right
	})
	return m
}

// cubeModelTx returns a fresh textureless ModelTx wrapping a cube mesh,
// attached to one entity positioned at pos.
func cubeModelTx(t *testing.T, pos lin.V3) (*ModelTx, *EntityRecord) {
	t.Helper()
	mesh := cube()
	model, err := NewModel(ModelOptions{Name: "cube", Mesh: Give(mesh)})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	tx, err := NewModelTx(ModelTxOptions{Model: Give(model)})
	if err != nil {
		t.Fatalf("NewModelTx: %v", err)
	}
	e := NewEntityRecord()
	e.SetTransform(pos, lin.Q{W: 1})
	tx.Attach(e)
	e.Update(nil, 0) // derive the world AABB from pos.
	return tx, e
}

func testScene(t *testing.T) *Scene {
	t.Helper()
	sc := NewScene()
	sc.Cam().Eye = lin.V3{X: 0, Y: 0, Z: 10}
	sc.Cam().Fov, sc.Cam().Aspect, sc.Cam().Near, sc.Cam().Far = 60, 4.0 / 3.0, 0.1, 1000
	return sc
}

// TestRenderFrameDrawsEntityInsideFrustum covers the cube fly-through
// scenario: one visible entity on the view axis renders once, nothing is
// culled.
func TestRenderFrameDrawsEntityInsideFrustum(t *testing.T) {
	sc := testScene(t)
	tx, _ := cubeModelTx(t, lin.V3{X: 0, Y: 0, Z: 0})
	sc.MQ().Add(tx)

	var drawn int
	stats := sc.RenderFrame(nil, func(p *Pass, cascade int) { drawn++ })
	if stats.Rendered != 1 || stats.Culled != 0 {
		t.Fatalf("expected 1 rendered/0 culled, got %+v", stats)
	}
}

// TestRenderFrameCullsEntityOutsideFrustum covers the outside-frustum-cull
// scenario: an entity far behind the camera is dropped by the frustum
// test and never reaches visit.
func TestRenderFrameCullsEntityOutsideFrustum(t *testing.T) {
	sc := testScene(t)
	tx, _ := cubeModelTx(t, lin.V3{X: 0, Y: 0, Z: 1000})
	sc.MQ().Add(tx)

	stats := sc.RenderFrame(nil, func(p *Pass, cascade int) {})
	if stats.Rendered != 0 || stats.Culled != 1 {
		t.Fatalf("expected 0 rendered/1 culled, got %+v", stats)
	}
}

// TestRenderFrameSelectsLODFromDistance covers the LOD-step scenario: the
// walk calls SelectLOD on every surviving entity and leaves CurLOD within
// the model's available range.
func TestRenderFrameSelectsLODFromDistance(t *testing.T) {
	sc := testScene(t)
	tx, e := cubeModelTx(t, lin.V3{X: 0, Y: 0, Z: -100})
	sc.MQ().Add(tx)

	sc.RenderFrame(nil, func(p *Pass, cascade int) {})
	if e.CurLOD < 0 || e.CurLOD >= tx.Model().NrLODs() {
		t.Fatalf("expected LOD in [0, nr_lods %d), got %d", tx.Model().NrLODs(), e.CurLOD)
	}
}

// TestSelectLODMatchesDistanceMinusSideFormula pins down the exact §4.4
// formula: lod = int(|distSqr - side^2| / 3600), clamped into [0, nrLODs).
func TestSelectLODMatchesDistanceMinusSideFormula(t *testing.T) {
	e := NewEntityRecord()
	e.Position = lin.V3{X: 0, Y: 0, Z: 0}
	e.WorldAABB = AABB{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}} // side = 2.

	camPos := lin.V3{X: 0, Y: 0, Z: 62} // distSqr = 3844, side^2 = 4, |diff| = 3840.
	got := e.SelectLOD(camPos, 4)
	if want := 1; got != want {
		t.Fatalf("expected lod %d, got %d", want, got)
	}

	// ForceLOD overrides the distance formula when set.
	e.Flags |= FlagForceLOD
	e.ForceLOD = 9 // clamped into range.
	if got := e.SelectLOD(camPos, 4); got != 3 {
		t.Fatalf("expected ForceLOD clamped to 3, got %d", got)
	}
}

// TestRenderFrameRebuildsClusterGrid covers the light-grid scenario: once
// a grid and light table are installed, RenderFrame rebuilds the grid's
// bitmask for the current view.
func TestRenderFrameRebuildsClusterGrid(t *testing.T) {
	sc := testScene(t)
	grid := NewClusterGrid(1024, 768, 32)
	sc.SetClusterGrid(grid)

	lights := NewLightTable()
	l0 := lights.Alloc()
	lights.SetPosition(l0, lin.V3{X: 0, Y: 0, Z: 0})
	lights.SetDirectional(l0, true)

	sc.RenderFrame(lights, func(p *Pass, cascade int) {})

	found := false
	for row := 0; row < grid.Rows(); row++ {
		for col := 0; col < grid.Cols(); col++ {
			if grid.Mask(col, row) != [4]uint32{} {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected at least one tile with a light bit set after rebuild")
	}
}

// TestRenderFrameFitsCascades covers §4.6: installed cascades pick up the
// main camera's pose and fit their light-space projection each frame.
func TestRenderFrameFitsCascades(t *testing.T) {
	sc := testScene(t)
	sc.Cam().Update()
	sc.SetCascades(NewCascades(sc.Cam(), nil))
	sc.LightDir = lin.V3{X: 0, Y: -1, Z: 0}

	sc.RenderFrame(nil, func(p *Pass, cascade int) {})

	for i, cs := range sc.Cascades() {
		if cs.Sub.Eye != sc.Cam().Eye {
			t.Fatalf("cascade %d did not inherit camera eye", i)
		}
	}
}

// TestRenderFramePopulatesPipelinePasses covers §4.5: a RENDER-sourced
// pass receives the frame's draw packets, and Render visits it once.
func TestRenderFramePopulatesPipelinePasses(t *testing.T) {
	sc := testScene(t)
	tx, _ := cubeModelTx(t, lin.V3{X: 0, Y: 0, Z: 0})
	sc.MQ().Add(tx)

	pl := NewPipeline()
	pl.AddPass(&Pass{ID: 0, Name: "main", Sources: []PassSource{{FromMQ: true}}, Cascade: -1})
	sc.SetPipeline(pl)

	var visited int
	var packets int
	sc.RenderFrame(nil, func(p *Pass, cascade int) {
		visited++
		packets = len(p.State.Packets)
	})
	if visited != 1 {
		t.Fatalf("expected pass visited once, got %d", visited)
	}
	if packets != 1 {
		t.Fatalf("expected 1 draw packet handed to the pass, got %d", packets)
	}
}
