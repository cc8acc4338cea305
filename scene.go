// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// scene.go implements component M (§4.4, §4.9): the top-level
// composition of an MQ, a camera (Subview) with its cascades, a
// clustered light grid, and a render pipeline. Generalizes the teacher's
// Scene/scene (camera plus an ordered []*part list with AddPart/RemPart/
// SetLast/SetCuller) by replacing parts with the spec's MQ of ModelTx,
// and adding the cascade/cluster/pipeline composition the teacher's flat
// 3D/2D scene pair never needed.
//
// RenderFrame is the §2 per-frame entry point: it ties view recompute,
// cascade fit, light-grid rebuild, the MQ walk/LOD selection, and the
// pipeline's pass loop together into the single call Engine.Tick drives
// once per scene each frame.

import (
	"github.com/emberforge/ember/math/lin"
)

// Scene associates an MQ, a camera, cascaded shadow views, a clustered
// light grid, and a render pipeline. Parts are rendered in MQ order
// unless moved with SetLast.
type Scene struct {
	mq       *MQ
	cam      *Subview
	cascades []*Cascade
	grid     *ClusterGrid
	pipeline *Pipeline
	culler   RadiusCuller
	hasCuller bool

	// LightDir is the directional (sun) light vector used to fit each
	// cascade's light-space view/projection (§4.6).
	LightDir lin.V3

	sorted  bool
	is2D    bool
	visible bool
	exit    bool
}

// NewScene creates an initially visible, 3D, unsorted scene with its own
// camera and an empty MQ. Cascades, cluster grid, and pipeline are wired
// in by the caller once asset/window state is known (SetCascades,
// SetClusterGrid, SetPipeline).
func NewScene() *Scene {
	return &Scene{
		mq:      NewMQ(),
		cam:     NewSubview(),
		visible: true,
	}
}

// Cam returns the scene's single camera/view transform.
func (s *Scene) Cam() *Subview { return s.cam }

// MQ returns the scene's model queue.
func (s *Scene) MQ() *MQ { return s.mq }

// Set2D marks the scene as a 2D overlay/UI scene. It only records the
// flag that Is2D reports; Walk and RenderFrame do not read it.
func (s *Scene) Set2D() { s.is2D = true }

// Is2D reports whether Set2D was called.
func (s *Scene) Is2D() bool { return s.is2D }

// Visible reports whether the scene is currently rendered.
func (s *Scene) Visible() bool { return s.visible }

// SetVisible controls whether the scene is rendered.
func (s *Scene) SetVisible(visible bool) { s.visible = visible }

// SetSorted records the sort flag that Sorted reports. Walk and
// RenderFrame do not read it: the MQ is always walked in list order.
func (s *Scene) SetSorted(sorted bool) { s.sorted = sorted }

// Sorted reports the current sort setting.
func (s *Scene) Sorted() bool { return s.sorted }

// SetCuller installs a supplementary radius-based pre-filter run before
// the frustum test; the zero value turns culling off.
func (s *Scene) SetCuller(c RadiusCuller) {
	s.culler = c
	s.hasCuller = c.Radius > 0
}

// SetCascades installs the cascaded shadow views computed for this
// scene's camera (§4.6).
func (s *Scene) SetCascades(cascades []*Cascade) { s.cascades = cascades }

// Cascades returns the scene's cascaded shadow views, nil if none.
func (s *Scene) Cascades() []*Cascade { return s.cascades }

// SetClusterGrid installs the clustered light grid computed each frame
// for this scene's camera (§4.8).
func (s *Scene) SetClusterGrid(grid *ClusterGrid) { s.grid = grid }

// ClusterGrid returns the scene's clustered light grid, nil if none.
func (s *Scene) ClusterGrid() *ClusterGrid { return s.grid }

// SetPipeline installs the render pipeline (§4.5) this scene draws
// through.
func (s *Scene) SetPipeline(pl *Pipeline) { s.pipeline = pl }

// Pipeline returns the scene's render pipeline, nil if none.
func (s *Scene) Pipeline() *Pipeline { return s.pipeline }

// RequestExit sets the scene's exit flag, which ExitRequested reports.
// Engine.Tick and the cmd/ember loop do not read it and no teardown runs
// from it; the update loop stops only through Engine.Stop.
func (s *Scene) RequestExit() { s.exit = true }

// ExitRequested reports whether RequestExit was called.
func (s *Scene) ExitRequested() bool { return s.exit }

// Dispose releases every ModelTx held by the scene's MQ.
func (s *Scene) Dispose() {
	s.mq.Dispose()
}

// Walk renders the scene's MQ in order, applying the installed
// supplementary culler ahead of the frustum test, per §4.4's MQ
// iteration step. Entities dropped by either the radius pre-filter or
// the frustum test count as Culled.
func (s *Scene) Walk(visit VisitFunc) WalkStats {
	frustum := s.cam.Frustum()
	camPos := s.cam.Eye
	radiusCulled := 0
	stats := s.mq.Walk(frustum, func(tx *ModelTx, e *EntityRecord, outlineID int) {
		if s.hasCuller && s.culler.Cull(camPos, e.Position) {
			radiusCulled++
			return
		}
		visit(tx, e, outlineID)
	})
	stats.Rendered -= radiusCulled
	stats.Culled += radiusCulled
	return stats
}

// RenderFrame assembles one frame per §2's data flow: recompute the
// camera and cascade frustums, rebuild the clustered light grid from the
// current light table, walk the MQ (selecting each surviving entity's
// LOD and collecting it into a draw packet list), hand those packets and
// the live light list to every RENDER-sourced pass, then run the
// pipeline's pass loop. visit is the caller-supplied backend callback
// Pipeline.Render drives per pass/cascade; actual GPU submission is an
// external collaborator, so RenderFrame's contract ends at handing the
// backend a populated Pass.State.
func (s *Scene) RenderFrame(lights *LightTable, visit func(p *Pass, cascade int)) WalkStats {
	s.cam.Update()
	for _, cs := range s.cascades {
		cs.Sub.Eye, cs.Sub.Pitch, cs.Sub.Yaw, cs.Sub.Roll = s.cam.Eye, s.cam.Pitch, s.cam.Yaw, s.cam.Roll
		cs.Sub.Fov, cs.Sub.Aspect = s.cam.Fov, s.cam.Aspect
		cs.Sub.Update()
		cs.Fit(s.LightDir)
	}
	if s.grid != nil && lights != nil {
		viewProj := &lin.M4{}
		viewProj.Mult(s.cam.Proj(), s.cam.View())
		view := s.cam.View()
		viewZOf := func(pos lin.V3) float64 {
			v := lin.V4{X: pos.X, Y: pos.Y, Z: pos.Z, W: 1}
			out := lin.V4{}
			out.MultvM(&v, view)
			return out.Z
		}
		s.grid.Rebuild(lights, viewProj, viewZOf)
	}

	var packets []DrawPacket
	camPos := s.cam.Eye
	stats := s.Walk(func(tx *ModelTx, e *EntityRecord, outlineID int) {
		if m := tx.Model(); m != nil {
			e.SelectLOD(camPos, m.NrLODs())
		}
		packets = append(packets, DrawPacket{Tx: tx, Entity: e})
	})

	if s.pipeline != nil {
		var lightList []Light
		if lights != nil {
			for i := 0; i < lights.Count(); i++ {
				lightList = append(lightList, lights.Light(i))
			}
		}
		for _, p := range s.pipeline.Passes() {
			if !p.HasMQSource() {
				continue
			}
			p.State.Reset()
			p.State.Packets = append(p.State.Packets, packets...)
			p.State.Lights = append(p.State.Lights, lightList...)
		}
		s.pipeline.Render(visit)
	}
	return stats
}
