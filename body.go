// Copyright © 2016-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// body.go implements the consumer side of §1's "thin physics bridge": the
// physicsBridge interface an EntityRecord talks to (SetTransform/
// Transform/Grounded), and a BodyManager tracking which entity owns which
// bridge. The rigid-body/contact solver itself is an explicit Non-goal
// (§1's "physics engine... specified only by the interface the core
// consumes"): this file has no dependency on any physics package, and
// the module contains none.
// Grounded in the teacher's body.go: the create/solidify/get/dispose
// life-cycle of its "bodies" manager, adapted from physics.Body handles to
// the spec's plain transform/contact-state bridge.

import (
	"github.com/emberforge/ember/math/lin"
)

// KinematicBody is a minimal physicsBridge implementation: it stores the
// authoritative transform and ground-contact flag that an external
// simulator would otherwise own, letting entity.go's Update exercise the
// push/pull contract without depending on a concrete solver.
type KinematicBody struct {
	pos      lin.V3
	rot      lin.Q
	grounded bool
}

// NewKinematicBody returns a bridge at the identity transform.
func NewKinematicBody() *KinematicBody {
	return &KinematicBody{rot: lin.Q{W: 1}}
}

// SetTransform is called by EntityRecord.Update to push a freshly rebuilt
// world transform down to the simulator side.
func (b *KinematicBody) SetTransform(pos lin.V3, rot lin.Q) { b.pos, b.rot = pos, rot }

// Transform is called by EntityRecord.Update to pull the
// simulator-authoritative transform back (e.g. after a collision
// response); a body with no external driver simply echoes what was set.
func (b *KinematicBody) Transform() (lin.V3, lin.Q) { return b.pos, b.rot }

// Grounded reports whether the body currently rests on a surface.
func (b *KinematicBody) Grounded() bool { return b.grounded }

// SetGrounded is called by an external collision step to update contact
// state; gameplay logic (jump/dash eligibility) reads it via Grounded.
func (b *KinematicBody) SetGrounded(g bool) { b.grounded = g }

// BodyManager tracks the physicsBridge attached to each entity, mirroring
// the teacher's bodies manager's create/dispose life-cycle.
type BodyManager struct {
	bodies map[eID]physicsBridge
}

// NewBodyManager returns an empty manager.
func NewBodyManager() *BodyManager {
	return &BodyManager{bodies: map[eID]physicsBridge{}}
}

// Create attaches a new KinematicBody to id, or returns the existing one.
func (bm *BodyManager) Create(id eID) physicsBridge {
	if b, ok := bm.bodies[id]; ok {
		return b
	}
	b := NewKinematicBody()
	bm.bodies[id] = b
	return b
}

// Get returns the physics bridge for id, or nil.
func (bm *BodyManager) Get(id eID) physicsBridge { return bm.bodies[id] }

// Dispose detaches the physics bridge for id.
func (bm *BodyManager) Dispose(id eID) { delete(bm.bodies, id) }
