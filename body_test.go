// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

import (
	"testing"

	"github.com/emberforge/ember/math/lin"
)

func TestKinematicBodyEchoesTransform(t *testing.T) {
	b := NewKinematicBody()
	pos := lin.V3{X: 1, Y: 2, Z: 3}
	rot := lin.Q{W: 1}
	b.SetTransform(pos, rot)
	gotPos, gotRot := b.Transform()
	if gotPos != pos || gotRot != rot {
		t.Fatalf("transform not echoed: got %+v %+v", gotPos, gotRot)
	}
}

func TestKinematicBodyGroundedDefaultsFalse(t *testing.T) {
	b := NewKinematicBody()
	if b.Grounded() {
		t.Fatalf("expected fresh body ungrounded")
	}
	b.SetGrounded(true)
	if !b.Grounded() {
		t.Fatalf("expected grounded after SetGrounded(true)")
	}
}

func TestBodyManagerCreateIsIdempotent(t *testing.T) {
	bm := NewBodyManager()
	id := eID(1)
	b1 := bm.Create(id)
	b2 := bm.Create(id)
	if b1 != b2 {
		t.Fatalf("expected Create to return the same bridge for an existing id")
	}
}

func TestBodyManagerDispose(t *testing.T) {
	bm := NewBodyManager()
	id := eID(1)
	bm.Create(id)
	bm.Dispose(id)
	if bm.Get(id) != nil {
		t.Fatalf("expected nil bridge after Dispose")
	}
}

func TestEntityRecordPushesTransformToBody(t *testing.T) {
	e := NewEntityRecord()
	body := NewKinematicBody()
	e.Body = body
	e.SetTransform(lin.V3{X: 5, Y: 0, Z: 0}, lin.Q{W: 1})
	e.Update(nil, 0.016)
	pos, _ := body.Transform()
	if pos.X != 5 {
		t.Fatalf("expected body to receive pushed transform, got %+v", pos)
	}
}
