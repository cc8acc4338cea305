// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

import (
	"testing"

	"github.com/emberforge/ember/math/lin"
)

// singleJointAnim returns a one-joint, one-channel clip of the given
// duration with a constant rotation, enough to exercise Evaluate's
// channel-sample and hierarchy-walk path without a real asset.
func singleJointAnim(duration float64) *Animation {
	a := NewAnimation("clip")
	a.Joints = []Joint{{Name: "root", Parent: -1}}
	a.AddChannel(Channel{
		Joint: 0, Path: PathRotation,
		Times: []float64{0, duration},
		Quats: []lin.Q{{W: 1}, {W: 1}},
	})
	return a
}

// TestAdvanceAnimationsEvaluatesJoints covers §4.7 step 3: a playing clip
// populates EntityRecord.Joints from Animation.Evaluate each tick.
func TestAdvanceAnimationsEvaluatesJoints(t *testing.T) {
	e := NewEntityRecord()
	anim := singleJointAnim(1.0)
	e.AnimQ = []AnimQueueEntry{{Anim: anim, Speed: 1}}

	e.Update(nil, 0.1)
	if len(e.Joints) != 1 {
		t.Fatalf("expected 1 joint transform, got %d", len(e.Joints))
	}
}

// TestAdvanceAnimationsFiresEndCBOnceThenIdles covers the animation-end
// scenario (§4.7, §8): a non-repeating clip fires EndCB exactly once when
// its duration elapses, then the queue falls back to idle (empty).
func TestAdvanceAnimationsFiresEndCBOnceThenIdles(t *testing.T) {
	e := NewEntityRecord()
	anim := singleJointAnim(1.0)
	fired := 0
	e.AnimQ = []AnimQueueEntry{{
		Anim: anim, Speed: 2.0,
		EndCB: func(e *EntityRecord) { fired++ },
	}}

	e.Update(nil, 0.2) // animation-time 0.4, below duration: not yet fired.
	if fired != 0 {
		t.Fatalf("expected EndCB not yet fired, got %d calls", fired)
	}
	if len(e.AnimQ) != 1 {
		t.Fatalf("expected clip still queued before completion")
	}

	e.Update(nil, 0.3) // animation-time 1.0, reaches duration: fires once.
	if fired != 1 {
		t.Fatalf("expected EndCB fired exactly once, got %d calls", fired)
	}
	if len(e.AnimQ) != 0 {
		t.Fatalf("expected queue empty (idle) after a non-repeat clip ends, got %d entries", len(e.AnimQ))
	}

	e.Update(nil, 0.1) // idle: no further callback, no panic on empty queue.
	if fired != 1 {
		t.Fatalf("expected no further EndCB calls once idle, got %d", fired)
	}
}

// TestAdvanceAnimationsRepeatResetsTime covers the repeating-clip branch
// of FinishHeadAnimation: time resets to 0 instead of popping the queue.
func TestAdvanceAnimationsRepeatResetsTime(t *testing.T) {
	e := NewEntityRecord()
	anim := singleJointAnim(1.0)
	e.AnimQ = []AnimQueueEntry{{Anim: anim, Speed: 1, Repeat: true}}

	e.Update(nil, 1.5)
	if len(e.AnimQ) != 1 {
		t.Fatalf("expected repeating clip to remain queued, got %d entries", len(e.AnimQ))
	}
	if e.AnimQ[0].Time != 0 {
		t.Fatalf("expected repeating clip time reset to 0, got %v", e.AnimQ[0].Time)
	}
}
