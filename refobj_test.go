// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

import "testing"

type fakeRefObj struct {
	RefObject
	destroyed bool
}

func newFakeRefObj() *fakeRefObj {
	f := &fakeRefObj{}
	f.RefObject = newRefObject("fake", func() { f.destroyed = true })
	return f
}

func TestRefObjectDestroysExactlyOnce(t *testing.T) {
	f := newFakeRefObj()
	Put(f)
	if !f.destroyed {
		t.Fatal("expected destroy to run when count reaches zero")
	}
}

func TestRefObjectGetThenPutSurvives(t *testing.T) {
	f := newFakeRefObj()
	Get(f)
	Put(f)
	if f.destroyed {
		t.Fatal("object destroyed while a reference is still held")
	}
	Put(f)
	if !f.destroyed {
		t.Fatal("expected destroy once all references released")
	}
}

func TestEmbeddedRefObjectGetIsNoop(t *testing.T) {
	f := &fakeRefObj{}
	f.RefObject = newEmbeddedRefObject("fake")
	Get(f)
	Put(f)
	if f.destroyed {
		t.Fatal("embedded object must never run its destructor via Put")
	}
	if f.refCount() != 1 {
		t.Fatalf("embedded refcount should stay pinned at 1, got %d", f.refCount())
	}
}

// TestSinkGiveTransfersExactlyOneReference models:
//
//	ref_pass(x); ref_new(y, .field = ref_pass(x))
//
// retains exactly one reference to x held by y; the caller's sink is
// emptied after Take.
func TestSinkGiveTransfersExactlyOneReference(t *testing.T) {
	x := newFakeRefObj() // starts at count 1
	sink := Give(x)
	if sink.Empty() {
		t.Fatal("freshly-passed sink should not be empty")
	}

	// constructor for y "consumes" the sink field: it takes ownership
	// without an additional Get.
	taken := sink.Take()
	if taken != x {
		t.Fatal("Take must return the original object")
	}
	if !sink.Empty() {
		t.Fatal("sink must be empty after Take")
	}
	if x.refCount() != 1 {
		t.Fatalf("pass must not bump the refcount, got %d", x.refCount())
	}

	// second take must not resurrect the value.
	if again := sink.Take(); again != nil {
		t.Fatal("second Take must return the zero value")
	}

	Put(x)
	if !x.destroyed {
		t.Fatal("y's single held reference must destroy x on release")
	}
}
