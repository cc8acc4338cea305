// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// refobj.go implements the uniform lifecycle contract of §3/§4.1: every
// engine object that participates in shared GPU-resource ownership (mesh,
// model, modelTx, texture, shader, framebuffer) embeds a RefObject. Go's
// GC already reclaims memory, but GPU resource release still needs the
// spec's explicit "destructor runs exactly once, at count zero" contract,
// and the scene graph still needs the "pass" one-shot transfer contract
// for constructors that consume a field of their options (eg ModelTx
// consuming a Model). See DESIGN.md for why this is generics-light rather
// than a literal refcount-header-with-offset translation (§9 redesign
// notes: "embedded ref header vs heap ref header").

import (
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
)

// refCounted is implemented by every type embedding a RefObject.
type refCounted interface {
	refObj() *RefObject
}

// RefObject is the lifecycle header. Zero value is not usable; use
// newRefObject or newEmbeddedRefObject.
type RefObject struct {
	class    string
	count    int32 // atomic; heap objects start at 1.
	embedded bool  // true for static/embedded objects: Get/Put are no-ops.
	consumed bool  // not set by any code path; Sink tracks its own taken state.
	destroy  func()
}

// newRefObject creates a heap-allocated, refcounted header with count 1.
// destroy runs exactly once, when the count reaches zero.
func newRefObject(class string, destroy func()) RefObject {
	classRegistry.retain(class)
	return RefObject{class: class, count: 1, destroy: destroy}
}

// newEmbeddedRefObject creates a header for an object embedded directly in
// a parent struct (or held as a package-level static). Get and Put on it
// are no-ops: the embedding parent's own lifecycle governs it.
func newEmbeddedRefObject(class string) RefObject {
	return RefObject{class: class, count: 1, embedded: true}
}

func (r *RefObject) refObj() *RefObject { return r }

// Get retains a reference. Forbidden (a no-op, logged) on embedded/static
// objects per §4.1.
func (r *RefObject) Get() {
	if r.embedded {
		slog.Warn("refobj: Get on embedded object ignored", "class", r.class)
		return
	}
	atomic.AddInt32(&r.count, 1)
}

// Put releases a reference. At zero the destructor runs and the class
// registry count is released; the object is otherwise left for the
// garbage collector to reclaim.
func (r *RefObject) Put() {
	if r.embedded {
		return
	}
	if atomic.AddInt32(&r.count, -1) == 0 {
		classRegistry.release(r.class)
		if r.destroy != nil {
			r.destroy()
		}
	}
}

// refCount returns the current refcount, for tests and diagnostics only.
func (r *RefObject) refCount() int32 { return atomic.LoadInt32(&r.count) }

// Get retains a reference to any refCounted object. A nil o is a no-op,
// matching the spec's "forbidden on embedded/static" being a logged no-op
// rather than a panic.
func Get[T refCounted](o T) T {
	if v := reflect.ValueOf(o); v.IsValid() && !(v.Kind() == reflect.Pointer && v.IsNil()) {
		o.refObj().Get()
	}
	return o
}

// Put releases a reference to any refCounted object.
func Put[T refCounted](o T) {
	if any(o) != nil {
		o.refObj().Put()
	}
}

// RefObject
// =============================================================================
// Sink implements the one-shot "pass" transfer of §4.1: Give(obj) marks a
// handle so that the next Get does not bump the count. In Go this is
// expressed as a value that can be Take-n exactly once; after Take the
// sink is empty, modeling "the caller's variable is null".

// Sink holds a value handed off for one-shot ownership transfer into a
// constructor that may fail partway through. The zero Sink holds T's
// zero value and is not Empty until Take is called.
type Sink[T any] struct {
	val   T
	taken bool
}

// Give wraps v for one-shot transfer. The caller must not use v again
// after passing it; Take is the only way to retrieve it. Named Give
// rather than Pass to avoid colliding with the Pass render-pass type
// (§4.5).
func Give[T any](v T) Sink[T] { return Sink[T]{val: v} }

// Take extracts the wrapped value exactly once. A second Take returns the
// zero value; callers that consume an options field via Sink must call
// Take at most once, matching "an object may be passed to a callee...the
// next get on that handle takes the caller's reference without bumping".
func (s *Sink[T]) Take() T {
	if s.taken {
		var zero T
		return zero
	}
	s.taken = true
	v := s.val
	var zero T
	s.val = zero
	return v
}

// Empty reports whether Take has already been called on the sink.
func (s *Sink[T]) Empty() bool { return s.taken }

// RefObject
// =============================================================================
// classRegistry is a process-wide diagnostic side channel (§5): a live
// count of instances per class, used for leak hunting in development
// builds. It is never consulted for correctness.

type refClassRegistry struct {
	mu     sync.Mutex
	counts map[string]int64
}

var classRegistry = &refClassRegistry{counts: map[string]int64{}}

func (r *refClassRegistry) retain(class string) {
	r.mu.Lock()
	r.counts[class]++
	r.mu.Unlock()
}

func (r *refClassRegistry) release(class string) {
	r.mu.Lock()
	r.counts[class]--
	r.mu.Unlock()
}

// LiveCounts returns a snapshot of live instance counts per class name.
// Diagnostic only, intended for leak-hunting in development builds.
func LiveCounts() map[string]int64 {
	classRegistry.mu.Lock()
	defer classRegistry.mu.Unlock()
	out := make(map[string]int64, len(classRegistry.counts))
	for k, v := range classRegistry.counts {
		out[k] = v
	}
	return out
}
