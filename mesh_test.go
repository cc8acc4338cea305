// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

import "testing"

func quad() *Mesh {
	m, _ := NewMesh(MeshOptions{Name: "quad"})
	pos := make([]byte, 4*12)
	pts := [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	for i, p := range pts {
		putLE32f(pos[i*12:], p[0])
		putLE32f(pos[i*12+4:], p[1])
		putLE32f(pos[i*12+8:], p[2])
	}
	m.AttrDup(AttrPosition, CompFloat, 3, 12, pos)
	m.SetIndex([]uint32{0, 1, 2, 0, 2, 3})
	return m
}

func TestSetIndexRejectsNonMultipleOfThree(t *testing.T) {
	m := quad()
	if err := m.SetIndex([]uint32{0, 1}); KindOf(err) != KindInvalidArguments {
		t.Fatalf("expected invalid_arguments, got %v", err)
	}
}

func TestSetIndexRejectsOutOfRange(t *testing.T) {
	m := quad()
	if err := m.SetIndex([]uint32{0, 1, 9}); KindOf(err) != KindBufferOverrun {
		t.Fatalf("expected buffer_overrun, got %v", err)
	}
}

func TestAABBTracksPositionAttribute(t *testing.T) {
	m := quad()
	box := m.AABB()
	if box.Min.X != 0 || box.Max.X != 1 || box.Min.Y != 0 || box.Max.Y != 1 {
		t.Fatalf("unexpected aabb %+v", box)
	}
}

func TestNrIdxIsMultipleOfThree(t *testing.T) {
	m := quad()
	if m.NrIdx()%3 != 0 {
		t.Fatalf("nr_idx %d not a multiple of 3", m.NrIdx())
	}
}

func TestIdxToLODProducesFewerIndicesOrRejects(t *testing.T) {
	m := quad()
	lod, err := m.IdxToLOD(1, m.NrIdx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lod.Index) > 0 && len(lod.Index) >= m.NrIdx() {
		t.Fatalf("lod %d not smaller than base %d", len(lod.Index), m.NrIdx())
	}
}

func TestAttrResizePreservesExistingContent(t *testing.T) {
	m := quad()
	if err := m.AttrResize(AttrPosition, 6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	attr := m.Attr(AttrPosition)
	if attr.Count != 6 {
		t.Fatalf("expected 6 elements, got %d", attr.Count)
	}
	x, _, _ := readVec3F32(attr.Data, 0)
	if x != 0 {
		t.Fatalf("expected preserved first vertex x=0, got %v", x)
	}
}
