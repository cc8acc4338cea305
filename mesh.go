// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// mesh.go implements §4.2: a named bundle of per-vertex attribute arrays
// plus one index array, an AABB kept in sync with vertex data, and
// LOD-index generation. Grounded in the teacher's mesh.go (a vdata map of
// render.Data keyed by shader layout location) generalized from a single
// flat vertex-data map into the spec's fixed attribute slots, with the
// per-attribute component-type shape following render/data.go.

import (
	"fmt"

	"github.com/emberforge/ember/math/lin"
)

// ComponentType is the scalar type backing one attribute element.
type ComponentType int

const (
	CompByte ComponentType = iota
	CompShort
	CompUShort
	CompInt
	CompFloat
)

func (c ComponentType) size() int {
	switch c {
	case CompByte:
		return 1
	case CompShort, CompUShort:
		return 2
	case CompInt, CompFloat:
		return 4
	}
	return 0
}

// AttrSlot names one of the mesh's fixed per-vertex attribute channels.
type AttrSlot int

const (
	AttrPosition AttrSlot = iota
	AttrTexcoord
	AttrNormal
	AttrTangent
	AttrJoints
	AttrWeights
	nrAttrSlots // N in the spec's "up to N attribute arrays".
)

func (a AttrSlot) String() string {
	switch a {
	case AttrPosition:
		return "position"
	case AttrTexcoord:
		return "texcoord"
	case AttrNormal:
		return "normal"
	case AttrTangent:
		return "tangent"
	case AttrJoints:
		return "joints"
	case AttrWeights:
		return "weights"
	}
	return "unknown"
}

// Attribute is one vertex-attribute array: a component type, a vector
// width (1..4, or 9/16 for the matN forms), an element count, a byte
// stride, and the backing bytes.
type Attribute struct {
	Comp   ComponentType
	Vec    int
	Stride int
	Count  int
	Data   []byte
}

func newAttribute(comp ComponentType, vec, stride, nr int) *Attribute {
	if stride <= 0 {
		stride = comp.size() * vec
	}
	return &Attribute{Comp: comp, Vec: vec, Stride: stride, Count: nr, Data: make([]byte, stride*nr)}
}

// AABB is an axis-aligned bounding box: 6 floats, min/max per axis.
type AABB struct {
	Min, Max lin.V3
}

// Corners returns the 8 corners of the box.
func (b AABB) Corners() [8]lin.V3 {
	return [8]lin.V3{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z}, {X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z}, {X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z}, {X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z}, {X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
	}
}

// EdgeLenSqr returns the squared length of the box's diagonal edge.
func (b AABB) EdgeLenSqr() float64 {
	dx, dy, dz := b.Max.X-b.Min.X, b.Max.Y-b.Min.Y, b.Max.Z-b.Min.Z
	return dx*dx + dy*dy + dz*dz
}

// AvgEdgeLen returns the average of the box's three edge lengths ("side"
// in core/model.c:955), used by LOD selection's distance-minus-side
// approximation (§4.4).
func (b AABB) AvgEdgeLen() float64 {
	dx, dy, dz := b.Max.X-b.Min.X, b.Max.Y-b.Min.Y, b.Max.Z-b.Min.Z
	return (dx + dy + dz) / 3
}

// Contains reports whether p lies within the box, inclusive.
func (b AABB) Contains(p lin.V3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Transform returns the AABB that tightly bounds b's 8 corners after
// applying m (§8: aabb(e) equals transform(e.mx, model_aabb(e.model))).
func (b AABB) Transform(m *lin.M4) AABB {
	out := AABB{
		Min: lin.V3{X: inf64, Y: inf64, Z: inf64},
		Max: lin.V3{X: -inf64, Y: -inf64, Z: -inf64},
	}
	for _, c := range b.Corners() {
		v := &lin.V4{X: c.X, Y: c.Y, Z: c.Z, W: 1}
		v.MultvM(v, m)
		out.Min.X, out.Max.X = minf(out.Min.X, v.X), maxf(out.Max.X, v.X)
		out.Min.Y, out.Max.Y = minf(out.Min.Y, v.Y), maxf(out.Max.Y, v.Y)
		out.Min.Z, out.Max.Z = minf(out.Min.Z, v.Z), maxf(out.Max.Z, v.Z)
	}
	return out
}

const inf64 = 1e308

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Mesh
// =============================================================================

// MeshOptions constructs a Mesh. Name is required.
type MeshOptions struct {
	Name string
}

// Mesh is a named bundle of up to nrAttrSlots attribute arrays and one
// index array (§4.2). A Mesh is expected to be referenced by one or more
// Models and carries no instance information.
type Mesh struct {
	RefObject
	name  string
	attrs [nrAttrSlots]*Attribute
	index []uint32 // triangle indices, always stored widened; idx16 governs the GPU upload width.
	idx16 bool      // true while nr_vx <= 65535, meaning indices fit a 16-bit GPU upload.
	aabb  AABB
}

// NewMesh validates opts and constructs an empty Mesh.
func NewMesh(opts MeshOptions) (*Mesh, error) {
	if opts.Name == "" {
		return nil, newErr("mesh.New", KindInvalidArguments, fmt.Errorf("missing name"))
	}
	m := &Mesh{name: opts.Name, idx16: true}
	m.RefObject = newRefObject("mesh", func() {})
	return m, nil
}

func (m *Mesh) Name() string { return m.name }

// NrVx returns the element count of the position attribute, or 0.
func (m *Mesh) NrVx() int {
	if a := m.attrs[AttrPosition]; a != nil {
		return a.Count
	}
	return 0
}

// NrIdx returns the number of indices in the base (LOD 0) index buffer.
func (m *Mesh) NrIdx() int { return len(m.index) }

// AABB returns the current mesh-space bounding box.
func (m *Mesh) AABB() AABB { return m.aabb }

// AttrAlloc allocates a zeroed attribute array.
func (m *Mesh) AttrAlloc(slot AttrSlot, comp ComponentType, vec, stride, nr int) error {
	if slot < 0 || slot >= nrAttrSlots {
		return newErr("mesh.AttrAlloc", KindInvalidArguments, fmt.Errorf("slot %v out of range", slot))
	}
	m.attrs[slot] = newAttribute(comp, vec, stride, nr)
	return nil
}

// AttrDup copies caller data into a newly allocated attribute.
func (m *Mesh) AttrDup(slot AttrSlot, comp ComponentType, vec, stride int, data []byte) error {
	if stride <= 0 {
		stride = comp.size() * vec
	}
	if stride == 0 || len(data)%stride != 0 {
		return newErr("mesh.AttrDup", KindInvalidArguments, fmt.Errorf("data length %d not a multiple of stride %d", len(data), stride))
	}
	nr := len(data) / stride
	attr := &Attribute{Comp: comp, Vec: vec, Stride: stride, Count: nr, Data: make([]byte, len(data))}
	copy(attr.Data, data)
	m.attrs[slot] = attr
	if slot == AttrPosition {
		m.aabbCalc()
	}
	return nil
}

// AttrAdd takes ownership of caller-allocated data. The caller must not
// retain a mutable alias to data afterwards.
func (m *Mesh) AttrAdd(slot AttrSlot, comp ComponentType, vec, stride int, data []byte) error {
	if stride <= 0 {
		stride = comp.size() * vec
	}
	if stride == 0 || len(data)%stride != 0 {
		return newErr("mesh.AttrAdd", KindInvalidArguments, fmt.Errorf("data length %d not a multiple of stride %d", len(data), stride))
	}
	m.attrs[slot] = &Attribute{Comp: comp, Vec: vec, Stride: stride, Count: len(data) / stride, Data: data}
	if slot == AttrPosition {
		m.aabbCalc()
	}
	return nil
}

// AttrResize preserves existing content; the new tail is zeroed.
func (m *Mesh) AttrResize(slot AttrSlot, newNr int) error {
	attr := m.attrs[slot]
	if attr == nil {
		return newErr("mesh.AttrResize", KindNotFound, fmt.Errorf("slot %v not allocated", slot))
	}
	need := attr.Stride * newNr
	grown := make([]byte, need)
	copy(grown, attr.Data)
	attr.Data = grown
	attr.Count = newNr
	if slot == AttrPosition {
		m.aabbCalc()
	}
	return nil
}

// Attr returns the attribute at slot, or nil if unallocated.
func (m *Mesh) Attr(slot AttrSlot) *Attribute { return m.attrs[slot] }

// SetIndex replaces the base index buffer, validating that the index
// count is a multiple of 3 and every index is within range of the
// position attribute's vertex count (§3, §8).
func (m *Mesh) SetIndex(idx []uint32) error {
	if len(idx)%3 != 0 {
		return newErr("mesh.SetIndex", KindInvalidArguments, fmt.Errorf("index count %d not a multiple of 3", len(idx)))
	}
	nrVx := uint32(m.NrVx())
	for _, i := range idx {
		if i >= nrVx {
			return newErr("mesh.SetIndex", KindBufferOverrun, fmt.Errorf("index %d >= nr_vx %d", i, nrVx))
		}
	}
	m.index = append(m.index[:0], idx...)
	m.idx16 = nrVx <= 65535
	return nil
}

// Index returns the base (LOD 0) index buffer.
func (m *Mesh) Index() []uint32 { return m.index }

// Idx16 reports whether the base index buffer fits a 16-bit GPU upload.
func (m *Mesh) Idx16() bool { return m.idx16 }

// aabbCalc recomputes the AABB from the position attribute in O(nr_vx).
func (m *Mesh) aabbCalc() {
	attr := m.attrs[AttrPosition]
	if attr == nil || attr.Count == 0 {
		m.aabb = AABB{}
		return
	}
	min := lin.V3{X: inf64, Y: inf64, Z: inf64}
	max := lin.V3{X: -inf64, Y: -inf64, Z: -inf64}
	for i := 0; i < attr.Count; i++ {
		x, y, z := readVec3F32(attr.Data, i*attr.Stride)
		min.X, max.X = minf(min.X, x), maxf(max.X, x)
		min.Y, max.Y = minf(min.Y, y), maxf(max.Y, y)
		min.Z, max.Z = minf(min.Z, z), maxf(max.Z, z)
	}
	m.aabb = AABB{Min: min, Max: max}
}

func readVec3F32(data []byte, off int) (x, y, z float64) {
	x = float64(le32f(data[off : off+4]))
	y = float64(le32f(data[off+4 : off+8]))
	z = float64(le32f(data[off+8 : off+12]))
	return
}

// Flatten produces a single interleaved vertex buffer whose layout
// matches attrList in the given order, with the given per-attribute
// sizes (bytes) and offsets into the interleaved stride.
func (m *Mesh) Flatten(attrList []AttrSlot, sizes, offsets []int, stride int) ([]byte, error) {
	if len(attrList) != len(sizes) || len(attrList) != len(offsets) {
		return nil, newErr("mesh.Flatten", KindInvalidArguments, fmt.Errorf("mismatched attribute/size/offset lengths"))
	}
	nr := m.NrVx()
	out := make([]byte, stride*nr)
	for i, slot := range attrList {
		attr := m.attrs[slot]
		if attr == nil {
			continue
		}
		size := sizes[i]
		off := offsets[i]
		for v := 0; v < nr && v < attr.Count; v++ {
			src := attr.Data[v*attr.Stride : v*attr.Stride+size]
			dst := out[v*stride+off : v*stride+off+size]
			copy(dst, src)
		}
	}
	return out, nil
}

// Optimize reorders the index buffer for vertex-cache/overdraw locality
// using a greedy strip-following heuristic: triangles sharing a vertex
// with the most-recently emitted triangle are emitted next. Not a full
// Forsyth/Tipsify implementation, but improves post-transform cache hit
// rate over an arbitrary triangle order.
func (m *Mesh) Optimize() {
	if len(m.index) < 3 {
		return
	}
	nrTris := len(m.index) / 3
	used := make([]bool, nrTris)
	byVertex := make(map[uint32][]int, m.NrVx())
	for t := 0; t < nrTris; t++ {
		for k := 0; k < 3; k++ {
			v := m.index[t*3+k]
			byVertex[v] = append(byVertex[v], t)
		}
	}
	out := make([]uint32, 0, len(m.index))
	cur := 0
	for emitted := 0; emitted < nrTris; {
		for cur < nrTris && used[cur] {
			cur++
		}
		if cur >= nrTris {
			break
		}
		next := cur
		used[next] = true
		out = append(out, m.index[next*3], m.index[next*3+1], m.index[next*3+2])
		emitted++
		found := -1
		for k := 0; k < 3 && found < 0; k++ {
			for _, cand := range byVertex[m.index[next*3+k]] {
				if !used[cand] {
					found = cand
					break
				}
			}
		}
		if found >= 0 {
			cur = found
		}
	}
	m.index = out
}

// LOD is a generated, reduced index buffer and its associated error
// metric (§4.2, §4.4).
type LOD struct {
	Index []uint32
	Error float64
}

// IdxToLOD produces a simplified index buffer at the given LOD level via
// grid-based vertex clustering: positions are snapped to a grid whose
// cell size grows with level, triangles that collapse to a point or
// duplicate an already-emitted triangle are dropped. Rejects the result
// (empty LOD, nil error) if it would not be strictly smaller than
// prevCount, matching the "LOD generation stops at the previous level on
// overflow" edge case.
func (m *Mesh) IdxToLOD(level int, prevCount int) (LOD, error) {
	if level <= 0 {
		return LOD{}, newErr("mesh.IdxToLOD", KindInvalidArguments, fmt.Errorf("level must be > 0"))
	}
	pos := m.attrs[AttrPosition]
	if pos == nil || len(m.index) < 3 {
		return LOD{}, newErr("mesh.IdxToLOD", KindNotSupported, fmt.Errorf("no base geometry"))
	}

	cell := cellSizeForLevel(m.aabb, level)
	if cell <= 0 {
		return LOD{}, newErr("mesh.IdxToLOD", KindNotSupported, fmt.Errorf("degenerate bounds"))
	}

	cluster := make([]uint32, pos.Count)
	clusterOf := map[[3]int64]uint32{}
	for v := 0; v < pos.Count; v++ {
		x, y, z := readVec3F32(pos.Data, v*pos.Stride)
		key := [3]int64{int64(x / cell), int64(y / cell), int64(z / cell)}
		id, ok := clusterOf[key]
		if !ok {
			id = uint32(len(clusterOf))
			clusterOf[key] = id
		}
		cluster[v] = id
	}

	seen := map[[3]uint32]bool{}
	out := make([]uint32, 0, len(m.index))
	var errAccum float64
	for t := 0; t < len(m.index); t += 3 {
		a, b, c := cluster[m.index[t]], cluster[m.index[t+1]], cluster[m.index[t+2]]
		if a == b || b == c || a == c {
			errAccum += cell
			continue
		}
		key := sortedTri(a, b, c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m.index[t], m.index[t+1], m.index[t+2])
	}

	if len(out) == 0 || len(out) >= prevCount {
		return LOD{}, nil
	}
	errMetric := errAccum/float64(len(m.index)/3) + cell*0.01
	if errMetric <= 0 {
		errMetric = cell * 0.01
	}
	return LOD{Index: out, Error: errMetric}, nil
}

func cellSizeForLevel(box AABB, level int) float64 {
	diag := box.EdgeLenSqr()
	if diag <= 0 {
		return 0
	}
	base := diag * 0.0005
	for i := 1; i < level; i++ {
		base *= 2
	}
	return base
}

func sortedTri(a, b, c uint32) [3]uint32 {
	arr := [3]uint32{a, b, c}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if arr[j] < arr[i] {
				arr[i], arr[j] = arr[j], arr[i]
			}
		}
	}
	return arr
}
