// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// instantiate.go implements §4.9's instantiation step: given a parsed
// load.Document, build a Mesh per recognized glTF mesh primitive, attach
// its material's textures, wire up skinning and animation when present,
// and add the resulting ModelTx to a scene's MQ. Grounded in the teacher's
// load/glb.go (single-mesh accessor-driven attribute copy), generalized
// here to the full multi-node/multi-mesh/skin/animation graph §4.9 calls
// for.

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/emberforge/ember/load"
	"github.com/emberforge/ember/math/lin"
)

var gltfAttrSlots = map[string]AttrSlot{
	"POSITION":   AttrPosition,
	"NORMAL":     AttrNormal,
	"TEXCOORD_0": AttrTexcoord,
	"TANGENT":    AttrTangent,
	"JOINTS_0":   AttrJoints,
	"WEIGHTS_0":  AttrWeights,
}

// InstantiateOne builds a Mesh, Model, and ModelTx from meshIndex in doc,
// attaching any material textures it references (§4.9's
// "instantiate_one(mesh_index)"). shader is used verbatim for every
// instantiated model; callers pick it per material kind.
func InstantiateOne(doc *load.Document, meshIndex int, shader *Shader) (*ModelTx, error) {
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, newErr("instantiate.One", KindInvalidArguments, fmt.Errorf("mesh index %d out of range", meshIndex))
	}
	meshDoc := doc.Meshes[meshIndex]
	if len(meshDoc.Primitives) == 0 {
		return nil, newErr("instantiate.One", KindInvalidArguments, fmt.Errorf("mesh %d has no primitives", meshIndex))
	}
	prim := meshDoc.Primitives[0]

	mesh, err := NewMesh(MeshOptions{Name: fmt.Sprintf("mesh#%d", meshIndex)})
	if err != nil {
		return nil, err
	}
	for attrName, accIdx := range prim.Attributes {
		slot, ok := gltfAttrSlots[attrName]
		if !ok {
			slog.Warn("instantiate: unrecognized vertex attribute", "attr", attrName)
			continue
		}
		if err := dupAccessor(doc, mesh, slot, accIdx); err != nil {
			return nil, err
		}
	}
	if prim.Indices != nil {
		idx, err := decodeIndices(doc, *prim.Indices)
		if err != nil {
			return nil, err
		}
		if err := mesh.SetIndex(idx); err != nil {
			return nil, err
		}
	}
	mesh.Optimize()

	mat := Material{Alpha: 1}
	if prim.Material != nil && *prim.Material < len(doc.Materials) {
		md := doc.Materials[*prim.Material]
		if md.PBR.BaseColorFactor != nil {
			c := *md.PBR.BaseColorFactor
			mat.KD = [3]float32{c[0], c[1], c[2]}
			mat.Alpha = c[3]
		}
	}

	model, err := NewModel(ModelOptions{Name: mesh.Name(), Mesh: Give(mesh), Shader: shader, Material: mat})
	if err != nil {
		return nil, err
	}
	tx, err := NewModelTx(ModelTxOptions{Model: Give(model)})
	if err != nil {
		Put(model)
		return nil, err
	}

	if prim.Material != nil && *prim.Material < len(doc.Materials) {
		md := doc.Materials[*prim.Material]
		if md.PBR.BaseColorTexture != nil {
			if tex, err := instantiateTexture(doc, md.PBR.BaseColorTexture.Index); err == nil {
				if err := tx.SetTexture(0, tex, texOwned); err != nil {
					slog.Warn("instantiate: set base color texture failed", "err", err)
				}
				Put(tex)
			} else {
				slog.Warn("instantiate: base color texture failed", "err", err)
			}
		}
	}

	return tx, nil
}

func instantiateTexture(doc *load.Document, texIdx int) (*Texture, error) {
	if texIdx < 0 || texIdx >= len(doc.Textures) {
		return nil, fmt.Errorf("texture %d out of range", texIdx)
	}
	imgIdx := doc.Textures[texIdx].Source
	if imgIdx < 0 || imgIdx >= len(doc.Images) {
		return nil, fmt.Errorf("image %d out of range", imgIdx)
	}
	img := doc.Images[imgIdx]
	if img.MimeType != "image/png" {
		return nil, fmt.Errorf("unsupported image mime %q", img.MimeType)
	}
	if img.BufferView == nil {
		return nil, fmt.Errorf("image has no bufferView")
	}
	bv := doc.BufferViews[*img.BufferView]
	data := doc.Buffers[bv.Buffer].Data
	blob := data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
	return NewTexture(TextureOptions{Name: fmt.Sprintf("tex#%d", texIdx), Blob: blob})
}

func dupAccessor(doc *load.Document, mesh *Mesh, slot AttrSlot, accIdx int) error {
	raw, err := doc.AccessorBytes(accIdx)
	if err != nil {
		return newErr("instantiate.dupAccessor", KindParseFailed, err)
	}
	acc := doc.Accessors[accIdx]
	vec := acc.ElementComponents()
	if vec == 0 {
		return newErr("instantiate.dupAccessor", KindInvalidFormat, fmt.Errorf("unsupported accessor type %q", acc.Type))
	}
	comp := compTypeFromGLTF(acc.ComponentType)
	stride := vec * acc.ComponentSize()
	return mesh.AttrDup(slot, comp, vec, stride, raw[:acc.Count*stride])
}

func compTypeFromGLTF(t load.AccessorComponentType) ComponentType {
	switch t {
	case load.CompByteS:
		return CompByte
	case load.CompShortS:
		return CompShort
	case load.CompUShortS, load.CompUByte:
		return CompUShort
	default:
		return CompFloat
	}
}

func decodeIndices(doc *load.Document, accIdx int) ([]uint32, error) {
	raw, err := doc.AccessorBytes(accIdx)
	if err != nil {
		return nil, newErr("instantiate.decodeIndices", KindParseFailed, err)
	}
	acc := doc.Accessors[accIdx]
	out := make([]uint32, acc.Count)
	switch acc.ComponentType {
	case load.CompUShortS:
		for i := 0; i < acc.Count; i++ {
			out[i] = uint32(binary.LittleEndian.Uint16(raw[i*2:]))
		}
	case load.CompUInt:
		for i := 0; i < acc.Count; i++ {
			out[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
	default:
		return nil, newErr("instantiate.decodeIndices", KindInvalidFormat, fmt.Errorf("unsupported index component type %d", acc.ComponentType))
	}
	return out, nil
}

// InstantiateSkin builds joint/inverse-bind data for a Model from doc's
// skins[skinIdx]: the inverse-bind matrices and, per joint, the index of
// its parent joint (-1 when its parent node is not a joint of the skin).
func InstantiateSkin(doc *load.Document, skinIdx int) (*SkinMeta, error) {
	if skinIdx < 0 || skinIdx >= len(doc.Skins) {
		return nil, newErr("instantiate.Skin", KindInvalidArguments, fmt.Errorf("skin %d out of range", skinIdx))
	}
	skin := doc.Skins[skinIdx]
	raw, err := doc.AccessorBytes(skin.InverseBindMatrices)
	if err != nil {
		return nil, newErr("instantiate.Skin", KindParseFailed, err)
	}
	n := len(skin.Joints)
	flat := make([]float32, n*16)
	for i := 0; i < n*16 && i*4 < len(raw); i++ {
		flat[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	parent := make([]int, n)
	nodeToJoint := map[int]int{}
	for j, nodeIdx := range skin.Joints {
		nodeToJoint[nodeIdx] = j
	}
	for j, nodeIdx := range skin.Joints {
		parent[j] = -1
		for ni, node := range doc.Nodes {
			for _, child := range node.Children {
				if child == nodeIdx {
					if p, ok := nodeToJoint[ni]; ok {
						parent[j] = p
					}
				}
			}
		}
	}
	return &SkinMeta{InverseBind: flat, Parent: parent, NrJoints: n}, nil
}

func indexOfNode(doc *load.Document, n load.Node) int {
	for i := range doc.Nodes {
		if &doc.Nodes[i] == &n {
			return i
		}
	}
	return -1
}

// InstantiateAnimation converts doc's animations[animIdx] into an
// Animation, skipping channels whose target node has no entry in
// nodeToJoint (§4.7's "channels referencing nonexistent joints are
// tolerated"). nodeToJoint maps a glTF node index to a joint index.
func InstantiateAnimation(doc *load.Document, animIdx int, nodeToJoint map[int]int) (*Animation, error) {
	if animIdx < 0 || animIdx >= len(doc.Animations) {
		return nil, newErr("instantiate.Animation", KindInvalidArguments, fmt.Errorf("animation %d out of range", animIdx))
	}
	ad := doc.Animations[animIdx]
	anim := NewAnimation(fmt.Sprintf("anim#%d", animIdx))
	for _, ch := range ad.Channels {
		joint, ok := nodeToJoint[ch.Target.Node]
		if !ok {
			slog.Warn("instantiate: animation channel targets nonexistent joint", "node", ch.Target.Node)
			continue
		}
		if ch.Sampler < 0 || ch.Sampler >= len(ad.Samplers) {
			continue
		}
		sampler := ad.Samplers[ch.Sampler]
		times, err := decodeFloatAccessor(doc, sampler.Input, 1)
		if err != nil {
			continue
		}
		var path ChannelPath
		switch ch.Target.Path {
		case "translation":
			path = PathTranslation
		case "rotation":
			path = PathRotation
		case "scale":
			path = PathScale
		default:
			continue
		}
		interp := InterpLinear
		switch sampler.Interpolation {
		case "STEP":
			interp = InterpStep
		case "CUBICSPLINE":
			interp = InterpCubicSpline
		}
		c := Channel{Joint: joint, Path: path, Interp: interp, Times: toFloat64s(times)}
		if path == PathRotation {
			quats, err := decodeFloatAccessor(doc, sampler.Output, 4)
			if err != nil {
				continue
			}
			c.Quats = toQuats(quats)
		} else {
			vecs, err := decodeFloatAccessor(doc, sampler.Output, 3)
			if err != nil {
				continue
			}
			c.Vec3s = toV3s(vecs)
		}
		anim.AddChannel(c)
	}
	if len(anim.Channels) == 0 {
		return nil, newErr("instantiate.Animation", KindInvalidFormat, fmt.Errorf("animation %d has no valid channels", animIdx))
	}
	return anim, nil
}

func decodeFloatAccessor(doc *load.Document, accIdx, comps int) ([]float32, error) {
	raw, err := doc.AccessorBytes(accIdx)
	if err != nil {
		return nil, err
	}
	acc := doc.Accessors[accIdx]
	n := acc.Count * comps
	out := make([]float32, n)
	for i := 0; i < n && i*4 < len(raw); i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

func toFloat64s(f []float32) []float64 {
	out := make([]float64, len(f))
	for i, v := range f {
		out[i] = float64(v)
	}
	return out
}

func toV3s(f []float32) []lin.V3 {
	out := make([]lin.V3, len(f)/3)
	for i := range out {
		out[i] = lin.V3{X: float64(f[i*3]), Y: float64(f[i*3+1]), Z: float64(f[i*3+2])}
	}
	return out
}

func toQuats(f []float32) []lin.Q {
	out := make([]lin.Q, len(f)/4)
	for i := range out {
		out[i] = lin.Q{X: float64(f[i*4]), Y: float64(f[i*4+1]), Z: float64(f[i*4+2]), W: float64(f[i*4+3])}
	}
	return out
}
