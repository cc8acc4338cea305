// Copyright © 2015-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// model.go implements §4.2/§4.3's Model and ModelTx: Model bundles a mesh,
// shader program, default material, up to 4 generated LOD index buffers,
// and optional skinning metadata; ModelTx pairs a Model with up to 6 named
// texture slots, material parameter overrides, and the live list of
// entities currently drawing through it. Grounded in the teacher's
// model.go (originally a single fat interface covering mesh/texture/
// animation/particle/font concerns for one Pov) restructured into the
// spec's explicit two-level Model/ModelTx split, with LoadMat/AddTex/
// SetTex naming kept from the teacher's vocabulary.

import (
	"fmt"
)

const maxLODs = 4
const maxTexSlots = 6

// Material holds default surface parameters a ModelTx may override.
type Material struct {
	KD      [3]float32 // diffuse colour
	KA      [3]float32 // ambient colour
	KS      [3]float32 // specular colour
	Alpha   float32
	Tr      float32 // transparency
}

// SkinMeta carries the joint-hierarchy metadata needed to evaluate
// skeletal animation for a Model (§4.7): per-joint inverse bind matrices
// and parent indices, indexed by joint.
type SkinMeta struct {
	InverseBind []float32 // flattened 4x4 matrices, 16 floats per joint.
	Parent      []int     // -1 for root joints.
	NrJoints    int
}

// Model bundles a mesh, shader program, default material, and up to
// maxLODs generated index buffers (§4.2). nr_lods is always >= 1 and
// cur_lod is always clamped into [0, nr_lods).
type Model struct {
	RefObject
	name     string
	mesh     *Mesh
	shader   *Shader
	material Material
	lods     []LOD // lods[0] mirrors mesh's base index buffer; len(lods) == nrLODs.
	skin     *SkinMeta
	anims    []Animation // flat animation array, §4.7.
}

// ModelOptions constructs a Model. Mesh is a Sink since the constructor
// consumes it (the spec's "pass" transfer of a fresh mesh into a model).
type ModelOptions struct {
	Name     string
	Mesh     Sink[*Mesh]
	Shader   *Shader
	Material Material
	Skin     *SkinMeta
}

// NewModel validates opts, takes ownership of the mesh, and generates up
// to maxLODs-1 additional LOD index buffers beyond the mesh's base.
func NewModel(opts ModelOptions) (*Model, error) {
	if opts.Name == "" {
		return nil, newErr("model.New", KindInvalidArguments, fmt.Errorf("missing name"))
	}
	mesh := opts.Mesh.Take()
	if mesh == nil {
		return nil, newErr("model.New", KindInvalidArguments, fmt.Errorf("missing mesh"))
	}
	m := &Model{name: opts.Name, mesh: mesh, shader: opts.Shader, material: opts.Material, skin: opts.Skin}
	m.RefObject = newRefObject("model", func() { Put(m.mesh) })
	m.lods = append(m.lods, LOD{Index: mesh.Index()})
	prev := mesh.NrIdx()
	for level := 1; level < maxLODs; level++ {
		lod, err := mesh.IdxToLOD(level, prev)
		if err != nil || len(lod.Index) == 0 {
			break // stop generating further levels once one fails or does not shrink.
		}
		m.lods = append(m.lods, lod)
		prev = len(lod.Index)
	}
	return m, nil
}

func (m *Model) Name() string    { return m.name }
func (m *Model) Mesh() *Mesh     { return m.mesh }
func (m *Model) Shader() *Shader { return m.shader }
func (m *Model) NrLODs() int     { return len(m.lods) }

// LOD returns the clamped index buffer for the requested level.
func (m *Model) LOD(level int) LOD {
	if level < 0 {
		level = 0
	}
	if level >= len(m.lods) {
		level = len(m.lods) - 1
	}
	return m.lods[level]
}

// Skin returns the skeletal metadata, or nil for a static model.
func (m *Model) Skin() *SkinMeta { return m.skin }

// Animations returns the model's flat animation array.
func (m *Model) Animations() []Animation { return m.anims }

// AddAnimation appends an animation clip to the model's flat array.
func (m *Model) AddAnimation(a Animation) { m.anims = append(m.anims, a) }

// Material returns the model's default material parameters.
func (m *Model) Material() Material { return m.material }

// ModelTx
// =============================================================================

// texSource describes how a ModelTx texture slot obtained its pixels, so
// the release path can tell owned GPU textures from borrowed ones.
type texSource int

const (
	texOwned    texSource = iota // decoded and uploaded by this ModelTx; released on Put.
	texShared                    // borrowed from another ModelTx or the asset cache; never released here.
	texRawPixel                  // uploaded directly from an in-memory pixel buffer.
	texPNGBlob                   // decoded from an embedded PNG byte blob (asset-container textures).
)

type texSlot struct {
	tex    *Texture
	source texSource
}

// ModelTx pairs a Model with up to maxTexSlots named texture slots,
// material overrides, and the live list of entities currently rendering
// through it (§4.3). A ModelTx never outlives its Model: Put on the last
// ModelTx reference releases its hold on the model but the model itself
// may still be shared by other ModelTx instances.
type ModelTx struct {
	RefObject
	model    *Model
	textures [maxTexSlots]texSlot
	material Material
	entities []*EntityRecord
}

// ModelTxOptions constructs a ModelTx. Model is a Sink for the same
// one-shot-transfer reason as Model's own Mesh field.
type ModelTxOptions struct {
	Model    Sink[*Model]
	Material *Material // nil to inherit the model's default material.
}

// NewModelTx takes ownership of model (bumping its refcount for the
// duration of this ModelTx's life) and returns a fresh, textureless tx.
func NewModelTx(opts ModelTxOptions) (*ModelTx, error) {
	model := opts.Model.Take()
	if model == nil {
		return nil, newErr("modeltx.New", KindInvalidArguments, fmt.Errorf("missing model"))
	}
	mat := model.material
	if opts.Material != nil {
		mat = *opts.Material
	}
	tx := &ModelTx{model: Get(model), material: mat}
	tx.RefObject = newRefObject("modeltx", func() {
		for i := range tx.textures {
			if tx.textures[i].tex != nil && tx.textures[i].source != texShared {
				Put(tx.textures[i].tex)
			}
		}
		Put(tx.model)
	})
	return tx, nil
}

func (tx *ModelTx) Model() *Model { return tx.model }

// SetTexture installs a texture at slot with the given ownership source.
// A previously owned texture at that slot is released first.
func (tx *ModelTx) SetTexture(slot int, tex *Texture, source texSource) error {
	if slot < 0 || slot >= maxTexSlots {
		return newErr("modeltx.SetTexture", KindInvalidArguments, fmt.Errorf("slot %d out of range", slot))
	}
	old := tx.textures[slot]
	if old.tex != nil && old.source != texShared {
		Put(old.tex)
	}
	if source != texShared {
		Get(tex)
	}
	tx.textures[slot] = texSlot{tex: tex, source: source}
	return nil
}

// Texture returns the texture bound at slot, or nil.
func (tx *ModelTx) Texture(slot int) *Texture {
	if slot < 0 || slot >= maxTexSlots {
		return nil
	}
	return tx.textures[slot].tex
}

// Material returns this tx's material parameter overrides.
func (tx *ModelTx) Material() Material { return tx.material }

// SetMaterial replaces the material overrides.
func (tx *ModelTx) SetMaterial(m Material) { tx.material = m }

// Attach adds an entity to this tx's live list (MQ draw-order membership).
func (tx *ModelTx) Attach(e *EntityRecord) {
	e.ModelTx = tx
	tx.entities = append(tx.entities, e)
}

// Detach removes an entity from this tx's live list.
func (tx *ModelTx) Detach(e *EntityRecord) {
	for i, cur := range tx.entities {
		if cur == e {
			tx.entities = append(tx.entities[:i], tx.entities[i+1:]...)
			e.ModelTx = nil
			return
		}
	}
}

// Entities returns the live entity list, in attach order.
func (tx *ModelTx) Entities() []*EntityRecord { return tx.entities }
