// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package load

// scenejson.go implements §4.9's higher-level scene JSON: a thin layer
// naming which asset-container models to load, their physics/gameplay
// parameters, and per-entity placement, re-emitted on save with 4-space
// indentation and an auto-inserted "name" field. The teacher has nothing
// at this level (its loaders stop at single-mesh GLB import); this layer
// is new, shaped directly from §4.9's scene-JSON paragraph.

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// GeomClass names the physics collision shape used for a model's entities.
type GeomClass string

const (
	GeomSphere  GeomClass = "sphere"
	GeomCapsule GeomClass = "capsule"
	GeomTrimesh GeomClass = "trimesh"
)

// SceneModel is one model entry: the gltf asset to load, physics
// parameters, gameplay flags, an entity placement array, and an
// animation-rename map.
type SceneModel struct {
	GLTF string `json:"gltf"`

	Mass       float64   `json:"mass,omitempty"`
	GeomClass  GeomClass `json:"geom_class,omitempty"`
	GeomRadius float64   `json:"geom_radius,omitempty"`
	GeomLength float64   `json:"geom_length,omitempty"`
	GeomOffset [3]float64 `json:"geom_offset,omitempty"`

	TerrainClamp   bool `json:"terrain_clamp,omitempty"`
	CullFace       bool `json:"cull_face,omitempty"`
	AlphaBlend     bool `json:"alpha_blend,omitempty"`
	CanDash        bool `json:"can_dash,omitempty"`
	CanJump        bool `json:"can_jump,omitempty"`
	OutlineExclude bool `json:"outline_exclude,omitempty"`
	FixOrigin      bool `json:"fix_origin,omitempty"`

	Entities []SceneEntity `json:"entities"`

	// AnimRename maps an animation clip name as authored in the gltf
	// asset to the name gameplay code refers to it by.
	AnimRename map[string]string `json:"anim_rename,omitempty"`
}

// SceneEntity places one instance of a SceneModel, with an optional
// attached light.
type SceneEntity struct {
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation,omitempty"`
	Scale    [3]float64 `json:"scale,omitempty"`

	LightColor [3]float64 `json:"light_color,omitempty"`
	LightOff   [3]float64 `json:"light_offset,omitempty"`
	LightAtten [3]float64 `json:"light_attenuation,omitempty"`
	HasLight   bool        `json:"has_light,omitempty"`
}

// SceneLight is a top-level light not attached to any model entity.
type SceneLight struct {
	Position    [3]float64 `json:"position"`
	Color       [3]float64 `json:"color"`
	Directional bool       `json:"directional,omitempty"`
}

// SceneSFX is the top-level sound-effect object.
type SceneSFX struct {
	Clips map[string]string `json:"clips,omitempty"`
}

// SceneDoc is the top-level scene JSON object.
type SceneDoc struct {
	Name  string       `json:"name"`
	Model []SceneModel `json:"model"`
	Light []SceneLight `json:"light,omitempty"`
	SFX   SceneSFX     `json:"sfx,omitempty"`
}

// ParseSceneJSON decodes a scene document.
func ParseSceneJSON(b []byte) (*SceneDoc, error) {
	doc := &SceneDoc{}
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("load.ParseSceneJSON: %w", err)
	}
	return doc, nil
}

// SaveSceneJSON re-emits doc with 4-space indentation; if Name is empty it
// is set to defaultName so the field exists and sorts first on re-encode.
func SaveSceneJSON(doc *SceneDoc, defaultName string) ([]byte, error) {
	if doc.Name == "" {
		doc.Name = defaultName
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("load.SaveSceneJSON: %w", err)
	}
	return buf.Bytes(), nil
}
