// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// loadscene.go implements §4.9's scene-JSON instantiation layer: given a
// parsed load.SceneDoc, resolve each named gltf asset through a
// caller-supplied source, instantiate its first mesh via InstantiateOne,
// and place one ModelTx entity per scene-JSON entity entry into an
// engine/scene pair, wiring light attachments and top-level lights into
// the engine's shared light table. The teacher has nothing at this
// level (its loaders stop at a single GLB import); this is new, shaped
// directly from §4.9's scene-JSON paragraph and SceneModel/SceneEntity's
// field set.

import (
	"fmt"

	"github.com/emberforge/ember/load"
	"github.com/emberforge/ember/math/lin"
)

// AssetSource resolves a scene-JSON gltf reference to its container bytes;
// the concrete source (embedded FS, disk, network) is an external
// collaborator.
type AssetSource func(name string) ([]byte, error)

// LoadScene parses sceneJSON, loads every referenced gltf asset through
// source, and populates sc with one entity per scene-JSON SceneEntity
// (plus any top-level lights), returning the parsed document for callers
// that need SceneModel gameplay flags (mass, geom class, anim_rename).
func LoadScene(eng *Engine, sc *Scene, sceneJSON []byte, source AssetSource, shader *Shader) (*load.SceneDoc, error) {
	doc, err := load.ParseSceneJSON(sceneJSON)
	if err != nil {
		return nil, newErr("loadscene.Load", KindParseFailed, err)
	}
	for mi := range doc.Model {
		if err := instantiateSceneModel(eng, sc, &doc.Model[mi], source, shader); err != nil {
			return nil, err
		}
	}
	for _, lt := range doc.Light {
		addTopLevelLight(eng, lt)
	}
	return doc, nil
}

func instantiateSceneModel(eng *Engine, sc *Scene, sm *load.SceneModel, source AssetSource, shader *Shader) error {
	blob, err := source(sm.GLTF)
	if err != nil {
		return newErr("loadscene.instantiateSceneModel", KindNotFound, fmt.Errorf("gltf %q: %w", sm.GLTF, err))
	}
	gdoc, _, err := load.ParseContainer(blob)
	if err != nil {
		return newErr("loadscene.instantiateSceneModel", KindParseFailed, err)
	}
	if len(gdoc.Meshes) == 0 {
		return newErr("loadscene.instantiateSceneModel", KindInvalidFormat, fmt.Errorf("gltf %q has no meshes", sm.GLTF))
	}

	for _, se := range sm.Entities {
		tx, err := InstantiateOne(gdoc, 0, shader)
		if err != nil {
			return err
		}
		ent := eng.AddEntity()
		pos := lin.V3{X: se.Position[0], Y: se.Position[1], Z: se.Position[2]}
		rot := lin.Q{X: se.Rotation[0], Y: se.Rotation[1], Z: se.Rotation[2], W: se.Rotation[3]}
		if rot == (lin.Q{}) {
			rot = lin.Q{W: 1}
		}
		record := eng.Record(ent)
		record.SetTransform(pos, rot)
		if se.Scale != ([3]float64{}) {
			record.SetScale(lin.V3{X: se.Scale[0], Y: se.Scale[1], Z: se.Scale[2]})
		}
		if sm.OutlineExclude {
			record.Flags |= FlagOutlineExclude
		}
		tx.Attach(record)
		sc.MQ().Add(tx)

		if se.HasLight {
			idx := eng.Lights().Alloc()
			if idx >= 0 {
				record.LightIdx = idx
				eng.Lights().SetColor(idx, se.LightColor[0], se.LightColor[1], se.LightColor[2])
				eng.Lights().SetAttenuation(idx, se.LightAtten[0], se.LightAtten[1], se.LightAtten[2], 1.0/256)
			}
		}
	}
	return nil
}

func addTopLevelLight(eng *Engine, lt load.SceneLight) {
	idx := eng.Lights().Alloc()
	if idx < 0 {
		return
	}
	eng.Lights().SetPosition(idx, lin.V3{X: lt.Position[0], Y: lt.Position[1], Z: lt.Position[2]})
	eng.Lights().SetColor(idx, lt.Color[0], lt.Color[1], lt.Color[2])
	eng.Lights().SetDirectional(idx, lt.Directional)
}
