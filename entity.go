// Copyright © 2017-2024 Galvanized Logic Inc.

package ember

// entity.go provides unique entity identifiers (eID/entities, kept from
// the teacher's entity-component design) plus the per-entity component
// record of §4.4: a transform, derived model matrix and world AABB, an
// animation queue, joint transforms, an optional physics handle, an
// optional light-table slot, a color override, and the Entity.update()
// step sequence. An entity-component system has tradeoffs either way;
// this keeps the teacher's handle-plus-array-of-records shape rather
// than inventing a new one.

import (
	"log/slog"
	"math"

	"github.com/emberforge/ember/math/lin"
)

// Entity is a lightweight handle into an application's entity tables.
// Scenes, model transforms, and lights are all entities; the concrete
// component data lives in an EntityRecord reachable via MQ.
type Entity struct {
	eid eID
	app *application
}

// Dispose all components for this entity.
func (e *Entity) Dispose(eng *Engine) { e.app.dispose(eng, e.eid) }

// Exists returns true if the entity has been created and not disposed.
func (e *Entity) Exists() bool { return e.app.eids.valid(e.eid) }

// Entity
// =============================================================================
// eID defines entity identifiers.

// eID is an entity identifier comprised of an id used as a live reference
// to data and an edition used to track when ids are deleted and reused.
// Entity ids are expected to be used as array indices for component data
// and as such do not change value over their lifetime.
type eID uint32

const idBits = 20                    // entity array index : max 1048575
const edBits = 12                    // entity edition     : max    4095
const maxEntID = (1 << idBits) - 1   // mask and max active entities.
const maxEdition = (1 << edBits) - 1 // mask and max dispose and reuse.

func (eid eID) id() uint32      { return uint32(eid & maxEntID) }
func (eid eID) edition() uint16 { return uint16((eid >> idBits) & maxEdition) }

// entities handles the creation and deletion of entity identifiers. It
// ensures a limited set of unique identifiers, suitable for use as
// indices into arrays of component data.
type entities struct {
	editions []uint16 // track currently used entities.
	free     []uint32 // entities ready for reuse.
}

const maxFree = (1 << (edBits - 1)) // recycling starts once free holds more than 2048.

// create returns a new entity id starting at 1. Returns zero once all
// entity identifiers have been allocated.
func (ents *entities) create() eID {
	id := uint32(0)
	if len(ents.free) > maxFree {
		id = ents.free[0]
		ents.free = append(ents.free[:0], ents.free[1:]...)
	} else {
		ents.editions = append(ents.editions, 0)
		if id = uint32(len(ents.editions)); id >= maxEntID {
			if len(ents.free) == 0 {
				slog.Warn("all entity identifiers in use", "max_entities", maxEntID+1)
				return 0
			}
			id = ents.free[0]
			ents.free = append(ents.free[:0], ents.free[1:]...)
		}
	}
	return eID(id | uint32(ents.editions[id-1])<<idBits)
}

// valid entities are those that have been created and not yet disposed.
func (ents *entities) valid(e eID) bool {
	id := e.id()
	if id == 0 {
		return false
	}
	if id > uint32(len(ents.editions)) {
		return false
	}
	return ents.editions[id-1] == e.edition()
}

// dispose marks an entity as no longer valid and queues its id for
// reallocation. The entity can be reallocated maxEdition times before it
// duplicates a previously generated entity.
func (ents *entities) dispose(e eID) {
	id := e.id()
	ents.editions[id-1]++
	ents.free = append(ents.free, id)
}

// Entity
// =============================================================================
// EntityRecord is the per-entity component data of §4.4.

// EntityFlags is a bitset of per-entity render/update switches.
type EntityFlags uint8

const (
	FlagAlive EntityFlags = 1 << iota
	FlagVisible
	FlagSkipCulling
	FlagOutlineExclude
	FlagForceLOD
	FlagUpdatedThisFrame
)

// AnimQueueEntry is one queued animation clip playback (§4.7). Anim is
// the shared, instance-independent clip data (§4.7's Animation.Evaluate
// invariant); entities only hold a pointer plus their own playback state.
type AnimQueueEntry struct {
	Anim    *Animation
	Repeat  bool
	Speed   float64
	EndCB   func(e *EntityRecord)
	FrameCB func(e *EntityRecord, frame int)
	Playing bool
	Time    float64
}

// EntityRecord is the concrete component data a spec Entity carries:
// transform, scale, derived model matrix, world AABB, animation queue,
// per-joint transforms, an optional physics handle, an optional light
// slot, a color override, and status flags.
type EntityRecord struct {
	Position lin.V3
	Rotation lin.Q
	Scale    lin.V3

	ModelMatrix lin.M4
	WorldAABB   AABB
	dirty       bool

	ModelTx  *ModelTx
	AnimQ    []AnimQueueEntry
	Joints   []lin.M4 // per-joint transform array, sized to the model's joint count.

	Body      physicsBridge
	LightIdx  int // -1 when this entity has no light-table slot.
	Color     *[4]float32
	ForceLOD  int // used when FlagForceLOD is set; clamped into [0, nr_lods).
	CurLOD    int
	Flags     EntityFlags
}

// physicsBridge is the thin contract an entity's physics handle must
// satisfy; KinematicBody in body.go implements it.
type physicsBridge interface {
	SetTransform(pos lin.V3, rot lin.Q)
	Transform() (lin.V3, lin.Q)
	Grounded() bool
}

// NewEntityRecord returns a record at the identity transform, visible and
// alive, with no light slot and unit scale.
func NewEntityRecord() *EntityRecord {
	return &EntityRecord{
		Scale:    lin.V3{X: 1, Y: 1, Z: 1},
		Rotation: lin.Q{W: 1},
		LightIdx: -1,
		ForceLOD: -1,
		dirty:    true,
		Flags:    FlagAlive | FlagVisible,
	}
}

// SetTransform updates position/rotation and marks the record dirty so
// the next Update rebuilds its model matrix and world AABB.
func (e *EntityRecord) SetTransform(pos lin.V3, rot lin.Q) {
	e.Position, e.Rotation = pos, rot
	e.dirty = true
}

// SetScale updates scale and marks the record dirty.
func (e *EntityRecord) SetScale(s lin.V3) {
	e.Scale = s
	e.dirty = true
}

// Update performs the §4.4 per-frame entity update:
//  1. rebuild the model matrix and world AABB if the transform changed
//  2. push the new world transform to an attached physics body
//  3. write position into the light table, for entities carrying a light
//  4. advance the animation queue
func (e *EntityRecord) Update(lights *LightTable, dt float64) {
	e.Flags &^= FlagUpdatedThisFrame
	if e.dirty {
		e.rebuild()
		e.dirty = false
		if e.Body != nil {
			e.Body.SetTransform(e.Position, e.Rotation)
		}
		if lights != nil && e.LightIdx >= 0 {
			lights.SetPosition(e.LightIdx, e.Position)
		}
		e.Flags |= FlagUpdatedThisFrame
	}
	if e.Body != nil {
		pos, rot := e.Body.Transform()
		if pos != e.Position || rot != e.Rotation {
			e.Position, e.Rotation = pos, rot
			e.rebuild()
			e.Flags |= FlagUpdatedThisFrame
		}
	}
	e.advanceAnimations(dt)
}

func (e *EntityRecord) rebuild() {
	m := &lin.M4{}
	m.SetQ(&e.Rotation)               // rotation.
	m.ScaleSM(e.Scale.X, e.Scale.Y, e.Scale.Z) // scale is applied first (on left of rotation).
	m.TranslateMT(e.Position.X, e.Position.Y, e.Position.Z) // translate is applied last.
	e.ModelMatrix = *m
	meshAABB := AABB{}
	if e.ModelTx != nil && e.ModelTx.Model() != nil && e.ModelTx.Model().Mesh() != nil {
		meshAABB = e.ModelTx.Model().Mesh().AABB()
	}
	e.WorldAABB = meshAABB.Transform(&e.ModelMatrix)
}

// advanceAnimations steps the head of the animation queue by dt, evaluates
// its channels into e.Joints (§4.7 step 3 of the per-frame update), and
// finishes the clip once its duration has elapsed.
func (e *EntityRecord) advanceAnimations(dt float64) {
	if len(e.AnimQ) == 0 {
		return
	}
	head := &e.AnimQ[0]
	head.Playing = true
	head.Time += dt * head.Speed
	if head.FrameCB != nil {
		head.FrameCB(e, int(head.Time*1000))
	}
	anim := head.Anim
	if anim == nil {
		return
	}
	if len(e.Joints) != len(anim.Joints) {
		e.Joints = make([]lin.M4, len(anim.Joints))
	}
	root := (&lin.M4{}).SetQ(&lin.Q{W: 1})
	if !anim.Evaluate(head.Time, *root, e.Joints) {
		slog.Warn("dropping animation with no valid channels", "name", anim.Name)
		e.FinishHeadAnimation()
		return
	}
	if anim.Duration > 0 && head.Time >= anim.Duration {
		e.FinishHeadAnimation()
	}
}

// FinishHeadAnimation pops the current animation if it is not set to
// repeat, invoking its end callback; repeating clips simply reset time.
func (e *EntityRecord) FinishHeadAnimation() {
	if len(e.AnimQ) == 0 {
		return
	}
	head := e.AnimQ[0]
	if head.EndCB != nil {
		head.EndCB(e)
	}
	if head.Repeat {
		e.AnimQ[0].Time = 0
		return
	}
	e.AnimQ = e.AnimQ[1:]
}

// SelectLOD picks the active LOD index per §4.4 and core/model.c:955:
// ForceLOD wins when FlagForceLOD is set (clamped to the model's
// available LOD count), otherwise lod = |distSqr - side*side| / 3600,
// where side is the world AABB's average edge length.
func (e *EntityRecord) SelectLOD(camPos lin.V3, nrLODs int) int {
	if nrLODs <= 1 {
		e.CurLOD = 0
		return 0
	}
	if e.Flags&FlagForceLOD != 0 {
		lvl := e.ForceLOD
		if lvl < 0 {
			lvl = 0
		}
		if lvl >= nrLODs {
			lvl = nrLODs - 1
		}
		e.CurLOD = lvl
		return lvl
	}
	dx, dy, dz := camPos.X-e.Position.X, camPos.Y-e.Position.Y, camPos.Z-e.Position.Z
	distSqr := dx*dx + dy*dy + dz*dz
	side := e.WorldAABB.AvgEdgeLen()
	lvl := int(math.Abs(distSqr-side*side) / 3600)
	if lvl < 0 {
		lvl = 0
	}
	if lvl >= nrLODs {
		lvl = nrLODs - 1
	}
	e.CurLOD = lvl
	return lvl
}
