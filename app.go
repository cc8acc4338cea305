// Copyright © 2017 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// app.go holds the component managers and runs the application update
// loop. Generalizes the teacher's app.go (a single application struct
// delegating to scenes/povs/models/bodies/lights/sounds managers) to the
// spec's entity-record shape: one map of eID to *EntityRecord plus one
// map of eID to *Scene, driven through the §4.4 update step each tick.
// The device-facing machine/render-card loop in the teacher's vu.go is
// not reproduced here: windowing, the GPU backend, and audio mixing are
// external collaborators per the rendering/audio backend non-goals, so
// Engine.SetRenderVisit takes a visit callback from the caller instead of
// owning a render card.

import (
	"fmt"
	"time"
)

// App is implemented by the hosting application and registered once with
// NewEngine.
type App interface {
	Create(eng *Engine)                 // called once after the engine is ready.
	Update(eng *Engine, dt time.Duration) // called once per fixed update tick.
}

// application is the entity manager and component-data owner behind an
// Engine. One instance is created per NewEngine call.
type application struct {
	app App

	eids    *entities
	records map[eID]*EntityRecord
	scenes  map[eID]*Scene

	lights *LightTable
	bodies *BodyManager

	visit func(p *Pass, cascade int)

	timing Timing
	stop   bool
}

func newApplication(callback App) *application {
	a := &application{
		app:     callback,
		eids:    &entities{},
		records: map[eID]*EntityRecord{},
		scenes:  map[eID]*Scene{},
		lights:  NewLightTable(),
		bodies:  NewBodyManager(),
	}
	a.eids.create() // reserve id 0 as invalid/sentinel, matching the teacher's convention.
	return a
}

// dispose removes every component an entity owns and recycles its id.
func (a *application) dispose(eng *Engine, id eID) {
	if rec, ok := a.records[id]; ok {
		if rec.LightIdx >= 0 {
			a.lights.Free(rec.LightIdx)
		}
		delete(a.records, id)
	}
	if sc, ok := a.scenes[id]; ok {
		sc.Dispose()
		delete(a.scenes, id)
	}
	a.bodies.Dispose(id)
	a.eids.dispose(id)
}

// update advances every component by dt, invokes the application's own
// Update, then assembles and runs one frame for every visible scene, per
// §2's per-frame data flow: entity update → view/cascade/light-grid
// recompute → MQ walk/LOD selection → pass loop.
func (a *application) update(eng *Engine, dt time.Duration) {
	secs := dt.Seconds()
	for _, rec := range a.records {
		rec.Update(a.lights, secs)
	}
	if a.app != nil {
		a.app.Update(eng, dt)
	}
	visit := a.visit
	if visit == nil {
		visit = func(p *Pass, cascade int) {}
	}
	for _, sc := range a.scenes {
		if !sc.Visible() {
			continue
		}
		sc.RenderFrame(a.lights, visit)
	}
	a.timing.Renders++
	a.timing.Update = dt
}

// Engine
// =============================================================================

// Engine is the application-facing handle for creating entities, scenes,
// and running the update loop. Kept as a thin wrapper over *application so
// Entity (defined in entity.go) can carry a reference back to it without
// exposing component internals.
type Engine struct {
	app *application
}

// NewEngine constructs an Engine, applies any Config options, and calls
// the application's Create callback once.
func NewEngine(callback App, attrs ...Attr) (*Engine, error) {
	if callback == nil {
		return nil, newErr("app.NewEngine", KindInvalidArguments, fmt.Errorf("nil App"))
	}
	cfg := configDefaults
	for _, attr := range attrs {
		attr(&cfg)
	}
	eng := &Engine{app: newApplication(callback)}
	callback.Create(eng)
	return eng, nil
}

// AddEntity allocates a new entity id with an empty EntityRecord attached.
func (eng *Engine) AddEntity() Entity {
	id := eng.app.eids.create()
	eng.app.records[id] = NewEntityRecord()
	return Entity{eid: id, app: eng.app}
}

// Record returns the component data behind e, or nil if e no longer
// exists.
func (eng *Engine) Record(e Entity) *EntityRecord {
	return eng.app.records[e.eid]
}

// AddScene allocates a new entity id with an empty *Scene attached.
func (eng *Engine) AddScene() (Entity, *Scene) {
	id := eng.app.eids.create()
	sc := NewScene()
	eng.app.scenes[id] = sc
	return Entity{eid: id, app: eng.app}, sc
}

// SceneOf returns the scene behind e, or nil if e is not a scene entity.
func (eng *Engine) SceneOf(e Entity) *Scene {
	return eng.app.scenes[e.eid]
}

// Lights returns the engine's shared light table.
func (eng *Engine) Lights() *LightTable { return eng.app.lights }

// Bodies returns the engine's physics-bridge manager.
func (eng *Engine) Bodies() *BodyManager { return eng.app.bodies }

// SetRenderVisit installs the backend callback Pipeline.Render drives
// once per pass/cascade for every visible scene each tick. Actual GPU
// submission is an external collaborator; until a callback is set, Tick
// still runs the full per-frame data flow (view/cascade/light-grid/MQ
// walk) with a no-op draw step, so LOD selection, culling stats, and
// animation remain exercisable without a backend.
func (eng *Engine) SetRenderVisit(visit func(p *Pass, cascade int)) {
	eng.app.visit = visit
}

// Stop requests the update loop to exit after the current tick.
func (eng *Engine) Stop() { eng.app.stop = true }

// Stopped reports whether Stop has been called.
func (eng *Engine) Stopped() bool { return eng.app.stop }

// Tick advances the application by one fixed update of dt, matching
// §4.4's per-tick entity update followed by the application's own Update.
func (eng *Engine) Tick(dt time.Duration) {
	eng.app.update(eng, dt)
}

// Timing returns the engine's accumulated per-loop timing numbers.
func (eng *Engine) Timing() *Timing { return &eng.app.timing }
