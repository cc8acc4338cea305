// Copyright © 2022-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// pipeline.go implements §4.5's pass DAG: an ordered list of passes, each
// with tagged-union sources (RENDER/USE/BLIT/PLUG), a fixed attachment
// set, a resize policy, and lifecycle callbacks. Generalizes the
// teacher's render/pass.go (PassID, Pass{Packets, Uniforms, Lights}) from
// its flat 3D-then-2D pair into an arbitrary ordered graph; the
// per-pass Packets/Uniforms/Lights shape is kept as PassState below.

import (
	"fmt"
	"log/slog"
)

// SourceMethod names how a pass pulls from an upstream source.
type SourceMethod int

const (
	MethodRender SourceMethod = iota // pass renders the scene's MQ directly.
	MethodUse                        // bind another pass's attachment texture.
	MethodBlit                       // blit another pass's attachment into this pass's input.
	MethodPlug                       // bind a caller-supplied raw texture.
)

// PassSource is one tagged-union entry of a pass_config's sources[].
type PassSource struct {
	FromMQ     bool // { mq } variant: render the scene MQ.
	FromPass   PassID
	Attachment int // color attachment index, or -1 for depth.
	Method     SourceMethod
	Sampler    string // uniform sampler name this source binds to.
	Tex        *Texture
}

// AttachmentConfig is the bitmask of color attachments 0..N plus an
// optional depth texture, per §4.5.
type AttachmentConfig struct {
	ColorMask  uint32 // bit i set => attachment i is allocated.
	HasDepth   bool
	ColorFmt   []AttachmentFormat // len == number of set bits in ColorMask, in index order.
	DepthFmt   AttachmentFormat
}

// AttachmentFormat names a color or depth texture format; concrete GPU
// format selection is left to the backend, driven by an HDR probe the
// caller performs before building a Pipeline.
type AttachmentFormat int

const (
	FormatRGBA8 AttachmentFormat = iota
	FormatRGBA16F
	FormatDepth24
	FormatDepth32F
)

// PassOps bundles the three lifecycle callbacks a pass_config names.
// Resize may adjust the requested size (e.g. snap to a power of two, or
// apply a scale factor) and returns the size actually used. Prepare runs
// clear/clear-depth/depth-func setup. Begin/End bracket cascade
// sub-passes.
type PassOps struct {
	Resize  func(p *Pass, w, h int) (int, int)
	Prepare func(p *Pass)
	Begin   func(p *Pass, cascade int)
	End     func(p *Pass, cascade int)
}

// PassID identifies a pass within a Pipeline's ordered list. Kept as the
// teacher's name and underlying type (up to 256 passes).
type PassID uint8

// Pass is one node in the pipeline DAG.
type Pass struct {
	ID      PassID
	Name    string
	Sources []PassSource
	Attach  AttachmentConfig

	Ops            PassOps
	ShaderOverride *Shader

	Multisampled bool
	NrSamples    int

	Cascade    int // >= 0 for a cascaded pass/cascade index, -1 for non-cascaded.
	Scale      float64
	Checkpoint string

	State PassState

	width, height int // last successfully resolved size.
}

// PassState is the per-frame Packets/Uniforms/Lights a pass carries,
// kept directly from the teacher's render.Pass shape.
type PassState struct {
	Packets  []DrawPacket
	Uniforms map[string][]byte
	Lights   []Light
}

// DrawPacket is one draw call's worth of state: a model transform and
// the ModelTx/entity it came from. The renderer backend consumes these;
// their GPU submission is an external collaborator per the rendering
// backend non-goal.
type DrawPacket struct {
	Tx     *ModelTx
	Entity *EntityRecord
}

// Reset clears a PassState for reuse, keeping allocated memory, as the
// teacher's Pass.Reset does.
func (ps *PassState) Reset() {
	ps.Packets = ps.Packets[:0]
	for k := range ps.Uniforms {
		ps.Uniforms[k] = ps.Uniforms[k][:0]
	}
	for i := range ps.Lights {
		ps.Lights[i] = Light{}
	}
}

// Pipeline is the ordered DAG of passes executed once per frame.
type Pipeline struct {
	passes []*Pass
	byID   map[PassID]*Pass
	width  int
	height int
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{byID: map[PassID]*Pass{}}
}

// AddPass appends a pass to the end of the pipeline's order.
func (pl *Pipeline) AddPass(p *Pass) {
	pl.passes = append(pl.passes, p)
	pl.byID[p.ID] = p
}

// Pass looks up a pass by id.
func (pl *Pipeline) Pass(id PassID) (*Pass, bool) {
	p, ok := pl.byID[id]
	return p, ok
}

// Passes returns the pipeline's passes in execution order, letting a
// scene populate each RENDER-sourced pass's state ahead of Render.
func (pl *Pipeline) Passes() []*Pass { return pl.passes }

// HasMQSource reports whether any of the pass's sources renders the
// scene's MQ directly, per §4.5's { mq } source variant.
func (p *Pass) HasMQSource() bool {
	for _, src := range p.Sources {
		if src.FromMQ {
			return true
		}
	}
	return false
}

// Resize walks every pass's resize callback against the requested
// window size. On a callback's failure the pass reverts to its previous
// size and the error is reported without aborting the frame, per §4.5's
// resize protocol.
func (pl *Pipeline) Resize(w, h int) []error {
	pl.width, pl.height = w, h
	var errs []error
	for _, p := range pl.passes {
		if p.Ops.Resize == nil {
			p.width, p.height = w, h
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					errs = append(errs, fmt.Errorf("pipeline.Resize: pass %q resize panicked: %v", p.Name, r))
				}
			}()
			nw, nh := p.Ops.Resize(p, w, h)
			if nw <= 0 || nh <= 0 {
				errs = append(errs, newErr("pipeline.Resize", KindInvalidArguments, fmt.Errorf("pass %q resize returned non-positive size", p.Name)))
				return
			}
			p.width, p.height = nw, nh
		}()
	}
	return errs
}

// Render executes one frame: for each pass in order it resolves the
// pass's sources, calls Ops.Prepare, then for each cascade calls
// Ops.Begin, visit and Ops.End. A pass with Cascade >= 0 runs
// len(CascadeDividers) cascades; any other pass runs one, with index 0.
// Binding the pass's target is left to the callbacks; visit is
// responsible for issuing the actual draw calls to the backend. The last
// pass is returned.
func (pl *Pipeline) Render(visit func(p *Pass, cascade int)) *Pass {
	var last *Pass
	for _, p := range pl.passes {
		pl.resolveSources(p)
		if p.Ops.Prepare != nil {
			p.Ops.Prepare(p)
		}
		cascades := 1
		if p.Cascade >= 0 {
			cascades = len(CascadeDividers)
		}
		for c := 0; c < cascades; c++ {
			if p.Ops.Begin != nil {
				p.Ops.Begin(p, c)
			}
			visit(p, c)
			if p.Ops.End != nil {
				p.Ops.End(p, c)
			}
		}
		last = p
	}
	return last
}

// resolveSources binds each of p's sources per its method, per §4.5
// step 1(a): BLIT sources are blitted from the upstream pass's
// attachment; USE sources bind that attachment directly; PLUG sources
// bind a caller-supplied texture. The actual GPU blit/bind calls are
// left to the render backend (an external collaborator); this records
// which sampler name each resolves to and logs sources that reference
// an unknown upstream pass.
func (pl *Pipeline) resolveSources(p *Pass) {
	for i, src := range p.Sources {
		if src.FromMQ {
			continue
		}
		if src.Method == MethodPlug {
			if src.Tex == nil {
				slog.Warn("pipeline: plug source missing texture", "pass", p.Name, "source", i)
			}
			continue
		}
		if _, ok := pl.byID[src.FromPass]; !ok {
			slog.Warn("pipeline: source references unknown pass", "pass", p.Name, "from", src.FromPass)
		}
	}
}

// Output returns the final pass's color-0 attachment conceptually; the
// caller pairs this with backend state to fetch the actual texture
// handle. Per §4.5 step 2, the last pass in order is the frame output.
func (pl *Pipeline) Output() (*Pass, bool) {
	if len(pl.passes) == 0 {
		return nil, false
	}
	return pl.passes[len(pl.passes)-1], true
}
