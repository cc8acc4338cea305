// Copyright © 2014-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// light.go implements §4.8's fixed-capacity light table and clustered
// tile-mask grid. Grounded in the teacher's light.go (a plain R,G,B color
// attached to a Pov) generalized into the spec's indexed light table, and
// in render/pass.go's Pass.Lights []Light per-pass uniform array, which is
// the shape the clustered grid ultimately feeds.

import (
	"math"

	"github.com/emberforge/ember/math/lin"
)

const maxLights = 128

// Light is one light-table entry: color, position (ignored when
// Directional), and the quadratic attenuation polynomial used to derive a
// screen-space culling radius (§4.8).
type Light struct {
	R, G, B    float64
	Position   lin.V3
	Directional bool
	Constant, Linear, Quadratic float64 // attenuation: 1/(c + l*d + q*d^2).
	Radius     float64                  // world-space cutoff radius; computed by SetAttenuation.
}

// LightTable is a fixed-capacity array of Lights indexed by slot, matching
// EntityRecord.LightIdx and the uniform-block layout a shader samples.
type LightTable struct {
	lights [maxLights]Light
	used   []bool
	n      int
}

// NewLightTable returns an empty table.
func NewLightTable() *LightTable {
	return &LightTable{used: make([]bool, maxLights)}
}

// Alloc reserves the next free slot and returns its index, or -1 if the
// table is full.
func (lt *LightTable) Alloc() int {
	for i := 0; i < maxLights; i++ {
		if !lt.used[i] {
			lt.used[i] = true
			lt.lights[i] = Light{R: 1, G: 1, B: 1}
			if i >= lt.n {
				lt.n = i + 1
			}
			return i
		}
	}
	return -1
}

// Free releases a slot back to the pool.
func (lt *LightTable) Free(idx int) {
	if idx >= 0 && idx < maxLights {
		lt.used[idx] = false
	}
}

// SetPosition writes a light's world position. EntityRecord.Update passes
// the entity's position as is; no per-entity light offset is added.
func (lt *LightTable) SetPosition(idx int, pos lin.V3) {
	if idx >= 0 && idx < maxLights {
		lt.lights[idx].Position = pos
	}
}

// SetColor is a convenience method for changing the light color, kept from
// the teacher's vocabulary.
func (lt *LightTable) SetColor(idx int, r, g, b float64) {
	if idx >= 0 && idx < maxLights {
		lt.lights[idx].R, lt.lights[idx].G, lt.lights[idx].B = r, g, b
	}
}

// SetDirectional marks a slot as a sun-style light with no falloff;
// ClusterGrid.Rebuild sets a directional light's bit in every tile.
func (lt *LightTable) SetDirectional(idx int, directional bool) {
	if idx >= 0 && idx < maxLights {
		lt.lights[idx].Directional = directional
	}
}

// SetAttenuation records the attenuation polynomial and derives Radius:
// the distance at which the brightest color channel's intensity falls to
// threshold, solving bright/(c+l*d+q*d^2) = threshold for d, where bright
// is the largest of R, G and B.
func (lt *LightTable) SetAttenuation(idx int, constant, linear, quadratic, threshold float64) {
	if idx < 0 || idx >= maxLights {
		return
	}
	l := &lt.lights[idx]
	l.Constant, l.Linear, l.Quadratic = constant, linear, quadratic
	bright := maxf(l.R, maxf(l.G, l.B))
	if bright <= 0 || threshold <= 0 || quadratic <= 0 {
		l.Radius = 0
		return
	}
	// quadratic*d^2 + linear*d + (constant - bright/threshold) = 0
	a, b, c := quadratic, linear, constant-bright/threshold
	disc := b*b - 4*a*c
	if disc < 0 {
		l.Radius = 0
		return
	}
	l.Radius = (-b + math.Sqrt(disc)) / (2 * a)
}

func (lt *LightTable) Light(idx int) Light {
	if idx < 0 || idx >= maxLights {
		return Light{}
	}
	return lt.lights[idx]
}

func (lt *LightTable) Count() int { return lt.n }

// ClusterGrid is the §4.8 screen-space tile grid: a 128-bit (4x32) light
// mask per tile, rebuilt once per frame from the current view and light
// table.
type ClusterGrid struct {
	Width, Height int // viewport size in pixels.
	Tile          int // tile edge length in pixels (C in the spec, e.g. 32).
	cols, rows    int
	masks         [][4]uint32 // row-major, cols*rows entries.
}

// NewClusterGrid builds a grid sized ceil(width/tile) x ceil(height/tile).
func NewClusterGrid(width, height, tile int) *ClusterGrid {
	if tile <= 0 {
		tile = 32
	}
	cols := (width + tile - 1) / tile
	rows := (height + tile - 1) / tile
	return &ClusterGrid{Width: width, Height: height, Tile: tile, cols: cols, rows: rows, masks: make([][4]uint32, cols*rows)}
}

// Cols, Rows expose the grid dimensions for texture upload.
func (g *ClusterGrid) Cols() int { return g.cols }
func (g *ClusterGrid) Rows() int { return g.rows }

// Mask returns the 128-bit light mask for tile (col,row) as four 32-bit
// lanes, ready to upload as one RGBA32UI texel.
func (g *ClusterGrid) Mask(col, row int) [4]uint32 {
	if col < 0 || row < 0 || col >= g.cols || row >= g.rows {
		return [4]uint32{}
	}
	return g.masks[row*g.cols+col]
}

func (g *ClusterGrid) setBit(col, row, i int) {
	lane, bit := i/32, uint(i%32)
	g.masks[row*g.cols+col][lane] |= 1 << bit
}

// Rebuild recomputes every tile's mask for the current frame: directional
// lights set their bit in every tile; point/spot lights project into NDC
// via viewProj and set their bit on any tile with at least one of its 4
// corners within the light's screen-space radius (§4.8).
func (g *ClusterGrid) Rebuild(lt *LightTable, viewProj *lin.M4, viewZOf func(lin.V3) float64) {
	for i := range g.masks {
		g.masks[i] = [4]uint32{}
	}
	fx := float64(g.Width) / 2
	for i := 0; i < lt.Count(); i++ {
		l := lt.lights[i]
		if !lt.used[i] {
			continue
		}
		if l.Directional {
			for row := 0; row < g.rows; row++ {
				for col := 0; col < g.cols; col++ {
					g.setBit(col, row, i)
				}
			}
			continue
		}
		clip := lin.V4{X: l.Position.X, Y: l.Position.Y, Z: l.Position.Z, W: 1}
		ndc := lin.V4{}
		ndc.MultvM(&clip, viewProj)
		if ndc.W < 1e-3 {
			continue
		}
		ndc.X, ndc.Y, ndc.Z = ndc.X/ndc.W, ndc.Y/ndc.W, ndc.Z/ndc.W
		if ndc.Z > 1 {
			continue
		}
		viewZ := viewZOf(l.Position)
		if viewZ >= 0 {
			continue
		}
		screenRadius := l.Radius * fx / -viewZ
		screenX := (ndc.X*0.5 + 0.5) * float64(g.Width)
		screenY := (1 - (ndc.Y*0.5 + 0.5)) * float64(g.Height)
		r2 := screenRadius * screenRadius
		for row := 0; row < g.rows; row++ {
			for col := 0; col < g.cols; col++ {
				corners := [4][2]float64{
					{float64(col * g.Tile), float64(row * g.Tile)},
					{float64((col + 1) * g.Tile), float64(row * g.Tile)},
					{float64(col * g.Tile), float64((row + 1) * g.Tile)},
					{float64((col + 1) * g.Tile), float64((row + 1) * g.Tile)},
				}
				for _, cr := range corners {
					dx, dy := cr[0]-screenX, cr[1]-screenY
					if dx*dx+dy*dy <= r2 {
						g.setBit(col, row, i)
						break
					}
				}
			}
		}
	}
}
