// Copyright © 2015-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// state.go exposes the engine state needed by applications, kept
// verbatim in shape from the teacher's state.go.

// State communicates current engine-wide variable settings, refreshed
// each update and provided to the application.
type State struct {
	X, Y, W, H int     // window lower left corner and size in pixels.
	R, G, B, A float32 // background clear color.
	Cursor     bool    // true when the cursor is visible.
	CullBacks  bool    // true to enable backface culling.
	Blend      bool    // true for texture blending.
	FullScreen bool    // true when the window is full screen.
	Mute       bool    // true when audio is muted.
}

// Screen returns the current window dimensions.
func (s *State) Screen() (x, y, w, h int) { return s.X, s.Y, s.W, s.H }

func (s *State) setScreen(x, y, w, h int)    { s.X, s.Y, s.W, s.H = x, y, w, h }
func (s *State) setColor(r, g, b, a float32) { s.R, s.G, s.B, s.A = r, g, b, a }
