// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// input.go exposes current user input to the application, refreshed once
// per update tick. Kept from the teacher's input.go; convertInput's
// device.Pressed dependency is dropped since polling an OS window is an
// external collaborator per the input-event-source non-goal — callers
// fill Input themselves (from whatever device layer they host) and pass
// it to Poll.

// Input communicates current user input to the application: cursor
// location, pressed keys/buttons, modifiers, and timing. The down map's
// values are down-duration in update ticks; a negative value marks a
// release, so total down duration is down-ticks minus Released.
type Input struct {
	Mx, My  int            // current cursor location.
	Down    map[string]int // keys/buttons with down-duration ticks.
	Focus   bool           // true if the window is focused.
	Resized bool           // true if the window was resized or moved.
	Scroll  int            // scroll amount, if any.
	Dt      float64        // delta time used for this update.
	Gt      float64        // game time: total update ticks.
}

// Released marks a key/button as released in Input.Down.
const Released = -1

// NewInput returns an Input ready for repeated Poll calls.
func NewInput() *Input {
	return &Input{Down: map[string]int{}}
}

// Poll replaces the current frame's raw input with next, records dt in
// Dt, adds one tick to the game time Gt, and clears+refills Down so the application can
// freely mutate the map it's given each tick.
func (in *Input) Poll(next Input, dt float64) {
	in.Mx, in.My = next.Mx, next.My
	in.Focus = next.Focus
	in.Resized = next.Resized
	in.Scroll = next.Scroll
	in.Dt = dt
	in.Gt += 1

	for key := range in.Down {
		delete(in.Down, key)
	}
	for key, val := range next.Down {
		in.Down[key] = val
	}
}
