// Copyright © 2015-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// timing.go collects per-frame loop numbers: render loop is the ambient
// concern every frame goes through regardless of what the spec's
// Non-goals exclude. Kept from the teacher's timing.go, switched from
// fmt.Printf to log/slog to match the rest of the package's logging.

import (
	"log/slog"
	"time"
)

// Timing collects main processing loop numbers while the application
// loop is active. Each Engine.Tick adds one to Renders and stores that
// tick's dt in Update; the engine does not set Elapsed. The numbers
// accumulate until Zero is called.
//
// FPS = Renders/Elapsed. This is how many render requests were sent; the
// actual number of renders is likely capped at the monitor refresh rate.
type Timing struct {
	Elapsed time.Duration // Total loop time since last update.
	Update  time.Duration // Time used for previous state update.
	Renders int           // Render requests since the last Zero.
}

// Zero all time and counter values.
func (t *Timing) Zero() {
	t.Update = 0
	t.Elapsed = 0
	t.Renders = 0
}

// Dump logs the current update loop timing at debug severity.
func (t *Timing) Dump() {
	slog.Debug("frame timing", "elapsed_ms", t.Elapsed.Seconds()*1000, "update_ms", t.Update.Seconds()*1000, "renders", t.Renders)
}
