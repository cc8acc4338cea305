// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

// Command ember hosts a game built on the ember engine. It parses the
// launch flags named in the engine's external-interface contract and
// starts the update loop; the actual window/render backend is supplied
// by the hosting application, not by this binary.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/emberforge/ember"
)

func main() {
	var (
		autopilot  = flag.Bool("autopilot", false, "run with AI-controlled input instead of a human player")
		fullscreen = flag.Bool("fullscreen", false, "start in fullscreen instead of windowed mode")
		exitAfter  = flag.Int("exitafter", 0, "exit automatically after N update ticks (0 disables)")
		restart    = flag.Bool("restart", false, "reload the last saved scene on startup")
		aoe        = flag.Bool("aoe", false, "enable the area-of-effect debug overlay")
		server     = flag.String("server", "", "connect to a game server at this address instead of running standalone")
	)
	flag.BoolVar(autopilot, "A", false, "shorthand for -autopilot")
	flag.BoolVar(fullscreen, "F", false, "shorthand for -fullscreen")
	flag.IntVar(exitAfter, "e", 0, "shorthand for -exitafter")
	flag.BoolVar(restart, "R", false, "shorthand for -restart")
	flag.BoolVar(aoe, "E", false, "shorthand for -aoe")
	flag.StringVar(server, "S", "", "shorthand for -server")
	flag.Parse()

	settingsPath := os.Getenv("EMBER_SETTINGS")
	if settingsPath == "" {
		settingsPath = "ember-settings.yaml"
	}
	settings, err := ember.LoadSettings(settingsPath)
	if err != nil {
		slog.Warn("falling back to default settings", "path", settingsPath, "err", err)
	}
	if *fullscreen {
		settings.Fullscreen = true
	}

	game := &launcher{
		autopilot: *autopilot,
		exitAfter: *exitAfter,
		restart:   *restart,
		aoe:       *aoe,
		server:    *server,
		settings:  settings,
	}

	opts := []ember.Attr{ember.Title("Ember")}
	if !settings.Fullscreen {
		opts = append(opts, ember.Windowed())
	}
	eng, err := ember.NewEngine(game, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ember: failed to start:", err)
		os.Exit(1)
	}

	const tick = time.Second / 60
	for ticks := 1; !eng.Stopped(); ticks++ {
		eng.Tick(tick)
		if game.exitAfter > 0 && ticks >= game.exitAfter {
			eng.Stop()
		}
	}
}

// launcher is the minimal ember.App that wires CLI flags into engine
// startup; a real game replaces this with its own scene/content setup.
type launcher struct {
	autopilot bool
	exitAfter int
	restart   bool
	aoe       bool
	server    string
	settings  ember.Settings
}

func (l *launcher) Create(eng *ember.Engine) {
	slog.Info("ember starting",
		"autopilot", l.autopilot,
		"restart", l.restart,
		"aoe_overlay", l.aoe,
		"server", l.server,
		"music_volume", l.settings.MusicVolume,
	)
}

func (l *launcher) Update(eng *ember.Engine, dt time.Duration) {}
