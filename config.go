// Copyright © 2022-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// config.go reduces the NewEngine API footprint using functional options.
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis
//      https://commandcenter.blogspot.ca/2014/01/self-referential-functions-and-design.html
//
// Kept verbatim from the teacher's config.go for window/display attributes;
// extended with a Settings struct for the §6 persistent state (music
// volume, fullscreen, rng seed) round-tripped as YAML via gopkg.in/yaml.v3,
// the one teacher dependency with no other home in this package.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config contains configuration attributes that can be set by the game
// before running the engine game loop.
type Config struct {
	title    string // window title
	windowed bool   // true to run in windowed mode.
	x, y     int32  // display top left corner in pixels
	w, h     int32  // display width and height in pixels

	// display default background color
	r, g, b, a float32 // red, green, blue, alpha: range 0-1
}

// configDefaults provides reasonable defaults so the game
// runs even if no configuration attributes are set.
var configDefaults = Config{
	title:    "Ember",
	windowed: false,
	x:        0,
	y:        0,
	w:        800,
	h:        450,
	r:        0.0,
	g:        0.0,
	b:        0.0,
	a:        1.0,
}

// Attr defines optional application attributes that can be used to
// configure the engine.
//
//	eng, err := ember.NewEngine(app,
//	   ember.Title("Ember"),
//	   ember.Size(200, 200, 900, 400),
//	   ember.Background(0.45, 0.45, 0.45, 1.0),
//	)
type Attr func(*Config)

// Title sets the window title when using windowed mode.
func Title(t string) Attr {
	return func(c *Config) { c.title = t }
}

// Size sets the window top left corner location and size in pixels when
// using windowed mode.
func Size(x, y, w, h int32) Attr {
	return func(c *Config) {
		if x >= 0 && x < 10_000 {
			c.x = x
		}
		if y >= 0 && y < 10_000 {
			c.y = y
		}
		if w > 10 && w < 10_000 {
			c.w = w
		}
		if h > 10 && h < 10_000 {
			c.h = h
		}
	}
}

// Windowed mode instead of fullscreen.
func Windowed() Attr {
	return func(c *Config) { c.windowed = true }
}

// Background display clear color.
func Background(r, g, b, a float32) Attr {
	return func(c *Config) { c.r, c.g, c.b, c.a = r, g, b, a }
}

// Config
// =============================================================================
// Settings is the §6 persistent state: saved between runs, independent of
// the per-launch Config/Attr options above.

// Settings is round-tripped to a YAML file at a path the caller
// supplies. A load failure falls back to DefaultSettings per §7.
type Settings struct {
	MusicVolume float64 `yaml:"music_volume"`
	Fullscreen  bool    `yaml:"fullscreen"`
	RNGSeed     int64   `yaml:"rng_seed"`
}

// DefaultSettings are used whenever no settings file exists yet, or it
// fails to parse.
var DefaultSettings = Settings{MusicVolume: 0.8, Fullscreen: false, RNGSeed: 1}

// LoadSettings reads and parses a YAML settings file at path. On any
// error it returns DefaultSettings and the error, so callers can log and
// continue per §7's "Settings load failures fall back to baked defaults."
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettings, fmt.Errorf("config.LoadSettings: %w", err)
	}
	s := DefaultSettings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultSettings, fmt.Errorf("config.LoadSettings: %w", err)
	}
	return s, nil
}

// SaveSettings writes s to path as YAML, creating or truncating the file.
func SaveSettings(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("config.SaveSettings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config.SaveSettings: %w", err)
	}
	return nil
}
