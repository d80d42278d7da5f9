package config

import (
	"sort"
	"time"
)

// Presets are named whole-robot configurations. "competition" reproduces
// the match robot as built: no tracking wheels and no inertial sensor.
var Presets = map[string]func() *Config{
	"competition": DefaultConfig,
	"imu": func() *Config {
		cfg := DefaultConfig()
		cfg.Odometry.HeadingTrust = 0.9
		return cfg
	},
	"gentle": func() *Config {
		cfg := DefaultConfig()
		cfg.Lateral.Slew = 8
		cfg.Angular.Slew = 8
		cfg.Teleop.Curve = 1.019
		cfg.Teleop.MinOutput = 10
		return cfg
	},
	"precise": func() *Config {
		cfg := DefaultConfig()
		cfg.Odometry.HeadingTrust = 0.9
		cfg.Lateral.SmallError = 0.5
		cfg.Lateral.SmallErrorTimeout = 150 * time.Millisecond
		cfg.Angular.SmallError = 0.5
		cfg.Angular.SmallErrorTimeout = 150 * time.Millisecond
		cfg.Motion.DefaultTimeout = 6 * time.Second
		return cfg
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
