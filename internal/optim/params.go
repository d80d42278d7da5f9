package optim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/tankdrive/internal/config"
)

// Tunable lists the config fields a search may vary, as axis.field.
var tunable = map[string]func(*config.PID) *float64{
	"kp":          func(p *config.PID) *float64 { return &p.Kp },
	"ki":          func(p *config.PID) *float64 { return &p.Ki },
	"kd":          func(p *config.PID) *float64 { return &p.Kd },
	"slew":        func(p *config.PID) *float64 { return &p.Slew },
	"anti_windup": func(p *config.PID) *float64 { return &p.AntiWindup },
	"small_error": func(p *config.PID) *float64 { return &p.SmallError },
	"large_error": func(p *config.PID) *float64 { return &p.LargeError },
}

// Apply sets a gain such as "lateral.kp" on cfg.
func Apply(cfg *config.Config, name string, value float64) error {
	axis, field, ok := strings.Cut(name, ".")
	if !ok {
		return fmt.Errorf("unknown param: %s", name)
	}
	var pid *config.PID
	switch axis {
	case "lateral":
		pid = &cfg.Lateral
	case "angular":
		pid = &cfg.Angular
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	get, ok := tunable[field]
	if !ok {
		return fmt.Errorf("unknown param: %s", name)
	}
	*get(pid) = value
	return nil
}

// Params returns every name Apply accepts.
func Params() []string {
	var names []string
	for _, axis := range []string{"lateral", "angular"} {
		for field := range tunable {
			names = append(names, axis+"."+field)
		}
	}
	sort.Strings(names)
	return names
}
