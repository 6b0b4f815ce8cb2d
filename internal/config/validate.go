// internal/config/validate.go
package config

import (
	"fmt"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	g := cfg.Governor

	// ------------------------------------------------------------
	// TELEMETRY LISTENER
	// ------------------------------------------------------------

	if g.Telemetry.ListenPort < 0 || g.Telemetry.ListenPort > 65535 {
		return fmt.Errorf(
			"telemetry: listen_port %d out of range",
			g.Telemetry.ListenPort,
		)
	}

	// ------------------------------------------------------------
	// TIER POLICY
	// ------------------------------------------------------------

	if g.Tiers.GroundMaxAGLFt < 0 {
		return fmt.Errorf(
			"tiers: ground_max_agl_ft must be >= 0, got %v",
			g.Tiers.GroundMaxAGLFt,
		)
	}
	if g.Tiers.CruiseMinAGLFt < 0 {
		return fmt.Errorf(
			"tiers: cruise_min_agl_ft must be >= 0, got %v",
			g.Tiers.CruiseMinAGLFt,
		)
	}

	for _, lod := range []struct {
		name string
		v    float64
	}{
		{"ground_lod", g.Tiers.GroundLOD},
		{"climb_lod", g.Tiers.ClimbLOD},
		{"cruise_lod", g.Tiers.CruiseLOD},
	} {
		if lod.v < 0 {
			return fmt.Errorf("tiers: %s must be >= 0, got %v", lod.name, lod.v)
		}
	}

	// ------------------------------------------------------------
	// COMMAND CHANNEL
	// ------------------------------------------------------------

	if g.Command.Host == "" {
		return fmt.Errorf("command: host required")
	}
	if g.Command.Port < 0 || g.Command.Port > 65535 {
		return fmt.Errorf("command: port %d out of range", g.Command.Port)
	}
	if g.Command.MinDelta < 0 {
		return fmt.Errorf("command: min_delta must be >= 0, got %v", g.Command.MinDelta)
	}

	// ------------------------------------------------------------
	// ORCHESTRATOR
	// ------------------------------------------------------------

	if g.TickMs < 0 {
		return fmt.Errorf("tick_ms must be >= 0, got %d", g.TickMs)
	}

	return nil
}
