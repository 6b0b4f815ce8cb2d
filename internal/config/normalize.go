// internal/config/normalize.go
package config

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	g := &cfg.Governor

	// ------------------------------------------------------------
	// TIER THRESHOLDS
	// ------------------------------------------------------------

	// Ground ceiling never collapses below 100 ft, and the cruise floor
	// always sits at least 100 ft above it. Keeps the climb band
	// non-empty no matter what the file says.
	if g.Tiers.GroundMaxAGLFt < 100 {
		g.Tiers.GroundMaxAGLFt = 100
	}
	if g.Tiers.CruiseMinAGLFt < g.Tiers.GroundMaxAGLFt+100 {
		g.Tiers.CruiseMinAGLFt = g.Tiers.GroundMaxAGLFt + 100
	}

	// ------------------------------------------------------------
	// CLAMP BOUNDS
	// ------------------------------------------------------------

	if g.Tiers.ClampMin > g.Tiers.ClampMax {
		g.Tiers.ClampMin, g.Tiers.ClampMax = g.Tiers.ClampMax, g.Tiers.ClampMin
	}

	// ------------------------------------------------------------
	// PORTS
	// ------------------------------------------------------------

	g.Telemetry.ListenPort = clampPort(g.Telemetry.ListenPort)
	g.Command.Port = clampPort(g.Command.Port)

	// ------------------------------------------------------------
	// DEFAULTS
	// ------------------------------------------------------------

	if g.TickMs == 0 {
		g.TickMs = 1000
	}
	if g.Command.MinIntervalMs == 0 {
		g.Command.MinIntervalMs = 2000
	}
	if g.Log.Level == "" {
		g.Log.Level = "info"
	}
}

func clampPort(p int) int {
	if p < 1024 {
		return 1024
	}
	if p > 65535 {
		return 65535
	}
	return p
}
