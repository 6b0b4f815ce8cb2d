// internal/config/config.go
package config

type Config struct {
	Governor GovernorConfig `yaml:"governor"`
}

type GovernorConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Tiers     TierConfig      `yaml:"tiers"`
	Command   CommandConfig   `yaml:"command"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`

	// TickMs drives the orchestrator loop.
	TickMs int `yaml:"tick_ms"`
}

// ---- TELEMETRY LISTENER ----

type TelemetryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenHost string `yaml:"listen_host"`
	ListenPort int    `yaml:"listen_port"`
}

// ---- TIER POLICY ----

type TierConfig struct {
	GroundMaxAGLFt float64 `yaml:"ground_max_agl_ft"`
	CruiseMinAGLFt float64 `yaml:"cruise_min_agl_ft"`

	GroundLOD float64 `yaml:"ground_lod"`
	ClimbLOD  float64 `yaml:"climb_lod"`
	CruiseLOD float64 `yaml:"cruise_lod"`

	ClampMin float64 `yaml:"clamp_min"`
	ClampMax float64 `yaml:"clamp_max"`
}

// ---- COMMAND CHANNEL ----

type CommandConfig struct {
	Host          string  `yaml:"host"`
	Port          int     `yaml:"port"`
	MinIntervalMs int     `yaml:"min_interval_ms"`
	MinDelta      float64 `yaml:"min_delta"`
}

// ---- FILE BRIDGE ----

type BridgeConfig struct {
	// Dir is the shared directory for the file fallback channel.
	// Empty selects the platform application-support default.
	Dir string `yaml:"dir"`
}

// ---- OBSERVABILITY ----

type HTTPConfig struct {
	// Port serves /metrics and /status. 0 disables the server.
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}
