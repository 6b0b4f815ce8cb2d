// internal/status/snapshot.go
package status

import "time"

// Snapshot represents exactly what the governor exposes upstream.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	At time.Time `json:"at"`

	// Telemetry link
	LinkState              string  `json:"link_state"`
	LinkDetail             string  `json:"link_detail,omitempty"`
	ListenEndpoint         string  `json:"listen_endpoint"`
	PacketsPerSecond       float64 `json:"packets_per_second"`
	TotalPackets           uint64  `json:"total_packets"`
	InvalidPackets         uint64  `json:"invalid_packets"`
	DatasetMismatchPackets uint64  `json:"dataset_mismatch_packets"`

	// Latest frame
	FPS         *float64 `json:"fps,omitempty"`
	FrameTimeMS *float64 `json:"frame_time_ms,omitempty"`

	// Decision
	Tier           string   `json:"tier,omitempty"`
	ResolvedAGLFt  *float64 `json:"resolved_agl_ft,omitempty"`
	AltitudeSource string   `json:"altitude_source,omitempty"`
	TargetLOD      *float64 `json:"target_lod,omitempty"`

	// Command bridge
	BridgeStatus      string   `json:"bridge_status"`
	UsingFileFallback bool     `json:"using_file_fallback"`
	LastAckAppliedLOD *float64 `json:"last_ack_applied_lod,omitempty"`
	LastSendError     string   `json:"last_send_error,omitempty"`

	// Remote side, via the shared status file
	RemoteEnabled    *bool    `json:"remote_enabled,omitempty"`
	RemoteCurrentLOD *float64 `json:"remote_current_lod,omitempty"`
	RemoteTier       string   `json:"remote_tier,omitempty"`
}
