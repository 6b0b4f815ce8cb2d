// internal/telemetry/types.go
package telemetry

import "time"

// Snapshot is one decoded telemetry frame.
// Produced only from a structurally valid packet; immutable once built.
// Optional fields are nil when the simulator did not emit the dataset.
type Snapshot struct {
	Source string

	FPS         *float64
	FrameTimeMS *float64

	AltitudeAGLFt *float64
	AltitudeMSLFt *float64

	CapturedAt time.Time
}

// LinkState classifies the health of the telemetry link.
type LinkState int

const (
	// LinkIdle means listening is disabled.
	LinkIdle LinkState = iota

	// LinkListening means the socket is open but no recent valid packet.
	LinkListening

	// LinkActive means a valid packet arrived within the active window.
	LinkActive

	// LinkMisconfigured means bind failed or every packet seen was invalid.
	LinkMisconfigured
)

func (s LinkState) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkListening:
		return "listening"
	case LinkActive:
		return "active"
	case LinkMisconfigured:
		return "misconfigured"
	default:
		return "unknown"
	}
}

// LinkStatus is the receiver's externally visible state.
// Mutated only by the Receiver; callers get copies.
type LinkStatus struct {
	State LinkState

	ListenHost string
	ListenPort int

	LastPacketAt      time.Time
	LastValidPacketAt time.Time

	PacketsPerSecond       float64
	TotalPackets           uint64
	InvalidPackets         uint64
	DatasetMismatchPackets uint64

	// Detail is a human-readable cause for non-active states.
	Detail string
}
