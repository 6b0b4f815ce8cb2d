// internal/bridge/types.go
package bridge

import (
	"time"

	"github.com/tamzrod/xplane-lod-governor/internal/policy"
)

// AckState classifies the bridge's view of the remote companion script.
type AckState int

const (
	// AckConnected: commands are going out, acknowledgment uncertain.
	AckConnected AckState = iota

	// AckNone: repeated sends with no acknowledgment on any channel.
	AckNone

	// AckOK: the last round trip was explicitly acknowledged.
	AckOK

	// AckPaused: the governor parked the bridge without disabling it.
	AckPaused

	// AckDisabled: DISABLE was delivered; session is closed.
	AckDisabled
)

func (s AckState) String() string {
	switch s {
	case AckConnected:
		return "connected"
	case AckNone:
		return "no_ack"
	case AckOK:
		return "ack_ok"
	case AckPaused:
		return "paused"
	case AckDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// State is the bridge's session and acknowledgment state.
// Owned exclusively by the Bridge; every transition happens inside its
// send path. Callers get copies.
type State struct {
	Ack AckState

	LastSentTier *policy.Tier
	LastSentLOD  *float64

	LastSentAt           time.Time
	LastSuccessfulSendAt time.Time

	LastError string

	UsingFileFallback  bool
	EnabledCommandSent bool
	DisableSent        bool

	NoAckCounter int

	LastAckAt         time.Time
	LastAckMessage    string
	LastAckAppliedLOD *float64
}

// FileStatus is the remote side's view, parsed from the shared status
// file. Read-only; rebuilt from scratch on every read.
type FileStatus struct {
	Enabled    *bool
	CurrentLOD *float64
	TargetLOD  *float64
	Tier       string

	LastUpdateAt   time.Time
	FileModifiedAt time.Time
}
