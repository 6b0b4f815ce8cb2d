// internal/bridge/bridge.go
package bridge

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tamzrod/xplane-lod-governor/internal/metrics"
	"github.com/tamzrod/xplane-lod-governor/internal/policy"
)

// Command protocol (ASCII over UDP, newline-terminated).
const (
	cmdEnable  = "ENABLE"
	cmdDisable = "DISABLE"
	cmdPing    = "PING"
	cmdSetLOD  = "SET_LOD"
)

const (
	// ackTimeout bounds the wait for a response datagram.
	ackTimeout = 350 * time.Millisecond

	// Floors for the caller-supplied throttle knobs.
	minIntervalFloor = 100 * time.Millisecond
	minDeltaFloor    = 0.005

	// noAckThreshold: single misses are tolerated to avoid flapping.
	noAckThreshold = 2

	// ackRecentWindow debounces a missed heartbeat in the status text.
	ackRecentWindow = 20 * time.Second
)

// Bridge owns the outbound command channels and the session state.
// One command is in flight at a time; the 350 ms ACK wait blocks the
// caller. Not safe for concurrent use - single owner, single caller.
type Bridge struct {
	dir  string
	dial dialFunc
	st   State
}

// New creates a bridge writing its file channel under dir.
func New(dir string) *Bridge {
	return &Bridge{dir: dir, dial: dialUDP}
}

// State returns a copy of the current session state.
func (b *Bridge) State() State { return b.st }

// Dir returns the file channel directory.
func (b *Bridge) Dir() string { return b.dir }

// Send issues a throttled SET_LOD. The session is transparently enabled
// first. Suppression (interval or delta) is not an error: sent=false,
// err=nil.
func (b *Bridge) Send(
	value float64,
	tier policy.Tier,
	host string, port int,
	now time.Time,
	minInterval time.Duration,
	minDelta float64,
) (sent bool, status string, err error) {
	if err := b.ensureEnabled(host, port, now); err != nil {
		return false, b.StatusText(now), err
	}

	interval := minInterval
	if interval < minIntervalFloor {
		interval = minIntervalFloor
	}
	if !b.st.LastSentAt.IsZero() && now.Sub(b.st.LastSentAt) < interval {
		metrics.CommandsSuppressed.WithLabelValues("interval").Inc()
		return false, b.StatusText(now), nil
	}

	delta := minDelta
	if delta < minDeltaFloor {
		delta = minDeltaFloor
	}
	if b.st.LastSentLOD != nil && math.Abs(*b.st.LastSentLOD-value) < delta {
		metrics.CommandsSuppressed.WithLabelValues("delta").Inc()
		return false, b.StatusText(now), nil
	}

	if _, err := b.sendCommand(cmdSetLOD, value, host, port, now); err != nil {
		return false, b.StatusText(now), err
	}

	t, v := tier, value
	b.st.LastSentTier = &t
	b.st.LastSentLOD = &v
	b.st.LastSentAt = now
	b.st.LastSuccessfulSendAt = now
	b.st.LastError = ""
	b.st.DisableSent = false

	return true, b.StatusText(now), nil
}

// SendDisable closes the session. Idempotent: a second call before any
// further send is a no-op.
func (b *Bridge) SendDisable(host string, port int, now time.Time) error {
	if b.st.DisableSent {
		return nil
	}

	if _, err := b.sendCommand(cmdDisable, 0, host, port, now); err != nil {
		return err
	}

	b.st.DisableSent = true
	b.st.EnabledCommandSent = false
	b.st.LastSentTier = nil
	b.st.LastSentLOD = nil
	b.st.Ack = AckDisabled
	return nil
}

// Ping issues a connectivity probe, enabling the session first if needed.
func (b *Bridge) Ping(host string, port int, now time.Time) (string, error) {
	if err := b.ensureEnabled(host, port, now); err != nil {
		return b.StatusText(now), err
	}
	_, err := b.sendCommand(cmdPing, 0, host, port, now)
	return b.StatusText(now), err
}

// SetPaused parks or unparks the bridge without touching the wire.
func (b *Bridge) SetPaused(paused bool) {
	if paused {
		b.st.Ack = AckPaused
		return
	}
	if b.st.Ack == AckPaused {
		b.st.Ack = AckConnected
	}
}

// StatusText derives the display label for the current state.
func (b *Bridge) StatusText(now time.Time) string {
	if b.st.UsingFileFallback && b.st.Ack != AckDisabled && b.st.Ack != AckPaused {
		return "Connected via file bridge"
	}

	switch b.st.Ack {
	case AckOK:
		return "Connected (ACK)"
	case AckConnected:
		return "Connected"
	case AckNone:
		// One missed heartbeat should not flap the label.
		if !b.st.LastAckAt.IsZero() && now.Sub(b.st.LastAckAt) <= ackRecentWindow {
			return "Connected"
		}
		return "No ACK from simulator"
	case AckPaused:
		return "Paused"
	case AckDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// ---- session ----

// ensureEnabled issues ENABLE once per session, latching on success.
func (b *Bridge) ensureEnabled(host string, port int, now time.Time) error {
	if b.st.EnabledCommandSent {
		return nil
	}

	if _, err := b.sendCommand(cmdEnable, 0, host, port, now); err != nil {
		return fmt.Errorf("enable session: %w", err)
	}

	b.st.EnabledCommandSent = true
	b.st.DisableSent = false
	return nil
}

// ---- dual-channel transmission ----

// sendCommand delivers one command on both channels and applies the
// outcome decision table:
//
//	file fail + udp fail  -> NoAck, combined error
//	response arrived      -> parse ACK/PONG/ERR/other
//	no response, udp dead -> file bridge carried it: Connected
//	no response, udp ok   -> counted miss, NoAck only on repeat
func (b *Bridge) sendCommand(verb string, value float64, host string, port int, now time.Time) (string, error) {
	line := verb + "\n"
	if verb == cmdSetLOD {
		line = fmt.Sprintf("%s %.3f\n", cmdSetLOD, value)
	}

	// File channel first: even a command that later gets an ACK leaves
	// the shared files consistent for a remote that reads them.
	fileErr := writeFileChannel(b.dir, verb, value, now)

	var udpErr error
	var resp string

	conn, err := b.dial(host, port)
	if err != nil {
		udpErr = fmt.Errorf("udp dial %s:%d: %w", host, port, err)
	} else {
		if _, err := conn.Write([]byte(line)); err != nil {
			udpErr = fmt.Errorf("udp send %s: %w", verb, err)
		} else {
			resp = awaitResponse(conn)
		}
		_ = conn.Close()
	}

	// Fallback counts only when UDP itself failed and the file write
	// landed - a mere missing ACK is not fallback.
	fallbackUsed := udpErr != nil && fileErr == nil

	switch {
	case udpErr != nil && fileErr != nil:
		b.st.Ack = AckNone
		b.st.UsingFileFallback = false
		b.st.NoAckCounter++
		combined := fmt.Errorf("both channels failed: %v; %v", udpErr, fileErr)
		b.st.LastError = combined.Error()
		return "", combined

	case resp != "":
		b.st.UsingFileFallback = false
		if err := b.applyResponse(verb, resp, now); err != nil {
			return resp, err
		}
		metrics.CommandsSent.WithLabelValues(verb).Inc()
		return resp, nil

	case fallbackUsed:
		b.st.UsingFileFallback = true
		b.st.Ack = AckConnected
		b.st.LastAckMessage = "No ACK (file bridge)"
		metrics.FileFallbackUsed.Inc()
		metrics.CommandsSent.WithLabelValues(verb).Inc()
		return "", nil

	default:
		// UDP send succeeded, nothing came back.
		b.st.NoAckCounter++
		metrics.AckMissed.Inc()
		if b.st.NoAckCounter >= noAckThreshold {
			b.st.Ack = AckNone
		} else {
			b.st.Ack = AckConnected
		}
		metrics.CommandsSent.WithLabelValues(verb).Inc()
		return "", nil
	}
}

// applyResponse folds one response datagram into the ack state machine.
func (b *Bridge) applyResponse(verb, resp string, now time.Time) error {
	switch {
	case strings.HasPrefix(resp, "ACK"):
		b.st.Ack = AckOK
		b.st.NoAckCounter = 0
		b.st.LastAckAt = now
		b.st.LastAckMessage = resp
		metrics.AckOK.Inc()

		// "ACK SET_LOD 4.500" echoes the applied value.
		if verb == cmdSetLOD {
			fields := strings.Fields(resp)
			if len(fields) > 1 {
				if f, err := strconv.ParseFloat(fields[len(fields)-1], 64); err == nil {
					b.st.LastAckAppliedLOD = &f
				}
			}
		}
		return nil

	case strings.HasPrefix(resp, "PONG"):
		b.st.Ack = AckOK
		b.st.NoAckCounter = 0
		b.st.LastAckAt = now
		b.st.LastAckMessage = resp
		metrics.AckOK.Inc()
		return nil

	case strings.HasPrefix(resp, "ERR"):
		b.st.Ack = AckNone
		b.st.LastError = resp
		return fmt.Errorf("simulator rejected %s: %s", verb, resp)

	default:
		// Something answered, just not in our protocol's vocabulary.
		b.st.Ack = AckConnected
		b.st.LastAckMessage = resp
		return nil
	}
}
