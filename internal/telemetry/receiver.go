// internal/telemetry/receiver.go
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/tamzrod/xplane-lod-governor/internal/metrics"
)

// Timing windows. Protocol-locked, not configurable.
const (
	// activeWindow: a valid packet this recent means the link is Active.
	activeWindow = 4 * time.Second

	// staleAfter: telemetry older than this is withheld from callers.
	staleAfter = 5 * time.Second

	// rateWindow: trailing window for the packets-per-second figure.
	rateWindow = time.Second

	// readTimeout paces the blocking read so shutdown is prompt.
	readTimeout = 250 * time.Millisecond

	// drainTimeout bounds each follow-up read inside one readiness burst.
	drainTimeout = time.Millisecond
)

const sourceLabel = "X-Plane UDP"

// packetConn is the exact contract the read loop uses.
// *net.UDPConn satisfies it; tests substitute a fake.
type packetConn interface {
	ReadFrom(p []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// listenFunc opens a bound, reuse-enabled UDP socket.
type listenFunc func(host string, port int) (packetConn, error)

// Receiver owns the telemetry socket and all link-health state.
// All mutable state is guarded by one mutex; Configure, Stop, Snapshot
// and the read loop serialize on it.
type Receiver struct {
	mu     sync.Mutex
	listen listenFunc

	enabled bool
	host    string
	port    int

	conn      packetConn
	loopStop  context.CancelFunc
	setupFail string

	latest       *Snapshot
	lastPacketAt time.Time
	lastValidAt  time.Time

	totalPackets    uint64
	invalidPackets  uint64
	mismatchPackets uint64
	lastDetail      string

	// arrivals holds packet timestamps inside the trailing rate window.
	arrivals []time.Time
	pps      float64
}

// NewReceiver creates a stopped receiver. Call Configure to start it.
func NewReceiver() *Receiver {
	return &Receiver{listen: listenUDP}
}

// Configure applies listener settings, restarting the socket when the
// normalized endpoint changed and tearing everything down when disabled.
func (r *Receiver) Configure(enabled bool, host string, port int) {
	host = NormalizeHost(host)
	port = clampPort(port)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !enabled {
		r.enabled = false
		r.host = host
		r.port = port
		r.teardownLocked()
		r.resetLocked("listening disabled")
		return
	}

	sameEndpoint := r.host == host && r.port == port
	r.enabled = true
	r.host = host
	r.port = port

	if r.conn != nil && sameEndpoint {
		return
	}

	r.teardownLocked()
	r.openLocked()
}

// Stop closes the socket and cancels the read loop.
// With resetState, counters and cached telemetry are zeroed too.
func (r *Receiver) Stop(resetState bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.enabled = false
	r.teardownLocked()
	if resetState {
		r.resetLocked("listening disabled")
	}
}

// Snapshot advances the rate window and returns the current telemetry
// (nil when stale) plus the classified link status.
func (r *Receiver) Snapshot(now time.Time) (*Snapshot, LinkStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advanceWindowLocked(now)

	st := LinkStatus{
		ListenHost:             r.host,
		ListenPort:             r.port,
		LastPacketAt:           r.lastPacketAt,
		LastValidPacketAt:      r.lastValidAt,
		PacketsPerSecond:       r.pps,
		TotalPackets:           r.totalPackets,
		InvalidPackets:         r.invalidPackets,
		DatasetMismatchPackets: r.mismatchPackets,
	}

	// Classification priority is fixed; first match wins.
	switch {
	case !r.enabled:
		st.State = LinkIdle
		st.Detail = r.lastDetail

	case r.conn == nil:
		st.State = LinkMisconfigured
		st.Detail = r.setupFail

	case !r.lastValidAt.IsZero() && now.Sub(r.lastValidAt) <= activeWindow:
		st.State = LinkActive

	case r.totalPackets == 0:
		st.State = LinkListening
		st.Detail = "no packets received yet - confirm endpoint configuration"

	case r.lastValidAt.IsZero():
		st.State = LinkMisconfigured
		st.Detail = r.lastDetail

	default:
		st.State = LinkListening
		st.Detail = "no recent valid packets"
	}

	var snap *Snapshot
	if r.latest != nil && now.Sub(r.lastValidAt) <= staleAfter {
		snap = r.latest
	}

	return snap, st
}

// ---- ingest path ----

// ingest processes one datagram. One now per readiness burst.
func (r *Receiver) ingest(data []byte, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalPackets++
	r.lastPacketAt = now
	r.arrivals = append(r.arrivals, now)
	metrics.PacketsReceived.Inc()

	snap, perr := ParsePacket(data, sourceLabel, now)
	if perr != nil {
		r.invalidPackets++
		metrics.PacketsInvalid.Inc()
		if perr.Kind == FailureDatasetMismatch {
			r.mismatchPackets++
			metrics.PacketsDatasetMismatch.Inc()
		}
		r.lastDetail = perr.Detail
		return
	}

	r.latest = snap
	r.lastValidAt = now
}

func (r *Receiver) advanceWindowLocked(now time.Time) {
	cutoff := now.Add(-rateWindow)
	keep := r.arrivals[:0]
	for _, t := range r.arrivals {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	r.arrivals = keep
	r.pps = float64(len(r.arrivals))
	metrics.PacketsPerSecond.Set(r.pps)
}

// ---- socket lifecycle (mu held) ----

func (r *Receiver) openLocked() {
	conn, err := r.listen(r.host, r.port)
	if err != nil {
		r.conn = nil
		r.setupFail = describeBindError(r.host, r.port, err)
		return
	}

	r.conn = conn
	r.setupFail = ""

	ctx, cancel := context.WithCancel(context.Background())
	r.loopStop = cancel
	go r.readLoop(ctx, conn)
}

func (r *Receiver) teardownLocked() {
	if r.loopStop != nil {
		r.loopStop()
		r.loopStop = nil
	}
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}

func (r *Receiver) resetLocked(reason string) {
	r.latest = nil
	r.lastPacketAt = time.Time{}
	r.lastValidAt = time.Time{}
	r.totalPackets = 0
	r.invalidPackets = 0
	r.mismatchPackets = 0
	r.arrivals = nil
	r.pps = 0
	r.lastDetail = reason
	r.setupFail = ""
}

// ---- read loop ----

// readLoop blocks until readable or timeout, then drains every datagram
// already queued. One timestamp per burst, one ingest per datagram.
func (r *Receiver) readLoop(ctx context.Context, conn packetConn) {
	buf := make([]byte, 16*1024)

	for ctx.Err() == nil {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if r.readFailed(err) {
				return
			}
			continue
		}

		now := time.Now()
		r.ingest(buf[:n], now)

		// Drain the rest of the burst without re-stamping.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(drainTimeout))
			n, _, err = conn.ReadFrom(buf)
			if err != nil {
				if r.readFailed(err) {
					return
				}
				break
			}
			r.ingest(buf[:n], now)
		}
	}
}

// readFailed classifies a read error. Returns true when the loop must exit.
func (r *Receiver) readFailed(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return false
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}

	r.mu.Lock()
	r.lastDetail = fmt.Sprintf("socket read error: %v", err)
	r.mu.Unlock()
	return false
}

// ---- endpoint normalization ----

// NormalizeHost maps the config aliases onto concrete bind addresses.
// Anything unrecognized passes through literally.
func NormalizeHost(host string) string {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "", "localhost":
		return "127.0.0.1"
	case "0.0.0.0", "*", "any", "all":
		return "0.0.0.0"
	default:
		return strings.TrimSpace(host)
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

// ---- default socket factory ----

// listenUDP binds a reuse-enabled UDP socket.
// Reads are paced by deadlines rather than a non-blocking fd, which is
// the same drain-until-would-block shape under Go's netpoller.
func listenUDP(host string, port int) (packetConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var serr error
			err := c.Control(func(fd uintptr) {
				serr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return serr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}
