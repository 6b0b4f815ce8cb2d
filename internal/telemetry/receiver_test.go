// internal/telemetry/receiver_test.go
package telemetry

import (
	"net"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fake socket ----

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// fakeConn never delivers data; the tests feed the receiver through
// ingest with explicit timestamps instead.
type fakeConn struct {
	closed atomic.Bool
}

func (f *fakeConn) ReadFrom(p []byte) (int, net.Addr, error) {
	if f.closed.Load() {
		return 0, nil, net.ErrClosed
	}
	time.Sleep(5 * time.Millisecond)
	return 0, nil, timeoutErr{}
}

func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.closed.Store(true)
	return nil
}

func newFakeReceiver() (*Receiver, *atomic.Int32) {
	r := NewReceiver()
	listens := &atomic.Int32{}
	r.listen = func(host string, port int) (packetConn, error) {
		listens.Add(1)
		return &fakeConn{}, nil
	}
	return r, listens
}

func validPacket() []byte {
	return buildDATA(rec{idx: 20, vals: [8]float32{0, 0, 5000, 4000, 0, 0, 0, 0}})
}

// ---- tests ----

func TestReceiver_LinkStateLifecycle(t *testing.T) {
	r, _ := newFakeReceiver()
	defer r.Stop(false)

	t0 := time.Unix(2000, 0)

	// Fresh receiver: disabled.
	_, st := r.Snapshot(t0)
	assert.Equal(t, LinkIdle, st.State)

	// Enabled, zero packets.
	r.Configure(true, "", 49005)
	_, st = r.Snapshot(t0)
	assert.Equal(t, LinkListening, st.State)
	assert.Contains(t, st.Detail, "confirm endpoint configuration")

	// Valid packet: active, telemetry exposed.
	t1 := t0.Add(time.Second)
	r.ingest(validPacket(), t1)

	snap, st := r.Snapshot(t1)
	assert.Equal(t, LinkActive, st.State)
	require.NotNil(t, snap)
	assert.Equal(t, 4000.0, *snap.AltitudeAGLFt)

	// 4.5s of silence: listening again, telemetry still fresh enough.
	snap, st = r.Snapshot(t1.Add(4500 * time.Millisecond))
	assert.Equal(t, LinkListening, st.State)
	assert.Equal(t, "no recent valid packets", st.Detail)
	assert.NotNil(t, snap)

	// Past the staleness window: telemetry withheld, counters retained.
	snap, st = r.Snapshot(t1.Add(6 * time.Second))
	assert.Nil(t, snap)
	assert.Equal(t, uint64(1), st.TotalPackets)
}

func TestReceiver_MisconfiguredOnBindFailure(t *testing.T) {
	r := NewReceiver()
	r.listen = func(host string, port int) (packetConn, error) {
		return nil, syscall.EADDRINUSE
	}

	r.Configure(true, "", 49005)

	_, st := r.Snapshot(time.Unix(2000, 0))
	assert.Equal(t, LinkMisconfigured, st.State)
	assert.Contains(t, st.Detail, "already in use")
}

func TestReceiver_MisconfiguredOnAllInvalidHistory(t *testing.T) {
	r, _ := newFakeReceiver()
	defer r.Stop(false)
	r.Configure(true, "", 49005)

	t0 := time.Unix(2000, 0)
	r.ingest([]byte("BECN\x00junk"), t0)
	r.ingest([]byte("BECN\x00junk"), t0)

	_, st := r.Snapshot(t0)
	assert.Equal(t, LinkMisconfigured, st.State)
	assert.Contains(t, st.Detail, "not X-Plane DATA packets")
	assert.Equal(t, uint64(2), st.TotalPackets)
	assert.Equal(t, uint64(2), st.InvalidPackets)
}

func TestReceiver_InvalidPacketKeepsLastValidTimestamp(t *testing.T) {
	r, _ := newFakeReceiver()
	defer r.Stop(false)
	r.Configure(true, "", 49005)

	t0 := time.Unix(2000, 0)
	r.ingest(validPacket(), t0)
	r.ingest([]byte("BECN\x00junk"), t0.Add(time.Second))

	_, st := r.Snapshot(t0.Add(time.Second))
	assert.Equal(t, t0, st.LastValidPacketAt)
	assert.Equal(t, LinkActive, st.State)
}

func TestReceiver_DatasetMismatchCountedSeparately(t *testing.T) {
	r, _ := newFakeReceiver()
	defer r.Stop(false)
	r.Configure(true, "", 49005)

	t0 := time.Unix(2000, 0)
	pkt := buildDATA(rec{idx: 5, vals: [8]float32{1, 2, 3, 4, 5, 6, 7, 8}})
	r.ingest(pkt, t0)

	_, st := r.Snapshot(t0)
	assert.Equal(t, uint64(1), st.InvalidPackets)
	assert.Equal(t, uint64(1), st.DatasetMismatchPackets)
	assert.Equal(t, LinkMisconfigured, st.State)
}

func TestReceiver_DisableResetsState(t *testing.T) {
	r, _ := newFakeReceiver()
	r.Configure(true, "", 49005)

	t0 := time.Unix(2000, 0)
	r.ingest(validPacket(), t0)

	r.Configure(false, "", 49005)

	snap, st := r.Snapshot(t0)
	assert.Equal(t, LinkIdle, st.State)
	assert.Equal(t, "listening disabled", st.Detail)
	assert.Nil(t, snap)
	assert.Equal(t, uint64(0), st.TotalPackets)
}

func TestReceiver_EndpointChangeRestartsListener(t *testing.T) {
	r, listens := newFakeReceiver()
	defer r.Stop(false)

	r.Configure(true, "", 49005)
	assert.Equal(t, int32(1), listens.Load())

	// Same normalized endpoint: no restart.
	r.Configure(true, "localhost", 49005)
	assert.Equal(t, int32(1), listens.Load())

	// New port: restart.
	r.Configure(true, "localhost", 49010)
	assert.Equal(t, int32(2), listens.Load())
}

func TestReceiver_RateWindow(t *testing.T) {
	r, _ := newFakeReceiver()
	defer r.Stop(false)
	r.Configure(true, "", 49005)

	t0 := time.Unix(2000, 0)
	for i := 0; i < 3; i++ {
		r.ingest(validPacket(), t0)
	}

	_, st := r.Snapshot(t0.Add(500 * time.Millisecond))
	assert.Equal(t, 3.0, st.PacketsPerSecond)

	_, st = r.Snapshot(t0.Add(2 * time.Second))
	assert.Equal(t, 0.0, st.PacketsPerSecond)
	assert.Equal(t, uint64(3), st.TotalPackets)
}

func TestNormalizeHost(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "127.0.0.1"},
		{"localhost", "127.0.0.1"},
		{"LOCALHOST", "127.0.0.1"},
		{"0.0.0.0", "0.0.0.0"},
		{"*", "0.0.0.0"},
		{"any", "0.0.0.0"},
		{"ALL", "0.0.0.0"},
		{"192.168.1.40", "192.168.1.40"},
		{" 10.0.0.5 ", "10.0.0.5"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeHost(tc.in), "input %q", tc.in)
	}
}

func TestReceiver_PortClamped(t *testing.T) {
	r, _ := newFakeReceiver()
	defer r.Stop(false)

	r.Configure(true, "", 80)
	_, st := r.Snapshot(time.Unix(2000, 0))
	assert.Equal(t, 1024, st.ListenPort)

	r.Configure(true, "", 99999)
	_, st = r.Snapshot(time.Unix(2000, 0))
	assert.Equal(t, 65535, st.ListenPort)
}
