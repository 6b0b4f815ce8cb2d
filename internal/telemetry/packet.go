// internal/telemetry/packet.go
package telemetry

import (
	"encoding/binary"
	"math"
	"time"
)

// X-Plane DATA packet layout (little-endian):
//
//   0-3   Magic "DATA"
//   4     Reserved
//   5+    Repeated 36-byte records:
//           index (int32) + 8 x float32
//
// Record 0  = frame rate / frame time
// Record 20 = position (MSL ft at slot 2, AGL ft at slot 3)
// Layout is protocol-locked.

const (
	headerLen       = 5
	recordLen       = 36
	valuesPerRecord = 8

	recordFrame    = 0
	recordPosition = 20
)

// Acceptance windows for each dataset. Values outside are treated as
// garbage and discarded, not clamped.
const (
	fpsMin = 1.0
	fpsMax = 400.0

	secPerFrameMin = 0.001
	secPerFrameMax = 0.5

	mslMinFt = -1500.0
	mslMaxFt = 80000.0

	aglMinFt = -200.0
	aglMaxFt = 50000.0
)

// ParseFailureKind distinguishes the three ways a datagram can be rejected.
type ParseFailureKind int

const (
	// FailureNotDATA: not this protocol at all.
	FailureNotDATA ParseFailureKind = iota

	// FailureMalformed: DATA framing present but no readable records.
	FailureMalformed

	// FailureDatasetMismatch: structurally valid, but the simulator is
	// not emitting any of the datasets the governor needs.
	FailureDatasetMismatch
)

// ParseError reports a rejected datagram with an actionable detail string.
type ParseError struct {
	Kind   ParseFailureKind
	Detail string
}

func (e *ParseError) Error() string { return e.Detail }

// ParsePacket decodes one datagram into a Snapshot.
// All-or-nothing per dataset: a value outside its acceptance window is
// dropped, and a packet carrying none of the required datasets is a
// dataset mismatch, not a valid frame.
func ParsePacket(data []byte, source string, now time.Time) (*Snapshot, *ParseError) {
	if len(data) < headerLen || string(data[0:4]) != "DATA" {
		return nil, &ParseError{
			Kind:   FailureNotDATA,
			Detail: "not X-Plane DATA packets (check the sender and Data Output settings)",
		}
	}

	// Accumulate records; a repeated index overwrites the earlier one.
	records := map[int32][valuesPerRecord]float32{}

	body := data[headerLen:]
	for len(body) >= recordLen {
		idx := int32(binary.LittleEndian.Uint32(body[0:4]))

		var vals [valuesPerRecord]float32
		for i := 0; i < valuesPerRecord; i++ {
			bits := binary.LittleEndian.Uint32(body[4+4*i : 8+4*i])
			vals[i] = math.Float32frombits(bits)
		}

		records[idx] = vals
		body = body[recordLen:]
	}

	if len(records) == 0 {
		return nil, &ParseError{
			Kind:   FailureMalformed,
			Detail: "DATA packet with no readable records",
		}
	}

	snap := &Snapshot{
		Source:     source,
		CapturedAt: now,
	}

	// ---- frame metrics (record 0) ----

	if vals, ok := records[recordFrame]; ok {
		if fps := float64(vals[0]); inWindow(fps, fpsMin, fpsMax) {
			snap.FPS = &fps
		}
		if spf := float64(vals[2]); inWindow(spf, secPerFrameMin, secPerFrameMax) {
			ms := spf * 1000
			snap.FrameTimeMS = &ms
		}
	}

	// ---- position (record 20) ----

	if vals, ok := records[recordPosition]; ok {
		if msl := float64(vals[2]); finite(msl) && msl >= mslMinFt && msl <= mslMaxFt {
			snap.AltitudeMSLFt = &msl
		}
		if agl := float64(vals[3]); finite(agl) && agl >= aglMinFt && agl <= aglMaxFt {
			snap.AltitudeAGLFt = &agl
		}
	}

	if snap.FPS == nil && snap.FrameTimeMS == nil &&
		snap.AltitudeAGLFt == nil && snap.AltitudeMSLFt == nil {
		return nil, &ParseError{
			Kind:   FailureDatasetMismatch,
			Detail: "DATA packet carries none of the required datasets (enable indices 0 and 20 in Data Output)",
		}
	}

	return snap, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// inWindow is the open-interval acceptance check used for frame metrics.
func inWindow(v, lo, hi float64) bool {
	return finite(v) && v > lo && v < hi
}
