// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Receiver and bridge counters. Registered once at import time.

var (
	// Telemetry receiver
	PacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "governor",
		Subsystem: "telemetry",
		Name:      "packets_received_total",
		Help:      "Total UDP datagrams received on the telemetry socket",
	})

	PacketsInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "governor",
		Subsystem: "telemetry",
		Name:      "packets_invalid_total",
		Help:      "Total datagrams rejected as structurally invalid",
	})

	PacketsDatasetMismatch = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "governor",
		Subsystem: "telemetry",
		Name:      "packets_dataset_mismatch_total",
		Help:      "Total valid DATA packets missing every required dataset",
	})

	PacketsPerSecond = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "governor",
		Subsystem: "telemetry",
		Name:      "packets_per_second",
		Help:      "Telemetry packet rate over the trailing one-second window",
	})

	// Command bridge
	CommandsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "governor",
		Subsystem: "bridge",
		Name:      "commands_sent_total",
		Help:      "Total commands delivered on at least one channel",
	}, []string{"command"})

	CommandsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "governor",
		Subsystem: "bridge",
		Name:      "commands_suppressed_total",
		Help:      "Total sends suppressed by throttle or delta gating",
	}, []string{"reason"})

	AckOK = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "governor",
		Subsystem: "bridge",
		Name:      "ack_ok_total",
		Help:      "Total acknowledged command round trips",
	})

	AckMissed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "governor",
		Subsystem: "bridge",
		Name:      "ack_missed_total",
		Help:      "Total command sends that timed out waiting for an ACK",
	})

	FileFallbackUsed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "governor",
		Subsystem: "bridge",
		Name:      "file_fallback_total",
		Help:      "Total commands delivered via the file channel only",
	})
)
