// internal/governor/governor.go
package governor

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/tamzrod/xplane-lod-governor/internal/bridge"
	"github.com/tamzrod/xplane-lod-governor/internal/config"
	"github.com/tamzrod/xplane-lod-governor/internal/policy"
	"github.com/tamzrod/xplane-lod-governor/internal/status"
	"github.com/tamzrod/xplane-lod-governor/internal/telemetry"
)

// Governor is the periodic tick driver: telemetry snapshot in, policy
// decision out, command send, status projection. It is the single
// caller the receiver and bridge are designed for.
type Governor struct {
	cfg  config.GovernorConfig
	recv *telemetry.Receiver
	br   *bridge.Bridge
	log  *slog.Logger

	mu   sync.RWMutex
	last status.Snapshot
}

func New(cfg config.GovernorConfig, recv *telemetry.Receiver, br *bridge.Bridge, log *slog.Logger) *Governor {
	return &Governor{cfg: cfg, recv: recv, br: br, log: log}
}

// Status returns the snapshot composed by the most recent tick.
func (g *Governor) Status() status.Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.last
}

// Tick runs one telemetry -> decision -> command cycle.
func (g *Governor) Tick(now time.Time) status.Snapshot {
	frame, link := g.recv.Snapshot(now)
	dec := policy.Decide(frame, g.policyConfig())

	bridgeText := g.br.StatusText(now)

	if dec != nil {
		sent, text, err := g.br.Send(
			dec.TargetLOD,
			dec.Tier,
			g.cfg.Command.Host,
			g.cfg.Command.Port,
			now,
			time.Duration(g.cfg.Command.MinIntervalMs)*time.Millisecond,
			g.cfg.Command.MinDelta,
		)
		bridgeText = text
		if err != nil {
			g.log.Warn("command send failed",
				"tier", dec.Tier.String(),
				"target_lod", dec.TargetLOD,
				"err", err,
			)
		} else if sent {
			g.log.Info("lod command sent",
				"tier", dec.Tier.String(),
				"target_lod", dec.TargetLOD,
				"agl_ft", dec.ResolvedAGLFt,
				"altitude_source", dec.AltitudeSource.String(),
			)
		}
	}

	snap := g.compose(now, frame, link, dec, bridgeText)

	g.mu.Lock()
	g.last = snap
	g.mu.Unlock()

	return snap
}

// Run drives Tick on the configured interval until ctx is cancelled,
// then closes the remote session so the simulator is not left with a
// stale override.
func (g *Governor) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(g.cfg.TickMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := g.br.SendDisable(g.cfg.Command.Host, g.cfg.Command.Port, time.Now()); err != nil {
				g.log.Warn("disable on shutdown failed", "err", err)
			}
			return
		case <-ticker.C:
			g.Tick(time.Now())
		}
	}
}

func (g *Governor) policyConfig() policy.Config {
	return policy.Config{
		Enabled:        g.cfg.Enabled,
		GroundMaxAGLFt: g.cfg.Tiers.GroundMaxAGLFt,
		CruiseMinAGLFt: g.cfg.Tiers.CruiseMinAGLFt,
		GroundLOD:      g.cfg.Tiers.GroundLOD,
		ClimbLOD:       g.cfg.Tiers.ClimbLOD,
		CruiseLOD:      g.cfg.Tiers.CruiseLOD,
		ClampMin:       g.cfg.Tiers.ClampMin,
		ClampMax:       g.cfg.Tiers.ClampMax,
	}
}

// compose flattens the tick's inputs into the logic-free status snapshot.
func (g *Governor) compose(
	now time.Time,
	frame *telemetry.Snapshot,
	link telemetry.LinkStatus,
	dec *policy.Decision,
	bridgeText string,
) status.Snapshot {
	snap := status.Snapshot{
		At:                     now,
		LinkState:              link.State.String(),
		LinkDetail:             link.Detail,
		ListenEndpoint:         joinEndpoint(link.ListenHost, link.ListenPort),
		PacketsPerSecond:       link.PacketsPerSecond,
		TotalPackets:           link.TotalPackets,
		InvalidPackets:         link.InvalidPackets,
		DatasetMismatchPackets: link.DatasetMismatchPackets,
		BridgeStatus:           bridgeText,
	}

	if frame != nil {
		snap.FPS = frame.FPS
		snap.FrameTimeMS = frame.FrameTimeMS
	}

	if dec != nil {
		agl := dec.ResolvedAGLFt
		lod := dec.TargetLOD
		snap.Tier = dec.Tier.String()
		snap.ResolvedAGLFt = &agl
		snap.AltitudeSource = dec.AltitudeSource.String()
		snap.TargetLOD = &lod
	}

	bst := g.br.State()
	snap.UsingFileFallback = bst.UsingFileFallback
	snap.LastAckAppliedLOD = bst.LastAckAppliedLOD
	snap.LastSendError = bst.LastError

	if remote, err := bridge.ReadFileStatus(g.br.Dir()); err == nil && remote != nil {
		snap.RemoteEnabled = remote.Enabled
		snap.RemoteCurrentLOD = remote.CurrentLOD
		snap.RemoteTier = remote.Tier
	}

	return snap
}

func joinEndpoint(host string, port int) string {
	if host == "" {
		return ""
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
