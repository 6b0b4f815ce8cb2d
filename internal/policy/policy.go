// internal/policy/policy.go
package policy

import (
	"github.com/tamzrod/xplane-lod-governor/internal/telemetry"
)

// Tier is the discrete operating regime derived from altitude.
type Tier int

const (
	TierGround Tier = iota
	TierClimbDescent
	TierCruise
)

func (t Tier) String() string {
	switch t {
	case TierGround:
		return "ground"
	case TierClimbDescent:
		return "climb_descent"
	case TierCruise:
		return "cruise"
	default:
		return "unknown"
	}
}

// AltitudeSource records where the resolved altitude came from.
type AltitudeSource int

const (
	SourceUnavailable AltitudeSource = iota
	SourceTelemetry
	SourceMSLHeuristic
)

func (s AltitudeSource) String() string {
	switch s {
	case SourceTelemetry:
		return "telemetry"
	case SourceMSLHeuristic:
		return "msl_heuristic"
	default:
		return "unavailable"
	}
}

// Config is the minimal runtime config the policy needs.
// Callers pass it by value; Decide never mutates shared state.
type Config struct {
	Enabled bool

	GroundMaxAGLFt float64
	CruiseMinAGLFt float64

	GroundLOD float64
	ClimbLOD  float64
	CruiseLOD float64

	ClampMin float64
	ClampMax float64
}

// Decision is the output of one policy evaluation.
// Transient: recomputed every tick, never persisted.
type Decision struct {
	Tier           Tier
	ResolvedAGLFt  float64
	AltitudeSource AltitudeSource
	TargetLOD      float64
}

// mslToAGLOffsetFt approximates terrain elevation when only MSL is known.
const mslToAGLOffsetFt = 1000

// SelectTier maps an AGL altitude onto a tier.
// Bands are half-open: a value exactly on a boundary lands in the
// upper tier, never the lower.
func SelectTier(aglFt, groundMax, cruiseMin float64) Tier {
	switch {
	case aglFt < groundMax:
		return TierGround
	case aglFt < cruiseMin:
		return TierClimbDescent
	default:
		return TierCruise
	}
}

// ResolveAltitude extracts a usable AGL altitude from a snapshot.
// Prefers real AGL; falls back to an MSL heuristic; reports the source.
func ResolveAltitude(snap *telemetry.Snapshot) (float64, AltitudeSource) {
	if snap == nil {
		return 0, SourceUnavailable
	}

	if snap.AltitudeAGLFt != nil && *snap.AltitudeAGLFt >= 0 {
		return *snap.AltitudeAGLFt, SourceTelemetry
	}

	if snap.AltitudeMSLFt != nil && *snap.AltitudeMSLFt >= 0 {
		agl := *snap.AltitudeMSLFt - mslToAGLOffsetFt
		if agl < 0 {
			agl = 0
		}
		return agl, SourceMSLHeuristic
	}

	return 0, SourceUnavailable
}

// Decide evaluates one policy tick.
// Returns nil when the governor is disabled, no snapshot is available,
// or altitude cannot be resolved. Pure: identical inputs always produce
// identical output.
func Decide(snap *telemetry.Snapshot, cfg Config) *Decision {
	if !cfg.Enabled || snap == nil {
		return nil
	}

	agl, src := ResolveAltitude(snap)
	if src == SourceUnavailable {
		return nil
	}

	groundMax, cruiseMin := normalizeThresholds(cfg.GroundMaxAGLFt, cfg.CruiseMinAGLFt)
	tier := SelectTier(agl, groundMax, cruiseMin)

	var target float64
	switch tier {
	case TierGround:
		target = cfg.GroundLOD
	case TierClimbDescent:
		target = cfg.ClimbLOD
	default:
		target = cfg.CruiseLOD
	}

	lo, hi := cfg.ClampMin, cfg.ClampMax
	if lo > hi {
		lo, hi = hi, lo
	}
	if target < lo {
		target = lo
	}
	if target > hi {
		target = hi
	}

	return &Decision{
		Tier:           tier,
		ResolvedAGLFt:  agl,
		AltitudeSource: src,
		TargetLOD:      target,
	}
}

// normalizeThresholds re-asserts the tier band invariants so a raw,
// un-normalized config still yields a usable band split.
func normalizeThresholds(groundMax, cruiseMin float64) (float64, float64) {
	if groundMax < 100 {
		groundMax = 100
	}
	if cruiseMin < groundMax+100 {
		cruiseMin = groundMax + 100
	}
	return groundMax, cruiseMin
}
