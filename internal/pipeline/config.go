package pipeline

import "time"

// Config carries every tunable threshold of the movement pipeline.
// The stop heuristics (confidence shaping, hour-of-day stop types)
// are defaults that operators may retune, not invariants.
type Config struct {
	// Significance thresholds.
	SignificantDistanceM float64 // persist beyond the live overwrite
	WaypointDistanceM    float64 // record a typed waypoint
	SignificantTimeSec   float64 // elapsed time alone forces persistence

	// Accuracy handling.
	MaxAccuracyM     float64 // samples worse than this never enqueue
	DefaultAccuracyM float64 // assumed when the device reports none

	// Movement classification.
	MovingSpeedKmh      float64 // below this a sample counts as still
	StationaryDistanceM float64 // max window travel while stationary
	StopOpenAfter       time.Duration
	StopCloseAfter      time.Duration

	// Recent-movement window bounds.
	WindowSpan      time.Duration
	WindowMaxPoints int

	// Ephemeral state TTLs.
	StateTTL     time.Duration // idle kalman/window/segment eviction
	LastPointTTL time.Duration
	LiveCacheTTL time.Duration

	// Track compression.
	SimplifyEpsilon float64 // degrees, Douglas-Peucker tolerance

	// Stop confidence shaping.
	MinStopConfidence float64
	MaxStopConfidence float64
}

// significance applies the distance/time thresholds to one sample's
// deltas. Both thresholds are inclusive; the first sample for a user
// is always significant and never a spatial waypoint.
func (c Config) significance(distanceM, elapsedSec float64, first bool) (significant, spatialWaypoint bool) {
	if first {
		return true, false
	}
	significant = distanceM >= c.SignificantDistanceM || elapsedSec >= c.SignificantTimeSec
	spatialWaypoint = distanceM >= c.WaypointDistanceM
	return significant, spatialWaypoint
}

func DefaultConfig() Config {
	return Config{
		SignificantDistanceM: 5,
		WaypointDistanceM:    20,
		SignificantTimeSec:   10,
		MaxAccuracyM:         100,
		DefaultAccuracyM:     10,
		MovingSpeedKmh:       0.5,
		StationaryDistanceM:  10,
		StopOpenAfter:        30 * time.Second,
		StopCloseAfter:       10 * time.Second,
		WindowSpan:           5 * time.Minute,
		WindowMaxPoints:      300,
		StateTTL:             60 * time.Second,
		LastPointTTL:         10 * time.Minute,
		LiveCacheTTL:         30 * time.Second,
		SimplifyEpsilon:      0.00008,
		MinStopConfidence:    0.6,
		MaxStopConfidence:    0.95,
	}
}
