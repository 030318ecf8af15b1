package pipeline

import (
	"time"

	"github.com/montanaflynn/stats"

	"fieldtrack/internal/geo"
)

type windowPoint struct {
	lat, lng float64
	speed    float64
	at       time.Time
}

// movementWindow is a fixed-capacity, time-bounded ring of one user's
// recent processed points. It exists only to feed rolling statistics
// into the stop classifier and is never persisted.
type movementWindow struct {
	span   time.Duration
	max    int
	points []windowPoint
}

func newMovementWindow(span time.Duration, max int) *movementWindow {
	return &movementWindow{span: span, max: max}
}

// add appends a point and expires anything outside the span or beyond
// capacity. Points must arrive in non-decreasing timestamp order,
// which the per-user serialization upstream guarantees.
func (w *movementWindow) add(lat, lng, speed float64, at time.Time) {
	w.points = append(w.points, windowPoint{lat: lat, lng: lng, speed: speed, at: at})

	cutoff := at.Add(-w.span)
	firstFresh := 0
	for firstFresh < len(w.points) && w.points[firstFresh].at.Before(cutoff) {
		firstFresh++
	}
	w.points = w.points[firstFresh:]

	if len(w.points) > w.max {
		w.points = w.points[len(w.points)-w.max:]
	}
}

type windowStats struct {
	AvgSpeedKmh    float64
	TotalDistanceM float64
	DurationSec    float64
	Count          int
}

func (w *movementWindow) stats() windowStats {
	s := windowStats{Count: len(w.points)}
	if s.Count == 0 {
		return s
	}

	speeds := make([]float64, len(w.points))
	for i, p := range w.points {
		speeds[i] = p.speed
	}
	// stats.Mean errors only on empty input, guarded above.
	s.AvgSpeedKmh, _ = stats.Mean(speeds)

	for i := 1; i < len(w.points); i++ {
		s.TotalDistanceM += geo.HaversineMeters(
			w.points[i-1].lat, w.points[i-1].lng,
			w.points[i].lat, w.points[i].lng,
		)
	}

	s.DurationSec = w.points[len(w.points)-1].at.Sub(w.points[0].at).Seconds()
	return s
}
