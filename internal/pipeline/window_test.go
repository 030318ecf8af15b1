package pipeline

import (
	"math"
	"testing"
	"time"
)

func TestWindowExpiresBySpan(t *testing.T) {
	w := newMovementWindow(time.Minute, 10)
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	w.add(43.0, 76.0, 0, base)
	w.add(43.0, 76.0, 0, base.Add(30*time.Second))
	w.add(43.0, 76.0, 0, base.Add(2*time.Minute))

	if got := w.stats().Count; got != 1 {
		t.Errorf("Count = %d after span expiry, want 1", got)
	}
}

func TestWindowEnforcesCapacity(t *testing.T) {
	w := newMovementWindow(time.Hour, 3)
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		w.add(43.0, 76.0, float64(i), base.Add(time.Duration(i)*time.Second))
	}

	if got := w.stats().Count; got != 3 {
		t.Fatalf("Count = %d after overflow, want 3", got)
	}
	// The oldest two speeds (0, 1) must be gone.
	if got := w.stats().AvgSpeedKmh; got != 3 {
		t.Errorf("AvgSpeedKmh = %f, want 3 (speeds 2,3,4)", got)
	}
}

func TestWindowStats(t *testing.T) {
	w := newMovementWindow(time.Hour, 10)
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	// Two steps of 0.001° latitude, ~111.2m each.
	w.add(43.000, 76.0, 2, base)
	w.add(43.001, 76.0, 4, base.Add(10*time.Second))
	w.add(43.002, 76.0, 6, base.Add(20*time.Second))

	s := w.stats()
	if s.Count != 3 {
		t.Fatalf("Count = %d, want 3", s.Count)
	}
	if s.AvgSpeedKmh != 4 {
		t.Errorf("AvgSpeedKmh = %f, want 4", s.AvgSpeedKmh)
	}
	if s.DurationSec != 20 {
		t.Errorf("DurationSec = %f, want 20", s.DurationSec)
	}
	if math.Abs(s.TotalDistanceM-222.4) > 5 {
		t.Errorf("TotalDistanceM = %f, want ~222.4", s.TotalDistanceM)
	}
}

func TestWindowEmptyStats(t *testing.T) {
	w := newMovementWindow(time.Minute, 10)
	s := w.stats()
	if s.Count != 0 || s.AvgSpeedKmh != 0 || s.TotalDistanceM != 0 {
		t.Errorf("empty window stats = %+v, want zero value", s)
	}
}
