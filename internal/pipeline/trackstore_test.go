package pipeline

import (
	"testing"
	"time"

	"fieldtrack/internal/core/model"
	"fieldtrack/internal/core/repository"
	"fieldtrack/internal/logging"
)

func appendPoint(t *testing.T, store *TrackStore, p *model.ProcessedPoint) {
	t.Helper()
	raw := model.RawLocationSample{UserID: p.UserID, Altitude: 850}
	if err := store.Append(p, &raw); err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func segmentsFor(t *testing.T, repo repository.TrackSegmentRepository, userID string) []*model.TrackSegment {
	t.Helper()
	segs, _, err := repo.FindByUserAndRange(userID,
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC), 1, 100)
	if err != nil {
		t.Fatal(err)
	}
	return segs
}

func TestTrackStoreRotatesAtPointCap(t *testing.T) {
	repo := repository.NewInMemoryTrackSegmentRepository()
	store := NewTrackStore(DefaultConfig(), repo, logging.Nop())

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < model.MaxPointsPerSegment+1; i++ {
		appendPoint(t, store, &model.ProcessedPoint{
			UserID:      "u1",
			SmoothedLat: 43.0 + float64(i)*1e-6,
			SmoothedLng: 76.0,
			Timestamp:   base.Add(time.Duration(i) * time.Second),
		})
	}

	segs := segmentsFor(t, repo, "u1")
	if len(segs) != 2 {
		t.Fatalf("segments = %d after exceeding the point cap, want 2", len(segs))
	}

	full, fresh := segs[0], segs[1]
	if full.PointCount != model.MaxPointsPerSegment {
		t.Errorf("rotated segment PointCount = %d, want %d", full.PointCount, model.MaxPointsPerSegment)
	}
	if full.IsActive {
		t.Error("rotated segment still active")
	}
	if fresh.PointCount != 1 || !fresh.IsActive {
		t.Errorf("fresh segment PointCount = %d active = %v, want 1 point, active", fresh.PointCount, fresh.IsActive)
	}
}

func TestTrackStoreRotatesAfterSessionWindow(t *testing.T) {
	repo := repository.NewInMemoryTrackSegmentRepository()
	store := NewTrackStore(DefaultConfig(), repo, logging.Nop())

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	appendPoint(t, store, &model.ProcessedPoint{UserID: "u1", SmoothedLat: 43, SmoothedLng: 76, Timestamp: base})
	appendPoint(t, store, &model.ProcessedPoint{UserID: "u1", SmoothedLat: 43, SmoothedLng: 76, Timestamp: base.Add(model.SegmentWindow + time.Minute)})

	segs := segmentsFor(t, repo, "u1")
	if len(segs) != 2 {
		t.Fatalf("segments = %d after session window elapsed, want 2", len(segs))
	}
	if segs[0].IsActive {
		t.Error("expired segment still active")
	}
}

func TestTrackStoreWaypointsOnlyForLargeJumps(t *testing.T) {
	repo := repository.NewInMemoryTrackSegmentRepository()
	store := NewTrackStore(DefaultConfig(), repo, logging.Nop())

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	appendPoint(t, store, &model.ProcessedPoint{
		UserID: "u1", SmoothedLat: 43.0000, SmoothedLng: 76, Timestamp: base,
	})
	appendPoint(t, store, &model.ProcessedPoint{
		UserID: "u1", SmoothedLat: 43.0001, SmoothedLng: 76,
		Timestamp: base.Add(10 * time.Second), DistanceFromLastM: 11,
	})
	appendPoint(t, store, &model.ProcessedPoint{
		UserID: "u1", SmoothedLat: 43.0004, SmoothedLng: 76,
		Timestamp: base.Add(20 * time.Second), DistanceFromLastM: 33,
		SignificantSpatial: true,
	})

	segs := segmentsFor(t, repo, "u1")
	if len(segs) != 1 {
		t.Fatalf("segments = %d, want 1", len(segs))
	}
	seg := segs[0]
	if len(seg.Waypoints) != 1 {
		t.Fatalf("waypoints = %d, want 1", len(seg.Waypoints))
	}
	if seg.Waypoints[0].Type != model.WaypointSignificantMovement {
		t.Errorf("waypoint type = %q, want %q", seg.Waypoints[0].Type, model.WaypointSignificantMovement)
	}
	if seg.TotalDistanceM != 44 {
		t.Errorf("TotalDistanceM = %f, want 44", seg.TotalDistanceM)
	}
}

func TestTrackStoreCompressesPastThreshold(t *testing.T) {
	repo := repository.NewInMemoryTrackSegmentRepository()
	store := NewTrackStore(DefaultConfig(), repo, logging.Nop())

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	// A straight north line: the simplifier should keep only the ends.
	for i := 0; i < model.CompressionThreshold+1; i++ {
		appendPoint(t, store, &model.ProcessedPoint{
			UserID:      "u1",
			SmoothedLat: 43.0 + float64(i)*1e-4,
			SmoothedLng: 76.0,
			Timestamp:   base.Add(time.Duration(i) * time.Second),
		})
	}

	segs := segmentsFor(t, repo, "u1")
	seg := segs[0]
	if seg.CompressedPath == nil {
		t.Fatalf("CompressedPath nil at %d points, want compressed", seg.PointCount)
	}
	if len(seg.CompressedPath) != 2 {
		t.Errorf("compressed collinear path has %d points, want 2", len(seg.CompressedPath))
	}
	if seg.CompressedPath[0].Latitude != 43.0 || seg.CompressedPath[1].Latitude != 43.0+float64(model.CompressionThreshold)*1e-4 {
		t.Errorf("compressed path endpoints wrong: %+v", seg.CompressedPath)
	}
}

func TestTrackStoreStaysUncompressedAtThreshold(t *testing.T) {
	repo := repository.NewInMemoryTrackSegmentRepository()
	store := NewTrackStore(DefaultConfig(), repo, logging.Nop())

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < model.CompressionThreshold; i++ {
		appendPoint(t, store, &model.ProcessedPoint{
			UserID:      "u1",
			SmoothedLat: 43.0 + float64(i)*1e-4,
			SmoothedLng: 76.0,
			Timestamp:   base.Add(time.Duration(i) * time.Second),
		})
	}

	if segs := segmentsFor(t, repo, "u1"); segs[0].CompressedPath != nil {
		t.Errorf("CompressedPath computed at %d points, threshold is exclusive", model.CompressionThreshold)
	}
}

func TestTrackStoreEvictIdle(t *testing.T) {
	repo := repository.NewInMemoryTrackSegmentRepository()
	store := NewTrackStore(DefaultConfig(), repo, logging.Nop())

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base.Add(model.SegmentWindow + time.Hour) }

	appendPoint(t, store, &model.ProcessedPoint{UserID: "gone", SmoothedLat: 43, SmoothedLng: 76, Timestamp: base})

	if n := store.EvictIdle(); n != 1 {
		t.Fatalf("EvictIdle() = %d, want 1", n)
	}
	if segs := segmentsFor(t, repo, "gone"); segs[0].IsActive {
		t.Error("evicted segment not superseded in the store")
	}
}
