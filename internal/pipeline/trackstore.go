package pipeline

import (
	"fmt"
	"sync"
	"time"

	"fieldtrack/internal/core/model"
	"fieldtrack/internal/core/repository"
	"fieldtrack/internal/geo"
	"fieldtrack/internal/logging"
)

// TrackStore appends significant points into bounded segments and
// maintains the compressed-path cache. It owns TrackSegment records.
type TrackStore struct {
	cfg      Config
	segments repository.TrackSegmentRepository
	log      logging.Logger

	mutex  sync.Mutex
	active map[string]*model.TrackSegment
	now    func() time.Time
}

func NewTrackStore(cfg Config, segments repository.TrackSegmentRepository, log logging.Logger) *TrackStore {
	return &TrackStore{
		cfg:      cfg,
		segments: segments,
		log:      log,
		active:   make(map[string]*model.TrackSegment),
		now:      time.Now,
	}
}

// Append adds one significant point to the user's active segment,
// rotating to a fresh segment when the point cap or the session
// window is exceeded. Superseded segments are never touched again.
func (t *TrackStore) Append(p *model.ProcessedPoint, raw *model.RawLocationSample) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	seg := t.active[p.UserID]
	if seg != nil && !seg.CanAccept(p.Timestamp) {
		seg.Supersede()
		if err := t.segments.Save(seg); err != nil {
			return fmt.Errorf("supersede segment %s: %w", seg.ID, err)
		}
		t.log.Debug("track segment rotated",
			"userId", p.UserID, "segmentId", seg.ID, "points", seg.PointCount)
		seg = nil
	}
	if seg == nil {
		seg = model.NewTrackSegment(p.UserID, p.Timestamp)
		t.active[p.UserID] = seg
	}

	seg.Append(model.TrackPoint{
		Latitude:     p.SmoothedLat,
		Longitude:    p.SmoothedLng,
		RawLatitude:  p.RawLat,
		RawLongitude: p.RawLng,
		Speed:        p.Speed,
		Accuracy:     p.Accuracy,
		Altitude:     raw.Altitude,
		Timestamp:    p.Timestamp,
	}, p.DistanceFromLastM)

	if p.SignificantSpatial {
		seg.Waypoints = append(seg.Waypoints, model.Waypoint{
			Type:      model.WaypointSignificantMovement,
			Latitude:  p.SmoothedLat,
			Longitude: p.SmoothedLng,
			Timestamp: p.Timestamp,
		})
	}

	// The compressed path is a derived cache over the raw points,
	// recomputed wholesale each append past the threshold.
	if seg.PointCount > model.CompressionThreshold {
		seg.CompressedPath = compressPath(seg.Points, t.cfg.SimplifyEpsilon)
	}

	if err := t.segments.Save(seg); err != nil {
		return fmt.Errorf("save segment %s: %w", seg.ID, err)
	}
	return nil
}

func compressPath(points []model.TrackPoint, epsilon float64) []model.LatLng {
	line := make([]geo.Point, len(points))
	for i, p := range points {
		line[i] = geo.Point{Lat: p.Latitude, Lng: p.Longitude}
	}

	simplified := geo.Simplify(line, epsilon)
	path := make([]model.LatLng, len(simplified))
	for i, p := range simplified {
		path[i] = model.LatLng{Latitude: p.Lat, Longitude: p.Lng}
	}
	return path
}

// EvictIdle supersedes and persists active segments whose last point
// is older than the session window, so half-open segments do not pin
// memory for users that went offline.
func (t *TrackStore) EvictIdle() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	cutoff := t.now().Add(-model.SegmentWindow)
	evicted := 0
	for userID, seg := range t.active {
		if seg.SessionEnd.Before(cutoff) {
			seg.Supersede()
			if err := t.segments.Save(seg); err != nil {
				t.log.Warn("failed to persist idle segment", "segmentId", seg.ID, "error", err)
				continue
			}
			delete(t.active, userID)
			evicted++
		}
	}
	return evicted
}

// Reset forgets all active segments after superseding them.
func (t *TrackStore) Reset() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	n := len(t.active)
	for _, seg := range t.active {
		seg.Supersede()
		if err := t.segments.Save(seg); err != nil {
			t.log.Warn("failed to persist segment during reset", "segmentId", seg.ID, "error", err)
		}
	}
	t.active = make(map[string]*model.TrackSegment)
	return n
}
