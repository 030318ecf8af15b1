package repository

import (
	"sort"
	"sync"
	"time"

	"fieldtrack/internal/core/model"
)

type inMemoryTrackSegmentRepository struct {
	segments map[string]*model.TrackSegment
	mutex    sync.RWMutex
}

func NewInMemoryTrackSegmentRepository() TrackSegmentRepository {
	return &inMemoryTrackSegmentRepository{
		segments: make(map[string]*model.TrackSegment),
	}
}

// copySegment snapshots a segment including its point, waypoint and
// compressed-path slices, so the caller keeps mutating the active
// segment without sharing memory with stored or returned values.
func copySegment(segment *model.TrackSegment) *model.TrackSegment {
	copied := *segment
	if segment.Points != nil {
		copied.Points = make([]model.TrackPoint, len(segment.Points))
		copy(copied.Points, segment.Points)
	}
	if segment.Waypoints != nil {
		copied.Waypoints = make([]model.Waypoint, len(segment.Waypoints))
		copy(copied.Waypoints, segment.Waypoints)
	}
	if segment.CompressedPath != nil {
		copied.CompressedPath = make([]model.LatLng, len(segment.CompressedPath))
		copy(copied.CompressedPath, segment.CompressedPath)
	}
	return &copied
}

func (r *inMemoryTrackSegmentRepository) Save(segment *model.TrackSegment) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.segments[segment.ID] = copySegment(segment)
	return nil
}

func (r *inMemoryTrackSegmentRepository) FindByUserAndRange(userID string, from, to time.Time, page, pageSize int) ([]*model.TrackSegment, int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var matched []*model.TrackSegment
	for _, segment := range r.segments {
		if segment.UserID != userID {
			continue
		}
		if segment.SessionStart.Before(to) && !segment.SessionEnd.Before(from) {
			matched = append(matched, copySegment(segment))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SessionStart.Before(matched[j].SessionStart)
	})

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}
