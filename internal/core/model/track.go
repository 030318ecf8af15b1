package model

import (
	"time"

	"github.com/google/uuid"
)

// Segment rotation and compression bounds. A segment stops accepting
// points at MaxPointsPerSegment or when SegmentWindow has elapsed
// since sessionStart; compression kicks in past CompressionThreshold.
const (
	MaxPointsPerSegment  = 300
	SegmentWindow        = 30 * time.Minute
	CompressionThreshold = 100
)

type WaypointType string

const (
	WaypointStart               WaypointType = "start"
	WaypointEnd                 WaypointType = "end"
	WaypointStop                WaypointType = "stop"
	WaypointTurn                WaypointType = "turn"
	WaypointSignificantMovement WaypointType = "significant_movement"
)

// TrackPoint is one stored point inside a segment, raw and smoothed.
type TrackPoint struct {
	Latitude     float64   `json:"latitude" bson:"latitude"` // smoothed
	Longitude    float64   `json:"longitude" bson:"longitude"`
	RawLatitude  float64   `json:"rawLatitude" bson:"rawLatitude"`
	RawLongitude float64   `json:"rawLongitude" bson:"rawLongitude"`
	Speed        float64   `json:"speed" bson:"speed"`
	Accuracy     float64   `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
	Altitude     float64   `json:"altitude,omitempty" bson:"altitude,omitempty"`
	Timestamp    time.Time `json:"timestamp" bson:"timestamp"`
}

type Waypoint struct {
	Type      WaypointType `json:"type" bson:"type"`
	Latitude  float64      `json:"latitude" bson:"latitude"`
	Longitude float64      `json:"longitude" bson:"longitude"`
	Timestamp time.Time    `json:"timestamp" bson:"timestamp"`
}

// LatLng is a bare coordinate used for the compressed path cache.
type LatLng struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// TrackSegment is one bounded run of a user's track. Lifecycle is
// Active → Superseded: once a segment is superseded it is never
// mutated again.
type TrackSegment struct {
	ID             string       `json:"id" bson:"_id"`
	UserID         string       `json:"userId" bson:"userId"`
	SessionStart   time.Time    `json:"sessionStart" bson:"sessionStart"`
	SessionEnd     time.Time    `json:"sessionEnd" bson:"sessionEnd"`
	Points         []TrackPoint `json:"points" bson:"points"`
	Waypoints      []Waypoint   `json:"waypoints" bson:"waypoints"`
	CompressedPath []LatLng     `json:"compressedPath,omitempty" bson:"compressedPath,omitempty"`
	IsActive       bool         `json:"isActive" bson:"isActive"`

	// Metadata maintained on append.
	PointCount     int     `json:"pointCount" bson:"pointCount"`
	TotalDistanceM float64 `json:"totalDistanceMeters" bson:"totalDistanceMeters"`
	MaxSpeed       float64 `json:"maxSpeed" bson:"maxSpeed"`
	AvgSpeed       float64 `json:"avgSpeed" bson:"avgSpeed"`

	speedSum float64
}

func NewTrackSegment(userID string, start time.Time) *TrackSegment {
	return &TrackSegment{
		ID:           uuid.NewString(),
		UserID:       userID,
		SessionStart: start,
		SessionEnd:   start,
		IsActive:     true,
	}
}

// CanAccept reports whether the segment may take a point stamped at t.
func (s *TrackSegment) CanAccept(t time.Time) bool {
	return s.IsActive &&
		s.PointCount < MaxPointsPerSegment &&
		t.Sub(s.SessionStart) <= SegmentWindow
}

// Append adds a point and advances the segment metadata. stepDistance
// is the haversine distance from the previous processed point.
func (s *TrackSegment) Append(p TrackPoint, stepDistanceM float64) {
	s.Points = append(s.Points, p)
	s.PointCount = len(s.Points)
	s.SessionEnd = p.Timestamp
	s.TotalDistanceM += stepDistanceM
	if p.Speed > s.MaxSpeed {
		s.MaxSpeed = p.Speed
	}
	s.speedSum += p.Speed
	s.AvgSpeed = s.speedSum / float64(s.PointCount)
}

// Supersede ends the segment's active life.
func (s *TrackSegment) Supersede() {
	s.IsActive = false
}
