package model

import "time"

// MovementStatus classifies instantaneous speed into coarse buckets
// used by dashboards.
type MovementStatus string

const (
	StatusStationary    MovementStatus = "stationary"
	StatusWalking       MovementStatus = "walking"
	StatusRunning       MovementStatus = "running"
	StatusDrivingSlow   MovementStatus = "driving_slow"
	StatusDrivingNormal MovementStatus = "driving_normal"
	StatusDrivingFast   MovementStatus = "driving_fast"
)

// MovementStatusForSpeed maps a speed in km/h onto a MovementStatus.
func MovementStatusForSpeed(speedKmh float64) MovementStatus {
	switch {
	case speedKmh < 0.5:
		return StatusStationary
	case speedKmh < 2:
		return StatusWalking
	case speedKmh < 15:
		return StatusRunning
	case speedKmh < 50:
		return StatusDrivingSlow
	case speedKmh < 80:
		return StatusDrivingNormal
	default:
		return StatusDrivingFast
	}
}

// RawLocationSample is one client-submitted GPS point. Samples are
// transient: they live in the ingestion queue and are discarded after
// processing.
type RawLocationSample struct {
	UserID       string    `json:"userId"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Speed        float64   `json:"speed"`              // km/h
	Accuracy     float64   `json:"accuracy,omitempty"` // meters, 0 = unreported
	Altitude     float64   `json:"altitude,omitempty"`
	Heading      float64   `json:"heading,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	BatteryLevel float64   `json:"batteryLevel,omitempty"`
	NetworkType  string    `json:"networkType,omitempty"`
}

// ProcessedPoint is the smoothed, delta-annotated result of one
// accepted sample. It feeds the live state, the track store, the
// stop classifier and the fanout.
type ProcessedPoint struct {
	UserID             string         `json:"userId"`
	SmoothedLat        float64        `json:"smoothedLat"`
	SmoothedLng        float64        `json:"smoothedLng"`
	RawLat             float64        `json:"rawLat"`
	RawLng             float64        `json:"rawLng"`
	Speed              float64        `json:"speed"`
	Accuracy           float64        `json:"accuracy,omitempty"`
	Timestamp          time.Time      `json:"timestamp"`
	DistanceFromLastM  float64        `json:"distanceFromLastMeters"`
	TimeFromLastSec    float64        `json:"timeFromLastSeconds"`
	MovementStatus     MovementStatus `json:"movementStatus"`
	Significant        bool           `json:"significant"`
	SignificantSpatial bool           `json:"-"` // ≥ waypoint distance
}
