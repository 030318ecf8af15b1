package model

import "time"

// LiveLocationState is the single current-location row kept per user.
// It is overwritten on every accepted sample, significant or not, and
// owned exclusively by the location processor.
type LiveLocationState struct {
	UserID       string         `json:"userId" bson:"userId"`
	Latitude     float64        `json:"latitude" bson:"latitude"`   // smoothed
	Longitude    float64        `json:"longitude" bson:"longitude"` // smoothed
	RawLatitude  float64        `json:"rawLatitude" bson:"rawLatitude"`
	RawLongitude float64        `json:"rawLongitude" bson:"rawLongitude"`
	Speed        float64        `json:"speed" bson:"speed"`
	Heading      float64        `json:"heading,omitempty" bson:"heading,omitempty"`
	Altitude     float64        `json:"altitude,omitempty" bson:"altitude,omitempty"`
	Accuracy     float64        `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
	Status       MovementStatus `json:"movementStatus" bson:"movementStatus"`
	BatteryLevel float64        `json:"batteryLevel,omitempty" bson:"batteryLevel,omitempty"`
	NetworkType  string         `json:"networkType,omitempty" bson:"networkType,omitempty"`
	LastUpdated  time.Time      `json:"lastUpdated" bson:"lastUpdated"`
}

// OnlineWindow is the staleness bound for IsOnline.
const OnlineWindow = 5 * time.Minute

// IsOnline reports whether the state was refreshed within the online
// window relative to now.
func (s *LiveLocationState) IsOnline(now time.Time) bool {
	return now.Sub(s.LastUpdated) < OnlineWindow
}

// LiveStateFromPoint builds the overwrite row for one processed point.
func LiveStateFromPoint(p *ProcessedPoint, raw *RawLocationSample) *LiveLocationState {
	return &LiveLocationState{
		UserID:       p.UserID,
		Latitude:     p.SmoothedLat,
		Longitude:    p.SmoothedLng,
		RawLatitude:  p.RawLat,
		RawLongitude: p.RawLng,
		Speed:        p.Speed,
		Heading:      raw.Heading,
		Altitude:     raw.Altitude,
		Accuracy:     p.Accuracy,
		Status:       p.MovementStatus,
		BatteryLevel: raw.BatteryLevel,
		NetworkType:  raw.NetworkType,
		LastUpdated:  p.Timestamp,
	}
}
