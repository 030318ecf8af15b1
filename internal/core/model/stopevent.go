package model

import (
	"time"

	"github.com/google/uuid"
)

type StopType string

const (
	StopBreak   StopType = "break"
	StopVisit   StopType = "visit"
	StopMeeting StopType = "meeting"
	StopLunch   StopType = "lunch"
	StopOther   StopType = "other"
)

// InferStopType guesses the stop purpose from the hour of day. Pure
// heuristic; callers treat the result as a default label, not a fact.
func InferStopType(t time.Time) StopType {
	switch h := t.Hour(); {
	case h >= 12 && h < 13:
		return StopLunch
	case h >= 9 && h < 11:
		return StopMeeting
	case h >= 14 && h < 17:
		return StopVisit
	default:
		return StopOther
	}
}

// StopEvent is a detected interval of stillness. At most one active
// event exists per user; the classifier enforces that before opening.
type StopEvent struct {
	ID         string     `json:"id" bson:"_id"`
	UserID     string     `json:"userId" bson:"userId"`
	Latitude   float64    `json:"latitude" bson:"latitude"`
	Longitude  float64    `json:"longitude" bson:"longitude"`
	Address    string     `json:"address,omitempty" bson:"address,omitempty"`
	StartTime  time.Time  `json:"startTime" bson:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty" bson:"endTime,omitempty"`
	DurationM  float64    `json:"durationMinutes,omitempty" bson:"durationMinutes,omitempty"`
	StopType   StopType   `json:"stopType" bson:"stopType"`
	IsActive   bool       `json:"isActive" bson:"isActive"`
	Confidence float64    `json:"confidence" bson:"confidence"`
}

func NewStopEvent(userID string, lat, lng float64, start time.Time, confidence float64) *StopEvent {
	return &StopEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		Latitude:   lat,
		Longitude:  lng,
		StartTime:  start,
		StopType:   InferStopType(start),
		IsActive:   true,
		Confidence: confidence,
	}
}

// Close ends the event at t and fixes the duration in minutes.
func (e *StopEvent) Close(t time.Time) {
	end := t
	e.EndTime = &end
	e.DurationM = end.Sub(e.StartTime).Minutes()
	e.IsActive = false
}
