package pipeline

import (
	"fmt"
	"sync"
	"time"

	"fieldtrack/internal/core/model"
	"fieldtrack/internal/core/repository"
	"fieldtrack/internal/logging"
)

// userMotionState is the per-user stop/move machine:
// NoActiveStop → ActiveStop → NoActiveStop.
type userMotionState struct {
	window          *movementWindow
	activeStop      *model.StopEvent
	stationarySince *time.Time
	motionSince     *time.Time
	lastSeen        time.Time
}

// Classifier watches each user's recent movement and opens/closes
// stop events. It owns StopEvent records and nothing else.
type Classifier struct {
	cfg   Config
	stops repository.StopEventRepository
	log   logging.Logger

	mutex sync.Mutex
	users map[string]*userMotionState
	now   func() time.Time
}

func NewClassifier(cfg Config, stops repository.StopEventRepository, log logging.Logger) *Classifier {
	return &Classifier{
		cfg:   cfg,
		stops: stops,
		log:   log,
		users: make(map[string]*userMotionState),
		now:   time.Now,
	}
}

func (c *Classifier) state(userID string) *userMotionState {
	s, ok := c.users[userID]
	if !ok {
		s = &userMotionState{
			window: newMovementWindow(c.cfg.WindowSpan, c.cfg.WindowMaxPoints),
		}
		c.users[userID] = s
	}
	s.lastSeen = c.now()
	return s
}

// Track feeds one processed point into the user's movement window
// without classifying. Every accepted sample passes through here.
func (c *Classifier) Track(p *model.ProcessedPoint) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.state(p.UserID).window.add(p.SmoothedLat, p.SmoothedLng, p.Speed, p.Timestamp)
}

// Classify runs the stop/move transition for one significant sample.
func (c *Classifier) Classify(p *model.ProcessedPoint) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	s := c.state(p.UserID)
	ws := s.window.stats()

	stationary := p.Speed < c.cfg.MovingSpeedKmh &&
		ws.AvgSpeedKmh < c.cfg.MovingSpeedKmh &&
		ws.TotalDistanceM < c.cfg.StationaryDistanceM

	if stationary {
		s.motionSince = nil
		if s.stationarySince == nil {
			t := p.Timestamp
			s.stationarySince = &t
		}

		stillFor := p.Timestamp.Sub(*s.stationarySince)
		if s.activeStop != nil || stillFor < c.cfg.StopOpenAfter {
			return nil
		}
		return c.openStop(s, p, stillFor, ws)
	}

	s.stationarySince = nil
	if s.motionSince == nil {
		t := p.Timestamp
		s.motionSince = &t
		if s.activeStop == nil {
			// A stop left open by a previous instance must close on
			// the next sustained motion, so adopt it when motion
			// starts, not only when the next stop opens.
			existing, err := c.stops.FindActiveByUserID(p.UserID)
			if err != nil {
				return fmt.Errorf("find active stop: %w", err)
			}
			s.activeStop = existing
		}
		return nil
	}

	if s.activeStop != nil && p.Timestamp.Sub(*s.motionSince) > c.cfg.StopCloseAfter {
		return c.closeStop(s, p)
	}
	return nil
}

func (c *Classifier) openStop(s *userMotionState, p *model.ProcessedPoint, stillFor time.Duration, ws windowStats) error {
	// The in-memory state is per-instance; re-check the store so a
	// restart cannot produce a second active stop for the user.
	existing, err := c.stops.FindActiveByUserID(p.UserID)
	if err != nil {
		return fmt.Errorf("find active stop: %w", err)
	}
	if existing != nil {
		s.activeStop = existing
		return nil
	}

	start := p.Timestamp.Add(-stillFor)
	stop := model.NewStopEvent(p.UserID, p.SmoothedLat, p.SmoothedLng, start, c.confidence(ws))
	if err := c.stops.Create(stop); err != nil {
		return fmt.Errorf("create stop event: %w", err)
	}

	s.activeStop = stop
	c.log.Info("stop event opened",
		"userId", p.UserID, "stopId", stop.ID,
		"stopType", stop.StopType, "confidence", stop.Confidence)
	return nil
}

func (c *Classifier) closeStop(s *userMotionState, p *model.ProcessedPoint) error {
	// End the stop where the motion began, not where it was confirmed.
	s.activeStop.Close(*s.motionSince)
	if err := c.stops.Update(s.activeStop); err != nil {
		return fmt.Errorf("close stop event: %w", err)
	}

	c.log.Info("stop event closed",
		"userId", p.UserID, "stopId", s.activeStop.ID,
		"durationMinutes", s.activeStop.DurationM)
	s.activeStop = nil
	return nil
}

// confidence shrinks from MaxStopConfidence toward MinStopConfidence
// as the window shows more residual speed and drift.
func (c *Classifier) confidence(ws windowStats) float64 {
	conf := c.cfg.MaxStopConfidence
	if c.cfg.MovingSpeedKmh > 0 {
		conf -= 0.15 * (ws.AvgSpeedKmh / c.cfg.MovingSpeedKmh)
	}
	if c.cfg.StationaryDistanceM > 0 {
		conf -= 0.2 * (ws.TotalDistanceM / c.cfg.StationaryDistanceM)
	}
	if conf < c.cfg.MinStopConfidence {
		conf = c.cfg.MinStopConfidence
	}
	return conf
}

// EvictIdle drops per-user window state idle beyond the TTL. Open
// stop events are left alone: they close on the next motion or stay
// for the operator to inspect.
func (c *Classifier) EvictIdle() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cutoff := c.now().Add(-c.cfg.StateTTL)
	evicted := 0
	for id, s := range c.users {
		if s.lastSeen.Before(cutoff) && s.activeStop == nil {
			delete(c.users, id)
			evicted++
		}
	}
	return evicted
}

// Reset discards all in-memory classifier state.
func (c *Classifier) Reset() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	n := len(c.users)
	c.users = make(map[string]*userMotionState)
	return n
}
