package fanout

import (
	"context"
	"sync"
	"sync/atomic"

	"fieldtrack/internal/core/model"
	"fieldtrack/internal/logging"
)

// AllUsers subscribes to every user's updates.
const AllUsers = "*"

// Update is one processed-point broadcast.
type Update struct {
	UserID    string               `json:"userId"`
	Point     model.ProcessedPoint `json:"point"`
	DistanceM float64              `json:"distanceMeters"`
	IsMoving  bool                 `json:"isMoving"`
}

// Publisher pushes updates to live observers. Delivery is best-effort
// at-most-once; callers never treat a publish failure as fatal.
type Publisher interface {
	Publish(ctx context.Context, update Update) error
}

const subscriberBuffer = 16

// Subscription is one observer's feed. Updates the observer is too
// slow to drain are dropped; reconnecting clients fetch current state
// through the live-location read path instead of a backlog.
type Subscription struct {
	C      chan Update
	userID string
	hub    *Hub
	once   sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mutex.Lock()
		delete(s.hub.subscribers, s)
		s.hub.mutex.Unlock()
		close(s.C)
	})
}

// Hub is the in-process broadcast broker. Many workers publish, many
// dashboard connections subscribe.
type Hub struct {
	log         logging.Logger
	mutex       sync.RWMutex
	subscribers map[*Subscription]struct{}
	dropped     atomic.Int64
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{
		log:         log,
		subscribers: make(map[*Subscription]struct{}),
	}
}

// Subscribe registers an observer for one user's updates, or all
// users with AllUsers.
func (h *Hub) Subscribe(userID string) *Subscription {
	sub := &Subscription{
		C:      make(chan Update, subscriberBuffer),
		userID: userID,
		hub:    h,
	}

	h.mutex.Lock()
	h.subscribers[sub] = struct{}{}
	h.mutex.Unlock()
	return sub
}

// Publish fans the update out to matching subscribers. Slow consumers
// lose the update rather than stalling the pipeline.
func (h *Hub) Publish(_ context.Context, update Update) error {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for sub := range h.subscribers {
		if sub.userID != AllUsers && sub.userID != update.UserID {
			continue
		}
		select {
		case sub.C <- update:
		default:
			h.dropped.Add(1)
			h.log.Debug("dropping update for slow subscriber", "userId", update.UserID)
		}
	}
	return nil
}

// SubscriberCount reports how many observers are attached.
func (h *Hub) SubscriberCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.subscribers)
}

// Tee publishes to several publishers, keeping the first error but
// attempting all of them.
type Tee []Publisher

func (t Tee) Publish(ctx context.Context, update Update) error {
	var first error
	for _, p := range t {
		if err := p.Publish(ctx, update); err != nil && first == nil {
			first = err
		}
	}
	return first
}
