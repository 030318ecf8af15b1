package repository

import (
	"sort"
	"sync"
	"time"

	"fieldtrack/internal/core/model"
)

type inMemoryStopEventRepository struct {
	events map[string]*model.StopEvent
	mutex  sync.RWMutex
}

func NewInMemoryStopEventRepository() StopEventRepository {
	return &inMemoryStopEventRepository{
		events: make(map[string]*model.StopEvent),
	}
}

func (r *inMemoryStopEventRepository) Create(event *model.StopEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *inMemoryStopEventRepository) Update(event *model.StopEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *inMemoryStopEventRepository) FindActiveByUserID(userID string) (*model.StopEvent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, event := range r.events {
		if event.UserID == userID && event.IsActive {
			copied := *event
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *inMemoryStopEventRepository) FindByUserAndRange(userID string, from, to time.Time) ([]*model.StopEvent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*model.StopEvent
	for _, event := range r.events {
		if event.UserID != userID {
			continue
		}
		if !event.StartTime.Before(from) && event.StartTime.Before(to) {
			copied := *event
			result = append(result, &copied)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}
