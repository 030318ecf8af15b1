package repository

import (
	"sync"
	"time"

	"fieldtrack/internal/core/model"
)

type inMemoryLiveLocationRepository struct {
	states map[string]*model.LiveLocationState
	mutex  sync.RWMutex
}

func NewInMemoryLiveLocationRepository() LiveLocationRepository {
	return &inMemoryLiveLocationRepository{
		states: make(map[string]*model.LiveLocationState),
	}
}

func (r *inMemoryLiveLocationRepository) Upsert(state *model.LiveLocationState) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	copied := *state
	r.states[state.UserID] = &copied
	return nil
}

func (r *inMemoryLiveLocationRepository) FindByUserID(userID string) (*model.LiveLocationState, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if state, exists := r.states[userID]; exists {
		copied := *state
		return &copied, nil
	}
	return nil, nil
}

func (r *inMemoryLiveLocationRepository) FindUpdatedSince(since time.Time) ([]*model.LiveLocationState, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*model.LiveLocationState
	for _, state := range r.states {
		if !state.LastUpdated.Before(since) {
			copied := *state
			result = append(result, &copied)
		}
	}
	return result, nil
}
