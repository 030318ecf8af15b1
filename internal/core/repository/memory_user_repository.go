package repository

import "sync"

func NewInMemoryUserDirectory() *InMemoryUserDirectory {
	return &InMemoryUserDirectory{
		users: make(map[string]*UserRecord),
	}
}

// InMemoryUserDirectory is exported so tests can seed users.
type InMemoryUserDirectory struct {
	users map[string]*UserRecord
	mutex sync.RWMutex
}

func (r *InMemoryUserDirectory) Add(userID string, isActive bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.users[userID] = &UserRecord{ID: userID, IsActive: isActive}
}

func (r *InMemoryUserDirectory) FindByID(userID string) (*UserRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if user, exists := r.users[userID]; exists {
		copied := *user
		return &copied, nil
	}
	return nil, nil
}
