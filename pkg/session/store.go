package session

import (
	"sync"
	"time"
)

// Store persists the token and login time across restarts.
type Store interface {
	Load() (token string, loginAt time.Time, ok bool, err error)
	Save(token string, loginAt time.Time) error
	Clear() error
}

// MemoryStore keeps the login in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	token   string
	loginAt time.Time
	set     bool
}

func (m *MemoryStore) Load() (string, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.loginAt, m.set, nil
}

func (m *MemoryStore) Save(token string, loginAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.loginAt, m.set = token, loginAt, true
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.loginAt, m.set = "", time.Time{}, false
	return nil
}
