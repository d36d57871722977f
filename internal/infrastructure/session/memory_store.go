package session

import (
	"context"
	"sync"
	"time"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/internal/domain/repository"
)

// MemoryStore keeps sessions in process memory. Expired entries are
// dropped lazily on read and by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]entity.Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]entity.Session{}, now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s entity.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl > 0 {
		s.ExpiresAt = m.now().Add(ttl)
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !s.ExpiresAt.IsZero() && !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, id)
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, s := range m.sessions {
		if !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

var _ repository.SessionRepository = (*MemoryStore)(nil)
