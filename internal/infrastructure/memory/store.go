package memory

import (
	"context"
	"sync"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/internal/domain/repository"
)

// Store is an in-memory entity store. It owns its id counters, so every
// Store starts numbering at 1 independently of any other instance.
type Store struct {
	mu sync.RWMutex

	users      map[int64]entity.User
	usernames  map[string]int64
	bars       map[int64]entity.Bar
	barOrder   []int64
	nextUserID int64
	nextBarID  int64
}

func NewStore() *Store {
	return &Store{
		users:      map[int64]entity.User{},
		usernames:  map[string]int64{},
		bars:       map[int64]entity.Bar{},
		nextUserID: 1,
		nextBarID:  1,
	}
}

func cloneUser(u entity.User) *entity.User {
	if u.BarID != nil {
		id := *u.BarID
		u.BarID = &id
	}
	return &u
}

func (s *Store) CreateUser(_ context.Context, in entity.NewUser) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usernames[in.Username]; ok {
		return nil, repository.ErrConflict
	}
	id := s.nextUserID
	s.nextUserID++
	u := entity.User{
		ID:        id,
		Username:  in.Username,
		Password:  in.Password,
		IsBouncer: true,
	}
	if in.BarID != nil {
		barID := *in.BarID
		u.BarID = &barID
	}
	s.users[id] = u
	s.usernames[u.Username] = id
	return cloneUser(u), nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernames[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *Store) CreateBar(_ context.Context, in entity.NewBar) (*entity.Bar, error) {
	if !in.Valid() {
		return nil, repository.ErrInvalidBar
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextBarID
	s.nextBarID++
	b := entity.Bar{
		ID:           id,
		Name:         in.Name,
		CurrentCount: in.CurrentCount,
		Capacity:     in.Capacity,
		Address:      in.Address,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
	}
	s.bars[id] = b
	s.barOrder = append(s.barOrder, id)
	return &b, nil
}

func (s *Store) GetAllBars(_ context.Context) ([]entity.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Bar, 0, len(s.barOrder))
	for _, id := range s.barOrder {
		out = append(out, s.bars[id])
	}
	return out, nil
}

func (s *Store) GetBar(_ context.Context, id int64) (*entity.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bars[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (s *Store) UpdateBarCount(_ context.Context, id int64, count int) (*entity.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bars[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b.CurrentCount = count
	s.bars[id] = b
	return &b, nil
}

var _ repository.Storage = (*Store)(nil)
