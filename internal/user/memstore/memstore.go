// Package memstore is an in-process user.Store used for development and tests.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"stocktracker/internal/user"
)

type Store struct {
	// Now is the clock used for timestamps. Defaults to time.Now.
	Now func() time.Time

	mu      sync.RWMutex
	byID    map[string]user.User
	byEmail map[string]string // email -> id
}

func New() *Store {
	return &Store{
		byID:    make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) Create(_ context.Context, u user.User) (user.User, error) {
	u.Email = user.NormalizeEmail(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[u.Email]; taken {
		return user.User{}, user.ErrEmailTaken
	}
	now := s.now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Watchlist = cloneList(u.Watchlist)
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return copyUser(u), nil
}

func (s *Store) ByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return copyUser(s.byID[id]), nil
}

func (s *Store) ByID(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *Store) SetWatchlist(_ context.Context, id string, watchlist []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	u.Watchlist = cloneList(watchlist)
	u.UpdatedAt = s.now().UTC()
	s.byID[id] = u
	return cloneList(u.Watchlist), nil
}

func copyUser(u user.User) user.User {
	u.Watchlist = cloneList(u.Watchlist)
	return u
}

// cloneList never returns nil so encoders emit [] rather than null.
func cloneList(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
