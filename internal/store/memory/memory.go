// Package memory is a mutex-guarded in-process store, used for local runs
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"finpilot/internal/core"
	"finpilot/internal/store"
)

type goalKey struct {
	userID string
	year   int
}

type Store struct {
	mu    sync.RWMutex
	txs   []core.Transaction
	goals map[goalKey]core.Goal
	users []core.User
	now   func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{goals: make(map[goalKey]core.Goal), now: time.Now}
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.txs {
		if existing.ID == t.ID {
			return store.ErrConflict
		}
	}
	s.txs = append(s.txs, t)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) ListTransactions(_ context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	out := make([]core.Transaction, 0)
	for _, t := range s.txs {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit := f.EffectiveLimit(); limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetGoal(_ context.Context, userID string, year int) (core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[goalKey{userID, year}]
	if !ok {
		return core.Goal{}, store.ErrNotFound
	}
	return g, nil
}

func (s *Store) UpsertGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.UpdatedAt = s.now().UTC()
	s.goals[goalKey{g.UserID, g.Year}] = g
	return g, nil
}

func (s *Store) ListGoals(_ context.Context, year int) ([]core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Goal, 0)
	for k, g := range s.goals {
		if k.year == year {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.ID == u.ID || existing.UPIID == u.UPIID || existing.Phone == u.Phone {
			return store.ErrConflict
		}
	}
	s.users = append(s.users, u)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, store.ErrNotFound
}

func (s *Store) FindUser(_ context.Context, l store.UserLookup) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if l.UPIID != "" {
			if u.UPIID == l.UPIID {
				return u, nil
			}
			continue
		}
		if l.Phone != "" && u.Phone == l.Phone {
			return u, nil
		}
	}
	return core.User{}, store.ErrNotFound
}

func (s *Store) UpdatePassword(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].PasswordHash = hash
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append(make([]core.User, 0, len(s.users)), s.users...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
