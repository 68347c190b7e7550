// Package store declares the persistence ports the services depend on.
package store

import (
	"context"
	"errors"
	"strings"

	"finpilot/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// MaxListLimit caps an explicit list limit.
const MaxListLimit = 1000

// TransactionFilter selects a user's transactions. Zero fields do not filter.
// A nil Range means no date predicate at all.
type TransactionFilter struct {
	UserID   string
	Range    *core.Range
	Type     core.TxType
	Category string
	Bucket   core.Bucket
	Limit    int
	// All lifts the row cap; aggregation reads the whole filtered set.
	All      bool
}

// Matches applies the filter to one transaction in memory.
func (f TransactionFilter) Matches(t core.Transaction) bool {
	if t.UserID != f.UserID {
		return false
	}
	if !f.Range.Contains(t.Date) {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Bucket != "" && t.Bucket != f.Bucket {
		return false
	}
	return true
}

// EffectiveLimit is the row cap; 0 means every matching row. An unset
// Limit returns everything, an explicit one is clamped to MaxListLimit.
func (f TransactionFilter) EffectiveLimit() int {
	if f.All || f.Limit <= 0 {
		return 0
	}
	return min(f.Limit, MaxListLimit)
}

// UserLookup finds a user by UPI id or phone; the first non-empty field is used.
type UserLookup struct {
	UPIID string
	Phone string
}

func (l UserLookup) Empty() bool {
	return strings.TrimSpace(l.UPIID) == "" && strings.TrimSpace(l.Phone) == ""
}

// Ports for outbound adapters.
type (
	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) error
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		// ListTransactions returns matches newest first.
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	}

	GoalStore interface {
		GetGoal(ctx context.Context, userID string, year int) (core.Goal, error)
		// UpsertGoal overwrites amount and title for (userID, year).
		UpsertGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		ListGoals(ctx context.Context, year int) ([]core.Goal, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		GetUser(ctx context.Context, id string) (core.User, error)
		FindUser(ctx context.Context, l UserLookup) (core.User, error)
		UpdatePassword(ctx context.Context, id, hash string) error
		ListUsers(ctx context.Context) ([]core.User, error)
	}

	Store interface {
		TransactionStore
		GoalStore
		UserStore
		Ping(ctx context.Context) error
		Close() error
	}
)
