package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"finpilot/internal/cache"
	"finpilot/internal/core"
	"finpilot/internal/log"
	"finpilot/internal/store"
)

const goalCacheSize = 512

// GoalService reads and writes yearly goals and measures progress toward them.
// Reads go through a TTL cache that upserts invalidate.
type GoalService struct {
	goals  store.GoalStore
	txs    store.TransactionStore
	cache  cache.Cache[core.Goal]
	logger *log.Logger
	now    func() time.Time
}

// NewGoalService creates the service. A nil goalCache gets a private LRU
// with a five minute TTL.
func NewGoalService(goals store.GoalStore, txs store.TransactionStore, goalCache cache.Cache[core.Goal], logger *log.Logger) *GoalService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if goalCache == nil {
		goalCache = cache.NewLRUCache[core.Goal](goalCacheSize, 5*time.Minute)
	}
	return &GoalService{
		goals:  goals,
		txs:    txs,
		cache:  goalCache,
		logger: logger.WithComponent(log.ComponentGoal),
		now:    time.Now,
	}
}

func goalKey(userID string, year int) string {
	return userID + ":" + strconv.Itoa(year)
}

func (s *GoalService) year(y int) int {
	if y == 0 {
		return s.now().Year()
	}
	return y
}

// Get returns the goal for userID and year; year 0 means the current year.
// A user without a saved goal reads an empty one.
func (s *GoalService) Get(ctx context.Context, userID string, year int) (core.Goal, error) {
	if userID == "" {
		return core.Goal{}, core.ErrMissingUser
	}
	year = s.year(year)
	if err := core.EmptyGoal(userID, year).Validate(); err != nil {
		return core.Goal{}, err
	}

	key := goalKey(userID, year)
	if g, ok := s.cache.Get(key); ok {
		return g, nil
	}

	g, err := s.goals.GetGoal(ctx, userID, year)
	if errors.Is(err, store.ErrNotFound) {
		g = core.EmptyGoal(userID, year)
	} else if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	s.cache.Set(key, g)
	return g, nil
}

// Upsert overwrites amount and title for (g.UserID, g.Year).
func (s *GoalService) Upsert(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.Year = s.year(g.Year)
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	saved, err := s.goals.UpsertGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	s.cache.Delete(goalKey(saved.UserID, saved.Year))

	s.logger.InfoContext(ctx, "Goal saved",
		log.NewFields().WithOperation(log.OpUpsert).WithUser(saved.UserID).ToSlice()...,
	)
	return saved, nil
}

// Progress compares the goal for year with that calendar year's totals.
func (s *GoalService) Progress(ctx context.Context, userID string, year int) (core.GoalProgress, error) {
	g, err := s.Get(ctx, userID, year)
	if err != nil {
		return core.GoalProgress{}, err
	}
	totals, err := s.yearTotals(ctx, userID, g.Year)
	if err != nil {
		return core.GoalProgress{}, err
	}
	return core.Progress(g, totals), nil
}

func (s *GoalService) yearTotals(ctx context.Context, userID string, year int) (core.Totals, error) {
	r := core.YearRange(year)
	txs, err := s.txs.ListTransactions(ctx, store.TransactionFilter{UserID: userID, Range: &r, All: true})
	if err != nil {
		return core.Totals{}, fmt.Errorf("load transactions: %w", err)
	}
	return core.ComputeTotals(txs, userID, &r)
}

// Reached lists the progress of every user whose positive goal for year is met.
func (s *GoalService) Reached(ctx context.Context, year int) ([]core.GoalProgress, error) {
	year = s.year(year)
	goals, err := s.goals.ListGoals(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.GoalProgress, 0)
	for _, g := range goals {
		if g.Amount.Cents <= 0 {
			continue
		}
		totals, err := s.yearTotals(ctx, g.UserID, year)
		if err != nil {
			return nil, err
		}
		if p := core.Progress(g, totals); p.Reached {
			out = append(out, p)
		}
	}
	return out, nil
}
