package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finpilot/internal/cache"
	"finpilot/internal/core"
	"finpilot/internal/store/memory"
)

type countingGoalStore struct {
	*memory.Store
	gets int
}

func (s *countingGoalStore) GetGoal(ctx context.Context, userID string, year int) (core.Goal, error) {
	s.gets++
	return s.Store.GetGoal(ctx, userID, year)
}

func newGoalService(t *testing.T) (*GoalService, *countingGoalStore) {
	t.Helper()
	st := &countingGoalStore{Store: memory.New()}
	svc := NewGoalService(st, st, cache.NewLRUCache[core.Goal](16, time.Minute), nil)
	svc.now = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }
	return svc, st
}

func TestGoalService_GetMissingReadsEmpty(t *testing.T) {
	svc, _ := newGoalService(t)
	g, err := svc.Get(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if g.Year != 2024 || g.Amount.Cents != 0 || g.Title != "" || g.UserID != "u1" {
		t.Fatalf("expected empty goal for 2024, got %+v", g)
	}
}

func TestGoalService_UpsertInvalidatesCache(t *testing.T) {
	svc, st := newGoalService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "u1", 2024); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, "u1", 2024); err != nil {
		t.Fatal(err)
	}
	if st.gets != 1 {
		t.Fatalf("second read should be cached, store saw %d reads", st.gets)
	}

	if _, err := svc.Upsert(ctx, core.Goal{UserID: "u1", Year: 2024, Amount: core.Money{Cents: 5000}, Title: "Trip"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	g, err := svc.Get(ctx, "u1", 2024)
	if err != nil || g.Amount.Cents != 5000 || g.Title != "Trip" {
		t.Fatalf("expected fresh goal after upsert, got %+v (err=%v)", g, err)
	}

	if _, err := svc.Upsert(ctx, core.Goal{UserID: "u1", Year: 2024, Amount: core.Money{Cents: 9000}, Title: "Car"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	g, _ = svc.Get(ctx, "u1", 2024)
	if g.Amount.Cents != 9000 || g.Title != "Car" {
		t.Fatalf("second upsert should overwrite, got %+v", g)
	}
}

func TestGoalService_Validation(t *testing.T) {
	svc, _ := newGoalService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "", 2024); !errors.Is(err, core.ErrMissingUser) {
		t.Errorf("expected ErrMissingUser, got %v", err)
	}
	if _, err := svc.Upsert(ctx, core.Goal{UserID: "u1", Year: 2024, Amount: core.Money{Cents: -1}}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.Get(ctx, "u1", 12); !errors.Is(err, core.ErrInvalidYear) {
		t.Errorf("expected ErrInvalidYear, got %v", err)
	}
}

func TestGoalService_ProgressAndReached(t *testing.T) {
	st := memory.New()
	txs := NewTransactionService(st, nil, nil)
	goals := NewGoalService(st, st, nil, nil)
	ctx := context.Background()

	create := func(user, typ string, cents int64, date string) {
		t.Helper()
		in := CreateTransactionInput{Type: typ, Amount: core.Money{Cents: cents}, Category: "misc", Date: date}
		if _, err := txs.Create(ctx, user, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	create("u1", "income", 100000, "2024-02-01")
	create("u1", "expense", 40000, "2024-03-01")
	create("u1", "income", 999999, "2023-12-31")
	create("u2", "income", 1000, "2024-02-01")

	goals.Upsert(ctx, core.Goal{UserID: "u1", Year: 2024, Amount: core.Money{Cents: 50000}})
	goals.Upsert(ctx, core.Goal{UserID: "u2", Year: 2024, Amount: core.Money{Cents: 50000}})
	goals.Upsert(ctx, core.Goal{UserID: "u3", Year: 2024})

	p, err := goals.Progress(ctx, "u1", 2024)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Balance.Cents != 60000 || p.Percent != 100 || !p.Reached || p.SavingsRate != 60 {
		t.Fatalf("unexpected progress %+v", p)
	}

	reached, err := goals.Reached(ctx, 2024)
	if err != nil {
		t.Fatalf("reached: %v", err)
	}
	if len(reached) != 1 || reached[0].Goal.UserID != "u1" {
		t.Fatalf("expected only u1 to reach the goal, got %+v", reached)
	}
}
