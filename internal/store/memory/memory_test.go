package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"finpilot/internal/core"
	"finpilot/internal/store"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 10, 0, 0, 0, time.UTC)
}

func TestStoreListNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i, d := range []int{2, 5, 1} {
		tx := core.Transaction{
			ID: string(rune('a' + i)), UserID: "demo", Type: core.Expense,
			Amount: core.Money{Cents: 100}, Category: "x", Bucket: core.BucketMiscellaneous, Date: day(d),
		}
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	got, err := s.ListTransactions(ctx, store.TransactionFilter{UserID: "demo"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].Date.Day() != 5 || got[2].Date.Day() != 1 {
		t.Fatalf("expected newest first, got %+v", got)
	}

	got, _ = s.ListTransactions(ctx, store.TransactionFilter{UserID: "demo", Limit: 2})
	if len(got) != 2 {
		t.Fatalf("expected limit 2, got %d", len(got))
	}

	none, _ := s.ListTransactions(ctx, store.TransactionFilter{UserID: "nobody"})
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}

	if err := s.CreateTransaction(ctx, core.Transaction{ID: "a"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate id, got %v", err)
	}
	if _, err := s.GetTransaction(ctx, "zzz"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreListBreaksDateTiesByCreation(t *testing.T) {
	s := New()
	ctx := context.Background()
	created := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		tx := core.Transaction{
			ID: id, UserID: "demo", Type: core.Expense, Amount: core.Money{Cents: 100},
			Category: "x", Bucket: core.BucketMiscellaneous, Date: day(4),
			CreatedAt: created.Add(time.Duration(i) * time.Second),
		}
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	got, err := s.ListTransactions(ctx, store.TransactionFilter{UserID: "demo"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].ID != "third" || got[2].ID != "first" {
		t.Fatalf("expected latest created first on equal dates, got %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestStoreGoalUpsert(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.GetGoal(ctx, "demo", 2024); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpsertGoal(ctx, core.Goal{UserID: "demo", Year: 2024, Amount: core.Money{Cents: 100}, Title: "first"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertGoal(ctx, core.Goal{UserID: "demo", Year: 2024, Amount: core.Money{Cents: 500}, Title: "second"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	g, err := s.GetGoal(ctx, "demo", 2024)
	if err != nil || g.Amount.Cents != 500 || g.Title != "second" {
		t.Fatalf("expected overwritten goal, got %+v (err=%v)", g, err)
	}
	goals, _ := s.ListGoals(ctx, 2024)
	if len(goals) != 1 {
		t.Fatalf("expected one goal per user and year, got %d", len(goals))
	}
}

func TestStoreUsers(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := core.User{ID: "u1", Name: "Asha", UPIID: "asha@upi", Phone: "9000000001", PasswordHash: "h1"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := core.User{ID: "u2", Name: "Other", UPIID: "asha@upi", Phone: "9000000002"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict on upi id, got %v", err)
	}
	// UPI ids are normalized by the user service; the store matches exactly,
	// like the SQL repository's unique index.
	if _, err := s.FindUser(ctx, store.UserLookup{UPIID: "ASHA@upi"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected exact upi match, got %v", err)
	}

	found, err := s.FindUser(ctx, store.UserLookup{Phone: "9000000001"})
	if err != nil || found.ID != "u1" {
		t.Fatalf("expected to find by phone, got %+v (err=%v)", found, err)
	}
	if err := s.UpdatePassword(ctx, "u1", "h2"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	got, _ := s.GetUser(ctx, "u1")
	if got.PasswordHash != "h2" {
		t.Fatalf("expected updated hash, got %q", got.PasswordHash)
	}
	if err := s.UpdatePassword(ctx, "missing", "h"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
