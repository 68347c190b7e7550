package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"finpilot/internal/core"
	"finpilot/internal/store"
	"finpilot/internal/store/memory"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []core.Transaction
	err       error
}

func (p *fakePublisher) PublishTransactionCreated(_ context.Context, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, t)
	return nil
}

func newTxService(pub TransactionPublisher) (*TransactionService, *memory.Store) {
	st := memory.New()
	svc := NewTransactionService(st, pub, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, st
}

func mustCreate(t *testing.T, svc *TransactionService, user, typ, amount, category, note, date string) core.Transaction {
	t.Helper()
	m, err := core.ParseMoney(amount)
	if err != nil {
		t.Fatalf("parse money %q: %v", amount, err)
	}
	tx, err := svc.Create(context.Background(), user, CreateTransactionInput{
		Type: typ, Amount: m, Category: category, Note: note, Date: date,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return tx
}

func TestTransactionService_Create(t *testing.T) {
	pub := &fakePublisher{}
	svc, st := newTxService(pub)

	tx := mustCreate(t, svc, "u1", "Expense", "12.50", "  Dinner ", "with friends", "2024-05-03")
	if tx.ID == "" {
		t.Fatal("expected an id")
	}
	if tx.Bucket != core.BucketFood {
		t.Errorf("expected food bucket, got %s", tx.Bucket)
	}
	if tx.Category != "Dinner" {
		t.Errorf("expected trimmed category, got %q", tx.Category)
	}
	if tx.Amount.Cents != 1250 {
		t.Errorf("expected 1250 cents, got %d", tx.Amount.Cents)
	}
	if _, err := st.GetTransaction(context.Background(), tx.ID); err != nil {
		t.Fatalf("transaction not stored: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0].ID != tx.ID {
		t.Fatalf("expected one published event for %s, got %+v", tx.ID, pub.published)
	}

	income := mustCreate(t, svc, "u1", "income", "100", "restaurant refund", "", "2024-05-04")
	if income.Bucket != core.BucketIncome {
		t.Errorf("income must land in income bucket, got %s", income.Bucket)
	}
}

func TestTransactionService_CreateRejects(t *testing.T) {
	svc, _ := newTxService(nil)
	ctx := context.Background()

	tests := []struct {
		name string
		user string
		in   CreateTransactionInput
		want error
	}{
		{"bad type", "u1", CreateTransactionInput{Type: "transfer", Amount: core.Money{Cents: 100}, Category: "x", Date: "2024-01-01"}, core.ErrInvalidType},
		{"zero amount", "u1", CreateTransactionInput{Type: "expense", Category: "x", Date: "2024-01-01"}, core.ErrInvalidAmount},
		{"negative amount", "u1", CreateTransactionInput{Type: "expense", Amount: core.Money{Cents: -5}, Category: "x", Date: "2024-01-01"}, core.ErrInvalidAmount},
		{"blank category", "u1", CreateTransactionInput{Type: "expense", Amount: core.Money{Cents: 100}, Category: "  ", Date: "2024-01-01"}, core.ErrEmptyCategory},
		{"missing date", "u1", CreateTransactionInput{Type: "expense", Amount: core.Money{Cents: 100}, Category: "x"}, core.ErrMissingDate},
		{"malformed date", "u1", CreateTransactionInput{Type: "expense", Amount: core.Money{Cents: 100}, Category: "x", Date: "yesterday"}, core.ErrInvalidDate},
		{"missing user", "", CreateTransactionInput{Type: "expense", Amount: core.Money{Cents: 100}, Category: "x", Date: "2024-01-01"}, core.ErrMissingUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.user, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTransactionService_ListReturnsWholeSetWithoutLimit(t *testing.T) {
	svc, st := newTxService(nil)
	ctx := context.Background()

	n := store.MaxListLimit + 5
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		tx := core.Transaction{
			ID: fmt.Sprintf("tx-%04d", i), UserID: "demo", Type: core.Expense,
			Amount: core.Money{Cents: 100}, Category: "misc", Bucket: core.BucketMiscellaneous,
			Date: base.Add(time.Duration(i) * time.Minute),
		}
		if err := st.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	list, err := svc.List(ctx, store.TransactionFilter{UserID: "demo"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	totals, err := svc.Stats(ctx, store.TransactionFilter{UserID: "demo"})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(list) != n {
		t.Fatalf("expected %d rows, got %d", n, len(list))
	}
	if totals.Expense.Cents != int64(n)*100 {
		t.Fatalf("expected expense %d cents, got %d", n*100, totals.Expense.Cents)
	}
	if list[0].ID != fmt.Sprintf("tx-%04d", n-1) {
		t.Fatalf("expected newest first, got %s", list[0].ID)
	}

	capped, err := svc.List(ctx, store.TransactionFilter{UserID: "demo", Limit: n})
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(capped) != store.MaxListLimit {
		t.Fatalf("explicit limit must clamp to %d, got %d", store.MaxListLimit, len(capped))
	}
}

func TestTransactionService_CreateTruncatesDateToMillis(t *testing.T) {
	svc, _ := newTxService(nil)
	ctx := context.Background()

	tx := mustCreate(t, svc, "u1", "expense", "3", "tea", "", "2024-01-31T23:59:59.9995Z")
	if tx.Date.Nanosecond() != int(999*time.Millisecond) {
		t.Fatalf("expected millisecond precision, got %v", tx.Date)
	}

	r, _ := core.ResolveRange("2024-01-31", "2024-01-31")
	list, err := svc.List(ctx, store.TransactionFilter{UserID: "u1", Range: r})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected the last-millisecond row inside the day, got %d rows", len(list))
	}
}

func TestTransactionService_PublishFailureIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, st := newTxService(pub)

	tx := mustCreate(t, svc, "u1", "expense", "5", "soap", "", "2024-01-02")
	if _, err := st.GetTransaction(context.Background(), tx.ID); err != nil {
		t.Fatalf("transaction should be stored even when publishing fails: %v", err)
	}
}

func TestTransactionService_ListAndAggregates(t *testing.T) {
	svc, _ := newTxService(nil)
	ctx := context.Background()

	mustCreate(t, svc, "u1", "income", "1000", "salary", "", "2024-01-05")
	mustCreate(t, svc, "u1", "expense", "200", "groceries", "", "2024-01-10")
	mustCreate(t, svc, "u1", "expense", "50", "shirt", "", "2024-02-01")
	mustCreate(t, svc, "u2", "expense", "999", "gold ring", "", "2024-02-01")

	list, err := svc.List(ctx, store.TransactionFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(list))
	}
	if !list[0].Date.After(list[2].Date) {
		t.Errorf("expected newest first, got %v then %v", list[0].Date, list[2].Date)
	}

	food, err := svc.List(ctx, store.TransactionFilter{UserID: "u1", Bucket: core.BucketFood})
	if err != nil || len(food) != 1 || food[0].Category != "groceries" {
		t.Fatalf("bucket filter: got %+v (err=%v)", food, err)
	}

	totals, err := svc.Stats(ctx, store.TransactionFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if totals.Income.Cents != 100000 || totals.Expense.Cents != 25000 || totals.Balance.Cents != 75000 {
		t.Errorf("unexpected totals %+v", totals)
	}

	r, _ := core.ResolveRange("2024-02-01", "2024-02-29")
	feb, err := svc.Stats(ctx, store.TransactionFilter{UserID: "u1", Range: r})
	if err != nil || feb.Expense.Cents != 5000 || feb.Income.Cents != 0 {
		t.Errorf("ranged stats: got %+v (err=%v)", feb, err)
	}

	points, err := svc.Summary(ctx, store.TransactionFilter{UserID: "u1"}, core.Month)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(points) != 2 || points[0].Balance.Cents != 80000 || points[1].Balance.Cents != -5000 {
		t.Errorf("unexpected month summary %+v", points)
	}

	buckets, err := svc.Buckets(ctx, store.TransactionFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("buckets: %v", err)
	}
	if len(buckets) != 2 || buckets[0].Bucket != core.BucketFood || buckets[1].Bucket != core.BucketClothes {
		t.Errorf("unexpected bucket spend %+v", buckets)
	}
}

func TestTransactionService_Trace(t *testing.T) {
	svc, _ := newTxService(nil)
	ctx := context.Background()
	f := store.TransactionFilter{UserID: "u1"}

	empty, err := svc.Trace(ctx, f, TraceFromEvents, core.Day)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil trace, got %v (err=%v)", empty, err)
	}

	mustCreate(t, svc, "u1", "income", "10", "salary", "", "2024-03-01T10:00:00Z")
	single, err := svc.Trace(ctx, f, TraceFromEvents, core.Day)
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if len(single) != 2 || !single[0].Seed || single[1].CumulativeBalance.Cents != 1000 {
		t.Fatalf("expected seed plus one point, got %+v", single)
	}
	if got := single[1].Label.Sub(single[0].Label); got != time.Minute {
		t.Errorf("event seed should be one minute earlier, got %v", got)
	}

	summary, err := svc.Trace(ctx, f, TraceFromSummary, core.Day)
	if err != nil {
		t.Fatalf("trace summary: %v", err)
	}
	if len(summary) != 2 || summary[1].Label.Sub(summary[0].Label) != 24*time.Hour {
		t.Errorf("summary seed should be one day earlier, got %+v", summary)
	}

	if _, err := svc.Trace(ctx, f, TraceSource("bogus"), core.Day); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("expected ErrInvalidSource, got %v", err)
	}
}

func TestTransactionService_Ledger(t *testing.T) {
	svc, _ := newTxService(nil)
	mustCreate(t, svc, "u1", "expense", "1", "a", "", "2024-01-02")
	mustCreate(t, svc, "u1", "expense", "2", "b", "", "2024-01-01")

	txs, err := svc.Ledger(context.Background(), store.TransactionFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(txs) != 2 || txs[0].Category != "b" {
		t.Fatalf("expected oldest first, got %+v", txs)
	}
}

func TestParseTraceSource(t *testing.T) {
	if src, err := ParseTraceSource(""); err != nil || src != TraceFromEvents {
		t.Errorf("empty source: got %q, %v", src, err)
	}
	if src, err := ParseTraceSource("Summary"); err != nil || src != TraceFromSummary {
		t.Errorf("summary source: got %q, %v", src, err)
	}
	if _, err := ParseTraceSource("nope"); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("expected ErrInvalidSource, got %v", err)
	}
}
