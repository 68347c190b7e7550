package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"finpilot/internal/amqp"
	"finpilot/internal/core"
	"finpilot/internal/log"
	sheetsmem "finpilot/internal/sheets/memory"
	"finpilot/internal/store/memory"
)

type failingLedger struct{}

func (failingLedger) AppendTransaction(context.Context, core.Transaction) (string, error) {
	return "", errors.New("quota exceeded")
}

func sampleTx(id, user string, day int) core.Transaction {
	return core.Transaction{
		ID:       id,
		UserID:   user,
		Type:     core.Expense,
		Amount:   core.Money{Cents: 500},
		Category: "milk",
		Bucket:   core.BucketDailyNeeds,
		Date:     time.Date(2024, 4, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestLedgerMirror_AppendsOnce(t *testing.T) {
	ledger := sheetsmem.New()
	m := NewLedgerMirror(ledger, log.Discard())
	msg := amqp.NewTransactionCreatedMessage(sampleTx("t1", "u1", 2))

	if err := m.HandleTransactionCreated(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	// redelivery
	if err := m.HandleTransactionCreated(context.Background(), msg); err != nil {
		t.Fatalf("handle again: %v", err)
	}
	if rows := ledger.Rows(2024); len(rows) != 1 || rows[0].ID != "t1" {
		t.Fatalf("expected one mirrored row, got %+v", rows)
	}
}

func TestLedgerMirror_ErrorRequeues(t *testing.T) {
	m := NewLedgerMirror(failingLedger{}, log.Discard())
	err := m.HandleTransactionCreated(context.Background(), amqp.NewTransactionCreatedMessage(sampleTx("t1", "u1", 2)))
	if err == nil {
		t.Fatal("expected an error so the message is redelivered")
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	for _, tx := range []core.Transaction{sampleTx("t1", "u1", 1), sampleTx("t2", "u1", 2), sampleTx("t3", "demo", 3)} {
		if err := st.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}
	ledger := sheetsmem.New()
	if _, err := ledger.AppendTransaction(ctx, sampleTx("t1", "u1", 1)); err != nil {
		t.Fatal(err)
	}

	res, err := Reconcile(ctx, st, ledger, 2024, []string{"u1", "demo"}, log.Discard())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Checked != 3 || res.Appended != 2 || res.Errors != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	rows := ledger.Rows(2024)
	if len(rows) != 3 || rows[1].ID != "t2" || rows[2].ID != "t3" {
		t.Fatalf("unexpected ledger order %+v", rows)
	}
}

func TestReconcileUsers(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	if err := st.CreateUser(ctx, core.User{ID: "u1", Name: "A", UPIID: "a@x", Phone: "1"}); err != nil {
		t.Fatal(err)
	}
	ids, err := ReconcileUsers(ctx, st, "demo")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "demo" {
		t.Fatalf("unexpected ids %v", ids)
	}
}
