package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validTx() Transaction {
	return Transaction{
		UserID:   "demo",
		Type:     Expense,
		Amount:   Money{Cents: 1250},
		Category: "Groceries",
		Date:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestParseTxType(t *testing.T) {
	cases := []struct {
		in   string
		want TxType
		ok   bool
	}{
		{"income", Income, true},
		{" Expense ", Expense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTxType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidType) {
			t.Fatalf("%q expected ErrInvalidType, got %v", tc.in, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTx().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"missing user", func(tx *Transaction) { tx.UserID = " " }, ErrMissingUser},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{"empty category", func(tx *Transaction) { tx.Category = "  " }, ErrEmptyCategory},
		{"long category", func(tx *Transaction) { tx.Category = strings.Repeat("a", 101) }, ErrCategoryTooLong},
		{"long note", func(tx *Transaction) { tx.Note = strings.Repeat("n", 501) }, ErrNoteTooLong},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, ErrMissingDate},
	}
	for _, tc := range cases {
		tx := validTx()
		tc.mutate(&tx)
		if err := tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestTransactionNormalize(t *testing.T) {
	tx := Transaction{UserID: " u1 ", Category: "  Food ", Note: " lunch  "}
	tx.Normalize()
	if tx.UserID != "u1" || tx.Category != "Food" || tx.Note != "lunch" {
		t.Fatalf("unexpected normalized transaction: %+v", tx)
	}
}

func TestGoalValidate(t *testing.T) {
	good := Goal{UserID: "demo", Year: 2025, Amount: Money{Cents: 0}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected zero-amount goal to be valid, got %v", err)
	}
	bads := []Goal{
		{UserID: "", Year: 2025},
		{UserID: "demo", Year: 1900},
		{UserID: "demo", Year: 2025, Amount: Money{Cents: -1}},
		{UserID: "demo", Year: 2025, Title: strings.Repeat("t", 201)},
	}
	for i, g := range bads {
		if err := g.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestEmptyGoal(t *testing.T) {
	g := EmptyGoal("demo", 2024)
	if g.UserID != "demo" || g.Year != 2024 || g.Amount.Cents != 0 || g.Title != "" {
		t.Fatalf("unexpected empty goal: %+v", g)
	}
}

func TestUserValidate(t *testing.T) {
	u := User{Name: "Asha", UPIID: "asha@upi", Phone: "9999999999"}
	if err := u.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	u.Phone = ""
	if err := u.Validate(); !errors.Is(err, ErrEmptyPhone) {
		t.Fatalf("expected ErrEmptyPhone, got %v", err)
	}
	if err := ValidatePassword("12345"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}
