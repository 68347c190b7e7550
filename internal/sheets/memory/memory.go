package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"finpilot/internal/core"
	ports "finpilot/internal/sheets"
)

// Ledger keeps mirrored rows in memory, one slice per year.
type Ledger struct {
	mu   sync.Mutex
	rows map[int][]core.Transaction
}

var (
	_ ports.LedgerWriter = (*Ledger)(nil)
	_ ports.LedgerReader = (*Ledger)(nil)
)

func New() *Ledger {
	return &Ledger{rows: make(map[int][]core.Transaction)}
}

// AppendTransaction stores t and returns a synthetic row reference.
func (l *Ledger) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", errors.New("transaction without id")
	}
	year := t.Date.UTC().Year()

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.rows[year] {
		if r.ID == t.ID {
			return ref(year, i), nil
		}
	}
	l.rows[year] = append(l.rows[year], t)
	return ref(year, len(l.rows[year])-1), nil
}

func (l *Ledger) MirroredIDs(_ context.Context, year int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.rows[year]))
	for _, r := range l.rows[year] {
		out = append(out, r.ID)
	}
	return out, nil
}

// Rows returns a copy of the rows mirrored for year.
func (l *Ledger) Rows(year int) []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Transaction(nil), l.rows[year]...)
}

// row 1 is the header
func ref(year, i int) string {
	return fmt.Sprintf("mem:%d:%d", year, i+2)
}
