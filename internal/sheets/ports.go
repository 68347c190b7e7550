// Package sheets mirrors the transaction ledger into a spreadsheet.
package sheets

import (
	"context"

	"finpilot/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter appends one transaction as a ledger row. Appending a
	// transaction whose id is already present is a no-op that returns the
	// existing row reference.
	LedgerWriter interface {
		AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// LedgerReader returns the transaction ids already mirrored for a year.
	LedgerReader interface {
		MirroredIDs(ctx context.Context, year int) ([]string, error)
	}
)

// Header is the first row of every ledger sheet.
var Header = []string{"Date", "Type", "Category", "Bucket", "Note", "Amount", "User", "ID"}

// Row renders a transaction in Header order.
func Row(t core.Transaction) []any {
	return []any{
		t.Date.UTC().Format("2006-01-02"),
		string(t.Type),
		t.Category,
		string(t.Bucket),
		t.Note,
		t.Amount.String(),
		t.UserID,
		t.ID,
	}
}
