package worker

import (
	"context"
	"fmt"
	"time"

	"finpilot/internal/amqp"
	"finpilot/internal/core"
	"finpilot/internal/log"
	"finpilot/internal/sheets"
	"finpilot/internal/store"
)

// LedgerMirror copies created transactions into the spreadsheet ledger.
type LedgerMirror struct {
	ledger sheets.LedgerWriter
	logger *log.Logger
}

func NewLedgerMirror(ledger sheets.LedgerWriter, logger *log.Logger) *LedgerMirror {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerMirror{ledger: ledger, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleTransactionCreated is the amqp.Handler for transaction.created.
// An error makes the broker redeliver; the ledger skips ids it already has.
func (m *LedgerMirror) HandleTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	t := msg.Transaction
	m.logger.InfoContext(ctx, "Processing transaction event",
		log.FieldTxID, t.ID, log.FieldUserID, t.UserID, "published_at", msg.Timestamp)

	ref, err := m.ledger.AppendTransaction(ctx, t)
	if err != nil {
		return fmt.Errorf("append to ledger: %w", err)
	}
	m.logger.InfoContext(ctx, "Transaction mirrored",
		log.NewFields().
			WithOperation(log.OpAppend).
			WithTransaction(t.ID, string(t.Type), t.Amount.Cents, t.Category, string(t.Bucket)).
			WithUser(t.UserID).
			ToSlice()...)
	m.logger.DebugContext(ctx, "Ledger row", log.FieldTxID, t.ID, "sheets_ref", ref)
	return nil
}

// ReconcileResult counts what a reconcile pass did.
type ReconcileResult struct {
	Checked  int
	Appended int
	Errors   int
}

// Reconcile appends every transaction of year for the given users that the
// ledger is missing. It recovers events lost while the worker was down.
func Reconcile(ctx context.Context, txs store.TransactionStore, ledger interface {
	sheets.LedgerWriter
	sheets.LedgerReader
}, year int, userIDs []string, logger *log.Logger) (ReconcileResult, error) {
	var res ReconcileResult

	mirrored, err := ledger.MirroredIDs(ctx, year)
	if err != nil {
		return res, fmt.Errorf("read mirrored ids: %w", err)
	}
	seen := make(map[string]struct{}, len(mirrored))
	for _, id := range mirrored {
		seen[id] = struct{}{}
	}

	r := core.YearRange(year)
	for _, userID := range userIDs {
		list, err := txs.ListTransactions(ctx, store.TransactionFilter{UserID: userID, Range: &r, All: true})
		if err != nil {
			return res, fmt.Errorf("list transactions for %s: %w", userID, err)
		}
		// oldest first so the ledger stays chronological
		for i := len(list) - 1; i >= 0; i-- {
			t := list[i]
			res.Checked++
			if _, ok := seen[t.ID]; ok {
				continue
			}
			if _, err := ledger.AppendTransaction(ctx, t); err != nil {
				logger.ErrorContext(ctx, "Failed to mirror transaction during reconcile",
					log.FieldTxID, t.ID, log.FieldError, err)
				res.Errors++
				continue
			}
			seen[t.ID] = struct{}{}
			res.Appended++
		}
	}

	logger.InfoContext(ctx, "Ledger reconcile completed",
		log.FieldYear, year,
		"checked", res.Checked,
		"appended", res.Appended,
		"errors", res.Errors)
	return res, nil
}

// ReconcileUsers lists the ids reconcile should cover: every registered user
// plus the fallback owner used for unauthenticated requests.
func ReconcileUsers(ctx context.Context, users store.UserStore, defaultUserID string) ([]string, error) {
	list, err := users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]string, 0, len(list)+1)
	found := false
	for _, u := range list {
		out = append(out, u.ID)
		found = found || u.ID == defaultUserID
	}
	if defaultUserID != "" && !found {
		out = append(out, defaultUserID)
	}
	return out, nil
}

func currentYear(now func() time.Time) int {
	return now().UTC().Year()
}
