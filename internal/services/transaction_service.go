package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"finpilot/internal/core"
	"finpilot/internal/log"
	"finpilot/internal/store"
)

var ErrInvalidSource = errors.New("source must be events or summary")

// TransactionPublisher announces stored transactions to other processes.
type TransactionPublisher interface {
	PublishTransactionCreated(ctx context.Context, t core.Transaction) error
}

// TraceSource picks what the running balance is built from.
type TraceSource string

const (
	TraceFromEvents  TraceSource = "events"
	TraceFromSummary TraceSource = "summary"
)

// ParseTraceSource defaults to events when s is empty.
func ParseTraceSource(s string) (TraceSource, error) {
	switch src := TraceSource(strings.ToLower(strings.TrimSpace(s))); src {
	case "":
		return TraceFromEvents, nil
	case TraceFromEvents, TraceFromSummary:
		return src, nil
	}
	return "", ErrInvalidSource
}

// CreateTransactionInput is the payload accepted for a new transaction.
// Date is kept as text so a malformed value surfaces as core.ErrInvalidDate.
type CreateTransactionInput struct {
	Type     string     `json:"type"`
	Amount   core.Money `json:"amount"`
	Category string     `json:"category"`
	Note     string     `json:"note"`
	Date     string     `json:"date"`
	UserID   string     `json:"userId"`
}

// TransactionService validates, classifies and stores transactions and
// serves the aggregated views over them.
type TransactionService struct {
	store     store.TransactionStore
	publisher TransactionPublisher
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

// NewTransactionService wires the service. publisher may be nil, in which
// case no events are emitted.
func NewTransactionService(s store.TransactionStore, publisher TransactionPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TransactionService{
		store:     s,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentTransaction),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Create stores a transaction for userID. The bucket is assigned here once
// and never recomputed.
func (s *TransactionService) Create(ctx context.Context, userID string, in CreateTransactionInput) (core.Transaction, error) {
	typ, err := core.ParseTxType(in.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	if strings.TrimSpace(in.Date) == "" {
		return core.Transaction{}, core.ErrMissingDate
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		UserID:   userID,
		Type:     typ,
		Amount:   in.Amount,
		Category: in.Category,
		Note:     in.Note,
		Date:     date.UTC().Truncate(time.Millisecond),
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	t.Bucket = core.Classify(t.Type, t.Category, t.Note)
	t.ID = s.newID()
	t.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	log.NewStructuredLogger(s.logger).LogTransactionCreated(ctx,
		t.UserID, t.ID, string(t.Type), t.Amount.Cents, t.Category, string(t.Bucket))

	// The transaction is stored; a lost event only delays the ledger mirror.
	if s.publisher != nil {
		if err := s.publisher.PublishTransactionCreated(ctx, t); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish transaction event",
				log.FieldTxID, t.ID, log.FieldError, err)
		}
	}
	return t, nil
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// List returns the filtered transactions newest first. Without a limit the
// whole filtered set comes back.
func (s *TransactionService) List(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	if f.UserID == "" {
		return nil, core.ErrMissingUser
	}
	txs, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// all reads the whole filtered set for aggregation.
func (s *TransactionService) all(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	if f.UserID == "" {
		return nil, core.ErrMissingUser
	}
	f.All = true
	f.Limit = 0
	txs, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) Stats(ctx context.Context, f store.TransactionFilter) (core.Totals, error) {
	txs, err := s.all(ctx, f)
	if err != nil {
		return core.Totals{}, err
	}
	return core.ComputeTotals(txs, f.UserID, f.Range)
}

func (s *TransactionService) Summary(ctx context.Context, f store.TransactionFilter, g core.Granularity) ([]core.AggregatePoint, error) {
	txs, err := s.all(ctx, f)
	if err != nil {
		return nil, err
	}
	return core.Summarize(txs, f.UserID, f.Range, g)
}

// Buckets reports expense spending per bucket. Type and bucket filters are
// ignored; the view is always over expenses.
func (s *TransactionService) Buckets(ctx context.Context, f store.TransactionFilter) ([]core.BucketSpend, error) {
	f.Type = core.Expense
	f.Bucket = ""
	txs, err := s.all(ctx, f)
	if err != nil {
		return nil, err
	}
	return core.SpendingByBucket(txs, f.UserID, f.Range)
}

// Trace builds the running balance either from individual transactions or
// from the summary points at granularity g.
func (s *TransactionService) Trace(ctx context.Context, f store.TransactionFilter, src TraceSource, g core.Granularity) ([]core.RunningBalancePoint, error) {
	txs, err := s.all(ctx, f)
	if err != nil {
		return nil, err
	}
	switch src {
	case TraceFromSummary:
		points, err := core.Summarize(txs, f.UserID, f.Range, g)
		if err != nil {
			return nil, err
		}
		return core.BuildRunningBalance(nil, points), nil
	case TraceFromEvents, "":
		return core.BuildRunningBalance(core.EventsFrom(txs), nil), nil
	default:
		return nil, ErrInvalidSource
	}
}

// Ledger returns the filtered set oldest first, uncapped, for exports.
func (s *TransactionService) Ledger(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.all(ctx, f)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
	return txs, nil
}
