package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"finpilot/internal/core"
	"finpilot/internal/store"
)

const defaultRecent = 5

// Dashboard bundles the reads behind the overview page.
type Dashboard struct {
	Recent  []core.Transaction    `json:"recent"`
	Totals  core.Totals           `json:"totals"`
	Summary []core.AggregatePoint `json:"summary"`
	Goal    core.GoalProgress     `json:"goal"`
}

type DashboardQuery struct {
	UserID      string
	Range       *core.Range
	Granularity core.Granularity
	Recent      int
	Year        int
}

type DashboardService struct {
	txs   *TransactionService
	goals *GoalService
}

func NewDashboardService(txs *TransactionService, goals *GoalService) *DashboardService {
	return &DashboardService{txs: txs, goals: goals}
}

// Load runs the four reads concurrently. The first failure cancels the rest
// and fails the whole dashboard.
func (s *DashboardService) Load(ctx context.Context, q DashboardQuery) (Dashboard, error) {
	if q.UserID == "" {
		return Dashboard{}, core.ErrMissingUser
	}
	if q.Recent <= 0 {
		q.Recent = defaultRecent
	}
	f := store.TransactionFilter{UserID: q.UserID, Range: q.Range}

	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recent := f
		recent.Limit = q.Recent
		txs, err := s.txs.List(ctx, recent)
		d.Recent = txs
		return err
	})
	g.Go(func() error {
		totals, err := s.txs.Stats(ctx, f)
		d.Totals = totals
		return err
	})
	g.Go(func() error {
		points, err := s.txs.Summary(ctx, f, q.Granularity)
		d.Summary = points
		return err
	})
	g.Go(func() error {
		p, err := s.goals.Progress(ctx, q.UserID, q.Year)
		d.Goal = p
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
