package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"finpilot/internal/core"
	"finpilot/internal/log"
	"finpilot/internal/notify"
)

// ReachedGoals lists goals met in a year.
type ReachedGoals interface {
	Reached(ctx context.Context, year int) ([]core.GoalProgress, error)
}

// GoalChecker runs the goal check on a cron schedule and notifies each
// reached goal once per process lifetime.
type GoalChecker struct {
	goals    ReachedGoals
	notifier notify.Notifier
	schedule string
	logger   *log.Logger
	now      func() time.Time

	mu       sync.Mutex
	running  bool
	cron     *cron.Cron
	notified map[string]struct{}
}

func NewGoalChecker(goals ReachedGoals, notifier notify.Notifier, schedule string, logger *log.Logger) *GoalChecker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &GoalChecker{
		goals:    goals,
		notifier: notifier,
		schedule: schedule,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
		notified: make(map[string]struct{}),
	}
}

// Check notifies every newly reached goal of the current year and returns
// how many notifications went out.
func (g *GoalChecker) Check(ctx context.Context) (int, error) {
	year := currentYear(g.now)
	reached, err := g.goals.Reached(ctx, year)
	if err != nil {
		return 0, fmt.Errorf("load reached goals: %w", err)
	}

	sent := 0
	for _, p := range reached {
		key := p.Goal.UserID + ":" + strconv.Itoa(p.Goal.Year)
		// Reserve the key before sending so an overlapping check skips it.
		g.mu.Lock()
		_, done := g.notified[key]
		if !done {
			g.notified[key] = struct{}{}
		}
		g.mu.Unlock()
		if done {
			continue
		}
		if err := g.notifier.GoalReached(ctx, p); err != nil {
			g.mu.Lock()
			delete(g.notified, key)
			g.mu.Unlock()
			g.logger.ErrorContext(ctx, "Goal notification failed",
				log.FieldUserID, p.Goal.UserID, log.FieldError, err)
			continue
		}
		sent++
	}

	g.logger.InfoContext(ctx, "Goal check completed",
		log.FieldYear, year, "reached", len(reached), "notified", sent)
	return sent, nil
}

// Start schedules Check. Returns an error if already running or if the
// schedule does not parse.
func (g *GoalChecker) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return fmt.Errorf("goal checker is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(g.schedule, func() {
		if _, err := g.Check(ctx); err != nil {
			g.logger.ErrorContext(ctx, "Scheduled goal check failed", log.FieldError, err)
		}
	}); err != nil {
		return fmt.Errorf("invalid goal check schedule %q: %w", g.schedule, err)
	}
	c.Start()
	g.cron = c
	g.running = true

	g.logger.InfoContext(ctx, "Goal checker started", "schedule", g.schedule)
	return nil
}

// Stop halts the schedule and waits for a running check to finish.
func (g *GoalChecker) Stop(ctx context.Context) error {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return nil
	}
	c := g.cron
	g.running = false
	g.cron = nil
	g.mu.Unlock()

	select {
	case <-c.Stop().Done():
		g.logger.InfoContext(ctx, "Goal checker stopped gracefully")
		return nil
	case <-ctx.Done():
		g.logger.WarnContext(ctx, "Goal checker stop timed out")
		return ctx.Err()
	}
}

func (g *GoalChecker) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}
