package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"finpilot/internal/amqp"
	"finpilot/internal/cli"
	"finpilot/internal/log"
	"finpilot/internal/notify"
	"finpilot/internal/services"
	"finpilot/internal/sheets"
	gsheet "finpilot/internal/sheets/google"
	mem "finpilot/internal/sheets/memory"
	"finpilot/internal/worker"
)

type ledger interface {
	sheets.LedgerWriter
	sheets.LedgerReader
}

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting finpilot-worker")

	res := cli.InitBackend(context.Background(), logger, cfg)
	st := res.Backend

	var book ledger
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.LedgerSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		book = client
		logger.Info("Google Sheets ledger initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		book = mem.New()
		logger.Warn("Google Sheets not configured - mirroring into an in-memory ledger")
	}

	var notifier notify.Notifier
	if cfg.SMTPHost != "" {
		mailer, err := notify.NewMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			To:       splitList(cfg.MailTo),
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize mailer", log.FieldError, err)
			os.Exit(1)
		}
		notifier = mailer
	} else {
		notifier = &notify.Recorder{}
		logger.Info("SMTP not configured - goal notifications are only logged")
	}

	goals := services.NewGoalService(st, st, nil, logger)
	checker := worker.NewGoalChecker(goals, notifier, cfg.GoalCheckSchedule, logger)
	mirror := worker.NewLedgerMirror(book, logger)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		amqpClient = client
	} else {
		logger.Info("AMQP disabled - ledger mirror runs on startup reconcile only")
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := checker.Stop(ctx); err != nil {
			logger.Warn("Goal checker stop error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Backend close error", log.FieldError, err)
			}
		}
	})

	users, err := worker.ReconcileUsers(ctx, st, cfg.DefaultUserID)
	if err != nil {
		logger.Error("Failed to list users for reconcile", log.FieldError, err)
	} else if _, err := worker.Reconcile(ctx, st, book, time.Now().UTC().Year(), users, logger); err != nil {
		// Don't exit - events keep the ledger current from here on
		logger.Error("Startup reconcile failed", log.FieldError, err)
	}

	if err := checker.Start(ctx); err != nil {
		logger.Error("Failed to start goal checker", log.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeTransactions(gctx, mirror.HandleTransactionCreated)
		})
	}
	g.Go(func() error {
		if _, err := checker.Check(gctx); err != nil {
			logger.Warn("Initial goal check failed", log.FieldError, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
