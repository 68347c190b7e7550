package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"finpilot/internal/amqp"
	"finpilot/internal/auth"
	"finpilot/internal/cache"
	"finpilot/internal/cli"
	"finpilot/internal/core"
	apphttp "finpilot/internal/http"
	"finpilot/internal/log"
	"finpilot/internal/services"
)

const goalCacheSize = 512

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	logger.Info("Starting finpilot API", "backend", cfg.DataBackend)

	res := cli.InitBackend(context.Background(), logger, cfg)
	st := res.Backend

	// Publishing is optional; without a broker the ledger mirror relies on
	// the worker's startup reconcile.
	var (
		publisher  services.TransactionPublisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			amqpClient = client
			publisher = client
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - transactions will not be mirrored until the worker reconciles")
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		var err error
		if secret, err = auth.RandomSecret(); err != nil {
			logger.Error("Failed to generate JWT secret", log.FieldError, err)
			os.Exit(1)
		}
		logger.Warn("JWT_SECRET not set, using a random per-process secret; tokens will not survive a restart")
	}
	tokens := auth.NewIssuer(secret, cfg.JWTTTL)

	cacheManager := cache.NewManager(logger)
	goalCache := cache.NewLRUCache[core.Goal](goalCacheSize, cfg.CacheTTL)
	cacheManager.Register(goalCache)
	cacheManager.StartCleanup(cfg.CacheTTL)

	txService := services.NewTransactionService(st, publisher, logger)
	goalService := services.NewGoalService(st, st, goalCache, logger)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		DefaultUserID:      cfg.DefaultUserID,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}, apphttp.Services{
		Transactions: txService,
		Goals:        goalService,
		Users:        services.NewUserService(st, tokens, logger),
		Dashboard:    services.NewDashboardService(txService, goalService),
		Tokens:       tokens,
		Health:       st,
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
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

	logger.Info("Starting HTTP server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
