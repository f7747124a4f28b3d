package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/cx-tal-miterani/fare-booking/internal/activities"
	"github.com/cx-tal-miterani/fare-booking/internal/config"
	"github.com/cx-tal-miterani/fare-booking/internal/database"
	"github.com/cx-tal-miterani/fare-booking/internal/logging"
	"github.com/cx-tal-miterani/fare-booking/internal/provider"
	"github.com/cx-tal-miterani/fare-booking/internal/workflows"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("connecting to database")
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	repo := database.NewPostgresRepository(pool)

	// The worker must reach the same provider as the API; a local provider
	// here would not know the orders the API opened.
	if cfg.Provider.URL == "" {
		logger.Error("PROVIDER_URL is required for the worker")
		os.Exit(1)
	}
	var gw provider.Gateway = provider.NewClient(provider.ClientConfig{
		BaseURL: cfg.Provider.URL,
		Token:   cfg.Provider.Token,
		Name:    cfg.Provider.Name,
		Timeout: cfg.Provider.Timeout,
	}, logger)
	if cfg.Provider.MinInterval > 0 {
		gw = provider.NewRateLimited(gw, cfg.Provider.MinInterval)
	}

	logger.Info("connecting to temporal", "host", cfg.TemporalHost)
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHost,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to connect to temporal", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalQueue, worker.Options{})

	w.RegisterWorkflow(workflows.TicketingWorkflow)

	acts := activities.NewActivities(gw, repo, logger)
	w.RegisterActivityWithOptions(acts.RecalcReservation, activity.RegisterOptions{Name: activities.RecalcActivityName})
	w.RegisterActivityWithOptions(acts.ConfirmReservation, activity.RegisterOptions{Name: activities.ConfirmActivityName})

	logger.Info("starting temporal worker", "queue", cfg.TemporalQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("worker failed", "error", err)
		os.Exit(1)
	}
}
