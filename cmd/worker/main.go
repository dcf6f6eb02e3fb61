package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/vecino-erp/vecino-erp/internal/app"
	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/platform/db"
	"github.com/vecino-erp/vecino-erp/internal/shared"
	"github.com/vecino-erp/vecino-erp/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	ledgerRepo := ledger.NewRepository(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskMarkOverdue, Handler: jobs.HandleMarkOverdue(ledgerRepo, logger)},
			{Type: jobs.TaskIdempotencyCleanup, Handler: jobs.HandleIdempotencyCleanup(idempotencyStore, cfg.IdempotencyRetention, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OverdueCronSpec, Task: jobs.NewMarkOverdueTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.CleanupCronSpec, Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
