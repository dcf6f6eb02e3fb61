package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/vecino-erp/vecino-erp/internal/accounting/accounts"
	"github.com/vecino-erp/vecino-erp/internal/accounting/journals"
	"github.com/vecino-erp/vecino-erp/internal/app"
	"github.com/vecino-erp/vecino-erp/internal/auth"
	"github.com/vecino-erp/vecino-erp/internal/budgets"
	"github.com/vecino-erp/vecino-erp/internal/ledger"
	"github.com/vecino-erp/vecino-erp/internal/observability"
	"github.com/vecino-erp/vecino-erp/internal/orgs"
	"github.com/vecino-erp/vecino-erp/internal/platform/db"
	"github.com/vecino-erp/vecino-erp/internal/rbac"
	"github.com/vecino-erp/vecino-erp/internal/reports"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "vecino_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	rbacMiddleware := rbac.Middleware{Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	orgsRepo := orgs.NewRepository(dbpool)
	orgsService := orgs.NewService(orgsRepo, auditLogger)
	orgsHandler := orgs.NewHandler(logger, orgsService, rbacMiddleware)
	orgMiddleware := orgs.Middleware{Service: orgsService, Logger: logger}

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo, auditLogger)
	accountsHandler := accounts.NewHandler(logger, accountsService, rbacMiddleware)

	reportsRepo := reports.NewRepository(dbpool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportsCacheTTL)
	reportsService := reports.NewService(reportsRepo, reportsCache)
	reportsHandler := reports.NewHandler(logger, reportsService, rbacMiddleware)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, idempotencyStore, auditLogger)
	ledgerService.SetMetrics(metrics)
	ledgerService.SetCache(reportsCache)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, rbacMiddleware)

	journalsRepo := journals.NewRepository(dbpool)
	journalsService := journals.NewService(journalsRepo)
	journalsHandler := journals.NewHandler(logger, journalsService, ledgerService, rbacMiddleware)

	budgetsRepo := budgets.NewRepository(dbpool)
	budgetsService := budgets.NewService(budgetsRepo, auditLogger)
	budgetsHandler := budgets.NewHandler(logger, budgetsService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		OrgMiddleware:   orgMiddleware,
		AuthHandler:     authHandler,
		OrgsHandler:     orgsHandler,
		AccountsHandler: accountsHandler,
		JournalsHandler: journalsHandler,
		LedgerHandler:   ledgerHandler,
		BudgetsHandler:  budgetsHandler,
		ReportsHandler:  reportsHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
