package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMarkOverdue flips issued documents past their due date to OVERDUE.
	TaskMarkOverdue = "ledger:mark_overdue"
	// TaskIdempotencyCleanup prunes stale idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// NewMarkOverdueTask constructs the overdue-sweep task.
func NewMarkOverdueTask() *asynq.Task {
	return asynq.NewTask(TaskMarkOverdue, nil)
}

// NewIdempotencyCleanupTask constructs the key-cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// OverdueMarker is implemented by the ledger repository.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// HandleMarkOverdue returns the handler for TaskMarkOverdue. Only ISSUED
// documents transition; PAID and VOID are left alone.
func HandleMarkOverdue(marker OverdueMarker, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		n, err := marker.MarkOverdue(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("mark overdue sweep", slog.Any("error", err))
			return err
		}
		if n > 0 {
			logger.Info("documents marked overdue", slog.Int64("count", n))
		}
		return nil
	}
}

// IdempotencyCleaner is implemented by shared.IdempotencyStore.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// HandleIdempotencyCleanup returns the handler for TaskIdempotencyCleanup.
func HandleIdempotencyCleanup(cleaner IdempotencyCleaner, retention time.Duration, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := cleaner.Cleanup(ctx, retention); err != nil {
			logger.Error("idempotency cleanup", slog.Any("error", err))
			return err
		}
		return nil
	}
}
