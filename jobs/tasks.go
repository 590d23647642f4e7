package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-dms/meridian-dms/internal/reconcile"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReconcileCounters replays ledger history into agency and product counters.
	TaskReconcileCounters = "counters:reconcile"
	// TaskLowStockScan flags products at or below their minimum level.
	TaskLowStockScan = "stock:low_scan"
)

// ReconcilePayload scopes a reconcile run. An empty payload reconciles everything.
type ReconcilePayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewReconcileTask constructs the reconcile task.
func NewReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileCounters, data), nil
}

// NewLowStockScanTask constructs the low-stock scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}

// ReconcileHandler processes TaskReconcileCounters tasks.
func ReconcileHandler(svc *reconcile.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReconcilePayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		summary, err := svc.Run(ctx)
		if err != nil {
			logger.Error("reconcile task failed", slog.Any("error", err))
			return err
		}
		logger.Info("reconcile task done",
			slog.String("reason", payload.Reason),
			slog.Int("agencies_rewrote", summary.AgenciesRewrote),
			slog.Int("products_rewrote", summary.ProductsRewrote))
		return nil
	}
}

// LowStockScanHandler processes TaskLowStockScan tasks.
func LowStockScanHandler(svc *reconcile.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		summary, err := svc.LowStockScan(ctx)
		if err != nil {
			logger.Error("low stock scan failed", slog.Any("error", err))
			return err
		}
		logger.Info("low stock scan done", slog.Int("flagged", summary.LowStockProducts))
		return nil
	}
}
