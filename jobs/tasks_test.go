package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/meridian-dms/meridian-dms/internal/reconcile"
)

type stubReconcileRepo struct {
	lowStock []reconcile.LowStockProduct
}

func (s *stubReconcileRepo) AgencyIDs(context.Context) ([]int64, error) { return nil, nil }

func (s *stubReconcileRepo) StoredAgencyCounters(context.Context, int64) (reconcile.AgencyCounters, error) {
	return reconcile.AgencyCounters{}, nil
}

func (s *stubReconcileRepo) DerivedAgencyCounters(context.Context, int64) (reconcile.AgencyCounters, error) {
	return reconcile.AgencyCounters{}, nil
}

func (s *stubReconcileRepo) WriteAgencyCounters(context.Context, int64, reconcile.AgencyCounters) error {
	return nil
}

func (s *stubReconcileRepo) DriftedProductCounters(context.Context) ([]reconcile.ProductCounters, error) {
	return nil, nil
}

func (s *stubReconcileRepo) WriteProductCounters(context.Context, reconcile.ProductCounters) error {
	return nil
}

func (s *stubReconcileRepo) LowStock(context.Context) ([]reconcile.LowStockProduct, error) {
	return s.lowStock, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewReconcileTaskCarriesPayload(t *testing.T) {
	task, err := NewReconcileTask(ReconcilePayload{Reason: "manual"})
	require.NoError(t, err)
	require.Equal(t, TaskReconcileCounters, task.Type())
	require.JSONEq(t, `{"reason":"manual"}`, string(task.Payload()))
}

func TestReconcileHandlerRunsService(t *testing.T) {
	svc := reconcile.NewService(&stubReconcileRepo{}, testLogger())
	handler := ReconcileHandler(svc, testLogger())

	task, err := NewReconcileTask(ReconcilePayload{Reason: "scheduled"})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
}

func TestReconcileHandlerSkipsRetryOnBadPayload(t *testing.T) {
	svc := reconcile.NewService(&stubReconcileRepo{}, testLogger())
	handler := ReconcileHandler(svc, testLogger())

	task := asynq.NewTask(TaskReconcileCounters, []byte("not json"))
	require.ErrorIs(t, handler(context.Background(), task), asynq.SkipRetry)
}

func TestLowStockScanHandler(t *testing.T) {
	repo := &stubReconcileRepo{lowStock: []reconcile.LowStockProduct{
		{ID: 10, Name: "Trail Mix", AgencyID: 1, StockCurrent: 2, StockMinimum: 10},
	}}
	svc := reconcile.NewService(repo, testLogger())
	handler := LowStockScanHandler(svc, testLogger())

	require.NoError(t, handler(context.Background(), NewLowStockScanTask()))
}
