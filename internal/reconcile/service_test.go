package reconcile

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeReconcileRepo struct {
	stored   map[int64]AgencyCounters
	derived  map[int64]AgencyCounters
	written  map[int64]AgencyCounters
	products []ProductCounters
	rewrote  []ProductCounters
	lowStock []LowStockProduct
}

func newFakeReconcileRepo() *fakeReconcileRepo {
	return &fakeReconcileRepo{
		stored:  make(map[int64]AgencyCounters),
		derived: make(map[int64]AgencyCounters),
		written: make(map[int64]AgencyCounters),
	}
}

func (f *fakeReconcileRepo) AgencyIDs(context.Context) ([]int64, error) {
	var ids []int64
	for id := range f.stored {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeReconcileRepo) StoredAgencyCounters(_ context.Context, id int64) (AgencyCounters, error) {
	return f.stored[id], nil
}

func (f *fakeReconcileRepo) DerivedAgencyCounters(_ context.Context, id int64) (AgencyCounters, error) {
	return f.derived[id], nil
}

func (f *fakeReconcileRepo) WriteAgencyCounters(_ context.Context, id int64, c AgencyCounters) error {
	f.written[id] = c
	return nil
}

func (f *fakeReconcileRepo) DriftedProductCounters(context.Context) ([]ProductCounters, error) {
	return f.products, nil
}

func (f *fakeReconcileRepo) WriteProductCounters(_ context.Context, c ProductCounters) error {
	f.rewrote = append(f.rewrote, c)
	return nil
}

func (f *fakeReconcileRepo) LowStock(context.Context) ([]LowStockProduct, error) {
	return f.lowStock, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunRewritesOnlyDriftedAgencies(t *testing.T) {
	repo := newFakeReconcileRepo()
	clean := AgencyCounters{TotalProducts: 2, CurrentStock: 50, TotalValue: 2500, TotalSales: 800, TotalProfit: 300}
	repo.stored[1] = clean
	repo.derived[1] = clean
	repo.stored[2] = AgencyCounters{TotalSales: 900}
	repo.derived[2] = AgencyCounters{TotalSales: 800, TotalProfit: 300}

	svc := NewService(repo, discardLogger())
	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, summary.AgenciesChecked)
	require.Equal(t, 1, summary.AgenciesRewrote)
	require.NotContains(t, repo.written, int64(1))
	require.Equal(t, repo.derived[2], repo.written[2])
}

func TestRunRewritesDriftedProducts(t *testing.T) {
	repo := newFakeReconcileRepo()
	repo.products = []ProductCounters{{ProductID: 10, TotalSold: 25, TotalRevenue: 2000}}

	svc := NewService(repo, discardLogger())
	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, summary.ProductsRewrote)
	require.Len(t, repo.rewrote, 1)
	require.EqualValues(t, 10, repo.rewrote[0].ProductID)
}

func TestRunIsIdempotentWhenClean(t *testing.T) {
	repo := newFakeReconcileRepo()
	clean := AgencyCounters{TotalSales: 800}
	repo.stored[1] = clean
	repo.derived[1] = clean

	svc := NewService(repo, discardLogger())
	for i := 0; i < 2; i++ {
		summary, err := svc.Run(context.Background())
		require.NoError(t, err)
		require.Zero(t, summary.AgenciesRewrote)
		require.Zero(t, summary.ProductsRewrote)
	}
	require.Empty(t, repo.written)
}

func TestLowStockScanCountsProducts(t *testing.T) {
	repo := newFakeReconcileRepo()
	repo.lowStock = []LowStockProduct{
		{ID: 10, Name: "Trail Mix", AgencyID: 1, StockCurrent: 2, StockMinimum: 10},
		{ID: 11, Name: "Soda", AgencyID: 1, StockCurrent: 0, StockMinimum: 5},
	}

	svc := NewService(repo, discardLogger())
	summary, err := svc.LowStockScan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.LowStockProducts)
}
