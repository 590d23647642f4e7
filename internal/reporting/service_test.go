package reporting

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeReportRepo struct {
	assemblies atomic.Int64

	today     WindowTotals
	month     WindowTotals
	prevMonth WindowTotals
}

func (f *fakeReportRepo) SalesWindow(_ context.Context, from, to time.Time) (WindowTotals, error) {
	f.assemblies.Add(1)
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	switch {
	case from.Equal(monthStart):
		return f.month, nil
	case from.Before(monthStart) && to.Equal(monthStart):
		return f.prevMonth, nil
	default:
		return f.today, nil
	}
}

func (f *fakeReportRepo) ProductCounts(context.Context) (int, int, error) {
	return 12, 3, nil
}

func (f *fakeReportRepo) CustomerCount(context.Context) (int, error) {
	return 8, nil
}

func (f *fakeReportRepo) RecentOrders(_ context.Context, limit int) ([]RecentOrder, error) {
	return []RecentOrder{{InvoiceNumber: "INV-20250309-0001", Total: 800}}, nil
}

func (f *fakeReportRepo) DailySeries(context.Context, time.Time) ([]DailyPoint, error) {
	return []DailyPoint{{Day: "2025-03-09", Count: 1, Total: 800}}, nil
}

func (f *fakeReportRepo) ActiveAgencies(context.Context) ([]AgencySnapshot, error) {
	return []AgencySnapshot{{ID: 1, Name: "North Depot", Type: "agency"}}, nil
}

func (f *fakeReportRepo) AgencyPerformance(context.Context, time.Time) ([]AgencyPerformance, error) {
	return []AgencyPerformance{{AgencyID: 1, AgencyName: "North Depot", SalesCount: 1, SalesTotal: 800, Profit: 300}}, nil
}

func newTestService(t *testing.T) (*Service, *fakeReportRepo, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)

	repo := &fakeReportRepo{
		today:     WindowTotals{Count: 1, Total: 800},
		month:     WindowTotals{Count: 5, Total: 4000},
		prevMonth: WindowTotals{Count: 4, Total: 3200},
	}
	return NewService(repo, cache), repo, cache
}

func TestDashboardAssemblesPayload(t *testing.T) {
	svc, _, _ := newTestService(t)

	dashboard, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, dashboard.Today.Count)
	require.InDelta(t, 800, dashboard.Today.Total, 0.0001)
	require.Equal(t, 5, dashboard.Month.Count)
	require.InDelta(t, 25, dashboard.MonthChangePct, 0.0001)
	require.Equal(t, 12, dashboard.ActiveProducts)
	require.Equal(t, 3, dashboard.LowStockProducts)
	require.Equal(t, 8, dashboard.Customers)
	require.Len(t, dashboard.RecentOrders, 1)
	require.Len(t, dashboard.SalesChart, 1)
	require.Len(t, dashboard.Agencies, 1)
	require.Len(t, dashboard.AgencyPerformance, 1)
}

func TestDashboardServedFromCacheUntilBump(t *testing.T) {
	svc, repo, cache := newTestService(t)

	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	firstLoad := repo.assemblies.Load()
	require.Positive(t, firstLoad)

	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, firstLoad, repo.assemblies.Load())

	require.NoError(t, cache.Bump(context.Background()))

	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Greater(t, repo.assemblies.Load(), firstLoad)
}

func TestMonthChange(t *testing.T) {
	require.InDelta(t, 25, MonthChange(4000, 3200), 0.0001)
	require.InDelta(t, -50, MonthChange(1600, 3200), 0.0001)
	require.InDelta(t, 100, MonthChange(500, 0), 0.0001)
	require.Zero(t, MonthChange(0, 0))
}
