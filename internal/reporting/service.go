package reporting

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	SalesWindow(ctx context.Context, from, to time.Time) (WindowTotals, error)
	ProductCounts(ctx context.Context) (active, lowStock int, err error)
	CustomerCount(ctx context.Context) (int, error)
	RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error)
	DailySeries(ctx context.Context, from time.Time) ([]DailyPoint, error)
	ActiveAgencies(ctx context.Context) ([]AgencySnapshot, error)
	AgencyPerformance(ctx context.Context, from time.Time) ([]AgencyPerformance, error)
}

// Service assembles the dashboard payload.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	now   func() time.Time
}

// NewService constructs Service.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: func() time.Time { return time.Now().UTC() }}
}

// Dashboard returns the stats payload, served from the versioned cache when a
// fresh copy exists. The aggregation queries fan out in parallel.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	key, err := s.cache.BuildKey(ctx, keyDashboard(now.Format("2006-01-02")))
	if err != nil {
		return nil, err
	}

	var dashboard Dashboard
	err = s.cache.FetchJSON(ctx, key, &dashboard, func(ctx context.Context) (any, error) {
		return s.assemble(ctx, now)
	})
	if err != nil {
		return nil, err
	}
	return &dashboard, nil
}

func (s *Service) assemble(ctx context.Context, now time.Time) (*Dashboard, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevMonthStart := monthStart.AddDate(0, -1, 0)
	weekStart := dayStart.AddDate(0, 0, -6)
	horizon := now.Add(time.Minute)

	dashboard := &Dashboard{GeneratedAt: now}
	var prevMonth WindowTotals

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dashboard.Today, err = s.repo.SalesWindow(ctx, dayStart, horizon)
		return err
	})
	g.Go(func() error {
		var err error
		dashboard.Month, err = s.repo.SalesWindow(ctx, monthStart, horizon)
		return err
	})
	g.Go(func() error {
		var err error
		prevMonth, err = s.repo.SalesWindow(ctx, prevMonthStart, monthStart)
		return err
	})
	g.Go(func() error {
		var err error
		dashboard.ActiveProducts, dashboard.LowStockProducts, err = s.repo.ProductCounts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		dashboard.Customers, err = s.repo.CustomerCount(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		dashboard.RecentOrders, err = s.repo.RecentOrders(ctx, 10)
		return err
	})
	g.Go(func() error {
		var err error
		dashboard.SalesChart, err = s.repo.DailySeries(ctx, weekStart)
		return err
	})
	g.Go(func() error {
		var err error
		dashboard.Agencies, err = s.repo.ActiveAgencies(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		dashboard.AgencyPerformance, err = s.repo.AgencyPerformance(ctx, monthStart)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dashboard.MonthChangePct = MonthChange(dashboard.Month.Total, prevMonth.Total)
	return dashboard, nil
}
