package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	AgencyIDs(ctx context.Context) ([]int64, error)
	StoredAgencyCounters(ctx context.Context, agencyID int64) (AgencyCounters, error)
	DerivedAgencyCounters(ctx context.Context, agencyID int64) (AgencyCounters, error)
	WriteAgencyCounters(ctx context.Context, agencyID int64, c AgencyCounters) error
	DriftedProductCounters(ctx context.Context) ([]ProductCounters, error)
	WriteProductCounters(ctx context.Context, c ProductCounters) error
	LowStock(ctx context.Context) ([]LowStockProduct, error)
}

// Service rewrites cached counters from ledger truth.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Summary reports what a reconcile run touched.
type Summary struct {
	AgenciesChecked  int
	AgenciesRewrote  int
	ProductsRewrote  int
	LowStockProducts int
}

const driftTolerance = 0.0001

func driftedAgency(stored, derived AgencyCounters) bool {
	return stored.TotalProducts != derived.TotalProducts ||
		math.Abs(stored.CurrentStock-derived.CurrentStock) > driftTolerance ||
		math.Abs(stored.TotalValue-derived.TotalValue) > driftTolerance ||
		math.Abs(stored.TotalSales-derived.TotalSales) > driftTolerance ||
		math.Abs(stored.TotalProfit-derived.TotalProfit) > driftTolerance
}

// Run replays history for every agency and drifted product, rewriting the
// cached counters and logging every correction.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	ids, err := s.repo.AgencyIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list agencies: %w", err)
	}
	for _, id := range ids {
		summary.AgenciesChecked++
		stored, err := s.repo.StoredAgencyCounters(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reconcile: read agency %d: %w", id, err)
		}
		derived, err := s.repo.DerivedAgencyCounters(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reconcile: derive agency %d: %w", id, err)
		}
		if !driftedAgency(stored, derived) {
			continue
		}
		s.logger.Warn("agency counters drifted",
			slog.Int64("agency_id", id),
			slog.Float64("stored_sales", stored.TotalSales),
			slog.Float64("derived_sales", derived.TotalSales),
			slog.Float64("stored_stock", stored.CurrentStock),
			slog.Float64("derived_stock", derived.CurrentStock))
		if err := s.repo.WriteAgencyCounters(ctx, id, derived); err != nil {
			return nil, fmt.Errorf("reconcile: rewrite agency %d: %w", id, err)
		}
		summary.AgenciesRewrote++
	}

	drifted, err := s.repo.DriftedProductCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: scan products: %w", err)
	}
	for _, c := range drifted {
		s.logger.Warn("product counters drifted",
			slog.Int64("product_id", c.ProductID),
			slog.Float64("derived_sold", c.TotalSold))
		if err := s.repo.WriteProductCounters(ctx, c); err != nil {
			return nil, fmt.Errorf("reconcile: rewrite product %d: %w", c.ProductID, err)
		}
		summary.ProductsRewrote++
	}

	s.logger.Info("reconcile finished",
		slog.Int("agencies_checked", summary.AgenciesChecked),
		slog.Int("agencies_rewrote", summary.AgenciesRewrote),
		slog.Int("products_rewrote", summary.ProductsRewrote))
	return summary, nil
}

// LowStockScan logs every product at or below its minimum level.
func (s *Service) LowStockScan(ctx context.Context) (*Summary, error) {
	products, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: low stock scan: %w", err)
	}
	for _, p := range products {
		s.logger.Warn("product at or below minimum stock",
			slog.Int64("product_id", p.ID),
			slog.String("name", p.Name),
			slog.Int64("agency_id", p.AgencyID),
			slog.Float64("current", p.StockCurrent),
			slog.Float64("minimum", p.StockMinimum))
	}
	return &Summary{LowStockProducts: len(products)}, nil
}
