package agencies

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	List(ctx context.Context) ([]Agency, error)
	Get(ctx context.Context, id int64) (*Agency, error)
	Create(ctx context.Context, input CreateInput) (*Agency, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*Agency, error)
	SoftDelete(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, agencyID int64) ([]ProductSummary, error)
	RecentSales(ctx context.Context, agencyID int64, limit int) ([]SaleSummary, error)
	RecentMovements(ctx context.Context, agencyID int64, limit int) ([]MovementSummary, error)
	WindowedStats(ctx context.Context, agencyID int64, from time.Time) (*Stats, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates agency registry operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns active agencies sorted by name.
func (s *Service) List(ctx context.Context) ([]Agency, error) {
	return s.repo.List(ctx)
}

// Get returns the agency with its products and recent activity.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	agency, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx, id)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.RecentSales(ctx, id, 10)
	if err != nil {
		return nil, err
	}
	movements, err := s.repo.RecentMovements(ctx, id, 20)
	if err != nil {
		return nil, err
	}
	return &Detail{Agency: *agency, Products: products, RecentSales: sales, RecentMovements: movements}, nil
}

// Create registers a new agency.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID int64) (*Agency, error) {
	agency, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "agencies:create",
			Entity:   "agency",
			EntityID: fmt.Sprintf("%d", agency.ID),
			Meta:     map[string]any{"name": agency.Name, "type": agency.Type},
		})
	}
	return agency, nil
}

// Update applies partial changes to an agency.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*Agency, error) {
	return s.repo.Update(ctx, id, input)
}

// Delete soft-deletes the agency.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "agencies:delete",
			Entity:   "agency",
			EntityID: fmt.Sprintf("%d", id),
		})
	}
	return nil
}

// Stats computes a windowed aggregation over the ledgers for the agency.
func (s *Service) Stats(ctx context.Context, id int64, period string) (*Stats, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	from, ok := PeriodWindow(period, time.Now().UTC())
	if !ok {
		return nil, fmt.Errorf("agencies: unknown period %q: %w", period, shared.ErrValidation)
	}
	stats, err := s.repo.WindowedStats(ctx, id, from)
	if err != nil {
		return nil, err
	}
	stats.Period = period
	return stats, nil
}
