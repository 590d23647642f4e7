package catalog

import (
	"context"
	"fmt"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateInput) (*Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*Product, error)
	SoftDelete(ctx context.Context, id int64) error
	StatsOverview(ctx context.Context) (*Overview, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create registers a product and bumps the owning agency's counter.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID int64) (*Product, error) {
	if input.PriceSelling < input.PriceCost {
		return nil, fmt.Errorf("catalog: selling price below cost: %w", shared.ErrValidation)
	}
	product, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	product.FillDerived()
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "catalog:create",
			Entity:   "product",
			EntityID: fmt.Sprintf("%d", product.ID),
			Meta:     map[string]any{"name": product.Name, "agency_id": product.AgencyID},
		})
	}
	return product, nil
}

// Get returns one product with derived fields.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	product.FillDerived()
	return product, nil
}

// List returns filtered products plus pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, shared.Pagination, error) {
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range products {
		products[i].FillDerived()
	}
	return products, shared.NewPagination(filter.Page, filter.PerPage, len(products), total), nil
}

// Update applies partial changes.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*Product, error) {
	if input.PriceCost != nil && input.PriceSelling != nil && *input.PriceSelling < *input.PriceCost {
		return nil, fmt.Errorf("catalog: selling price below cost: %w", shared.ErrValidation)
	}
	product, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}
	product.FillDerived()
	return product, nil
}

// Delete soft-deletes the product.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "catalog:delete",
			Entity:   "product",
			EntityID: fmt.Sprintf("%d", id),
		})
	}
	return nil
}

// StatsOverview aggregates catalog health numbers.
func (s *Service) StatsOverview(ctx context.Context) (*Overview, error) {
	return s.repo.StatsOverview(ctx)
}
