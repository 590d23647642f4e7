package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Movement, int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator bumps reporting cache versions after ledger writes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates direct inventory movements.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	cache CacheInvalidator
}

// NewService constructs Service.
func NewService(repo RepositoryPort, audit AuditPort, cache CacheInvalidator) *Service {
	return &Service{repo: repo, audit: audit, cache: cache}
}

// RecordIncoming posts a supply movement: ledger entry, stock increment and
// agency counter updates in one transaction.
func (s *Service) RecordIncoming(ctx context.Context, agencyID int64, input RecordInput, actorID int64) (*Movement, error) {
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("inventory: quantity must be positive: %w", shared.ErrValidation)
	}
	if input.UnitPrice < 0 {
		return nil, fmt.Errorf("inventory: unit price must not be negative: %w", shared.ErrValidation)
	}

	now := time.Now().UTC()
	movement := Movement{
		AgencyID:    agencyID,
		ProductID:   input.ProductID,
		Type:        TypeIncoming,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		TotalValue:  input.Quantity * input.UnitPrice,
		Reference:   input.Reference,
		BatchNumber: input.BatchNumber,
		ExpiryDate:  input.ExpiryDate,
		Notes:       input.Notes,
		ProcessedBy: actorID,
		CreatedAt:   now,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		agency, err := tx.GetAgencyForUpdate(ctx, agencyID)
		if err != nil {
			return err
		}
		if !agency.IsActive {
			return fmt.Errorf("inventory: agency %d inactive: %w", agencyID, shared.ErrInactiveAgency)
		}
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if product.AgencyID != agencyID {
			return fmt.Errorf("inventory: product %d not stocked by agency %d: %w", input.ProductID, agencyID, shared.ErrValidation)
		}
		movement.CostPrice = product.CostPrice
		movement.ProductName = product.Name

		id, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		movement.ID = id

		if err := tx.IncrementStock(ctx, input.ProductID, input.Quantity); err != nil {
			return err
		}
		return tx.ApplySupply(ctx, agencyID, input.Quantity, movement.TotalValue, now)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, actorID, "inventory:incoming", &movement)
	return &movement, nil
}

// RecordOutgoing posts a withdrawal: conditional stock decrement, ledger entry
// and agency counter updates in one transaction. Shortfalls roll everything
// back.
func (s *Service) RecordOutgoing(ctx context.Context, agencyID int64, input RecordInput, actorID int64) (*Movement, error) {
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("inventory: quantity must be positive: %w", shared.ErrValidation)
	}
	if input.UnitPrice < 0 {
		return nil, fmt.Errorf("inventory: unit price must not be negative: %w", shared.ErrValidation)
	}

	now := time.Now().UTC()
	movement := Movement{
		AgencyID:    agencyID,
		ProductID:   input.ProductID,
		Type:        TypeOutgoing,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		TotalValue:  input.Quantity * input.UnitPrice,
		Reference:   input.Reference,
		BatchNumber: input.BatchNumber,
		ExpiryDate:  input.ExpiryDate,
		Notes:       input.Notes,
		ProcessedBy: actorID,
		CreatedAt:   now,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		agency, err := tx.GetAgencyForUpdate(ctx, agencyID)
		if err != nil {
			return err
		}
		if !agency.IsActive {
			return fmt.Errorf("inventory: agency %d inactive: %w", agencyID, shared.ErrInactiveAgency)
		}
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if product.AgencyID != agencyID {
			return fmt.Errorf("inventory: product %d not stocked by agency %d: %w", input.ProductID, agencyID, shared.ErrValidation)
		}
		movement.CostPrice = product.CostPrice
		movement.Profit = (input.UnitPrice - product.CostPrice) * input.Quantity
		movement.ProductName = product.Name

		if err := tx.DecrementStockGuarded(ctx, input.ProductID, input.Quantity); err != nil {
			return err
		}

		id, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		movement.ID = id

		return tx.ApplyWithdrawal(ctx, agencyID, input.Quantity, product.CostPrice*input.Quantity)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, actorID, "inventory:outgoing", &movement)
	return &movement, nil
}

// RecordAdjustment posts a manual stock correction. Positive quantities add
// stock; negative quantities go through the same guard as outgoing movements,
// so a correction can never push stock below zero. The movement is valued at
// product cost.
func (s *Service) RecordAdjustment(ctx context.Context, agencyID int64, input AdjustInput, actorID int64) (*Movement, error) {
	if input.Quantity == 0 {
		return nil, fmt.Errorf("inventory: adjustment quantity must not be zero: %w", shared.ErrValidation)
	}

	now := time.Now().UTC()
	movement := Movement{
		AgencyID:    agencyID,
		ProductID:   input.ProductID,
		Type:        TypeAdjustment,
		Quantity:    input.Quantity,
		Reference:   input.Reference,
		Notes:       input.Notes,
		ProcessedBy: actorID,
		CreatedAt:   now,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		agency, err := tx.GetAgencyForUpdate(ctx, agencyID)
		if err != nil {
			return err
		}
		if !agency.IsActive {
			return fmt.Errorf("inventory: agency %d inactive: %w", agencyID, shared.ErrInactiveAgency)
		}
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if product.AgencyID != agencyID {
			return fmt.Errorf("inventory: product %d not stocked by agency %d: %w", input.ProductID, agencyID, shared.ErrValidation)
		}
		movement.CostPrice = product.CostPrice
		movement.UnitPrice = product.CostPrice
		movement.TotalValue = input.Quantity * product.CostPrice
		movement.ProductName = product.Name

		if input.Quantity > 0 {
			if err := tx.IncrementStock(ctx, input.ProductID, input.Quantity); err != nil {
				return err
			}
		} else if err := tx.DecrementStockGuarded(ctx, input.ProductID, -input.Quantity); err != nil {
			return err
		}

		id, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		movement.ID = id

		return tx.AdjustAgencyStock(ctx, agencyID, input.Quantity, movement.TotalValue)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, actorID, "inventory:adjustment", &movement)
	return &movement, nil
}

// List returns filtered movements plus pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Movement, shared.Pagination, error) {
	movements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return movements, shared.NewPagination(filter.Page, filter.PerPage, len(movements), total), nil
}

func (s *Service) afterWrite(ctx context.Context, actorID int64, action string, m *Movement) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "inventory_movement",
			EntityID: fmt.Sprintf("%d", m.ID),
			Meta: map[string]any{
				"agency_id":  m.AgencyID,
				"product_id": m.ProductID,
				"quantity":   m.Quantity,
				"value":      m.TotalValue,
			},
		})
	}
}
