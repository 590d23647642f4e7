package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-dms/meridian-dms/internal/inventory"
	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Sale, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, int, error)
	StatsOverview(ctx context.Context) (*Overview, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator bumps reporting cache versions after sale writes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates the sale/invoicing workflow.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	cache CacheInvalidator
	now   func() time.Time
}

// NewService constructs Service.
func NewService(repo RepositoryPort, audit AuditPort, cache CacheInvalidator) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, now: func() time.Time { return time.Now().UTC() }}
}

// Create runs the whole invoicing chain in one transaction: invoice number
// allocation, sale and item inserts, per-item stock decrements and ledger
// entries, product counters, then sale totals and agency rollups. Any failure
// rolls the whole chain back.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID int64) (*Sale, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("sales: at least one item required: %w", shared.ErrValidation)
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("sales: item quantity must be positive: %w", shared.ErrValidation)
		}
		if item.UnitPrice < 0 {
			return nil, fmt.Errorf("sales: item price must not be negative: %w", shared.ErrValidation)
		}
		if item.Discount < 0 || item.Discount > 100 {
			return nil, fmt.Errorf("sales: item discount must be 0-100: %w", shared.ErrValidation)
		}
	}

	now := s.now()
	status := input.Status
	if status == "" {
		status = StatusCompleted
	}

	items := make([]Item, len(input.Items))
	for i, in := range input.Items {
		items[i] = Item{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Discount:  in.Discount,
			Total:     LineTotal(in.Quantity, in.UnitPrice, in.Discount),
		}
	}
	subtotal := Subtotal(items)
	total := InvoiceTotal(subtotal, input.Tax, input.Discount)
	if total < 0 {
		return nil, fmt.Errorf("sales: total must not be negative: %w", shared.ErrValidation)
	}

	sale := &Sale{
		AgencyID:      input.AgencyID,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Items:         items,
		Subtotal:      subtotal,
		Tax:           input.Tax,
		Discount:      input.Discount,
		Total:         total,
		PaymentMethod: input.PaymentMethod,
		Status:        status,
		Notes:         input.Notes,
		ProcessedBy:   actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		agency, err := tx.GetAgencyForUpdate(ctx, input.AgencyID)
		if err != nil {
			return err
		}
		if !agency.IsActive || agency.Type != "agency" {
			return fmt.Errorf("sales: agency %d not sellable: %w", input.AgencyID, shared.ErrInactiveAgency)
		}

		seq, err := tx.NextInvoiceSeq(ctx, now)
		if err != nil {
			return err
		}
		sale.InvoiceNumber = FormatInvoiceNumber(now, seq)

		saleID, err := tx.InsertSale(ctx, *sale)
		if err != nil {
			return err
		}
		sale.ID = saleID
		for i := range sale.Items {
			sale.Items[i].SaleID = saleID
		}
		if err := tx.InsertSaleItems(ctx, saleID, sale.Items); err != nil {
			return err
		}

		if sale.Status != StatusCompleted {
			return nil
		}

		var cogs, soldQty float64
		for i := range sale.Items {
			item := &sale.Items[i]
			product, err := tx.GetProductForUpdate(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if product.AgencyID != input.AgencyID {
				return fmt.Errorf("sales: product %d not stocked by agency %d: %w", item.ProductID, input.AgencyID, shared.ErrValidation)
			}
			item.ProductName = product.Name

			if err := tx.DecrementStockGuarded(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}

			lineCost := product.CostPrice * item.Quantity
			cogs += lineCost
			soldQty += item.Quantity

			err = tx.InsertMovement(ctx, MovementParams{
				AgencyID:    input.AgencyID,
				ProductID:   item.ProductID,
				Type:        inventory.TypeSale,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				TotalValue:  item.Total,
				CostPrice:   product.CostPrice,
				Profit:      (item.UnitPrice - product.CostPrice) * item.Quantity,
				Reference:   sale.InvoiceNumber,
				Notes:       fmt.Sprintf("Sale to %s", sale.CustomerName),
				ProcessedBy: actorID,
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}

			if err := tx.BumpProductSaleCounters(ctx, item.ProductID, item.Quantity, item.Total, now); err != nil {
				return err
			}
		}

		sale.CostOfGoodsSold = cogs
		sale.Profit = sale.Total - cogs
		if err := tx.FinalizeSale(ctx, saleID, sale.CostOfGoodsSold, sale.Profit); err != nil {
			return err
		}
		return tx.ApplyAgencySale(ctx, input.AgencyID, sale.Total, sale.Profit, soldQty, cogs, now)
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "sales:create",
			Entity:   "sale",
			EntityID: sale.InvoiceNumber,
			Meta:     map[string]any{"agency_id": sale.AgencyID, "total": sale.Total, "status": sale.Status},
		})
	}
	return sale, nil
}

// Cancel moves a sale to cancelled, reversing stock, ledger and counters when
// the sale had completed.
func (s *Service) Cancel(ctx context.Context, saleID int64, actorID int64) (*Sale, error) {
	now := s.now()
	var cancelled *Sale

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == StatusCancelled {
			return fmt.Errorf("sales: invoice %s already cancelled: %w", sale.InvoiceNumber, shared.ErrValidation)
		}
		wasCompleted := sale.Status == StatusCompleted

		if wasCompleted {
			items, err := tx.GetSaleItems(ctx, saleID)
			if err != nil {
				return err
			}
			var restockQty float64
			for _, item := range items {
				product, err := tx.GetProductForUpdate(ctx, item.ProductID)
				if err != nil {
					return err
				}
				if err := tx.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
				restockQty += item.Quantity

				err = tx.InsertMovement(ctx, MovementParams{
					AgencyID:    sale.AgencyID,
					ProductID:   item.ProductID,
					Type:        inventory.TypeReturn,
					Quantity:    item.Quantity,
					UnitPrice:   item.UnitPrice,
					TotalValue:  item.Total,
					CostPrice:   product.CostPrice,
					Reference:   sale.InvoiceNumber,
					Notes:       "Sale cancellation",
					ProcessedBy: actorID,
					CreatedAt:   now,
				})
				if err != nil {
					return err
				}
				if err := tx.BumpProductSaleCounters(ctx, item.ProductID, -item.Quantity, -item.Total, now); err != nil {
					return err
				}
			}
			err = tx.ApplyAgencySale(ctx, sale.AgencyID, -sale.Total, -sale.Profit, -restockQty, -sale.CostOfGoodsSold, now)
			if err != nil {
				return err
			}
		}

		if err := tx.SetSaleStatus(ctx, saleID, StatusCancelled); err != nil {
			return err
		}
		sale.Status = StatusCancelled
		cancelled = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "sales:cancel",
			Entity:   "sale",
			EntityID: cancelled.InvoiceNumber,
		})
	}
	return cancelled, nil
}

// Get loads one sale with its items.
func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.Get(ctx, id)
}

// List returns filtered sales plus pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, shared.Pagination, error) {
	sales, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return sales, shared.NewPagination(filter.Page, filter.PerPage, len(sales), total), nil
}

// StatsOverview aggregates sales for the stats endpoint.
func (s *Service) StatsOverview(ctx context.Context) (*Overview, error) {
	return s.repo.StatsOverview(ctx)
}
