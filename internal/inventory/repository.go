package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-dms/meridian-dms/internal/platform/db"
	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// Repository persists inventory movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetAgencyForUpdate(ctx context.Context, agencyID int64) (AgencyState, error)
	GetProductForUpdate(ctx context.Context, productID int64) (ProductState, error)
	InsertMovement(ctx context.Context, movement Movement) (int64, error)
	IncrementStock(ctx context.Context, productID int64, qty float64) error
	DecrementStockGuarded(ctx context.Context, productID int64, qty float64) error
	ApplySupply(ctx context.Context, agencyID int64, qty, value float64, at time.Time) error
	ApplyWithdrawal(ctx context.Context, agencyID int64, qty, value float64) error
	AdjustAgencyStock(ctx context.Context, agencyID int64, qty, value float64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction, retrying
// serialization failures when concurrent movements hit the same rows.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (r *txRepo) GetAgencyForUpdate(ctx context.Context, agencyID int64) (AgencyState, error) {
	var a AgencyState
	err := r.tx.QueryRow(ctx, `SELECT id, type, is_active FROM agencies WHERE id = $1 FOR UPDATE`, agencyID).
		Scan(&a.ID, &a.Type, &a.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AgencyState{}, fmt.Errorf("inventory: agency %d: %w", agencyID, shared.ErrNotFound)
		}
		return AgencyState{}, err
	}
	return a, nil
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (ProductState, error) {
	var p ProductState
	err := r.tx.QueryRow(ctx, `SELECT id, agency_id, name, price_cost, stock_current, is_active
FROM products WHERE id = $1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.AgencyID, &p.Name, &p.CostPrice, &p.StockCurrent, &p.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductState{}, fmt.Errorf("inventory: product %d: %w", productID, shared.ErrNotFound)
		}
		return ProductState{}, err
	}
	return p, nil
}

func (r *txRepo) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_movements
(agency_id, product_id, type, quantity, unit_price, total_value, cost_price, profit, reference, batch_number, expiry_date, notes, processed_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id`,
		m.AgencyID, m.ProductID, m.Type, m.Quantity, m.UnitPrice, m.TotalValue, m.CostPrice, m.Profit,
		m.Reference, m.BatchNumber, m.ExpiryDate, m.Notes, m.ProcessedBy, m.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepo) IncrementStock(ctx context.Context, productID int64, qty float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET stock_current = stock_current + $2, updated_at = NOW() WHERE id = $1`, productID, qty)
	return err
}

// DecrementStockGuarded only applies when the remaining stock stays non-negative.
func (r *txRepo) DecrementStockGuarded(ctx context.Context, productID int64, qty float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET stock_current = stock_current - $2, updated_at = NOW()
WHERE id = $1 AND stock_current >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inventory: product %d short by request of %g: %w", productID, qty, shared.ErrInsufficientStock)
	}
	return nil
}

func (r *txRepo) ApplySupply(ctx context.Context, agencyID int64, qty, value float64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE agencies SET
current_stock = current_stock + $2,
total_value = total_value + $3,
last_supply_at = $4,
updated_at = NOW()
WHERE id = $1`, agencyID, qty, value, at)
	return err
}

func (r *txRepo) ApplyWithdrawal(ctx context.Context, agencyID int64, qty, value float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE agencies SET
current_stock = GREATEST(current_stock - $2, 0),
total_value = GREATEST(total_value - $3, 0),
updated_at = NOW()
WHERE id = $1`, agencyID, qty, value)
	return err
}

// AdjustAgencyStock applies a signed correction without touching supply or
// sale timestamps.
func (r *txRepo) AdjustAgencyStock(ctx context.Context, agencyID int64, qty, value float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE agencies SET
current_stock = GREATEST(current_stock + $2, 0),
total_value = GREATEST(total_value + $3, 0),
updated_at = NOW()
WHERE id = $1`, agencyID, qty, value)
	return err
}

// List returns movements newest first with a total count for pagination.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Movement, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.AgencyID > 0 {
		where = append(where, "m.agency_id = "+arg(filter.AgencyID))
	}
	if filter.Type != "" {
		where = append(where, "m.type = "+arg(filter.Type))
	}
	if !filter.From.IsZero() {
		where = append(where, "m.created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "m.created_at <= "+arg(filter.To))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_movements m WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := fmt.Sprintf(`SELECT m.id, m.agency_id, m.product_id, p.name, m.type, m.quantity, m.unit_price, m.total_value,
m.cost_price, m.profit, m.reference, m.batch_number, m.expiry_date, m.notes, m.processed_by, m.created_at
FROM inventory_movements m
JOIN products p ON p.id = m.product_id
WHERE %s ORDER BY m.created_at DESC LIMIT %s OFFSET %s`, cond, arg(perPage), arg((page-1)*perPage))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.AgencyID, &m.ProductID, &m.ProductName, &m.Type, &m.Quantity, &m.UnitPrice, &m.TotalValue,
			&m.CostPrice, &m.Profit, &m.Reference, &m.BatchNumber, &m.ExpiryDate, &m.Notes, &m.ProcessedBy, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		movements = append(movements, m)
	}
	return movements, total, rows.Err()
}
