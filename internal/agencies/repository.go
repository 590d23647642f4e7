package agencies

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// Repository persists agencies in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const agencyColumns = `id, name, type, contact_person, phone, email, street, city, state, pincode, is_active,
total_products, current_stock, total_value, total_sales, total_profit, last_supply_at, last_sale_at, created_at, updated_at`

func scanAgency(row pgx.Row) (*Agency, error) {
	var a Agency
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.ContactPerson, &a.Phone, &a.Email, &a.Street, &a.City, &a.State, &a.Pincode, &a.IsActive,
		&a.Counters.TotalProducts, &a.Counters.CurrentStock, &a.Counters.TotalValue, &a.Counters.TotalSales, &a.Counters.TotalProfit,
		&a.LastSupplyAt, &a.LastSaleAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// List returns active agencies sorted by name, counters included.
func (r *Repository) List(ctx context.Context) ([]Agency, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+agencyColumns+` FROM agencies WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var agencies []Agency
	for rows.Next() {
		a, err := scanAgency(rows)
		if err != nil {
			return nil, err
		}
		agencies = append(agencies, *a)
	}
	return agencies, rows.Err()
}

// Get returns one agency regardless of active state.
func (r *Repository) Get(ctx context.Context, id int64) (*Agency, error) {
	return scanAgency(r.pool.QueryRow(ctx, `SELECT `+agencyColumns+` FROM agencies WHERE id = $1`, id))
}

// Create inserts a new agency with zeroed counters.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Agency, error) {
	agencyType := input.Type
	if agencyType == "" {
		agencyType = TypeAgency
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO agencies
(name, type, contact_person, phone, email, street, city, state, pincode, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, NOW(), NOW())
RETURNING `+agencyColumns,
		input.Name, agencyType, input.ContactPerson, input.Phone, input.Email, input.Street, input.City, input.State, input.Pincode)
	agency, err := scanAgency(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("agencies: name taken: %w", shared.ErrDuplicate)
		}
		return nil, err
	}
	return agency, nil
}

// Update applies partial changes.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateInput) (*Agency, error) {
	row := r.pool.QueryRow(ctx, `UPDATE agencies SET
name = COALESCE($2, name),
type = COALESCE($3, type),
contact_person = COALESCE($4, contact_person),
phone = COALESCE($5, phone),
email = COALESCE($6, email),
street = COALESCE($7, street),
city = COALESCE($8, city),
state = COALESCE($9, state),
pincode = COALESCE($10, pincode),
is_active = COALESCE($11, is_active),
updated_at = NOW()
WHERE id = $1
RETURNING `+agencyColumns,
		id, input.Name, input.Type, input.ContactPerson, input.Phone, input.Email, input.Street, input.City, input.State, input.Pincode, input.IsActive)
	agency, err := scanAgency(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("agencies: name taken: %w", shared.ErrDuplicate)
		}
		return nil, err
	}
	return agency, nil
}

// SoftDelete marks the agency inactive.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE agencies SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListProducts returns the agency's active catalog rows.
func (r *Repository) ListProducts(ctx context.Context, agencyID int64) ([]ProductSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, category, price_selling, stock_current, stock_minimum
FROM products WHERE agency_id = $1 AND is_active ORDER BY name`, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []ProductSummary
	for rows.Next() {
		var p ProductSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.SellingPrice, &p.StockCurrent, &p.StockMinimum); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// RecentSales returns the agency's latest invoices.
func (r *Repository) RecentSales(ctx context.Context, agencyID int64, limit int) ([]SaleSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_number, customer_name, total, status, created_at
FROM sales WHERE agency_id = $1 ORDER BY created_at DESC LIMIT $2`, agencyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sales []SaleSummary
	for rows.Next() {
		var s SaleSummary
		if err := rows.Scan(&s.ID, &s.InvoiceNumber, &s.CustomerName, &s.Total, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// RecentMovements returns the agency's latest ledger entries.
func (r *Repository) RecentMovements(ctx context.Context, agencyID int64, limit int) ([]MovementSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT m.id, p.name, m.type, m.quantity, m.total_value, m.created_at
FROM inventory_movements m
JOIN products p ON p.id = m.product_id
WHERE m.agency_id = $1
ORDER BY m.created_at DESC LIMIT $2`, agencyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []MovementSummary
	for rows.Next() {
		var m MovementSummary
		if err := rows.Scan(&m.ID, &m.ProductName, &m.Type, &m.Quantity, &m.TotalValue, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// WindowedStats aggregates sales and movements since the given time, plus a
// current stock snapshot from the catalog.
func (r *Repository) WindowedStats(ctx context.Context, agencyID int64, from time.Time) (*Stats, error) {
	stats := &Stats{From: from}

	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(profit), 0)
FROM sales WHERE agency_id = $1 AND status = 'completed' AND created_at >= $2`, agencyID, from).
		Scan(&stats.SalesCount, &stats.SalesTotal, &stats.ProfitTotal)
	if err != nil {
		return nil, fmt.Errorf("agencies: sales window: %w", err)
	}

	err = r.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(quantity) FILTER (WHERE type IN ('incoming', 'return')), 0),
COALESCE(SUM(total_value) FILTER (WHERE type IN ('incoming', 'return')), 0),
COALESCE(SUM(quantity) FILTER (WHERE type IN ('outgoing', 'sale')), 0),
COALESCE(SUM(total_value) FILTER (WHERE type IN ('outgoing', 'sale')), 0)
FROM inventory_movements WHERE agency_id = $1 AND created_at >= $2`, agencyID, from).
		Scan(&stats.IncomingQty, &stats.IncomingValue, &stats.OutgoingQty, &stats.OutgoingValue)
	if err != nil {
		return nil, fmt.Errorf("agencies: movement window: %w", err)
	}

	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(stock_current), 0), COALESCE(SUM(stock_current * price_cost), 0)
FROM products WHERE agency_id = $1 AND is_active`, agencyID).
		Scan(&stats.CurrentStock, &stats.StockValue)
	if err != nil {
		return nil, fmt.Errorf("agencies: stock snapshot: %w", err)
	}

	return stats, nil
}
