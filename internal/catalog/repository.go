package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-dms/meridian-dms/internal/platform/db"
	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, agency_id, category, price_cost, price_selling, stock_current, stock_minimum, stock_maximum,
sku, barcode, expiry_date, is_active, total_sold, total_revenue, last_sold_at, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.AgencyID, &p.Category, &p.PriceCost, &p.PriceSelling, &p.StockCurrent, &p.StockMinimum, &p.StockMaximum,
		&p.SKU, &p.Barcode, &p.ExpiryDate, &p.IsActive, &p.TotalSold, &p.TotalRevenue, &p.LastSoldAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("catalog: sku or barcode taken: %w", shared.ErrDuplicate)
	}
	return err
}

// Create inserts the product and bumps the agency's product counter in one
// transaction.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Product, error) {
	var product *Product
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var isActive bool
		err := tx.QueryRow(ctx, `SELECT is_active FROM agencies WHERE id = $1 FOR UPDATE`, input.AgencyID).Scan(&isActive)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("catalog: agency %d: %w", input.AgencyID, shared.ErrNotFound)
			}
			return err
		}
		if !isActive {
			return fmt.Errorf("catalog: agency %d: %w", input.AgencyID, shared.ErrInactiveAgency)
		}

		row := tx.QueryRow(ctx, `INSERT INTO products
(name, agency_id, category, price_cost, price_selling, stock_current, stock_minimum, stock_maximum, sku, barcode, expiry_date, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, NOW(), NOW())
RETURNING `+productColumns,
			input.Name, input.AgencyID, input.Category, input.PriceCost, input.PriceSelling,
			input.StockCurrent, input.StockMinimum, input.StockMaximum, input.SKU, input.Barcode, input.ExpiryDate)
		product, err = scanProduct(row)
		if err != nil {
			return mapDuplicate(err)
		}

		_, err = tx.Exec(ctx, `UPDATE agencies SET total_products = total_products + 1, updated_at = NOW() WHERE id = $1`, input.AgencyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Get returns one product by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// List returns filtered products with a total count for pagination.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	where := []string{"is_active"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.AgencyID > 0 {
		where = append(where, "agency_id = "+arg(filter.AgencyID))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR sku ILIKE %s OR barcode ILIKE %s)", p, p, p))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
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
	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY name LIMIT %s OFFSET %s`,
		productColumns, cond, arg(perPage), arg((page-1)*perPage))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

// Update applies partial changes.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateInput) (*Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products SET
name = COALESCE($2, name),
category = COALESCE($3, category),
price_cost = COALESCE($4, price_cost),
price_selling = COALESCE($5, price_selling),
stock_minimum = COALESCE($6, stock_minimum),
stock_maximum = COALESCE($7, stock_maximum),
sku = COALESCE($8, sku),
barcode = COALESCE($9, barcode),
expiry_date = COALESCE($10, expiry_date),
is_active = COALESCE($11, is_active),
updated_at = NOW()
WHERE id = $1
RETURNING `+productColumns,
		id, input.Name, input.Category, input.PriceCost, input.PriceSelling,
		input.StockMinimum, input.StockMaximum, input.SKU, input.Barcode, input.ExpiryDate, input.IsActive)
	product, err := scanProduct(row)
	if err != nil {
		return nil, mapDuplicate(err)
	}
	return product, nil
}

// SoftDelete marks the product inactive and releases its counter slot.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var agencyID int64
		err := tx.QueryRow(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW()
WHERE id = $1 AND is_active RETURNING agency_id`, id).Scan(&agencyID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE agencies SET total_products = GREATEST(total_products - 1, 0), updated_at = NOW() WHERE id = $1`, agencyID)
		return err
	})
}

// StatsOverview aggregates catalog health numbers.
func (r *Repository) StatsOverview(ctx context.Context) (*Overview, error) {
	var o Overview
	err := r.pool.QueryRow(ctx, `SELECT
COUNT(*),
COUNT(*) FILTER (WHERE is_active),
COUNT(*) FILTER (WHERE is_active AND stock_current > 0 AND stock_current <= stock_minimum),
COUNT(*) FILTER (WHERE is_active AND stock_current <= 0),
COALESCE(SUM(stock_current * price_cost) FILTER (WHERE is_active), 0)
FROM products`).Scan(&o.TotalProducts, &o.ActiveCount, &o.LowStockCount, &o.OutOfStock, &o.StockValue)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, name, total_sold, total_revenue
FROM products WHERE is_active AND total_sold > 0 ORDER BY total_sold DESC LIMIT 5`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t TopSeller
		if err := rows.Scan(&t.ID, &t.Name, &t.TotalSold, &t.Revenue); err != nil {
			return nil, err
		}
		o.TopSellers = append(o.TopSellers, t)
	}
	return &o, rows.Err()
}
