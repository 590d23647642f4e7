package reconcile

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AgencyCounters are the cached rollups stored on an agency row.
type AgencyCounters struct {
	TotalProducts int
	CurrentStock  float64
	TotalValue    float64
	TotalSales    float64
	TotalProfit   float64
}

// ProductCounters are the cached sale rollups stored on a product row.
type ProductCounters struct {
	ProductID    int64
	TotalSold    float64
	TotalRevenue float64
}

// LowStockProduct is a catalog row at or below its minimum level.
type LowStockProduct struct {
	ID           int64
	Name         string
	AgencyID     int64
	StockCurrent float64
	StockMinimum float64
}

// Repository reads ledger truth and rewrites cached counters.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AgencyIDs returns every agency id, inactive ones included so stale counters
// cannot hide behind a deactivation.
func (r *Repository) AgencyIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM agencies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StoredAgencyCounters reads the cached counters.
func (r *Repository) StoredAgencyCounters(ctx context.Context, agencyID int64) (AgencyCounters, error) {
	var c AgencyCounters
	err := r.pool.QueryRow(ctx, `SELECT total_products, current_stock, total_value, total_sales, total_profit
FROM agencies WHERE id = $1`, agencyID).
		Scan(&c.TotalProducts, &c.CurrentStock, &c.TotalValue, &c.TotalSales, &c.TotalProfit)
	return c, err
}

// DerivedAgencyCounters replays the catalog and sale history for one agency.
func (r *Repository) DerivedAgencyCounters(ctx context.Context, agencyID int64) (AgencyCounters, error) {
	var c AgencyCounters
	err := r.pool.QueryRow(ctx, `SELECT
COUNT(*) FILTER (WHERE is_active),
COALESCE(SUM(stock_current) FILTER (WHERE is_active), 0),
COALESCE(SUM(stock_current * price_cost) FILTER (WHERE is_active), 0)
FROM products WHERE agency_id = $1`, agencyID).
		Scan(&c.TotalProducts, &c.CurrentStock, &c.TotalValue)
	if err != nil {
		return AgencyCounters{}, err
	}
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total), 0), COALESCE(SUM(profit), 0)
FROM sales WHERE agency_id = $1 AND status = 'completed'`, agencyID).
		Scan(&c.TotalSales, &c.TotalProfit)
	if err != nil {
		return AgencyCounters{}, err
	}
	return c, nil
}

// WriteAgencyCounters rewrites the cached counters.
func (r *Repository) WriteAgencyCounters(ctx context.Context, agencyID int64, c AgencyCounters) error {
	_, err := r.pool.Exec(ctx, `UPDATE agencies SET
total_products = $2,
current_stock = $3,
total_value = $4,
total_sales = $5,
total_profit = $6,
updated_at = NOW()
WHERE id = $1`, agencyID, c.TotalProducts, c.CurrentStock, c.TotalValue, c.TotalSales, c.TotalProfit)
	return err
}

// DriftedProductCounters returns products whose cached sale rollups disagree
// with the item history of completed sales.
func (r *Repository) DriftedProductCounters(ctx context.Context) ([]ProductCounters, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, COALESCE(h.sold, 0), COALESCE(h.revenue, 0)
FROM products p
LEFT JOIN (
    SELECT i.product_id, SUM(i.quantity) AS sold, SUM(i.total) AS revenue
    FROM sale_items i
    JOIN sales s ON s.id = i.sale_id
    WHERE s.status = 'completed'
    GROUP BY i.product_id
) h ON h.product_id = p.id
WHERE p.total_sold <> COALESCE(h.sold, 0) OR p.total_revenue <> COALESCE(h.revenue, 0)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var drifted []ProductCounters
	for rows.Next() {
		var c ProductCounters
		if err := rows.Scan(&c.ProductID, &c.TotalSold, &c.TotalRevenue); err != nil {
			return nil, err
		}
		drifted = append(drifted, c)
	}
	return drifted, rows.Err()
}

// WriteProductCounters rewrites one product's cached sale rollups.
func (r *Repository) WriteProductCounters(ctx context.Context, c ProductCounters) error {
	_, err := r.pool.Exec(ctx, `UPDATE products SET total_sold = $2, total_revenue = $3, updated_at = NOW() WHERE id = $1`,
		c.ProductID, c.TotalSold, c.TotalRevenue)
	return err
}

// LowStock returns active products at or below their minimum level.
func (r *Repository) LowStock(ctx context.Context) ([]LowStockProduct, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, agency_id, stock_current, stock_minimum
FROM products WHERE is_active AND stock_current <= stock_minimum ORDER BY stock_current`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []LowStockProduct
	for rows.Next() {
		var p LowStockProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.AgencyID, &p.StockCurrent, &p.StockMinimum); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
