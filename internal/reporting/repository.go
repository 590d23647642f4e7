package reporting

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the dashboard aggregation queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SalesWindow totals completed sales between from (inclusive) and to (exclusive).
func (r *Repository) SalesWindow(ctx context.Context, from, to time.Time) (WindowTotals, error) {
	var w WindowTotals
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0)
FROM sales WHERE status = 'completed' AND created_at >= $1 AND created_at < $2`, from, to).
		Scan(&w.Count, &w.Total)
	return w, err
}

// ProductCounts returns active and low-stock product counts.
func (r *Repository) ProductCounts(ctx context.Context) (active, lowStock int, err error) {
	err = r.pool.QueryRow(ctx, `SELECT
COUNT(*) FILTER (WHERE is_active),
COUNT(*) FILTER (WHERE is_active AND stock_current <= stock_minimum)
FROM products`).Scan(&active, &lowStock)
	return active, lowStock, err
}

// CustomerCount counts distinct invoiced customers.
func (r *Repository) CustomerCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT customer_name) FROM sales`).Scan(&n)
	return n, err
}

// RecentOrders returns the latest invoices with their agency names.
func (r *Repository) RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.invoice_number, a.name, s.customer_name, s.total, s.status, s.created_at
FROM sales s
JOIN agencies a ON a.id = s.agency_id
ORDER BY s.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []RecentOrder
	for rows.Next() {
		var o RecentOrder
		if err := rows.Scan(&o.ID, &o.InvoiceNumber, &o.AgencyName, &o.CustomerName, &o.Total, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// DailySeries buckets completed sales per day from the given start.
func (r *Repository) DailySeries(ctx context.Context, from time.Time) ([]DailyPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD'), COUNT(*), COALESCE(SUM(total), 0)
FROM sales WHERE status = 'completed' AND created_at >= $1
GROUP BY 1 ORDER BY 1`, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var series []DailyPoint
	for rows.Next() {
		var p DailyPoint
		if err := rows.Scan(&p.Day, &p.Count, &p.Total); err != nil {
			return nil, err
		}
		series = append(series, p)
	}
	return series, rows.Err()
}

// ActiveAgencies returns active agencies with their cached counters.
func (r *Repository) ActiveAgencies(ctx context.Context) ([]AgencySnapshot, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, type, current_stock, total_value, total_sales, total_profit
FROM agencies WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var agencies []AgencySnapshot
	for rows.Next() {
		var a AgencySnapshot
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.CurrentStock, &a.TotalValue, &a.TotalSales, &a.TotalProfit); err != nil {
			return nil, err
		}
		agencies = append(agencies, a)
	}
	return agencies, rows.Err()
}

// AgencyPerformance groups completed sales since from by agency.
func (r *Repository) AgencyPerformance(ctx context.Context, from time.Time) ([]AgencyPerformance, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.agency_id, a.name, COUNT(*), COALESCE(SUM(s.total), 0), COALESCE(SUM(s.profit), 0)
FROM sales s
JOIN agencies a ON a.id = s.agency_id
WHERE s.status = 'completed' AND s.created_at >= $1
GROUP BY s.agency_id, a.name
ORDER BY SUM(s.total) DESC`, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perf []AgencyPerformance
	for rows.Next() {
		var p AgencyPerformance
		if err := rows.Scan(&p.AgencyID, &p.AgencyName, &p.SalesCount, &p.SalesTotal, &p.Profit); err != nil {
			return nil, err
		}
		perf = append(perf, p)
	}
	return perf, rows.Err()
}
