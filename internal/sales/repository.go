package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-dms/meridian-dms/internal/platform/db"
	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	NextInvoiceSeq(ctx context.Context, day time.Time) (int64, error)
	GetAgencyForUpdate(ctx context.Context, agencyID int64) (AgencyState, error)
	GetProductForUpdate(ctx context.Context, productID int64) (ProductState, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertSaleItems(ctx context.Context, saleID int64, items []Item) error
	DecrementStockGuarded(ctx context.Context, productID int64, qty float64) error
	IncrementStock(ctx context.Context, productID int64, qty float64) error
	InsertMovement(ctx context.Context, params MovementParams) error
	BumpProductSaleCounters(ctx context.Context, productID int64, qty, revenue float64, at time.Time) error
	FinalizeSale(ctx context.Context, saleID int64, cogs, profit float64) error
	ApplyAgencySale(ctx context.Context, agencyID int64, total, profit, stockQty, stockValue float64, at time.Time) error
	GetSaleForUpdate(ctx context.Context, saleID int64) (*Sale, error)
	GetSaleItems(ctx context.Context, saleID int64) ([]Item, error)
	SetSaleStatus(ctx context.Context, saleID int64, status string) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction. Serialization
// failures rerun the callback in a fresh transaction, so overlapping sales
// contending on the invoice counter or a shared product row retry instead of
// surfacing an error.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// NextInvoiceSeq allocates the next per-day sequence. The upsert keeps the
// counter row locked until commit, so concurrent sales serialize here and no
// two commits share a number.
func (r *txRepo) NextInvoiceSeq(ctx context.Context, day time.Time) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invoice_counters (day, counter) VALUES ($1, 1)
ON CONFLICT (day) DO UPDATE SET counter = invoice_counters.counter + 1
RETURNING counter`, day.Format("2006-01-02")).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("sales: allocate invoice seq: %w", err)
	}
	return seq, nil
}

func (r *txRepo) GetAgencyForUpdate(ctx context.Context, agencyID int64) (AgencyState, error) {
	var a AgencyState
	err := r.tx.QueryRow(ctx, `SELECT id, type, is_active FROM agencies WHERE id = $1 FOR UPDATE`, agencyID).
		Scan(&a.ID, &a.Type, &a.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AgencyState{}, fmt.Errorf("sales: agency %d: %w", agencyID, shared.ErrNotFound)
		}
		return AgencyState{}, err
	}
	return a, nil
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (ProductState, error) {
	var p ProductState
	err := r.tx.QueryRow(ctx, `SELECT id, agency_id, name, price_cost, stock_current
FROM products WHERE id = $1 AND is_active FOR UPDATE`, productID).
		Scan(&p.ID, &p.AgencyID, &p.Name, &p.CostPrice, &p.StockCurrent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductState{}, fmt.Errorf("sales: product %d: %w", productID, shared.ErrNotFound)
		}
		return ProductState{}, err
	}
	return p, nil
}

func (r *txRepo) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales
(invoice_number, agency_id, customer_name, customer_phone, subtotal, tax, discount, total, cost_of_goods_sold, profit, payment_method, status, notes, processed_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
RETURNING id`,
		sale.InvoiceNumber, sale.AgencyID, sale.CustomerName, sale.CustomerPhone,
		sale.Subtotal, sale.Tax, sale.Discount, sale.Total, sale.CostOfGoodsSold, sale.Profit,
		sale.PaymentMethod, sale.Status, sale.Notes, sale.ProcessedBy, sale.CreatedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("sales: invoice %s exists: %w", sale.InvoiceNumber, shared.ErrDuplicate)
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepo) InsertSaleItems(ctx context.Context, saleID int64, items []Item) error {
	for _, item := range items {
		_, err := r.tx.Exec(ctx, `INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, discount, total)
VALUES ($1, $2, $3, $4, $5, $6)`, saleID, item.ProductID, item.Quantity, item.UnitPrice, item.Discount, item.Total)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepo) DecrementStockGuarded(ctx context.Context, productID int64, qty float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET stock_current = stock_current - $2, updated_at = NOW()
WHERE id = $1 AND stock_current >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sales: product %d short by request of %g: %w", productID, qty, shared.ErrInsufficientStock)
	}
	return nil
}

func (r *txRepo) IncrementStock(ctx context.Context, productID int64, qty float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET stock_current = stock_current + $2, updated_at = NOW() WHERE id = $1`, productID, qty)
	return err
}

func (r *txRepo) InsertMovement(ctx context.Context, m MovementParams) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory_movements
(agency_id, product_id, type, quantity, unit_price, total_value, cost_price, profit, reference, batch_number, notes, processed_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', $10, $11, $12)`,
		m.AgencyID, m.ProductID, m.Type, m.Quantity, m.UnitPrice, m.TotalValue, m.CostPrice, m.Profit,
		m.Reference, m.Notes, m.ProcessedBy, m.CreatedAt)
	return err
}

func (r *txRepo) BumpProductSaleCounters(ctx context.Context, productID int64, qty, revenue float64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET
total_sold = total_sold + $2,
total_revenue = total_revenue + $3,
last_sold_at = $4,
updated_at = NOW()
WHERE id = $1`, productID, qty, revenue, at)
	return err
}

func (r *txRepo) FinalizeSale(ctx context.Context, saleID int64, cogs, profit float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE sales SET cost_of_goods_sold = $2, profit = $3, updated_at = NOW() WHERE id = $1`, saleID, cogs, profit)
	return err
}

func (r *txRepo) ApplyAgencySale(ctx context.Context, agencyID int64, total, profit, stockQty, stockValue float64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE agencies SET
total_sales = total_sales + $2,
total_profit = total_profit + $3,
current_stock = GREATEST(current_stock - $4, 0),
total_value = GREATEST(total_value - $5, 0),
last_sale_at = COALESCE($6, last_sale_at),
updated_at = NOW()
WHERE id = $1`, agencyID, total, profit, stockQty, stockValue, at)
	return err
}

const saleColumns = `id, invoice_number, agency_id, customer_name, customer_phone, subtotal, tax, discount, total,
cost_of_goods_sold, profit, payment_method, status, notes, processed_by, created_at, updated_at`

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.InvoiceNumber, &s.AgencyID, &s.CustomerName, &s.CustomerPhone, &s.Subtotal, &s.Tax, &s.Discount, &s.Total,
		&s.CostOfGoodsSold, &s.Profit, &s.PaymentMethod, &s.Status, &s.Notes, &s.ProcessedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *txRepo) GetSaleForUpdate(ctx context.Context, saleID int64) (*Sale, error) {
	return scanSale(r.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, saleID))
}

func (r *txRepo) GetSaleItems(ctx context.Context, saleID int64) ([]Item, error) {
	return querySaleItems(ctx, r.tx, saleID)
}

func (r *txRepo) SetSaleStatus(ctx context.Context, saleID int64, status string) error {
	_, err := r.tx.Exec(ctx, `UPDATE sales SET status = $2, updated_at = NOW() WHERE id = $1`, saleID, status)
	return err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func querySaleItems(ctx context.Context, q querier, saleID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT i.id, i.sale_id, i.product_id, p.name, i.quantity, i.unit_price, i.discount, i.total
FROM sale_items i
JOIN products p ON p.id = i.product_id
WHERE i.sale_id = $1 ORDER BY i.id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Discount, &item.Total); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get loads one sale with its items.
func (r *Repository) Get(ctx context.Context, id int64) (*Sale, error) {
	sale, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	sale.Items, err = querySaleItems(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// List returns sales newest first with a total count for pagination.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.AgencyID > 0 {
		where = append(where, "agency_id = "+arg(filter.AgencyID))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.PaymentMethod != "" {
		where = append(where, "payment_method = "+arg(filter.PaymentMethod))
	}
	if filter.Customer != "" {
		p := arg("%" + filter.Customer + "%")
		where = append(where, fmt.Sprintf("(customer_name ILIKE %s OR customer_phone ILIKE %s OR invoice_number ILIKE %s)", p, p, p))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE `+cond, args...).Scan(&total); err != nil {
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
	query := fmt.Sprintf(`SELECT %s FROM sales WHERE %s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		saleColumns, cond, arg(perPage), arg((page-1)*perPage))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var sales []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, *s)
	}
	return sales, total, rows.Err()
}

// StatsOverview aggregates completed sales for today, this month and all time,
// plus this month's top products.
func (r *Repository) StatsOverview(ctx context.Context) (*Overview, error) {
	var o Overview
	err := r.pool.QueryRow(ctx, `SELECT
COUNT(*) FILTER (WHERE created_at >= date_trunc('day', NOW())),
COALESCE(SUM(total) FILTER (WHERE created_at >= date_trunc('day', NOW())), 0),
COALESCE(SUM(profit) FILTER (WHERE created_at >= date_trunc('day', NOW())), 0),
COUNT(*) FILTER (WHERE created_at >= date_trunc('month', NOW())),
COALESCE(SUM(total) FILTER (WHERE created_at >= date_trunc('month', NOW())), 0),
COALESCE(SUM(profit) FILTER (WHERE created_at >= date_trunc('month', NOW())), 0),
COUNT(*),
COALESCE(SUM(total), 0),
COALESCE(SUM(profit), 0)
FROM sales WHERE status = 'completed'`).Scan(
		&o.Today.Count, &o.Today.Total, &o.Today.Profit,
		&o.Month.Count, &o.Month.Total, &o.Month.Profit,
		&o.AllTime.Count, &o.AllTime.Total, &o.AllTime.Profit)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT i.product_id, p.name, SUM(i.quantity), SUM(i.total)
FROM sale_items i
JOIN sales s ON s.id = i.sale_id
JOIN products p ON p.id = i.product_id
WHERE s.status = 'completed' AND s.created_at >= date_trunc('month', NOW())
GROUP BY i.product_id, p.name
ORDER BY SUM(i.total) DESC LIMIT 5`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t TopProduct
		if err := rows.Scan(&t.ProductID, &t.Name, &t.Quantity, &t.Revenue); err != nil {
			return nil, err
		}
		o.TopProducts = append(o.TopProducts, t)
	}
	return &o, rows.Err()
}
