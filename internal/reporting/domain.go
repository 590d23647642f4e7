package reporting

import "time"

// WindowTotals aggregates completed sales over a time window.
type WindowTotals struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// RecentOrder is a row in the dashboard's latest-invoices table.
type RecentOrder struct {
	ID            int64     `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	AgencyName    string    `json:"agency_name"`
	CustomerName  string    `json:"customer_name"`
	Total         float64   `json:"total"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// DailyPoint is one day in the sales chart series.
type DailyPoint struct {
	Day   string  `json:"day"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// AgencySnapshot is an active agency with its cached counters.
type AgencySnapshot struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	CurrentStock float64 `json:"current_stock"`
	TotalValue   float64 `json:"total_value"`
	TotalSales   float64 `json:"total_sales"`
	TotalProfit  float64 `json:"total_profit"`
}

// AgencyPerformance groups this month's completed sales by agency.
type AgencyPerformance struct {
	AgencyID   int64   `json:"agency_id"`
	AgencyName string  `json:"agency_name"`
	SalesCount int     `json:"sales_count"`
	SalesTotal float64 `json:"sales_total"`
	Profit     float64 `json:"profit"`
}

// Dashboard is the assembled stats payload.
type Dashboard struct {
	Today             WindowTotals        `json:"today"`
	Month             WindowTotals        `json:"month"`
	MonthChangePct    float64             `json:"month_change_pct"`
	ActiveProducts    int                 `json:"active_products"`
	LowStockProducts  int                 `json:"low_stock_products"`
	Customers         int                 `json:"customers"`
	RecentOrders      []RecentOrder       `json:"recent_orders"`
	SalesChart        []DailyPoint        `json:"sales_chart"`
	Agencies          []AgencySnapshot    `json:"agencies"`
	AgencyPerformance []AgencyPerformance `json:"agency_performance"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// MonthChange computes the month-over-month revenue change percentage.
func MonthChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return (current - previous) / previous * 100
}
