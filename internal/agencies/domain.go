package agencies

import "time"

// Agency types.
const (
	TypeAgency      = "agency"
	TypeDistributor = "distributor"
)

// Counters are additive reflections of movement and sale history. The
// reconcile job rewrites them from the ledgers when they drift.
type Counters struct {
	TotalProducts int     `json:"total_products"`
	CurrentStock  float64 `json:"current_stock"`
	TotalValue    float64 `json:"total_value"`
	TotalSales    float64 `json:"total_sales"`
	TotalProfit   float64 `json:"total_profit"`
}

// Agency is a partner outlet supplied and invoiced by the distributor.
type Agency struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	ContactPerson string     `json:"contact_person"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email"`
	Street        string     `json:"street"`
	City          string     `json:"city"`
	State         string     `json:"state"`
	Pincode       string     `json:"pincode"`
	IsActive      bool       `json:"is_active"`
	Counters      Counters   `json:"counters"`
	LastSupplyAt  *time.Time `json:"last_supply_at"`
	LastSaleAt    *time.Time `json:"last_sale_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateInput creates an agency.
type CreateInput struct {
	Name          string `json:"name" validate:"required,min=2,max=100"`
	Type          string `json:"type" validate:"omitempty,oneof=agency distributor"`
	ContactPerson string `json:"contact_person" validate:"required,min=2,max=50"`
	Phone         string `json:"phone" validate:"required,min=7,max=20"`
	Email         string `json:"email" validate:"omitempty,email"`
	Street        string `json:"street"`
	City          string `json:"city"`
	State         string `json:"state"`
	Pincode       string `json:"pincode"`
}

// UpdateInput applies partial changes to an agency.
type UpdateInput struct {
	Name          *string `json:"name" validate:"omitempty,min=2,max=100"`
	Type          *string `json:"type" validate:"omitempty,oneof=agency distributor"`
	ContactPerson *string `json:"contact_person" validate:"omitempty,min=2,max=50"`
	Phone         *string `json:"phone" validate:"omitempty,min=7,max=20"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Street        *string `json:"street"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	Pincode       *string `json:"pincode"`
	IsActive      *bool   `json:"is_active"`
}

// ProductSummary is a catalog row shown on the agency detail view.
type ProductSummary struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	SellingPrice float64 `json:"selling_price"`
	StockCurrent float64 `json:"stock_current"`
	StockMinimum float64 `json:"stock_minimum"`
}

// SaleSummary is a recent invoice shown on the agency detail view.
type SaleSummary struct {
	ID            int64     `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	CustomerName  string    `json:"customer_name"`
	Total         float64   `json:"total"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// MovementSummary is a recent ledger entry shown on the agency detail view.
type MovementSummary struct {
	ID          int64     `json:"id"`
	ProductName string    `json:"product_name"`
	Type        string    `json:"type"`
	Quantity    float64   `json:"quantity"`
	TotalValue  float64   `json:"total_value"`
	CreatedAt   time.Time `json:"created_at"`
}

// Detail aggregates an agency with its recent activity.
type Detail struct {
	Agency          Agency            `json:"agency"`
	Products        []ProductSummary  `json:"products"`
	RecentSales     []SaleSummary     `json:"recent_sales"`
	RecentMovements []MovementSummary `json:"recent_movements"`
}

// Stats is a windowed aggregation computed from the ledgers, independent of
// the cached counters.
type Stats struct {
	Period        string    `json:"period"`
	From          time.Time `json:"from"`
	SalesCount    int       `json:"sales_count"`
	SalesTotal    float64   `json:"sales_total"`
	ProfitTotal   float64   `json:"profit_total"`
	IncomingQty   float64   `json:"incoming_qty"`
	IncomingValue float64   `json:"incoming_value"`
	OutgoingQty   float64   `json:"outgoing_qty"`
	OutgoingValue float64   `json:"outgoing_value"`
	CurrentStock  float64   `json:"current_stock"`
	StockValue    float64   `json:"stock_value"`
}

// PeriodWindow resolves a named period to its start time.
func PeriodWindow(period string, now time.Time) (time.Time, bool) {
	switch period {
	case "week":
		return now.AddDate(0, 0, -7), true
	case "month":
		return now.AddDate(0, 0, -30), true
	case "quarter":
		return now.AddDate(0, 0, -90), true
	case "year":
		return now.AddDate(0, 0, -365), true
	default:
		return time.Time{}, false
	}
}
