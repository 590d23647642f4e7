package sales

import "time"

// Sale statuses.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
)

// Payment methods.
const (
	PaymentCash         = "cash"
	PaymentCard         = "card"
	PaymentUPI          = "upi"
	PaymentBankTransfer = "bank_transfer"
	PaymentCredit       = "credit"
)

// Item is one invoice line.
type Item struct {
	ID          int64   `json:"id"`
	SaleID      int64   `json:"sale_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

// Sale is an invoice issued to a customer of an agency.
type Sale struct {
	ID              int64     `json:"id"`
	InvoiceNumber   string    `json:"invoice_number"`
	AgencyID        int64     `json:"agency_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	Items           []Item    `json:"items"`
	Subtotal        float64   `json:"subtotal"`
	Tax             float64   `json:"tax"`
	Discount        float64   `json:"discount"`
	Total           float64   `json:"total"`
	CostOfGoodsSold float64   `json:"cost_of_goods_sold"`
	Profit          float64   `json:"profit"`
	PaymentMethod   string    `json:"payment_method"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes"`
	ProcessedBy     int64     `json:"processed_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ItemInput is one requested invoice line.
type ItemInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	Discount  float64 `json:"discount" validate:"gte=0,lte=100"`
}

// CreateInput creates a sale.
type CreateInput struct {
	AgencyID      int64       `json:"agency_id" validate:"required,gt=0"`
	CustomerName  string      `json:"customer_name" validate:"required,min=2,max=100"`
	CustomerPhone string      `json:"customer_phone"`
	Items         []ItemInput `json:"items" validate:"required,min=1,dive"`
	Tax           float64     `json:"tax" validate:"gte=0"`
	Discount      float64     `json:"discount" validate:"gte=0"`
	PaymentMethod string      `json:"payment_method" validate:"required,oneof=cash card upi bank_transfer credit"`
	Status        string      `json:"status" validate:"omitempty,oneof=completed pending"`
	Notes         string      `json:"notes"`
}

// ListFilter narrows sale listings.
type ListFilter struct {
	AgencyID      int64
	Status        string
	PaymentMethod string
	Customer      string
	Page          int
	PerPage       int
}

// AgencyState is the locked agency row checked before invoicing.
type AgencyState struct {
	ID       int64
	Type     string
	IsActive bool
}

// ProductState is the locked product row used while posting sale items.
type ProductState struct {
	ID           int64
	AgencyID     int64
	Name         string
	CostPrice    float64
	StockCurrent float64
}

// MovementParams writes a sale or return entry into the inventory ledger.
type MovementParams struct {
	AgencyID    int64
	ProductID   int64
	Type        string
	Quantity    float64
	UnitPrice   float64
	TotalValue  float64
	CostPrice   float64
	Profit      float64
	Reference   string
	Notes       string
	ProcessedBy int64
	CreatedAt   time.Time
}

// PeriodTotals aggregates completed sales over a window.
type PeriodTotals struct {
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
	Profit float64 `json:"profit"`
}

// TopProduct ranks a product by revenue within the current month.
type TopProduct struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// Overview summarises sales for the stats endpoint.
type Overview struct {
	Today       PeriodTotals `json:"today"`
	Month       PeriodTotals `json:"month"`
	AllTime     PeriodTotals `json:"all_time"`
	TopProducts []TopProduct `json:"top_products"`
}
