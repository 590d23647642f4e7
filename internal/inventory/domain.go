package inventory

import "time"

// Movement types. The ledger is append-only; corrections are new entries.
const (
	TypeIncoming   = "incoming"
	TypeOutgoing   = "outgoing"
	TypeAdjustment = "adjustment"
	TypeSale       = "sale"
	TypeReturn     = "return"
)

// Movement is one entry in the inventory ledger.
type Movement struct {
	ID          int64      `json:"id"`
	AgencyID    int64      `json:"agency_id"`
	ProductID   int64      `json:"product_id"`
	ProductName string     `json:"product_name,omitempty"`
	Type        string     `json:"type"`
	Quantity    float64    `json:"quantity"`
	UnitPrice   float64    `json:"unit_price"`
	TotalValue  float64    `json:"total_value"`
	CostPrice   float64    `json:"cost_price"`
	Profit      float64    `json:"profit"`
	Reference   string     `json:"reference"`
	BatchNumber string     `json:"batch_number"`
	ExpiryDate  *time.Time `json:"expiry_date"`
	Notes       string     `json:"notes"`
	ProcessedBy int64      `json:"processed_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RecordInput captures a direct incoming or outgoing movement.
type RecordInput struct {
	ProductID   int64      `json:"product_id" validate:"required,gt=0"`
	Quantity    float64    `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64    `json:"unit_price" validate:"gte=0"`
	Reference   string     `json:"reference"`
	BatchNumber string     `json:"batch_number"`
	ExpiryDate  *time.Time `json:"expiry_date"`
	Notes       string     `json:"notes"`
}

// AdjustInput captures a manual stock correction. Positive quantities add
// stock, negative quantities remove it under the outgoing stock guard.
type AdjustInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
}

// ListFilter narrows movement listings.
type ListFilter struct {
	AgencyID int64
	Type     string
	From     time.Time
	To       time.Time
	Page     int
	PerPage  int
}

// ProductState is the locked product row used while posting a movement.
type ProductState struct {
	ID           int64
	AgencyID     int64
	Name         string
	CostPrice    float64
	StockCurrent float64
	IsActive     bool
}

// AgencyState is the locked agency row used while posting a movement.
type AgencyState struct {
	ID       int64
	Type     string
	IsActive bool
}
