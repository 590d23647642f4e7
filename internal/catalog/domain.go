package catalog

import "time"

// Product categories.
const (
	CategorySnacks       = "snacks"
	CategoryBeverages    = "beverages"
	CategoryDairy        = "dairy"
	CategoryBakery       = "bakery"
	CategoryHousehold    = "household"
	CategoryPersonalCare = "personal_care"
	CategoryOther        = "other"
)

// Stock status values derived from current vs minimum/maximum levels.
const (
	StockOut  = "out_of_stock"
	StockLow  = "low_stock"
	StockOver = "over_stock"
	StockOK   = "in_stock"
)

// Product is a catalog item stocked at one agency.
type Product struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	AgencyID     int64      `json:"agency_id"`
	Category     string     `json:"category"`
	PriceCost    float64    `json:"price_cost"`
	PriceSelling float64    `json:"price_selling"`
	StockCurrent float64    `json:"stock_current"`
	StockMinimum float64    `json:"stock_minimum"`
	StockMaximum float64    `json:"stock_maximum"`
	SKU          *string    `json:"sku"`
	Barcode      *string    `json:"barcode"`
	ExpiryDate   *time.Time `json:"expiry_date"`
	IsActive     bool       `json:"is_active"`
	TotalSold    float64    `json:"total_sold"`
	TotalRevenue float64    `json:"total_revenue"`
	LastSoldAt   *time.Time `json:"last_sold_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	ProfitMargin float64 `json:"profit_margin"`
	StockStatus  string  `json:"stock_status"`
}

// Margin returns the selling margin as a percentage of the selling price.
func (p *Product) Margin() float64 {
	if p.PriceSelling == 0 {
		return 0
	}
	return (p.PriceSelling - p.PriceCost) / p.PriceSelling * 100
}

// Status derives the stock status from current level and thresholds.
func (p *Product) Status() string {
	switch {
	case p.StockCurrent <= 0:
		return StockOut
	case p.StockCurrent <= p.StockMinimum:
		return StockLow
	case p.StockMaximum > 0 && p.StockCurrent >= p.StockMaximum:
		return StockOver
	default:
		return StockOK
	}
}

// FillDerived populates the computed fields for API responses.
func (p *Product) FillDerived() {
	p.ProfitMargin = p.Margin()
	p.StockStatus = p.Status()
}

// CreateInput creates a product under an agency.
type CreateInput struct {
	Name         string     `json:"name" validate:"required,min=2,max=100"`
	AgencyID     int64      `json:"agency_id" validate:"required,gt=0"`
	Category     string     `json:"category" validate:"required,oneof=snacks beverages dairy bakery household personal_care other"`
	PriceCost    float64    `json:"price_cost" validate:"gte=0"`
	PriceSelling float64    `json:"price_selling" validate:"gte=0"`
	StockCurrent float64    `json:"stock_current" validate:"gte=0"`
	StockMinimum float64    `json:"stock_minimum" validate:"gte=0"`
	StockMaximum float64    `json:"stock_maximum" validate:"gte=0"`
	SKU          *string    `json:"sku"`
	Barcode      *string    `json:"barcode"`
	ExpiryDate   *time.Time `json:"expiry_date"`
}

// UpdateInput applies partial changes to a product.
type UpdateInput struct {
	Name         *string    `json:"name" validate:"omitempty,min=2,max=100"`
	Category     *string    `json:"category" validate:"omitempty,oneof=snacks beverages dairy bakery household personal_care other"`
	PriceCost    *float64   `json:"price_cost" validate:"omitempty,gte=0"`
	PriceSelling *float64   `json:"price_selling" validate:"omitempty,gte=0"`
	StockMinimum *float64   `json:"stock_minimum" validate:"omitempty,gte=0"`
	StockMaximum *float64   `json:"stock_maximum" validate:"omitempty,gte=0"`
	SKU          *string    `json:"sku"`
	Barcode      *string    `json:"barcode"`
	ExpiryDate   *time.Time `json:"expiry_date"`
	IsActive     *bool      `json:"is_active"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Category string
	AgencyID int64
	Search   string
	Page     int
	PerPage  int
}

// TopSeller is a product ranked by units sold.
type TopSeller struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	TotalSold float64 `json:"total_sold"`
	Revenue   float64 `json:"revenue"`
}

// Overview summarises the catalog for the stats endpoint.
type Overview struct {
	TotalProducts int         `json:"total_products"`
	ActiveCount   int         `json:"active_count"`
	LowStockCount int         `json:"low_stock_count"`
	OutOfStock    int         `json:"out_of_stock_count"`
	StockValue    float64     `json:"stock_value"`
	TopSellers    []TopSeller `json:"top_sellers"`
}
