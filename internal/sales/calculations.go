package sales

import (
	"fmt"
	"time"
)

// LineTotal applies the percentage discount to quantity times unit price.
func LineTotal(quantity, unitPrice, discountPct float64) float64 {
	return quantity * unitPrice * (1 - discountPct/100)
}

// Subtotal sums the item totals.
func Subtotal(items []Item) float64 {
	var sum float64
	for _, item := range items {
		sum += item.Total
	}
	return sum
}

// InvoiceTotal is the amount due: subtotal plus tax minus invoice-level discount.
func InvoiceTotal(subtotal, tax, discount float64) float64 {
	return subtotal + tax - discount
}

// FormatInvoiceNumber renders the per-day sequence as INV-YYYYMMDD-NNNN.
func FormatInvoiceNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("INV-%s-%04d", day.Format("20060102"), seq)
}
