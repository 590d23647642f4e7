package sales

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLineTotal(t *testing.T) {
	require.InDelta(t, 800, LineTotal(10, 80, 0), 0.0001)
	require.InDelta(t, 720, LineTotal(10, 80, 10), 0.0001)
	require.InDelta(t, 0, LineTotal(10, 80, 100), 0.0001)
}

func TestInvoiceTotal(t *testing.T) {
	require.InDelta(t, 800, InvoiceTotal(800, 0, 0), 0.0001)
	require.InDelta(t, 850, InvoiceTotal(800, 100, 50), 0.0001)
	require.InDelta(t, -50, InvoiceTotal(100, 0, 150), 0.0001)
}

func TestSubtotal(t *testing.T) {
	items := []Item{{Total: 800}, {Total: 150.5}, {Total: 49.5}}
	require.InDelta(t, 1000, Subtotal(items), 0.0001)
	require.Zero(t, Subtotal(nil))
}

func TestFormatInvoiceNumber(t *testing.T) {
	day := time.Date(2025, 3, 9, 14, 30, 0, 0, time.UTC)
	require.Equal(t, "INV-20250309-0001", FormatInvoiceNumber(day, 1))
	require.Equal(t, "INV-20250309-0042", FormatInvoiceNumber(day, 42))
	require.Equal(t, "INV-20250309-10000", FormatInvoiceNumber(day, 10000))
}
