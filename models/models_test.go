package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-backend/billing"
)

func TestTimeEntryMinutes(t *testing.T) {
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	end := start.Add(95 * time.Minute)

	assert.Equal(t, 95, TimeEntry{StartedAt: start, EndedAt: &end}.Minutes(start.Add(10*time.Hour)))
	assert.Equal(t, 30, TimeEntry{StartedAt: start}.Minutes(start.Add(30*time.Minute+20*time.Second)))
	assert.Equal(t, 0, TimeEntry{StartedAt: start}.Minutes(start.Add(-time.Minute)))
}

func TestCustomerDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&Customer{FirstName: "Ada", LastName: "Lovelace"}).DisplayName())
	assert.Equal(t, "Ada", (&Customer{FirstName: "Ada"}).DisplayName())
	assert.Equal(t, "Analytical Engines Ltd", (&Customer{CompanyName: "Analytical Engines Ltd"}).DisplayName())
}

func TestNewLineItemClampsAndRounds(t *testing.T) {
	id := "cat-1"
	li := NewLineItem(billing.Line{
		Description: "Filter",
		Quantity:    decimal.RequireFromString("3"),
		UnitPrice:   decimal.RequireFromString("3.335"),
	}, &id, 2)

	assert.Equal(t, "10.01", li.LineTotal.StringFixed(2))
	assert.Equal(t, 2, li.Position)
	assert.Equal(t, &id, li.CatalogItemID)

	neg := NewLineItem(billing.Line{Quantity: decimal.NewFromInt(-2), UnitPrice: decimal.NewFromInt(5)}, nil, 0)
	assert.True(t, neg.Quantity.IsZero())
	assert.True(t, neg.LineTotal.IsZero())
}

func TestInvoiceLinesAndTotals(t *testing.T) {
	inv := &Invoice{Items: []InvoiceItem{
		{LineItem: LineItem{ID: 1, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("50")}},
		{LineItem: LineItem{ID: 2, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("25.50")}},
	}}
	lines := inv.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, uint(2), lines[1].ID)

	inv.ApplyTotals(billing.Compute(lines, decimal.RequireFromString("10")))
	assert.Equal(t, "125.50", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "12.55", inv.TaxTotal.StringFixed(2))
	assert.Equal(t, "138.05", inv.Total.StringFixed(2))
}

func TestCompanyLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, (&Company{}).Location())
	assert.Equal(t, time.UTC, (&Company{Timezone: "Mars/Olympus"}).Location())
}

func TestProfilePassword(t *testing.T) {
	p := &Profile{FirstName: "Grace", LastName: "Hopper"}
	require.NoError(t, p.SetPassword("cobol-rules"))
	assert.NoError(t, p.ComparePassword("cobol-rules"))
	assert.Error(t, p.ComparePassword("fortran"))
	assert.Equal(t, "Grace Hopper", p.FullName())
}

func TestForBillingKeepsStatus(t *testing.T) {
	out := ForBilling([]Payment{{Amount: decimal.NewFromInt(10), Status: "failed"}})
	require.Len(t, out, 1)
	assert.Equal(t, "failed", out[0].Status)
}
