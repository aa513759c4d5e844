package receipts

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-backend/billing"
	"fieldservice-backend/models"
)

func testInvoice() (*models.Company, *models.Invoice) {
	company := &models.Company{Name: "Müller Haustechnik", Address: "Hauptstr. 1", Zip: "10115", City: "Berlin"}
	inv := &models.Invoice{}
	inv.ID = 3
	inv.Number = "INV-00003"
	inv.Total = decimal.RequireFromString("120.00")
	inv.Customer = models.Customer{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	inv.Items = []models.InvoiceItem{{LineItem: models.LineItem{
		Description: "Heizungswartung",
		Quantity:    decimal.RequireFromString("1"),
		UnitPrice:   decimal.RequireFromString("120"),
		LineTotal:   decimal.RequireFromString("120"),
	}}}
	inv.Payments = []models.Payment{
		{ID: 1, Amount: decimal.RequireFromString("50"), Status: billing.PaymentCompleted},
		{ID: 2, Amount: decimal.RequireFromString("30"), Status: billing.PaymentFailed},
	}
	return company, inv
}

func TestNewAndRender(t *testing.T) {
	company, inv := testInvoice()
	p := inv.Payments[0]
	p.PaidAt = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	p.Method = models.MethodCard

	r, err := New(company, inv, &p)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", r.CustomerName)
	assert.True(t, r.PaidTotal.Equal(decimal.RequireFromString("50")))
	assert.True(t, r.Remaining.Equal(decimal.RequireFromString("70")))
	assert.Equal(t, "receipt-INV-00003-1.pdf", r.Filename())
	assert.Equal(t, uint(3), r.InvoiceID)
	assert.Equal(t, "50.00", r.AmountText())

	out, err := Render(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestNewRejectsFailedPayment(t *testing.T) {
	company, inv := testInvoice()
	_, err := New(company, inv, &inv.Payments[1])
	assert.ErrorIs(t, err, ErrNotCompleted)
}
