package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-backend/billing"
	"fieldservice-backend/models"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func num(s string) billing.Lenient {
	return billing.Lenient{Decimal: decimal.RequireFromString(s)}
}

func numPtr(s string) *billing.Lenient {
	n := num(s)
	return &n
}

func testCompany() *models.Company {
	return &models.Company{
		Id:             "c0ffee00-0000-0000-0000-000000000001",
		Name:           "Acme Plumbing",
		TaxRate:        decimal.RequireFromString("10"),
		LateFeePercent: decimal.RequireFromString("5"),
	}
}

func newTestDocuments(store *memStore) *Documents {
	s := NewDocuments(store, testCompany())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestCreateQuoteComputesTotals(t *testing.T) {
	store := newMemStore()
	s := newTestDocuments(store)

	q, err := s.CreateQuote(context.Background(), DocumentInput{
		CustomerID: 1,
		Title:      "  Boiler service ",
		Items: []LineInput{
			{Description: "Labour", Quantity: num("2"), UnitPrice: numPtr("45.50")},
			{Description: "Valve", Quantity: num("1"), UnitPrice: numPtr("12.25")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "quote-00001", q.Number)
	assert.Equal(t, billing.QuoteDraft, q.Status)
	assert.Equal(t, "Boiler service", q.Title)
	assert.True(t, q.Subtotal.Equal(decimal.RequireFromString("103.25")))
	assert.True(t, q.TaxTotal.Equal(decimal.RequireFromString("10.33")))
	assert.True(t, q.Total.Equal(decimal.RequireFromString("113.58")))
	require.Len(t, q.Items, 2)
	assert.Equal(t, 0, q.Items[0].Position)
	assert.Equal(t, 1, q.Items[1].Position)
	assert.True(t, q.Items[0].LineTotal.Equal(decimal.RequireFromString("91")))
}

func TestCreateQuoteUnknownCustomer(t *testing.T) {
	s := newTestDocuments(newMemStore())

	_, err := s.CreateQuote(context.Background(), DocumentInput{CustomerID: 99})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateJobUsesCatalogDefaults(t *testing.T) {
	store := newMemStore()
	catalogID := "3f2b8f3e-0000-4000-8000-000000000001"
	store.catalog[catalogID] = models.CatalogItem{Id: catalogID, Name: "Drain cleaning", UnitPrice: decimal.RequireFromString("80")}
	s := newTestDocuments(store)

	j, err := s.CreateJob(context.Background(), DocumentInput{
		CustomerID: 1,
		TaxRate:    numPtr("0"),
		Items:      []LineInput{{CatalogItemID: &catalogID, Quantity: num("1.5")}},
	})
	require.NoError(t, err)

	assert.Equal(t, billing.JobScheduled, j.Status)
	require.Len(t, j.Items, 1)
	assert.Equal(t, "Drain cleaning", j.Items[0].Description)
	assert.Equal(t, &catalogID, j.Items[0].CatalogItemID)
	assert.True(t, j.Total.Equal(decimal.RequireFromString("120")))
}

func TestCreateInvoiceUnknownCatalogItem(t *testing.T) {
	s := newTestDocuments(newMemStore())
	missing := "3f2b8f3e-0000-4000-8000-00000000dead"

	_, err := s.CreateInvoice(context.Background(), DocumentInput{
		CustomerID: 1,
		Items:      []LineInput{{CatalogItemID: &missing, Quantity: num("1")}},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateKeepsItemsWhenOmitted(t *testing.T) {
	store := newMemStore()
	s := newTestDocuments(store)
	ctx := context.Background()

	inv, err := s.CreateInvoice(ctx, DocumentInput{
		CustomerID: 1,
		Items:      []LineInput{{Description: "Call-out", Quantity: num("1"), UnitPrice: numPtr("100")}},
	})
	require.NoError(t, err)
	assert.True(t, inv.Total.Equal(decimal.RequireFromString("110")))

	updated, err := s.UpdateInvoice(ctx, inv.ID, DocumentInput{CustomerID: 1, Title: "Call-out", TaxRate: numPtr("20")})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("120")))

	updated, err = s.UpdateInvoice(ctx, inv.ID, DocumentInput{CustomerID: 1, Items: []LineInput{}})
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
	assert.True(t, updated.Total.IsZero())
}

func TestUpdateInvoiceLocksMoneyOncePaid(t *testing.T) {
	store := newMemStore()
	s := newTestDocuments(store)
	pay := newTestPayments(store)
	ctx := context.Background()

	inv, err := s.CreateInvoice(ctx, DocumentInput{
		CustomerID: 1,
		Items:      []LineInput{{Description: "Call-out", Quantity: num("1"), UnitPrice: numPtr("100")}},
	})
	require.NoError(t, err)
	_, err = s.SetInvoiceStatus(ctx, inv.ID, billing.InvoiceSent)
	require.NoError(t, err)
	_, paid, err := pay.Record(ctx, inv.ID, PaymentInput{Amount: num("110")})
	require.NoError(t, err)
	require.Equal(t, billing.InvoicePaid, paid.Status)

	grow := []LineInput{{Description: "Call-out", Quantity: num("3"), UnitPrice: numPtr("100")}}
	_, err = s.UpdateInvoice(ctx, inv.ID, DocumentInput{CustomerID: 1, Items: grow})
	assert.ErrorIs(t, err, ErrInvoiceHasPayments)

	shrink := []LineInput{{Description: "Call-out", Quantity: num("1"), UnitPrice: numPtr("10")}}
	_, err = s.UpdateInvoice(ctx, inv.ID, DocumentInput{CustomerID: 1, Items: shrink})
	assert.ErrorIs(t, err, ErrInvoiceHasPayments)

	_, err = s.UpdateInvoice(ctx, inv.ID, DocumentInput{CustomerID: 1, TaxRate: numPtr("20")})
	assert.ErrorIs(t, err, ErrInvoiceHasPayments)

	updated, err := s.UpdateInvoice(ctx, inv.ID, DocumentInput{CustomerID: 1, Title: "Call-out, March", TaxRate: numPtr("10")})
	require.NoError(t, err)
	assert.Equal(t, "Call-out, March", updated.Title)
	assert.Equal(t, billing.InvoicePaid, updated.Status)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("110")))

	b, err := pay.Balance(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, b.Remaining.IsZero())
}

func TestSetJobStatus(t *testing.T) {
	store := newMemStore()
	s := newTestDocuments(store)
	ctx := context.Background()

	j, err := s.CreateJob(ctx, DocumentInput{CustomerID: 1})
	require.NoError(t, err)

	_, _, err = s.SetJobStatus(ctx, j.ID, "teleported")
	assert.ErrorIs(t, err, ErrInvalidInput)

	j, prev, err := s.SetJobStatus(ctx, j.ID, billing.JobCompleted)
	require.NoError(t, err)
	assert.Equal(t, billing.JobScheduled, prev)
	require.NotNil(t, j.CompletedAt)
	assert.Equal(t, fixedNow, *j.CompletedAt)
}

func TestSetInvoiceStatusRejectsInvalidTransition(t *testing.T) {
	store := newMemStore()
	s := newTestDocuments(store)
	ctx := context.Background()

	inv, err := s.CreateInvoice(ctx, DocumentInput{CustomerID: 1})
	require.NoError(t, err)

	inv, err = s.SetInvoiceStatus(ctx, inv.ID, billing.InvoiceSent)
	require.NoError(t, err)
	require.NotNil(t, inv.SentAt)

	_, err = s.SetInvoiceStatus(ctx, inv.ID, billing.InvoiceCancelled)
	require.NoError(t, err)

	_, err = s.SetInvoiceStatus(ctx, inv.ID, billing.InvoiceSent)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)
}

func TestAssignJob(t *testing.T) {
	store := newMemStore()
	s := newTestDocuments(store)
	ctx := context.Background()

	j, err := s.CreateJob(ctx, DocumentInput{CustomerID: 1})
	require.NoError(t, err)

	outsider := &models.Profile{Id: "p-2", CompanyID: "someone-else", Active: true}
	_, err = s.AssignJob(ctx, j.ID, outsider)
	assert.ErrorIs(t, err, ErrInvalidInput)

	tech := &models.Profile{Id: "p-1", CompanyID: testCompany().Id, Active: true}
	j, err = s.AssignJob(ctx, j.ID, tech)
	require.NoError(t, err)
	require.NotNil(t, j.AssignedTo)
	assert.Equal(t, "p-1", *j.AssignedTo)
}

func TestArchiveAndDelete(t *testing.T) {
	store := newMemStore()
	s := newTestDocuments(store)
	ctx := context.Background()

	require.NoError(t, s.Archive(ctx, billing.KindQuote, 7))
	require.NotNil(t, store.archived[key(billing.KindQuote, 7)])

	require.NoError(t, s.Unarchive(ctx, billing.KindQuote, 7))
	assert.Nil(t, store.archived[key(billing.KindQuote, 7)])

	require.NoError(t, s.Delete(ctx, billing.KindJob, 8))
	assert.True(t, store.deleted[key(billing.KindJob, 8)])
}
