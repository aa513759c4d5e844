package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-backend/billing"
	"fieldservice-backend/models"
)

func seedQuote(t *testing.T, s *Documents, store *memStore) *models.Quote {
	t.Helper()
	q, err := s.CreateQuote(context.Background(), DocumentInput{
		CustomerID: 1,
		Title:      "Kitchen refit",
		Items: []LineInput{
			{Description: "Sink", Quantity: num("1"), UnitPrice: numPtr("200")},
			{Description: "Tap", Quantity: num("2"), UnitPrice: numPtr("35")},
			{Description: "Labour", Quantity: num("3"), UnitPrice: numPtr("50")},
		},
	})
	require.NoError(t, err)
	q.Photos = []models.Photo{{ID: 1, QuoteID: &q.ID, StoragePath: "photos/sink.jpg", Caption: "before"}}
	store.quotes[q.ID] = q
	return q
}

func TestQuoteToJobPartialSelection(t *testing.T) {
	store := newMemStore()
	s := newTestDocuments(store)
	q := seedQuote(t, s, store)

	j, err := s.QuoteToJob(context.Background(), q.ID, ConvertInput{
		ItemIDs:    []uint{q.Items[2].ID, q.Items[0].ID},
		CopyPhotos: true,
	})
	require.NoError(t, err)

	require.Len(t, j.Items, 2)
	assert.Equal(t, "Sink", j.Items[0].Description)
	assert.Equal(t, "Labour", j.Items[1].Description)
	assert.Equal(t, 1, j.Items[1].Position)
	assert.True(t, j.Subtotal.Equal(decimal.RequireFromString("350")))
	assert.True(t, j.Total.Equal(decimal.RequireFromString("385")))
	assert.Equal(t, q.ID, *j.QuoteID)
	assert.Equal(t, "Kitchen refit", j.Title)

	require.Len(t, store.photos, 1)
	assert.Equal(t, "photos/sink.jpg", store.photos[0].StoragePath)
	assert.Equal(t, j.ID, *store.photos[0].JobID)

	assert.Equal(t, billing.QuoteDraft, store.quotes[q.ID].Status)
}

func TestQuoteToInvoiceAllItems(t *testing.T) {
	store := newMemStore()
	s := newTestDocuments(store)
	q := seedQuote(t, s, store)

	inv, err := s.QuoteToInvoice(context.Background(), q.ID, ConvertInput{Title: "Final bill"})
	require.NoError(t, err)

	assert.Len(t, inv.Items, 3)
	assert.True(t, inv.Total.Equal(q.Total))
	assert.Equal(t, billing.InvoiceDraft, inv.Status)
	assert.Equal(t, "Final bill", inv.Title)
	assert.Empty(t, store.photos)
}

func TestConversionRejectsForeignItem(t *testing.T) {
	store := newMemStore()
	s := newTestDocuments(store)
	q := seedQuote(t, s, store)

	_, err := s.QuoteToJob(context.Background(), q.ID, ConvertInput{ItemIDs: []uint{q.Items[0].ID, 9999}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, billing.ErrUnknownItem)
	assert.Empty(t, store.jobs)
}

func TestJobToInvoiceCarriesQuote(t *testing.T) {
	store := newMemStore()
	s := newTestDocuments(store)
	q := seedQuote(t, s, store)
	ctx := context.Background()

	j, err := s.QuoteToJob(ctx, q.ID, ConvertInput{})
	require.NoError(t, err)

	inv, err := s.JobToInvoice(ctx, j.ID, ConvertInput{ItemIDs: []uint{j.Items[1].ID}})
	require.NoError(t, err)

	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Tap", inv.Items[0].Description)
	assert.True(t, inv.Total.Equal(decimal.RequireFromString("77")))
	assert.Equal(t, j.ID, *inv.JobID)
	assert.Equal(t, q.ID, *inv.QuoteID)
	assert.Equal(t, billing.JobScheduled, store.jobs[j.ID].Status)
}

func TestConvertMissingSource(t *testing.T) {
	s := newTestDocuments(newMemStore())

	_, err := s.JobToInvoice(context.Background(), 42, ConvertInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}
