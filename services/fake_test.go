package services

import (
	"context"
	"fmt"
	"time"

	"fieldservice-backend/models"
)

// memStore keeps tenant rows in maps and assigns ids the way the database would.
type memStore struct {
	customers map[uint]*models.Customer
	catalog   map[string]models.CatalogItem
	quotes    map[uint]*models.Quote
	jobs      map[uint]*models.Job
	invoices  map[uint]*models.Invoice
	photos    []models.Photo
	payments  []models.Payment
	entries   []models.TimeEntry
	archived  map[string]*time.Time
	deleted   map[string]bool
	numbers   map[string]int
	nextID    uint
}

func newMemStore() *memStore {
	return &memStore{
		customers: map[uint]*models.Customer{1: {Id: 1, FirstName: "Ada", LastName: "Lovelace"}},
		catalog:   map[string]models.CatalogItem{},
		quotes:    map[uint]*models.Quote{},
		jobs:      map[uint]*models.Job{},
		invoices:  map[uint]*models.Invoice{},
		archived:  map[string]*time.Time{},
		deleted:   map[string]bool{},
		numbers:   map[string]int{},
		nextID:    100,
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) Customer(_ context.Context, id uint) (*models.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *memStore) CatalogItems(_ context.Context, ids []string) ([]models.CatalogItem, error) {
	var out []models.CatalogItem
	for _, id := range ids {
		if it, ok := m.catalog[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) Quote(_ context.Context, id uint) (*models.Quote, error) {
	q, ok := m.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return q, nil
}

func (m *memStore) Job(_ context.Context, id uint) (*models.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

func (m *memStore) Invoice(_ context.Context, id uint) (*models.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return inv, nil
}

func (m *memStore) CreateQuote(_ context.Context, q *models.Quote) error {
	q.ID = m.id()
	for i := range q.Items {
		q.Items[i].ID = m.id()
		q.Items[i].QuoteID = q.ID
	}
	m.quotes[q.ID] = q
	return nil
}

func (m *memStore) CreateJob(_ context.Context, j *models.Job) error {
	j.ID = m.id()
	for i := range j.Items {
		j.Items[i].ID = m.id()
		j.Items[i].JobID = j.ID
	}
	m.jobs[j.ID] = j
	return nil
}

func (m *memStore) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	inv.ID = m.id()
	for i := range inv.Items {
		inv.Items[i].ID = m.id()
		inv.Items[i].InvoiceID = inv.ID
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memStore) UpdateQuote(_ context.Context, q *models.Quote, items []models.QuoteItem) error {
	if items != nil {
		for i := range items {
			items[i].ID = m.id()
		}
		q.Items = items
	}
	m.quotes[q.ID] = q
	return nil
}

func (m *memStore) UpdateJob(_ context.Context, j *models.Job, items []models.JobItem) error {
	if items != nil {
		for i := range items {
			items[i].ID = m.id()
		}
		j.Items = items
	}
	m.jobs[j.ID] = j
	return nil
}

func (m *memStore) UpdateInvoice(_ context.Context, inv *models.Invoice, items []models.InvoiceItem) error {
	if items != nil {
		for i := range items {
			items[i].ID = m.id()
		}
		inv.Items = items
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memStore) CreatePhotos(_ context.Context, photos []models.Photo) error {
	for i := range photos {
		photos[i].ID = m.id()
	}
	m.photos = append(m.photos, photos...)
	return nil
}

func key(kind string, id uint) string { return fmt.Sprintf("%s/%d", kind, id) }

func (m *memStore) SetArchived(_ context.Context, kind string, id uint, at *time.Time) error {
	m.archived[key(kind, id)] = at
	return nil
}

func (m *memStore) SoftDelete(_ context.Context, kind string, id uint) error {
	m.deleted[key(kind, id)] = true
	return nil
}

func (m *memStore) NextNumber(_ context.Context, kind string) (string, error) {
	m.numbers[kind]++
	return fmt.Sprintf("%s-%05d", kind, m.numbers[kind]), nil
}

func (m *memStore) CreatePayment(_ context.Context, p *models.Payment) error {
	p.ID = m.id()
	m.payments = append(m.payments, *p)
	return nil
}

func (m *memStore) PaymentByReference(_ context.Context, invoiceID uint, reference string) (*models.Payment, error) {
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID && p.Reference == reference {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, inv := range m.invoices {
		if inv.Status == "sent" && inv.DueDate != nil && inv.DueDate.Before(now) {
			inv.Status = "overdue"
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateTimeEntry(_ context.Context, e *models.TimeEntry) error {
	e.ID = m.id()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memStore) StopTimeEntry(_ context.Context, jobID, entryID uint, at time.Time) (*models.TimeEntry, error) {
	for i := range m.entries {
		e := &m.entries[i]
		if e.ID == entryID && e.JobID == jobID {
			if e.EndedAt == nil {
				e.EndedAt = &at
			}
			out := *e
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) TimeEntries(_ context.Context, jobID uint) ([]models.TimeEntry, error) {
	var out []models.TimeEntry
	for _, e := range m.entries {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out, nil
}
