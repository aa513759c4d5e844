package services

import (
	"context"
	"time"

	"fieldservice-backend/models"
)

// DocumentStore is the storage the document and conversion operations need.
// repository.Tenant implements it.
type DocumentStore interface {
	Customer(ctx context.Context, id uint) (*models.Customer, error)
	CatalogItems(ctx context.Context, ids []string) ([]models.CatalogItem, error)

	Quote(ctx context.Context, id uint) (*models.Quote, error)
	Job(ctx context.Context, id uint) (*models.Job, error)
	Invoice(ctx context.Context, id uint) (*models.Invoice, error)

	CreateQuote(ctx context.Context, q *models.Quote) error
	CreateJob(ctx context.Context, j *models.Job) error
	CreateInvoice(ctx context.Context, inv *models.Invoice) error

	UpdateQuote(ctx context.Context, q *models.Quote, items []models.QuoteItem) error
	UpdateJob(ctx context.Context, j *models.Job, items []models.JobItem) error
	UpdateInvoice(ctx context.Context, inv *models.Invoice, items []models.InvoiceItem) error

	CreatePhotos(ctx context.Context, photos []models.Photo) error
	SetArchived(ctx context.Context, kind string, id uint, at *time.Time) error
	SoftDelete(ctx context.Context, kind string, id uint) error
	NextNumber(ctx context.Context, kind string) (string, error)
}

// PaymentStore is the storage the reconciliation operations need.
type PaymentStore interface {
	Invoice(ctx context.Context, id uint) (*models.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *models.Invoice, items []models.InvoiceItem) error
	CreatePayment(ctx context.Context, p *models.Payment) error
	PaymentByReference(ctx context.Context, invoiceID uint, reference string) (*models.Payment, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// TimeStore is the storage for job time tracking.
type TimeStore interface {
	Job(ctx context.Context, id uint) (*models.Job, error)
	CreateTimeEntry(ctx context.Context, e *models.TimeEntry) error
	StopTimeEntry(ctx context.Context, jobID, entryID uint, at time.Time) (*models.TimeEntry, error)
	TimeEntries(ctx context.Context, jobID uint) ([]models.TimeEntry, error)
}
