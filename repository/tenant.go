// Package repository implements storage for the services on top of gorm.
// Tenant wraps a tenant-pinned transaction; Platform reads and writes the public schema.
package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldservice-backend/billing"
	"fieldservice-backend/models"
)

// Tenant is the storage of one company's documents.
type Tenant struct {
	db *gorm.DB
}

// NewTenant wraps a transaction that already has the tenant search_path pinned.
func NewTenant(db *gorm.DB) *Tenant {
	return &Tenant{db: db}
}

func (r *Tenant) with(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

func (r *Tenant) Customer(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := r.with(ctx).First(&c, id).Error; err != nil {
		return nil, wrap(err)
	}
	return &c, nil
}

func (r *Tenant) CatalogItems(ctx context.Context, ids []string) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	if len(ids) == 0 {
		return items, nil
	}
	err := r.with(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

func (r *Tenant) Quote(ctx context.Context, id uint) (*models.Quote, error) {
	var q models.Quote
	err := r.with(ctx).
		Preload("Customer").
		Preload("Items", byPosition).
		Preload("Photos").
		First(&q, id).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &q, nil
}

func (r *Tenant) Job(ctx context.Context, id uint) (*models.Job, error) {
	var j models.Job
	err := r.with(ctx).
		Preload("Customer").
		Preload("Items", byPosition).
		Preload("Photos").
		Preload("TimeEntries").
		First(&j, id).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &j, nil
}

func (r *Tenant) Invoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.with(ctx).
		Preload("Customer").
		Preload("Items", byPosition).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC, id ASC") }).
		First(&inv, id).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &inv, nil
}

// InvoicesForJob lists the invoices created from a job.
func (r *Tenant) InvoicesForJob(ctx context.Context, jobID uint) ([]models.Invoice, error) {
	var out []models.Invoice
	err := r.with(ctx).
		Preload("Payments").
		Where("job_id = ?", jobID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// CreateQuote inserts the quote with its items and photos.
func (r *Tenant) CreateQuote(ctx context.Context, q *models.Quote) error {
	return r.with(ctx).Omit("Customer").Create(q).Error
}

func (r *Tenant) CreateJob(ctx context.Context, j *models.Job) error {
	return r.with(ctx).Omit("Customer", "TimeEntries").Create(j).Error
}

func (r *Tenant) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	return r.with(ctx).Omit("Customer", "Payments").Create(inv).Error
}

func documentColumns(d models.DocumentFields) map[string]any {
	return map[string]any{
		"customer_id": d.CustomerID,
		"title":       d.Title,
		"status":      d.Status,
		"notes":       d.Notes,
		"tax_rate":    d.TaxRate,
		"subtotal":    d.Subtotal,
		"tax_total":   d.TaxTotal,
		"total":       d.Total,
		"archived_at": d.ArchivedAt,
	}
}

// UpdateQuote writes the quote's columns; when items is non-nil the items are replaced.
func (r *Tenant) UpdateQuote(ctx context.Context, q *models.Quote, items []models.QuoteItem) error {
	cols := documentColumns(q.DocumentFields)
	cols["valid_until"] = q.ValidUntil
	if err := r.with(ctx).Model(&models.Quote{}).Where("id = ?", q.ID).Updates(cols).Error; err != nil {
		return err
	}
	if items == nil {
		return nil
	}
	if err := r.with(ctx).Where("quote_id = ?", q.ID).Delete(&models.QuoteItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].QuoteID = q.ID
	}
	if len(items) > 0 {
		if err := r.with(ctx).Create(&items).Error; err != nil {
			return err
		}
	}
	q.Items = items
	return nil
}

func (r *Tenant) UpdateJob(ctx context.Context, j *models.Job, items []models.JobItem) error {
	cols := documentColumns(j.DocumentFields)
	cols["address"] = j.Address
	cols["scheduled_at"] = j.ScheduledAt
	cols["assigned_to"] = j.AssignedTo
	cols["completed_at"] = j.CompletedAt
	if err := r.with(ctx).Model(&models.Job{}).Where("id = ?", j.ID).Updates(cols).Error; err != nil {
		return err
	}
	if items == nil {
		return nil
	}
	if err := r.with(ctx).Where("job_id = ?", j.ID).Delete(&models.JobItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].JobID = j.ID
	}
	if len(items) > 0 {
		if err := r.with(ctx).Create(&items).Error; err != nil {
			return err
		}
	}
	j.Items = items
	return nil
}

func (r *Tenant) UpdateInvoice(ctx context.Context, inv *models.Invoice, items []models.InvoiceItem) error {
	cols := documentColumns(inv.DocumentFields)
	cols["due_date"] = inv.DueDate
	cols["sent_at"] = inv.SentAt
	cols["late_fee"] = inv.LateFee
	cols["late_fee_applied_at"] = inv.LateFeeAppliedAt
	cols["paid_total"] = inv.PaidTotal
	if err := r.with(ctx).Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(cols).Error; err != nil {
		return err
	}
	if items == nil {
		return nil
	}
	if err := r.with(ctx).Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].InvoiceID = inv.ID
	}
	if len(items) > 0 {
		if err := r.with(ctx).Create(&items).Error; err != nil {
			return err
		}
	}
	inv.Items = items
	return nil
}

func modelFor(kind string) (any, error) {
	switch kind {
	case billing.KindQuote:
		return &models.Quote{}, nil
	case billing.KindJob:
		return &models.Job{}, nil
	case billing.KindInvoice:
		return &models.Invoice{}, nil
	}
	return nil, fmt.Errorf("unknown document kind %q", kind)
}

// SetArchived sets or clears the archive marker of a document.
func (r *Tenant) SetArchived(ctx context.Context, kind string, id uint, at *time.Time) error {
	m, err := modelFor(kind)
	if err != nil {
		return err
	}
	res := r.with(ctx).Model(m).Where("id = ?", id).Update("archived_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete sets deleted_at; the row stays in the table.
func (r *Tenant) SoftDelete(ctx context.Context, kind string, id uint) error {
	m, err := modelFor(kind)
	if err != nil {
		return err
	}
	res := r.with(ctx).Where("id = ?", id).Delete(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var numberPrefix = map[string]string{
	billing.KindQuote:   "Q",
	billing.KindJob:     "J",
	billing.KindInvoice: "INV",
}

// NextNumber returns the next human-readable document number, counting deleted rows too.
func (r *Tenant) NextNumber(ctx context.Context, kind string) (string, error) {
	m, err := modelFor(kind)
	if err != nil {
		return "", err
	}
	var n int64
	if err := r.with(ctx).Unscoped().Model(m).Count(&n).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%05d", numberPrefix[kind], n+1), nil
}

func (r *Tenant) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.with(ctx).Create(p).Error
}

// PaymentByReference finds a payment by its provider reference, if any.
func (r *Tenant) PaymentByReference(ctx context.Context, invoiceID uint, reference string) (*models.Payment, error) {
	var p models.Payment
	err := r.with(ctx).Where("invoice_id = ? AND reference = ?", invoiceID, reference).First(&p).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &p, nil
}

func (r *Tenant) Payment(ctx context.Context, invoiceID, paymentID uint) (*models.Payment, error) {
	var p models.Payment
	err := r.with(ctx).Where("invoice_id = ?", invoiceID).First(&p, paymentID).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &p, nil
}

// MarkOverdue moves sent invoices whose due date has passed to overdue.
func (r *Tenant) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := r.with(ctx).Model(&models.Invoice{}).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", billing.InvoiceSent, now).
		Update("status", billing.InvoiceOverdue)
	return res.RowsAffected, res.Error
}

func (r *Tenant) CreatePhotos(ctx context.Context, photos []models.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	return r.with(ctx).Omit(clause.Associations).Create(&photos).Error
}

func (r *Tenant) CreateTimeEntry(ctx context.Context, e *models.TimeEntry) error {
	return r.with(ctx).Create(e).Error
}

func (r *Tenant) TimeEntries(ctx context.Context, jobID uint) ([]models.TimeEntry, error) {
	var out []models.TimeEntry
	err := r.with(ctx).Where("job_id = ?", jobID).Order("started_at ASC").Find(&out).Error
	return out, err
}

func (r *Tenant) StopTimeEntry(ctx context.Context, jobID, entryID uint, at time.Time) (*models.TimeEntry, error) {
	var e models.TimeEntry
	if err := r.with(ctx).Where("job_id = ?", jobID).First(&e, entryID).Error; err != nil {
		return nil, wrap(err)
	}
	if e.EndedAt == nil {
		e.EndedAt = &at
		if err := r.with(ctx).Model(&e).Update("ended_at", at).Error; err != nil {
			return nil, err
		}
	}
	return &e, nil
}
