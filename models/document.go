package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fieldservice-backend/billing"
)

// DocumentFields are the columns quotes, jobs and invoices share.
type DocumentFields struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Number     string          `json:"number" gorm:"size:32;uniqueIndex"`
	CustomerID uint            `json:"customer_id" gorm:"not null;index"`
	Title      string          `json:"title"`
	Status     string          `json:"status" gorm:"size:20;not null;index"`
	Notes      string          `json:"notes"`
	TaxRate    decimal.Decimal `json:"tax_rate" gorm:"type:numeric(6,3);not null;default:0"`
	Subtotal   decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null;default:0"`
	TaxTotal   decimal.Decimal `json:"tax_total" gorm:"type:numeric(12,2);not null;default:0"`
	Total      decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null;default:0"`
	ArchivedAt *time.Time      `json:"archived_at"`
	DeletedAt  gorm.DeletedAt  `json:"deleted_at" gorm:"index"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ApplyTotals stores computed totals on the document.
func (d *DocumentFields) ApplyTotals(t billing.Totals) {
	d.Subtotal = t.Subtotal
	d.TaxTotal = t.Tax
	d.Total = t.Total
}

// LineItem is one row of a document. Position keeps the caller's ordering.
type LineItem struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	CatalogItemID *string         `json:"catalog_item_id" gorm:"index"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:numeric(12,3);not null;default:0"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null;default:0"`
	LineTotal     decimal.Decimal `json:"line_total" gorm:"type:numeric(12,2);not null;default:0"`
	Position      int             `json:"position"`
}

// Line converts the row for the billing rules.
func (li LineItem) Line() billing.Line {
	return billing.Line{
		ID:          li.ID,
		Description: li.Description,
		Quantity:    li.Quantity,
		UnitPrice:   li.UnitPrice,
	}
}

// NewLineItem builds a row from a billing line; the ID is left for the database.
func NewLineItem(l billing.Line, catalogItemID *string, position int) LineItem {
	return LineItem{
		CatalogItemID: catalogItemID,
		Description:   l.Description,
		Quantity:      billing.NonNegative(l.Quantity),
		UnitPrice:     billing.NonNegative(l.UnitPrice),
		LineTotal:     l.Total().Round(billing.Places),
		Position:      position,
	}
}

type QuoteItem struct {
	LineItem
	QuoteID uint `json:"-" gorm:"index"`
}

type JobItem struct {
	LineItem
	JobID uint `json:"-" gorm:"index"`
}

type InvoiceItem struct {
	LineItem
	InvoiceID uint `json:"-" gorm:"index"`
}

type Quote struct {
	DocumentFields
	Customer   Customer    `json:"customer" gorm:"foreignKey:CustomerID"`
	ValidUntil *time.Time  `json:"valid_until"`
	Items      []QuoteItem `json:"items" gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
	Photos     []Photo     `json:"photos" gorm:"foreignKey:QuoteID"`
}

type Job struct {
	DocumentFields
	Customer    Customer    `json:"customer" gorm:"foreignKey:CustomerID"`
	QuoteID     *uint       `json:"quote_id" gorm:"index"`
	Address     string      `json:"address"`
	ScheduledAt *time.Time  `json:"scheduled_at"`
	AssignedTo  *string     `json:"assigned_to" gorm:"index"` // profile id
	CompletedAt *time.Time  `json:"completed_at"`
	Items       []JobItem   `json:"items" gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
	Photos      []Photo     `json:"photos" gorm:"foreignKey:JobID"`
	TimeEntries []TimeEntry `json:"time_entries,omitempty" gorm:"foreignKey:JobID"`
}

type Invoice struct {
	DocumentFields
	Customer         Customer        `json:"customer" gorm:"foreignKey:CustomerID"`
	JobID            *uint           `json:"job_id" gorm:"index"`
	QuoteID          *uint           `json:"quote_id" gorm:"index"`
	DueDate          *time.Time      `json:"due_date" gorm:"index"`
	SentAt           *time.Time      `json:"sent_at"`
	LateFee          decimal.Decimal `json:"late_fee" gorm:"type:numeric(12,2);not null;default:0"`
	LateFeeAppliedAt *time.Time      `json:"late_fee_applied_at"`
	PaidTotal        decimal.Decimal `json:"paid_total" gorm:"type:numeric(12,2);not null;default:0"`
	Items            []InvoiceItem   `json:"items" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Payments         []Payment       `json:"payments,omitempty" gorm:"foreignKey:InvoiceID"`
}

// Photo is a stored image referenced by a quote or a job. Copies share StoragePath.
type Photo struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	QuoteID     *uint     `json:"quote_id" gorm:"index"`
	JobID       *uint     `json:"job_id" gorm:"index"`
	StoragePath string    `json:"storage_path" gorm:"not null"`
	Caption     string    `json:"caption"`
	CreatedAt   time.Time `json:"created_at"`
}

// TimeEntry is a technician's work period on a job.
type TimeEntry struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	JobID     uint       `json:"job_id" gorm:"not null;index"`
	ProfileID string     `json:"profile_id" gorm:"not null;index"`
	StartedAt time.Time  `json:"started_at" gorm:"not null"`
	EndedAt   *time.Time `json:"ended_at"`
	Note      string     `json:"note"`
	CreatedAt time.Time  `json:"created_at"`
}

// Minutes is the entry's duration; open entries count up to now.
func (e TimeEntry) Minutes(now time.Time) int {
	end := now
	if e.EndedAt != nil {
		end = *e.EndedAt
	}
	if end.Before(e.StartedAt) {
		return 0
	}
	return int(end.Sub(e.StartedAt).Minutes())
}

// Lines returns the quote's items for the billing rules.
func (q *Quote) Lines() []billing.Line {
	out := make([]billing.Line, len(q.Items))
	for i, it := range q.Items {
		out[i] = it.Line()
	}
	return out
}

// Lines returns the job's items for the billing rules.
func (j *Job) Lines() []billing.Line {
	out := make([]billing.Line, len(j.Items))
	for i, it := range j.Items {
		out[i] = it.Line()
	}
	return out
}

// Lines returns the invoice's items for the billing rules.
func (inv *Invoice) Lines() []billing.Line {
	out := make([]billing.Line, len(inv.Items))
	for i, it := range inv.Items {
		out[i] = it.Line()
	}
	return out
}
