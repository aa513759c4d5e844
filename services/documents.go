package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fieldservice-backend/billing"
	"fieldservice-backend/models"
)

// LineInput is one requested line item. A catalog reference fills in the description
// and, when unit_price is omitted, the price.
type LineInput struct {
	CatalogItemID *string          `json:"catalog_item_id" validate:"omitempty,uuid"`
	Description   string           `json:"description" validate:"max=500"`
	Quantity      billing.Lenient  `json:"quantity"`
	UnitPrice     *billing.Lenient `json:"unit_price"`
}

// DocumentInput creates or replaces a quote, job or invoice. Fields that do not apply
// to the document kind are ignored. A nil Items leaves existing items untouched on update.
type DocumentInput struct {
	CustomerID  uint             `json:"customer_id" validate:"required"`
	Title       string           `json:"title" validate:"max=200"`
	Notes       string           `json:"notes" validate:"max=5000"`
	TaxRate     *billing.Lenient `json:"tax_rate"`
	Items       []LineInput      `json:"items" validate:"omitempty,dive"`
	ValidUntil  *time.Time       `json:"valid_until"`
	ScheduledAt *time.Time       `json:"scheduled_at"`
	Address     string           `json:"address" validate:"max=500"`
	AssignedTo  *string          `json:"assigned_to" validate:"omitempty,uuid"`
	DueDate     *time.Time       `json:"due_date"`
}

// Documents creates and edits quotes, jobs and invoices of one company.
type Documents struct {
	store   DocumentStore
	company *models.Company
	now     func() time.Time
}

func NewDocuments(store DocumentStore, company *models.Company) *Documents {
	return &Documents{store: store, company: company, now: time.Now}
}

type pricedLine struct {
	line      billing.Line
	catalogID *string
}

func (s *Documents) priceLines(ctx context.Context, in []LineInput) ([]pricedLine, error) {
	var ids []string
	for _, l := range in {
		if l.CatalogItemID != nil {
			ids = append(ids, *l.CatalogItemID)
		}
	}
	catalog := make(map[string]models.CatalogItem, len(ids))
	if len(ids) > 0 {
		items, err := s.store.CatalogItems(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			catalog[it.Id] = it
		}
	}

	out := make([]pricedLine, 0, len(in))
	for i, l := range in {
		line := billing.Line{
			Description: strings.TrimSpace(l.Description),
			Quantity:    l.Quantity.Decimal,
		}
		if l.UnitPrice != nil {
			line.UnitPrice = l.UnitPrice.Decimal
		}
		if l.CatalogItemID != nil {
			item, ok := catalog[*l.CatalogItemID]
			if !ok {
				return nil, fmt.Errorf("%w: unknown catalog item at index %d", ErrInvalidInput, i)
			}
			if line.Description == "" {
				line.Description = item.Name
			}
			if l.UnitPrice == nil {
				line.UnitPrice = item.UnitPrice
			}
		}
		out = append(out, pricedLine{line: line, catalogID: l.CatalogItemID})
	}
	return out, nil
}

func (s *Documents) taxRate(in *billing.Lenient, current *decimal.Decimal) decimal.Decimal {
	if in != nil {
		return in.Decimal
	}
	if current != nil {
		return *current
	}
	if s.company != nil {
		return s.company.TaxRate
	}
	return decimal.Zero
}

func (s *Documents) checkCustomer(ctx context.Context, id uint) error {
	if _, err := s.store.Customer(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: customer %d does not exist", ErrInvalidInput, id)
		}
		return err
	}
	return nil
}

func linesOf(priced []pricedLine) []billing.Line {
	out := make([]billing.Line, len(priced))
	for i, p := range priced {
		out[i] = p.line
	}
	return out
}

func rowsOf(priced []pricedLine) []models.LineItem {
	out := make([]models.LineItem, len(priced))
	for i, p := range priced {
		out[i] = models.NewLineItem(p.line, p.catalogID, i)
	}
	return out
}

func (s *Documents) newFields(ctx context.Context, kind, status string, in DocumentInput, taxRate decimal.Decimal, lines []billing.Line) (models.DocumentFields, error) {
	number, err := s.store.NextNumber(ctx, kind)
	if err != nil {
		return models.DocumentFields{}, err
	}
	f := models.DocumentFields{
		Number:     number,
		CustomerID: in.CustomerID,
		Title:      strings.TrimSpace(in.Title),
		Notes:      in.Notes,
		Status:     status,
		TaxRate:    taxRate,
	}
	f.ApplyTotals(billing.Compute(lines, taxRate))
	return f, nil
}

func (s *Documents) CreateQuote(ctx context.Context, in DocumentInput) (*models.Quote, error) {
	if err := s.checkCustomer(ctx, in.CustomerID); err != nil {
		return nil, err
	}
	priced, err := s.priceLines(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	fields, err := s.newFields(ctx, billing.KindQuote, billing.QuoteDraft, in, s.taxRate(in.TaxRate, nil), linesOf(priced))
	if err != nil {
		return nil, err
	}

	q := &models.Quote{DocumentFields: fields, ValidUntil: in.ValidUntil}
	for _, row := range rowsOf(priced) {
		q.Items = append(q.Items, models.QuoteItem{LineItem: row})
	}
	if err := s.store.CreateQuote(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Documents) CreateJob(ctx context.Context, in DocumentInput) (*models.Job, error) {
	if err := s.checkCustomer(ctx, in.CustomerID); err != nil {
		return nil, err
	}
	priced, err := s.priceLines(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	fields, err := s.newFields(ctx, billing.KindJob, billing.JobScheduled, in, s.taxRate(in.TaxRate, nil), linesOf(priced))
	if err != nil {
		return nil, err
	}

	j := &models.Job{
		DocumentFields: fields,
		Address:        strings.TrimSpace(in.Address),
		ScheduledAt:    in.ScheduledAt,
		AssignedTo:     in.AssignedTo,
	}
	for _, row := range rowsOf(priced) {
		j.Items = append(j.Items, models.JobItem{LineItem: row})
	}
	if err := s.store.CreateJob(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *Documents) CreateInvoice(ctx context.Context, in DocumentInput) (*models.Invoice, error) {
	if err := s.checkCustomer(ctx, in.CustomerID); err != nil {
		return nil, err
	}
	priced, err := s.priceLines(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	fields, err := s.newFields(ctx, billing.KindInvoice, billing.InvoiceDraft, in, s.taxRate(in.TaxRate, nil), linesOf(priced))
	if err != nil {
		return nil, err
	}

	inv := &models.Invoice{DocumentFields: fields, DueDate: in.DueDate}
	for _, row := range rowsOf(priced) {
		inv.Items = append(inv.Items, models.InvoiceItem{LineItem: row})
	}
	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// revise recomputes totals after an edit. Items are replaced only when the input carries them.
func (s *Documents) revise(ctx context.Context, f *models.DocumentFields, in DocumentInput, current []billing.Line) ([]models.LineItem, error) {
	if in.CustomerID != f.CustomerID {
		if err := s.checkCustomer(ctx, in.CustomerID); err != nil {
			return nil, err
		}
		f.CustomerID = in.CustomerID
	}
	f.Title = strings.TrimSpace(in.Title)
	f.Notes = in.Notes
	f.TaxRate = s.taxRate(in.TaxRate, &f.TaxRate)

	var rows []models.LineItem
	lines := current
	if in.Items != nil {
		priced, err := s.priceLines(ctx, in.Items)
		if err != nil {
			return nil, err
		}
		lines = linesOf(priced)
		rows = rowsOf(priced)
	}
	f.ApplyTotals(billing.Compute(lines, f.TaxRate))
	return rows, nil
}

func (s *Documents) UpdateQuote(ctx context.Context, id uint, in DocumentInput) (*models.Quote, error) {
	q, err := s.store.Quote(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.revise(ctx, &q.DocumentFields, in, q.Lines())
	if err != nil {
		return nil, err
	}
	q.ValidUntil = in.ValidUntil

	var items []models.QuoteItem
	if in.Items != nil {
		items = make([]models.QuoteItem, 0, len(rows))
		for _, row := range rows {
			items = append(items, models.QuoteItem{LineItem: row})
		}
	}
	if err := s.store.UpdateQuote(ctx, q, items); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Documents) UpdateJob(ctx context.Context, id uint, in DocumentInput) (*models.Job, error) {
	j, err := s.store.Job(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.revise(ctx, &j.DocumentFields, in, j.Lines())
	if err != nil {
		return nil, err
	}
	j.Address = strings.TrimSpace(in.Address)
	j.ScheduledAt = in.ScheduledAt

	var items []models.JobItem
	if in.Items != nil {
		items = make([]models.JobItem, 0, len(rows))
		for _, row := range rows {
			items = append(items, models.JobItem{LineItem: row})
		}
	}
	if err := s.store.UpdateJob(ctx, j, items); err != nil {
		return nil, err
	}
	return j, nil
}

// UpdateInvoice edits an invoice. Once completed payments exist the items and tax rate are
// locked, so the paid total and status stay consistent with the invoice total.
func (s *Documents) UpdateInvoice(ctx context.Context, id uint, in DocumentInput) (*models.Invoice, error) {
	inv, err := s.store.Invoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if billing.PaidTotal(models.ForBilling(inv.Payments)).IsPositive() {
		taxChanged := in.TaxRate != nil && !in.TaxRate.Decimal.Equal(inv.TaxRate)
		if in.Items != nil || taxChanged {
			return nil, ErrInvoiceHasPayments
		}
	}
	rows, err := s.revise(ctx, &inv.DocumentFields, in, inv.Lines())
	if err != nil {
		return nil, err
	}
	inv.DueDate = in.DueDate

	var items []models.InvoiceItem
	if in.Items != nil {
		items = make([]models.InvoiceItem, 0, len(rows))
		for _, row := range rows {
			items = append(items, models.InvoiceItem{LineItem: row})
		}
	}
	if err := s.store.UpdateInvoice(ctx, inv, items); err != nil {
		return nil, err
	}
	return inv, nil
}

func checkTransition(kind, from, to string) error {
	if !billing.ValidStatus(kind, to) {
		return fmt.Errorf("%w: unknown %s status %q", ErrInvalidInput, kind, to)
	}
	if !billing.CanTransition(kind, from, to) {
		return fmt.Errorf("%w: %s -> %s", billing.ErrInvalidTransition, from, to)
	}
	return nil
}

func (s *Documents) SetQuoteStatus(ctx context.Context, id uint, status string) (*models.Quote, error) {
	q, err := s.store.Quote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(billing.KindQuote, q.Status, status); err != nil {
		return nil, err
	}
	q.Status = status
	if err := s.store.UpdateQuote(ctx, q, nil); err != nil {
		return nil, err
	}
	return q, nil
}

// SetJobStatus changes a job's status and returns the job and its previous status.
func (s *Documents) SetJobStatus(ctx context.Context, id uint, status string) (*models.Job, string, error) {
	j, err := s.store.Job(ctx, id)
	if err != nil {
		return nil, "", err
	}
	prev := j.Status
	if err := checkTransition(billing.KindJob, prev, status); err != nil {
		return nil, "", err
	}
	j.Status = status
	switch status {
	case billing.JobCompleted:
		if j.CompletedAt == nil {
			now := s.now().UTC()
			j.CompletedAt = &now
		}
	case billing.JobScheduled, billing.JobInProgress:
		j.CompletedAt = nil
	}
	if err := s.store.UpdateJob(ctx, j, nil); err != nil {
		return nil, "", err
	}
	return j, prev, nil
}

func (s *Documents) SetInvoiceStatus(ctx context.Context, id uint, status string) (*models.Invoice, error) {
	inv, err := s.store.Invoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(billing.KindInvoice, inv.Status, status); err != nil {
		return nil, err
	}
	inv.Status = status
	if status == billing.InvoiceSent && inv.SentAt == nil {
		now := s.now().UTC()
		inv.SentAt = &now
	}
	if err := s.store.UpdateInvoice(ctx, inv, nil); err != nil {
		return nil, err
	}
	return inv, nil
}

// AssignJob sets the technician responsible for a job.
func (s *Documents) AssignJob(ctx context.Context, id uint, technician *models.Profile) (*models.Job, error) {
	j, err := s.store.Job(ctx, id)
	if err != nil {
		return nil, err
	}
	if technician.CompanyID != s.company.Id || !technician.Active {
		return nil, fmt.Errorf("%w: technician is not an active team member", ErrInvalidInput)
	}
	j.AssignedTo = &technician.Id
	if err := s.store.UpdateJob(ctx, j, nil); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *Documents) Archive(ctx context.Context, kind string, id uint) error {
	now := s.now().UTC()
	return s.store.SetArchived(ctx, kind, id, &now)
}

func (s *Documents) Unarchive(ctx context.Context, kind string, id uint) error {
	return s.store.SetArchived(ctx, kind, id, nil)
}

func (s *Documents) Delete(ctx context.Context, kind string, id uint) error {
	return s.store.SoftDelete(ctx, kind, id)
}
