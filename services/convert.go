package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldservice-backend/billing"
	"fieldservice-backend/models"
)

// ConvertInput selects what a conversion copies. An empty ItemIDs copies every item.
type ConvertInput struct {
	ItemIDs     []uint     `json:"item_ids"`
	CopyPhotos  bool       `json:"copy_photos"`
	Title       string     `json:"title" validate:"max=200"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	DueDate     *time.Time `json:"due_date"`
}

// selectRows picks the requested source rows in order and renumbers their positions.
func selectRows(lines []billing.Line, refs map[uint]*string, ids []uint) ([]billing.Line, []models.LineItem, error) {
	selected, err := billing.SelectLines(lines, ids)
	if err != nil {
		if errors.Is(err, billing.ErrUnknownItem) {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, nil, err
	}
	rows := make([]models.LineItem, len(selected))
	for i, l := range selected {
		rows[i] = models.NewLineItem(l, refs[l.ID], i)
	}
	return selected, rows, nil
}

func title(in ConvertInput, fallback string) string {
	if t := strings.TrimSpace(in.Title); t != "" {
		return t
	}
	return fallback
}

func (s *Documents) convertedFields(ctx context.Context, kind, status string, src models.DocumentFields, in ConvertInput, lines []billing.Line) (models.DocumentFields, error) {
	number, err := s.store.NextNumber(ctx, kind)
	if err != nil {
		return models.DocumentFields{}, err
	}
	f := models.DocumentFields{
		Number:     number,
		CustomerID: src.CustomerID,
		Title:      title(in, src.Title),
		Notes:      src.Notes,
		Status:     status,
		TaxRate:    src.TaxRate,
	}
	f.ApplyTotals(billing.Compute(lines, f.TaxRate))
	return f, nil
}

func quoteRefs(q *models.Quote) map[uint]*string {
	refs := make(map[uint]*string, len(q.Items))
	for _, it := range q.Items {
		refs[it.ID] = it.CatalogItemID
	}
	return refs
}

// QuoteToJob creates a scheduled job from the selected quote items. The quote is left as is.
func (s *Documents) QuoteToJob(ctx context.Context, quoteID uint, in ConvertInput) (*models.Job, error) {
	q, err := s.store.Quote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	lines, rows, err := selectRows(q.Lines(), quoteRefs(q), in.ItemIDs)
	if err != nil {
		return nil, err
	}
	fields, err := s.convertedFields(ctx, billing.KindJob, billing.JobScheduled, q.DocumentFields, in, lines)
	if err != nil {
		return nil, err
	}

	j := &models.Job{DocumentFields: fields, QuoteID: &q.ID, ScheduledAt: in.ScheduledAt}
	for _, row := range rows {
		j.Items = append(j.Items, models.JobItem{LineItem: row})
	}
	if err := s.store.CreateJob(ctx, j); err != nil {
		return nil, err
	}

	if in.CopyPhotos && len(q.Photos) > 0 {
		photos := make([]models.Photo, len(q.Photos))
		for i, p := range q.Photos {
			photos[i] = models.Photo{JobID: &j.ID, StoragePath: p.StoragePath, Caption: p.Caption}
		}
		if err := s.store.CreatePhotos(ctx, photos); err != nil {
			return nil, err
		}
		j.Photos = photos
	}
	return j, nil
}

// QuoteToInvoice creates a draft invoice from the selected quote items.
func (s *Documents) QuoteToInvoice(ctx context.Context, quoteID uint, in ConvertInput) (*models.Invoice, error) {
	q, err := s.store.Quote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	lines, rows, err := selectRows(q.Lines(), quoteRefs(q), in.ItemIDs)
	if err != nil {
		return nil, err
	}
	fields, err := s.convertedFields(ctx, billing.KindInvoice, billing.InvoiceDraft, q.DocumentFields, in, lines)
	if err != nil {
		return nil, err
	}

	inv := &models.Invoice{DocumentFields: fields, QuoteID: &q.ID, DueDate: in.DueDate}
	for _, row := range rows {
		inv.Items = append(inv.Items, models.InvoiceItem{LineItem: row})
	}
	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// JobToInvoice creates a draft invoice from the selected job items. The job keeps its status.
func (s *Documents) JobToInvoice(ctx context.Context, jobID uint, in ConvertInput) (*models.Invoice, error) {
	j, err := s.store.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	refs := make(map[uint]*string, len(j.Items))
	for _, it := range j.Items {
		refs[it.ID] = it.CatalogItemID
	}
	lines, rows, err := selectRows(j.Lines(), refs, in.ItemIDs)
	if err != nil {
		return nil, err
	}
	fields, err := s.convertedFields(ctx, billing.KindInvoice, billing.InvoiceDraft, j.DocumentFields, in, lines)
	if err != nil {
		return nil, err
	}

	inv := &models.Invoice{DocumentFields: fields, JobID: &j.ID, QuoteID: j.QuoteID, DueDate: in.DueDate}
	for _, row := range rows {
		inv.Items = append(inv.Items, models.InvoiceItem{LineItem: row})
	}
	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}
