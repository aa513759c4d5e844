package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fieldservice-backend/billing"
	"fieldservice-backend/models"
)

// PaymentInput is a manually entered payment.
type PaymentInput struct {
	Amount    billing.Lenient `json:"amount"`
	Method    string          `json:"method" validate:"omitempty,oneof=cash check card bank_transfer online"`
	Reference string          `json:"reference" validate:"max=255"`
	Note      string          `json:"note" validate:"max=1000"`
	PaidAt    *time.Time      `json:"paid_at"`
}

// Balance summarises what is owed on an invoice.
type Balance struct {
	InvoiceID uint            `json:"invoice_id"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	LateFee   decimal.Decimal `json:"late_fee"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Overdue   bool            `json:"overdue"`
}

// BalanceOf computes the balance of a loaded invoice.
func BalanceOf(inv *models.Invoice, now time.Time) Balance {
	payments := models.ForBilling(inv.Payments)
	return Balance{
		InvoiceID: inv.ID,
		Status:    inv.Status,
		Total:     inv.Total,
		LateFee:   inv.LateFee,
		Paid:      billing.PaidTotal(payments),
		Remaining: billing.RemainingBalance(inv.Total, inv.LateFee, payments),
		Overdue:   billing.IsOverdue(inv.DueDate, inv.Status, now),
	}
}

// Payments reconciles payments and late fees against invoices of one company.
type Payments struct {
	store   PaymentStore
	company *models.Company
	now     func() time.Time
}

func NewPayments(store PaymentStore, company *models.Company) *Payments {
	return &Payments{store: store, company: company, now: time.Now}
}

func (s *Payments) openInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	inv, err := s.store.Invoice(ctx, id)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case billing.InvoiceCancelled, billing.InvoicePaid:
		return nil, ErrInvoiceClosed
	}
	return inv, nil
}

// settle stores p, refreshes the invoice's paid total and marks it paid once nothing is owed.
func (s *Payments) settle(ctx context.Context, inv *models.Invoice, p *models.Payment) error {
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return err
	}
	inv.Payments = append(inv.Payments, *p)

	b := BalanceOf(inv, s.now())
	inv.PaidTotal = b.Paid
	if b.Remaining.IsZero() && b.Paid.IsPositive() && inv.Status != billing.InvoicePaid {
		inv.Status = billing.InvoicePaid
	}
	return s.store.UpdateInvoice(ctx, inv, nil)
}

// Record stores a manual payment. Amounts above the remaining balance are rejected.
func (s *Payments) Record(ctx context.Context, invoiceID uint, in PaymentInput) (*models.Payment, *models.Invoice, error) {
	inv, err := s.openInvoice(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	amount := in.Amount.Round(billing.Places)
	if err := billing.CheckPayment(amount, BalanceOf(inv, s.now()).Remaining); err != nil {
		return nil, nil, err
	}

	paidAt := s.now().UTC()
	if in.PaidAt != nil {
		paidAt = in.PaidAt.UTC()
	}
	method := in.Method
	if method == "" {
		method = models.MethodCash
	}
	p := &models.Payment{
		InvoiceID: inv.ID,
		Amount:    amount,
		Method:    method,
		Status:    billing.PaymentCompleted,
		Reference: strings.TrimSpace(in.Reference),
		Note:      in.Note,
		PaidAt:    paidAt,
	}
	if err := s.settle(ctx, inv, p); err != nil {
		return nil, nil, err
	}
	return p, inv, nil
}

// RecordProvider stores a payment confirmed by the payment provider. The amount is taken
// as received; a repeated reference returns the existing payment.
func (s *Payments) RecordProvider(ctx context.Context, invoiceID uint, amount decimal.Decimal, reference string) (*models.Payment, *models.Invoice, error) {
	inv, err := s.store.Invoice(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	if reference != "" {
		existing, err := s.store.PaymentByReference(ctx, invoiceID, reference)
		if err == nil {
			return existing, inv, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
	}
	if !amount.IsPositive() {
		return nil, nil, billing.ErrInvalidAmount
	}

	p := &models.Payment{
		InvoiceID: inv.ID,
		Amount:    amount.Round(billing.Places),
		Method:    models.MethodOnline,
		Status:    billing.PaymentCompleted,
		Reference: reference,
		PaidAt:    s.now().UTC(),
	}
	if err := s.settle(ctx, inv, p); err != nil {
		return nil, nil, err
	}
	return p, inv, nil
}

// RecordFailed stores a failed provider payment. It never changes the balance.
func (s *Payments) RecordFailed(ctx context.Context, invoiceID uint, amount decimal.Decimal, reference, reason string) (*models.Payment, error) {
	inv, err := s.store.Invoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	p := &models.Payment{
		InvoiceID: inv.ID,
		Amount:    billing.NonNegative(amount).Round(billing.Places),
		Method:    models.MethodOnline,
		Status:    billing.PaymentFailed,
		Reference: reference,
		Note:      reason,
		PaidAt:    s.now().UTC(),
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyLateFee adds the company's late fee to an overdue invoice once.
func (s *Payments) ApplyLateFee(ctx context.Context, invoiceID uint) (*models.Invoice, error) {
	inv, err := s.openInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	state := billing.LateFeeState{DueDate: inv.DueDate, Status: inv.Status, AppliedAt: inv.LateFeeAppliedAt}
	if err := billing.CheckLateFee(state, now); err != nil {
		return nil, err
	}

	percent := decimal.Zero
	if s.company != nil {
		percent = s.company.LateFeePercent
	}
	inv.LateFee = billing.LateFee(inv.Total, percent)
	inv.LateFeeAppliedAt = &now
	if inv.Status == billing.InvoiceSent {
		inv.Status = billing.InvoiceOverdue
	}
	if err := s.store.UpdateInvoice(ctx, inv, nil); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Payments) Balance(ctx context.Context, invoiceID uint) (Balance, error) {
	inv, err := s.store.Invoice(ctx, invoiceID)
	if err != nil {
		return Balance{}, err
	}
	return BalanceOf(inv, s.now()), nil
}

// SweepOverdue moves sent invoices past their due date to overdue.
func (s *Payments) SweepOverdue(ctx context.Context) (int64, error) {
	return s.store.MarkOverdue(ctx, s.now().UTC())
}
