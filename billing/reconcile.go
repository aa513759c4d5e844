package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses.
const (
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Payment is the part of a payment record reconciliation needs.
type Payment struct {
	Amount decimal.Decimal
	Status string
}

// PaidTotal sums completed payments. Failed payments never count.
func PaidTotal(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if p.Status == PaymentCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

// RemainingBalance is max(0, total + lateFee − Σ completed payments).
func RemainingBalance(total, lateFee decimal.Decimal, payments []Payment) decimal.Decimal {
	return NonNegative(total.Add(lateFee).Sub(PaidTotal(payments)))
}

// IsOverdue reports whether an invoice with the given due date and status is past due at now.
// Paid and cancelled invoices are never overdue; an invoice without due date never is either.
func IsOverdue(dueDate *time.Time, status string, now time.Time) bool {
	if dueDate == nil || status == InvoicePaid || status == InvoiceCancelled {
		return false
	}
	return dueDate.Before(now)
}

// LateFee is percent of total, rounded to currency precision.
func LateFee(total, percent decimal.Decimal) decimal.Decimal {
	return NonNegative(total).Mul(NonNegative(percent)).Div(hundred).Round(Places)
}

// LateFeeState is the invoice state a late-fee application is checked against.
type LateFeeState struct {
	DueDate   *time.Time
	Status    string
	AppliedAt *time.Time
}

// CheckLateFee returns nil when a late fee may be applied now.
func CheckLateFee(s LateFeeState, now time.Time) error {
	if s.AppliedAt != nil {
		return ErrLateFeeApplied
	}
	if !IsOverdue(s.DueDate, s.Status, now) {
		return ErrNotOverdue
	}
	return nil
}

// CheckPayment validates a manually entered payment against the remaining balance.
func CheckPayment(amount, remaining decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(remaining) {
		return ErrOverpayment
	}
	return nil
}
