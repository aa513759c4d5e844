package billing

import "errors"

var (
	// ErrUnknownItem is returned when a conversion names a line item the source does not have.
	ErrUnknownItem = errors.New("line item does not belong to source document")

	// ErrLateFeeApplied is returned when a late fee is applied to an invoice a second time.
	ErrLateFeeApplied = errors.New("late fee already applied")

	// ErrNotOverdue is returned when a late fee is requested for an invoice that is not overdue.
	ErrNotOverdue = errors.New("invoice is not overdue")

	// ErrInvalidAmount is returned for zero or negative payment amounts.
	ErrInvalidAmount = errors.New("payment amount must be positive")

	// ErrOverpayment is returned when a manual payment exceeds the remaining balance.
	ErrOverpayment = errors.New("payment exceeds remaining balance")

	// ErrInvalidTransition is returned for status changes the document lifecycle does not allow.
	ErrInvalidTransition = errors.New("status transition not allowed")
)
