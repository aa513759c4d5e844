package models

import (
	"time"

	"github.com/shopspring/decimal"

	"fieldservice-backend/billing"
)

// Payment methods.
const (
	MethodCash   = "cash"
	MethodCheck  = "check"
	MethodCard   = "card"
	MethodBank   = "bank_transfer"
	MethodOnline = "online"
)

// Payment is linked to exactly one invoice.
type Payment struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	InvoiceID uint            `json:"invoice_id" gorm:"index:idx_payments_invoice_paid_at,priority:1"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Method    string          `json:"method" gorm:"size:20"`
	Status    string          `json:"status" gorm:"size:20;not null"`
	Reference string          `json:"reference" gorm:"index"`
	Note      string          `json:"note"`
	PaidAt    time.Time       `json:"paid_at" gorm:"index:idx_payments_invoice_paid_at,priority:2"`
	CreatedAt time.Time       `json:"created_at"`
}

// ForBilling converts payments for the reconciliation rules.
func ForBilling(payments []Payment) []billing.Payment {
	out := make([]billing.Payment, len(payments))
	for i, p := range payments {
		out[i] = billing.Payment{Amount: p.Amount, Status: p.Status}
	}
	return out
}
