package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification outcomes written to the channel logs.
const (
	LogSent    = "sent"
	LogFailed  = "failed"
	LogBlocked = "blocked"
	LogSkipped = "skipped"
)

// Email kinds.
const (
	EmailAssignment = "assignment"
	EmailJobStatus  = "job_status"
	EmailReceipt    = "receipt"
)

// JobStatusKind is the email kind of a status notice. Each status is its own kind so a resend of
// the same status is a duplicate while the next status is not.
func JobStatusKind(status string) string {
	return EmailJobStatus + ":" + status
}

// LogFields are shared by the email and SMS logs.
type LogFields struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Recipient  string         `json:"recipient" gorm:"not null;index"`
	Status     string         `json:"status" gorm:"size:20;not null"`
	Reason     string         `json:"reason"`
	ProviderID string         `json:"provider_id"`
	JobID      *uint          `json:"job_id" gorm:"index"`
	Metadata   datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}

type EmailLog struct {
	LogFields
	Kind      string `json:"kind" gorm:"size:30;not null"`
	Subject   string `json:"subject"`
	InvoiceID *uint  `json:"invoice_id"`
	PaymentID *uint  `json:"payment_id"`
}

type SMSLog struct {
	LogFields
	Template   string `json:"template" gorm:"size:60;not null"`
	Body       string `json:"body"`
	CustomerID *uint  `json:"customer_id"`
}

func (SMSLog) TableName() string { return "sms_logs" }
