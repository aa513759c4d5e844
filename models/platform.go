package models

import (
	"time"

	"gorm.io/datatypes"
)

// Plans.
const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanBusiness = "business"
)

// Subscription statuses.
const (
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// Features gated per plan.
const (
	FeatureSMS           = "sms"
	FeaturePortal        = "portal"
	FeatureReceiptsEmail = "receipts_email"
)

// Usage metrics.
const MetricSMSMonthly = "sms_monthly"

// Kill switches.
const (
	SettingSMSKillSwitch   = "sms_kill_switch"
	SettingEmailKillSwitch = "email_kill_switch"
)

// Subscription is a company's plan with the payment provider. One per company.
type Subscription struct {
	ID                   uint       `json:"id" gorm:"primaryKey"`
	CompanyID            string     `json:"company_id" gorm:"uniqueIndex;not null"`
	Plan                 string     `json:"plan" gorm:"size:20;not null"`
	Status               string     `json:"status" gorm:"size:20;not null"`
	StripeCustomerID     string     `json:"stripe_customer_id" gorm:"index"`
	StripeSubscriptionID string     `json:"stripe_subscription_id"`
	CardBrand            string     `json:"card_brand"`
	CardLast4            string     `json:"card_last4" gorm:"size:4"`
	PaymentMethodID      string     `json:"payment_method_id"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// FeatureFlag enables a feature for every company on a plan.
type FeatureFlag struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Plan    string `json:"plan" gorm:"size:20;not null;uniqueIndex:idx_feature_flags_plan_feature,priority:1"`
	Feature string `json:"feature" gorm:"size:40;not null;uniqueIndex:idx_feature_flags_plan_feature,priority:2"`
	Enabled bool   `json:"enabled"`
}

// UsageLimit is a monthly cap. An empty CompanyID makes it the default for Plan.
type UsageLimit struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	CompanyID    string `json:"company_id" gorm:"index"`
	Plan         string `json:"plan" gorm:"size:20;index"`
	Metric       string `json:"metric" gorm:"size:40;not null"`
	MonthlyLimit int    `json:"monthly_limit"`
}

// PlatformSetting is a global boolean switch such as a channel kill switch.
type PlatformSetting struct {
	Key       string    `json:"key" gorm:"primaryKey;size:64"`
	Enabled   bool      `json:"enabled"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StripeEvent records a processed webhook event so redeliveries are ignored.
type StripeEvent struct {
	ID          string         `json:"id" gorm:"primaryKey;size:255"`
	Type        string         `json:"type" gorm:"size:80"`
	Payload     datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	ProcessedAt time.Time      `json:"processed_at"`
}
