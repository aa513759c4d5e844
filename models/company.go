package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Company is a tenant. It lives in the public schema; its documents live in SchemaName.
type Company struct {
	Id         string `json:"id" gorm:"primaryKey"`
	Name       string `json:"name" gorm:"not null;unique"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Zip        string `json:"zip"`
	SchemaName string `json:"-" gorm:"not null;unique"`

	// Settings
	TaxRate        decimal.Decimal `json:"tax_rate" gorm:"type:numeric(6,3);not null;default:0"`
	LateFeePercent decimal.Decimal `json:"late_fee_percent" gorm:"type:numeric(6,3);not null;default:0"`
	SMSEnabled     bool            `json:"sms_enabled"`
	EmailEnabled   bool            `json:"email_enabled" gorm:"not null"`
	Timezone       string          `json:"timezone" gorm:"size:64;not null;default:UTC"`

	// Connected payment account
	StripeAccountID  string `json:"stripe_account_id" gorm:"index"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (company *Company) BeforeCreate(tx *gorm.DB) (err error) {
	if company.Id == "" {
		company.Id = uuid.NewString()
	}
	return
}

// Location returns the company's time zone, UTC when unset or unknown.
func (company *Company) Location() *time.Location {
	if company.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(company.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
