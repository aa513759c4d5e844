package payments

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fieldservice-backend/database"
	"fieldservice-backend/models"
	"fieldservice-backend/repository"
	"fieldservice-backend/services"
)

// TenantLedger applies provider payments in the company's schema, one transaction per event.
type TenantLedger struct{}

func (TenantLedger) RecordPayment(ctx context.Context, company *models.Company, invoiceID uint, amount decimal.Decimal, reference string) error {
	return database.WithTenant(ctx, company.SchemaName, func(tx *gorm.DB) error {
		_, _, err := services.NewPayments(repository.NewTenant(tx), company).RecordProvider(ctx, invoiceID, amount, reference)
		return err
	})
}

func (TenantLedger) RecordFailedPayment(ctx context.Context, company *models.Company, invoiceID uint, amount decimal.Decimal, reference, reason string) error {
	return database.WithTenant(ctx, company.SchemaName, func(tx *gorm.DB) error {
		_, err := services.NewPayments(repository.NewTenant(tx), company).RecordFailed(ctx, invoiceID, amount, reference, reason)
		return err
	})
}
