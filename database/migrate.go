package database

import (
	"fmt"

	"fieldservice-backend/models"

	"gorm.io/gorm"
)

// tenantStatements run after AutoMigrate. Each is idempotent.
var tenantStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_payments_invoice_status ON payments (invoice_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_sms_logs_dedup ON sms_logs (recipient, template, job_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_email_logs_dedup ON email_logs (recipient, kind, job_id, created_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_keys_key ON idempotency_keys (key)`,
	checkConstraint("catalog_items", "chk_catalog_items_unit_price_nonneg", "unit_price >= 0"),
	checkConstraint("payments", "chk_payments_amount_nonneg", "amount >= 0"),
	checkConstraint("quote_items", "chk_quote_items_nonneg", "quantity >= 0 AND unit_price >= 0"),
	checkConstraint("job_items", "chk_job_items_nonneg", "quantity >= 0 AND unit_price >= 0"),
	checkConstraint("invoice_items", "chk_invoice_items_nonneg", "quantity >= 0 AND unit_price >= 0"),
	checkConstraint("invoices", "chk_invoices_late_fee_nonneg", "late_fee >= 0"),
}

func checkConstraint(table, name, expr string) string {
	return fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint
		WHERE conrelid = '%[1]s'::regclass
		  AND conname  = '%[2]s'
	) THEN
		ALTER TABLE %[1]s ADD CONSTRAINT %[2]s CHECK (%[3]s);
	END IF;
END $$;`, table, name, expr)
}

// MigrateTenantSchema applies (idempotent) schema migrations for a single tenant schema:
// AutoMigrate of the tenant tables, then indexes and CHECK constraints.
func MigrateTenantSchema(schema string) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		return migrateTenant(tx, schema)
	})
}

func migrateTenant(tx *gorm.DB, schema string) error {
	if err := CreateSchema(tx, schema); err != nil {
		return fmt.Errorf("create schema failed: %w", err)
	}
	if err := PinSchema(tx, schema); err != nil {
		return err
	}

	if err := tx.AutoMigrate(
		&models.Customer{},
		&models.CatalogItem{},
		&models.Quote{}, &models.QuoteItem{},
		&models.Job{}, &models.JobItem{},
		&models.Invoice{}, &models.InvoiceItem{},
		&models.Payment{},
		&models.Photo{},
		&models.TimeEntry{},
		&models.EmailLog{}, &models.SMSLog{},
		&models.IdempotencyKey{},
	); err != nil {
		return fmt.Errorf("tenant automigrate failed: %w", err)
	}

	return applyStatements(tx, tenantStatements)
}

func applyStatements(tx *gorm.DB, stmts []string) error {
	for _, stmt := range stmts {
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration failed on: %s - %w", stmt, err)
		}
	}
	return nil
}
