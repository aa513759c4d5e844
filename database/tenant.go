package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	schemaPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)
	nonIdent      = regexp.MustCompile(`[^a-z0-9_]+`)
)

// ErrInvalidSchema is returned for tenant schema names that are not plain identifiers.
var ErrInvalidSchema = errors.New("invalid tenant schema name")

// GetTenantDB returns the request's tenant-pinned transaction (see middlewares.TenantTx).
func GetTenantDB(c *fiber.Ctx) (*gorm.DB, error) {
	if v := c.Locals("tx"); v != nil {
		if tx, ok := v.(*gorm.DB); ok && tx != nil {
			return tx.WithContext(c.UserContext()), nil
		}
	}
	return nil, errors.New("tenant transaction missing")
}

// PinSchema sets the search path of the current transaction to the tenant schema, then public.
func PinSchema(tx *gorm.DB, schema string) error {
	if !schemaPattern.MatchString(schema) {
		return ErrInvalidSchema
	}
	if err := tx.Exec(`SET LOCAL search_path = "` + schema + `", public`).Error; err != nil {
		return fmt.Errorf("set search_path failed: %w", err)
	}
	return nil
}

// WithTenant runs fn in a transaction pinned to schema. Used outside HTTP requests
// (webhooks, workers) where there is no per-request transaction.
func WithTenant(ctx context.Context, schema string, fn func(tx *gorm.DB) error) error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	return DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := PinSchema(tx, schema); err != nil {
			return err
		}
		return fn(tx)
	})
}

// SchemaNameFor derives a unique, safe schema name from a company name.
func SchemaNameFor(companyName string) string {
	base := nonIdent.ReplaceAllString(strings.ToLower(strings.TrimSpace(companyName)), "_")
	base = strings.Trim(base, "_")
	if len(base) > 40 {
		base = base[:40]
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if base == "" {
		return "t_" + suffix
	}
	return "t_" + base + "_" + suffix
}

// CreateSchema creates the tenant schema if it does not exist.
func CreateSchema(tx *gorm.DB, schema string) error {
	if !schemaPattern.MatchString(schema) {
		return ErrInvalidSchema
	}
	return tx.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schema + `"`).Error
}

// TenantSchemas lists the schema of every company.
func TenantSchemas(ctx context.Context) ([]string, error) {
	if DB == nil {
		return nil, errors.New("database not initialized")
	}
	var schemas []string
	err := DB.WithContext(ctx).Table("public.companies").Pluck("schema_name", &schemas).Error
	return schemas, err
}
