package repository

import (
	"context"

	"gorm.io/gorm"

	"fieldservice-backend/models"
)

const maxPageSize = 200

// ListFilter narrows document listings. Archived rows are hidden unless asked for.
type ListFilter struct {
	Status          string
	CustomerID      uint
	AssignedTo      string
	IncludeArchived bool
	Limit           int
	Offset          int
}

func (f ListFilter) scope(db *gorm.DB) *gorm.DB {
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.CustomerID != 0 {
		db = db.Where("customer_id = ?", f.CustomerID)
	}
	if !f.IncludeArchived {
		db = db.Where("archived_at IS NULL")
	}
	limit := f.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	return db.Order("id DESC").Limit(limit).Offset(f.Offset)
}

func (r *Tenant) Quotes(ctx context.Context, f ListFilter) ([]models.Quote, error) {
	var out []models.Quote
	err := r.with(ctx).Scopes(f.scope).Preload("Customer").Find(&out).Error
	return out, err
}

func (r *Tenant) Jobs(ctx context.Context, f ListFilter) ([]models.Job, error) {
	var out []models.Job
	db := r.with(ctx).Scopes(f.scope).Preload("Customer")
	if f.AssignedTo != "" {
		db = db.Where("assigned_to = ?", f.AssignedTo)
	}
	err := db.Find(&out).Error
	return out, err
}

func (r *Tenant) Invoices(ctx context.Context, f ListFilter) ([]models.Invoice, error) {
	var out []models.Invoice
	err := r.with(ctx).Scopes(f.scope).
		Preload("Customer").
		Preload("Items", byPosition).
		Preload("Payments").
		Find(&out).Error
	return out, err
}

// Customers lists customers by name. Archived customers are hidden unless asked for.
func (r *Tenant) Customers(ctx context.Context, includeArchived bool) ([]models.Customer, error) {
	var out []models.Customer
	db := r.with(ctx)
	if !includeArchived {
		db = db.Where("archived_at IS NULL")
	}
	err := db.Order("last_name ASC, first_name ASC").Find(&out).Error
	return out, err
}

func (r *Tenant) CreateCustomer(ctx context.Context, c *models.Customer) error {
	return r.with(ctx).Create(c).Error
}

// UpdateCustomer applies the given columns and returns the fresh row.
func (r *Tenant) UpdateCustomer(ctx context.Context, id uint, cols map[string]any) (*models.Customer, error) {
	if len(cols) > 0 {
		res := r.with(ctx).Model(&models.Customer{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	return r.Customer(ctx, id)
}

func (r *Tenant) Catalog(ctx context.Context, activeOnly bool) ([]models.CatalogItem, error) {
	var out []models.CatalogItem
	db := r.with(ctx)
	if activeOnly {
		db = db.Where("active = ?", true)
	}
	err := db.Order("name ASC").Find(&out).Error
	return out, err
}

func (r *Tenant) CreateCatalogItems(ctx context.Context, items []models.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.with(ctx).Create(&items).Error
}

func (r *Tenant) UpdateCatalogItem(ctx context.Context, id string, cols map[string]any) (*models.CatalogItem, error) {
	if len(cols) > 0 {
		res := r.with(ctx).Model(&models.CatalogItem{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	var item models.CatalogItem
	if err := r.with(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, wrap(err)
	}
	return &item, nil
}
