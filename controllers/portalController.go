package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fieldservice-backend/billing"
	"fieldservice-backend/database"
	"fieldservice-backend/models"
	"fieldservice-backend/portal"
	"fieldservice-backend/repository"
	"fieldservice-backend/services"
)

// portalJob is the customer-facing view of a job. Internal notes and assignments stay private.
type portalJob struct {
	ID          uint               `json:"id"`
	Number      string             `json:"number"`
	Title       string             `json:"title"`
	Status      string             `json:"status"`
	Address     string             `json:"address"`
	ScheduledAt *time.Time         `json:"scheduled_at"`
	CompletedAt *time.Time         `json:"completed_at"`
	Items       []models.JobItem   `json:"items"`
	Subtotal    decimal.Decimal    `json:"subtotal"`
	TaxTotal    decimal.Decimal    `json:"tax_total"`
	Total       decimal.Decimal    `json:"total"`
	Photos      []models.Photo     `json:"photos"`
	Customer    portalCustomerView `json:"customer"`
}

type portalCustomerView struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type portalInvoice struct {
	ID      uint             `json:"id"`
	Number  string           `json:"number"`
	Status  string           `json:"status"`
	DueDate *time.Time       `json:"due_date"`
	Balance services.Balance `json:"balance"`
}

type portalCompany struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PortalJob serves the magic-link view: the job and its invoices with balances.
func (a *API) PortalJob(c *fiber.Ctx) error {
	raw := strings.TrimSpace(c.Query("token"))
	if raw == "" {
		raw = strings.TrimSpace(strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "))
	}
	claims, err := a.Portal.Verify(raw)
	if err != nil {
		return err
	}
	co, err := a.Platform.Company(c.UserContext(), claims.CompanyID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && co.SchemaName != claims.Schema) {
		return portal.ErrInvalidLink
	}
	if err != nil {
		return err
	}

	now := a.now()
	var out fiber.Map
	err = database.WithTenant(c.UserContext(), claims.Schema, func(tx *gorm.DB) error {
		repo := repository.NewTenant(tx)
		job, err := repo.Job(c.UserContext(), claims.JobID)
		if errors.Is(err, repository.ErrNotFound) {
			return portal.ErrInvalidLink
		}
		if err != nil {
			return err
		}
		if job.CustomerID != claims.CustomerID() {
			return portal.ErrInvalidLink
		}
		invoices, err := repo.InvoicesForJob(c.UserContext(), job.ID)
		if err != nil {
			return err
		}

		views := make([]portalInvoice, 0, len(invoices))
		for i := range invoices {
			inv := &invoices[i]
			if inv.Status == billing.InvoiceDraft {
				continue
			}
			views = append(views, portalInvoice{
				ID:      inv.ID,
				Number:  inv.Number,
				Status:  inv.Status,
				DueDate: inv.DueDate,
				Balance: services.BalanceOf(inv, now),
			})
		}
		out = fiber.Map{
			"company": portalCompany{Name: co.Name, Email: co.Email, Phone: co.Phone},
			"job": portalJob{
				ID:          job.ID,
				Number:      job.Number,
				Title:       job.Title,
				Status:      job.Status,
				Address:     job.Address,
				ScheduledAt: job.ScheduledAt,
				CompletedAt: job.CompletedAt,
				Items:       job.Items,
				Subtotal:    job.Subtotal,
				TaxTotal:    job.TaxTotal,
				Total:       job.Total,
				Photos:      job.Photos,
				Customer: portalCustomerView{
					Name:  job.Customer.DisplayName(),
					Email: job.Customer.Email,
				},
			},
			"invoices": views,
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(out)
}
