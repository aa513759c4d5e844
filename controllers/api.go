package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"fieldservice-backend/database"
	"fieldservice-backend/models"
	"fieldservice-backend/notify"
	"fieldservice-backend/payments"
	"fieldservice-backend/portal"
	"fieldservice-backend/repository"
	"fieldservice-backend/utils"
)

// API holds the collaborators the handlers share. Tenant data is reached through
// the request transaction opened by middlewares.TenantTx.
type API struct {
	Platform *repository.Platform
	SMS      notify.SMSSender
	Email    notify.EmailSender
	Dedup    notify.Deduper
	Portal   *portal.Signer
	Webhook  *payments.Webhook
	Now      func() time.Time
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// tenant returns the repository bound to the request transaction.
func tenant(c *fiber.Ctx) (*repository.Tenant, error) {
	tx, err := database.GetTenantDB(c)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Could not retrieve tenant schema")
	}
	return repository.NewTenant(tx), nil
}

// company loads the caller's company.
func (a *API) company(c *fiber.Ctx) (*models.Company, error) {
	id, _ := c.Locals("companyID").(string)
	if strings.TrimSpace(id) == "" {
		return nil, fiber.NewError(fiber.StatusForbidden, "no company in session")
	}
	return a.Platform.Company(c.UserContext(), id)
}

// scope loads both the tenant repository and the company, which nearly every handler needs.
func (a *API) scope(c *fiber.Ctx) (*repository.Tenant, *models.Company, error) {
	repo, err := tenant(c)
	if err != nil {
		return nil, nil, err
	}
	co, err := a.company(c)
	if err != nil {
		return nil, nil, err
	}
	return repo, co, nil
}

func (a *API) notifier(repo *repository.Tenant, co *models.Company) *notify.Notifier {
	return notify.New(notify.Deps{
		Settings: a.Platform,
		Store:    repo,
		SMS:      a.SMS,
		Email:    a.Email,
		Dedup:    a.Dedup,
	}, co)
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

func schema(c *fiber.Ctx) string {
	s, _ := c.Locals("schema").(string)
	return s
}

// idParam reads a positive numeric path parameter.
func idParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

// listFilter reads the common list query: status, customer_id, assigned_to, archived, limit, offset.
func listFilter(c *fiber.Ctx) repository.ListFilter {
	f := repository.ListFilter{
		Status:          strings.TrimSpace(c.Query("status")),
		AssignedTo:      strings.TrimSpace(c.Query("assigned_to")),
		IncludeArchived: c.QueryBool("archived", false),
		Limit:           utils.QueryInt(c.Query("limit"), 50, 0),
		Offset:          utils.QueryInt(c.Query("offset"), 0, 0),
	}
	if id := utils.QueryInt(c.Query("customer_id"), 0, 0); id > 0 {
		f.CustomerID = uint(id)
	}
	return f
}
