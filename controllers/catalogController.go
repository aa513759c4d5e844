package controllers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"fieldservice-backend/billing"
	"fieldservice-backend/middlewares"
	"fieldservice-backend/models"
	"fieldservice-backend/utils"
)

const maxCatalogBatch = 500

type CatalogItemInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	UnitPrice   billing.Lenient `json:"unit_price"`
	Active      *bool           `json:"active"`
}

type CatalogItemPatch struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Active      *bool            `json:"active"`
}

// CreateCatalogItems accepts a single object or an array and inserts all of them in the request transaction.
func (a *API) CreateCatalogItems(c *fiber.Ctx) error {
	var batch []CatalogItemInput
	body := strings.TrimSpace(string(c.Body()))
	if strings.HasPrefix(body, "[") {
		if err := c.BodyParser(&batch); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	} else {
		var one CatalogItemInput
		if err := c.BodyParser(&one); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		batch = append(batch, one)
	}
	if len(batch) == 0 || len(batch) > maxCatalogBatch {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("between 1 and %d items required", maxCatalogBatch))
	}

	items := make([]models.CatalogItem, 0, len(batch))
	for i := range batch {
		if err := middlewares.ValidateStruct(&batch[i]); err != nil {
			return err
		}
		active := true
		if batch[i].Active != nil {
			active = *batch[i].Active
		}
		items = append(items, models.CatalogItem{
			Name:        strings.TrimSpace(batch[i].Name),
			Description: strings.TrimSpace(batch[i].Description),
			UnitPrice:   utils.Round2(batch[i].UnitPrice.Decimal),
			Active:      active,
		})
	}

	repo, err := tenant(c)
	if err != nil {
		return err
	}
	if err := repo.CreateCatalogItems(c.UserContext(), items); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"items": items, "message": "success"})
}

func (a *API) GetCatalog(c *fiber.Ctx) error {
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	items, err := repo.Catalog(c.UserContext(), c.QueryBool("active", false))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items, "message": "success"})
}

func (a *API) UpdateCatalogItem(c *fiber.Ctx) error {
	var in CatalogItemPatch
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&in)
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "unit_price must not be negative")
	}

	repo, err := tenant(c)
	if err != nil {
		return err
	}
	item, err := repo.UpdateCatalogItem(c.UserContext(), c.Params("id"), utils.PatchColumns(&in, nil))
	if err != nil {
		return err
	}
	return c.JSON(item)
}
