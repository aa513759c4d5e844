package controllers

import (
	"github.com/gofiber/fiber/v2"

	"fieldservice-backend/middlewares"
	"fieldservice-backend/models"
	"fieldservice-backend/utils"
)

type CustomerInput struct {
	FirstName   string `json:"first_name" validate:"required_without=CompanyName,max=100"`
	LastName    string `json:"last_name" validate:"max=100"`
	CompanyName string `json:"company_name" validate:"max=200"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,e164"`
	Address     string `json:"address" validate:"max=500"`
	City        string `json:"city" validate:"max=100"`
	Zip         string `json:"zip" validate:"max=20"`
	Notes       string `json:"notes" validate:"max=5000"`
}

type CustomerPatch struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,max=100"`
	CompanyName *string `json:"company_name" validate:"omitempty,max=200"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,e164"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
	City        *string `json:"city" validate:"omitempty,max=100"`
	Zip         *string `json:"zip" validate:"omitempty,max=20"`
	Notes       *string `json:"notes" validate:"omitempty,max=5000"`
}

func (a *API) CreateCustomer(c *fiber.Ctx) error {
	var in CustomerInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	repo, err := tenant(c)
	if err != nil {
		return err
	}
	customer := models.Customer{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		CompanyName: in.CompanyName,
		Email:       in.Email,
		Phone:       in.Phone,
		Address:     in.Address,
		City:        in.City,
		Zip:         in.Zip,
		Notes:       in.Notes,
	}
	if err := repo.CreateCustomer(c.UserContext(), &customer); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(customer)
}

func (a *API) UpdateCustomer(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in CustomerPatch
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&in)

	repo, err := tenant(c)
	if err != nil {
		return err
	}
	customer, err := repo.UpdateCustomer(c.UserContext(), id, utils.PatchColumns(&in, nil))
	if err != nil {
		return err
	}
	return c.JSON(customer)
}

func (a *API) GetCustomers(c *fiber.Ctx) error {
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	customers, err := repo.Customers(c.UserContext(), c.QueryBool("archived", false))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"customers": customers,
		"message":   "success",
	})
}

func (a *API) GetCustomer(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	customer, err := repo.Customer(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(customer)
}

func (a *API) setCustomerArchived(c *fiber.Ctx, archived bool) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	var at any
	if archived {
		at = a.now().UTC()
	}
	customer, err := repo.UpdateCustomer(c.UserContext(), id, map[string]any{"archived_at": at})
	if err != nil {
		return err
	}
	return c.JSON(customer)
}

func (a *API) ArchiveCustomer(c *fiber.Ctx) error   { return a.setCustomerArchived(c, true) }
func (a *API) UnarchiveCustomer(c *fiber.Ctx) error { return a.setCustomerArchived(c, false) }
