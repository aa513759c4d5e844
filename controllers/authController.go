package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fieldservice-backend/database"
	"fieldservice-backend/logger"
	"fieldservice-backend/middlewares"
	"fieldservice-backend/models"
	"fieldservice-backend/repository"
	"fieldservice-backend/utils"
)

type RegisterInput struct {
	CompanyName     string `json:"company_name" validate:"required,max=200"`
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,e164"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Timezone        string `json:"timezone" validate:"omitempty,timezone"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TeamMemberInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,e164"`
	Role      string `json:"role" validate:"required,oneof=admin technician"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

type CompanySettingsInput struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Email          *string          `json:"email" validate:"omitempty,email"`
	Phone          *string          `json:"phone"`
	Address        *string          `json:"address"`
	City           *string          `json:"city"`
	Country        *string          `json:"country"`
	Zip            *string          `json:"zip"`
	TaxRate        *decimal.Decimal `json:"tax_rate"`
	LateFeePercent *decimal.Decimal `json:"late_fee_percent"`
	SMSEnabled     *bool            `json:"sms_enabled"`
	EmailEnabled   *bool            `json:"email_enabled"`
	Timezone       *string          `json:"timezone" validate:"omitempty,timezone"`
}

// emailTaken reports whether a profile already uses the address.
func (a *API) emailTaken(c *fiber.Ctx, email string) (bool, error) {
	_, err := a.Platform.ProfileByEmail(c.UserContext(), email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Register creates a company, its tenant schema, the owner profile and a free subscription.
func (a *API) Register(c *fiber.Ctx) error {
	var in RegisterInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)
	in.Email = strings.ToLower(in.Email)

	taken, err := a.emailTaken(c, in.Email)
	if err != nil {
		return err
	}
	if taken {
		return fiber.NewError(fiber.StatusBadRequest, "email already exists")
	}

	company := models.Company{
		Name:         in.CompanyName,
		Email:        in.Email,
		Phone:        in.Phone,
		SchemaName:   database.SchemaNameFor(in.CompanyName),
		EmailEnabled: true,
		Timezone:     in.Timezone,
	}
	if company.Timezone == "" {
		company.Timezone = "UTC"
	}
	owner := models.Profile{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Role:      models.RoleOwner,
		Active:    true,
	}
	if err := owner.SetPassword(in.Password); err != nil {
		return err
	}

	err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		platform := repository.NewPlatform(tx)
		if err := platform.CreateCompany(c.UserContext(), &company); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not create company")
		}
		owner.CompanyID = company.Id
		if err := platform.CreateProfile(c.UserContext(), &owner); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not create user")
		}
		if err := platform.UpsertSubscription(c.UserContext(), &models.Subscription{
			CompanyID: company.Id,
			Plan:      models.PlanFree,
			Status:    models.SubscriptionActive,
		}); err != nil {
			return err
		}
		return database.CreateSchema(tx, company.SchemaName)
	})
	if err != nil {
		return err
	}

	if err := database.MigrateTenantSchema(company.SchemaName); err != nil {
		l := logger.WithTenant(company.SchemaName, owner.Id)
		l.Error().Err(err).Msg("tenant migration failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Could not migrate tenant schema"})
	}

	token, err := middlewares.GenerateJWT(&owner, company.SchemaName)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":   token,
		"company": company,
		"profile": owner,
	})
}

func (a *API) Login(c *fiber.Ctx) error {
	var in LoginInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	profile, err := a.Platform.ProfileByEmail(c.UserContext(), strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return err
	}
	if !profile.Active || profile.ComparePassword(in.Password) != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	schemaName := ""
	if profile.Role != models.RoleSuperAdmin {
		co, err := a.Platform.Company(c.UserContext(), profile.CompanyID)
		if err != nil {
			return err
		}
		schemaName = co.SchemaName
	}

	token, err := middlewares.GenerateJWT(profile, schemaName)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"token":   token,
		"profile": profile,
	})
}

// Logout is a no-op for bearer tokens; clients drop the token.
func (a *API) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "success"})
}

func (a *API) Me(c *fiber.Ctx) error {
	profile, err := a.Platform.Profile(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	out := fiber.Map{"profile": profile}
	if profile.CompanyID != "" {
		co, err := a.company(c)
		if err != nil {
			return err
		}
		sub, err := a.Platform.Subscription(c.UserContext(), co.Id)
		if err != nil {
			return err
		}
		out["company"] = co
		out["subscription"] = sub
	}
	return c.JSON(out)
}

func (a *API) GetTeam(c *fiber.Ctx) error {
	co, err := a.company(c)
	if err != nil {
		return err
	}
	team, err := a.Platform.TeamMembers(c.UserContext(), co.Id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"team": team, "message": "success"})
}

func (a *API) CreateTeamMember(c *fiber.Ctx) error {
	var in TeamMemberInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)
	in.Email = strings.ToLower(in.Email)

	co, err := a.company(c)
	if err != nil {
		return err
	}
	taken, err := a.emailTaken(c, in.Email)
	if err != nil {
		return err
	}
	if taken {
		return fiber.NewError(fiber.StatusBadRequest, "email already exists")
	}

	member := models.Profile{
		CompanyID: co.Id,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Role:      in.Role,
		Active:    true,
	}
	if err := member.SetPassword(in.Password); err != nil {
		return err
	}
	if err := a.Platform.CreateProfile(c.UserContext(), &member); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

// SetTeamMemberActive enables or disables a team member's login. Owners cannot lock themselves out.
func (a *API) SetTeamMemberActive(c *fiber.Ctx) error {
	var in struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	id := c.Params("id")
	if id == userID(c) && !in.Active {
		return fiber.NewError(fiber.StatusBadRequest, "cannot deactivate yourself")
	}
	co, err := a.company(c)
	if err != nil {
		return err
	}
	if err := a.Platform.SetProfileActive(c.UserContext(), co.Id, id, in.Active); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "success"})
}

// UpdateCompanySettings patches company details and notification/billing settings.
func (a *API) UpdateCompanySettings(c *fiber.Ctx) error {
	var in CompanySettingsInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&in)

	co, err := a.company(c)
	if err != nil {
		return err
	}
	updates := utils.PatchColumns(&in, nil)
	for _, k := range []string{"tax_rate", "late_fee_percent"} {
		if v, ok := updates[k].(decimal.Decimal); ok && v.IsNegative() {
			return fiber.NewError(fiber.StatusUnprocessableEntity, k+" must not be negative")
		}
	}
	if len(updates) > 0 {
		if err := a.Platform.UpdateCompany(c.UserContext(), co.Id, updates); err != nil {
			return err
		}
	}
	updated, err := a.Platform.Company(c.UserContext(), co.Id)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}
