package controllers

import (
	"github.com/gofiber/fiber/v2"

	"fieldservice-backend/middlewares"
	"fieldservice-backend/models"
)

var killSwitches = map[string]bool{
	models.SettingSMSKillSwitch:   true,
	models.SettingEmailKillSwitch: true,
}

type KillSwitchInput struct {
	Enabled bool `json:"enabled"`
}

type FeatureFlagInput struct {
	Plan    string `json:"plan" validate:"required,oneof=free pro business"`
	Feature string `json:"feature" validate:"required,oneof=sms portal receipts_email"`
	Enabled bool   `json:"enabled"`
}

type UsageLimitInput struct {
	CompanyID    string `json:"company_id" validate:"omitempty,uuid"`
	Plan         string `json:"plan" validate:"omitempty,oneof=free pro business"`
	Metric       string `json:"metric" validate:"required,oneof=sms_monthly"`
	MonthlyLimit int    `json:"monthly_limit" validate:"gte=0"`
}

type companyOverview struct {
	models.Company
	Subscription *models.Subscription `json:"subscription"`
}

func (a *API) AdminCompanies(c *fiber.Ctx) error {
	companies, err := a.Platform.Companies(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]companyOverview, 0, len(companies))
	for _, co := range companies {
		sub, err := a.Platform.Subscription(c.UserContext(), co.Id)
		if err != nil {
			return err
		}
		out = append(out, companyOverview{Company: co, Subscription: sub})
	}
	return c.JSON(fiber.Map{"companies": out, "message": "success"})
}

func (a *API) AdminSettings(c *fiber.Ctx) error {
	settings, err := a.Platform.Settings(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"settings": settings, "message": "success"})
}

// SetKillSwitch turns a notification channel off or on platform-wide.
func (a *API) SetKillSwitch(c *fiber.Ctx) error {
	key := c.Params("key")
	if !killSwitches[key] {
		return fiber.NewError(fiber.StatusNotFound, "unknown kill switch")
	}
	var in KillSwitchInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	if err := a.Platform.SetKillSwitch(c.UserContext(), key, in.Enabled, userID(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"key": key, "enabled": in.Enabled})
}

func (a *API) AdminFeatureFlags(c *fiber.Ctx) error {
	flags, err := a.Platform.FeatureFlags(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"feature_flags": flags, "message": "success"})
}

func (a *API) SetFeatureFlag(c *fiber.Ctx) error {
	var in FeatureFlagInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	if err := a.Platform.SetFeatureFlag(c.UserContext(), in.Plan, in.Feature, in.Enabled); err != nil {
		return err
	}
	return c.JSON(in)
}

func (a *API) AdminUsageLimits(c *fiber.Ctx) error {
	limits, err := a.Platform.UsageLimits(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"usage_limits": limits, "message": "success"})
}

// SetUsageLimit sets a plan default or, with company_id, a company override.
func (a *API) SetUsageLimit(c *fiber.Ctx) error {
	var in UsageLimitInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	if (in.CompanyID == "") == (in.Plan == "") {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "exactly one of company_id or plan is required")
	}
	limit := models.UsageLimit{
		CompanyID:    in.CompanyID,
		Plan:         in.Plan,
		Metric:       in.Metric,
		MonthlyLimit: in.MonthlyLimit,
	}
	if in.CompanyID != "" {
		if _, err := a.Platform.Company(c.UserContext(), in.CompanyID); err != nil {
			return err
		}
	}
	if err := a.Platform.SetUsageLimit(c.UserContext(), &limit); err != nil {
		return err
	}
	return c.JSON(limit)
}
