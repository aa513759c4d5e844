package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// StripeWebhook verifies and applies a Stripe event. Errors other than a bad
// signature answer 500 so Stripe redelivers.
func (a *API) StripeWebhook(c *fiber.Ctx) error {
	if a.Webhook == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "webhooks not configured")
	}
	result, err := a.Webhook.Handle(c.UserContext(), c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"received": true, "result": result})
}
