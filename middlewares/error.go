package middlewares

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"fieldservice-backend/billing"
	"fieldservice-backend/logger"
	"fieldservice-backend/notify"
	"fieldservice-backend/payments"
	"fieldservice-backend/portal"
	"fieldservice-backend/receipts"
	"fieldservice-backend/repository"
	"fieldservice-backend/services"
)

// domain sentinels and the status they surface as. Messages are ours, so they are safe to return.
var statusFor = []struct {
	err  error
	code int
}{
	{repository.ErrNotFound, fiber.StatusNotFound},
	{billing.ErrInvalidTransition, fiber.StatusConflict},
	{billing.ErrLateFeeApplied, fiber.StatusConflict},
	{billing.ErrNotOverdue, fiber.StatusConflict},
	{services.ErrInvoiceClosed, fiber.StatusConflict},
	{services.ErrInvoiceHasPayments, fiber.StatusConflict},
	{services.ErrInvalidInput, fiber.StatusUnprocessableEntity},
	{billing.ErrUnknownItem, fiber.StatusUnprocessableEntity},
	{billing.ErrInvalidAmount, fiber.StatusUnprocessableEntity},
	{billing.ErrOverpayment, fiber.StatusUnprocessableEntity},
	{notify.ErrNoRecipient, fiber.StatusUnprocessableEntity},
	{notify.ErrUnknownTemplate, fiber.StatusUnprocessableEntity},
	{receipts.ErrNotCompleted, fiber.StatusUnprocessableEntity},
	{notify.ErrProvider, fiber.StatusBadGateway},
	{payments.ErrSignature, fiber.StatusBadRequest},
	{portal.ErrInvalidLink, fiber.StatusUnauthorized},
}

// ErrorHandler centralizes error responses and keeps messages sanitized.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// 1) Fiber errors (use their status code + message)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	// 2) Validation errors (422 + per-field info)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make(map[string]string, len(ve))
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "validation failed",
			"errors":  out,
		})
	}

	// 3) Domain errors
	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			return c.Status(m.code).JSON(fiber.Map{"message": err.Error()})
		}
	}

	// 4) Unknown errors (500)
	l := logger.WithComponent("http")
	l.Error().Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("internal error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}
