package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fieldservice-backend/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger tags every request with an id and writes one access log line once it finishes.
// Errors are rendered through the app error handler here so the logged status is final.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		rid := c.Get(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDHeader, rid)
		c.Locals("requestID", rid)

		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			// let the app error handler write the response so the status is final
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			status = c.Response().StatusCode()
		}

		l := logger.WithComponent("http")
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		default:
			ev = l.Info()
		}
		if schema, _ := c.Locals("schema").(string); schema != "" {
			ev = ev.Str("tenant", schema)
		}
		ev.Str("request_id", rid).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
		return nil
	}
}
