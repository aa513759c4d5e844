package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/api/jobs/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/metrics", Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/api/jobs/17", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fieldservice_http_requests_total{method="GET",path="/api/jobs/:id",status="204"}`)
	assert.NotContains(t, string(body), `path="/metrics"`)
}

func TestRecordNotification(t *testing.T) {
	RecordNotification("sms", "blocked")
	RecordWebhook("account.updated", "processed")

	families, err := Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["fieldservice_notify_messages_total"])
	assert.True(t, names["fieldservice_webhooks_events_total"])
}
