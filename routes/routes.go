package routes

import (
	"github.com/gofiber/fiber/v2"

	"fieldservice-backend/billing"
	"fieldservice-backend/controllers"
	"fieldservice-backend/metrics"
	"fieldservice-backend/middlewares"
	"fieldservice-backend/models"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, api *controllers.API) {
	app.Get("/metrics", metrics.Handler())
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	root := app.Group("/api")

	// Public endpoints
	root.Post("/registration", api.Register)
	root.Post("/login", api.Login)
	root.Post("/logout", api.Logout)
	root.Get("/portal/jobs", api.PortalJob)
	root.Post("/webhooks/stripe", api.StripeWebhook)

	// Protected endpoints (JWT auth)
	protected := root.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader())
	protected.Get("/me", api.Me)

	// Platform console: public tables only, no tenant transaction
	admin := protected.Group("/admin", middlewares.RequireSuperAdmin())
	admin.Get("/companies", api.AdminCompanies)
	admin.Get("/settings", api.AdminSettings)
	admin.Put("/kill-switches/:key", api.SetKillSwitch)
	admin.Get("/feature-flags", api.AdminFeatureFlags)
	admin.Put("/feature-flags", api.SetFeatureFlag)
	admin.Get("/usage-limits", api.AdminUsageLimits)
	admin.Put("/usage-limits", api.SetUsageLimit)

	// Tenant endpoints
	t := protected.Group("")
	// Idempotency guard FIRST (not tied to request TX)
	t.Use(middlewares.Idempotency())
	// Then per-request tenant transaction (pins search_path and commits/rolls back)
	t.Use(middlewares.TenantTx())

	office := middlewares.RequireRole(models.RoleOwner, models.RoleAdmin)
	owner := middlewares.RequireRole(models.RoleOwner)

	// Company & team
	t.Put("/company", owner, api.UpdateCompanySettings)
	t.Get("/team", api.GetTeam)
	t.Post("/team", office, api.CreateTeamMember)
	t.Put("/team/:id/active", office, api.SetTeamMemberActive)

	// Customers
	t.Post("/customers", office, api.CreateCustomer)
	t.Get("/customers", api.GetCustomers)
	t.Get("/customers/:id", api.GetCustomer)
	t.Put("/customers/:id", office, api.UpdateCustomer)
	t.Post("/customers/:id/archive", office, api.ArchiveCustomer)
	t.Post("/customers/:id/unarchive", office, api.UnarchiveCustomer)

	// Catalog
	t.Post("/catalog", office, api.CreateCatalogItems) // single or batch
	t.Get("/catalog", api.GetCatalog)
	t.Put("/catalog/:id", office, api.UpdateCatalogItem)

	// Quotes
	t.Post("/quotes", office, api.CreateQuote)
	t.Get("/quotes", office, api.GetQuotes)
	t.Get("/quotes/:id", office, api.GetQuote)
	t.Put("/quotes/:id", office, api.UpdateQuote)
	t.Put("/quotes/:id/status", office, api.SetQuoteStatus)
	t.Post("/quotes/:id/photos", office, api.AddPhoto(billing.KindQuote))
	t.Post("/quotes/:id/convert/job", office, api.ConvertQuoteToJob)
	t.Post("/quotes/:id/convert/invoice", office, api.ConvertQuoteToInvoice)
	t.Post("/quotes/:id/archive", office, api.ArchiveDocument(billing.KindQuote))
	t.Post("/quotes/:id/unarchive", office, api.UnarchiveDocument(billing.KindQuote))
	t.Delete("/quotes/:id", office, api.DeleteDocument(billing.KindQuote))

	// Jobs
	t.Post("/jobs", office, api.CreateJob)
	t.Get("/jobs", api.GetJobs)
	t.Get("/jobs/:id", api.GetJob)
	t.Put("/jobs/:id", office, api.UpdateJob)
	t.Put("/jobs/:id/assign", office, api.AssignJob)
	t.Put("/jobs/:id/status", api.SetJobStatus)
	t.Post("/jobs/:id/notify-status", api.NotifyJobStatus)
	t.Post("/jobs/:id/photos", api.AddPhoto(billing.KindJob))
	t.Post("/jobs/:id/convert/invoice", office, api.ConvertJobToInvoice)
	t.Post("/jobs/:id/archive", office, api.ArchiveDocument(billing.KindJob))
	t.Post("/jobs/:id/unarchive", office, api.UnarchiveDocument(billing.KindJob))
	t.Delete("/jobs/:id", office, api.DeleteDocument(billing.KindJob))
	t.Get("/jobs/:id/time-entries", api.GetTimeEntries)
	t.Post("/jobs/:id/time-entries", api.StartTimeEntry)
	t.Put("/jobs/:id/time-entries/:entryId/stop", api.StopTimeEntry)

	// Invoices
	t.Get("/invoices/export.xlsx", office, api.ExportInvoices)
	t.Post("/invoices", office, api.CreateInvoice)
	t.Get("/invoices", office, api.GetInvoices)
	t.Get("/invoices/:id", office, api.GetInvoice)
	t.Put("/invoices/:id", office, api.UpdateInvoice)
	t.Put("/invoices/:id/status", office, api.SetInvoiceStatus)
	t.Post("/invoices/:id/archive", office, api.ArchiveDocument(billing.KindInvoice))
	t.Post("/invoices/:id/unarchive", office, api.UnarchiveDocument(billing.KindInvoice))
	t.Delete("/invoices/:id", office, api.DeleteDocument(billing.KindInvoice))
	t.Get("/invoices/:id/balance", office, api.GetBalance)
	t.Post("/invoices/:id/late-fee", office, api.ApplyLateFee)
	t.Post("/invoices/:id/payments", office, api.CreatePayment)
	t.Get("/invoices/:id/payments", office, api.ListPayments)
	t.Get("/invoices/:id/payments/:paymentId/receipt", office, api.DownloadReceipt)
	t.Post("/invoices/:id/payments/:paymentId/receipt/email", office, api.EmailReceipt)

	// Notifications
	t.Get("/sms/templates", api.GetSMSTemplates)
	t.Post("/sms", api.SendSMS)
	t.Get("/sms/logs", office, api.GetSMSLogs)
	t.Get("/email/logs", office, api.GetEmailLogs)
	t.Get("/usage", office, api.GetUsage)
}
