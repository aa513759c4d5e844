package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"fieldservice-backend/controllers"
	"fieldservice-backend/database"
	"fieldservice-backend/logger"
	"fieldservice-backend/metrics"
	"fieldservice-backend/middlewares"
	"fieldservice-backend/notify"
	"fieldservice-backend/payments"
	"fieldservice-backend/portal"
	"fieldservice-backend/providers"
	"fieldservice-backend/repository"
	"fieldservice-backend/routes"
	"fieldservice-backend/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the overdue sweep",
	Example: `  # Start with settings from .env
  fieldservice serve

  # Start without the background sweep
  fieldservice serve --no-worker`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("no-worker", false, "Do not schedule the overdue sweep in this process")
}

// newApp builds the fiber app with the global middleware stack and all routes.
func newApp(api *controllers.API) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middlewares.ErrorHandler,
		BodyLimit:             cfg.BodyLimit(),
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middlewares.RequestLogger())
	app.Use(metrics.Middleware())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
	}))

	// Global rate limiter keyed by client IP. Stripe and scrapers are exempt.
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWin,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics" || c.Path() == "/api/webhooks/stripe"
		},
	}))

	routes.Register(app, api)
	return app
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")
	noWorker, _ := cmd.Flags().GetBool("no-worker")

	if err := connect(); err != nil {
		return err
	}
	defer database.Close()
	if err := database.MigratePublic(); err != nil {
		return err
	}

	middlewares.SetJWTSecret(cfg.JWTSecret)
	platform := repository.NewPlatform(database.DB)
	api := &controllers.API{
		Platform: platform,
		SMS:      providers.NewSMSClient(cfg.SMSAPIURL, cfg.SMSAccountSID, cfg.SMSAuthToken, cfg.SMSFrom, cfg.SMSRatePerSec),
		Email:    providers.NewEmailClient(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom),
		Portal:   portal.NewSigner(cfg.PortalSecret, cfg.PortalTTL, cfg.PortalURL),
	}
	if cfg.StripeWebhookSecret != "" {
		api.Webhook = payments.NewWebhook(cfg.StripeWebhookSecret, platform, payments.TenantLedger{})
	} else {
		log.Warn().Msg("STRIPE_WEBHOOK_SECRET not set, webhook endpoint disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedisURL != "" {
		dedup, err := notify.NewRedisDeduper(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer dedup.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = dedup.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("redis unreachable, duplicate suppression falls back to logs")
		} else {
			api.Dedup = dedup
		}
	}

	if !noWorker {
		if err := worker.NewOverdueSweeper().Start(ctx, cfg.OverdueSchedule); err != nil {
			return err
		}
	}

	app := newApp(api)
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("API server starting")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}
