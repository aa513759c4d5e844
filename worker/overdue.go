package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"fieldservice-backend/database"
	"fieldservice-backend/logger"
	"fieldservice-backend/metrics"
	"fieldservice-backend/repository"
	"fieldservice-backend/services"
)

// OverdueSweeper moves past-due invoices of every tenant to overdue.
type OverdueSweeper struct {
	schemas func(ctx context.Context) ([]string, error)
	sweep   func(ctx context.Context, schema string) (int64, error)
	log     zerolog.Logger
}

func NewOverdueSweeper() *OverdueSweeper {
	return &OverdueSweeper{
		schemas: database.TenantSchemas,
		sweep:   sweepSchema,
		log:     logger.WithComponent("overdue-sweep"),
	}
}

func sweepSchema(ctx context.Context, schema string) (int64, error) {
	var n int64
	err := database.WithTenant(ctx, schema, func(tx *gorm.DB) error {
		var err error
		n, err = services.NewPayments(repository.NewTenant(tx), nil).SweepOverdue(ctx)
		return err
	})
	return n, err
}

// RunOnce sweeps all tenants. A failing tenant does not stop the others.
func (s *OverdueSweeper) RunOnce(ctx context.Context) (int64, error) {
	schemas, err := s.schemas(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tenants: %w", err)
	}

	start := time.Now()
	var total int64
	var errs []error
	for _, schema := range schemas {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		n, err := s.sweep(ctx, schema)
		if err != nil {
			s.log.Error().Err(err).Str("tenant", schema).Msg("overdue sweep failed")
			errs = append(errs, fmt.Errorf("%s: %w", schema, err))
			continue
		}
		total += n
	}
	metrics.RecordOverdue(total)
	s.log.Info().Int("tenants", len(schemas)).Int64("marked", total).Dur("took", time.Since(start)).Msg("overdue sweep done")
	return total, errors.Join(errs...)
}

// Start schedules RunOnce on a schedule (standard cron or @every) until ctx is cancelled.
func (s *OverdueSweeper) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	c.Start()
	s.log.Info().Str("schedule", schedule).Msg("overdue sweep scheduled")

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		s.log.Info().Msg("overdue sweep stopped")
	}()
	return nil
}
