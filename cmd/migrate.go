package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fieldservice-backend/database"
	"fieldservice-backend/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the platform tables and every tenant schema",
	Example: `  fieldservice migrate
  fieldservice migrate --public-only`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("public-only", false, "Only migrate the platform tables")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("migrate")
	publicOnly, _ := cmd.Flags().GetBool("public-only")

	if err := connect(); err != nil {
		return err
	}
	defer database.Close()

	if err := database.MigratePublic(); err != nil {
		return err
	}
	log.Info().Msg("platform tables migrated")
	if publicOnly {
		return nil
	}

	schemas, err := database.TenantSchemas(context.Background())
	if err != nil {
		return err
	}
	var errs []error
	for _, schema := range schemas {
		if err := database.MigrateTenantSchema(schema); err != nil {
			log.Error().Err(err).Str("tenant", schema).Msg("tenant migration failed")
			errs = append(errs, fmt.Errorf("%s: %w", schema, err))
			continue
		}
		log.Info().Str("tenant", schema).Msg("tenant migrated")
	}
	return errors.Join(errs...)
}
