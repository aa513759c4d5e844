package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fieldservice-backend/config"
	"fieldservice-backend/database"
	"fieldservice-backend/logger"
)

var version = "1.0.0"

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fieldservice",
	Short: "Field-service management backend",
	Long: `Multi-tenant backend for field-service businesses: customers, quotes, jobs,
invoices, payments, notifications and a platform console.

Configuration is read from the environment and an optional .env file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if err := logger.Setup(loaded.GetLoggerConfig()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func Execute() {
	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
	}
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// connect opens the database for commands that need it.
func connect() error {
	if err := database.Connect(cfg.DSN()); err != nil {
		return err
	}
	return nil
}
