package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fieldservice-backend/database"
	"fieldservice-backend/worker"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep-overdue",
	Short: "Mark sent invoices past their due date as overdue, once",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		defer database.Close()

		n, err := worker.NewOverdueSweeper().RunOnce(context.Background())
		fmt.Fprintf(cmd.OutOrStdout(), "%d invoices marked overdue\n", n)
		return err
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
