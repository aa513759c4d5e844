package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fieldservice-backend/database"
	"fieldservice-backend/models"
	"fieldservice-backend/repository"
)

var createAdminCmd = &cobra.Command{
	Use:     "create-admin",
	Short:   "Create a platform super admin login",
	Example: `  fieldservice create-admin --email ops@example.com --password 's3cret-pass'`,
	RunE:    runCreateAdmin,
}

func init() {
	rootCmd.AddCommand(createAdminCmd)

	createAdminCmd.Flags().String("email", "", "Login email (required)")
	createAdminCmd.Flags().String("password", "", "Password, at least 8 characters (required)")
	createAdminCmd.Flags().String("first-name", "Platform", "First name")
	createAdminCmd.Flags().String("last-name", "Admin", "Last name")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	first, _ := cmd.Flags().GetString("first-name")
	last, _ := cmd.Flags().GetString("last-name")

	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	if err := connect(); err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	platform := repository.NewPlatform(database.DB)
	if _, err := platform.ProfileByEmail(ctx, email); err == nil {
		return fmt.Errorf("email %s already exists", email)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	admin := models.Profile{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Role:      models.RoleSuperAdmin,
		Active:    true,
	}
	if err := admin.SetPassword(password); err != nil {
		return err
	}
	if err := platform.CreateProfile(ctx, &admin); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "super admin %s created (%s)\n", admin.Email, admin.Id)
	return nil
}
