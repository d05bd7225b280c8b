package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/infrastructure/persistence/repository"
	"github.com/garyjia/claimdesk/migrations"
	"github.com/garyjia/claimdesk/pkg/database"
)

// grantRoleCmd bootstraps the first administrator
var grantRoleCmd = &cobra.Command{
	Use:   "grant-role <email> <role>",
	Short: "Set the role of an existing account",
	Long: `Grant-role writes a role for an account directly in the database.
Use it to create the first administrator, who can then manage others from the UI.

Example:
  claimdesk grant-role owner@example.com admin`,
	Args: cobra.ExactArgs(2),
	RunE: runGrantRole,
}

func init() {
	rootCmd.AddCommand(grantRoleCmd)
}

func runGrantRole(cmd *cobra.Command, args []string) error {
	email, role := args[0], args[1]
	if !entity.IsRole(role) {
		return fmt.Errorf("invalid role %q (want %s, %s or %s)", role, entity.RoleUser, entity.RoleManager, entity.RoleAdmin)
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.New(database.Config{Path: cfg.Database.Path}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := database.NewMigrator(db, logger).Run(migrations.FS); err != nil {
		return err
	}

	ctx := cmd.Context()
	user, err := repository.NewUserRepository(db.DB, logger).GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("look up %s: %w", email, err)
	}
	if err := repository.NewRoleRepository(db.DB, logger).Upsert(ctx, user.ID, role); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, role)
	return nil
}
