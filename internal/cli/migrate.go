package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/claimdesk/migrations"
	"github.com/garyjia/claimdesk/pkg/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		applied, err := database.NewMigrator(db, logger).Run(migrations.FS)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) to %s\n", applied, cfg.Database.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
