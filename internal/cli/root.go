// Package cli holds the claimdesk command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/claimdesk/internal/config"
	"github.com/garyjia/claimdesk/pkg/utils"
)

// Version is overridden at build time with -ldflags
var Version = "dev"

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "claimdesk",
	Short: "Claimdesk - insurance claims back office",
	Long: `Claimdesk records reimbursement claims with their supporting documents,
shows each organization its own claims and lets administrators manage users.

Run "claimdesk serve" to start the HTTP API.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "claimdesk %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: "+config.DefaultPath+" when present)")
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration and builds the logger it describes
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, logger, nil
}
