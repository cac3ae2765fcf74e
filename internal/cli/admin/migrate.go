package admin

import (
	"fmt"

	"github.com/cloo-solutions/testcopilot/internal/database"
	"github.com/cloo-solutions/testcopilot/internal/logging"
	"github.com/spf13/cobra"
)

// MigrateCmd applies pending migrations and exits.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.Setup(cfg.LogFormat, cfg.Debug)

			version, err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}
