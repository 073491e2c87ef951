package admin

import (
	"fmt"

	"github.com/cjgv1809/Chat-with-PDF/internal/config"
	"github.com/cjgv1809/Chat-with-PDF/internal/database"
	"github.com/spf13/cobra"
)

const defaultMigrationsPath = "migrations"

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply every pending migration, or roll back with --down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			path, _ := cmd.Flags().GetString("migrations")
			if down, _ := cmd.Flags().GetBool("down"); down {
				return database.Rollback(cfg.DatabaseURL, path)
			}
			return database.Migrate(cfg.DatabaseURL, path)
		},
	}

	cmd.Flags().String("migrations", defaultMigrationsPath, "Directory holding the SQL migrations")
	cmd.Flags().Bool("down", false, "Roll back every migration")

	return cmd
}
