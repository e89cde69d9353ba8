package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moscooltech/suggest-ila2/internal/config"
	"github.com/moscooltech/suggest-ila2/internal/logger"
	"github.com/moscooltech/suggest-ila2/internal/store"
)

// NewMigrateCmd creates the migrate command.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger.Init(cfg.App.LogLevel)

			db, err := store.New(cfg.Database.URL, store.Options{
				MaxOpenConns:    cfg.Database.MaxOpenConns,
				MaxIdleConns:    cfg.Database.MaxIdleConns,
				ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
			logger.Info("database schema applied")
			return nil
		},
	}
}
