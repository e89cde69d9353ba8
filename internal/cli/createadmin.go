package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moscooltech/suggest-ila2/internal/config"
	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/logger"
	"github.com/moscooltech/suggest-ila2/internal/store"
)

// NewCreateAdminCmd creates the create-admin command.
func NewCreateAdminCmd() *cobra.Command {
	var username, email, firstName, lastName string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || email == "" {
				return fmt.Errorf("--username and --email are required")
			}

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

			ctx := cmd.Context()
			if _, err := db.GetUserByUsername(ctx, username); err == nil {
				return fmt.Errorf("user %q already exists", username)
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}

			user := &core.User{
				Username:  username,
				Email:     email,
				FirstName: firstName,
				LastName:  lastName,
				IsAdmin:   true,
			}
			if err := db.CreateUser(ctx, user); err != nil {
				return err
			}

			fmt.Printf("Created administrator %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "administrator username (required)")
	cmd.Flags().StringVar(&email, "email", "", "administrator email (required)")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	return cmd
}
