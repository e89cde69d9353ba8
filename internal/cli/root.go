// Package cli wires the suggestd commands.
package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "suggestd",
		Short: "Community suggestion platform with AI triage",
		Long: `Suggestd - Community Suggestion Platform

Residents submit suggestions; an AI pipeline categorizes, summarizes,
scores sentiment, and detects duplicates before anything is stored.
Every AI operation degrades to a deterministic local fallback, so
submissions always succeed even with every provider offline.

Examples:
  # Run the API server
  suggestd serve

  # Apply the database schema
  suggestd migrate

  # Create an administrator account
  suggestd create-admin --username chair --email chair@example.org`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./suggest.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewCreateAdminCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
