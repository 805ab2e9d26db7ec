package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markb/pgfngen/internal/config"
	"github.com/markb/pgfngen/internal/log"
)

// Version information set via ldflags at build time
var (
	Version   = "dev"
	BuildTime = ""
	GitCommit = ""
)

// cfg is loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pgfngen",
	Short: "Generate PostgreSQL query functions from table definitions",
	Long: `pgfngen turns a table and column definition into a PostgreSQL query
function: a List function returning every matching row, or a single-row
function carrying its detail rows as a JSON array.

Every generated function returns a status flag and a message ahead of
its data columns, and falls back to a typed not-found row when nothing
matches. Ownership and execute grants go to one fixed principal, set
with PGFNGEN_PRINCIPAL.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("log-format") {
			loaded.Log.Format, _ = cmd.Flags().GetString("log-format")
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if err := log.InitWriter(cmd.ErrOrStderr(), &loaded.Log); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		cfg = loaded
		log.Debug("configuration loaded",
			"principal", cfg.Principal,
			"user_table", cfg.UserTable,
			"max_columns", cfg.Limits.Columns,
		)
		return nil
	},
}

func init() {
	// Set version template to include build info when available
	rootCmd.SetVersionTemplate("pgfngen version {{.Version}}\n")

	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
