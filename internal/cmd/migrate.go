package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/observability"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Long: `Create the database tables if needed, add columns introduced by newer
releases and seed the default blog categories. serve runs the same
migrations on startup; this command is for preparing a database ahead of time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(ctx)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "failed to load configuration")
		}

		db, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		location := cfg.Store.URL
		if location == "" {
			location = localStorePath(cfg)
		}
		observability.CLILogger.Info("Database ready",
			zap.String("driver", db.Driver()),
			zap.String("location", location),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
