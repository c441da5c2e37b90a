package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/observability"
)

const healthCheckTimeout = 10 * time.Second

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Run a self-health check: configuration, database and prompts must be
usable for the command to succeed. A missing provider credential is reported
as a warning because the server still starts without one.`,
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		log.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(log, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		log.Debug("Version check passed", zap.String("version", versionInfo.Version))
		log.Info("✅ Version information available")

		ctx, cancel := context.WithTimeout(cmd.Context(), healthCheckTimeout)
		defer cancel()

		cfg, err := loadConfig(ctx)
		if err != nil {
			ExitWithCode(log, foundry.ExitConfigInvalid, "Configuration invalid", errwrap.WrapConfigInvalid(ctx, err, "configuration invalid"))
			return
		}
		log.Info("✅ Configuration loaded")

		db, err := openStore(ctx, cfg)
		if err != nil {
			ExitWithCode(log, foundry.ExitFailure, "Database unavailable", errwrap.WrapDatabaseError(ctx, err, "database unavailable"))
			return
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup
		if err := db.Ping(ctx); err != nil {
			ExitWithCode(log, foundry.ExitFailure, "Database ping failed", errwrap.WrapDatabaseError(ctx, err, "database ping failed"))
			return
		}
		log.Info("✅ Database reachable", zap.String("driver", db.Driver()))

		guidance, err := buildGuidance(cfg, "cli", log)
		if err != nil {
			ExitWithCode(log, foundry.ExitConfigInvalid, "Prompts unavailable", errwrap.WrapConfigInvalid(ctx, err, "prompts unavailable"))
			return
		}
		log.Info("✅ Prompts loaded")

		if err := guidance.service.Ready(); err != nil {
			log.Warn("⚠️  Guidance generation not configured (set OPENAI_API_KEY)", zap.Error(err))
		} else {
			log.Info("✅ Guidance generation configured")
		}

		log.Info("")
		log.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
