package cmd

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/config"
	"github.com/kundliinsight/kundli/internal/core/store"
	errwrap "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/metrics"
	"github.com/kundliinsight/kundli/internal/observability"
	"github.com/kundliinsight/kundli/internal/server"
	"github.com/kundliinsight/kundli/internal/server/handlers"
)

const sessionPurgeInterval = time.Hour

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// identityHealthChecker validates app identity metadata
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (i identityHealthChecker) CheckHealth(ctx context.Context) error {
	switch {
	case i.binaryName == "":
		return errwrap.NewConfigInvalidError("app identity missing binary name")
	case i.envPrefix == "":
		return errwrap.NewConfigInvalidError("app identity missing env prefix")
	case i.configName == "":
		return errwrap.NewConfigInvalidError("app identity missing config name")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read and validate the config file (restart to apply)

On shutdown the server stops accepting requests, lets in-flight readings
finish, closes the database and flushes logs.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(ctx, serveOverrides(cmd))
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "failed to load configuration")
	}

	identity := GetAppIdentity()
	namespace := identity.TelemetryNamespace()

	if err := observability.InitServerLogger(observability.ServerLoggerOptions{
		Service:   identity.BinaryName,
		Level:     lo.Ternary(cfg.Debug.Enabled, "debug", cfg.Logging.Level),
		Profile:   cfg.Logging.Profile,
		Namespace: namespace,
	}); err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "failed to initialize logging")
	}
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(observability.MetricsOptions{Namespace: namespace, Port: cfg.Metrics.Port}); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
	}
	metrics.SetServerStartTime(time.Now().Unix())

	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", zap.Error(err))
		return errwrap.WrapDatabaseError(ctx, err, "failed to open store")
	}

	guidance, err := buildGuidance(cfg, "http", logger)
	if err != nil {
		_ = db.Close()
		return errwrap.WrapConfigInvalid(ctx, err, "failed to initialize guidance")
	}
	if err := guidance.service.Ready(); err != nil {
		// The server still starts; readings fail with a configuration error
		// until a credential is provided.
		logger.Warn("config_error: guidance generation is not configured", zap.Error(err))
	}

	hm := handlers.NewHealthManager(versionInfo.Version)
	hm.RegisterChecker("store", handlers.CheckerFunc(db.Ping))
	hm.RegisterChecker("app_identity", identityHealthChecker{
		binaryName: identity.BinaryName,
		envPrefix:  identity.EnvPrefix,
		configName: identity.ConfigName,
	})
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}
	hm.RegisterOptionalChecker("generation", handlers.CheckerFunc(func(context.Context) error {
		return guidance.service.Ready()
	}))

	handlers.SetAppIdentity(identity)
	api := handlers.NewAPI(cfg, db, guidance.orchestrator)
	srv := server.New(server.Options{
		Server:  cfg.Server,
		API:     api,
		Health:  hm,
		Uploads: cfg.Uploads.Dir,

		DisableProbes: !cfg.Health.Enabled,
		Pprof:         cfg.Debug.PprofEnabled,
	})

	logger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("store", db.Driver()),
		zap.String("uploads", cfg.Uploads.Dir),
		zap.Int("rate_limit", cfg.RateLimit.MaxRequests),
		zap.Duration("rate_window", cfg.RateLimit.Window),
		zap.Int("metrics_port", cfg.Metrics.Port))

	background, stopBackground := context.WithCancel(context.Background())
	go guidance.limiter.Run(background, cfg.RateLimit.SweepInterval, func(removed, remaining int) {
		metrics.SetRateLimitTrackedClients("http", remaining)
		if removed > 0 {
			logger.Debug("Rate limit windows swept", zap.Int("removed", removed), zap.Int("tracked", remaining))
		}
	})
	go purgeSessions(background, db, sessionPurgeInterval)

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Shutdown handlers run LIFO: the logger flush registered first runs last.
	flushed := make(chan struct{})
	signals.OnShutdown(func(ctx context.Context) error {
		defer close(flushed)
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			// Sync errors are often benign (stdout/stderr already closed)
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		stopBackground()
		if err := db.Close(); err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "store close failed")
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}

		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: validating configuration")
		if _, err := config.Load(ctx, serveOverrides(cmd)); err != nil {
			logger.Error("Config reload failed", zap.String("file", config.ConfigFileUsed()), zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}
		logger.Info("Configuration is valid; restart to apply changes",
			zap.String("file", config.ConfigFileUsed()))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		stopBackground()
		_ = db.Close()
		return errwrap.WrapInternal(ctx, err, "failed to listen on "+addr)
	}
	hm.MarkStarted()

	errChan := make(chan error, 2)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		stopBackground()
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	// Serve returned after a graceful Shutdown; wait for the remaining handlers.
	<-flushed
	return nil
}

// serveOverrides applies --host and --port when they were given.
func serveOverrides(cmd *cobra.Command) map[string]any {
	values := map[string]any{}
	if cmd.Flags().Changed("host") {
		values["host"] = serverHost
	}
	if cmd.Flags().Changed("port") {
		values["port"] = serverPort
	}
	if len(values) == 0 {
		return nil
	}
	return map[string]any{"server": values}
}

// purgeSessions deletes expired admin sessions every interval.
func purgeSessions(ctx context.Context, db *store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.PurgeExpiredSessions(ctx)
			if err != nil {
				if ctx.Err() == nil && observability.ServerLogger != nil {
					observability.ServerLogger.Warn("Session purge failed", zap.Error(err))
				}
				continue
			}
			if n > 0 && observability.ServerLogger != nil {
				observability.ServerLogger.Debug("Expired sessions purged", zap.Int64("count", n))
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")
}
