// Package observability owns the process-wide loggers and the telemetry
// system behind /metrics.
package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger writes human-readable lines for subcommands.
	CLILogger *logging.Logger
	// ServerLogger writes structured entries while serving.
	ServerLogger *logging.Logger
)

var severities = map[string]string{
	"trace":   "TRACE",
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// InitCLILogger installs CLILogger. There is nowhere to report a failure yet,
// so it exits the process instead of returning an error.
func InitCLILogger(service string, verbose bool) {
	logger, err := logging.NewCLI(service)
	if err != nil {
		fatalSetup("Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

type ServerLoggerOptions struct {
	Service     string
	Level       string // trace, debug, info, warn or error
	Profile     string // SIMPLE, STRUCTURED or ENTERPRISE
	Namespace   string
	Environment string
}

// InitServerLogger replaces ServerLogger.
func InitServerLogger(opts ServerLoggerOptions) error {
	logger, err := logging.New(serverLoggerConfig(opts))
	if err != nil {
		return fmt.Errorf("server logger: %w", err)
	}
	ServerLogger = logger
	return nil
}

// serverLoggerConfig maps options onto a gofulmen config. SIMPLE writes plain
// console lines; the other profiles write JSON with correlation IDs.
func serverLoggerConfig(opts ServerLoggerOptions) *logging.LoggerConfig {
	simple := strings.EqualFold(strings.TrimSpace(opts.Profile), "SIMPLE")

	cfg := &logging.LoggerConfig{
		Profile:          logging.ProfileStructured,
		DefaultLevel:     parseLogLevel(opts.Level),
		Service:          opts.Service,
		Environment:      opts.Environment,
		StaticFields:     map[string]any{},
		EnableCaller:     true,
		EnableStacktrace: !simple,
		Sinks: []logging.SinkConfig{{
			Type:    "console",
			Format:  "json",
			Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
		}},
	}
	if cfg.Environment == "" {
		cfg.Environment = "production"
	}
	if opts.Namespace != "" {
		cfg.StaticFields["namespace"] = opts.Namespace
	}

	if simple {
		cfg.Profile = logging.ProfileSimple
		cfg.Sinks[0].Format = "console"
		return cfg
	}
	cfg.Middleware = []logging.MiddlewareConfig{{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}}}
	return cfg
}

func parseLogLevel(level string) string {
	if sev, ok := severities[strings.ToLower(strings.TrimSpace(level))]; ok {
		return sev
	}
	return "INFO"
}

func fatalSetup(msg string, err error) {
	code := foundry.ExitConfigInvalid
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	}
	os.Exit(int(code))
}
