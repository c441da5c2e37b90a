// Package cmd wires the kundli command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/ailink/driver"
	"github.com/kundliinsight/kundli/internal/appid"
	"github.com/kundliinsight/kundli/internal/config"
	"github.com/kundliinsight/kundli/internal/observability"
)

type buildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// persistent flags shared by every subcommand
var flags struct {
	config  string
	envFile string
	verbose bool
	trace   string
}

var (
	versionInfo buildInfo
	appIdentity *appidentity.Identity
)

// SetVersionInfo records the values stamped into the binary at link time.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo = buildInfo{Version: version, Commit: commit, BuildDate: buildDate}
}

// GetAppIdentity is nil until the identity has been loaded.
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

var rootCmd = &cobra.Command{
	Use:   filepath.Base(os.Args[0]),
	Short: "Personalized astrology guidance in Hindi, English and Marathi",
	Long: `Kundli serves personalized life guidance generated from birth details,
together with the small blog, contact form and admin area of the site.

Use the subcommands to run the server or manage its data.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Config loading must not emit metrics before serve installs a real system.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	// --help is rendered before OnInitialize runs.
	if identity, err := appid.Get(context.Background()); err == nil && identity != nil {
		setIdentity(identity)
	}
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "config file (default is $XDG_CONFIG_HOME/kundli/config.yaml)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file read before the environment (empty to skip)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	pf.StringVar(&flags.trace, "trace", "", "append provider requests and responses to an NDJSON file")
}

func setIdentity(identity *appidentity.Identity) {
	appIdentity = identity
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName)
	}
}

func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity from .fulmen/app.yaml", err)
	}
	setIdentity(identity)

	_, binaryName := appid.Names(identity)
	observability.InitCLILogger(binaryName, flags.verbose)

	config.SetConfigFile(flags.config)
	config.SetDotEnvFile(flags.envFile)

	if flags.trace == "" {
		return
	}
	// left open until exit
	if _, err := driver.EnableTracing(flags.trace); err != nil {
		observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		return
	}
	observability.CLILogger.Debug("Provider tracing enabled", zap.String("file", flags.trace))
}

// loadConfig resolves every configuration layer; --verbose forces debug logging.
func loadConfig(ctx context.Context, overrides ...map[string]any) (*config.Config, error) {
	if flags.verbose {
		overrides = append(overrides, map[string]any{"logging": map[string]any{"level": "debug"}})
	}
	cfg, err := config.Load(ctx, overrides...)
	if err != nil {
		return nil, err
	}
	if used := config.ConfigFileUsed(); used != "" && observability.CLILogger != nil {
		observability.CLILogger.Debug("Using config file", zap.String("path", used))
	}
	return cfg, nil
}
