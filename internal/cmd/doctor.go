package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kundliinsight/kundli/internal/ailink"
	"github.com/kundliinsight/kundli/internal/ailink/driver/openai"
	"github.com/kundliinsight/kundli/internal/ailink/prompt"
	"github.com/kundliinsight/kundli/internal/appid"
	"github.com/kundliinsight/kundli/internal/config"
	"github.com/kundliinsight/kundli/internal/observability"
)

type checkStatus int

const (
	checkOK checkStatus = iota
	checkWarn
	checkFail
)

func (s checkStatus) String() string {
	return [...]string{"ok", "warn", "FAIL"}[s]
}

type checkResult struct {
	status checkStatus
	detail string
	err    error
}

func passed(format string, args ...any) checkResult {
	return checkResult{status: checkOK, detail: fmt.Sprintf(format, args...)}
}

func warned(err error, format string, args ...any) checkResult {
	return checkResult{status: checkWarn, detail: fmt.Sprintf(format, args...), err: err}
}

func failed(err error, format string, args ...any) checkResult {
	return checkResult{status: checkFail, detail: fmt.Sprintf(format, args...), err: err}
}

// doctorEnv is what the checks share. cfg is nil when loading failed.
type doctorEnv struct {
	app    string
	cfg    *config.Config
	cfgErr error
}

type doctorCheck struct {
	name string
	run  func(ctx context.Context, env *doctorEnv) checkResult
}

var doctorChecks = []doctorCheck{
	{"fulmen libraries", checkLibraries},
	{"config", checkConfigFile},
	{"database", checkDatabase},
	{"admin account", checkAdmins},
	{"uploads", checkUploads},
	{"guidance generation", checkGeneration},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the installation and suggest fixes for common issues.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, app := appid.Names(GetAppIdentity())
		env := &doctorEnv{app: app}
		env.cfg, env.cfgErr = loadConfig(cmd.Context())

		results := make([]checkResult, len(doctorChecks))
		healthy := true
		for i, check := range doctorChecks {
			results[i] = check.run(cmd.Context(), env)
			logCheck(check.name, results[i])
			healthy = healthy && results[i].status == checkOK
		}

		renderChecks(cmd.OutOrStdout(), results)
		if healthy {
			fmt.Fprintf(cmd.OutOrStdout(), "\nAll checks passed. %s %s/%s is healthy.\n", app, runtime.GOOS, runtime.GOARCH)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "\nSome checks need attention; see the details above.")
		}
		return nil
	},
}

func logCheck(name string, res checkResult) {
	log := observability.CLILogger
	if log == nil {
		return
	}
	fields := []zap.Field{zap.String("check", name), zap.String("detail", res.detail)}
	if res.err != nil {
		fields = append(fields, zap.Error(res.err))
	}
	switch res.status {
	case checkOK:
		log.Debug("Doctor check passed", fields...)
	case checkWarn:
		log.Warn("Doctor check warning", fields...)
	default:
		log.Error("Doctor check failed", fields...)
	}
}

func renderChecks(w io.Writer, results []checkResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Check", "Status", "Detail"})
	for i, res := range results {
		tw.AppendRow(table.Row{i + 1, doctorChecks[i].name, res.status, res.detail})
	}
	tw.Render()
}

func checkLibraries(context.Context, *doctorEnv) checkResult {
	v := crucible.GetVersion()
	if v.Crucible == "" || v.Gofulmen == "" {
		return failed(nil, "version information unavailable")
	}
	return passed("gofulmen v%s, crucible v%s", v.Gofulmen, v.Crucible)
}

func checkConfigFile(_ context.Context, env *doctorEnv) checkResult {
	if env.cfgErr != nil {
		return failed(env.cfgErr, "load failed; later checks skipped")
	}
	if used := config.ConfigFileUsed(); used != "" {
		return passed("%s", used)
	}
	return passed("defaults and environment only ('%s doctor init' writes %s)", env.app, config.DefaultConfigPath())
}

func checkDatabase(_ context.Context, env *doctorEnv) checkResult {
	if env.cfg == nil {
		return failed(nil, "config not loaded")
	}
	if env.cfg.Store.URL != "" {
		return passed("%s (remote)", redactURL(env.cfg.Store.URL))
	}
	path := localStorePath(env.cfg)
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return passed("%s (%s)", path, formatFileSize(info.Size()))
	case os.IsNotExist(err):
		return passed("%s (created on first '%s migrate' or serve)", path, env.app)
	default:
		return failed(err, "%s", path)
	}
}

func checkAdmins(ctx context.Context, env *doctorEnv) checkResult {
	if env.cfg == nil {
		return failed(nil, "config not loaded")
	}
	db, err := openStore(ctx, env.cfg)
	if err != nil {
		return failed(err, "cannot open store")
	}
	defer func() { _ = db.Close() }()

	n, err := db.CountAdmins(ctx)
	switch {
	case err != nil:
		return failed(err, "cannot count admins")
	case n == 0:
		return warned(nil, "none yet (open /setup or run '%s admin create')", env.app)
	}
	return passed("%d admin(s)", n)
}

func checkUploads(_ context.Context, env *doctorEnv) checkResult {
	if env.cfg == nil {
		return failed(nil, "config not loaded")
	}
	if err := checkWritableDir(env.cfg.Uploads.Dir); err != nil {
		return failed(err, "%s not writable", env.cfg.Uploads.Dir)
	}
	return passed("%s", env.cfg.Uploads.Dir)
}

func checkGeneration(_ context.Context, env *doctorEnv) checkResult {
	if env.cfg == nil {
		return failed(nil, "config not loaded")
	}
	if _, err := prompt.RegistryWithOverrides(env.cfg.AILink.PromptsDir); err != nil {
		return failed(err, "prompts invalid")
	}
	if err := ailink.NewService(env.cfg.AILink).Ready(); err != nil {
		return warned(err, "not configured; readings fail until OPENAI_API_KEY is set or '%s doctor init --api-key prompt' runs", env.app)
	}
	return passed("provider %s", env.cfg.AILink.DefaultProvider)
}

var doctorOpts struct {
	force  bool
	apiKey string

	resetConfig bool
	resetData   bool
	resetAll    bool
}

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath()
		if path == "" {
			return fmt.Errorf("config path not resolved")
		}
		if fileExists(path) && !doctorOpts.force {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}

		key := strings.TrimSpace(doctorOpts.apiKey)
		if strings.EqualFold(key, "prompt") {
			var err error
			if key, err = promptForValue(cmd.OutOrStdout(), cmd.InOrStdin(), "Enter OpenAI API key (leave blank to skip): "); err != nil {
				return err
			}
		}

		body, err := buildInitConfig(key)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		// keys stay private to the owner
		mode := os.FileMode(0o644)
		if key != "" {
			mode = 0o600
		}
		if err := os.WriteFile(path, body, mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		observability.CLILogger.Info("Config initialized", zap.String("path", path))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration paths and effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		tw := table.NewWriter()
		tw.SetOutputMirror(out)
		tw.SetStyle(table.StyleLight)

		path := config.DefaultConfigPath()
		tw.AppendRow(table.Row{"Config file", fmt.Sprintf("%s (%s)", path, existenceStatus(fileExists(path)))})
		if dir := config.DefaultDataDir(); dir != "" {
			tw.AppendRow(table.Row{"Data directory", fmt.Sprintf("%s (%s)", dir, existenceStatus(fileExists(dir)))})
		}

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			tw.Render()
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
			return nil
		}
		if cfg.Store.URL != "" {
			tw.AppendRow(table.Row{"Database", redactURL(cfg.Store.URL) + " (remote)"})
		} else {
			db := localStorePath(cfg)
			tw.AppendRow(table.Row{"Database", fmt.Sprintf("%s (%s)", db, existenceStatus(fileExists(db)))})
		}
		tw.AppendRow(table.Row{"Uploads", fmt.Sprintf("%s (%s)", cfg.Uploads.Dir, existenceStatus(fileExists(cfg.Uploads.Dir)))})
		tw.AppendSeparator()

		prefix := "KUNDLI_"
		if identity := GetAppIdentity(); identity != nil && identity.EnvPrefix != "" {
			prefix = identity.EnvPrefix
		}
		for _, name := range []string{"OPENAI_API_KEY", prefix + "OPENAI_API_KEY", prefix + "DB_URL", prefix + "DB_AUTH_TOKEN"} {
			tw.AppendRow(table.Row{name, envStatus(name)})
		}
		tw.AppendSeparator()

		tw.AppendRow(table.Row{"ailink.default_provider", cfg.AILink.DefaultProvider})
		tw.AppendRow(table.Row{"rate_limit", fmt.Sprintf("%d per %s", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)})
		tw.AppendRow(table.Row{"server.trust_proxy", cfg.Server.TrustProxy})
		tw.AppendRow(table.Row{"site.base_url", cfg.Site.BaseURL})
		tw.Render()
		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the user config file and/or the local database",
	RunE: func(cmd *cobra.Command, args []string) error {
		resetConfig := doctorOpts.resetConfig || doctorOpts.resetAll
		resetData := doctorOpts.resetData || doctorOpts.resetAll
		if !resetConfig && !resetData {
			return fmt.Errorf("specify --config, --data, or --all")
		}

		if resetConfig {
			if err := removeIfPresent("Config", config.DefaultConfigPath()); err != nil {
				return err
			}
		}
		if !resetData {
			return nil
		}
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Store.URL != "" {
			return fmt.Errorf("remote store configured; database reset is not supported")
		}
		return removeIfPresent("Database", localStorePath(cfg))
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath()
		if path == "" {
			return fmt.Errorf("config path not resolved")
		}
		if !fileExists(path) {
			return fmt.Errorf("config file not found: %s", path)
		}
		if _, err := loadConfig(cmd.Context()); err != nil {
			return err
		}
		observability.CLILogger.Info("Config is valid", zap.String("path", path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd, doctorConfigCmd, doctorResetCmd, doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorOpts.force, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorOpts.apiKey, "api-key", "", "OpenAI API key to store, or 'prompt' to enter it")

	doctorResetCmd.Flags().BoolVar(&doctorOpts.resetConfig, "config", false, "remove user config file")
	doctorResetCmd.Flags().BoolVar(&doctorOpts.resetData, "data", false, "remove local database (uploads are kept)")
	doctorResetCmd.Flags().BoolVar(&doctorOpts.resetAll, "all", false, "remove config and data")
}

func removeIfPresent(what, path string) error {
	if path == "" {
		observability.CLILogger.Warn(what + " path not resolved; skipped")
		return nil
	}
	switch err := os.Remove(path); {
	case err == nil:
		observability.CLILogger.Info(what+" removed", zap.String("path", path))
	case os.IsNotExist(err):
		observability.CLILogger.Info(what+" already removed", zap.String("path", path))
	default:
		return fmt.Errorf("remove %s: %w", strings.ToLower(what), err)
	}
	return nil
}

func formatFileSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d bytes", n)
	}
	size, unit := float64(n)/1024, 0
	for size >= 1024 && unit < 2 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, [...]string{"KB", "MB", "GB"}[unit])
}

type starterCredential struct {
	Label    string `yaml:"label"`
	Enabled  bool   `yaml:"enabled"`
	Priority int    `yaml:"priority"`
	APIKey   string `yaml:"api_key,omitempty"`
}

type starterProvider struct {
	Enabled     bool                `yaml:"enabled"`
	AIProvider  string              `yaml:"ai_provider"`
	BaseURL     string              `yaml:"base_url"`
	Models      map[string]string   `yaml:"models"`
	Credentials []starterCredential `yaml:"credentials"`
}

type starterConfig struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	Site struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"site"`
	RateLimit struct {
		MaxRequests int    `yaml:"max_requests"`
		Window      string `yaml:"window"`
	} `yaml:"rate_limit"`
	AILink struct {
		DefaultProvider string                     `yaml:"default_provider"`
		Providers       map[string]starterProvider `yaml:"providers"`
	} `yaml:"ailink"`
}

const starterHeader = `# kundli config, written by 'kundli doctor init'
# api_key may stay unset when OPENAI_API_KEY is exported.
# Set server.trust_proxy only behind a proxy that sets X-Forwarded-For.
`

func buildInitConfig(apiKey string) ([]byte, error) {
	var c starterConfig
	c.Server.Host, c.Server.Port = "localhost", 8080
	c.Site.BaseURL = "http://localhost:8080"
	c.RateLimit.MaxRequests, c.RateLimit.Window = 10, "10m"
	c.AILink.DefaultProvider = "openai"
	c.AILink.Providers = map[string]starterProvider{
		"openai": {
			Enabled:     true,
			AIProvider:  "openai",
			BaseURL:     openai.DefaultBaseURL,
			Models:      map[string]string{"default": "gpt-4o"},
			Credentials: []starterCredential{{Label: "default", Enabled: true, APIKey: strings.TrimSpace(apiKey)}},
		},
	}
	body, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode starter config: %w", err)
	}
	return append([]byte(starterHeader), body...), nil
}

func promptForValue(out io.Writer, in io.Reader, label string) (string, error) {
	if _, err := fmt.Fprint(out, label); err != nil {
		return "", err
	}
	value, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func localStorePath(cfg *config.Config) string {
	path := cfg.Store.Path
	if path == "" {
		path = config.DefaultStorePath()
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// checkWritableDir creates dir if needed and proves a file can be created in it.
func checkWritableDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	_ = probe.Close()
	return os.Remove(probe.Name())
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "set"
	}
	return "not set"
}
