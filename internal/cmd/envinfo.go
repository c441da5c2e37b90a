package cmd

import (
	"fmt"
	"net/url"
	"runtime"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/appid"
	"github.com/kundliinsight/kundli/internal/config"
	"github.com/kundliinsight/kundli/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display build, runtime and effective configuration details. Secrets are never printed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sections := buildSections()

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
		} else {
			sections = append(sections, configSections(cfg)...)
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), renderSections(sections))
		return err
	},
}

type infoSection struct {
	title string
	rows  [][2]string
}

func buildSections() []infoSection {
	_, name := appid.Names(GetAppIdentity())
	deps := crucible.GetVersion()
	return []infoSection{
		{"Application", [][2]string{
			{"Name", name},
			{"Version", versionInfo.Version},
			{"Commit", versionInfo.Commit},
			{"Built", versionInfo.BuildDate},
			{"Gofulmen", deps.Gofulmen},
			{"Crucible", deps.Crucible},
		}},
		{"Runtime", [][2]string{
			{"Go", runtime.Version()},
			{"Platform", runtime.GOOS + "/" + runtime.GOARCH},
			{"CPUs", strconv.Itoa(runtime.NumCPU())},
		}},
	}
}

func configSections(cfg *config.Config) []infoSection {
	configFile := config.ConfigFileUsed()
	if configFile == "" {
		configFile = config.DefaultConfigPath() + " (not found)"
	}
	db := cfg.Store.Path
	if cfg.Store.URL != "" {
		db = redactURL(cfg.Store.URL)
	}

	sections := []infoSection{
		{"Server", [][2]string{
			{"Config file", configFile},
			{"Listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)},
			{"Trust proxy", strconv.FormatBool(cfg.Server.TrustProxy)},
			{"Log level", cfg.Logging.Level + " (" + cfg.Logging.Profile + ")"},
			{"Metrics", metricsSummary(cfg.Metrics)},
			{"Database", cfg.Store.Driver + " " + db},
		}},
		{"Guidance", [][2]string{
			{"Model", cfg.Guidance.Model},
			{"Max tokens", strconv.Itoa(cfg.Guidance.MaxTokens)},
			{"Temperature", strconv.FormatFloat(cfg.Guidance.Temperature, 'f', 2, 64)},
			{"Timeout", cfg.Guidance.GenerationTimeout.String()},
			{"Rate limit", fmt.Sprintf("%d per %s", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)},
			{"Prompts dir", orDash(cfg.AILink.PromptsDir)},
		}},
		{"Site", [][2]string{
			{"Name", cfg.Site.Name},
			{"Base URL", cfg.Site.BaseURL},
			{"Uploads", cfg.Uploads.Dir + " (max " + formatFileSize(cfg.Uploads.MaxBytes) + ")"},
			{"Session TTL", cfg.Auth.SessionTTL.String()},
		}},
	}

	provider := strings.TrimSpace(cfg.AILink.DefaultProvider)
	rows := [][2]string{{"Default provider", orDash(provider)}, {"Timeout", cfg.AILink.DefaultTimeout.String()}}
	if p, ok := cfg.AILink.Providers[provider]; ok {
		keys := 0
		for _, c := range p.Credentials {
			if strings.TrimSpace(c.APIKey) != "" {
				keys++
			}
		}
		rows = append(rows,
			[2]string{"Driver", orDash(p.AIProvider)},
			[2]string{"Enabled", strconv.FormatBool(p.Enabled)},
			[2]string{"Base URL", orDash(p.BaseURL)},
			[2]string{"API keys set", strconv.Itoa(keys)},
		)
	}
	return append(sections, infoSection{"AI provider", rows})
}

func renderSections(sections []infoSection) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Kundli environment")
	for i, s := range sections {
		if i > 0 {
			t.AppendSeparator()
		}
		t.AppendRow(table.Row{strings.ToUpper(s.title), ""})
		for _, r := range s.rows {
			t.AppendRow(table.Row{"  " + r[0], r[1]})
		}
	}
	return t.Render()
}

func metricsSummary(m config.MetricsConfig) string {
	if !m.Enabled {
		return "disabled"
	}
	return "exporter port " + strconv.Itoa(m.Port) + ", proxied at /metrics"
}

// redactURL drops credentials and the query string (libsql auth tokens).
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable url)"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
