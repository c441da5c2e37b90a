package config

import (
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	// Must outlive guidance.generation_timeout.
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.max_body_bytes", 64<<10)
	v.SetDefault("server.signal_token", "")

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("ailink.default_provider", "openai")
	v.SetDefault("ailink.default_timeout", 60*time.Second)
	v.SetDefault("ailink.prompts_dir", "")
	v.SetDefault("ailink.trace_file", "")
	v.SetDefault("ailink.providers.openai.enabled", true)
	v.SetDefault("ailink.providers.openai.ai_provider", "openai")
	v.SetDefault("ailink.providers.openai.selection_policy", "priority")
	v.SetDefault("ailink.providers.openai.models.default", "gpt-4o")

	v.SetDefault("guidance.model", "")
	v.SetDefault("guidance.max_tokens", 4000)
	v.SetDefault("guidance.temperature", 0.7)
	v.SetDefault("guidance.generation_timeout", 45*time.Second)

	v.SetDefault("rate_limit.max_requests", 10)
	v.SetDefault("rate_limit.window", 10*time.Minute)
	v.SetDefault("rate_limit.sweep_interval", 5*time.Minute)

	v.SetDefault("auth.session_ttl", 7*24*time.Hour)
	v.SetDefault("auth.cookie_name", "kundli_session")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.login_rate", 0.2)
	v.SetDefault("auth.login_burst", 5)

	v.SetDefault("site.name", "Kundli Insight")
	v.SetDefault("site.description", "Personalized Vedic astrology life guidance in Hindi, English and Marathi.")
	v.SetDefault("site.keywords", []string{"kundli", "astrology", "horoscope", "jyotish", "कुंडली", "ज्योतिष"})
	v.SetDefault("site.base_url", "http://localhost:8080")

	v.SetDefault("uploads.dir", "")
	v.SetDefault("uploads.max_bytes", 5<<20)
	v.SetDefault("uploads.max_dimension", 1600)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "SIMPLE")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)
}

// envAliases are accepted in addition to the automatic PREFIX_SECTION_KEY
// names. The short forms predate the sectioned layout.
func envAliases(prefix string) map[string][]string {
	return map[string][]string{
		"server.host":         {prefix + "HOST"},
		"server.port":         {prefix + "PORT", "PORT"},
		"logging.level":       {prefix + "LOG_LEVEL"},
		"logging.profile":     {prefix + "LOG_PROFILE"},
		"store.driver":        {prefix + "DB_DRIVER"},
		"store.path":          {prefix + "DB_PATH"},
		"store.url":           {prefix + "DB_URL"},
		"store.auth_token":    {prefix + "DB_AUTH_TOKEN"},
		"guidance.model":      {prefix + "OPENAI_MODEL"},
		"server.signal_token": {prefix + "ADMIN_TOKEN"},
	}
}
