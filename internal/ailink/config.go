package ailink

import "time"

// Config is the ailink section of the kundli config file.
//
//	ailink:
//	  default_provider: openai
//	  providers:
//	    openai:
//	      enabled: true
//	      models: {default: gpt-4o}
//	      credentials:
//	        - {label: primary, api_key: sk-..., priority: 10}
type Config struct {
	DefaultProvider string        `mapstructure:"default_provider"`
	DefaultTimeout  time.Duration `mapstructure:"default_timeout"`

	// PromptsDir holds markdown prompts that replace embedded ones by slug.
	PromptsDir string `mapstructure:"prompts_dir"`
	TraceFile  string `mapstructure:"trace_file"`

	Providers map[string]ProviderInstanceConfig `mapstructure:"providers"`
	// Routing pins a role such as "guidance" to a provider id.
	Routing map[string]string `mapstructure:"routing"`
}

type ProviderInstanceConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// AIProvider names the driver; empty means openai, the only one built in.
	AIProvider string `mapstructure:"ai_provider"`
	// SelectionPolicy is "priority" (default) or "round_robin".
	SelectionPolicy string            `mapstructure:"selection_policy"`
	BaseURL         string            `mapstructure:"base_url"`
	Models          map[string]string `mapstructure:"models"`
	Roles           []string          `mapstructure:"roles"`

	Credentials []CredentialConfig `mapstructure:"credentials"`
}

type CredentialConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Label    string `mapstructure:"label"`
	APIKey   string `mapstructure:"api_key"`
	Priority int    `mapstructure:"priority"`
}
