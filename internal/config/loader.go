// Package config resolves kundli's settings from, in rising precedence:
// built-in defaults, a YAML file, .env plus KUNDLI_* variables, and runtime
// overrides from flags.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/kundliinsight/kundli/internal/ailink"
	"github.com/kundliinsight/kundli/internal/appid"
)

var (
	configMu    sync.RWMutex
	current     *Config
	appIdentity *appidentity.Identity

	explicitConfigFile string
	dotEnvFile         = ".env"
)

// SetConfigFile pins the file Load reads (the --config flag). A pinned file
// must exist; discovered ones are optional.
func SetConfigFile(path string) {
	configMu.Lock()
	defer configMu.Unlock()
	explicitConfigFile = strings.TrimSpace(path)
}

// SetDotEnvFile picks the .env file; "" turns .env loading off.
func SetDotEnvFile(path string) {
	configMu.Lock()
	defer configMu.Unlock()
	dotEnvFile = strings.TrimSpace(path)
}

// GetConfig returns the result of the last successful Load.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return current
}

// Load resolves every layer, validates the result and makes it current.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if appIdentity == nil {
		identity, err := appid.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load app identity: %w", err)
		}
		appIdentity = identity
	}
	prefix := appid.EnvPrefix(appIdentity)

	configMu.RLock()
	file, envFile := explicitConfigFile, dotEnvFile
	configMu.RUnlock()

	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	v, err := newViper(prefix)
	if err != nil {
		return nil, err
	}
	if err := readConfigFile(v, file); err != nil {
		return nil, err
	}
	// Provider maps cannot be reached through AutomaticEnv.
	if dyn := ailinkEnvOverrides(prefix, os.Environ()); dyn != nil {
		if err := v.MergeConfigMap(dyn); err != nil {
			return nil, fmt.Errorf("failed to merge environment overrides: %w", err)
		}
	}
	for _, layer := range overrides {
		for key, value := range flatten("", layer) {
			v.Set(key, value)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if strings.TrimSpace(cfg.Uploads.Dir) == "" {
		cfg.Uploads.Dir = DefaultUploadsDir()
	}
	applyOpenAIKeyShortcut(prefix, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	current = cfg
	configMu.Unlock()
	return cfg, nil
}

func newViper(prefix string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases(prefix) {
		canonical := prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, canonical}, aliases...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	checks := []struct {
		bad bool
		msg string
	}{
		{c.Server.Port < 0 || c.Server.Port > 65535, fmt.Sprintf("server.port out of range: %d", c.Server.Port)},
		{c.Server.MaxBodyBytes <= 0, "server.max_body_bytes must be positive"},
		{c.RateLimit.MaxRequests <= 0, "rate_limit.max_requests must be positive"},
		{c.RateLimit.Window <= 0, "rate_limit.window must be positive"},
		{c.Guidance.Temperature < 0 || c.Guidance.Temperature > 2, fmt.Sprintf("guidance.temperature out of range: %v", c.Guidance.Temperature)},
		{!strings.EqualFold(strings.TrimSpace(c.Store.Driver), "libsql") && strings.TrimSpace(c.Store.Driver) != "", fmt.Sprintf("unsupported store.driver %q", c.Store.Driver)},
	}
	var errs []error
	for _, check := range checks {
		if check.bad {
			errs = append(errs, errors.New(check.msg))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// applyOpenAIKeyShortcut adds KUNDLI_OPENAI_API_KEY, or failing that
// OPENAI_API_KEY, as a credential on the default provider unless it already
// has an enabled key.
func applyOpenAIKeyShortcut(prefix string, cfg *Config) {
	key := firstEnv(prefix+"OPENAI_API_KEY", "OPENAI_API_KEY")
	if key == "" {
		return
	}
	id := strings.TrimSpace(cfg.AILink.DefaultProvider)
	if id == "" {
		id = "openai"
		cfg.AILink.DefaultProvider = id
	}
	if cfg.AILink.Providers == nil {
		cfg.AILink.Providers = map[string]ailink.ProviderInstanceConfig{}
	}
	provider, ok := cfg.AILink.Providers[id]
	if !ok {
		provider = ailink.ProviderInstanceConfig{Enabled: true, AIProvider: "openai"}
	}
	for _, cred := range provider.Credentials {
		if cred.Enabled && strings.TrimSpace(cred.APIKey) != "" {
			return
		}
	}
	provider.Credentials = append(provider.Credentials, ailink.CredentialConfig{Enabled: true, Label: "env", APIKey: key})
	cfg.AILink.Providers[id] = provider
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func flatten(prefix string, in map[string]any) map[string]any {
	out := map[string]any{}
	for key, value := range in {
		if prefix != "" {
			key = prefix + "." + key
		}
		nested, ok := value.(map[string]any)
		if !ok {
			out[key] = value
			continue
		}
		for k, v := range flatten(key, nested) {
			out[k] = v
		}
	}
	return out
}
