package ailink

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/kundliinsight/kundli/internal/ailink/driver"
	"github.com/kundliinsight/kundli/internal/ailink/driver/openai"
	"github.com/kundliinsight/kundli/internal/ailink/prompt"
)

// ErrCredentialMissing means the selected provider has no usable API key.
var ErrCredentialMissing = errors.New("ai provider credential not configured")

var errNoRegistry = errors.New("ailink registry not configured")

const policyRoundRobin = "round_robin"

// Registry maps a role onto a provider instance, one of its credentials and
// a model. Drivers are cached per provider and credential.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	drivers map[string]driver.Driver
	cursor  map[string]int
}

// ResolvedProvider is everything needed to send one request.
type ResolvedProvider struct {
	ProviderID string
	Credential CredentialConfig
	Driver     driver.Driver
	Model      string
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:     cfg,
		drivers: map[string]driver.Driver{},
		cursor:  map[string]int{},
	}
}

func (r *Registry) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.cfg
}

func (r *Registry) Resolve(role string, def *prompt.Prompt, model string) (*ResolvedProvider, error) {
	id, provider, err := r.resolveProvider(role)
	if err != nil {
		return nil, err
	}
	cred, err := r.selectCredential(id, provider)
	if err != nil {
		return nil, err
	}
	if model, err = resolveModel(provider, def, model); err != nil {
		return nil, err
	}
	drv, err := r.driverFor(id, provider, cred)
	if err != nil {
		return nil, err
	}
	return &ResolvedProvider{ProviderID: id, Credential: cred, Driver: drv, Model: model}, nil
}

// resolveProvider tries, in order: explicit routing for role, an enabled
// provider declaring role, default_provider, and the only enabled provider.
func (r *Registry) resolveProvider(role string) (string, ProviderInstanceConfig, error) {
	if r == nil {
		return "", ProviderInstanceConfig{}, errNoRegistry
	}
	role = strings.TrimSpace(role)

	if id := strings.TrimSpace(r.cfg.Routing[role]); role != "" && id != "" {
		return r.enabledProvider(id, role)
	}
	if role != "" {
		for id, p := range r.cfg.Providers {
			if p.Enabled && lo.ContainsBy(p.Roles, func(v string) bool { return strings.EqualFold(strings.TrimSpace(v), role) }) {
				return id, p, nil
			}
		}
	}
	if id := strings.TrimSpace(r.cfg.DefaultProvider); id != "" {
		return r.enabledProvider(id, "default")
	}

	enabled := lo.PickBy(r.cfg.Providers, func(_ string, p ProviderInstanceConfig) bool { return p.Enabled })
	switch len(enabled) {
	case 0:
		return "", ProviderInstanceConfig{}, errors.New("no enabled providers configured")
	case 1:
		for id, p := range enabled {
			return id, p, nil
		}
	}
	return "", ProviderInstanceConfig{}, errors.New("no provider routing configured")
}

func (r *Registry) enabledProvider(id, via string) (string, ProviderInstanceConfig, error) {
	p, ok := r.cfg.Providers[id]
	switch {
	case !ok:
		return "", p, fmt.Errorf("%s provider %q not configured", via, id)
	case !p.Enabled:
		return "", p, fmt.Errorf("%s provider %q is disabled", via, id)
	}
	return id, p, nil
}

// selectCredential keeps credentials with a key (an unlabeled entry counts
// as enabled), narrows to the highest priority and picks the first of those,
// or rotates through them under round_robin.
func (r *Registry) selectCredential(id string, p ProviderInstanceConfig) (CredentialConfig, error) {
	usable := lo.Filter(p.Credentials, func(c CredentialConfig, _ int) bool {
		if !c.Enabled && strings.TrimSpace(c.Label) != "" {
			return false
		}
		return strings.TrimSpace(c.APIKey) != ""
	})
	if len(usable) == 0 {
		return CredentialConfig{}, fmt.Errorf("provider %q: %w", id, ErrCredentialMissing)
	}

	top := lo.Max(lo.Map(usable, func(c CredentialConfig, _ int) int { return c.Priority }))
	group := lo.Filter(usable, func(c CredentialConfig, _ int) bool { return c.Priority == top })

	if !strings.EqualFold(strings.TrimSpace(p.SelectionPolicy), policyRoundRobin) || len(group) == 1 {
		return group[0], nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%s:%d", id, top)
	n := r.cursor[key]
	r.cursor[key] = n + 1
	return group[n%len(group)], nil
}

func (r *Registry) driverFor(id string, p ProviderInstanceConfig, cred CredentialConfig) (driver.Driver, error) {
	key := id + ":" + lo.Ternary(strings.TrimSpace(cred.Label) != "", strings.TrimSpace(cred.Label), fmt.Sprintf("p%d", cred.Priority))

	r.mu.Lock()
	defer r.mu.Unlock()
	if drv, ok := r.drivers[key]; ok {
		return drv, nil
	}

	kind := strings.ToLower(strings.TrimSpace(p.AIProvider))
	if kind != "" && kind != "openai" {
		return nil, fmt.Errorf("unsupported ai_provider %q for provider %q", kind, id)
	}
	client := openai.NewClient(p.BaseURL, cred.APIKey)
	client.Timeout = r.cfg.DefaultTimeout
	r.drivers[key] = client
	return client, nil
}

// resolveModel prefers the explicit override, then the provider's default
// model, then the prompt's preferred_models hint.
func resolveModel(p ProviderInstanceConfig, def *prompt.Prompt, override string) (string, error) {
	candidates := append([]string{override, p.Models["default"]}, hintedModels(def)...)
	for _, m := range candidates {
		if m = strings.TrimSpace(m); m != "" {
			return m, nil
		}
	}
	return "", errors.New("model not configured")
}

func hintedModels(def *prompt.Prompt) []string {
	if def == nil {
		return nil
	}
	switch v := def.Config.ProviderHints["preferred_models"].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		return lo.FilterMap(v, func(item any, _ int) (string, bool) {
			s, ok := item.(string)
			return s, ok
		})
	}
	return nil
}
