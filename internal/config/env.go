package config

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// providerEnvKey splits what follows PREFIX_AILINK_PROVIDERS_ into the
// provider id and the field. The id is matched lazily so that
// BACKUP_OPENAI_BASE_URL yields id BACKUP_OPENAI and field BASE_URL.
var providerEnvKey = regexp.MustCompile(
	`^([A-Z0-9_]+?)_(ENABLED|AI_PROVIDER|SELECTION_POLICY|BASE_URL|ROLES|MODELS_([A-Z0-9_]+)|CREDENTIALS_([0-9]+)_([A-Z0-9_]+))$`)

// ailinkEnvOverrides collects PREFIX_AILINK_PROVIDERS_<ID>_<FIELD> and
// PREFIX_AILINK_ROUTING_<ROLE> variables into a config map. Provider ids and
// roles are lower-cased with underscores turned into dashes. It returns nil
// when no such variable is set.
func ailinkEnvOverrides(prefix string, environ []string) map[string]any {
	providersPrefix := prefix + "AILINK_PROVIDERS_"
	routingPrefix := prefix + "AILINK_ROUTING_"

	providers := map[string]map[string]any{}
	creds := map[string]map[int]map[string]any{}
	routing := map[string]any{}

	provider := func(id string) map[string]any {
		if providers[id] == nil {
			providers[id] = map[string]any{}
		}
		return providers[id]
	}

	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			continue
		}

		if role, ok := strings.CutPrefix(key, routingPrefix); ok {
			if role = dashed(role); role != "" {
				routing[role] = value
			}
			continue
		}
		rest, ok := strings.CutPrefix(key, providersPrefix)
		if !ok {
			continue
		}
		m := providerEnvKey.FindStringSubmatch(rest)
		if m == nil {
			continue
		}
		id := dashed(m[1])
		p := provider(id)

		switch field := m[2]; {
		case field == "ENABLED":
			p["enabled"] = strings.EqualFold(value, "true")
		case field == "AI_PROVIDER", field == "SELECTION_POLICY":
			p[strings.ToLower(field)] = strings.ToLower(value)
		case field == "BASE_URL":
			p["base_url"] = value
		case field == "ROLES":
			p["roles"] = strings.Split(value, ",")
		case m[3] != "":
			models, _ := p["models"].(map[string]any)
			if models == nil {
				models = map[string]any{}
				p["models"] = models
			}
			models[strings.ToLower(m[3])] = value
		default:
			idx, err := strconv.Atoi(m[4])
			if err != nil {
				continue
			}
			if creds[id] == nil {
				creds[id] = map[int]map[string]any{}
			}
			if creds[id][idx] == nil {
				creds[id][idx] = map[string]any{}
			}
			creds[id][idx][strings.ToLower(m[5])] = credentialValue(m[5], value)
		}
	}

	for id, byIndex := range creds {
		provider(id)["credentials"] = denseCredentials(byIndex)
	}
	if len(providers) == 0 && len(routing) == 0 {
		return nil
	}

	section := map[string]any{}
	if len(providers) > 0 {
		ps := make(map[string]any, len(providers))
		for id, p := range providers {
			ps[id] = p
		}
		section["providers"] = ps
	}
	if len(routing) > 0 {
		section["routing"] = routing
	}
	return map[string]any{"ailink": section}
}

func credentialValue(field, value string) any {
	switch field {
	case "ENABLED":
		return strings.EqualFold(value, "true")
	case "PRIORITY":
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return value
}

// denseCredentials fills index gaps with empty entries so positions match
// the variable names.
func denseCredentials(byIndex map[int]map[string]any) []any {
	indexes := make([]int, 0, len(byIndex))
	for i := range byIndex {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	out := make([]any, indexes[len(indexes)-1]+1)
	for i := range out {
		if c, ok := byIndex[i]; ok {
			out[i] = c
		} else {
			out[i] = map[string]any{}
		}
	}
	return out
}

func dashed(raw string) string {
	parts := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool { return r == '_' })
	return strings.Join(parts, "-")
}
