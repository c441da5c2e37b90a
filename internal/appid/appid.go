// Package appid resolves the application identity (binary name, env prefix,
// config name) with the embedded copy as fallback.
package appid

import (
	"context"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/kundliinsight/kundli/internal/assets/appidentity"
)

// Fallback values used when identity resolution fails entirely.
const (
	DefaultBinaryName = "kundli"
	DefaultEnvPrefix  = "KUNDLI_"
)

func init() {
	// Best-effort registration. FULMEN_APP_IDENTITY_PATH stays authoritative.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// EnvPrefix returns the identity's env prefix, always ending in "_".
func EnvPrefix(identity *appidentity.Identity) string {
	prefix := DefaultEnvPrefix
	if identity != nil && strings.TrimSpace(identity.EnvPrefix) != "" {
		prefix = strings.TrimSpace(identity.EnvPrefix)
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}

// Names returns the config and binary names, falling back to "kundli".
func Names(identity *appidentity.Identity) (configName, binaryName string) {
	configName, binaryName = DefaultBinaryName, DefaultBinaryName
	if identity == nil {
		return configName, binaryName
	}
	if strings.TrimSpace(identity.ConfigName) != "" {
		configName = identity.ConfigName
	}
	if strings.TrimSpace(identity.BinaryName) != "" {
		binaryName = identity.BinaryName
	}
	return configName, binaryName
}
