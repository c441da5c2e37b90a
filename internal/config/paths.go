package config

import (
	"path/filepath"
	"strings"

	gfconfig "github.com/fulmenhq/gofulmen/config"

	"github.com/kundliinsight/kundli/internal/appid"
)

// DefaultConfigPath is config.yaml in the XDG config dir, or "" when that
// cannot be resolved.
func DefaultConfigPath() string {
	name, _ := appid.Names(appIdentity)
	dir := gfconfig.GetAppConfigDir(name)
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

func DefaultDataDir() string {
	name, _ := appid.Names(appIdentity)
	return gfconfig.GetAppDataDir(name)
}

// DefaultStorePath is <data dir>/<binary>.db, falling back to the working
// directory.
func DefaultStorePath() string {
	_, binary := appid.Names(appIdentity)
	return inDataDir(binary+".db", "./"+binary+".db")
}

func DefaultUploadsDir() string {
	return inDataDir("uploads", "./uploads")
}

func inDataDir(name, fallback string) string {
	dir := DefaultDataDir()
	if strings.TrimSpace(dir) == "" {
		return fallback
	}
	return filepath.Join(dir, name)
}
