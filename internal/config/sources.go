package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// loadDotEnv never overrides variables that are already set. A missing file
// is fine.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func readConfigFile(v *viper.Viper, explicit string) error {
	path := explicit
	if path == "" {
		if path = discoverConfigFile(); path == "" {
			return nil
		}
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// discoverConfigFile checks the XDG location, then ./config/config.yaml,
// then ./config.yaml.
func discoverConfigFile() string {
	candidates := []string{DefaultConfigPath(), filepath.Join("config", "config.yaml"), "config.yaml"}
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigFileUsed names the file Load reads, or "" for defaults and
// environment only.
func ConfigFileUsed() string {
	configMu.RLock()
	explicit := explicitConfigFile
	configMu.RUnlock()
	if explicit != "" {
		return explicit
	}
	return discoverConfigFile()
}
