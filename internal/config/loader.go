package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name searched for in the
// current and home directories.
const DefaultConfigFile = ".swiftguard"

// Environment variables that override file values.
const (
	EnvFactCheckAPIKey = "SWIFTGUARD_FACTCHECK_API_KEY"
	// EnvUpstreamKey is the upstream Fact Check Tools key.
	EnvUpstreamKey = "FACT_CHECK_API_KEY"
	// EnvExtensionKey is the key the proxy accepts from clients.
	EnvExtensionKey = "EXTENSION_API_KEY"
)

// Load builds a Config from defaults, the config file and the environment.
//
// An explicit path that does not exist is an error. Without one, a missing
// .swiftguard file just leaves the defaults in place.
func Load(configPath string) (*Config, error) {
	cfg := NewConfig()

	path := FindConfigFile(configPath)
	if path == "" && configPath != "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}
	if path != "" {
		if err := LoadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// LoadConfigFile overlays the YAML file at path onto cfg. Keys missing from
// the file keep their current values.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.ConfigFilePath = path
	return nil
}

// ApplyEnv overrides keys with the environment. getenv is os.Getenv outside
// tests. SWIFTGUARD_FACTCHECK_API_KEY wins over EXTENSION_API_KEY.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvExtensionKey); v != "" {
		c.FactCheckAPIKey = v
	}
	if v := getenv(EnvFactCheckAPIKey); v != "" {
		c.FactCheckAPIKey = v
	}
	if v := getenv(EnvUpstreamKey); v != "" {
		c.FactCheckUpstreamKey = v
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .swiftguard in the current directory
// 3. Look for .swiftguard in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
