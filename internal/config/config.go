// Package config loads the gitswitch application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultHost is the code-hosting domain gitswitch integrates with.
	DefaultHost = "github.com"
	// DefaultAPIBaseURL is the host's REST endpoint.
	DefaultAPIBaseURL = "https://api.github.com"
	// DefaultKeyringService is the OS keyring service name for stored tokens.
	DefaultKeyringService = "gitswitch"

	configDir  = ".gitswitch"
	configFile = "config.yaml"
)

// Config holds the application-level settings. All fields have working
// defaults; the file and environment only override.
type Config struct {
	Host           string `yaml:"host"`
	APIBaseURL     string `yaml:"api_base_url"`
	KeyringService string `yaml:"keyring_service"`
}

// Load resolves configuration with the following precedence:
//  1. Environment variables (GITSWITCH_HOST, GITSWITCH_API_URL)
//  2. ~/.gitswitch/config.yaml
//  3. Built-in defaults
func Load() (*Config, error) {
	cfg := &Config{
		Host:           DefaultHost,
		APIBaseURL:     DefaultAPIBaseURL,
		KeyringService: DefaultKeyringService,
	}

	if path, err := Path(); err == nil {
		if data, err := os.ReadFile(path); err == nil {
			var fileCfg Config
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
			if fileCfg.Host != "" {
				cfg.Host = fileCfg.Host
			}
			if fileCfg.APIBaseURL != "" {
				cfg.APIBaseURL = fileCfg.APIBaseURL
			}
			if fileCfg.KeyringService != "" {
				cfg.KeyringService = fileCfg.KeyringService
			}
		}
	}

	if v := os.Getenv("GITSWITCH_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("GITSWITCH_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}

	return cfg, nil
}

// Path returns the location of the user-level config file.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, configDir, configFile), nil
}
