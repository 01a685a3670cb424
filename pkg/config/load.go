package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted for the API key, in order.
var apiKeyEnvVars = []string{"DROVER_API_KEY", "OPENAI_API_KEY"}

// Load resolves and loads the configuration.
//
// When path is non-empty that file is loaded and must exist. Otherwise the
// working directory's drover.yaml is tried, then ~/.drover/config.yaml, and
// if neither exists the defaults are used. In every case the API key is
// overlaid from the environment when not set in the file, and the result is
// validated.
func Load(path string) (*Config, error) {
	if path != "" {
		cfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		return finalize(cfg)
	}

	for _, candidate := range searchPaths() {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		cfg, err := LoadFromFile(candidate)
		if err != nil {
			return nil, err
		}
		return finalize(cfg)
	}

	return finalize(DefaultConfig())
}

// LoadFromFile reads a YAML or JSON config file, selected by extension.
// Fields absent from the file keep their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (use .yaml, .yml, or .json)", filepath.Ext(path))
	}

	return cfg, nil
}

// ResolvePath reports which config file Load would use for the given flag
// value, or empty when only defaults apply.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	for _, candidate := range searchPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func searchPaths() []string {
	paths := []string{DefaultFileName}
	if userPath, err := UserConfigPath(); err == nil {
		paths = append(paths, userPath)
	}
	return paths
}

func finalize(cfg *Config) (*Config, error) {
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays environment values onto the config. The file wins when
// it supplies a key explicitly.
func applyEnv(cfg *Config) {
	if cfg.Model.APIKey == "" {
		for _, name := range apiKeyEnvVars {
			if v := os.Getenv(name); v != "" {
				cfg.Model.APIKey = v
				break
			}
		}
	}
	if cfg.Model.BaseURL == "" {
		if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
			cfg.Model.BaseURL = v
		}
	}
}
