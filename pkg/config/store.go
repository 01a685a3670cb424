package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save writes the configuration to path as YAML, creating parent
// directories as needed. The write is atomic: content goes to a temp file
// that is renamed into place, so a crash mid-write never leaves a truncated
// config behind.
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// SaveUserConfig writes the configuration to ~/.drover/config.yaml.
func SaveUserConfig(cfg *Config) (string, error) {
	path, err := UserConfigPath()
	if err != nil {
		return "", err
	}
	if err := Save(cfg, path); err != nil {
		return "", err
	}
	return path, nil
}
