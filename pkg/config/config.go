// Package config defines Drover's runtime configuration: the model used for
// snippet generation, the browser session options, and the automation loop
// settings. Configuration is loaded from a YAML or JSON file, overlaid with
// environment variables, and validated before use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultFileName is the config file Drover looks for in the working directory.
	DefaultFileName = "drover.yaml"

	// DefaultModelName is the model used when none is configured.
	DefaultModelName = "gpt-4o"

	// configDirName is the per-user directory under the home dir.
	configDirName = ".drover"
)

// Config is the complete Drover configuration.
type Config struct {
	Model      ModelConfig      `yaml:"model" json:"model"`
	Browser    BrowserConfig    `yaml:"browser" json:"browser"`
	Automation AutomationConfig `yaml:"automation" json:"automation"`
}

// ModelConfig configures the AI provider used for snippet generation.
type ModelConfig struct {
	// Provider selects the AI backend. Currently only "openai" (and
	// OpenAI-compatible endpoints via BaseURL) is supported.
	Provider string `yaml:"provider" json:"provider"`

	// Name is the model identifier, e.g. "gpt-4o".
	Name string `yaml:"name" json:"name"`

	// APIKey authenticates against the provider. Usually supplied via the
	// DROVER_API_KEY or OPENAI_API_KEY environment variable instead.
	APIKey string `yaml:"api_key" json:"api_key"`

	// BaseURL overrides the provider endpoint for compatible APIs.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Temperature for completions. Snippet generation wants determinism,
	// so the default is 0.
	Temperature float64 `yaml:"temperature" json:"temperature"`

	// MaxRetries is the provider-internal retry budget for transient
	// failures (rate limits, 5xx, timeouts).
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// RetryDelay is the initial provider backoff in seconds; it doubles
	// per retry.
	RetryDelay float64 `yaml:"retry_delay" json:"retry_delay"`
}

// BrowserConfig configures the Playwright browser session.
type BrowserConfig struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool `yaml:"headless" json:"headless"`

	// ViewportWidth and ViewportHeight set the initial viewport size.
	ViewportWidth  int `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height" json:"viewport_height"`

	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	// SlowMo delays each browser operation by the given milliseconds.
	// Useful when watching a headful run.
	SlowMo float64 `yaml:"slow_mo" json:"slow_mo"`

	// Timeout is the default timeout for browser operations in milliseconds.
	Timeout float64 `yaml:"timeout" json:"timeout"`
}

// AutomationConfig configures the action execution loop.
type AutomationConfig struct {
	// MaxAttempts is the per-action attempt budget (generation + execution).
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// RetryDelay is the fixed wait between attempts, in seconds.
	RetryDelay float64 `yaml:"retry_delay" json:"retry_delay"`

	// ActionDelay is the wait between consecutive actions, in seconds.
	ActionDelay float64 `yaml:"action_delay" json:"action_delay"`

	// ScreenshotOnError captures a screenshot when an action terminally fails.
	ScreenshotOnError bool `yaml:"screenshot_on_error" json:"screenshot_on_error"`

	// ScreenshotDir is where error screenshots are written.
	ScreenshotDir string `yaml:"screenshot_dir" json:"screenshot_dir"`

	// ContinueOnFailure keeps the run going past a failed action.
	ContinueOnFailure bool `yaml:"continue_on_failure" json:"continue_on_failure"`

	// CacheEnabled reuses generated snippets for identical requests within
	// a run. The cache is in-memory only and unbounded.
	CacheEnabled bool `yaml:"cache_enabled" json:"cache_enabled"`

	// ArtifactsEnabled writes a JSON report and markdown summary after a run.
	ArtifactsEnabled bool `yaml:"artifacts_enabled" json:"artifacts_enabled"`

	// ArtifactsDir is where run artifacts are written.
	ArtifactsDir string `yaml:"artifacts_dir" json:"artifacts_dir"`
}

// DefaultConfig returns a configuration suitable for most runs.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "openai",
			Name:        DefaultModelName,
			Temperature: 0,
			MaxRetries:  3,
			RetryDelay:  2.0,
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
			Timeout:        30000,
		},
		Automation: AutomationConfig{
			MaxAttempts:       3,
			RetryDelay:        1.0,
			ActionDelay:       0.5,
			ScreenshotOnError: true,
			ScreenshotDir:     "error_screenshots",
			ContinueOnFailure: false,
			CacheEnabled:      true,
			ArtifactsEnabled:  false,
			ArtifactsDir:      filepath.Join(".drover", "artifacts"),
		},
	}
}

// Validate checks the configuration for values Drover cannot run with.
func (c *Config) Validate() error {
	if c.Model.Provider != "openai" {
		return fmt.Errorf("unsupported model provider: %q (must be 'openai')", c.Model.Provider)
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model name is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Model.Temperature)
	}
	if c.Model.MaxRetries < 0 {
		return fmt.Errorf("model max_retries cannot be negative")
	}
	if c.Model.RetryDelay < 0 {
		return fmt.Errorf("model retry_delay cannot be negative")
	}

	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("viewport dimensions must be positive, got %dx%d",
			c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if c.Browser.SlowMo < 0 {
		return fmt.Errorf("slow_mo cannot be negative")
	}
	if c.Browser.Timeout < 0 {
		return fmt.Errorf("browser timeout cannot be negative")
	}

	if c.Automation.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.Automation.MaxAttempts)
	}
	if c.Automation.RetryDelay < 0 {
		return fmt.Errorf("automation retry_delay cannot be negative")
	}
	if c.Automation.ActionDelay < 0 {
		return fmt.Errorf("action_delay cannot be negative")
	}
	if c.Automation.ScreenshotOnError && c.Automation.ScreenshotDir == "" {
		return fmt.Errorf("screenshot_dir is required when screenshot_on_error is enabled")
	}
	if c.Automation.ArtifactsEnabled && c.Automation.ArtifactsDir == "" {
		return fmt.Errorf("artifacts_dir is required when artifacts_enabled is set")
	}

	return nil
}

// RetryDelayDuration returns the provider backoff as a time.Duration.
func (m ModelConfig) RetryDelayDuration() time.Duration {
	return time.Duration(m.RetryDelay * float64(time.Second))
}

// RetryDelayDuration returns the inter-attempt wait as a time.Duration.
func (a AutomationConfig) RetryDelayDuration() time.Duration {
	return time.Duration(a.RetryDelay * float64(time.Second))
}

// ActionDelayDuration returns the inter-action wait as a time.Duration.
func (a AutomationConfig) ActionDelayDuration() time.Duration {
	return time.Duration(a.ActionDelay * float64(time.Second))
}

// UserConfigPath returns the per-user config file path (~/.drover/config.yaml).
func UserConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, configDirName, "config.yaml"), nil
}
