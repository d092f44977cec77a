// Package config loads and validates toolrouter's configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// NudgeRule maps a category's keywords to the discovery queries synthesized
// on the user's behalf when none of those keywords' category is already
// cached.
type NudgeRule struct {
	Category         string   `yaml:"category"`
	Keywords         []string `yaml:"keywords"`
	DiscoveryQueries []string `yaml:"discovery_queries"`
}

// Config holds toolrouter's full runtime configuration.
type Config struct {
	// ExecutionModel is an opaque identifier passed to the agent executor.
	ExecutionModel string `yaml:"execution_model"`
	// EmbeddingModel is an opaque identifier passed to the embedding provider.
	EmbeddingModel string `yaml:"embedding_model"`

	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	RelativeScoreCutoff float64 `yaml:"relative_score_cutoff"`
	SearchTopK          int     `yaml:"search_top_k"`
	DiscoverBindingK    int     `yaml:"discover_binding_k"`

	MaxCacheSize       int `yaml:"max_cache_size"`
	PreloadCount       int `yaml:"preload_count"`
	PreloadConcurrency int `yaml:"preload_concurrency"`

	MaxHistoryTurns int `yaml:"max_history_turns"`
	MaxSteps        int `yaml:"max_steps"`

	HealthCooldownSeconds int `yaml:"health_cooldown_seconds"`

	DataDir string `yaml:"data_dir"`

	KeywordNudge []NudgeRule `yaml:"keyword_nudge"`

	TurnTimeoutSeconds int `yaml:"turn_timeout_seconds"`

	Debug bool `yaml:"debug"`
}

// CooldownDuration returns HealthCooldownSeconds as a time.Duration.
func (c *Config) CooldownDuration() time.Duration {
	return time.Duration(c.HealthCooldownSeconds) * time.Second
}

// TurnTimeout returns TurnTimeoutSeconds as a time.Duration.
func (c *Config) TurnTimeout() time.Duration {
	return time.Duration(c.TurnTimeoutSeconds) * time.Second
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		ExecutionModel:        "default",
		EmbeddingModel:        "default",
		SimilarityThreshold:   0.35,
		RelativeScoreCutoff:   0.7,
		SearchTopK:            0, // 0 means "all survivors"
		DiscoverBindingK:      1,
		MaxCacheSize:          8,
		PreloadCount:          3,
		PreloadConcurrency:    3,
		MaxHistoryTurns:       20,
		MaxSteps:              8,
		HealthCooldownSeconds: 60,
		DataDir:               defaultDataDir(),
		KeywordNudge:          nil,
		TurnTimeoutSeconds:    60,
		Debug:                 false,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".toolrouter"
	}
	return filepath.Join(home, ".toolrouter")
}

// Load reads configuration from a YAML file, falling back to defaults if the
// file does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("config: reading file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", ErrInvalidConfig(err))
	}

	return cfg, nil
}

// LoadFromHome loads configuration from ~/.toolrouter/config.yaml.
func LoadFromHome() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return Load(filepath.Join(home, ".toolrouter", "config.yaml"))
}

// Save writes configuration to a YAML file, creating parent directories as
// needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: cannot save a nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: creating directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: writing file: %w", err)
	}
	return nil
}

// SaveToHome saves configuration to ~/.toolrouter/config.yaml.
func SaveToHome(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("config: resolving home directory: %w", err)
	}
	return Save(filepath.Join(home, ".toolrouter", "config.yaml"), cfg)
}

// Validate checks that the configuration describes a constructible router.
func (c *Config) Validate() error {
	if c.MaxCacheSize < 1 {
		return fmt.Errorf("max_cache_size must be at least 1")
	}
	if c.PreloadCount < 0 {
		return fmt.Errorf("preload_count must not be negative")
	}
	if c.PreloadCount > 0 && c.MaxCacheSize < 1 {
		return fmt.Errorf("preload_count > 0 requires max_cache_size >= 1")
	}
	if c.PreloadConcurrency < 1 {
		return fmt.Errorf("preload_concurrency must be at least 1")
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0, 1]")
	}
	if c.RelativeScoreCutoff < 0 || c.RelativeScoreCutoff > 1 {
		return fmt.Errorf("relative_score_cutoff must be in [0, 1]")
	}
	if c.MaxHistoryTurns < 1 {
		return fmt.Errorf("max_history_turns must be at least 1")
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("max_steps must be at least 1")
	}
	if c.HealthCooldownSeconds < 0 {
		return fmt.Errorf("health_cooldown_seconds must not be negative")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	return nil
}

// ErrInvalidConfig wraps a validation failure. Kept as a function rather
// than a bare sentinel so callers can still unwrap the underlying reason
// with errors.Unwrap while matching on the kind with errors.As.
func ErrInvalidConfig(reason error) error {
	return &InvalidConfigError{reason: reason}
}

// InvalidConfigError is the stable kind surfaced for §7's ConfigError.
type InvalidConfigError struct {
	reason error
}

func (e *InvalidConfigError) Error() string { return "invalid configuration: " + e.reason.Error() }
func (e *InvalidConfigError) Unwrap() error { return e.reason }
