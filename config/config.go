// Package config provides configuration loading and management for PolicyAI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete PolicyAI configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Policies PoliciesConfig `yaml:"policies"`
	Apply    ApplyConfig    `yaml:"apply"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Events   EventsConfig   `yaml:"events"`
}

// LLMConfig configures the completion client: which endpoint registry file
// to load (if any) and the bounded-retry policy for completion calls.
type LLMConfig struct {
	// RegistryFile points to a JSON endpoint registry (model.RegistryConfig).
	// Empty uses model.NewDefaultRegistry().
	RegistryFile string `yaml:"registry_file"`
	// MaxAttempts bounds transport/JSON-parse retries per completion call.
	MaxAttempts int `yaml:"max_attempts"`
	// Timeout is the HTTP client timeout applied to each completion request.
	Timeout time.Duration `yaml:"timeout"`
}

// PoliciesConfig configures where a Manager's policies are sourced from.
type PoliciesConfig struct {
	// Dir is the root directory scanned for policy source files.
	Dir string `yaml:"dir"`
	// Glob selects which files under Dir are loaded (e.g. "**/*.jsonl").
	Glob string `yaml:"glob"`
	// Watch enables fsnotify-driven hot-reload of Dir into the Manager.
	Watch bool `yaml:"watch"`
}

// ApplyConfig configures Manager.Apply's default behavior.
type ApplyConfig struct {
	// FailOnConflict makes an Agreement conflict a hard ApplyError instead
	// of a Report.Conflicts entry.
	FailOnConflict bool `yaml:"fail_on_conflict"`
	// Timeout is the default per-apply context deadline when the caller
	// doesn't supply one.
	Timeout time.Duration `yaml:"timeout"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns on the /metrics HTTP handler.
	Enabled bool `yaml:"enabled"`
	// ListenAddr is the address the metrics server binds to.
	ListenAddr string `yaml:"listen_addr"`
}

// EventsConfig configures optional NATS lifecycle eventing.
type EventsConfig struct {
	// Enabled turns on publishing PolicyAdded/Applied events.
	Enabled bool `yaml:"enabled"`
	// URL is the NATS server URL.
	URL string `yaml:"url"`
	// SubjectPrefix namespaces published subjects (e.g. "policyai").
	SubjectPrefix string `yaml:"subject_prefix"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			RegistryFile: "",
			MaxAttempts:  3,
			Timeout:      2 * time.Minute,
		},
		Policies: PoliciesConfig{
			Dir:   "",
			Glob:  "**/*.jsonl",
			Watch: false,
		},
		Apply: ApplyConfig{
			FailOnConflict: false,
			Timeout:        30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9090",
		},
		Events: EventsConfig{
			Enabled:       false,
			URL:           "",
			SubjectPrefix: "policyai",
		},
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be at least 1")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if c.Policies.Glob == "" {
		return fmt.Errorf("policies.glob is required")
	}
	if c.Apply.Timeout <= 0 {
		return fmt.Errorf("apply.timeout must be positive")
	}
	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("events.url is required when events.enabled is true")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.LLM.RegistryFile != "" {
		c.LLM.RegistryFile = other.LLM.RegistryFile
	}
	if other.LLM.MaxAttempts != 0 {
		c.LLM.MaxAttempts = other.LLM.MaxAttempts
	}
	if other.LLM.Timeout != 0 {
		c.LLM.Timeout = other.LLM.Timeout
	}

	if other.Policies.Dir != "" {
		c.Policies.Dir = other.Policies.Dir
	}
	if other.Policies.Glob != "" {
		c.Policies.Glob = other.Policies.Glob
	}
	if other.Policies.Watch {
		c.Policies.Watch = true
	}

	if other.Apply.FailOnConflict {
		c.Apply.FailOnConflict = true
	}
	if other.Apply.Timeout != 0 {
		c.Apply.Timeout = other.Apply.Timeout
	}

	if other.Metrics.Enabled {
		c.Metrics.Enabled = true
	}
	if other.Metrics.ListenAddr != "" {
		c.Metrics.ListenAddr = other.Metrics.ListenAddr
	}

	if other.Events.Enabled {
		c.Events.Enabled = true
	}
	if other.Events.URL != "" {
		c.Events.URL = other.Events.URL
	}
	if other.Events.SubjectPrefix != "" {
		c.Events.SubjectPrefix = other.Events.SubjectPrefix
	}
}
