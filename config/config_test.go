package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LLM.MaxAttempts != 3 {
		t.Errorf("expected default max_attempts 3, got %d", cfg.LLM.MaxAttempts)
	}
	if cfg.Policies.Glob != "**/*.jsonl" {
		t.Errorf("expected default glob **/*.jsonl, got %s", cfg.Policies.Glob)
	}
	if cfg.Apply.FailOnConflict {
		t.Error("expected fail_on_conflict false by default")
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics disabled by default")
	}
	if cfg.Events.Enabled {
		t.Error("expected events disabled by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero max attempts",
			modify:  func(c *Config) { c.LLM.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "zero llm timeout",
			modify:  func(c *Config) { c.LLM.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "missing policies glob",
			modify:  func(c *Config) { c.Policies.Glob = "" },
			wantErr: true,
		},
		{
			name:    "zero apply timeout",
			modify:  func(c *Config) { c.Apply.Timeout = 0 },
			wantErr: true,
		},
		{
			name: "events enabled without url",
			modify: func(c *Config) {
				c.Events.Enabled = true
				c.Events.URL = ""
			},
			wantErr: true,
		},
		{
			name: "events enabled with url",
			modify: func(c *Config) {
				c.Events.Enabled = true
				c.Events.URL = "nats://localhost:4222"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
llm:
  registry_file: "/etc/policyai/registry.json"
  max_attempts: 5
  timeout: 90s
policies:
  dir: "/var/policyai/policies"
  glob: "*.jsonl"
  watch: true
apply:
  fail_on_conflict: true
  timeout: 15s
metrics:
  enabled: true
  listen_addr: ":9091"
events:
  enabled: true
  url: "nats://test:4222"
  subject_prefix: "test-prefix"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.LLM.RegistryFile != "/etc/policyai/registry.json" {
		t.Errorf("expected registry file, got %s", cfg.LLM.RegistryFile)
	}
	if cfg.LLM.MaxAttempts != 5 {
		t.Errorf("expected max_attempts 5, got %d", cfg.LLM.MaxAttempts)
	}
	if cfg.LLM.Timeout != 90*time.Second {
		t.Errorf("expected timeout 90s, got %v", cfg.LLM.Timeout)
	}
	if cfg.Policies.Dir != "/var/policyai/policies" {
		t.Errorf("expected policies dir, got %s", cfg.Policies.Dir)
	}
	if !cfg.Policies.Watch {
		t.Error("expected watch true")
	}
	if !cfg.Apply.FailOnConflict {
		t.Error("expected fail_on_conflict true")
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics enabled")
	}
	if cfg.Events.SubjectPrefix != "test-prefix" {
		t.Errorf("expected subject prefix test-prefix, got %s", cfg.Events.SubjectPrefix)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		LLM: LLMConfig{
			RegistryFile: "override-registry.json",
		},
		Policies: PoliciesConfig{
			Dir: "/override/policies",
		},
	}

	base.Merge(override)

	if base.LLM.RegistryFile != "override-registry.json" {
		t.Errorf("expected override-registry.json, got %s", base.LLM.RegistryFile)
	}
	// MaxAttempts should remain from base since override didn't set it
	if base.LLM.MaxAttempts != 3 {
		t.Errorf("expected max_attempts to remain default, got %d", base.LLM.MaxAttempts)
	}
	if base.Policies.Dir != "/override/policies" {
		t.Errorf("expected policies dir /override/policies, got %s", base.Policies.Dir)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Policies.Dir = "/saved/policies"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Policies.Dir != "/saved/policies" {
		t.Errorf("expected policies dir /saved/policies, got %s", loaded.Policies.Dir)
	}
}
