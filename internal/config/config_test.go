// Package config_test contains the unit tests for the config package.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestConfig_Load(t *testing.T) {
	// Create a temporary directory for our test config files
	tempDir := t.TempDir()

	// --- Test Case 1: Valid configuration file ---
	validToml := `
host = "0.0.0.0"
port = 9000
student_name = "tester"
idle_timeout = "30s"
shards = 4
admin_addr = "127.0.0.1:9100"

[log]
level = "debug"
color = "never"
`
	validPath := filepath.Join(tempDir, "valid.toml")
	if err := os.WriteFile(validPath, []byte(validToml), 0644); err != nil {
		t.Fatalf("failed to write valid config file: %v", err)
	}

	cfg := New()
	err := cfg.Load(validPath)
	if err != nil {
		t.Fatalf("expected no error loading valid config, but got: %v", err)
	}

	want := &Config{
		Host:        "0.0.0.0",
		Port:        9000,
		StudentName: "tester",
		IdleTimeout: Duration(30 * time.Second),
		Shards:      4,
		AdminAddr:   "127.0.0.1:9100",
		Log:         Log{Level: "debug", Color: "never"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:9000" {
		t.Errorf("expected addr '0.0.0.0:9000', but got '%s'", cfg.Addr())
	}

	// --- Test Case 2: File does not exist ---
	cfg2 := New()
	err = cfg2.Load(filepath.Join(tempDir, "nonexistent.toml"))
	if err == nil {
		t.Fatal("expected an error for non-existent file, but got none")
	}

	// --- Test Case 3: Invalid TOML format ---
	invalidToml := `host = 127.0.0.1` // Invalid: host should be a string
	invalidPath := filepath.Join(tempDir, "invalid.toml")
	if err := os.WriteFile(invalidPath, []byte(invalidToml), 0644); err != nil {
		t.Fatalf("failed to write invalid config file: %v", err)
	}

	cfg3 := New()
	err = cfg3.Load(invalidPath)
	if err == nil {
		t.Fatal("expected an error for invalid TOML, but got none")
	}

	// --- Test Case 4: Unknown key ---
	unknownPath := filepath.Join(tempDir, "unknown.toml")
	if err := os.WriteFile(unknownPath, []byte("raft_port = 9080\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if err := New().Load(unknownPath); err == nil {
		t.Fatal("expected an error for an unknown key, but got none")
	}
}

func TestConfig_LoadYAML(t *testing.T) {
	tempDir := t.TempDir()
	validYaml := `
port: 7000
idle_timeout: 1m
log:
  level: warn
  json: true
`
	path := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(path, []byte(validYaml), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg := New()
	if err := cfg.Load(path); err != nil {
		t.Fatalf("expected no error loading valid yaml, but got: %v", err)
	}
	if cfg.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Port)
	}
	if time.Duration(cfg.IdleTimeout) != time.Minute {
		t.Errorf("expected idle timeout 1m, got %s", time.Duration(cfg.IdleTimeout))
	}
	if cfg.Log.Level != "warn" || !cfg.Log.JSON {
		t.Errorf("log section was not parsed correctly: %+v", cfg.Log)
	}
	// Defaults survive for keys the file does not set.
	if cfg.Host != "127.0.0.1" || cfg.Shards != 16 {
		t.Errorf("defaults were overwritten: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := New().Validate(); err != nil {
		t.Fatalf("defaults should be valid, got: %v", err)
	}

	tests := map[string]func(c *Config){
		"port":         func(c *Config) { c.Port = 70000 },
		"shards":       func(c *Config) { c.Shards = 3 },
		"zero shards":  func(c *Config) { c.Shards = 0 },
		"idle timeout": func(c *Config) { c.IdleTimeout = Duration(-time.Second) },
		"log level":    func(c *Config) { c.Log.Level = "loud" },
		"log color":    func(c *Config) { c.Log.Color = "rainbow" },
	}
	for name, mutate := range tests {
		cfg := New()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error, got none", name)
		}
	}
}
