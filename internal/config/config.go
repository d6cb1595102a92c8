// Package config handles loading and parsing the application's configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-hclog"
)

// Duration is a time.Duration written as a string such as "30s" in
// config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Log configures process and activity logging.
type Log struct {
	Level string `toml:"level" yaml:"level"` // trace, debug, info, warn or error
	JSON  bool   `toml:"json" yaml:"json"`
	Color string `toml:"color" yaml:"color"` // auto, always or never
}

// Config holds the server settings. The same keys are accepted in TOML
// and YAML files.
type Config struct {
	Host        string   `toml:"host" yaml:"host"`
	Port        int      `toml:"port" yaml:"port"`
	StudentName string   `toml:"student_name" yaml:"student_name"` // Identifier sent in the greeting
	IdleTimeout Duration `toml:"idle_timeout" yaml:"idle_timeout"` // 0 disables the timeout
	Shards      int      `toml:"shards" yaml:"shards"`             // Store shard count, a power of two
	AdminAddr   string   `toml:"admin_addr" yaml:"admin_addr"`     // Metrics/health HTTP address, empty to disable
	Diagnostics bool     `toml:"diagnostics" yaml:"diagnostics"`   // Start the gops agent
	Log         Log      `toml:"log" yaml:"log"`
}

// New returns a new Config with default values.
func New() *Config {
	return &Config{
		Host:        "127.0.0.1",
		Port:        8888,
		StudentName: "Gordei Skorobogatov",
		Shards:      16,
		Log: Log{
			Level: "info",
			Color: "auto",
		},
	}
}

// Load reads a configuration file from the given path and populates the Config struct.
// Files ending in .yaml or .yml are read as YAML, everything else as TOML.
func (c *Config) Load(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.UnmarshalWithOptions(data, c, yaml.Strict())
	default:
		md, err := toml.DecodeFile(path, c)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("config: unknown keys in %s: %v", path, undecoded)
		}
		return nil
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.Shards < 1 || c.Shards&(c.Shards-1) != 0 {
		return fmt.Errorf("config: shards must be a power of two, got %d", c.Shards)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("config: negative idle_timeout %s", time.Duration(c.IdleTimeout))
	}
	if hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	switch c.Log.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("config: log color must be auto, always or never, got %q", c.Log.Color)
	}
	return nil
}

// Addr returns the host:port the TCP server binds.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
