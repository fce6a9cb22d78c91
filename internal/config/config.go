// Package config provides configuration file support for hoptrace.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KilimcininKorOglu/hoptrace/internal/probe"
)

// Configuration errors.
var (
	// ErrInvalidAlias indicates an alias that does not name an IPv4 literal
	ErrInvalidAlias = errors.New("alias must map to a dotted-decimal IPv4 address")

	// ErrInvalidOutput indicates an unknown output mode
	ErrInvalidOutput = errors.New("output must be one of text, verbose, json, csv, tui")

	// ErrInvalidIdentifier indicates an identifier that is neither "pid" nor a 16-bit number
	ErrInvalidIdentifier = errors.New(`identifier must be empty, "pid" or a number between 1 and 65535`)

	// ErrInvalidExporter indicates an unknown telemetry exporter
	ErrInvalidExporter = errors.New("telemetry exporter must be one of none, stdout, otlp")
)

// IdentifierPID selects the process id as echo identifier.
const IdentifierPID = "pid"

// Config represents the hoptrace configuration file structure.
type Config struct {
	// Defaults are applied when flags are not specified
	Defaults Defaults `yaml:"defaults"`

	// Aliases map short names to IPv4 destinations
	Aliases map[string]string `yaml:"aliases,omitempty"`
}

// Defaults holds default values for trace parameters.
type Defaults struct {
	// Probe policy
	Timeout     time.Duration `yaml:"timeout"`
	Delay       time.Duration `yaml:"delay"`
	PacketSize  int           `yaml:"packet_size"`
	Identifier  string        `yaml:"identifier"`
	StopOnReach bool          `yaml:"stop_on_reach"`

	// Output mode: text, verbose, json, csv, tui
	Output  string `yaml:"output"`
	NoColor bool   `yaml:"no_color"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// MetricsFile receives a Prometheus text dump after each trace
	MetricsFile string `yaml:"metrics_file"`

	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TelemetryConfig holds span export settings.
type TelemetryConfig struct {
	// Exporter: none, stdout, otlp
	Exporter string `yaml:"exporter"`
	URL      string `yaml:"url,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Defaults: Defaults{
			Timeout:    2 * time.Second,
			Delay:      time.Second,
			PacketSize: 512,
			Output:     "text",
			LogLevel:   "info",
			LogFormat:  "text",
			Telemetry: TelemetryConfig{
				Exporter: "none",
			},
		},
		Aliases: make(map[string]string),
	}
}

// Validate checks values that cannot be verified by decoding alone.
func (c *Config) Validate() error {
	switch c.Defaults.Output {
	case "", "text", "verbose", "json", "csv", "tui":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutput, c.Defaults.Output)
	}

	if _, err := ParseIdentifier(c.Defaults.Identifier); err != nil {
		return err
	}

	switch c.Defaults.Telemetry.Exporter {
	case "", "none", "stdout", "otlp":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidExporter, c.Defaults.Telemetry.Exporter)
	}

	for name, target := range c.Aliases {
		if !isIPv4Literal(target) {
			return fmt.Errorf("%w: %s -> %q", ErrInvalidAlias, name, target)
		}
	}

	return nil
}

// Resolve expands target if it is an alias.
func (c *Config) Resolve(target string) string {
	if c == nil {
		return target
	}
	if alias, ok := c.Aliases[target]; ok {
		return alias
	}
	return target
}

// ParseIdentifier converts a configured identifier to an echo identifier.
// An empty string yields 0 (random session token), "pid" yields the low
// 16 bits of the process id.
func ParseIdentifier(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0, nil
	case IdentifierPID:
		return probe.ProcessToken(), nil
	}

	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return uint16(n), nil
}

func isIPv4Literal(s string) bool {
	if strings.Contains(s, ":") {
		return false
	}
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

// Load reads configuration from the default config file locations.
// It searches in order:
//  1. ./hoptrace.yaml (current directory)
//  2. $XDG_CONFIG_HOME/hoptrace/config.yaml
//  3. ~/.config/hoptrace/config.yaml (Linux/macOS)
//  4. %APPDATA%\hoptrace\config.yaml (Windows)
//
// If no config file is found, returns default configuration and an empty path.
func Load() (*Config, string, error) {
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			config, err := LoadFrom(path)
			return config, path, err
		}
	}

	return DefaultConfig(), "", nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Save writes the configuration to the default user config path.
func (c *Config) Save() error {
	return c.SaveTo(getUserConfigPath())
}

// SaveTo writes the configuration to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// getConfigPaths returns the list of config file paths to search.
func getConfigPaths() []string {
	paths := []string{
		"hoptrace.yaml",
		"hoptrace.yml",
	}

	if userPath := getUserConfigPath(); userPath != "" {
		paths = append(paths, userPath)
	}

	return paths
}

// getUserConfigPath returns the user-specific config file path.
func getUserConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "hoptrace", "config.yaml")
		}
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, "hoptrace", "config.yaml")
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".config", "hoptrace", "config.yaml")
		}
	}
	return ""
}

// GetConfigPath returns the path where user config would be saved.
func GetConfigPath() string {
	return getUserConfigPath()
}

// GenerateExample generates an example configuration file content.
func GenerateExample() string {
	return `# hoptrace configuration file
# Location: ./hoptrace.yaml (current directory)
#           $XDG_CONFIG_HOME/hoptrace/config.yaml
#           ~/.config/hoptrace/config.yaml

defaults:
  # Probe policy
  timeout: 2s             # Wait for each reply
  delay: 1s               # Pause between probes
  packet_size: 512        # Echo request size in bytes
  identifier: ""          # Empty: random per run, "pid": process id, or a number
  stop_on_reach: false    # Stop once the destination answered

  # Output mode: text, verbose, json, csv, tui
  output: text
  no_color: false

  # Logging (stderr)
  log_level: info         # debug, info, warn, error
  log_format: text        # text or json

  # Prometheus text dump written after each trace
  metrics_file: ""

  # Span export: none, stdout, otlp
  telemetry:
    exporter: none
    url: ""

# Target aliases, values must be IPv4 addresses
aliases:
  dns: 8.8.8.8
  cf: 1.1.1.1
`
}
