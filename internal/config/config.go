// Package config loads the startup configuration of the mcpagent server.
// Values are layered: defaults, then an optional YAML file, then environment variables.
// Command line flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileEnvVar = "MCPAGENT_CONFIG"
	BindPortEnvVar   = "PORT"
	LogLevelEnvVar   = "LOG_LEVEL"
	TelemetryEnvVar  = "OTEL_ENABLED"
	ExtraRootsEnvVar = "MCPAGENT_EXTRA_ROOTS"
	BaseDirEnvVar    = "MCPAGENT_BASE_DIR"
	MaxOutputEnvVar  = "MCPAGENT_MAX_OUTPUT_BYTES"
)

const (
	BindPortDefault = "3001"
	LogLevelDefault = "info"

	// ServiceName identifies the server in telemetry and in the MCP handshake.
	ServiceName = "mcpagent"

	maxTimeoutSeconds = 24 * 60 * 60
)

// ExecConfig tunes the process execution engine.
type ExecConfig struct {
	// Shell is the interpreter used for command strings, e.g. ["bash", "-c"].
	Shell []string `yaml:"shell"`
	// MaxOutputBytes caps the combined output of a bounded command.
	MaxOutputBytes int `yaml:"max_output_bytes"`
	// DefaultTimeoutSec and StreamTimeoutSec apply when a call does not carry a timeout.
	DefaultTimeoutSec int `yaml:"default_timeout_sec"`
	StreamTimeoutSec  int `yaml:"stream_timeout_sec"`
}

// Config is the complete startup configuration. It is not modified after the server starts.
type Config struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	LogLevel    string `yaml:"log_level"`
	OtelEnabled bool   `yaml:"otel_enabled"`

	// ExtraRoots are allowed in addition to the roots derived from the environment.
	ExtraRoots []string `yaml:"extra_roots"`
	// BaseDir is the directory relative paths are resolved against. Empty means the working directory.
	BaseDir string `yaml:"base_dir"`

	Exec ExecConfig `yaml:"exec"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:     BindPortDefault,
		LogLevel: LogLevelDefault,
	}
}

// Load builds the configuration from the defaults, the YAML file at path (skipped when path
// is empty) and the environment.
func Load(fs afero.Fs, path string, getenv func(string) string) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.loadFile(fs, path); err != nil {
			return nil, err
		}
	}
	if err := c.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(BindPortEnvVar)); v != "" {
		c.Port = v
	}
	if v := strings.TrimSpace(getenv(LogLevelEnvVar)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(getenv(TelemetryEnvVar)); v != "" {
		enabled, err := parseBool(v)
		if err != nil {
			return fmt.Errorf(
				"invalid value for %s environment variable: '%s', valid values are 'true' or 'false'",
				TelemetryEnvVar, v,
			)
		}
		c.OtelEnabled = enabled
	}
	if v := getenv(ExtraRootsEnvVar); v != "" {
		c.ExtraRoots = append(c.ExtraRoots, SplitList(v)...)
	}
	if v := strings.TrimSpace(getenv(BaseDirEnvVar)); v != "" {
		c.BaseDir = v
	}
	if v := strings.TrimSpace(getenv(MaxOutputEnvVar)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid value for %s: '%s', must be a positive integer", MaxOutputEnvVar, v)
		}
		c.Exec.MaxOutputBytes = n
	}
	return nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

// SplitList splits a list of paths separated by the OS path list separator or commas.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool {
		return r == os.PathListSeparator || r == ','
	}) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port '%s': must be a number between 1 and 65535", c.Port)
	}
	for _, r := range c.ExtraRoots {
		if !filepath.IsAbs(r) {
			return fmt.Errorf("extra root %q must be an absolute path", r)
		}
	}
	if c.Exec.MaxOutputBytes < 0 {
		return errors.New("exec.max_output_bytes must not be negative")
	}
	for name, v := range map[string]int{
		"exec.default_timeout_sec": c.Exec.DefaultTimeoutSec,
		"exec.stream_timeout_sec":  c.Exec.StreamTimeoutSec,
	} {
		if v < 0 || v > maxTimeoutSeconds {
			return fmt.Errorf("%s must be between 0 and %d", name, maxTimeoutSeconds)
		}
	}
	return nil
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// AllowedRoots returns the roots derived from the environment followed by the extra roots.
func (c *Config) AllowedRoots(defaults []string) []string {
	roots := append([]string{}, defaults...)
	return append(roots, c.ExtraRoots...)
}
