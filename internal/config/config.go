// Package config loads the immutable runtime configuration for gdbridge:
// the engine binary, the project root, the language-server endpoint, and
// execution limits. Values come from the environment first, then from an
// optional .gdbridge YAML file in the project root, then from defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default values used when neither the environment nor the project file
// sets a field.
const (
	DefaultBin       = "godot"
	DefaultLSPHost   = "127.0.0.1"
	DefaultLSPPort   = 6005
	DefaultTimeout   = 30 * time.Second
	DefaultMaxOutput = 1 << 20 // 1 MB
)

// Config holds the parsed gdbridge configuration. All fields are optional;
// zero values represent defaults. Once loaded, a Config is never mutated —
// components receive it in their constructors.
type Config struct {
	Bin          string `env:"GODOT_BIN" yaml:"bin"`               // engine binary path
	Project      string `env:"GODOT_PROJECT" yaml:"project"`       // project root directory
	LSPHost      string `env:"GODOT_LSP_HOST" yaml:"lsp_host"`     // language server host
	LSPPort      int    `env:"GODOT_LSP_PORT" yaml:"lsp_port"`     // language server port
	RawTimeout   string `env:"GODOT_TIMEOUT" yaml:"timeout"`       // e.g. "30s", "2m"
	RawMaxOutput int    `env:"GODOT_MAX_OUTPUT" yaml:"max_output"` // bytes
}

// BinPath returns the configured engine binary or the default name,
// which is resolved via PATH at spawn time.
func (c *Config) BinPath() string {
	if c.Bin != "" {
		return c.Bin
	}
	return DefaultBin
}

// Timeout returns the configured execution timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured output cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// LSPAddr returns the host and port of the language server endpoint.
func (c *Config) LSPAddr() (string, int) {
	host := c.LSPHost
	if host == "" {
		host = DefaultLSPHost
	}
	port := c.LSPPort
	if port == 0 {
		port = DefaultLSPPort
	}
	return host, port
}

// Load builds the configuration for a working directory. The environment
// takes precedence over the .gdbridge file; the file fills in whatever the
// environment left unset. The project root is discovered by walking upward
// from workdir looking for project.godot, unless GODOT_PROJECT is set.
func Load(workdir string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.Project == "" {
		root, err := findProjectRoot(workdir)
		if err != nil {
			root = workdir
		}
		cfg.Project = root
	}

	path := filepath.Join(cfg.Project, ".gdbridge")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .gdbridge: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing .gdbridge: %w", err)
	}
	cfg.merge(&file)
	return cfg, nil
}

// merge fills unset fields of c from other. The project root is fixed by
// the time the file is read and is never overridden by it.
func (c *Config) merge(other *Config) {
	if c.Bin == "" {
		c.Bin = other.Bin
	}
	if c.LSPHost == "" {
		c.LSPHost = other.LSPHost
	}
	if c.LSPPort == 0 {
		c.LSPPort = other.LSPPort
	}
	if c.RawTimeout == "" {
		c.RawTimeout = other.RawTimeout
	}
	if c.RawMaxOutput == 0 {
		c.RawMaxOutput = other.RawMaxOutput
	}
}

// findProjectRoot walks upward from dir looking for a directory containing
// project.godot.
func findProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "project.godot")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("project.godot not found")
		}
		dir = parent
	}
}
