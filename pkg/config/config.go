// Package config loads the YAML configuration consumed by the uvfs CLI.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed kinds accepted in the config file.
const (
	KindDir      = "dir"
	KindFile     = "file"
	KindCharDev  = "chardev"
	KindBlockDev = "blockdev"
)

// Seed is one namespace entry created at startup. Parents must be
// listed before their children.
type Seed struct {
	Path    string `yaml:"path"`
	Kind    string `yaml:"kind"`
	Content string `yaml:"content,omitempty"`
	Device  uint32 `yaml:"device,omitempty"`
}

// Config is the CLI configuration.
type Config struct {
	MaxFiles int    `yaml:"max_files"`
	LogLevel string `yaml:"log_level"`
	Seed     []Seed `yaml:"seed"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MaxFiles: 32,
		LogLevel: "info",
	}
}

// Load reads path and merges it over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the CLI cannot honor.
func (c *Config) Validate() error {
	if c.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive, got %d", c.MaxFiles)
	}
	for i, s := range c.Seed {
		if s.Path == "" {
			return fmt.Errorf("seed[%d]: empty path", i)
		}
		switch s.Kind {
		case KindDir, KindFile, KindCharDev, KindBlockDev:
		default:
			return fmt.Errorf("seed[%d]: unknown kind %q", i, s.Kind)
		}
		if s.Content != "" && s.Kind != KindFile {
			return fmt.Errorf("seed[%d]: content is only valid for files", i)
		}
	}
	return nil
}
