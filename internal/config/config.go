// Package config loads the sync bridge's engine configuration from a YAML
// file, defaulting unset fields and validating the result before the
// engine ever opens a branch.
package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of a bridge configuration file.
type Config struct {
	Policy     string    `yaml:"policy"`
	DryUpdates bool      `yaml:"dry_updates"`
	TokenEnv   string    `yaml:"token_env"`
	PubBranch  string    `yaml:"pub_branch"`
	PrivBranch string    `yaml:"priv_branch"`
	Log        LogConfig `yaml:"log"`
}

// LogConfig configures the bridge's structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var defaults = Config{
	Policy:     "repeat",
	TokenEnv:   "SYNCBRIDGE_TOKEN",
	PubBranch:  "syncbridge/pub",
	PrivBranch: "syncbridge/priv",
	Log: LogConfig{
		Level:  "info",
		Format: "text",
	},
}

// Load reads path, merges unset fields in from the package defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := mergo.Merge(&cfg, defaults); err != nil {
		return nil, fmt.Errorf("config: apply defaults: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// Token reads the Hub credential named by TokenEnv out of the process
// environment. It is never persisted in the config file itself.
func (c *Config) Token() (string, error) {
	token := os.Getenv(c.TokenEnv)
	if token == "" {
		return "", fmt.Errorf("config: environment variable %s is unset", c.TokenEnv)
	}
	return token, nil
}

func (c *Config) validate() error {
	switch c.Policy {
	case "once", "repeat":
	default:
		return fmt.Errorf("policy must be %q or %q, got %q", "once", "repeat", c.Policy)
	}
	if c.PubBranch == "" || c.PrivBranch == "" {
		return fmt.Errorf("pub_branch and priv_branch are required")
	}
	if c.PubBranch == c.PrivBranch {
		return fmt.Errorf("pub_branch and priv_branch must differ, both %q", c.PubBranch)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug|info|warn|error, got %q", c.Log.Level)
	}
	return nil
}
