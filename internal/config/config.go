// Package config loads the strongbox command configuration from a YAML
// file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/illarion/strongbox/internal/keyring"
	"github.com/illarion/strongbox/internal/namespace"
	"github.com/illarion/strongbox/internal/store"
	"gopkg.in/yaml.v3"
)

// Backend names
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
)

// Defaults
const (
	DefaultBackend  = BackendKeyring
	DefaultVault    = ".strongbox"
	DefaultLogLevel = "warn"
)

// Environment variables
const (
	EnvNamespace = namespace.EnvNamespace
	EnvBackend   = "STRONGBOX_BACKEND"
	EnvVault     = "STRONGBOX_VAULT"
	EnvTier      = "STRONGBOX_TIER"
	EnvLogLevel  = "STRONGBOX_LOG_LEVEL"
	EnvPassword  = "STRONGBOX_PASSWORD"
)

// Config is the strongbox command configuration
type Config struct {
	// Namespace is nil when unset, so an explicit empty namespace survives.
	Namespace *string `yaml:"namespace,omitempty"`
	Backend   string  `yaml:"backend,omitempty"`
	Vault     string  `yaml:"vault,omitempty"`
	Account   string  `yaml:"account,omitempty"`
	Tier      string  `yaml:"tier,omitempty"`
	LogLevel  string  `yaml:"log_level,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Backend:  DefaultBackend,
		Vault:    DefaultVault,
		Account:  keyring.DefaultAccount,
		Tier:     store.TierWhenUnlocked.String(),
		LogLevel: DefaultLogLevel,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/strongbox/config.yaml, falling back
// to the user config directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "strongbox", "config.yaml")
}

// Load reads the configuration at path over the defaults and applies
// environment overrides. A missing file is not an error. An empty path
// selects DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv(EnvNamespace); ok {
		c.Namespace = &val
	}
	if val := os.Getenv(EnvBackend); val != "" {
		c.Backend = val
	}
	if val := os.Getenv(EnvVault); val != "" {
		c.Vault = val
	}
	if val := os.Getenv(EnvTier); val != "" {
		c.Tier = val
	}
	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendKeyring:
	case BackendFile:
		if c.Vault == "" {
			return errors.New("vault path is required for the file backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendKeyring, BackendFile)
	}

	if _, err := store.ParseTier(c.Tier); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// StoreTier returns the configured default protection tier
func (c *Config) StoreTier() store.Tier {
	t, _ := store.ParseTier(c.Tier)
	return t
}

// Level returns the configured log level
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// SaveToFile writes the configuration as YAML
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
