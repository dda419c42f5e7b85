package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"

	_ "embed"
)

const (
	// APIVersion is the only supported configuration API version.
	APIVersion = "drenv.ramendr.io/v1alpha1"
	// Kind is the only supported configuration kind.
	Kind = "Configuration"
)

var (
	//go:embed config.yaml
	defaultConfigYAML []byte

	// ErrInvalidConfig is returned for configuration that cannot be loaded.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the drenv configuration file.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	Kubectl *KubectlConfig `json:"kubectl,omitempty" jsonschema:"title=Kubectl"`
	Watch   *WatchConfig   `json:"watch,omitempty"   jsonschema:"title=Watch"`
	Gather  *GatherConfig  `json:"gather,omitempty"  jsonschema:"title=Gather"`
	// APIVersion specifies the API version for this configuration.
	APIVersion string `json:"apiVersion" jsonschema:"title=API Version"`
	// Kind defines the type of configuration.
	Kind string `json:"kind" jsonschema:"title=Kind"`
}

// KubectlConfig configures how kubectl is run.
type KubectlConfig struct {
	// Command is the kubectl command line. Arguments after the executable
	// are added before the subcommand of every invocation.
	Command string `json:"command,omitempty" jsonschema:"title=Command"`
	// Context is the default kubeconfig context.
	Context string `json:"context,omitempty" jsonschema:"title=Context"`
}

// WatchConfig configures `drenv watch`.
type WatchConfig struct {
	// Timeout stops watching once elapsed, e.g. "5m". Empty means no timeout.
	Timeout string `json:"timeout,omitempty" jsonschema:"title=Timeout,pattern=^$|^([0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h))+$"`
}

// GatherConfig configures `drenv gather`.
type GatherConfig struct {
	// Directory is where gathered data is stored.
	Directory string `json:"directory,omitempty" jsonschema:"title=Directory"`
}

// NewConfig creates a new [Config] with default values.
func NewConfig() *Config {
	c := &Config{
		APIVersion: APIVersion,
		Kind:       Kind,
	}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes nil fields to their default values.
func (c *Config) EnsureDefaults() {
	if c.Kubectl == nil {
		c.Kubectl = &KubectlConfig{}
	}

	if c.Kubectl.Command == "" {
		c.Kubectl.Command = "kubectl"
	}

	if c.Watch == nil {
		c.Watch = &WatchConfig{}
	}

	if c.Gather == nil {
		c.Gather = &GatherConfig{}
	}
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	if p, ok := jss.Properties.Get("apiVersion"); ok && p != nil {
		p.Enum = []any{APIVersion}
	}

	if p, ok := jss.Properties.Get("kind"); ok && p != nil {
		p.Enum = []any{Kind}
	}
}

// TimeoutDuration returns the parsed [WatchConfig.Timeout], or zero if it is
// empty.
func (w *WatchConfig) TimeoutDuration() (time.Duration, error) {
	if w == nil || w.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(w.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: watch.timeout: %w", ErrInvalidConfig, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("%w: watch.timeout: negative duration %s", ErrInvalidConfig, d)
	}

	return d, nil
}

// Load reads the configuration file at path. A missing file yields the
// default configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Potential file inclusion via variable.
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("configuration file not found, using defaults", slog.String("path", path))

		return NewConfig(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return c, nil
}

// Parse validates and decodes configuration data.
func Parse(data []byte) (*Config, error) {
	var anyConfig any

	err := yaml.Unmarshal(data, &anyConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, yaml.FormatError(err, false, true))
	}

	if anyConfig == nil {
		return NewConfig(), nil
	}

	validator, err := DefaultValidator()
	if err != nil {
		return nil, err
	}

	err = validator.Validate(anyConfig)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Source = data
		}

		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c := &Config{}

	err = yaml.UnmarshalWithOptions(data, c, yaml.Strict())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, yaml.FormatError(err, false, true))
	}

	c.EnsureDefaults()

	_, err = c.Watch.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	return c, nil
}

// MarshalYAML serializes the config to YAML.
func (c Config) MarshalYAML() ([]byte, error) {
	type alias Config

	b := &bytes.Buffer{}

	enc := yaml.NewEncoder(b, yaml.Indent(2))

	err := enc.Encode(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return nil, fmt.Errorf("close yaml encoder: %w", err)
	}

	return b.Bytes(), nil
}

// WriteDefault writes the default configuration to path. An existing file
// is kept unless force is set, in which case it is renamed to a backup.
func WriteDefault(path string, force bool) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return fmt.Errorf("%s: path is a directory", path)
		}

		if !force {
			slog.Debug("configuration file already exists, skipping write", slog.String("path", path))

			return nil
		}

		backupPath := fmt.Sprintf("%s.%d.old", path, time.Now().UnixNano())
		slog.Info("backing up existing config file", slog.String("path", backupPath))

		err = os.Rename(path, backupPath)
		if err != nil {
			return fmt.Errorf("rename existing config file to backup: %w", err)
		}
	}

	err = os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	slog.Info("write default configuration", slog.String("path", path))

	err = os.WriteFile(path, defaultConfigYAML, 0o600)
	if err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// GetPath returns the path to the configuration file.
func GetPath() string {
	if xdgHome, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdgHome != "" {
		return filepath.Join(xdgHome, "drenv", "config.yaml")
	}

	usrHome, err := os.UserHomeDir()
	if err == nil && usrHome != "" {
		return filepath.Join(usrHome, ".config", "drenv", "config.yaml")
	}

	tmpConfig := filepath.Join(os.TempDir(), "drenv", "config.yaml")

	slog.Warn("could not determine user config directory, using temp path for config",
		slog.String("path", tmpConfig),
		slog.Any("error", fmt.Errorf("$XDG_CONFIG_HOME is unset, fall back to home directory: %w", err)),
	)

	return tmpConfig
}
