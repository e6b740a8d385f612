package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAdapterScriptURL is the trusted installer script for the
	// vsdbg debug adapter.
	DefaultAdapterScriptURL = "https://aka.ms/getvsdbgsh"
)

// DeployConfig holds settings for remote provisioning and upload.
type DeployConfig struct {
	// Root is the remote deploy root. Empty means the remote user's home.
	Root string `yaml:"root,omitempty"`
	// AdapterScriptURL is the URL of the debug adapter installer script.
	AdapterScriptURL string `yaml:"adapter_script_url,omitempty"`
	// ConnectTimeout bounds the SSH dial.
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	// CommandTimeout bounds a single remote command (downloads included).
	CommandTimeout time.Duration `yaml:"command_timeout,omitempty"`
}

// FrontEndConfig holds settings for the external debug front-end.
type FrontEndConfig struct {
	// Command is the front-end binary invoked with the launch descriptor path.
	Command string `yaml:"command,omitempty"`
	// Args are extra arguments placed before the descriptor path.
	Args []string `yaml:"args,omitempty"`
}

// NotificationConfig holds settings for desktop notifications.
type NotificationConfig struct {
	// Enabled enables desktop notifications.
	Enabled bool `yaml:"enabled,omitempty"`
	// OnSuccess sends a notification when a deploy completes.
	OnSuccess bool `yaml:"on_success,omitempty"`
	// OnFailure sends a notification when a deploy fails.
	OnFailure bool `yaml:"on_failure,omitempty"`
}

// LogConfig holds settings for the diagnostic log.
type LogConfig struct {
	// File is the diagnostic log file path. Empty disables the file log.
	File string `yaml:"file,omitempty"`
	// Level is the logging level (debug, info, warn, error).
	Level string `yaml:"level,omitempty"`
}

// Config represents the raspdbg configuration.
type Config struct {
	// Deploy holds remote provisioning settings.
	Deploy DeployConfig `yaml:"deploy,omitempty"`
	// FrontEnd holds debug front-end settings.
	FrontEnd FrontEndConfig `yaml:"frontend,omitempty"`
	// Notifications holds notification settings.
	Notifications NotificationConfig `yaml:"notifications,omitempty"`
	// Log holds diagnostic log settings.
	Log LogConfig `yaml:"log,omitempty"`

	// filePath is the path where this config was loaded from.
	filePath string `yaml:"-"`
}

// Default returns a new Config with default values.
func Default() *Config {
	paths := GetPaths()
	return &Config{
		Deploy: DeployConfig{
			AdapterScriptURL: DefaultAdapterScriptURL,
			ConnectTimeout:   10 * time.Second,
			CommandTimeout:   5 * time.Minute,
		},
		Notifications: NotificationConfig{
			Enabled:   false,
			OnSuccess: true,
			OnFailure: true,
		},
		filePath: paths.ConfigFile,
	}
}

// Load loads the configuration from the default path.
func Load() (*Config, error) {
	paths := GetPaths()
	return LoadFrom(paths.ConfigFile)
}

// LoadFrom loads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.filePath = path

	// #nosec G304 - path is the config file path (controlled, from user config directory)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults for missing deploy values
	if cfg.Deploy.AdapterScriptURL == "" {
		cfg.Deploy.AdapterScriptURL = DefaultAdapterScriptURL
	}
	if cfg.Deploy.ConnectTimeout == 0 {
		cfg.Deploy.ConnectTimeout = 10 * time.Second
	}
	if cfg.Deploy.CommandTimeout == 0 {
		cfg.Deploy.CommandTimeout = 5 * time.Minute
	}

	return cfg, nil
}

// Save writes the configuration to its file path.
func (c *Config) Save() error {
	if c.filePath == "" {
		return errors.New("config file path not set")
	}

	// Ensure the directory exists
	paths := GetPaths()
	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FilePath returns the path where this config was loaded from.
func (c *Config) FilePath() string {
	return c.filePath
}
