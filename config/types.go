package config

import (
	"fmt"
	"time"

	"github.com/grovetools/pollwatch/pkg/paths"
	"github.com/grovetools/pollwatch/pkg/watch"
	"github.com/mitchellh/mapstructure"
)

// Config is the top-level pollwatch configuration.
type Config struct {
	Version string       `yaml:"version" toml:"version" jsonschema:"required,description=Configuration version (e.g. '1.0')"`
	Watch   WatchConfig  `yaml:"watch,omitempty" toml:"watch,omitempty" jsonschema:"description=Polling watcher settings"`
	Daemon  DaemonConfig `yaml:"daemon,omitempty" toml:"daemon,omitempty" jsonschema:"description=Background daemon settings"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`

	// Source is the file the configuration was loaded from, if any.
	Source string `yaml:"-" toml:"-" jsonschema:"-"`
}

// WatchConfig configures the drive and directory watchers.
type WatchConfig struct {
	PollIntervalMs   int           `yaml:"poll_interval_ms,omitempty" toml:"poll_interval_ms,omitempty" jsonschema:"description=Milliseconds between poll cycles,minimum=1,default=1000"`
	DriveWatcher     *bool         `yaml:"drive_watcher,omitempty" toml:"drive_watcher,omitempty" jsonschema:"description=Enable the drive watcher,default=true"`
	DirectoryWatcher *bool         `yaml:"directory_watcher,omitempty" toml:"directory_watcher,omitempty" jsonschema:"description=Enable the directory watcher,default=true"`
	Directory        string        `yaml:"directory,omitempty" toml:"directory,omitempty" jsonschema:"description=Initially monitored directory"`
	Ignore           []string      `yaml:"ignore,omitempty" toml:"ignore,omitempty" jsonschema:"description=Patterns of entry names left out of directory listings"`
	Backoff          BackoffConfig `yaml:"backoff,omitempty" toml:"backoff,omitempty" jsonschema:"description=Retry delay after failed poll cycles"`
}

// BackoffConfig bounds the retry delay after failed poll cycles.
type BackoffConfig struct {
	InitialMs int `yaml:"initial_ms,omitempty" toml:"initial_ms,omitempty" jsonschema:"minimum=1,default=1000"`
	MaxMs     int `yaml:"max_ms,omitempty" toml:"max_ms,omitempty" jsonschema:"minimum=1,default=30000"`
}

// DaemonConfig configures the background daemon.
type DaemonConfig struct {
	Socket     string `yaml:"socket,omitempty" toml:"socket,omitempty" jsonschema:"description=Unix socket path"`
	PidFile    string `yaml:"pid_file,omitempty" toml:"pid_file,omitempty" jsonschema:"description=PID file path"`
	DebounceMs int    `yaml:"debounce_ms,omitempty" toml:"debounce_ms,omitempty" jsonschema:"description=Delay before a changed config file is reloaded,minimum=0,default=200"`
}

const (
	DefaultPollIntervalMs = 1000
	DefaultBackoffInitial = 1000
	DefaultBackoffMax     = 30000
	DefaultDebounceMs     = 200
)

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}

	w := &c.Watch
	if w.PollIntervalMs == 0 {
		w.PollIntervalMs = DefaultPollIntervalMs
	}
	if w.DriveWatcher == nil {
		trueVal := true
		w.DriveWatcher = &trueVal
	}
	if w.DirectoryWatcher == nil {
		trueVal := true
		w.DirectoryWatcher = &trueVal
	}
	if w.Backoff.InitialMs == 0 {
		w.Backoff.InitialMs = DefaultBackoffInitial
	}
	if w.Backoff.MaxMs == 0 {
		w.Backoff.MaxMs = DefaultBackoffMax
	}

	if c.Daemon.DebounceMs == 0 {
		c.Daemon.DebounceMs = DefaultDebounceMs
	}
}

// SocketPath returns the configured socket or the default runtime location.
func (d DaemonConfig) SocketPath() string {
	if d.Socket != "" {
		return d.Socket
	}
	return paths.SocketPath()
}

// PidFilePath returns the configured pid file or the default state location.
func (d DaemonConfig) PidFilePath() string {
	if d.PidFile != "" {
		return d.PidFile
	}
	return paths.PidFilePath()
}

// PollInterval returns the configured interval as a duration.
func (w WatchConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMs) * time.Millisecond
}

// WatchOptions converts the configuration into controller options. Defaults
// are assumed to have been applied.
func (c *Config) WatchOptions() watch.Options {
	opts := watch.DefaultOptions()
	if c.Watch.PollIntervalMs > 0 {
		opts.PollInterval = c.Watch.PollInterval()
	}
	if c.Watch.DriveWatcher != nil {
		opts.DriveWatcherEnabled = *c.Watch.DriveWatcher
	}
	if c.Watch.DirectoryWatcher != nil {
		opts.DirectoryWatcherEnabled = *c.Watch.DirectoryWatcher
	}
	opts.Directory = watch.NormalizeDirectory(c.Watch.Directory)
	if c.Watch.Backoff.InitialMs > 0 {
		opts.Backoff.Initial = time.Duration(c.Watch.Backoff.InitialMs) * time.Millisecond
	}
	if c.Watch.Backoff.MaxMs > 0 {
		opts.Backoff.Max = time.Duration(c.Watch.Backoff.MaxMs) * time.Millisecond
	}
	return opts
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded pollwatch.yml into the provided target struct. The target must be a
// pointer. A missing key leaves target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
