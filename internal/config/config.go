package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultLookahead     = 2 * time.Second
	DefaultCommandBuffer = 16
)

// Config holds the engine and host settings.
// Values come from defaults, then the YAML file, then IPLAYER_* environment variables.
type Config struct {
	// PollInterval is the fixed wall-clock period between scheduler ticks.
	PollInterval time.Duration `yaml:"poll_interval" env:"IPLAYER_POLL_INTERVAL"`
	// Lookahead bounds how far ahead upcoming triggers are logged.
	Lookahead time.Duration `yaml:"lookahead" env:"IPLAYER_LOOKAHEAD"`
	// CommandBuffer is the capacity of the session's choice/seek queue.
	CommandBuffer int `yaml:"command_buffer" env:"IPLAYER_COMMAND_BUFFER"`
	// RequireSingleVideo rejects documents that carry moments for more than one video.
	RequireSingleVideo bool `yaml:"require_single_video" env:"IPLAYER_REQUIRE_SINGLE_VIDEO"`

	LogLevel  string `yaml:"log_level" env:"IPLAYER_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"IPLAYER_LOG_FORMAT"`

	// MediaDir is where the host looks for a video and its moments document.
	MediaDir string `yaml:"media_dir" env:"IPLAYER_MEDIA_DIR"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PollInterval:  DefaultPollInterval,
		Lookahead:     DefaultLookahead,
		CommandBuffer: DefaultCommandBuffer,
		LogLevel:      "info",
		LogFormat:     "json",
		MediaDir:      ".",
	}
}

// Load builds the configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.Lookahead < 0 {
		errs = append(errs, fmt.Errorf("lookahead must not be negative, got %s", c.Lookahead))
	}
	if c.CommandBuffer < 1 {
		errs = append(errs, fmt.Errorf("command_buffer must be at least 1, got %d", c.CommandBuffer))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log_format must be json or text, got %q", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
