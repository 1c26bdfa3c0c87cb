package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL        = "http://localhost:5000"
	defaultAPITimeout     = 10 * time.Second
	defaultTokenEnv       = "EVENTCONNECT_TOKEN"
	defaultFeedInterval   = 30 * time.Second
	defaultDisplayLimit   = 10
	defaultMaxConcurrency = 8
	defaultPresencePoll   = 2 * time.Second
	defaultPresenceTick   = 1 * time.Second
	defaultPort           = "8088"
	defaultAppriseURLEnv  = "APPRISE_API_URL"
	defaultRedisTokenKey  = "eventconnect:session:token"
)

// LoadConfig loads configuration from a YAML file. A missing file is not an
// error: the defaults plus environment overrides are returned instead.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("loading %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadYAML loads a YAML file into a struct
func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("EVENTCONNECT_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("API_PORT"); v != "" {
		cfg.Server.Port = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaultBaseURL
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = defaultAPITimeout
	}

	c := &cfg.Credentials
	if c.Token == "" && c.TokenEnv == "" && c.TokenFile == "" && c.Redis == nil {
		c.TokenEnv = defaultTokenEnv
	}
	if c.Redis != nil && c.Redis.Key == "" {
		c.Redis.Key = defaultRedisTokenKey
	}

	if cfg.Feed.PollInterval == 0 {
		cfg.Feed.PollInterval = defaultFeedInterval
	}
	if cfg.Feed.DisplayLimit == 0 {
		cfg.Feed.DisplayLimit = defaultDisplayLimit
	}
	if cfg.Feed.MaxConcurrency == 0 {
		cfg.Feed.MaxConcurrency = defaultMaxConcurrency
	}

	if cfg.Presence.PollInterval == 0 {
		cfg.Presence.PollInterval = defaultPresencePoll
	}
	if cfg.Presence.TickInterval == 0 {
		cfg.Presence.TickInterval = defaultPresenceTick
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = defaultPort
	}
	if cfg.Notifications.AppriseURLEnv == "" {
		cfg.Notifications.AppriseURLEnv = defaultAppriseURLEnv
	}
}

// ValidateConfig validates the configuration
func ValidateConfig(cfg *Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q must be an absolute URL", cfg.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url: unsupported scheme %q", u.Scheme)
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}

	if r := cfg.Credentials.Redis; r != nil && r.Addr == "" {
		return fmt.Errorf("credentials.redis: addr is required")
	}

	if cfg.Feed.PollInterval < time.Second {
		return fmt.Errorf("feed.poll_interval must be at least 1s, got %s", cfg.Feed.PollInterval)
	}
	if cfg.Feed.DisplayLimit < 0 {
		return fmt.Errorf("feed.display_limit must not be negative")
	}
	if cfg.Feed.MaxConcurrency < 1 {
		return fmt.Errorf("feed.max_concurrency must be > 0")
	}

	if cfg.Presence.PollInterval <= 0 || cfg.Presence.TickInterval <= 0 {
		return fmt.Errorf("presence intervals must be > 0")
	}
	if cfg.Presence.TickInterval > cfg.Presence.PollInterval {
		return fmt.Errorf("presence.tick_interval (%s) must not exceed poll_interval (%s)",
			cfg.Presence.TickInterval, cfg.Presence.PollInterval)
	}

	for i, ch := range cfg.Notifications.Channels {
		if ch == "" {
			return fmt.Errorf("notifications.channels[%d]: name is required", i)
		}
	}

	return nil
}
