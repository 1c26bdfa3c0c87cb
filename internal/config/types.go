package config

import "time"

// Config represents the complete EventConnect live-data configuration
type Config struct {
	API           APIConfig          `yaml:"api"`
	Credentials   CredentialsConfig  `yaml:"credentials"`
	Feed          FeedConfig         `yaml:"feed"`
	Presence      PresenceConfig     `yaml:"presence"`
	Server        ServerConfig       `yaml:"server"`
	Notifications NotificationConfig `yaml:"notifications,omitempty"`
}

// APIConfig points at the EventConnect backend
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CredentialsConfig selects where the bearer token comes from.
// The first non-empty source wins: token, token_env, token_file, redis.
type CredentialsConfig struct {
	Token     string       `yaml:"token,omitempty"`
	TokenEnv  string       `yaml:"token_env,omitempty"`
	TokenFile string       `yaml:"token_file,omitempty"`
	Redis     *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig locates a session token stored in redis
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env,omitempty"`
	DB          int    `yaml:"db,omitempty"`
	Key         string `yaml:"key"`
}

// FeedConfig controls the alert feed polling loop
type FeedConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	DisplayLimit   int           `yaml:"display_limit"`
	MaxConcurrency int           `yaml:"max_concurrency"`
}

// PresenceConfig controls participant timer polling and local ticking
type PresenceConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	TickInterval time.Duration `yaml:"tick_interval"`
}

// ServerConfig controls the dashboard HTTP server
type ServerConfig struct {
	Port          string `yaml:"port"`
	RequireMobile bool   `yaml:"require_mobile,omitempty"`
}

// NotificationConfig routes newly arrived alerts to Apprise channels
type NotificationConfig struct {
	AppriseURLEnv string   `yaml:"apprise_url_env,omitempty"`
	Channels      []string `yaml:"channels,omitempty"`
}
