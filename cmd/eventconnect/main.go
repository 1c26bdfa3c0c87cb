package main

import (
	"fmt"
	"io"
	"os"

	"github.com/eventconnect/eventconnect/internal/config"
	"github.com/eventconnect/eventconnect/internal/eventapi"
	"github.com/eventconnect/eventconnect/internal/session"
	"github.com/eventconnect/eventconnect/internal/version"
	"github.com/eventconnect/eventconnect/internal/webui"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "eventconnect",
	Short:         "Live alert feed and presence timers for EventConnect",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/config/eventconnect.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newLogger writes JSON lines to out and, when set, to the web UI buffer
func newLogger(out io.Writer, logBuffer *webui.LogBuffer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if logBuffer != nil {
		out = io.MultiWriter(out, logBuffer)
	}
	info := version.Get()
	return zerolog.New(out).With().
		Timestamp().
		Str("version", info.Version).
		Str("commit", info.Commit).
		Logger()
}

// backend bundles the backend client with the resources behind its session
type backend struct {
	client *eventapi.Client
	close  func() error
}

func newBackend(cfg *config.Config, logger zerolog.Logger) *backend {
	source, closeFn := tokenSource(cfg.Credentials)
	sess := session.New(source)
	return &backend{
		client: eventapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout, sess, logger),
		close:  closeFn,
	}
}

// tokenSource picks the first configured credential source
func tokenSource(c config.CredentialsConfig) (session.TokenSource, func() error) {
	noop := func() error { return nil }
	switch {
	case c.Token != "":
		return session.StaticToken(c.Token), noop
	case c.TokenEnv != "":
		return session.EnvToken(c.TokenEnv), noop
	case c.TokenFile != "":
		return session.FileToken(c.TokenFile), noop
	case c.Redis != nil:
		var password string
		if c.Redis.PasswordEnv != "" {
			password = os.Getenv(c.Redis.PasswordEnv)
		}
		rt := session.NewRedisToken(redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: password,
			DB:       c.Redis.DB,
		}), c.Redis.Key)
		return rt, rt.Close
	default:
		return nil, noop
	}
}

func loadConfig(logger zerolog.Logger) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	logger.Info().
		Str("config_path", configPath).
		Str("api_url", cfg.API.BaseURL).
		Dur("feed_interval", cfg.Feed.PollInterval).
		Msg("Configuration loaded")
	return cfg, nil
}
