package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eventconnect/eventconnect/internal/alertfeed"
	"github.com/eventconnect/eventconnect/internal/api"
	"github.com/eventconnect/eventconnect/internal/notifier"
	"github.com/eventconnect/eventconnect/internal/presence"
	"github.com/eventconnect/eventconnect/internal/scheduler"
	"github.com/eventconnect/eventconnect/internal/webui"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the alert feed, presence timers and dashboard server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Create log buffer for web UI (captures last 1000 log entries)
	logBuffer := webui.NewLogBuffer(1000)
	logger := newLogger(os.Stdout, logBuffer)
	logger.Info().Msg("Starting EventConnect")

	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be := newBackend(cfg, logger)
	defer be.close()

	runner := scheduler.NewRunner(logger)

	notify := notifier.NewNotifier(os.Getenv(cfg.Notifications.AppriseURLEnv), cfg.Notifications.Channels, cfg.API.Timeout, logger)
	feed := alertfeed.New(be.client, logger, alertfeed.Options{
		DisplayLimit:   cfg.Feed.DisplayLimit,
		MaxConcurrency: cfg.Feed.MaxConcurrency,
		Clock:          runner.Clock(),
		OnReplace:      notify.OnReplace,
	})
	feedLoop, err := feed.Start(ctx, runner, cfg.Feed.PollInterval)
	if err != nil {
		return err
	}

	timers := presence.NewRegistry(be.client, runner, logger, cfg.Presence.PollInterval, cfg.Presence.TickInterval)
	server := api.NewServer(feed, timers, logBuffer, cfg.Server, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down")

		err := server.Shutdown(context.Background())
		if cerr := feedLoop.Cancel(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Alert feed did not stop cleanly")
		}
		notify.Wait()
		if cerr := timers.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Presence timers did not stop cleanly")
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("EventConnect stopped")
	return nil
}
