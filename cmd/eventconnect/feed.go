package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/eventconnect/eventconnect/internal/alertfeed"
	"github.com/eventconnect/eventconnect/internal/scheduler"
	"github.com/spf13/cobra"
)

var feedWatch bool

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print the current unacknowledged alerts",
	Long:  `Poll the backend once and print the alert badge count and dropdown items as JSON. With --watch, keep polling and print every refresh.`,
	RunE:  runFeed,
}

func init() {
	feedCmd.Flags().BoolVar(&feedWatch, "watch", false, "Keep polling at feed.poll_interval")
	rootCmd.AddCommand(feedCmd)
}

type feedOutput struct {
	UnreadCount int              `json:"unreadCount"`
	Items       []alertfeed.Item `json:"alerts"`
}

func printFeed(w io.Writer, feed *alertfeed.Feed) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(feedOutput{UnreadCount: feed.UnreadCount(), Items: feed.Items()})
}

func runFeed(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr, nil)
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be := newBackend(cfg, logger)
	defer be.close()

	opts := alertfeed.Options{
		DisplayLimit:   cfg.Feed.DisplayLimit,
		MaxConcurrency: cfg.Feed.MaxConcurrency,
	}
	out := cmd.OutOrStdout()

	if !feedWatch {
		feed := alertfeed.New(be.client, logger, opts)
		if err := feed.Poll(ctx); err != nil {
			return err
		}
		return printFeed(out, feed)
	}

	var feed *alertfeed.Feed
	opts.OnReplace = func(context.Context, alertfeed.Replacement) {
		if err := printFeed(out, feed); err != nil {
			logger.Error().Err(err).Msg("Failed to print feed")
		}
	}
	feed = alertfeed.New(be.client, logger, opts)

	loop, err := feed.Start(ctx, scheduler.NewRunner(logger), cfg.Feed.PollInterval)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return loop.Cancel()
}
