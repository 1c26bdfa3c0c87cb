package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/eventconnect/eventconnect/internal/presence"
	"github.com/eventconnect/eventconnect/internal/scheduler"
	"github.com/spf13/cobra"
)

var timerOnce bool

var timerCmd = &cobra.Command{
	Use:   "timer <participantId>",
	Short: "Follow one participant's time-outside countdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimer,
}

func init() {
	timerCmd.Flags().BoolVar(&timerOnce, "once", false, "Poll once, print the view and exit")
	rootCmd.AddCommand(timerCmd)
}

func runTimer(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr, nil)
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be := newBackend(cfg, logger)
	defer be.close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	var opts presence.Options
	if !timerOnce {
		opts.OnChange = func(v presence.View) {
			if err := enc.Encode(v); err != nil {
				logger.Error().Err(err).Msg("Failed to print timer view")
			}
		}
	}
	timer := presence.NewTimer(args[0], be.client, logger, opts)

	if timerOnce {
		if err := timer.Poll(ctx); err != nil {
			return err
		}
		return enc.Encode(timer.View())
	}

	loops, err := timer.Start(ctx, scheduler.NewRunner(logger), cfg.Presence.PollInterval, cfg.Presence.TickInterval)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return loops.Cancel()
}
