package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/events"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/logger"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/metrics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Listen to Gerrit events and post them to Slack",
		Long: `Listen to Gerrit stream-events and relay review activity to Slack.

The service runs two loops:
  - a listener reading stream-events, reconnecting whenever the stream drops
  - a flusher posting the buffered messages every flush.interval

Example config.yaml:
  routing:
    channels:
      backend:
        projects: [api, core]
        owners: [alice]
  flush:
    interval: 15s
`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	cfg := a.cfg
	log := logger.Get()
	defer log.Close()

	src := events.NewCommandSource(cfg.StreamArgs())

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "╔══════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║          Gerrit Notifier - Serve Mode               ║")
	fmt.Fprintln(out, "╚══════════════════════════════════════════════════════╝")
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "Stream:         %s\n", src)
	fmt.Fprintf(out, "Channels:       %v\n", cfg.ChannelNames())
	fmt.Fprintf(out, "Flush interval: %v\n", cfg.Flush.Interval)
	fmt.Fprintf(out, "Send interval:  %v\n", cfg.Flush.SendInterval)
	fmt.Fprintf(out, "Dry run:        %t\n", cfg.Slack.DryRun)
	if len(cfg.Slack.IgnoreWords) > 0 {
		fmt.Fprintf(out, "Ignore words:   %v\n", cfg.Slack.IgnoreWords)
	}
	if cfg.Metrics.Listen != "" {
		fmt.Fprintf(out, "Metrics:        %s\n", cfg.Metrics.Listen)
	}
	fmt.Fprintln(out, "")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener := events.NewListener(src, a.classifier, a.notifier.Process, events.ListenerOptions{
		ReconnectDelay: cfg.Gerrit.ReconnectDelay,
		DebugEvents:    cfg.DebugEvents,
	})

	return serve(ctx, a, listener, log)
}

// serve runs the listener and flusher until ctx is cancelled. The flusher
// sends whatever is still buffered before returning.
func serve(ctx context.Context, a *app, listener *events.Listener, log *logger.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := listener.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	a.flusher.Start(gctx)

	if addr := a.cfg.Metrics.Listen; addr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, addr)
		})
	}

	log.Info("Ready to relay events")

	err := g.Wait()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
	defer cancel()
	if stopErr := a.flusher.Stop(shutdownCtx); stopErr != nil {
		log.Errorf("Error stopping flusher: %v", stopErr)
	}

	return err
}
