package cli

import (
	"fmt"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/config"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/dispatch"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/events"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/notifier"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/queue"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/router"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/transport"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/worker"
)

// app holds the wired components shared by every command
type app struct {
	cfg        *config.Config
	router     *router.Router
	buffer     *queue.Buffer
	notifier   *notifier.Notifier
	classifier *events.Classifier
	dispatcher *dispatch.Dispatcher
	flusher    *worker.Flusher
	transport  transport.Transport
}

// loadApp loads configuration, configures logging and wires the components.
// Any configuration problem is returned before anything starts.
func loadApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := ConfigureGlobalLogger(cfg); err != nil {
		return nil, err
	}
	return newApp(cfg, nil), nil
}

// newApp wires components from cfg. A nil transport selects Slack, or the
// dry-run transport when configured.
func newApp(cfg *config.Config, t transport.Transport) *app {
	if t == nil {
		if cfg.Slack.DryRun {
			t = transport.NewDryRun()
		} else {
			t = transport.NewSlack(cfg.Slack.Token)
		}
	}

	r := router.New(cfg.Routing, cfg.Messages)
	buf := queue.NewBuffer()
	d := dispatch.New(t, dispatch.Options{
		IgnoreWords: cfg.Slack.IgnoreWords,
		Identity: transport.Identity{
			Username:  cfg.Slack.Username,
			IconEmoji: cfg.Slack.IconEmoji,
		},
		SendInterval: cfg.Flush.SendInterval,
	})

	return &app{
		cfg:        cfg,
		router:     r,
		buffer:     buf,
		notifier:   notifier.New(r, buf, events.NewFilter(events.FilterConfig{Exclude: cfg.Routing.Exclude})),
		classifier: events.NewClassifier(cfg.Routing.Bots),
		dispatcher: d,
		flusher:    worker.NewFlusher(buf, d, cfg.Flush.Interval),
		transport:  t,
	}
}
