// Package notifier turns classified review events into buffered Slack messages.
package notifier

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/events"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/logger"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/queue"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/router"
)

var routingMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gerrit_notifier_routing_misses_total",
	Help: "Total number of events dropped because no channel is interested",
})

// Notifier routes records into the outbound buffer. It never blocks on
// delivery; the flusher sends what accumulates.
type Notifier struct {
	router *router.Router
	buffer *queue.Buffer
	filter *events.Filter
	log    *logger.Logger
}

// New creates a notifier
func New(r *router.Router, buf *queue.Buffer, filter *events.Filter) *Notifier {
	if filter == nil {
		filter = events.NewFilter(events.FilterConfig{})
	}
	return &Notifier{
		router: r,
		buffer: buf,
		filter: filter,
		log:    logger.Get().With("component", "notifier"),
	}
}

// Process enqueues every notification rec triggers: its primary kind, a
// comment, and a merge, each independently.
func (n *Notifier) Process(_ context.Context, rec *events.Record) {
	if !n.filter.ShouldProcess(rec) {
		return
	}

	dests := n.router.DestinationsFor(rec.Project, rec.Owner)
	if len(dests) == 0 {
		routingMisses.Inc()
		n.log.Debugf("No channel for %s (owner %s), dropping %s", rec.Project, rec.Owner, rec.Type)
		return
	}

	if kind, ok := router.PrimaryMessage(rec.Kind); ok {
		n.Notify(dests, n.router.Format(kind, rec))
	}

	if rec.Commented {
		n.Notify(dests, n.router.Format(router.MsgComment, rec))
	}

	if rec.Merged {
		n.Notify(dests, n.router.Format(router.MsgMerged, rec))
	}
}

// Notify enqueues msg for every destination, decorated per channel
func (n *Notifier) Notify(dests []router.Destination, msg string) {
	for _, d := range dests {
		n.buffer.Enqueue(d, n.router.Decorate(d, msg))
	}
}

// NotifyUser enqueues a direct message to a Gerrit user's Slack handle
func (n *Notifier) NotifyUser(user, msg string) {
	n.buffer.Enqueue(n.router.DirectDestinationFor(user), msg)
}

// Announce enqueues msg for every configured channel
func (n *Notifier) Announce(msg string) {
	n.Notify(n.router.AllChannels(), msg)
}
