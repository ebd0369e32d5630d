// Package dispatch sends drained buffer snapshots through a transport.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/logger"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/queue"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/transport"
)

// Options configures a Dispatcher
type Options struct {
	IgnoreWords  []string           // Case-sensitive substrings that suppress a message
	Identity     transport.Identity // Name and icon to post as
	SendInterval time.Duration      // Minimum gap between two sends, across all destinations
}

// Result summarizes one SendBatch call
type Result struct {
	Sent       int `json:"sent"`
	Suppressed int `json:"suppressed"`
	Failed     int `json:"failed"`
}

func (r Result) String() string {
	return fmt.Sprintf("sent=%d suppressed=%d failed=%d", r.Sent, r.Suppressed, r.Failed)
}

// Dispatcher delivers messages one at a time. It is meant to be driven by a
// single goroutine; the limiter is shared across batches so the pacing holds
// between flush cycles too.
type Dispatcher struct {
	transport transport.Transport
	opts      Options
	limiter   *rate.Limiter
	log       *logger.Logger
}

// New creates a dispatcher
func New(t transport.Transport, opts Options) *Dispatcher {
	limit := rate.Inf
	if opts.SendInterval > 0 {
		limit = rate.Every(opts.SendInterval)
	}
	return &Dispatcher{
		transport: t,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
		log:       logger.Get().With("component", "dispatcher"),
	}
}

// Ignored reports whether msg contains any ignore word
func (d *Dispatcher) Ignored(msg string) bool {
	for _, w := range d.opts.IgnoreWords {
		if w != "" && strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

// SendBatch sends every message of snap in order. Suppressed messages are
// dropped, failed sends are logged and not retried. Only ctx cancellation
// stops the batch early; the unsent remainder is counted as failed.
func (d *Dispatcher) SendBatch(ctx context.Context, snap queue.Snapshot) Result {
	var res Result

	for _, batch := range snap {
		channel := batch.Destination.String()
		for i, text := range batch.Messages {
			if d.Ignored(text) {
				res.Suppressed++
				messagesSuppressed.Inc()
				d.log.Debugf("Suppressed message to %s", channel)
				continue
			}

			if err := d.limiter.Wait(ctx); err != nil {
				remaining := len(batch.Messages) - i + remainingAfter(snap, batch)
				res.Failed += remaining
				messagesFailed.Add(float64(remaining))
				d.log.Warnf("Dispatch interrupted, %d message(s) not sent: %v", remaining, err)
				return res
			}

			err := d.transport.Send(ctx, transport.Message{
				Text:     text,
				Channel:  channel,
				Identity: d.opts.Identity,
			})
			if err != nil {
				res.Failed++
				messagesFailed.Inc()
				d.log.Warnf("Failed to send to %s: %v", channel, err)
				continue
			}
			res.Sent++
			messagesSent.Inc()
		}
	}

	return res
}

// remainingAfter counts the messages of the batches following cur
func remainingAfter(snap queue.Snapshot, cur queue.Batch) int {
	n, after := 0, false
	for _, b := range snap {
		if after {
			n += len(b.Messages)
		}
		if b.Destination == cur.Destination {
			after = true
		}
	}
	return n
}
