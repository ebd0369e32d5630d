package transport

import (
	"context"
	"sync"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/logger"
)

// DryRun logs messages instead of posting them and remembers what it saw
type DryRun struct {
	mu   sync.Mutex
	sent []Message
	log  *logger.Logger
}

// NewDryRun creates a dry-run transport
func NewDryRun() *DryRun {
	return &DryRun{log: logger.Get().With("component", "dry-run")}
}

// Send records msg
func (d *DryRun) Send(_ context.Context, msg Message) error {
	if msg.Text == "" {
		return ErrEmptyText
	}
	d.mu.Lock()
	d.sent = append(d.sent, msg)
	d.mu.Unlock()

	d.log.Infof("[dry-run] %s as %s: %q", msg.Channel, msg.Identity.Username, msg.Text)
	return nil
}

// Sent returns a copy of every message sent so far
func (d *DryRun) Sent() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Message(nil), d.sent...)
}
