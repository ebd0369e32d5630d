// Package transport posts rendered notifications to the chat platform.
package transport

import (
	"context"
	"errors"
)

var ErrEmptyText = errors.New("empty message text")

// Identity is the name and icon the bot posts as
type Identity struct {
	Username  string
	IconEmoji string
}

// Message is one post
type Message struct {
	Text     string
	Channel  string // "#channel" or "@handle"
	Identity Identity
}

// Transport delivers a single message. Implementations must be safe to call
// repeatedly with the same message and must report failures as errors.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}
