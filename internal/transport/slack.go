package transport

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Slack posts through the chat.postMessage Web API
type Slack struct {
	client *slack.Client
}

// NewSlack creates a Slack transport. opts are passed to slack.New,
// e.g. slack.OptionAPIURL in tests.
func NewSlack(token string, opts ...slack.Option) *Slack {
	return &Slack{client: slack.New(token, opts...)}
}

// Send posts msg as the configured identity
func (s *Slack) Send(ctx context.Context, msg Message) error {
	if msg.Text == "" {
		return ErrEmptyText
	}

	options := []slack.MsgOption{
		slack.MsgOptionText(msg.Text, false),
		slack.MsgOptionAsUser(false),
	}
	if msg.Identity.Username != "" {
		options = append(options, slack.MsgOptionUsername(msg.Identity.Username))
	}
	if msg.Identity.IconEmoji != "" {
		options = append(options, slack.MsgOptionIconEmoji(msg.Identity.IconEmoji))
	}

	if _, _, err := s.client.PostMessageContext(ctx, msg.Channel, options...); err != nil {
		return fmt.Errorf("slack post to %s: %w", msg.Channel, err)
	}
	return nil
}
