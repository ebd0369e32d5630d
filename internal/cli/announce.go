package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// oneShotTimeout bounds announce and notify-user
const oneShotTimeout = 2 * time.Minute

func newAnnounceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "announce <message>",
		Short: "Post a message to every configured channel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			msg := strings.Join(args, " ")
			return runCommand(cmd.OutOrStdout(), format, "announce", func() (interface{}, error) {
				a.notifier.Announce(msg)
				return a.flushNow(cmd.Context())
			})
		},
	}
}

func newNotifyUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify-user <gerrit-user> <message>",
		Short: "Send a direct message to a Gerrit user's Slack handle",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			msg := strings.Join(args[1:], " ")
			return runCommand(cmd.OutOrStdout(), format, "notify-user", func() (interface{}, error) {
				a.notifier.NotifyUser(args[0], msg)
				return a.flushNow(cmd.Context())
			})
		},
	}
}

// flushNow sends the buffer immediately instead of waiting for a cycle
func (a *app) flushNow(ctx context.Context) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, oneShotTimeout)
	defer cancel()

	return a.flusher.FlushOnce(ctx), nil
}
