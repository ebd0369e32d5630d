package cli

import (
	"github.com/spf13/cobra"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/config"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/router"
)

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes <project> [owner]",
		Short: "Show the destinations an event on project would reach",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd.OutOrStdout(), format, "routes", func() (interface{}, error) {
				cfg, err := config.LoadConfig()
				if err != nil {
					return nil, err
				}
				owner := ""
				if len(args) > 1 {
					owner = args[1]
				}

				dests := router.New(cfg.Routing, cfg.Messages).DestinationsFor(args[0], owner)
				out := make([]string, 0, len(dests))
				for _, d := range dests {
					out = append(out, d.String())
				}
				return out, nil
			})
		},
	}
}
