package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/config"
)

var (
	cfgFile string
	envFile string
	format  string
	version string
)

// Execute runs the gerrit-notifier CLI
func Execute(ver string) error {
	version = ver
	cmd := NewRootCmd()
	cmd.Version = ver
	return cmd.Execute()
}

// NewRootCmd creates the root command for gerrit-notifier
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gerrit-notifier",
		Short: "Relay Gerrit review events to Slack",
		Long: `gerrit-notifier listens to Gerrit stream-events and posts review activity
to Slack channels.

Events are routed to channels by project and change owner, buffered per
channel, and flushed on a fixed interval to keep channel noise down.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with credentials")
	cmd.PersistentFlags().StringVar(&format, "format", "text", "Output format for one-shot commands: json or text")
	cmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("dry-run", false, "Log messages instead of posting to Slack")
	viper.BindPFlag("logging.verbose", cmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("slack.dry_run", cmd.PersistentFlags().Lookup("dry-run"))

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAnnounceCmd())
	cmd.AddCommand(newNotifyUserCmd())
	cmd.AddCommand(newRoutesCmd())

	return cmd
}

// initConfig reads in config file and ENV variables if set
func initConfig() error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Search config in:
		// 1. Current directory (highest priority for local config)
		// 2. $HOME/.config/gerrit-notifier/
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.config/gerrit-notifier")
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	config.BindEnvVars()

	if err := viper.ReadInConfig(); err != nil {
		// An explicit --config must exist; the search path may come up empty
		// when everything is provided through the environment.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}
