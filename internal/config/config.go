package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrNoChannels = errors.New("no channels configured")
)

// Config holds all configuration for gerrit-notifier
type Config struct {
	Gerrit      GerritConfig
	Slack       SlackConfig
	Messages    MessagesConfig
	Routing     RoutingConfig
	Flush       FlushConfig
	Logging     LoggingConfig
	Metrics     MetricsConfig
	DebugEvents bool // Log every parsed event record with its raw JSON
}

// GerritConfig holds the event stream settings
type GerritConfig struct {
	SSHAlias       string        // SSH alias from ~/.ssh/config
	StreamCommand  []string      // Full argv of the stream command; overrides SSHAlias when set
	ReconnectDelay time.Duration // Wait between a lost stream and the next connect
}

// SlackConfig holds transport credentials and the posting identity
type SlackConfig struct {
	Token       string
	Username    string
	IconEmoji   string
	DryRun      bool     // Log messages instead of posting them
	IgnoreWords []string // Messages containing any of these are never sent
}

// MessagesConfig holds rendering settings for notification lines
type MessagesConfig struct {
	LineBreak string
	Icons     Icons
}

// Icons are the emoji prefixed to each kind of notification
type Icons struct {
	Patchset string `mapstructure:"patchset"`
	Plus     string `mapstructure:"plus"`
	Minus    string `mapstructure:"minus"`
	NoScore  string `mapstructure:"noscore"`
	Comment  string `mapstructure:"comment"`
	Merge    string `mapstructure:"merge"`
}

// RoutingConfig maps projects and owners onto Slack destinations.
//
// Viper lower-cases map keys, so channel names and usernames are matched
// case-insensitively.
type RoutingConfig struct {
	Channels map[string]ChannelRule
	Users    map[string]string // gerrit username -> slack handle
	Bots     []string          // usernames or emails of automated accounts
	Exclude  []string          // projects never notified about
}

// ChannelRule selects the events a channel is interested in
type ChannelRule struct {
	Projects []string `mapstructure:"projects"` // "*" matches every project
	Owners   []string `mapstructure:"owners"`
	Emoji    string   `mapstructure:"emoji"`
}

// FlushConfig holds buffering and pacing settings
type FlushConfig struct {
	Interval     time.Duration // Time between buffer flushes
	SendInterval time.Duration // Minimum gap between two posts
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level   string
	Verbose bool
	File    string
}

// MetricsConfig holds the prometheus endpoint settings
type MetricsConfig struct {
	Listen string // Empty disables the endpoint
}

// LoadDotEnv loads a .env file into the process environment if present.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from Viper (config file or env vars)
func LoadConfig() (*Config, error) {
	BindEnvVars()
	return buildConfig()
}

// BindEnvVars binds environment variable names to viper keys
func BindEnvVars() {
	viper.BindEnv("gerrit.ssh_alias", "GERRIT_SSH_ALIAS")
	viper.BindEnv("slack.token", "SLACK_TOKEN")
	viper.BindEnv("slack.username", "SLACK_USERNAME")
	viper.BindEnv("slack.icon_emoji", "SLACK_ICON_EMOJI")
	viper.BindEnv("slack.dry_run", "SLACK_DRY_RUN")
	viper.BindEnv("flush.interval", "FLUSH_INTERVAL")
	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("logging.verbose", "LOG_VERBOSE")
	viper.BindEnv("logging.file", "LOG_FILE")
	viper.BindEnv("metrics.listen", "METRICS_LISTEN")
	viper.BindEnv("debug_events", "DEVELOPMENT")
}

// initViperDefaults sets default values
func initViperDefaults() {
	viper.SetDefault("gerrit.ssh_alias", "gerrit")
	viper.SetDefault("gerrit.reconnect_delay", 3*time.Second)
	viper.SetDefault("slack.username", "gerrit")
	viper.SetDefault("slack.icon_emoji", ":gerrit:")
	viper.SetDefault("slack.dry_run", false)
	viper.SetDefault("messages.line_break", "\r\n>")
	viper.SetDefault("messages.icons.patchset", ":memo:")
	viper.SetDefault("messages.icons.plus", ":white_check_mark:")
	viper.SetDefault("messages.icons.minus", ":x:")
	viper.SetDefault("messages.icons.noscore", ":neutral_face:")
	viper.SetDefault("messages.icons.comment", ":speech_balloon:")
	viper.SetDefault("messages.icons.merge", ":tada:")
	viper.SetDefault("flush.interval", 15*time.Second)
	viper.SetDefault("flush.send_interval", time.Second)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.verbose", false)
	viper.SetDefault("debug_events", false)
}

// buildConfig constructs a Config from current Viper state
func buildConfig() (*Config, error) {
	initViperDefaults()

	cfg := &Config{
		Gerrit: GerritConfig{
			SSHAlias:       viper.GetString("gerrit.ssh_alias"),
			StreamCommand:  viper.GetStringSlice("gerrit.stream_command"),
			ReconnectDelay: viper.GetDuration("gerrit.reconnect_delay"),
		},
		Slack: SlackConfig{
			Token:       viper.GetString("slack.token"),
			Username:    viper.GetString("slack.username"),
			IconEmoji:   viper.GetString("slack.icon_emoji"),
			DryRun:      viper.GetBool("slack.dry_run"),
			IgnoreWords: viper.GetStringSlice("slack.ignore_words"),
		},
		Messages: MessagesConfig{
			LineBreak: viper.GetString("messages.line_break"),
		},
		Routing: RoutingConfig{
			Users:   lowerKeys(viper.GetStringMapString("routing.users")),
			Bots:    viper.GetStringSlice("routing.bots"),
			Exclude: viper.GetStringSlice("routing.exclude"),
		},
		Flush: FlushConfig{
			Interval:     viper.GetDuration("flush.interval"),
			SendInterval: viper.GetDuration("flush.send_interval"),
		},
		Logging: LoggingConfig{
			Level:   viper.GetString("logging.level"),
			Verbose: viper.GetBool("logging.verbose"),
			File:    viper.GetString("logging.file"),
		},
		Metrics: MetricsConfig{
			Listen: viper.GetString("metrics.listen"),
		},
		DebugEvents: viper.GetBool("debug_events"),
	}

	if err := viper.UnmarshalKey("messages.icons", &cfg.Messages.Icons); err != nil {
		return nil, fmt.Errorf("invalid messages.icons: %w", err)
	}
	if err := viper.UnmarshalKey("routing.channels", &cfg.Routing.Channels); err != nil {
		return nil, fmt.Errorf("invalid routing.channels: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Routing.Channels) == 0 {
		return fmt.Errorf("routing.channels: %w", ErrNoChannels)
	}

	for name := range c.Routing.Channels {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("routing.channels contains an empty channel name")
		}
	}

	if !c.Slack.DryRun && c.Slack.Token == "" {
		return fmt.Errorf("slack.token is required unless slack.dry_run is set")
	}

	if len(c.Gerrit.StreamCommand) == 0 && c.Gerrit.SSHAlias == "" {
		return fmt.Errorf("gerrit.ssh_alias or gerrit.stream_command is required")
	}

	if c.Flush.Interval <= 0 {
		return fmt.Errorf("flush.interval must be positive")
	}

	if c.Flush.SendInterval < 0 {
		return fmt.Errorf("flush.send_interval must not be negative")
	}

	if c.Gerrit.ReconnectDelay < 0 {
		return fmt.Errorf("gerrit.reconnect_delay must not be negative")
	}

	return nil
}

// StreamArgs returns the argv of the command producing the event stream
func (c *Config) StreamArgs() []string {
	if len(c.Gerrit.StreamCommand) > 0 {
		return append([]string(nil), c.Gerrit.StreamCommand...)
	}
	// ssh gerrit -o ServerAliveInterval=30 -o ServerAliveCountMax=3 gerrit stream-events
	return []string{
		"ssh", c.Gerrit.SSHAlias,
		"-o", "ServerAliveInterval=30",
		"-o", "ServerAliveCountMax=3",
		"gerrit", "stream-events",
	}
}

// ChannelNames returns the configured channel names in sorted order
func (c *Config) ChannelNames() []string {
	names := make([]string, 0, len(c.Routing.Channels))
	for name := range c.Routing.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LogVerbose reports whether debug logging is requested
func (c *Config) LogVerbose() bool {
	if c.Logging.Verbose {
		return true
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return level == "debug" || level == "trace"
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
