package cli

import (
	"fmt"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/config"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/logger"
)

// ConfigureGlobalLogger initializes the process-wide logger from configuration.
func ConfigureGlobalLogger(cfg *config.Config) error {
	level := cfg.Logging.Level
	if cfg.LogVerbose() {
		level = "debug"
	}
	l, err := logger.NewLoggerWithLevel(level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(l)
	return nil
}
