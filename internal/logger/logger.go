package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	globalLogger *Logger
	once         sync.Once
	globalMu     sync.RWMutex
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Logger provides leveled logging for the notifier.
//
// Console output goes to stderr through zerolog's ConsoleWriter. When a log
// file is configured it receives JSON lines, one object per entry.
type Logger struct {
	verbose bool
	logFile *os.File
	zl      zerolog.Logger
}

// NewLogger creates a new logger instance
func NewLogger(verbose bool, logFilePath string) (*Logger, error) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return newLogger(level, logFilePath)
}

// NewLoggerWithLevel creates a logger from a textual level ("debug", "info", ...).
// Unknown levels fall back to info.
func NewLoggerWithLevel(level, logFilePath string) (*Logger, error) {
	return newLogger(ParseLevel(level), logFilePath)
}

func newLogger(level zerolog.Level, logFilePath string) (*Logger, error) {
	zerolog.ErrorFieldName = "err"

	l := &Logger{verbose: level <= zerolog.DebugLevel}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: consoleTimeFormat}

	var w io.Writer = console
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.logFile = f

		// Mirror to stderr only when verbose, like the file-only default.
		if l.verbose {
			w = zerolog.MultiLevelWriter(console, f)
		} else {
			w = f
		}
	}

	l.zl = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return l, nil
}

// ParseLevel maps a level name onto a zerolog level.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// With returns a child logger tagging every entry with key=value.
// The child shares the parent's file handle; only the parent should be closed.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{
		verbose: l.verbose,
		zl:      l.zl.With().Str(key, value).Logger(),
	}
}

// Close closes the log file if open
func (l *Logger) Close() error {
	if l.logFile != nil {
		err := l.logFile.Close()
		l.logFile = nil // Prevent double close
		return err
	}
	return nil
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// Debug logs a debug message (only if verbose)
func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

// Step logs a step in the process with timing
func (l *Logger) Step(name string) *Step {
	return &Step{
		logger:    l,
		name:      name,
		startTime: time.Now(),
	}
}

// Infof is an alias for Info (for compatibility)
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(format, args...)
}

// Errorf is an alias for Error (for compatibility)
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(format, args...)
}

// Debugf is an alias for Debug (for compatibility)
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(format, args...)
}

// Warnf is an alias for Warn (for compatibility)
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Warn(format, args...)
}

// Get returns the global logger instance, creating it if necessary
func Get() *Logger {
	once.Do(func() {
		l, _ := NewLoggerWithLevel(defaultLevelFromEnv(), "")
		globalMu.Lock()
		if globalLogger == nil {
			globalLogger = l
		}
		globalMu.Unlock()
	})
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetGlobal sets the global logger instance
func SetGlobal(l *Logger) {
	once.Do(func() {})
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// Step represents a timed step in the process
type Step struct {
	logger    *Logger
	name      string
	startTime time.Time
}

// Complete marks the step as complete and logs the duration
func (s *Step) Complete() {
	duration := time.Since(s.startTime)
	s.logger.zl.Info().Dur("elapsed", duration).Msgf("%s completed in %.2fs", s.name, duration.Seconds())
}

// Fail marks the step as failed and logs the error
func (s *Step) Fail(err error) {
	duration := time.Since(s.startTime)
	s.logger.zl.Error().Err(err).Dur("elapsed", duration).Msgf("%s failed after %.2fs", s.name, duration.Seconds())
}

func defaultLevelFromEnv() string {
	if parseBoolEnv(os.Getenv("GERRIT_NOTIFIER_DEBUG")) || parseBoolEnv(os.Getenv("LOG_VERBOSE")) {
		return "debug"
	}
	return os.Getenv("LOG_LEVEL")
}

func parseBoolEnv(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
