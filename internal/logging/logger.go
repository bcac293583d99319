package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mdobak/go-xerrors"
)

// EnvLogLevel selects the default log level (debug, info, warn, error)
const EnvLogLevel = "SOUND_TRAINER_LOG_LEVEL"

var (
	defaultLogger *slog.Logger
	defaultOnce   sync.Once
)

// New creates a text logger writing to w
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Default returns the process-wide logger on stderr
func Default() *slog.Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(os.Stderr, ParseLevel(os.Getenv(EnvLogLevel)))
	})
	return defaultLogger
}

// ParseLevel maps a level name to slog.Level, defaulting to info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Error logs err with a captured stack trace
func Error(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	if err == nil {
		return
	}
	if logger == nil {
		logger = Default()
	}
	args := append([]any{slog.Any("error", xerrors.New(err))}, attrs...)
	logger.ErrorContext(ctx, msg, args...)
}
