// Package logging provides the structured debug log of xox-server.
//
// Entries are JSON lines written by log/slog to {dataDir}/debug.log through a
// size-based RotatingWriter. The operator never sees these entries; terminal
// output is the job of the prompt package.
//
// Child loggers carry context for every entry they write:
//
//	logger := logging.NopLogger()
//	gameLog := logger.WithGame("valheim")
//	gameLog.WithInstance("a1b2c3d4").Info("session spawned", "session", name)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// Log levels supported by the logger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// FileName is the name of the log file inside the data directory.
const FileName = "debug.log"

// Options configures a file-backed Logger.
type Options struct {
	// Dir is the directory holding the log file.
	Dir string
	// Level is one of ValidLevels; unknown values mean INFO.
	Level string
	// Rotation controls size-based rotation of the log file.
	Rotation RotationConfig
}

// Logger writes JSON structured entries. Child loggers share the parent's
// writer; only the root logger should be closed.
type Logger struct {
	logger *slog.Logger
	closer io.Closer
}

// New opens {opts.Dir}/debug.log and returns a Logger writing to it.
func New(opts Options) (*Logger, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("log directory is required")
	}

	writer, err := NewRotatingWriter(filepath.Join(opts.Dir, FileName), opts.Rotation)
	if err != nil {
		return nil, err
	}

	l := NewWithWriter(writer, opts.Level)
	l.closer = writer
	return l, nil
}

// NewWithWriter returns a Logger writing JSON lines to w. The caller owns w.
func NewWithWriter(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{logger: slog.New(handler)}
}

// NopLogger returns a Logger that discards all log output.
func NopLogger() *Logger {
	return &Logger{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// parseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child Logger with arbitrary key-value attributes.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	return &Logger{logger: l.logger.With(args...)}
}

// WithGame returns a child Logger tagged with the game key.
func (l *Logger) WithGame(game string) *Logger {
	return l.With("game", game)
}

// WithInstance returns a child Logger tagged with an instance external id.
func (l *Logger) WithInstance(externalID string) *Logger {
	return l.With("instance", externalID)
}

// Debug logs a message at DEBUG level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// Info logs a message at INFO level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn logs a message at WARN level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs a message at ERROR level with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// Close closes the log file of a root logger. It is a no-op for child,
// writer-backed and nop loggers.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// ValidLevels returns the list of valid log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
