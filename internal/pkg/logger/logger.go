package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger defines the interface for logging messages.
type Logger interface {
	Error(msg string, err error)
	Warn(msg string)
	Info(msg string)
	Debug(msg string)
}

// Options configures the zerolog backend.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	Out    io.Writer
}

type zeroLogger struct {
	zl zerolog.Logger
}

// New creates a Logger backed by zerolog.
func New(opts Options) Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(opts.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	zl := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1).
		Logger()
	return &zeroLogger{zl: zl}
}

// Nop returns a Logger that discards everything. Useful in tests.
func Nop() Logger {
	return &zeroLogger{zl: zerolog.Nop()}
}

// Error logs an error message with the attached error.
func (l *zeroLogger) Error(msg string, err error) {
	l.zl.Error().Err(err).Msg(msg)
}

// Warn logs a warning message.
func (l *zeroLogger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

// Info logs an informational message.
func (l *zeroLogger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

// Debug logs a debug message.
func (l *zeroLogger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}

// Writer adapts a Logger to the Printf-style writer expected by gorm's logger.
type Writer struct {
	Log Logger
}

// Printf implements gorm's logger.Writer.
func (w Writer) Printf(format string, args ...interface{}) {
	w.Log.Debug(fmt.Sprintf(format, args...))
}
