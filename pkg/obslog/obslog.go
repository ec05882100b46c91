/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package obslog is the structured-logging shim threaded through engine construction.
// Nothing in this module reaches for a package-global logger: every component that wants
// to log takes a Logger value explicitly, so two concurrent solve jobs in the same process
// (spec.md's reentrancy requirement) never contend over shared mutable log state.
package obslog

/*****************************************************************************************************************/

import (
	"log/slog"
	"os"
)

/*****************************************************************************************************************/

// Logger is the narrow logging surface engine components depend on. Field/args follow
// slog's key-value convention so the slog-backed implementation below is a direct
// pass-through, but the interface itself is not slog-specific - a caller can substitute any
// implementation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

/*****************************************************************************************************************/

// noop discards every log call. It is the default Logger, so a caller that never sets one
// up doesn't pay for or see any log output.
type noop struct{}

/*****************************************************************************************************************/

func (noop) Debug(msg string, args ...any) {}
func (noop) Info(msg string, args ...any)  {}
func (noop) Warn(msg string, args ...any)  {}
func (noop) Error(msg string, args ...any) {}

/*****************************************************************************************************************/

// NoOp returns a Logger that discards everything.
func NoOp() Logger {
	return noop{}
}

/*****************************************************************************************************************/

// slogLogger adapts *slog.Logger to the Logger interface.
type slogLogger struct {
	logger *slog.Logger
}

/*****************************************************************************************************************/

func (s slogLogger) Debug(msg string, args ...any) { s.logger.Debug(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.logger.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.logger.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.logger.Error(msg, args...) }

/*****************************************************************************************************************/

// NewTextLogger returns a Logger backed by slog's text handler writing to os.Stderr, at
// the given minimum level.
func NewTextLogger(level slog.Level) Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slogLogger{logger: slog.New(handler)}
}

/*****************************************************************************************************************/

// NewJSONLogger returns a Logger backed by slog's JSON handler writing to os.Stderr, at the
// given minimum level - useful when engine output is consumed by another process rather
// than a terminal.
func NewJSONLogger(level slog.Level) Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slogLogger{logger: slog.New(handler)}
}

/*****************************************************************************************************************/

// With returns a Logger that always attaches the given key-value pairs, useful for
// stamping every log line emitted during one solve job with its job ID.
func With(l Logger, args ...any) Logger {
	if s, ok := l.(slogLogger); ok {
		return slogLogger{logger: s.logger.With(args...)}
	}

	return l
}

/*****************************************************************************************************************/
