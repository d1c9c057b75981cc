// Package log provides the module's logging API, a thin wrapper over
// log/slog. There is no abstract Logger interface — slog is used directly.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

var defaultLogger = slog.Default()

// Log level constants re-exported from slog for convenience.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// SetDefault installs l as both this package's and slog's default logger.
func SetDefault(l *slog.Logger) {
	defaultLogger = l
	slog.SetDefault(l)
}

// Default returns the current default logger.
func Default() *slog.Logger {
	return slog.Default()
}

// New creates a text-handler logger writing to w.
func New(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewJSON creates a JSON-handler logger writing to w.
func NewJSON(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// SetOutput redirects the default logger's output to w, e.g. a log file.
func SetOutput(w io.Writer) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	defaultLogger = slog.New(slog.NewTextHandler(w, opts))
	slog.SetDefault(defaultLogger)
}

// SetOutputWithLevel redirects output and sets the level in one call.
func SetOutputWithLevel(w io.Writer, level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}
	defaultLogger = slog.New(slog.NewTextHandler(w, opts))
	slog.SetDefault(defaultLogger)
}

// SetLevel rebuilds the default logger at the given level, writing to
// stderr.
func SetLevel(level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	slog.SetDefault(defaultLogger)
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger re-reads slog.Default() on every call, so tests can redirect
// logging output after a component has already obtained its logger.
//
//	var myLog = log.Logger("myscope")
//	myLog.Info("started")
type LazyLogger struct {
	component string
}

// Debug logs at debug level.
func (l *LazyLogger) Debug(msg string, args ...any) {
	slog.Default().With("component", l.component).Debug(msg, args...)
}

// Info logs at info level.
func (l *LazyLogger) Info(msg string, args ...any) {
	slog.Default().With("component", l.component).Info(msg, args...)
}

// Warn logs at warn level.
func (l *LazyLogger) Warn(msg string, args ...any) {
	slog.Default().With("component", l.component).Warn(msg, args...)
}

// Error logs at error level.
func (l *LazyLogger) Error(msg string, args ...any) {
	slog.Default().With("component", l.component).Error(msg, args...)
}

// DebugContext logs at debug level with a context.
func (l *LazyLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	slog.Default().With("component", l.component).DebugContext(ctx, msg, args...)
}

// InfoContext logs at info level with a context.
func (l *LazyLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	slog.Default().With("component", l.component).InfoContext(ctx, msg, args...)
}

// WarnContext logs at warn level with a context.
func (l *LazyLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	slog.Default().With("component", l.component).WarnContext(ctx, msg, args...)
}

// ErrorContext logs at error level with a context.
func (l *LazyLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	slog.Default().With("component", l.component).ErrorContext(ctx, msg, args...)
}

// With returns a slog.Logger carrying this component's name plus args.
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return slog.Default().With("component", l.component).With(args...)
}

// WithComponent returns a LazyLogger scoped to component.
func WithComponent(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

// Logger returns a LazyLogger scoped to component. Every call re-reads
// slog.Default(), so switching the default logger at runtime (e.g. in
// tests) is picked up by loggers obtained earlier.
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

// ============================================================================
//                              Package-level shortcuts
// ============================================================================

// Debug logs at debug level on the default logger.
func Debug(msg string, args ...any) { slog.Default().Debug(msg, args...) }

// Info logs at info level on the default logger.
func Info(msg string, args ...any) { slog.Default().Info(msg, args...) }

// Warn logs at warn level on the default logger.
func Warn(msg string, args ...any) { slog.Default().Warn(msg, args...) }

// Error logs at error level on the default logger.
func Error(msg string, args ...any) { slog.Default().Error(msg, args...) }

// DebugContext logs at debug level with a context on the default logger.
func DebugContext(ctx context.Context, msg string, args ...any) {
	slog.Default().DebugContext(ctx, msg, args...)
}

// InfoContext logs at info level with a context on the default logger.
func InfoContext(ctx context.Context, msg string, args ...any) {
	slog.Default().InfoContext(ctx, msg, args...)
}

// WarnContext logs at warn level with a context on the default logger.
func WarnContext(ctx context.Context, msg string, args ...any) {
	slog.Default().WarnContext(ctx, msg, args...)
}

// ErrorContext logs at error level with a context on the default logger.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	slog.Default().ErrorContext(ctx, msg, args...)
}

// ============================================================================
//                              Helpers
// ============================================================================

// TruncateID safely shortens an id for log output, avoiding a slice panic
// when id is shorter than maxLen.
func TruncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	return id[:maxLen]
}

func init() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, opts))
}
