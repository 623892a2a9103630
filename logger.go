package gpukit

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the package logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by gpukit.
// By default, gpukit produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore silence.
// Contexts created with WithLogger keep their own logger.
//
// Log levels used by gpukit:
//   - [slog.LevelDebug]: cache builds, per-generation cache statistics, submission summaries
//   - [slog.LevelInfo]: lifecycle events (context created, context closed)
//   - [slog.LevelWarn]: non-fatal issues (unsubmitted encoders on Close)
//
// Example:
//
//	gpukit.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
// Sub-packages (backend/native) call this to share the same configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
