package gpukit

import (
	"log/slog"

	"github.com/gogpu/gpukit/internal/cache"
)

// ContextOption configures a Context during creation.
//
// Example:
//
//	ctx, err := gpukit.NewContext(device,
//	    gpukit.WithEvictionWindow(120),
//	    gpukit.WithLabelPrefix("editor"),
//	)
type ContextOption func(*contextOptions)

// contextOptions holds optional configuration for Context creation.
type contextOptions struct {
	window      uint64
	logger      *slog.Logger
	labelPrefix string
}

// defaultOptions returns the default context options.
func defaultOptions() contextOptions {
	return contextOptions{
		window: cache.DefaultWindow,
	}
}

// WithEvictionWindow sets how many submissions a cached object may go
// unused before it is evicted. A window of 0 keeps the default of 60.
func WithEvictionWindow(generations uint64) ContextOption {
	return func(o *contextOptions) {
		if generations > 0 {
			o.window = generations
		}
	}
}

// WithLogger sets a logger for one Context instead of the package logger.
// A nil logger keeps the package logger.
func WithLogger(l *slog.Logger) ContextOption {
	return func(o *contextOptions) {
		o.logger = l
	}
}

// WithLabelPrefix prefixes every device object label created by the Context,
// which makes objects of several contexts distinguishable in GPU debuggers.
func WithLabelPrefix(prefix string) ContextOption {
	return func(o *contextOptions) {
		o.labelPrefix = prefix
	}
}
