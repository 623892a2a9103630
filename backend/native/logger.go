//go:build !nogpu

package native

import (
	"log/slog"

	"github.com/gogpu/gpukit"
)

// slogger returns the gpukit package logger, so that gpukit.SetLogger
// configures the backend too.
func slogger() *slog.Logger { return gpukit.Logger() }
