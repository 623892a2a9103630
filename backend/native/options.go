//go:build !nogpu

package native

import (
	"time"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gputypes"
)

// defaultShaderCacheSize is the number of WGSL sources whose SPIR-V is kept.
const defaultShaderCacheSize = 64

// defaultFenceTimeout bounds every blocking fence wait.
const defaultFenceTimeout = 5 * time.Second

// Option configures a HALDevice.
type Option func(*options)

type options struct {
	features        gpucore.Features
	submitWait      time.Duration
	fenceTimeout    time.Duration
	shaderCacheSize int
	spirvFromWGSL   bool
	limits          gputypes.Limits
}

func defaultOptions() options {
	return options{
		fenceTimeout:    defaultFenceTimeout,
		shaderCacheSize: defaultShaderCacheSize,
		limits:          gputypes.DefaultLimits(),
	}
}

// WithFeatures declares the optional features the underlying device was
// opened with. Polygon modes other than fill are never reported, because
// the HAL primitive state has no polygon mode.
func WithFeatures(f gpucore.Features) Option {
	return func(o *options) {
		o.features = f
	}
}

// WithSubmitWait makes Submit block until the GPU finishes that submission,
// or until timeout elapses. Zero (the default) submits without waiting.
func WithSubmitWait(timeout time.Duration) Option {
	return func(o *options) {
		o.submitWait = timeout
	}
}

// WithShaderCacheSize sets how many compiled WGSL sources are kept when
// WithSPIRVFromWGSL is enabled. Values below 1 keep the default.
func WithShaderCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shaderCacheSize = n
		}
	}
}

// WithSPIRVFromWGSL compiles WGSL shader modules to SPIR-V with naga before
// handing them to the HAL, for backends that only accept SPIR-V.
func WithSPIRVFromWGSL() Option {
	return func(o *options) {
		o.spirvFromWGSL = true
	}
}

// WithLimits sets the limits descriptors are validated against.
// The default is gputypes.DefaultLimits().
func WithLimits(l gputypes.Limits) Option {
	return func(o *options) {
		o.limits = l
	}
}
