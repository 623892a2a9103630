package gpukit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gpukit/internal/cache"
)

// CacheStats contains statistics of one object cache.
type CacheStats = cache.Stats

// ContextStats contains statistics of every object cache of a Context.
type ContextStats struct {
	BindGroupLayouts CacheStats
	BindGroups       CacheStats
	TextureViews     CacheStats
	Samplers         CacheStats
	PipelineLayouts  CacheStats
	RenderPipelines  CacheStats
	ComputePipelines CacheStats
}

// Context owns the device and one generational cache per derived object
// kind: bind group layouts, bind groups, texture views, samplers, pipeline
// layouts, render pipelines and compute pipelines.
//
// Every cached value is a *Shared handle. The cache holds one reference
// and releases it on eviction.
//
// A *Context may be shared freely. Resolution and aging are serialized by
// a single lock, so at most one encoder resolves against the caches at a
// time. Individual encoders are not safe for concurrent use.
type Context struct {
	device      gpucore.Device
	log         *slog.Logger
	labelPrefix string

	mu               sync.Mutex
	bindGroupLayouts *cache.Cache[string, *Shared[gpucore.BindGroupLayoutID]]
	bindGroups       *cache.Cache[string, *Shared[gpucore.BindGroupID]]
	textureViews     *cache.Cache[string, *Shared[gpucore.TextureViewID]]
	samplers         *cache.Cache[string, *Shared[gpucore.SamplerID]]
	pipelineLayouts  *cache.Cache[string, *Shared[gpucore.PipelineLayoutID]]
	renderPipelines  *cache.Cache[string, *Shared[gpucore.RenderPipelineID]]
	computePipelines *cache.Cache[string, *Shared[gpucore.ComputePipelineID]]

	pendingMu sync.Mutex
	pending   map[*CommandEncoder]struct{}
	closed    bool
}

// NewContext creates a Context over device.
//
// Example:
//
//	ctx, err := gpukit.NewContext(device, gpukit.WithEvictionWindow(120))
//	if err != nil {
//	    return err
//	}
//	defer ctx.Close()
func NewContext(device gpucore.Device, opts ...ContextOption) (*Context, error) {
	if device == nil {
		return nil, ErrNilDevice
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Context{
		device:      device,
		log:         o.logger,
		labelPrefix: o.labelPrefix,
		pending:     make(map[*CommandEncoder]struct{}),
	}
	c.bindGroupLayouts = newSharedCache[gpucore.BindGroupLayoutID](o.window)
	c.bindGroups = newSharedCache[gpucore.BindGroupID](o.window)
	c.textureViews = newSharedCache[gpucore.TextureViewID](o.window)
	c.samplers = newSharedCache[gpucore.SamplerID](o.window)
	c.pipelineLayouts = newSharedCache[gpucore.PipelineLayoutID](o.window)
	c.renderPipelines = newSharedCache[gpucore.RenderPipelineID](o.window)
	c.computePipelines = newSharedCache[gpucore.ComputePipelineID](o.window)

	c.logger().Info("gpukit: context created",
		"features", device.Features().String(),
		"window", o.window)
	return c, nil
}

// newSharedCache creates a cache that releases its reference on eviction.
func newSharedCache[T gpucore.ID](window uint64) *cache.Cache[string, *Shared[T]] {
	return cache.New(window, func(_ string, s *Shared[T]) {
		s.Release()
	})
}

// logger returns the context logger, falling back to the package logger.
func (c *Context) logger() *slog.Logger {
	if c.log != nil {
		return c.log
	}
	return Logger()
}

// label applies the context label prefix.
func (c *Context) label(s string) string {
	switch {
	case c.labelPrefix == "":
		return s
	case s == "":
		return c.labelPrefix
	default:
		return c.labelPrefix + "/" + s
	}
}

// Device returns the underlying device.
func (c *Context) Device() gpucore.Device {
	return c.device
}

// Features returns the optional features of the underlying device.
func (c *Context) Features() gpucore.Features {
	return c.device.Features()
}

// Stats returns statistics of every cache.
func (c *Context) Stats() ContextStats {
	return ContextStats{
		BindGroupLayouts: c.bindGroupLayouts.Stats(),
		BindGroups:       c.bindGroups.Stats(),
		TextureViews:     c.textureViews.Stats(),
		Samplers:         c.samplers.Stats(),
		PipelineLayouts:  c.pipelineLayouts.Stats(),
		RenderPipelines:  c.renderPipelines.Stats(),
		ComputePipelines: c.computePipelines.Stats(),
	}
}

// Age advances every cache by one generation and evicts stale objects.
// Submit calls Age once per submission; call it directly only to age
// caches without submitting work. It returns the number of evicted objects.
func (c *Context) Age() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.age()
}

// age ages all caches. Caller must hold c.mu.
func (c *Context) age() int {
	// Dependents are aged before the objects they reference.
	evicted := 0
	evicted += c.renderPipelines.Age()
	evicted += c.computePipelines.Age()
	evicted += c.bindGroups.Age()
	evicted += c.pipelineLayouts.Age()
	evicted += c.bindGroupLayouts.Age()
	evicted += c.textureViews.Age()
	evicted += c.samplers.Age()

	if log := c.logger(); log.Enabled(context.Background(), slog.LevelDebug) {
		s := c.Stats()
		log.Debug("gpukit: cache aged",
			"generation", s.BindGroups.Generation,
			"evicted", evicted,
			statsAttr("bind_groups", s.BindGroups),
			statsAttr("bind_group_layouts", s.BindGroupLayouts),
			statsAttr("texture_views", s.TextureViews),
			statsAttr("samplers", s.Samplers),
			statsAttr("pipeline_layouts", s.PipelineLayouts),
			statsAttr("render_pipelines", s.RenderPipelines),
			statsAttr("compute_pipelines", s.ComputePipelines))
	}
	return evicted
}

func statsAttr(key string, s CacheStats) slog.Attr {
	return slog.Group(key,
		slog.Int("len", s.Len),
		slog.Uint64("hits", s.LastHits),
		slog.Uint64("misses", s.LastMisses),
		slog.Uint64("evictions", s.Evictions))
}

// track registers an encoder as pending.
func (c *Context) track(e *CommandEncoder) {
	c.pendingMu.Lock()
	c.pending[e] = struct{}{}
	c.pendingMu.Unlock()
}

// untrack removes an encoder from the pending set.
func (c *Context) untrack(e *CommandEncoder) {
	c.pendingMu.Lock()
	delete(c.pending, e)
	c.pendingMu.Unlock()
}

// PendingEncoders returns the labels of encoders that were created but
// not yet submitted.
func (c *Context) PendingEncoders() []string {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	labels := make([]string, 0, len(c.pending))
	for e := range c.pending {
		labels = append(labels, e.label)
	}
	return labels
}

// Close releases every cached object. Objects still referenced elsewhere
// are destroyed when their last reference is released.
//
// Close returns ErrUnsubmittedEncoder if encoders were never submitted.
// Close is idempotent.
func (c *Context) Close() error {
	c.pendingMu.Lock()
	if c.closed {
		c.pendingMu.Unlock()
		return nil
	}
	c.closed = true
	pending := len(c.pending)
	c.pendingMu.Unlock()

	c.mu.Lock()
	c.renderPipelines.Clear()
	c.computePipelines.Clear()
	c.bindGroups.Clear()
	c.pipelineLayouts.Clear()
	c.bindGroupLayouts.Clear()
	c.textureViews.Clear()
	c.samplers.Clear()
	c.mu.Unlock()

	c.logger().Info("gpukit: context closed")
	if pending > 0 {
		c.logger().Warn("gpukit: context closed with unsubmitted encoders", "count", pending)
		return fmt.Errorf("%w: %d encoder(s)", ErrUnsubmittedEncoder, pending)
	}
	return nil
}

// isClosed reports whether Close was called.
func (c *Context) isClosed() bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return c.closed
}
