// Command gpukit-demo records frames through gpukit on the noop HAL backend
// and prints how often each object cache was hit.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/gpukit"
	"github.com/gogpu/gpukit/backend/native"
	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

const shaderWGSL = `
struct Globals {
    tint: vec4<f32>,
}

@group(0) @binding(0) var<uniform> globals: Globals;
@group(0) @binding(1) var<storage, read_write> counters: array<u32>;

@vertex fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    let x = f32(i32(i) - 1);
    let y = f32(i32(i & 1u) * 2 - 1);
    return vec4<f32>(x, y, 0.0, 1.0);
}

@fragment fn fs_main() -> @location(0) vec4<f32> {
    return globals.tint;
}

@compute @workgroup_size(64) fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
    counters[id.x] = counters[id.x] + 1u;
}
`

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		frames     = flag.Int("frames", 0, "number of frames to record (overrides config)")
		verbose    = flag.Bool("v", false, "log debug output")
	)
	flag.Parse()

	if *verbose {
		gpukit.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *frames > 0 {
		cfg.Frames = *frames
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Demo failed: %v", err)
	}
}

func run(cfg Config) error {
	device, queue, cleanup, err := openNoop()
	if err != nil {
		return err
	}
	defer cleanup()

	dev, err := native.New(device, queue, native.WithSubmitWait(time.Second))
	if err != nil {
		return err
	}
	defer dev.Close()

	ctx, err := gpukit.NewContext(dev,
		gpukit.WithEvictionWindow(cfg.EvictionWindow),
		gpukit.WithLabelPrefix(cfg.LabelPrefix))
	if err != nil {
		return err
	}
	defer ctx.Close()

	scene, err := newScene(ctx, cfg)
	if err != nil {
		return err
	}
	defer scene.release()

	totals := make([]cacheTotals, len(cacheRows(ctx.Stats())))
	for i := 0; i < cfg.Frames; i++ {
		if err := scene.frame(ctx); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		// Submit ages the caches, so the frame's counts are in Last*.
		for j, r := range cacheRows(ctx.Stats()) {
			totals[j].add(i, r)
		}
	}

	fmt.Printf("frames: %d\n", cfg.Frames)
	for _, t := range totals {
		fmt.Printf("%-20s len=%-3d hits=%-5d misses=%-3d first-frame-misses=%-3d evictions=%d\n",
			t.name, t.len, t.hits, t.misses, t.firstMisses, t.evictions)
	}
	return nil
}

// openNoop opens the first adapter of the noop HAL backend.
func openNoop() (hal.Device, hal.Queue, func(), error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("open adapter: %w", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup, nil
}

// scene holds the per-demo resources; pipelines and bind groups are plain
// descriptions resolved through the context caches every frame.
type scene struct {
	shader   *gpukit.Shader
	target   *gpukit.Texture
	rt       gpukit.RenderTexture
	globals  *gpukit.Buffer
	counters *gpukit.Buffer
	clear    gputypes.Color

	draw     gpukit.DrawCall
	dispatch gpukit.Dispatch
}

func newScene(ctx *gpukit.Context, cfg Config) (*scene, error) {
	s := &scene{clear: cfg.clearColor()}
	var err error

	if s.shader, err = gpukit.NewShader(ctx, gpukit.ShaderSource{Label: "demo", WGSL: shaderWGSL}); err != nil {
		return nil, err
	}
	if s.target, err = gpukit.NewTexture(ctx, gpukit.TextureDescriptor{
		Label:     "target",
		Width:     cfg.Width,
		Height:    cfg.Height,
		Dimension: gputypes.TextureDimension2D,
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Usage:     gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	}); err != nil {
		s.release()
		return nil, err
	}
	if s.rt, err = s.target.AsRenderTexture(); err != nil {
		s.release()
		return nil, err
	}
	if s.globals, err = gpukit.NewBufferWithData(ctx, "globals",
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst, cfg.tintBytes()); err != nil {
		s.release()
		return nil, err
	}
	if s.counters, err = gpukit.NewBuffer(ctx, gpukit.BufferDescriptor{
		Label: "counters",
		Size:  uint64(cfg.Counters) * 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	}); err != nil {
		s.release()
		return nil, err
	}

	drawGroup := gpukit.NewBindGroupBuilder().
		Label("draw").
		Buffer(0, gpucore.ShaderStageFragment, s.globals.UniformBinding(), 0).
		Build()
	computeGroup := gpukit.NewBindGroupBuilder().
		Label("compute").
		Buffer(1, gpucore.ShaderStageCompute, s.counters.StorageBinding(false), 0).
		Build()

	s.draw = gpukit.DrawCall{
		BindGroups: []gpukit.BindGroup{drawGroup},
		Pipeline: gpukit.NewRenderPipelineBuilder(s.shader.EntryPoint("vs_main")).
			Fragment(s.shader.EntryPoint("fs_main"), &gpukit.ColorTargetState{WriteMask: gpucore.ColorWriteAll}).
			Label("triangle").
			Build(),
		Elements: gpukit.Range{Start: 0, End: 3},
	}
	s.dispatch = gpukit.Dispatch{
		BindGroups: []gpukit.BindGroup{computeGroup},
		Pipeline:   gpukit.NewComputePipelineBuilder(s.shader.EntryPoint("cs_main")).Label("count").Build(),
		Extent:     [3]uint32{(cfg.Counters + 63) / 64, 1, 1},
	}
	return s, nil
}

// frame records one render pass and one compute pass and submits them.
func (s *scene) frame(ctx *gpukit.Context) error {
	return ctx.Encode("frame", func(enc *gpukit.CommandEncoder) error {
		if err := enc.RenderPass(gpukit.RenderPassDescriptor{
			Label: "color",
			ColorAttachments: []gpukit.ColorAttachment{{
				Target:     s.rt,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: s.clear,
			}},
		}, func(p *gpukit.RenderPass) error {
			return p.Draw(s.draw)
		}); err != nil {
			return err
		}
		return enc.ComputePass("count", func(p *gpukit.ComputePass) error {
			return p.Dispatch(s.dispatch)
		})
	})
}

func (s *scene) release() {
	if s.counters != nil {
		s.counters.Release()
	}
	if s.globals != nil {
		s.globals.Release()
	}
	s.rt.Release()
	if s.target != nil {
		s.target.Release()
	}
	if s.shader != nil {
		s.shader.Release()
	}
}

type cacheRow struct {
	name  string
	stats gpukit.CacheStats
}

func cacheRows(stats gpukit.ContextStats) []cacheRow {
	return []cacheRow{
		{"bind group layouts", stats.BindGroupLayouts},
		{"bind groups", stats.BindGroups},
		{"texture views", stats.TextureViews},
		{"samplers", stats.Samplers},
		{"pipeline layouts", stats.PipelineLayouts},
		{"render pipelines", stats.RenderPipelines},
		{"compute pipelines", stats.ComputePipelines},
	}
}

type cacheTotals struct {
	name        string
	len         int
	hits        uint64
	misses      uint64
	firstMisses uint64
	evictions   uint64
}

func (t *cacheTotals) add(frame int, r cacheRow) {
	t.name = r.name
	t.len = r.stats.Len
	t.hits += r.stats.LastHits
	t.misses += r.stats.LastMisses
	if frame == 0 {
		t.firstMisses = r.stats.LastMisses
	}
	t.evictions = r.stats.Evictions
}
