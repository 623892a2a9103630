//go:build !nogpu

package native

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gpukit"
	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gpukit/internal/gputest"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

const testWGSL = `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@vertex fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
@fragment fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
@compute @workgroup_size(64) fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] * 2u;
}
`

const computeWGSL = `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] + 1u;
}
`

// createNoopDevice opens the noop HAL backend.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		t.Fatal("no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func newTestDevice(t *testing.T, opts ...Option) *HALDevice {
	t.Helper()
	device, queue := createNoopDevice(t)
	d, err := New(device, queue, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNewNilDevice(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("New(nil, nil) should fail")
	}
}

func TestBufferLifecycle(t *testing.T) {
	d := newTestDevice(t)

	id, err := d.CreateBuffer(&gpucore.BufferDescriptor{
		Label: "vertices",
		Size:  64,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if id == gpucore.InvalidID {
		t.Fatal("CreateBuffer returned InvalidID")
	}
	if err := d.WriteBuffer(id, 0, make([]byte, 64)); err != nil {
		t.Errorf("WriteBuffer: %v", err)
	}
	if err := d.WriteBuffer(id, 60, make([]byte, 8)); err == nil {
		t.Error("WriteBuffer past the end should fail")
	}

	data, err := d.ReadBuffer(id, 16, 32)
	if err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if len(data) != 32 {
		t.Errorf("ReadBuffer len = %d, want 32", len(data))
	}

	d.DestroyBuffer(id)
	if err := d.WriteBuffer(id, 0, []byte{1}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("write after destroy: err = %v, want ErrUnknownResource", err)
	}
	// Destroying twice is a no-op.
	d.DestroyBuffer(id)
}

func TestBufferValidation(t *testing.T) {
	limits := gputypes.DefaultLimits()
	limits.MaxBufferSize = 256
	d := newTestDevice(t, WithLimits(limits))

	tests := []struct {
		name    string
		size    uint64
		wantErr error
	}{
		{"fits", 256, nil},
		{"over limit", 257, ErrLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.CreateBuffer(&gpucore.BufferDescriptor{Label: tt.name, Size: tt.size, Usage: gputypes.BufferUsageStorage})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("CreateBuffer: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := d.CreateBuffer(&gpucore.BufferDescriptor{Label: "empty"}); err == nil {
		t.Error("zero-sized buffer should fail")
	}
}

func TestUniqueIDs(t *testing.T) {
	d := newTestDevice(t)
	seen := make(map[uint64]bool)
	for i := 0; i < 8; i++ {
		id, err := d.CreateBuffer(&gpucore.BufferDescriptor{Size: 16, Usage: gputypes.BufferUsageUniform})
		if err != nil {
			t.Fatal(err)
		}
		if seen[uint64(id)] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[uint64(id)] = true
	}
}

func TestTextureAndViews(t *testing.T) {
	limits := gputypes.DefaultLimits()
	limits.MaxTextureDimension2D = 128
	d := newTestDevice(t, WithLimits(limits))

	if _, err := d.CreateTexture(&gpucore.TextureDescriptor{
		Label: "huge", Width: 256, Height: 16,
		Dimension: gputypes.TextureDimension2D,
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Usage:     gputypes.TextureUsageTextureBinding,
	}); !errors.Is(err, ErrLimit) {
		t.Errorf("oversized texture: err = %v, want ErrLimit", err)
	}

	tex, err := d.CreateTexture(&gpucore.TextureDescriptor{
		Label: "albedo", Width: 4, Height: 4,
		Dimension: gputypes.TextureDimension2D,
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Usage:     gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}

	write := &gpucore.TextureWrite{Width: 4, Height: 4, BytesPerRow: 16}
	if err := d.WriteTexture(tex, write, make([]byte, 64)); err != nil {
		t.Errorf("WriteTexture: %v", err)
	}
	if err := d.WriteTexture(tex, write, make([]byte, 63)); err == nil {
		t.Error("short texture write should fail")
	}
	if err := d.WriteTexture(tex, &gpucore.TextureWrite{MipLevel: 1, Width: 2, Height: 2, BytesPerRow: 8}, make([]byte, 16)); err == nil {
		t.Error("write to a missing mip level should fail")
	}

	view, err := d.CreateTextureView(tex, &gpucore.TextureViewDescriptor{
		Label:     "albedo view",
		Dimension: gputypes.TextureViewDimension2D,
	})
	if err != nil {
		t.Fatalf("CreateTextureView: %v", err)
	}
	sampler, err := d.CreateSampler(&gpucore.SamplerDescriptor{
		Label:     "linear",
		MagFilter: gpucore.FilterModeLinear,
		MinFilter: gpucore.FilterModeLinear,
	})
	if err != nil {
		t.Fatalf("CreateSampler: %v", err)
	}

	layout, err := d.CreateBindGroupLayout(&gpucore.BindGroupLayoutDescriptor{
		Label: "material",
		Entries: []gpucore.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gpucore.ShaderStageFragment, Kind: gpucore.BindingKindTexture, ViewDimension: gputypes.TextureViewDimension2D},
			{Binding: 1, Visibility: gpucore.ShaderStageFragment, Kind: gpucore.BindingKindSampler},
		},
	})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout: %v", err)
	}
	group, err := d.CreateBindGroup(&gpucore.BindGroupDescriptor{
		Label:  "material",
		Layout: layout,
		Entries: []gpucore.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: sampler},
		},
	})
	if err != nil {
		t.Fatalf("CreateBindGroup: %v", err)
	}

	d.DestroyBindGroup(group)
	d.DestroyBindGroupLayout(layout)
	d.DestroySampler(sampler)
	d.DestroyTextureView(view)
	d.DestroyTexture(tex)

	if _, err := d.CreateTextureView(tex, &gpucore.TextureViewDescriptor{}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("view of destroyed texture: err = %v, want ErrUnknownResource", err)
	}
}

func TestBindGroupUnknownResources(t *testing.T) {
	d := newTestDevice(t)
	layout, err := d.CreateBindGroupLayout(&gpucore.BindGroupLayoutDescriptor{
		Entries: []gpucore.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gpucore.ShaderStageCompute, Kind: gpucore.BindingKindBuffer, BufferType: gpucore.BufferBindingTypeStorage},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		desc gpucore.BindGroupDescriptor
	}{
		{"unknown layout", gpucore.BindGroupDescriptor{Layout: 9999}},
		{"unknown buffer", gpucore.BindGroupDescriptor{Layout: layout, Entries: []gpucore.BindGroupEntry{{Binding: 0, Buffer: 9999}}}},
		{"unknown view", gpucore.BindGroupDescriptor{Layout: layout, Entries: []gpucore.BindGroupEntry{{Binding: 0, TextureView: 9999}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.CreateBindGroup(&tt.desc); !errors.Is(err, ErrUnknownResource) {
				t.Errorf("err = %v, want ErrUnknownResource", err)
			}
		})
	}
}

func TestPolygonModeUnsupported(t *testing.T) {
	d := newTestDevice(t, WithFeatures(gpucore.FeaturePolygonModeLine|gpucore.FeatureDepthClipControl))

	if d.Features().Has(gpucore.FeaturePolygonModeLine) {
		t.Error("Features should not report polygon-mode-line")
	}
	if !d.Features().Has(gpucore.FeatureDepthClipControl) {
		t.Error("Features should keep depth-clip-control")
	}

	_, err := d.CreateRenderPipeline(&gpucore.RenderPipelineDescriptor{
		Primitive: gpucore.PrimitiveState{PolygonMode: gpucore.PolygonModeLine},
	})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestShaderSource(t *testing.T) {
	d := newTestDevice(t)

	src, err := d.shaderSource(&gpucore.ShaderModuleDescriptor{SPIRV: []uint32{0x07230203, 0x00010000}})
	if err != nil {
		t.Fatalf("SPIR-V: %v", err)
	}
	if len(src.SPIRV) != 2 || src.WGSL != "" {
		t.Errorf("SPIR-V source = %+v, want passthrough", src)
	}

	src, err = d.shaderSource(&gpucore.ShaderModuleDescriptor{WGSL: computeWGSL})
	if err != nil {
		t.Fatalf("WGSL: %v", err)
	}
	if src.WGSL != computeWGSL || len(src.SPIRV) != 0 {
		t.Error("WGSL should pass through without WithSPIRVFromWGSL")
	}

	if _, err := d.CreateShaderModule(&gpucore.ShaderModuleDescriptor{Label: "empty"}); err == nil {
		t.Error("shader module without source should fail")
	}
}

func TestSPIRVFromWGSLCache(t *testing.T) {
	d := newTestDevice(t, WithSPIRVFromWGSL(), WithShaderCacheSize(4))

	for i := 0; i < 3; i++ {
		id, err := d.CreateShaderModule(&gpucore.ShaderModuleDescriptor{Label: "compute", WGSL: computeWGSL})
		if err != nil {
			t.Fatalf("CreateShaderModule: %v", err)
		}
		d.DestroyShaderModule(id)
	}
	if got := d.ShaderCacheLen(); got != 1 {
		t.Errorf("ShaderCacheLen = %d, want 1", got)
	}

	words, err := d.compileWGSL(computeWGSL)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) == 0 || words[0] != 0x07230203 {
		t.Errorf("compiled module does not start with the SPIR-V magic number")
	}
}

func TestEncoderState(t *testing.T) {
	d := newTestDevice(t)

	enc, err := d.CreateCommandEncoder("state")
	if err != nil {
		t.Fatal(err)
	}
	pass, err := enc.BeginComputePass("first")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.BeginComputePass("second"); !errors.Is(err, ErrEncoderState) {
		t.Errorf("nested pass: err = %v, want ErrEncoderState", err)
	}
	if _, err := enc.Finish(); !errors.Is(err, ErrEncoderState) {
		t.Errorf("Finish with open pass: err = %v, want ErrEncoderState", err)
	}
	pass.End()

	cmd, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := enc.Finish(); !errors.Is(err, ErrEncoderState) {
		t.Errorf("second Finish: err = %v, want ErrEncoderState", err)
	}
	if err := d.Submit(cmd); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := d.Submit(cmd); err == nil {
		t.Error("second Submit of the same command buffer should fail")
	}
}

func TestEncoderRecordsUnknownIDs(t *testing.T) {
	d := newTestDevice(t)

	enc, err := d.CreateCommandEncoder("bad")
	if err != nil {
		t.Fatal(err)
	}
	pass, err := enc.BeginComputePass("bad")
	if err != nil {
		t.Fatal(err)
	}
	pass.SetPipeline(9999)
	pass.End()

	if _, err := enc.Finish(); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("Finish: err = %v, want ErrUnknownResource", err)
	}
}

func TestClearAndCopy(t *testing.T) {
	d := newTestDevice(t, WithSubmitWait(time.Second))
	usage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	src, err := d.CreateBuffer(&gpucore.BufferDescriptor{Label: "src", Size: 64, Usage: usage})
	if err != nil {
		t.Fatal(err)
	}
	dst, err := d.CreateBuffer(&gpucore.BufferDescriptor{Label: "dst", Size: 32, Usage: usage})
	if err != nil {
		t.Fatal(err)
	}

	enc, err := d.CreateCommandEncoder("copy")
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.ClearBuffer(src, 0, 0); err != nil {
		t.Errorf("ClearBuffer: %v", err)
	}
	if err := enc.ClearBuffer(dst, 16, 32); err == nil {
		t.Error("clear past the end should fail")
	}
	if err := enc.CopyBufferToBuffer(src, 32, dst, 0, 32); err != nil {
		t.Errorf("CopyBufferToBuffer: %v", err)
	}
	if err := enc.CopyBufferToBuffer(src, 0, dst, 0, 64); err == nil {
		t.Error("copy past the end of dst should fail")
	}
	cmd, err := enc.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Submit(cmd); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if n := d.Pending(); n != 0 {
		t.Errorf("Pending = %d after waited submit, want 0", n)
	}
}

func TestForeignCommandBuffer(t *testing.T) {
	d := newTestDevice(t)

	fake := gputest.NewDevice(0)
	enc, err := fake.CreateCommandEncoder("foreign")
	if err != nil {
		t.Fatal(err)
	}
	cmd, err := enc.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Submit(cmd); !errors.Is(err, ErrForeignCommandBuffer) {
		t.Errorf("err = %v, want ErrForeignCommandBuffer", err)
	}

	other := newTestDevice(t)
	enc, err = other.CreateCommandEncoder("other")
	if err != nil {
		t.Fatal(err)
	}
	cmd, err = enc.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Submit(cmd); !errors.Is(err, ErrForeignCommandBuffer) {
		t.Errorf("other device: err = %v, want ErrForeignCommandBuffer", err)
	}
}

func TestClose(t *testing.T) {
	device, queue := createNoopDevice(t)
	d, err := New(device, queue)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateBuffer(&gpucore.BufferDescriptor{Size: 16, Usage: gputypes.BufferUsageUniform}); err != nil {
		t.Fatal(err)
	}
	enc, err := d.CreateCommandEncoder("late")
	if err != nil {
		t.Fatal(err)
	}
	cmd, err := enc.Finish()
	if err != nil {
		t.Fatal(err)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := d.CreateBuffer(&gpucore.BufferDescriptor{Size: 16}); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateBuffer after Close: err = %v, want ErrClosed", err)
	}
	if err := d.Submit(cmd); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Close: err = %v, want ErrClosed", err)
	}
}

// === Context over the HAL device ===

func TestContextFrame(t *testing.T) {
	d := newTestDevice(t, WithSubmitWait(time.Second))
	ctx, err := gpukit.NewContext(d)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Close()

	shader, err := gpukit.NewShader(ctx, gpukit.ShaderSource{Label: "frame", WGSL: testWGSL})
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}
	defer shader.Release()

	tex, err := gpukit.NewTexture(ctx, gpukit.TextureDescriptor{
		Label:     "target",
		Width:     64,
		Height:    64,
		Dimension: gputypes.TextureDimension2D,
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Usage:     gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	defer tex.Release()
	target, err := tex.AsRenderTexture()
	if err != nil {
		t.Fatalf("AsRenderTexture: %v", err)
	}
	defer target.Release()

	data, err := gpukit.NewBuffer(ctx, gpukit.BufferDescriptor{
		Label: "data",
		Size:  256,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	defer data.Release()

	draw := gpukit.DrawCall{
		Pipeline: gpukit.NewRenderPipelineBuilder(shader.EntryPoint("vs_main")).
			Fragment(shader.EntryPoint("fs_main"), &gpukit.ColorTargetState{WriteMask: gpucore.ColorWriteAll}).
			Label("triangle").
			Build(),
		Elements: gpukit.Range{Start: 0, End: 3},
	}
	dispatch := gpukit.Dispatch{
		BindGroups: []gpukit.BindGroup{
			gpukit.NewBindGroupBuilder().
				Label("data").
				Buffer(0, gpucore.ShaderStageCompute, data.StorageBinding(false), 0).
				Build(),
		},
		Pipeline: gpukit.NewComputePipelineBuilder(shader.EntryPoint("cs_main")).Label("double").Build(),
		Extent:   [3]uint32{4, 1, 1},
	}

	for frame := 0; frame < 3; frame++ {
		err := ctx.Encode("frame", func(enc *gpukit.CommandEncoder) error {
			if err := enc.RenderPass(gpukit.RenderPassDescriptor{
				Label: "color",
				ColorAttachments: []gpukit.ColorAttachment{{
					Target:  target,
					LoadOp:  gputypes.LoadOpClear,
					StoreOp: gputypes.StoreOpStore,
				}},
			}, func(p *gpukit.RenderPass) error {
				return p.Draw(draw)
			}); err != nil {
				return err
			}
			return enc.ComputePass("double", func(p *gpukit.ComputePass) error {
				return p.Dispatch(dispatch)
			})
		})
		if err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
	}

	if n := d.Pending(); n != 0 {
		t.Errorf("Pending = %d, want 0", n)
	}
	stats := ctx.Stats()
	if stats.RenderPipelines != 1 || stats.ComputePipelines != 1 {
		t.Errorf("pipelines = %d render, %d compute, want 1 and 1", stats.RenderPipelines, stats.ComputePipelines)
	}
	if err := d.WaitIdle(); err != nil {
		t.Errorf("WaitIdle: %v", err)
	}
}

// === Provider ===

type mockDevice struct{}

func (mockDevice) Poll(bool) {}
func (mockDevice) Destroy()  {}

type mockQueue struct{}
type mockAdapter struct{}

type mockProvider struct{}

func (mockProvider) Device() gpucontext.Device             { return mockDevice{} }
func (mockProvider) Queue() gpucontext.Queue               { return mockQueue{} }
func (mockProvider) Adapter() gpucontext.Adapter           { return mockAdapter{} }
func (mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

type halProviderMock struct {
	mockProvider
	device hal.Device
	queue  hal.Queue
}

func (p halProviderMock) HalDevice() any { return p.device }
func (p halProviderMock) HalQueue() any  { return p.queue }

func TestNewFromProvider(t *testing.T) {
	if _, err := NewFromProvider(mockProvider{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("provider without HAL: err = %v, want ErrNoHAL", err)
	}
	if _, err := NewFromProvider(halProviderMock{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("provider with nil HAL: err = %v, want ErrNoHAL", err)
	}

	device, queue := createNoopDevice(t)
	d, err := NewFromProvider(halProviderMock{device: device, queue: queue})
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	defer d.Close()
	if _, err := d.CreateBuffer(&gpucore.BufferDescriptor{Size: 16, Usage: gputypes.BufferUsageUniform}); err != nil {
		t.Errorf("CreateBuffer: %v", err)
	}
}
