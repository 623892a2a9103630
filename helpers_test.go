package gpukit

import (
	"testing"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gpukit/internal/gputest"
	"github.com/gogpu/gputypes"
)

const testWGSL = `
@vertex fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
@fragment fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
@compute @workgroup_size(64) fn cs_main() {}
`

// newTestContext returns a Context over a fresh fake device.
func newTestContext(t *testing.T, opts ...ContextOption) (*Context, *gputest.Device) {
	t.Helper()
	return newTestContextWithFeatures(t, 0, opts...)
}

func newTestContextWithFeatures(t *testing.T, features gpucore.Features, opts ...ContextOption) (*Context, *gputest.Device) {
	t.Helper()
	dev := gputest.NewDevice(features)
	ctx, err := NewContext(dev, opts...)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx, dev
}

func newTestShader(t *testing.T, ctx *Context) *Shader {
	t.Helper()
	s, err := NewShader(ctx, ShaderSource{Label: "test", WGSL: testWGSL})
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}
	return s
}

func newTestBuffer(t *testing.T, ctx *Context, label string, size uint64) *Buffer {
	t.Helper()
	b, err := NewBuffer(ctx, BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageStorage | gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("NewBuffer(%q): %v", label, err)
	}
	return b
}

// newTestTarget creates a render attachment of the given format.
func newTestTarget(t *testing.T, ctx *Context, format gputypes.TextureFormat) RenderTexture {
	t.Helper()
	tex, err := NewTexture(ctx, TextureDescriptor{
		Label:     "target",
		Width:     64,
		Height:    64,
		Dimension: gputypes.TextureDimension2D,
		Format:    format,
		Usage:     gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	rt, err := tex.AsRenderTexture()
	if err != nil {
		t.Fatalf("AsRenderTexture: %v", err)
	}
	return rt
}

func testPipeline(s *Shader) RenderPipeline {
	return NewRenderPipelineBuilder(s.EntryPoint("vs_main")).
		Fragment(s.EntryPoint("fs_main"), &ColorTargetState{WriteMask: gpucore.ColorWriteAll}).
		Label("test").
		Build()
}

func colorPass(target RenderTexture) RenderPassDescriptor {
	return RenderPassDescriptor{
		Label: "color",
		ColorAttachments: []ColorAttachment{{
			Target:  target,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
		}},
	}
}

// submitDraws records one render pass with the given draws and submits it.
func submitDraws(t *testing.T, ctx *Context, target RenderTexture, draws ...DrawCall) {
	t.Helper()
	if err := trySubmitDraws(ctx, target, draws...); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func trySubmitDraws(ctx *Context, target RenderTexture, draws ...DrawCall) error {
	return ctx.Encode("frame", func(enc *CommandEncoder) error {
		return enc.RenderPass(colorPass(target), func(p *RenderPass) error {
			for _, d := range draws {
				if err := p.Draw(d); err != nil {
					return err
				}
			}
			return nil
		})
	})
}
