package gpukit

import (
	"fmt"
	"slices"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gputypes"
)

// VertexAttribute describes one attribute of a vertex buffer.
type VertexAttribute = gpucore.VertexAttribute

// VertexBufferLayout describes the layout of one vertex buffer.
type VertexBufferLayout = gpucore.VertexBufferLayout

// BlendState describes color and alpha blending.
type BlendState = gpucore.BlendState

// ColorTargetState sets blending and the write mask of one render target.
// The target format comes from the render pass attachment at draw time.
type ColorTargetState struct {
	Blend     *BlendState
	WriteMask gpucore.ColorWriteMask
}

// RenderPipeline describes a render pipeline minus the state that is
// supplied at draw time: the pipeline layout, attachment formats,
// multisample state and rasteriser state.
//
// Building a RenderPipeline performs no device work. The compiled pipeline
// is created on first use and shared by every draw with an equal
// description, layout and draw-time state.
type RenderPipeline struct {
	label         string
	vertex        EntryPoint
	vertexLayouts []VertexBufferLayout
	fragment      *fragmentStage
}

type fragmentStage struct {
	entry   EntryPoint
	targets []*ColorTargetState
}

// RenderPipelineBuilder builds a RenderPipeline.
type RenderPipelineBuilder struct {
	p RenderPipeline
}

// NewRenderPipelineBuilder starts a pipeline with a vertex stage.
func NewRenderPipelineBuilder(vertex EntryPoint, layouts ...VertexBufferLayout) *RenderPipelineBuilder {
	b := &RenderPipelineBuilder{}
	return b.Vertex(vertex, layouts...)
}

// Vertex replaces the vertex stage.
func (b *RenderPipelineBuilder) Vertex(entry EntryPoint, layouts ...VertexBufferLayout) *RenderPipelineBuilder {
	b.p.vertex = entry
	b.p.vertexLayouts = layouts
	return b
}

// Fragment sets the fragment stage. targets[i] configures color
// attachment i; a nil target leaves that attachment without output.
func (b *RenderPipelineBuilder) Fragment(entry EntryPoint, targets ...*ColorTargetState) *RenderPipelineBuilder {
	b.p.fragment = &fragmentStage{entry: entry, targets: targets}
	return b
}

// NoFragment removes the fragment stage, for depth-only pipelines.
func (b *RenderPipelineBuilder) NoFragment() *RenderPipelineBuilder {
	b.p.fragment = nil
	return b
}

// Label sets the optional debug name.
func (b *RenderPipelineBuilder) Label(label string) *RenderPipelineBuilder {
	b.p.label = label
	return b
}

// Build returns the pipeline description.
func (b *RenderPipelineBuilder) Build() RenderPipeline {
	p := RenderPipeline{label: b.p.label, vertex: b.p.vertex}
	p.vertexLayouts = make([]VertexBufferLayout, len(b.p.vertexLayouts))
	for i, l := range b.p.vertexLayouts {
		l.Attributes = slices.Clone(l.Attributes)
		p.vertexLayouts[i] = l
	}
	if f := b.p.fragment; f != nil {
		targets := make([]*ColorTargetState, len(f.targets))
		for i, t := range f.targets {
			if t != nil {
				c := *t
				if t.Blend != nil {
					blend := *t.Blend
					c.Blend = &blend
				}
				targets[i] = &c
			}
		}
		p.fragment = &fragmentStage{entry: f.entry, targets: targets}
	}
	return p
}

// Label returns the debug name of the pipeline.
func (p RenderPipeline) Label() string { return p.label }

// renderTargets is the attachment state of a render pass.
type renderTargets struct {
	colors      []gputypes.TextureFormat
	depth       gputypes.TextureFormat
	hasDepth    bool
	multisample gpucore.MultisampleState
}

func (t renderTargets) encode(w *keyWriter) {
	w.u32(uint32(len(t.colors)))
	for _, f := range t.colors {
		w.u32(uint32(f))
	}
	w.bool(t.hasDepth)
	if t.hasDepth {
		w.u32(uint32(t.depth))
	}
	w.u32(t.multisample.Count)
	w.u32(t.multisample.Mask)
	w.bool(t.multisample.AlphaToCoverageEnabled)
}

// key encodes everything that changes the compiled pipeline.
func (p RenderPipeline) key(layout PipelineLayout, rs RasteriserState, targets renderTargets) string {
	var w keyWriter
	w.tag(tagRenderPipeline)
	w.raw(layout.key())
	p.vertex.encode(&w)
	w.u32(uint32(len(p.vertexLayouts)))
	for _, l := range p.vertexLayouts {
		w.tag(tagVertexLayout)
		w.u64(l.ArrayStride)
		w.u32(uint32(l.StepMode))
		w.u32(uint32(len(l.Attributes)))
		for _, a := range l.Attributes {
			w.u32(uint32(a.Format))
			w.u64(a.Offset)
			w.u32(a.ShaderLocation)
		}
	}
	if p.fragment == nil {
		w.tag(tagNone)
	} else {
		p.fragment.entry.encode(&w)
		w.u32(uint32(len(p.fragment.targets)))
		for _, t := range p.fragment.targets {
			if t == nil {
				w.tag(tagNoColorTarget)
				continue
			}
			w.tag(tagColorTarget)
			w.bool(t.Blend != nil)
			if t.Blend != nil {
				encodeBlend(&w, t.Blend.Color)
				encodeBlend(&w, t.Blend.Alpha)
			}
			w.u8(uint8(t.WriteMask))
		}
	}
	rs.encode(&w)
	targets.encode(&w)
	return w.String()
}

func encodeBlend(w *keyWriter, c gpucore.BlendComponent) {
	w.u32(uint32(c.SrcFactor))
	w.u32(uint32(c.DstFactor))
	w.u32(uint32(c.Operation))
}

// validate checks draw-time state against the device and the pass.
func (p RenderPipeline) validate(features gpucore.Features, rs RasteriserState, targets renderTargets) error {
	if need := rs.PolygonMode.RequiredFeature(); !features.Has(need) {
		return fmt.Errorf("%w: polygon mode %v requires %v", ErrMissingFeature, rs.PolygonMode, need)
	}
	if p.fragment != nil && len(p.fragment.targets) > len(targets.colors) {
		return fmt.Errorf("%w: %d targets, %d color attachments", ErrTargetMismatch,
			len(p.fragment.targets), len(targets.colors))
	}
	return nil
}

// renderPipeline resolves p for the given bind groups and draw-time state
// and returns it with an extra reference. Caller must hold c.mu.
func (c *Context) renderPipeline(p RenderPipeline, groups []BindGroup, rs RasteriserState, targets renderTargets) (*Shared[gpucore.RenderPipelineID], error) {
	if err := p.validate(c.device.Features(), rs, targets); err != nil {
		return nil, fmt.Errorf("resolve render pipeline %q: %w", p.label, err)
	}
	layout := PipelineLayoutFor(groups)
	h, err := c.renderPipelines.GetOrInsert(p.key(layout, rs, targets), func() (*Shared[gpucore.RenderPipelineID], error) {
		return c.createRenderPipeline(p, layout, rs, targets)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve render pipeline %q: %w", p.label, err)
	}
	return h.Retain(), nil
}

func (c *Context) createRenderPipeline(p RenderPipeline, layout PipelineLayout, rs RasteriserState, targets renderTargets) (*Shared[gpucore.RenderPipelineID], error) {
	if p.vertex.IsZero() || (p.fragment != nil && p.fragment.entry.IsZero()) {
		return nil, fmt.Errorf("%w: missing shader entry point", ErrConfiguration)
	}
	vs, err := p.vertex.shader.retain()
	if err != nil {
		return nil, err
	}
	shaders := []*Shared[gpucore.ShaderModuleID]{vs}
	if f := p.fragment; f != nil {
		fs, err := f.entry.shader.retain()
		if err != nil {
			releaseAll(shaders)
			return nil, err
		}
		shaders = append(shaders, fs)
	}
	pl, err := c.pipelineLayout(layout)
	if err != nil {
		releaseAll(shaders)
		return nil, err
	}

	desc := gpucore.RenderPipelineDescriptor{
		Label:  c.label(p.label),
		Layout: pl.ID(),
		Vertex: gpucore.VertexState{
			Module:     p.vertex.shader.Module(),
			EntryPoint: p.vertex.name,
			Buffers:    p.vertexLayouts,
		},
		Primitive: gpucore.PrimitiveState{
			Topology:    gputypes.PrimitiveTopologyTriangleList,
			FrontFace:   rs.FrontFace,
			CullMode:    rs.CullMode,
			PolygonMode: rs.PolygonMode,
		},
		Multisample: targets.multisample,
	}
	if f := p.fragment; f != nil {
		var out []gpucore.ColorTargetState
		for i, t := range f.targets {
			if t == nil {
				continue
			}
			out = append(out, gpucore.ColorTargetState{
				Format:    targets.colors[i],
				Blend:     t.Blend,
				WriteMask: t.WriteMask,
			})
		}
		desc.Fragment = &gpucore.FragmentState{
			Module:     f.entry.shader.Module(),
			EntryPoint: f.entry.name,
			Targets:    out,
		}
	}
	if targets.hasDepth {
		desc.DepthStencil = &gpucore.DepthStencilState{
			Format:            targets.depth,
			DepthWriteEnabled: rs.DepthWrite,
			DepthCompare:      rs.DepthCompare,
		}
	}

	id, err := c.device.CreateRenderPipeline(&desc)
	if err != nil {
		pl.Release()
		releaseAll(shaders)
		return nil, configError(err)
	}
	c.logger().Debug("gpukit: render pipeline created", "label", p.label, "vertex", p.vertex.name)
	return newShared(id, func(id gpucore.RenderPipelineID) {
		c.device.DestroyRenderPipeline(id)
		pl.Release()
		releaseAll(shaders)
	}), nil
}
