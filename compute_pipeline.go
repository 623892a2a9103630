package gpukit

import (
	"fmt"

	"github.com/gogpu/gpukit/gpucore"
)

// ComputePipeline describes a compute pipeline. The pipeline layout is
// derived at dispatch time from the bind groups of each dispatch.
type ComputePipeline struct {
	label string
	entry EntryPoint
}

// ComputePipelineBuilder builds a ComputePipeline.
type ComputePipelineBuilder struct {
	p ComputePipeline
}

// NewComputePipelineBuilder starts a pipeline for a compute entry point.
func NewComputePipelineBuilder(entry EntryPoint) *ComputePipelineBuilder {
	return &ComputePipelineBuilder{p: ComputePipeline{entry: entry}}
}

// Label sets the optional debug name.
func (b *ComputePipelineBuilder) Label(label string) *ComputePipelineBuilder {
	b.p.label = label
	return b
}

// Build returns the pipeline description.
func (b *ComputePipelineBuilder) Build() ComputePipeline {
	return b.p
}

// Label returns the debug name of the pipeline.
func (p ComputePipeline) Label() string { return p.label }

func (p ComputePipeline) key(layout PipelineLayout) string {
	var w keyWriter
	w.tag(tagComputePipeline)
	w.raw(layout.key())
	p.entry.encode(&w)
	return w.String()
}

// computePipeline resolves p for the given bind groups and returns it with
// an extra reference. Caller must hold c.mu.
func (c *Context) computePipeline(p ComputePipeline, groups []BindGroup) (*Shared[gpucore.ComputePipelineID], error) {
	layout := PipelineLayoutFor(groups)
	h, err := c.computePipelines.GetOrInsert(p.key(layout), func() (*Shared[gpucore.ComputePipelineID], error) {
		if p.entry.IsZero() {
			return nil, fmt.Errorf("%w: missing shader entry point", ErrConfiguration)
		}
		shader, err := p.entry.shader.retain()
		if err != nil {
			return nil, err
		}
		pl, err := c.pipelineLayout(layout)
		if err != nil {
			shader.Release()
			return nil, err
		}
		id, err := c.device.CreateComputePipeline(&gpucore.ComputePipelineDescriptor{
			Label:      c.label(p.label),
			Layout:     pl.ID(),
			Module:     shader.ID(),
			EntryPoint: p.entry.name,
		})
		if err != nil {
			pl.Release()
			shader.Release()
			return nil, configError(err)
		}
		c.logger().Debug("gpukit: compute pipeline created", "label", p.label, "entry", p.entry.name)
		return newShared(id, func(id gpucore.ComputePipelineID) {
			c.device.DestroyComputePipeline(id)
			pl.Release()
			shader.Release()
		}), nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve compute pipeline %q: %w", p.label, err)
	}
	return h.Retain(), nil
}
