package gpukit

import (
	"fmt"

	"github.com/gogpu/gpukit/gpucore"
)

// PipelineLayout is the ordered list of bind group layouts a pipeline is
// compatible with. It is derived per draw or dispatch from the bind groups
// actually used.
type PipelineLayout struct {
	groups []BindGroupLayout
}

// PipelineLayoutFor derives the pipeline layout implied by groups, with
// groups[i] bound at index i.
func PipelineLayoutFor(groups []BindGroup) PipelineLayout {
	layouts := make([]BindGroupLayout, len(groups))
	for i, g := range groups {
		layouts[i] = g.BuildLayout()
	}
	return PipelineLayout{groups: layouts}
}

// BindGroupLayouts returns the layouts in bind group index order.
func (p PipelineLayout) BindGroupLayouts() []BindGroupLayout {
	return append([]BindGroupLayout(nil), p.groups...)
}

func (p PipelineLayout) key() string {
	var w keyWriter
	w.tag(tagPipelineLayout)
	w.u32(uint32(len(p.groups)))
	for _, g := range p.groups {
		w.raw(g.key())
	}
	return w.String()
}

// Resolve returns the device pipeline layout, creating it on first use.
// The returned handle carries a reference owned by the caller.
func (p PipelineLayout) Resolve(ctx *Context) (*Shared[gpucore.PipelineLayoutID], error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.pipelineLayout(p)
}

// pipelineLayout resolves p through the pipeline layout cache and returns
// it with an extra reference. Caller must hold c.mu.
func (c *Context) pipelineLayout(p PipelineLayout) (*Shared[gpucore.PipelineLayoutID], error) {
	h, err := c.pipelineLayouts.GetOrInsert(p.key(), func() (*Shared[gpucore.PipelineLayoutID], error) {
		layouts := make([]*Shared[gpucore.BindGroupLayoutID], 0, len(p.groups))
		ids := make([]gpucore.BindGroupLayoutID, 0, len(p.groups))
		for _, g := range p.groups {
			l, err := c.bindGroupLayout(g)
			if err != nil {
				releaseAll(layouts)
				return nil, err
			}
			layouts = append(layouts, l)
			ids = append(ids, l.ID())
		}

		id, err := c.device.CreatePipelineLayout(&gpucore.PipelineLayoutDescriptor{
			Label:            c.label("pipeline layout"),
			BindGroupLayouts: ids,
		})
		if err != nil {
			releaseAll(layouts)
			return nil, configError(err)
		}
		c.logger().Debug("gpukit: pipeline layout created", "groups", len(ids))
		return newShared(id, func(id gpucore.PipelineLayoutID) {
			c.device.DestroyPipelineLayout(id)
			releaseAll(layouts)
		}), nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve pipeline layout: %w", err)
	}
	return h.Retain(), nil
}
