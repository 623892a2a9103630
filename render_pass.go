package gpukit

import (
	"fmt"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gputypes"
)

// ColorAttachment is a color attachment of a render pass.
type ColorAttachment struct {
	Target        RenderTexture
	ResolveTarget *RenderTexture
	LoadOp        gputypes.LoadOp
	StoreOp       gputypes.StoreOp
	ClearValue    gputypes.Color
}

// DepthStencilAttachment is the depth/stencil attachment of a render pass.
type DepthStencilAttachment struct {
	Target RenderTexture

	DepthLoadOp     gputypes.LoadOp
	DepthStoreOp    gputypes.StoreOp
	DepthClearValue float32
	DepthReadOnly   bool

	StencilLoadOp     gputypes.LoadOp
	StencilStoreOp    gputypes.StoreOp
	StencilClearValue uint32
	StencilReadOnly   bool
}

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	Label                  string
	ColorAttachments       []ColorAttachment
	DepthStencilAttachment *DepthStencilAttachment

	// Multisample is the multisample state of every pipeline in the pass.
	// Nil means single sampled.
	Multisample *gpucore.MultisampleState
}

// targets returns the attachment state pipelines are compiled against.
func (d *RenderPassDescriptor) targets() renderTargets {
	t := renderTargets{colors: make([]gputypes.TextureFormat, len(d.ColorAttachments))}
	for i, a := range d.ColorAttachments {
		t.colors[i] = a.Target.format
	}
	if ds := d.DepthStencilAttachment; ds != nil {
		t.hasDepth = true
		t.depth = ds.Target.format
	}
	if d.Multisample != nil {
		t.multisample = *d.Multisample
	}
	return t
}

// device converts d to a device descriptor.
func (d *RenderPassDescriptor) device(label string) *gpucore.RenderPassDescriptor {
	out := &gpucore.RenderPassDescriptor{
		Label:            label,
		ColorAttachments: make([]gpucore.RenderPassColorAttachment, len(d.ColorAttachments)),
	}
	for i, a := range d.ColorAttachments {
		ca := gpucore.RenderPassColorAttachment{
			View:       a.Target.View(),
			LoadOp:     a.LoadOp,
			StoreOp:    a.StoreOp,
			ClearValue: a.ClearValue,
		}
		if a.ResolveTarget != nil {
			ca.ResolveTarget = a.ResolveTarget.View()
		}
		out.ColorAttachments[i] = ca
	}
	if ds := d.DepthStencilAttachment; ds != nil {
		out.DepthStencilAttachment = &gpucore.RenderPassDepthStencilAttachment{
			View:              ds.Target.View(),
			DepthLoadOp:       ds.DepthLoadOp,
			DepthStoreOp:      ds.DepthStoreOp,
			DepthClearValue:   ds.DepthClearValue,
			DepthReadOnly:     ds.DepthReadOnly,
			StencilLoadOp:     ds.StencilLoadOp,
			StencilStoreOp:    ds.StencilStoreOp,
			StencilClearValue: ds.StencilClearValue,
			StencilReadOnly:   ds.StencilReadOnly,
		}
	}
	return out
}

// retainViews takes a reference to every attachment view.
func (d *RenderPassDescriptor) retainViews() []*Shared[gpucore.TextureViewID] {
	var views []*Shared[gpucore.TextureViewID]
	add := func(r RenderTexture) {
		if r.view != nil {
			views = append(views, r.view.Retain())
		}
	}
	for _, a := range d.ColorAttachments {
		add(a.Target)
		if a.ResolveTarget != nil {
			add(*a.ResolveTarget)
		}
	}
	if d.DepthStencilAttachment != nil {
		add(d.DepthStencilAttachment.Target)
	}
	return views
}

// RenderPass records draw calls. Open one with CommandEncoder.BeginRenderPass
// or CommandEncoder.RenderPass.
//
// A RenderPass never talks to the device. End hands the recorded draws to
// the encoder as a single pass.
type RenderPass struct {
	enc   *CommandEncoder
	desc  RenderPassDescriptor
	views []*Shared[gpucore.TextureViewID]
	draws []DrawCall
	ended bool
}

// Draw appends a draw call.
func (p *RenderPass) Draw(dc DrawCall) error {
	if p.ended {
		return fmt.Errorf("draw in render pass %q: %w", p.desc.Label, ErrPassEnded)
	}
	p.draws = append(p.draws, dc)
	return nil
}

// End hands the pass to the encoder and unlocks it. Calling End again
// has no effect.
func (p *RenderPass) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.enc.endPass(pass{kind: passRender, render: p})
}

// ComputePass records dispatches. Open one with
// CommandEncoder.BeginComputePass or CommandEncoder.ComputePass.
type ComputePass struct {
	enc        *CommandEncoder
	label      string
	dispatches []Dispatch
	ended      bool
}

// Dispatch appends a dispatch.
func (p *ComputePass) Dispatch(d Dispatch) error {
	if p.ended {
		return fmt.Errorf("dispatch in compute pass %q: %w", p.label, ErrPassEnded)
	}
	p.dispatches = append(p.dispatches, d)
	return nil
}

// End hands the pass to the encoder and unlocks it. Calling End again
// has no effect.
func (p *ComputePass) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.enc.endPass(pass{kind: passCompute, compute: p})
}
