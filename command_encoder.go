package gpukit

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpukit/gpucore"
)

type encoderState uint8

const (
	stateRecording encoderState = iota
	stateLocked
	stateSubmitted
)

type passKind uint8

const (
	passRender passKind = iota
	passCompute
	passClear
	passCopy
)

// pass is one recorded unit of work, in submission order.
type pass struct {
	kind    passKind
	render  *RenderPass
	compute *ComputePass

	// Clear and copy.
	src, dst             *Buffer
	srcOffset, dstOffset uint64
	size                 uint64
}

// CommandEncoder records passes and submits them as one command buffer.
//
// Nothing is resolved or sent to the device until Submit. While a pass is
// open the encoder is locked; every pass must be ended before the next one
// begins or the encoder is submitted.
//
// An encoder must be submitted. Context.Close reports encoders that were
// dropped without submission. CommandEncoder is not safe for concurrent use.
type CommandEncoder struct {
	ctx    *Context
	label  string
	state  encoderState
	passes []pass
	open   interface{ End() }
}

// NewCommandEncoder creates an encoder that records into this context.
func (c *Context) NewCommandEncoder(label string) *CommandEncoder {
	e := &CommandEncoder{ctx: c, label: label}
	c.track(e)
	return e
}

// Label returns the debug name of the encoder.
func (e *CommandEncoder) Label() string { return e.label }

func (e *CommandEncoder) checkRecording() error {
	switch e.state {
	case stateSubmitted:
		return fmt.Errorf("encoder %q: %w", e.label, ErrEncoderSubmitted)
	case stateLocked:
		return fmt.Errorf("encoder %q: %w", e.label, ErrPassOpen)
	}
	return nil
}

// BeginRenderPass opens a render pass. The encoder stays locked until the
// pass is ended.
func (e *CommandEncoder) BeginRenderPass(desc RenderPassDescriptor) (*RenderPass, error) {
	if err := e.checkRecording(); err != nil {
		return nil, err
	}
	if len(desc.ColorAttachments) == 0 && desc.DepthStencilAttachment == nil {
		return nil, fmt.Errorf("%w: render pass %q has no attachments", ErrConfiguration, desc.Label)
	}
	desc.ColorAttachments = append([]ColorAttachment(nil), desc.ColorAttachments...)
	p := &RenderPass{enc: e, desc: desc, views: desc.retainViews()}
	e.state = stateLocked
	e.open = p
	return p, nil
}

// BeginComputePass opens a compute pass. The encoder stays locked until
// the pass is ended.
func (e *CommandEncoder) BeginComputePass(label string) (*ComputePass, error) {
	if err := e.checkRecording(); err != nil {
		return nil, err
	}
	p := &ComputePass{enc: e, label: label}
	e.state = stateLocked
	e.open = p
	return p, nil
}

// RenderPass opens a render pass, calls fn and ends the pass, also when fn
// returns an error or panics.
func (e *CommandEncoder) RenderPass(desc RenderPassDescriptor, fn func(*RenderPass) error) error {
	p, err := e.BeginRenderPass(desc)
	if err != nil {
		return err
	}
	defer p.End()
	return fn(p)
}

// ComputePass opens a compute pass, calls fn and ends the pass, also when
// fn returns an error or panics.
func (e *CommandEncoder) ComputePass(label string, fn func(*ComputePass) error) error {
	p, err := e.BeginComputePass(label)
	if err != nil {
		return err
	}
	defer p.End()
	return fn(p)
}

// ClearBuffer records zeroing size bytes of buf at offset. A size of 0
// clears to the end of the buffer.
func (e *CommandEncoder) ClearBuffer(buf *Buffer, offset, size uint64) error {
	if err := e.checkRecording(); err != nil {
		return err
	}
	e.passes = append(e.passes, pass{kind: passClear, dst: buf, dstOffset: offset, size: size})
	return nil
}

// CopyBufferToBuffer records a copy of size bytes from src to dst.
func (e *CommandEncoder) CopyBufferToBuffer(src *Buffer, srcOffset uint64, dst *Buffer, dstOffset, size uint64) error {
	if err := e.checkRecording(); err != nil {
		return err
	}
	e.passes = append(e.passes, pass{
		kind: passCopy, src: src, srcOffset: srcOffset,
		dst: dst, dstOffset: dstOffset, size: size,
	})
	return nil
}

// endPass appends a finished pass and unlocks the encoder.
func (e *CommandEncoder) endPass(p pass) {
	if e.state == stateLocked {
		e.state = stateRecording
	}
	e.open = nil
	e.passes = append(e.passes, p)
}

// Submit resolves every bind group and pipeline referenced by the
// recorded passes, records them into a device command buffer and submits
// it. The context caches are aged once afterwards, whether or not the
// submission succeeded.
//
// A failed submission sends nothing to the queue. The encoder cannot be
// used again after Submit returns.
func (e *CommandEncoder) Submit() error {
	if err := e.checkRecording(); err != nil {
		return err
	}
	e.state = stateSubmitted
	passes := e.passes
	e.passes = nil

	c := e.ctx
	defer c.untrack(e)
	defer releasePassViews(passes)

	if c.isClosed() {
		return fmt.Errorf("submit %q: %w", e.label, ErrContextClosed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.age()

	var held retained
	defer held.release()

	plan, err := c.resolve(passes, &held)
	if err != nil {
		return fmt.Errorf("submit %q: %w", e.label, err)
	}

	enc, err := c.device.CreateCommandEncoder(c.label(e.label))
	if err != nil {
		return fmt.Errorf("submit %q: create encoder: %w", e.label, err)
	}
	if err := c.record(enc, plan); err != nil {
		enc.Discard()
		return fmt.Errorf("submit %q: %w", e.label, err)
	}
	cmd, err := enc.Finish()
	if err != nil {
		enc.Discard()
		return fmt.Errorf("submit %q: finish: %w", e.label, err)
	}
	if err := c.device.Submit(cmd); err != nil {
		return fmt.Errorf("submit %q: %w", e.label, err)
	}

	c.logger().Debug("gpukit: submitted",
		"label", e.label,
		"passes", len(plan),
		"draws", plan.draws(),
		"dispatches", plan.dispatches())
	return nil
}

// Encode creates an encoder, calls fn and submits the encoder when fn
// returns. Submission also happens when fn returns an error or panics;
// the panic is re-raised afterwards. A pass fn left open is ended first.
// If fn submits the encoder itself, Encode does not submit it again.
func (c *Context) Encode(label string, fn func(*CommandEncoder) error) (err error) {
	e := c.NewCommandEncoder(label)
	defer func() {
		if e.open != nil {
			e.open.End()
		}
		if r := recover(); r != nil {
			if e.state == stateSubmitted {
				panic(r)
			}
			if serr := e.Submit(); serr != nil {
				c.logger().Warn("gpukit: submit after panic failed", "label", label, "err", serr)
			}
			panic(r)
		}
		if e.state != stateSubmitted {
			err = errors.Join(err, e.Submit())
		}
	}()
	return fn(e)
}

func releasePassViews(passes []pass) {
	for _, p := range passes {
		if p.render != nil {
			releaseAll(p.render.views)
			p.render.views = nil
		}
	}
}

// retained collects the references taken while resolving a submission.
type retained struct {
	bindGroups []*Shared[gpucore.BindGroupID]
	render     []*Shared[gpucore.RenderPipelineID]
	compute    []*Shared[gpucore.ComputePipelineID]
	buffers    []*Shared[gpucore.BufferID]
}

func (r *retained) release() {
	releaseAll(r.bindGroups)
	releaseAll(r.render)
	releaseAll(r.compute)
	releaseAll(r.buffers)
	*r = retained{}
}

func (r *retained) buffer(b *Buffer) (gpucore.BufferID, error) {
	if b == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil buffer", ErrConfiguration)
	}
	h, err := b.retain()
	if err != nil {
		return gpucore.InvalidID, err
	}
	r.buffers = append(r.buffers, h)
	return h.ID(), nil
}

type boundGroup struct {
	id      gpucore.BindGroupID
	offsets []uint32
}

type boundSlice struct {
	id           gpucore.BufferID
	offset, size uint64
}

type resolvedDraw struct {
	groups    []boundGroup
	pipeline  gpucore.RenderPipelineID
	vertices  []boundSlice
	index     *boundSlice
	format    gpucore.IndexFormat
	elements  Range
	instances Range
}

type resolvedDispatch struct {
	groups   []boundGroup
	pipeline gpucore.ComputePipelineID
	extent   [3]uint32
}

type resolvedPass struct {
	pass
	draws      []resolvedDraw
	dispatches []resolvedDispatch
	srcID      gpucore.BufferID
	dstID      gpucore.BufferID
}

type submission []resolvedPass

func (s submission) draws() int {
	n := 0
	for _, p := range s {
		n += len(p.draws)
	}
	return n
}

func (s submission) dispatches() int {
	n := 0
	for _, p := range s {
		n += len(p.dispatches)
	}
	return n
}

// resolve turns recorded passes into device IDs. Bind groups are resolved
// before any pipeline, once per distinct bind group in a pass. Caller must
// hold c.mu.
func (c *Context) resolve(passes []pass, held *retained) (submission, error) {
	plan := make(submission, len(passes))
	groups := make([]map[string]gpucore.BindGroupID, len(passes))

	for i, p := range passes {
		plan[i].pass = p
		seen := make(map[string]gpucore.BindGroupID)
		groups[i] = seen
		var err error
		switch p.kind {
		case passRender:
			for _, d := range p.render.draws {
				if err = c.resolveGroups(seen, d.BindGroups, held); err != nil {
					break
				}
			}
		case passCompute:
			for _, d := range p.compute.dispatches {
				if err = c.resolveGroups(seen, d.BindGroups, held); err != nil {
					break
				}
			}
		}
		if err != nil {
			return nil, err
		}
	}

	for i, p := range passes {
		rp := &plan[i]
		var err error
		switch p.kind {
		case passRender:
			rp.draws, err = c.resolveDraws(p.render, groups[i], held)
		case passCompute:
			rp.dispatches, err = c.resolveDispatches(p.compute, groups[i], held)
		case passClear:
			rp.dstID, err = held.buffer(p.dst)
		case passCopy:
			if rp.srcID, err = held.buffer(p.src); err == nil {
				rp.dstID, err = held.buffer(p.dst)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (c *Context) resolveGroups(seen map[string]gpucore.BindGroupID, groups []BindGroup, held *retained) error {
	for _, g := range groups {
		k := g.key()
		if _, ok := seen[k]; ok {
			continue
		}
		h, err := c.bindGroup(g)
		if err != nil {
			return err
		}
		held.bindGroups = append(held.bindGroups, h)
		seen[k] = h.ID()
	}
	return nil
}

func boundGroups(seen map[string]gpucore.BindGroupID, groups []BindGroup, offsets [][]uint32) []boundGroup {
	out := make([]boundGroup, len(groups))
	for j, g := range groups {
		out[j] = boundGroup{id: seen[g.key()], offsets: offsetsAt(offsets, j)}
	}
	return out
}

func (c *Context) resolveDraws(p *RenderPass, seen map[string]gpucore.BindGroupID, held *retained) ([]resolvedDraw, error) {
	targets := p.desc.targets()
	out := make([]resolvedDraw, len(p.draws))
	for i := range p.draws {
		d := &p.draws[i]
		h, err := c.renderPipeline(d.Pipeline, d.BindGroups, d.rasteriser(), targets)
		if err != nil {
			return nil, err
		}
		held.render = append(held.render, h)

		rd := resolvedDraw{
			groups:    boundGroups(seen, d.BindGroups, d.BindGroupOffsets),
			pipeline:  h.ID(),
			vertices:  make([]boundSlice, len(d.Vertices)),
			format:    d.IndexFormat,
			elements:  d.Elements,
			instances: d.instances(),
		}
		for slot, v := range d.Vertices {
			id, err := held.buffer(v.buffer)
			if err != nil {
				return nil, err
			}
			rd.vertices[slot] = boundSlice{id: id, offset: v.offset, size: v.size}
		}
		if d.Indices != nil {
			id, err := held.buffer(d.Indices.buffer)
			if err != nil {
				return nil, err
			}
			rd.index = &boundSlice{id: id, offset: d.Indices.offset, size: d.Indices.size}
		}
		out[i] = rd
	}
	return out, nil
}

func (c *Context) resolveDispatches(p *ComputePass, seen map[string]gpucore.BindGroupID, held *retained) ([]resolvedDispatch, error) {
	out := make([]resolvedDispatch, len(p.dispatches))
	for i, d := range p.dispatches {
		h, err := c.computePipeline(d.Pipeline, d.BindGroups)
		if err != nil {
			return nil, err
		}
		held.compute = append(held.compute, h)
		out[i] = resolvedDispatch{
			groups:   boundGroups(seen, d.BindGroups, d.BindGroupOffsets),
			pipeline: h.ID(),
			extent:   d.Extent,
		}
	}
	return out, nil
}

// record replays a resolved submission into a device encoder.
func (c *Context) record(enc gpucore.CommandEncoder, plan submission) error {
	for _, p := range plan {
		var err error
		switch p.kind {
		case passRender:
			err = c.recordRender(enc, p)
		case passCompute:
			err = c.recordCompute(enc, p)
		case passClear:
			err = enc.ClearBuffer(p.dstID, p.dstOffset, p.size)
		case passCopy:
			err = enc.CopyBufferToBuffer(p.srcID, p.srcOffset, p.dstID, p.dstOffset, p.size)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) recordRender(enc gpucore.CommandEncoder, p resolvedPass) error {
	rp, err := enc.BeginRenderPass(p.render.desc.device(c.label(p.render.desc.Label)))
	if err != nil {
		return fmt.Errorf("render pass %q: %w", p.render.desc.Label, err)
	}
	for _, d := range p.draws {
		for j, g := range d.groups {
			rp.SetBindGroup(uint32(j), g.id, g.offsets)
		}
		rp.SetPipeline(d.pipeline)
		for slot, v := range d.vertices {
			rp.SetVertexBuffer(uint32(slot), v.id, v.offset, v.size)
		}
		if d.index != nil {
			rp.SetIndexBuffer(d.index.id, d.format, d.index.offset, d.index.size)
			rp.DrawIndexed(d.elements.Len(), d.instances.Len(), d.elements.Start, 0, d.instances.Start)
		} else {
			rp.Draw(d.elements.Len(), d.instances.Len(), d.elements.Start, d.instances.Start)
		}
	}
	return rp.End()
}

func (c *Context) recordCompute(enc gpucore.CommandEncoder, p resolvedPass) error {
	cp, err := enc.BeginComputePass(c.label(p.compute.label))
	if err != nil {
		return fmt.Errorf("compute pass %q: %w", p.compute.label, err)
	}
	for _, d := range p.dispatches {
		for j, g := range d.groups {
			cp.SetBindGroup(uint32(j), g.id, g.offsets)
		}
		cp.SetPipeline(d.pipeline)
		cp.Dispatch(d.extent[0], d.extent[1], d.extent[2])
	}
	return cp.End()
}
