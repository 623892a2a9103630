//go:build !nogpu

package native

import (
	"fmt"
	"time"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// === Command Recording ===

// commandEncoder implements gpucore.CommandEncoder over hal.CommandEncoder.
// Lookup failures inside passes are kept and reported by Finish, because
// pass methods have no error return.
type commandEncoder struct {
	d        *HALDevice
	label    string
	raw      hal.CommandEncoder
	staging  []hal.Buffer
	passOpen bool
	done     bool
	err      error
}

var _ gpucore.CommandEncoder = (*commandEncoder)(nil)

// commandBuffer is a finished recording owned by one HALDevice.
type commandBuffer struct {
	d         *HALDevice
	label     string
	raw       hal.CommandBuffer
	staging   []hal.Buffer
	submitted bool
}

// Label returns the debug label of the recording.
func (c *commandBuffer) Label() string { return c.label }

// CreateCommandEncoder begins recording a new command buffer.
func (d *HALDevice) CreateCommandEncoder(label string) (gpucore.CommandEncoder, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	raw, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder %q: %w", label, err)
	}
	if err := raw.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("native: begin encoding %q: %w", label, err)
	}
	return &commandEncoder{d: d, label: label, raw: raw}, nil
}

func (e *commandEncoder) check() error {
	if e.done {
		return fmt.Errorf("%w: encoder %q already finished", ErrEncoderState, e.label)
	}
	if e.passOpen {
		return fmt.Errorf("%w: encoder %q has an open pass", ErrEncoderState, e.label)
	}
	return nil
}

// fail keeps the first recording error.
func (e *commandEncoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// BeginRenderPass begins a render pass.
func (e *commandEncoder) BeginRenderPass(desc *gpucore.RenderPassDescriptor) (gpucore.RenderPassEncoder, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	halDesc, err := e.d.convertRenderPass(desc)
	if err != nil {
		return nil, fmt.Errorf("native: render pass %q: %w", desc.Label, err)
	}
	e.passOpen = true
	return &renderPass{enc: e, raw: e.raw.BeginRenderPass(halDesc)}, nil
}

// BeginComputePass begins a compute pass.
func (e *commandEncoder) BeginComputePass(label string) (gpucore.ComputePassEncoder, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	e.passOpen = true
	return &computePass{enc: e, raw: e.raw.BeginComputePass(&hal.ComputePassDescriptor{Label: label})}, nil
}

// ClearBuffer zeroes a buffer range by copying from a zero-filled staging
// buffer that lives until the submission completes.
func (e *commandEncoder) ClearBuffer(id gpucore.BufferID, offset, size uint64) error {
	if err := e.check(); err != nil {
		return err
	}
	e.d.mu.RLock()
	b, err := lookup(e.d.buffers, id, "buffer")
	e.d.mu.RUnlock()
	if err != nil {
		return err
	}
	if size == 0 && offset < b.size {
		size = b.size - offset
	}
	if offset+size > b.size {
		return fmt.Errorf("native: clear of %d bytes at %d overflows buffer %d", size, offset, id)
	}
	if size == 0 {
		return nil
	}

	zeros, err := e.d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: e.label + "_zero",
		Size:  size,
		Usage: zeroFillUsage,
	})
	if err != nil {
		return fmt.Errorf("native: create zero buffer: %w", err)
	}
	e.d.queue.WriteBuffer(zeros, 0, make([]byte, size))
	e.staging = append(e.staging, zeros)
	e.raw.CopyBufferToBuffer(zeros, b.raw, []hal.BufferCopy{{SrcOffset: 0, DstOffset: offset, Size: size}})
	return nil
}

// CopyBufferToBuffer copies size bytes between buffers.
func (e *commandEncoder) CopyBufferToBuffer(src gpucore.BufferID, srcOffset uint64, dst gpucore.BufferID, dstOffset, size uint64) error {
	if err := e.check(); err != nil {
		return err
	}
	e.d.mu.RLock()
	s, srcErr := lookup(e.d.buffers, src, "buffer")
	t, dstErr := lookup(e.d.buffers, dst, "buffer")
	e.d.mu.RUnlock()
	if srcErr != nil {
		return srcErr
	}
	if dstErr != nil {
		return dstErr
	}
	if srcOffset+size > s.size || dstOffset+size > t.size {
		return fmt.Errorf("native: copy of %d bytes out of range (src %d+%d/%d, dst %d+%d/%d)",
			size, srcOffset, size, s.size, dstOffset, size, t.size)
	}
	e.raw.CopyBufferToBuffer(s.raw, t.raw, []hal.BufferCopy{{SrcOffset: srcOffset, DstOffset: dstOffset, Size: size}})
	return nil
}

// Finish ends recording. It reports the first error recorded in a pass.
func (e *commandEncoder) Finish() (gpucore.CommandBuffer, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	if e.err != nil {
		e.Discard()
		return nil, fmt.Errorf("native: encoder %q: %w", e.label, e.err)
	}
	e.done = true
	raw, err := e.raw.EndEncoding()
	if err != nil {
		e.d.destroyStaging(e.staging)
		return nil, fmt.Errorf("native: end encoding %q: %w", e.label, err)
	}
	return &commandBuffer{d: e.d, label: e.label, raw: raw, staging: e.staging}, nil
}

// Discard abandons the recording.
func (e *commandEncoder) Discard() {
	if e.done {
		return
	}
	e.done = true
	e.raw.DiscardEncoding()
	e.d.destroyStaging(e.staging)
	e.staging = nil
}

// convertRenderPass resolves attachment views.
func (d *HALDevice) convertRenderPass(desc *gpucore.RenderPassDescriptor) (*hal.RenderPassDescriptor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := &hal.RenderPassDescriptor{Label: desc.Label}
	for _, ca := range desc.ColorAttachments {
		view, err := lookup(d.views, ca.View, "texture view")
		if err != nil {
			return nil, err
		}
		a := hal.RenderPassColorAttachment{
			View:       view,
			LoadOp:     ca.LoadOp,
			StoreOp:    ca.StoreOp,
			ClearValue: ca.ClearValue,
		}
		if ca.ResolveTarget != gpucore.InvalidID {
			if a.ResolveTarget, err = lookup(d.views, ca.ResolveTarget, "texture view"); err != nil {
				return nil, err
			}
		}
		out.ColorAttachments = append(out.ColorAttachments, a)
	}

	if ds := desc.DepthStencilAttachment; ds != nil {
		view, err := lookup(d.views, ds.View, "texture view")
		if err != nil {
			return nil, err
		}
		a := &hal.RenderPassDepthStencilAttachment{
			View:              view,
			DepthLoadOp:       ds.DepthLoadOp,
			DepthStoreOp:      ds.DepthStoreOp,
			DepthClearValue:   ds.DepthClearValue,
			StencilLoadOp:     ds.StencilLoadOp,
			StencilStoreOp:    ds.StencilStoreOp,
			StencilClearValue: ds.StencilClearValue,
		}
		// Read-only aspects keep their contents.
		if ds.DepthReadOnly {
			a.DepthLoadOp, a.DepthStoreOp = gputypes.LoadOpLoad, gputypes.StoreOpStore
		}
		if ds.StencilReadOnly {
			a.StencilLoadOp, a.StencilStoreOp = gputypes.LoadOpLoad, gputypes.StoreOpStore
		}
		out.DepthStencilAttachment = a
	}
	return out, nil
}

// === Passes ===

type renderPass struct {
	enc   *commandEncoder
	raw   hal.RenderPassEncoder
	ended bool
}

// SetBindGroup binds a bind group for subsequent draws.
func (p *renderPass) SetBindGroup(index uint32, id gpucore.BindGroupID, offsets []uint32) {
	p.enc.d.mu.RLock()
	g, err := lookup(p.enc.d.bindGroups, id, "bind group")
	p.enc.d.mu.RUnlock()
	if err != nil {
		p.enc.fail(err)
		return
	}
	p.raw.SetBindGroup(index, g, offsets)
}

// SetPipeline sets the active render pipeline.
func (p *renderPass) SetPipeline(id gpucore.RenderPipelineID) {
	p.enc.d.mu.RLock()
	pl, err := lookup(p.enc.d.renderPipelines, id, "render pipeline")
	p.enc.d.mu.RUnlock()
	if err != nil {
		p.enc.fail(err)
		return
	}
	p.raw.SetPipeline(pl)
}

// SetVertexBuffer binds a vertex buffer from offset to the end of the
// buffer. The HAL binds to the end, so size is not forwarded.
func (p *renderPass) SetVertexBuffer(slot uint32, id gpucore.BufferID, offset, _ uint64) {
	p.enc.d.mu.RLock()
	b, err := lookup(p.enc.d.buffers, id, "buffer")
	p.enc.d.mu.RUnlock()
	if err != nil {
		p.enc.fail(err)
		return
	}
	p.raw.SetVertexBuffer(slot, b.raw, offset)
}

// SetIndexBuffer binds the index buffer from offset.
func (p *renderPass) SetIndexBuffer(id gpucore.BufferID, format gpucore.IndexFormat, offset, _ uint64) {
	p.enc.d.mu.RLock()
	b, err := lookup(p.enc.d.buffers, id, "buffer")
	p.enc.d.mu.RUnlock()
	if err != nil {
		p.enc.fail(err)
		return
	}
	p.raw.SetIndexBuffer(b.raw, convertIndexFormat(format), offset)
}

// Draw draws non-indexed primitives.
func (p *renderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.raw.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// DrawIndexed draws indexed primitives.
func (p *renderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.raw.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

// End finishes the render pass.
func (p *renderPass) End() error {
	if p.ended {
		return fmt.Errorf("%w: render pass already ended", ErrEncoderState)
	}
	p.ended = true
	p.raw.End()
	p.enc.passOpen = false
	return nil
}

type computePass struct {
	enc   *commandEncoder
	raw   hal.ComputePassEncoder
	ended bool
}

// SetBindGroup binds a bind group for subsequent dispatches.
func (p *computePass) SetBindGroup(index uint32, id gpucore.BindGroupID, offsets []uint32) {
	p.enc.d.mu.RLock()
	g, err := lookup(p.enc.d.bindGroups, id, "bind group")
	p.enc.d.mu.RUnlock()
	if err != nil {
		p.enc.fail(err)
		return
	}
	p.raw.SetBindGroup(index, g, offsets)
}

// SetPipeline sets the active compute pipeline.
func (p *computePass) SetPipeline(id gpucore.ComputePipelineID) {
	p.enc.d.mu.RLock()
	pl, err := lookup(p.enc.d.computePipelines, id, "compute pipeline")
	p.enc.d.mu.RUnlock()
	if err != nil {
		p.enc.fail(err)
		return
	}
	p.raw.SetPipeline(pl)
}

// Dispatch dispatches compute workgroups.
func (p *computePass) Dispatch(x, y, z uint32) {
	p.raw.Dispatch(x, y, z)
}

// End finishes the compute pass.
func (p *computePass) End() error {
	if p.ended {
		return fmt.Errorf("%w: compute pass already ended", ErrEncoderState)
	}
	p.ended = true
	p.raw.End()
	p.enc.passOpen = false
	return nil
}

// === Submission ===

// Submit submits a finished command buffer. Without WithSubmitWait it
// returns once the queue has accepted the work; completed submissions are
// reclaimed on later submits.
func (d *HALDevice) Submit(cmd gpucore.CommandBuffer) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	cb, ok := cmd.(*commandBuffer)
	if !ok || cb.d != d {
		return ErrForeignCommandBuffer
	}
	if cb.submitted {
		return fmt.Errorf("%w: command buffer %q already submitted", ErrEncoderState, cb.label)
	}
	cb.submitted = true

	value, err := d.submit(cb.raw, cb.staging)
	if err != nil {
		slogger().Warn("native: submit failed", "label", cb.label, "err", err)
		return fmt.Errorf("native: submit %q: %w", cb.label, err)
	}
	if d.opts.submitWait > 0 {
		if err := d.waitFor(value, d.opts.submitWait); err != nil {
			slogger().Warn("native: submission did not complete", "label", cb.label, "err", err)
			return fmt.Errorf("native: submit %q: %w", cb.label, err)
		}
	}
	slogger().Debug("native: submitted", "label", cb.label, "fence", value)
	return nil
}

// Pending returns the number of submissions the GPU has not finished.
func (d *HALDevice) Pending() int {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	d.reclaimLocked(0)
	return len(d.inflight)
}

// WaitIdle blocks until every submission has completed.
func (d *HALDevice) WaitIdle() error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	if d.signaled == 0 {
		return nil
	}
	_, err := d.waitLocked(d.signaled, d.opts.fenceTimeout)
	return err
}

// submit queues cmd and signals the next fence value.
func (d *HALDevice) submit(cmd hal.CommandBuffer, staging []hal.Buffer) (uint64, error) {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	d.reclaimLocked(0)

	value := d.signaled + 1
	if err := d.queue.Submit([]hal.CommandBuffer{cmd}, d.fence, value); err != nil {
		d.free(inflight{cmd: cmd, staging: staging})
		return 0, err
	}
	d.signaled = value
	d.inflight = append(d.inflight, inflight{value: value, cmd: cmd, staging: staging})
	return value, nil
}

func (d *HALDevice) waitFor(value uint64, timeout time.Duration) error {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	_, err := d.waitLocked(value, timeout)
	return err
}

// waitLocked waits for the fence to reach value and reclaims finished work.
// Must be called with submitMu held.
func (d *HALDevice) waitLocked(value uint64, timeout time.Duration) (bool, error) {
	ok, err := d.device.Wait(d.fence, value, timeout)
	if err != nil {
		return false, fmt.Errorf("native: wait for fence %d: %w", value, err)
	}
	if !ok {
		return false, fmt.Errorf("%w: value %d after %v", ErrFenceTimeout, value, timeout)
	}
	d.reclaimLocked(value)
	return true, nil
}

// reclaimLocked frees finished submissions. Values up to done are known to
// be complete; later ones are polled. Must be called with submitMu held.
func (d *HALDevice) reclaimLocked(done uint64) {
	n := 0
	for _, f := range d.inflight {
		if f.value > done {
			ok, err := d.device.Wait(d.fence, f.value, 0)
			if err != nil || !ok {
				break
			}
		}
		d.free(f)
		n++
	}
	if n > 0 {
		d.inflight = append(d.inflight[:0], d.inflight[n:]...)
	}
}

func (d *HALDevice) free(f inflight) {
	d.device.FreeCommandBuffer(f.cmd)
	d.destroyStaging(f.staging)
}

func (d *HALDevice) destroyStaging(bufs []hal.Buffer) {
	for _, b := range bufs {
		d.device.DestroyBuffer(b)
	}
}
