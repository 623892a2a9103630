package gputest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gpukit/gpucore"
)

// ErrEncoderState is returned when an encoder is used out of order.
var ErrEncoderState = errors.New("gputest: invalid encoder state")

// CommandBuffer is a finished recording. Commands holds one line per
// recorded command, for example "set-pipeline 7" or "dispatch 4 1 1".
type CommandBuffer struct {
	label     string
	commands  []string
	transfers []func(*Device)
	submitted bool
}

// Label returns the debug label of the recording.
func (c *CommandBuffer) Label() string { return c.label }

// Commands returns the recorded commands in order.
func (c *CommandBuffer) Commands() []string {
	return append([]string(nil), c.commands...)
}

// Count returns how many commands start with prefix.
func (c *CommandBuffer) Count(prefix string) int {
	n := 0
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			n++
		}
	}
	return n
}

// String returns the commands one per line.
func (c *CommandBuffer) String() string {
	return strings.Join(c.commands, "\n")
}

// CommandEncoder records commands into a CommandBuffer.
type CommandEncoder struct {
	device   *Device
	buf      *CommandBuffer
	passOpen bool
	done     bool
}

var _ gpucore.CommandEncoder = (*CommandEncoder)(nil)

func (e *CommandEncoder) record(format string, args ...any) {
	e.buf.commands = append(e.buf.commands, fmt.Sprintf(format, args...))
}

func (e *CommandEncoder) check() error {
	if e.done {
		return fmt.Errorf("%w: encoder %q already finished", ErrEncoderState, e.buf.label)
	}
	if e.passOpen {
		return fmt.Errorf("%w: encoder %q has an open pass", ErrEncoderState, e.buf.label)
	}
	return nil
}

// BeginRenderPass begins a render pass.
func (e *CommandEncoder) BeginRenderPass(desc *gpucore.RenderPassDescriptor) (gpucore.RenderPassEncoder, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	if len(desc.ColorAttachments) == 0 && desc.DepthStencilAttachment == nil {
		return nil, fmt.Errorf("%w: render pass %q has no attachments", ErrValidation, desc.Label)
	}
	e.passOpen = true
	e.record("begin-render-pass %s", desc.Label)
	return &RenderPass{enc: e}, nil
}

// BeginComputePass begins a compute pass.
func (e *CommandEncoder) BeginComputePass(label string) (gpucore.ComputePassEncoder, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	e.passOpen = true
	e.record("begin-compute-pass %s", label)
	return &ComputePass{enc: e}, nil
}

// ClearBuffer records a buffer clear. The clear is applied on Submit.
func (e *CommandEncoder) ClearBuffer(buffer gpucore.BufferID, offset, size uint64) error {
	if err := e.check(); err != nil {
		return err
	}
	e.record("clear-buffer %d %d %d", buffer, offset, size)
	e.buf.transfers = append(e.buf.transfers, func(d *Device) {
		b, ok := d.buffers[buffer]
		if !ok || offset > uint64(len(b.data)) {
			return
		}
		end := uint64(len(b.data))
		if size != 0 {
			end = min(offset+size, end)
		}
		clear(b.data[offset:end])
	})
	return nil
}

// CopyBufferToBuffer records a buffer copy. The copy is applied on Submit.
func (e *CommandEncoder) CopyBufferToBuffer(src gpucore.BufferID, srcOffset uint64, dst gpucore.BufferID, dstOffset uint64, size uint64) error {
	if err := e.check(); err != nil {
		return err
	}
	e.record("copy-buffer %d %d %d %d %d", src, srcOffset, dst, dstOffset, size)
	e.buf.transfers = append(e.buf.transfers, func(d *Device) {
		s, ok1 := d.buffers[src]
		t, ok2 := d.buffers[dst]
		if !ok1 || !ok2 || srcOffset+size > uint64(len(s.data)) || dstOffset+size > uint64(len(t.data)) {
			return
		}
		copy(t.data[dstOffset:dstOffset+size], s.data[srcOffset:srcOffset+size])
	})
	return nil
}

// Finish ends recording.
func (e *CommandEncoder) Finish() (gpucore.CommandBuffer, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	e.device.mu.Lock()
	err := e.device.injected("Finish")
	e.device.mu.Unlock()
	e.done = true
	if err != nil {
		return nil, err
	}
	return e.buf, nil
}

// Discard abandons the recording.
func (e *CommandEncoder) Discard() {
	e.done = true
	e.buf.commands = nil
	e.buf.transfers = nil
}

// RenderPass records render pass commands.
type RenderPass struct {
	enc   *CommandEncoder
	ended bool
}

var _ gpucore.RenderPassEncoder = (*RenderPass)(nil)

// SetBindGroup records a bind group binding.
func (p *RenderPass) SetBindGroup(index uint32, group gpucore.BindGroupID, dynamicOffsets []uint32) {
	p.enc.record("set-bind-group %d %d %v", index, group, dynamicOffsets)
}

// SetPipeline records a pipeline binding.
func (p *RenderPass) SetPipeline(pipeline gpucore.RenderPipelineID) {
	p.enc.record("set-pipeline %d", pipeline)
}

// SetVertexBuffer records a vertex buffer binding.
func (p *RenderPass) SetVertexBuffer(slot uint32, buffer gpucore.BufferID, offset, size uint64) {
	p.enc.record("set-vertex-buffer %d %d %d %d", slot, buffer, offset, size)
}

// SetIndexBuffer records an index buffer binding.
func (p *RenderPass) SetIndexBuffer(buffer gpucore.BufferID, format gpucore.IndexFormat, offset, size uint64) {
	name := "uint16"
	if format == gpucore.IndexFormatUint32 {
		name = "uint32"
	}
	p.enc.record("set-index-buffer %d %s %d %d", buffer, name, offset, size)
}

// Draw records a non-indexed draw.
func (p *RenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.enc.record("draw %d %d %d %d", vertexCount, instanceCount, firstVertex, firstInstance)
}

// DrawIndexed records an indexed draw.
func (p *RenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.enc.record("draw-indexed %d %d %d %d %d", indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

// End finishes the pass.
func (p *RenderPass) End() error {
	if p.ended {
		return fmt.Errorf("%w: render pass ended twice", ErrEncoderState)
	}
	p.ended = true
	p.enc.passOpen = false
	p.enc.record("end-render-pass")
	return nil
}

// ComputePass records compute pass commands.
type ComputePass struct {
	enc   *CommandEncoder
	ended bool
}

var _ gpucore.ComputePassEncoder = (*ComputePass)(nil)

// SetBindGroup records a bind group binding.
func (p *ComputePass) SetBindGroup(index uint32, group gpucore.BindGroupID, dynamicOffsets []uint32) {
	p.enc.record("set-bind-group %d %d %v", index, group, dynamicOffsets)
}

// SetPipeline records a pipeline binding.
func (p *ComputePass) SetPipeline(pipeline gpucore.ComputePipelineID) {
	p.enc.record("set-pipeline %d", pipeline)
}

// Dispatch records a dispatch.
func (p *ComputePass) Dispatch(x, y, z uint32) {
	p.enc.record("dispatch %d %d %d", x, y, z)
}

// End finishes the pass.
func (p *ComputePass) End() error {
	if p.ended {
		return fmt.Errorf("%w: compute pass ended twice", ErrEncoderState)
	}
	p.ended = true
	p.enc.passOpen = false
	p.enc.record("end-compute-pass")
	return nil
}
