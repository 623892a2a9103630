package gputest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gputypes"
)

func TestDeviceLiveTracking(t *testing.T) {
	d := NewDevice(0)

	buf, err := d.CreateBuffer(&gpucore.BufferDescriptor{Size: 16, Usage: gputypes.BufferUsageUniform})
	if err != nil {
		t.Fatalf("CreateBuffer error: %v", err)
	}
	if d.Live(KindBuffer) != 1 || !d.IsLive(uint64(buf)) {
		t.Fatalf("buffer not tracked as live")
	}
	d.DestroyBuffer(buf)
	d.DestroyBuffer(buf)
	if d.Live(KindBuffer) != 0 {
		t.Errorf("Live(buffer) = %d after destroy", d.Live(KindBuffer))
	}
	if d.Destroyed(KindBuffer) != 1 {
		t.Errorf("Destroyed(buffer) = %d, want 1", d.Destroyed(KindBuffer))
	}
}

func TestDeviceFailNext(t *testing.T) {
	d := NewDevice(0)
	d.FailNext("CreateSampler", nil)

	if _, err := d.CreateSampler(&gpucore.SamplerDescriptor{}); !errors.Is(err, ErrInjected) {
		t.Fatalf("first CreateSampler error = %v, want ErrInjected", err)
	}
	if _, err := d.CreateSampler(&gpucore.SamplerDescriptor{}); err != nil {
		t.Fatalf("second CreateSampler error = %v", err)
	}
}

func TestDeviceBindGroupValidation(t *testing.T) {
	d := NewDevice(0)
	layout, err := d.CreateBindGroupLayout(&gpucore.BindGroupLayoutDescriptor{
		Entries: []gpucore.BindGroupLayoutEntry{{Binding: 0, Kind: gpucore.BindingKindSampler}},
	})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout error: %v", err)
	}

	_, err = d.CreateBindGroup(&gpucore.BindGroupDescriptor{
		Layout:  layout,
		Entries: []gpucore.BindGroupEntry{{Binding: 0, Sampler: 999}},
	})
	if !errors.Is(err, ErrUnknownID) {
		t.Errorf("unknown sampler error = %v, want ErrUnknownID", err)
	}
}

func TestSubmitAppliesTransfers(t *testing.T) {
	d := NewDevice(0)
	src, _ := d.CreateBuffer(&gpucore.BufferDescriptor{Size: 4})
	dst, _ := d.CreateBuffer(&gpucore.BufferDescriptor{Size: 4})
	if err := d.WriteBuffer(src, 0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteBuffer error: %v", err)
	}

	enc, _ := d.CreateCommandEncoder("copy")
	if err := enc.CopyBufferToBuffer(src, 0, dst, 0, 4); err != nil {
		t.Fatalf("CopyBufferToBuffer error: %v", err)
	}
	if err := enc.ClearBuffer(src, 2, 0); err != nil {
		t.Fatalf("ClearBuffer error: %v", err)
	}
	cmd, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish error: %v", err)
	}
	if err := d.Submit(cmd); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	got, _ := d.ReadBuffer(dst, 0, 4)
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("dst = %v, want [1 2 3 4]", got)
	}
	got, _ = d.ReadBuffer(src, 0, 4)
	if !bytes.Equal(got, []byte{1, 2, 0, 0}) {
		t.Errorf("src = %v, want [1 2 0 0]", got)
	}
	if err := d.Submit(cmd); !errors.Is(err, ErrValidation) {
		t.Errorf("double submit error = %v, want ErrValidation", err)
	}
}

func TestEncoderRejectsNestedPass(t *testing.T) {
	d := NewDevice(0)
	enc, _ := d.CreateCommandEncoder("nested")
	pass, err := enc.BeginComputePass("a")
	if err != nil {
		t.Fatalf("BeginComputePass error: %v", err)
	}
	if _, err := enc.BeginComputePass("b"); !errors.Is(err, ErrEncoderState) {
		t.Errorf("nested pass error = %v, want ErrEncoderState", err)
	}
	pass.Dispatch(1, 2, 3)
	if err := pass.End(); err != nil {
		t.Fatalf("End error: %v", err)
	}
	cmd, _ := enc.Finish()
	cb := cmd.(*CommandBuffer)
	want := []string{"begin-compute-pass a", "dispatch 1 2 3", "end-compute-pass"}
	got := cb.Commands()
	if len(got) != len(want) {
		t.Fatalf("commands = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, got[i], want[i])
		}
	}
}
