package gpukit

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

// identities hands out process-unique identities for buffers, textures
// and shader modules. Zero is never used.
var identities atomic.Uint64

func newIdentity() uint64 {
	return identities.Add(1)
}

// Key tags. Each encoded component starts with a tag so that keys of
// different shapes can never collide.
const (
	tagBindGroupLayout byte = iota + 1
	tagBindGroup
	tagBufferBinding
	tagTextureBinding
	tagSamplerBinding
	tagTextureView
	tagSampler
	tagPipelineLayout
	tagEntryPoint
	tagVertexLayout
	tagColorTarget
	tagNoColorTarget
	tagRasteriser
	tagRenderPipeline
	tagComputePipeline
	tagNone
)

// keyWriter builds canonical binary cache keys.
//
// Integers are little-endian fixed width and strings are length prefixed,
// so two keys are equal only if every encoded component is equal.
type keyWriter struct {
	buf []byte
}

func (w *keyWriter) tag(t byte) {
	w.buf = append(w.buf, t)
}

func (w *keyWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *keyWriter) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *keyWriter) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *keyWriter) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *keyWriter) bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *keyWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// raw appends an already encoded key, length prefixed.
func (w *keyWriter) raw(k string) {
	w.str(k)
}

func (w *keyWriter) String() string {
	return string(w.buf)
}
