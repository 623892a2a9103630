package gpukit

import (
	"fmt"

	"github.com/gogpu/gpukit/gpucore"
)

// Sampler describes texture addressing and filtering.
//
// Samplers are plain values; equal values share one device sampler
// through the sampler cache.
type Sampler struct {
	clamp        bool
	linear       bool
	mipmapLinear bool
}

// SamplerBuilder builds a Sampler. The default is clamped addressing with
// linear filtering and linear mipmap filtering.
type SamplerBuilder struct {
	s Sampler
}

// NewSamplerBuilder returns a builder with the default sampler settings.
func NewSamplerBuilder() *SamplerBuilder {
	return &SamplerBuilder{s: Sampler{clamp: true, linear: true, mipmapLinear: true}}
}

// Clamp clamps texture coordinates to the edge.
func (b *SamplerBuilder) Clamp() *SamplerBuilder { b.s.clamp = true; return b }

// Wrap repeats texture coordinates.
func (b *SamplerBuilder) Wrap() *SamplerBuilder { b.s.clamp = false; return b }

// Linear enables linear magnification and minification filtering.
func (b *SamplerBuilder) Linear() *SamplerBuilder { b.s.linear = true; return b }

// Nearest selects nearest magnification and minification filtering.
func (b *SamplerBuilder) Nearest() *SamplerBuilder { b.s.linear = false; return b }

// MipmapLinear enables linear filtering between mip levels.
func (b *SamplerBuilder) MipmapLinear() *SamplerBuilder { b.s.mipmapLinear = true; return b }

// MipmapNearest selects the nearest mip level.
func (b *SamplerBuilder) MipmapNearest() *SamplerBuilder { b.s.mipmapLinear = false; return b }

// Build returns the sampler.
func (b *SamplerBuilder) Build() Sampler { return b.s }

// BindingType returns the filtering class of the sampler: Filtering if
// either filter is linear, otherwise NonFiltering.
func (s Sampler) BindingType() gpucore.SamplerBindingType {
	if s.linear || s.mipmapLinear {
		return gpucore.SamplerBindingTypeFiltering
	}
	return gpucore.SamplerBindingTypeNonFiltering
}

// descriptor returns the device descriptor of the sampler.
func (s Sampler) descriptor() gpucore.SamplerDescriptor {
	address := gpucore.AddressModeRepeat
	if s.clamp {
		address = gpucore.AddressModeClampToEdge
	}
	filter := gpucore.FilterModeNearest
	if s.linear {
		filter = gpucore.FilterModeLinear
	}
	mipmap := gpucore.FilterModeNearest
	if s.mipmapLinear {
		mipmap = gpucore.FilterModeLinear
	}
	return gpucore.SamplerDescriptor{
		AddressModeU: address,
		AddressModeV: address,
		AddressModeW: address,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: mipmap,
	}
}

func (s Sampler) key() string {
	var w keyWriter
	w.tag(tagSampler)
	w.bool(s.clamp)
	w.bool(s.linear)
	w.bool(s.mipmapLinear)
	return w.String()
}

// sampler resolves s through the sampler cache and returns it with an
// extra reference. Caller must hold c.mu.
func (c *Context) sampler(s Sampler) (*Shared[gpucore.SamplerID], error) {
	h, err := c.samplers.GetOrInsert(s.key(), func() (*Shared[gpucore.SamplerID], error) {
		desc := s.descriptor()
		desc.Label = c.label("sampler")
		id, err := c.device.CreateSampler(&desc)
		if err != nil {
			return nil, configError(err)
		}
		return newShared(id, c.device.DestroySampler), nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve sampler: %w", err)
	}
	return h.Retain(), nil
}
