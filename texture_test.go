package gpukit

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gpukit/internal/gputest"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

func TestSampleType(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		want   gpucore.TextureSampleType
	}{
		{gputypes.TextureFormatRGBA8Unorm, gpucore.TextureSampleTypeFloat},
		{gputypes.TextureFormatBGRA8UnormSrgb, gpucore.TextureSampleTypeFloat},
		{gputypes.TextureFormatRGBA16Float, gpucore.TextureSampleTypeFloat},
		{gputypes.TextureFormatR8Uint, gpucore.TextureSampleTypeUint},
		{gputypes.TextureFormatRGBA32Uint, gpucore.TextureSampleTypeUint},
		{gputypes.TextureFormatR16Sint, gpucore.TextureSampleTypeSint},
		{gputypes.TextureFormatRG32Sint, gpucore.TextureSampleTypeSint},
		{gputypes.TextureFormatR32Float, gpucore.TextureSampleTypeUnfilterableFloat},
		{gputypes.TextureFormatRGBA32Float, gpucore.TextureSampleTypeUnfilterableFloat},
	}
	for _, tt := range tests {
		if got := sampleType(tt.format); got != tt.want {
			t.Errorf("sampleType(%v) = %v, want %v", tt.format, got, tt.want)
		}
	}
}

func TestViewDimension(t *testing.T) {
	tests := []struct {
		dim    gputypes.TextureDimension
		layers uint32
		want   gputypes.TextureViewDimension
	}{
		{gputypes.TextureDimension1D, 1, gputypes.TextureViewDimension1D},
		{gputypes.TextureDimension2D, 1, gputypes.TextureViewDimension2D},
		{gputypes.TextureDimension2D, 6, gputypes.TextureViewDimension2DArray},
		{gputypes.TextureDimension3D, 16, gputypes.TextureViewDimension3D},
	}
	for _, tt := range tests {
		if got := viewDimension(tt.dim, tt.layers); got != tt.want {
			t.Errorf("viewDimension(%v, %d) = %v, want %v", tt.dim, tt.layers, got, tt.want)
		}
	}
}

func TestSamplerBindingType(t *testing.T) {
	tests := []struct {
		name    string
		sampler Sampler
		want    gpucore.SamplerBindingType
	}{
		{"default", NewSamplerBuilder().Build(), gpucore.SamplerBindingTypeFiltering},
		{"nearest", NewSamplerBuilder().Nearest().MipmapNearest().Build(), gpucore.SamplerBindingTypeNonFiltering},
		{"mipmap only", NewSamplerBuilder().Nearest().MipmapLinear().Build(), gpucore.SamplerBindingTypeFiltering},
		{"wrap", NewSamplerBuilder().Wrap().Build(), gpucore.SamplerBindingTypeFiltering},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sampler.BindingType(); got != tt.want {
				t.Errorf("BindingType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSamplerCached(t *testing.T) {
	ctx, dev := newTestContext(t)

	resolve := func(s Sampler) *Shared[gpucore.SamplerID] {
		ctx.mu.Lock()
		defer ctx.mu.Unlock()
		h, err := ctx.sampler(s)
		if err != nil {
			t.Fatalf("sampler: %v", err)
		}
		return h
	}
	a := resolve(NewSamplerBuilder().Build())
	b := resolve(NewSamplerBuilder().Clamp().Linear().MipmapLinear().Build())
	c := resolve(NewSamplerBuilder().Wrap().Build())
	defer releaseAll([]*Shared[gpucore.SamplerID]{a, b, c})

	if a != b {
		t.Errorf("equal samplers resolved to different objects")
	}
	if a == c {
		t.Errorf("different samplers resolved to the same object")
	}
	desc, _ := dev.Sampler(c.ID())
	if desc.AddressModeU != gpucore.AddressModeRepeat || desc.MagFilter != gpucore.FilterModeLinear {
		t.Errorf("wrap sampler descriptor = %+v", desc)
	}
}

func TestTextureViewMipRange(t *testing.T) {
	ctx, dev := newTestContext(t)
	tex, err := NewTexture(ctx, TextureDescriptor{
		Label:         "mipped",
		Width:         16,
		Height:        16,
		MipLevelCount: 5,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		t.Fatal(err)
	}

	resolve := func(t2 *Texture) (*Shared[gpucore.TextureViewID], error) {
		ctx.mu.Lock()
		defer ctx.mu.Unlock()
		return ctx.textureView(t2)
	}
	full, err := resolve(tex)
	if err != nil {
		t.Fatal(err)
	}
	defer full.Release()
	top, err := resolve(tex.View(2, 1))
	if err != nil {
		t.Fatal(err)
	}
	defer top.Release()
	again, err := resolve(tex.View(2, 1))
	if err != nil {
		t.Fatal(err)
	}
	defer again.Release()

	if top != again {
		t.Errorf("equal mip ranges resolved to different views")
	}
	if full == top {
		t.Errorf("different mip ranges resolved to the same view")
	}
	_, desc, _ := dev.TextureView(full.ID())
	if desc.BaseMipLevel != 0 || desc.MipLevelCount != 5 {
		t.Errorf("full view range = %d+%d, want 0+5", desc.BaseMipLevel, desc.MipLevelCount)
	}
	_, desc, _ = dev.TextureView(top.ID())
	if desc.BaseMipLevel != 2 || desc.MipLevelCount != 1 {
		t.Errorf("view range = %d+%d, want 2+1", desc.BaseMipLevel, desc.MipLevelCount)
	}

	if _, err := resolve(tex.View(9, 0)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("out of range view error = %v, want ErrConfiguration", err)
	}
}

func TestTextureOutlivesCachedView(t *testing.T) {
	ctx, dev := newTestContext(t)
	tex := newSampledTexture(t, ctx, "t", gputypes.TextureFormatRGBA8Unorm)
	rt, err := tex.AsRenderTexture()
	if err != nil {
		t.Fatal(err)
	}

	tex.Release()
	tex.Release()
	if n := dev.Live(gputest.KindTexture); n != 1 {
		t.Fatalf("texture destroyed under a live view")
	}
	rt.Release()
	ctx.Age()
	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}
	if n := dev.Live(gputest.KindTexture); n != 0 {
		t.Errorf("live textures = %d after releasing every reference, want 0", n)
	}
}

func TestTextureWithData(t *testing.T) {
	ctx, dev := newTestContext(t)
	desc := TextureDescriptor{
		Label:     "pixels",
		Width:     2,
		Height:    2,
		Dimension: gputypes.TextureDimension2D,
		Format:    gputypes.TextureFormatRGBA8Unorm,
	}
	tex, err := NewTextureWithData(ctx, desc, make([]byte, 16), 0)
	if err != nil {
		t.Fatalf("NewTextureWithData: %v", err)
	}
	defer tex.Release()
	if n := dev.TextureWrites(tex.core.handle.ID()); n != 1 {
		t.Errorf("texture writes = %d, want 1", n)
	}

	if _, err := NewTextureWithData(ctx, desc, make([]byte, 8), 0); err == nil {
		t.Errorf("short texture data accepted")
	}
}

func TestTextureFromImage(t *testing.T) {
	ctx, dev := newTestContext(t)
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 128})
		}
	}

	tex, err := NewTextureFromImage(ctx, img, ImageOptions{Label: "img", Mipmaps: true, SRGB: true})
	if err != nil {
		t.Fatalf("NewTextureFromImage: %v", err)
	}
	defer tex.Release()

	if tex.MipLevelCount() != 4 {
		t.Errorf("mip levels = %d, want 4", tex.MipLevelCount())
	}
	if tex.Format() != gputypes.TextureFormatRGBA8UnormSrgb {
		t.Errorf("format = %v, want RGBA8UnormSrgb", tex.Format())
	}
	if n := dev.TextureWrites(tex.core.handle.ID()); n != 4 {
		t.Errorf("texture writes = %d, want one per mip", n)
	}

	flat, err := NewTextureFromImage(ctx, img, ImageOptions{Scaler: draw.NearestNeighbor})
	if err != nil {
		t.Fatal(err)
	}
	defer flat.Release()
	if flat.MipLevelCount() != 1 || flat.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("flat texture: mips %d format %v", flat.MipLevelCount(), flat.Format())
	}

	if _, err := NewTextureFromImage(ctx, image.NewRGBA(image.Rectangle{}), ImageOptions{}); err == nil {
		t.Errorf("empty image accepted")
	}
}

func TestStorageTextureLayout(t *testing.T) {
	ctx, _ := newTestContext(t)
	tex, err := NewTexture(ctx, TextureDescriptor{
		Width:     8,
		Height:    8,
		Dimension: gputypes.TextureDimension2D,
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Usage:     gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Release()

	e := NewBindGroupBuilder().
		Texture(0, gpucore.ShaderStageCompute, tex.StorageBinding()).
		Build().BuildLayout().Entries()[0]
	if e.Kind != gpucore.BindingKindStorageTexture || e.StorageAccess != gpucore.StorageTextureAccessWriteOnly ||
		e.StorageFormat != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("storage entry = %+v", e)
	}
}

func TestReleasedTextureFails(t *testing.T) {
	ctx, dev := newTestContext(t)
	tex := newSampledTexture(t, ctx, "gone", gputypes.TextureFormatRGBA8Unorm)
	binding := tex.TextureBinding()
	tex.Release()
	if n := dev.Destroyed(gputest.KindTexture); n != 1 {
		t.Fatalf("destroyed textures = %d after release, want 1", n)
	}

	group := NewBindGroupBuilder().
		Texture(0, gpucore.ShaderStageFragment, binding).
		Build()
	if _, err := group.Resolve(ctx); !errors.Is(err, ErrReleased) {
		t.Errorf("bind group error = %v, want ErrReleased", err)
	}
	if _, err := tex.AsRenderTexture(); !errors.Is(err, ErrReleased) {
		t.Errorf("AsRenderTexture error = %v, want ErrReleased", err)
	}
	if _, err := tex.View(0, 1).AsRenderTexture(); !errors.Is(err, ErrReleased) {
		t.Errorf("view AsRenderTexture error = %v, want ErrReleased", err)
	}
	if err := tex.Write(0, make([]byte, 64), 0); !errors.Is(err, ErrReleased) {
		t.Errorf("Write error = %v, want ErrReleased", err)
	}

	if n := dev.Created(gputest.KindTextureView); n != 0 {
		t.Errorf("texture views created = %d for a released texture, want 0", n)
	}
	if n := dev.Destroyed(gputest.KindTexture); n != 1 {
		t.Errorf("destroyed textures = %d, want 1", n)
	}
}
