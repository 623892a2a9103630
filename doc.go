// Package gpukit deduplicates GPU objects and defers command recording.
//
// # Overview
//
// Applications describe what they want to draw with plain values: bind
// groups, render and compute pipelines, samplers and texture views. gpukit
// turns those descriptions into device objects on first use and shares them
// between every later use with an equal description. Objects nobody used
// for a number of submissions are destroyed.
//
// Command recording is deferred. Draw calls and dispatches are collected by
// a CommandEncoder and resolved against the caches only when Submit is
// called, so the same frame code can run with any attachment formats and
// rasteriser state.
//
// # Quick Start
//
//	ctx, err := gpukit.NewContext(device)
//	if err != nil {
//	    return err
//	}
//	defer ctx.Close()
//
//	shader, _ := gpukit.NewShader(ctx, gpukit.ShaderSource{Label: "tri", WGSL: src})
//	pipeline := gpukit.NewRenderPipelineBuilder(shader.EntryPoint("vs_main")).
//	    Fragment(shader.EntryPoint("fs_main"), &gpukit.ColorTargetState{WriteMask: gpucore.ColorWriteAll}).
//	    Build()
//
//	err = ctx.Encode("frame", func(enc *gpukit.CommandEncoder) error {
//	    return enc.RenderPass(gpukit.RenderPassDescriptor{
//	        ColorAttachments: []gpukit.ColorAttachment{{Target: target}},
//	    }, func(p *gpukit.RenderPass) error {
//	        return p.Draw(gpukit.DrawCall{Pipeline: pipeline, Elements: gpukit.Range{End: 3}})
//	    })
//	})
//
// # Caching
//
// A Context keeps one generational cache per derived object kind. A cache
// key is a byte encoding of everything that affects the device object.
// Labels of pipelines are not part of the key; labels of bind groups are.
//
// Each Submit ages the caches by one generation. An object is destroyed
// once it was not used for the eviction window (60 submissions by default,
// see WithEvictionWindow). Objects that reference each other hold a
// reference through Shared, so evicting a bind group layout never destroys
// it under a live bind group.
//
// # Buffers and Textures
//
// Buffer and Texture own device memory directly and are not cached. A
// Buffer may grow with EnsureCapacity as long as it is not shared through
// Clone. Bind groups that reference a grown buffer are recreated on the
// next submission.
//
// # Backends
//
// gpukit talks to the GPU through gpucore.Device. The backend/native
// package implements it over the wgpu HAL. Tests use internal/gputest.
//
// # Logging
//
// gpukit logs through log/slog and is silent by default. See SetLogger
// and WithLogger.
package gpukit
