//go:build !nogpu

// Package native implements gpucore.Device on top of gogpu/wgpu/hal.
//
// A HALDevice wraps an open hal.Device and hal.Queue, hands out gpucore IDs
// for the HAL objects it creates and tracks submissions with one timeline
// fence. It is the device a gpukit.Context uses outside of tests:
//
//	dev, err := native.New(halDevice, halQueue, native.WithSubmitWait(time.Second))
//	if err != nil {
//		return err
//	}
//	defer dev.Close()
//
//	ctx, err := gpukit.NewContext(dev)
//
// Applications that already own a device through gpucontext can use
// NewFromProvider instead.
//
// WGSL is handed to the HAL as is. WithSPIRVFromWGSL translates it with
// gogpu/naga first and keeps the SPIR-V in a bounded LRU cache.
package native
