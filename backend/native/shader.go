//go:build !nogpu

package native

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// shaderSource picks the HAL source for a module. SPIR-V input is passed
// through; WGSL is passed through unless WithSPIRVFromWGSL is set.
func (d *HALDevice) shaderSource(desc *gpucore.ShaderModuleDescriptor) (hal.ShaderSource, error) {
	switch {
	case len(desc.SPIRV) > 0:
		return hal.ShaderSource{SPIRV: desc.SPIRV}, nil
	case desc.WGSL == "":
		return hal.ShaderSource{}, fmt.Errorf("native: shader module %q has no source", desc.Label)
	case !d.opts.spirvFromWGSL:
		return hal.ShaderSource{WGSL: desc.WGSL}, nil
	}

	words, err := d.compileWGSL(desc.WGSL)
	if err != nil {
		return hal.ShaderSource{}, fmt.Errorf("native: compile shader %q: %w", desc.Label, err)
	}
	return hal.ShaderSource{SPIRV: words}, nil
}

// compileWGSL translates WGSL to SPIR-V words, memoizing by source.
func (d *HALDevice) compileWGSL(src string) ([]uint32, error) {
	if words, ok := d.spirv.Get(src); ok {
		return words, nil
	}

	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, err
	}
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V output of %d bytes is not word aligned", len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}

	d.spirv.Add(src, words)
	slogger().Debug("native: compiled WGSL",
		"wgsl_bytes", len(src),
		"spirv_words", len(words))
	return words, nil
}
