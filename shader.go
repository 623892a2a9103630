package gpukit

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpukit/gpucore"
)

// ShaderSource is the source of a shader module.
// Exactly one of WGSL and SPIRV should be set.
type ShaderSource struct {
	Label string
	WGSL  string
	SPIRV []uint32
}

// Shader is a handle to a compiled shader module.
// Shaders compare by identity; two modules compiled from the same source
// are different shaders.
type Shader struct {
	id       uint64
	label    string
	handle   *Shared[gpucore.ShaderModuleID]
	once     sync.Once
	released atomic.Bool
}

// NewShader compiles a shader module.
func NewShader(ctx *Context, src ShaderSource) (*Shader, error) {
	id, err := ctx.device.CreateShaderModule(&gpucore.ShaderModuleDescriptor{
		Label: ctx.label(src.Label),
		WGSL:  src.WGSL,
		SPIRV: src.SPIRV,
	})
	if err != nil {
		return nil, fmt.Errorf("create shader %q: %w", src.Label, configError(err))
	}
	return &Shader{
		id:     newIdentity(),
		label:  src.Label,
		handle: newShared(id, ctx.device.DestroyShaderModule),
	}, nil
}

// ID returns the identity of the shader.
func (s *Shader) ID() uint64 { return s.id }

// Label returns the debug name of the shader.
func (s *Shader) Label() string { return s.label }

// Module returns the device shader module ID.
func (s *Shader) Module() gpucore.ShaderModuleID { return s.handle.ID() }

// EntryPoint selects a named entry point of the shader.
func (s *Shader) EntryPoint(name string) EntryPoint {
	return EntryPoint{shader: s, name: name}
}

// Release drops the caller's reference. Pipelines already compiled from
// the shader keep the module alive until they are evicted; compiling a new
// pipeline from a released shader fails with ErrReleased. Release is
// idempotent.
func (s *Shader) Release() {
	s.once.Do(func() {
		s.released.Store(true)
		s.handle.Release()
	})
}

// retain returns the module with an extra reference.
func (s *Shader) retain() (*Shared[gpucore.ShaderModuleID], error) {
	if s.released.Load() || !s.handle.tryRetain() {
		return nil, fmt.Errorf("shader %q: %w", s.label, ErrReleased)
	}
	return s.handle, nil
}

// EntryPoint is a shader module together with an entry point name.
// Entry points are equal iff they name the same function of the same shader.
type EntryPoint struct {
	shader *Shader
	name   string
}

// Shader returns the shader of the entry point.
func (e EntryPoint) Shader() *Shader { return e.shader }

// Name returns the entry point function name.
func (e EntryPoint) Name() string { return e.name }

// IsZero reports whether e is unset.
func (e EntryPoint) IsZero() bool { return e.shader == nil }

func (e EntryPoint) encode(w *keyWriter) {
	w.tag(tagEntryPoint)
	if e.shader != nil {
		w.u64(e.shader.id)
	} else {
		w.u64(0)
	}
	w.str(e.name)
}
