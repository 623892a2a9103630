package gpukit

import (
	"errors"
	"fmt"
)

// Configuration errors. A device rejection of a create call, a missing
// feature and a target mismatch all have ErrConfiguration in their chain.
var (
	// ErrConfiguration is returned when the device rejects a descriptor.
	// Configuration errors are programming errors and are never retried.
	ErrConfiguration = errors.New("gpukit: invalid configuration")

	// ErrMissingFeature is returned when a pipeline needs a device feature
	// that is not enabled, such as line polygon mode.
	ErrMissingFeature = fmt.Errorf("%w: missing device feature", ErrConfiguration)

	// ErrTargetMismatch is returned when a pipeline declares more color
	// targets than the render pass has attachments.
	ErrTargetMismatch = fmt.Errorf("%w: color targets do not match attachments", ErrConfiguration)
)

// Resource errors.
var (
	// ErrNilDevice is returned by NewContext when no device is given.
	ErrNilDevice = errors.New("gpukit: nil device")

	// ErrBufferShared is returned by Buffer.EnsureCapacity when the backing
	// storage is held by another owner and cannot be reallocated.
	ErrBufferShared = errors.New("gpukit: buffer storage is shared")

	// ErrReleased is returned when a released buffer or texture is used,
	// or when a new pipeline is compiled from a released shader.
	ErrReleased = errors.New("gpukit: resource released")
)

// Encoder errors.
var (
	// ErrEncoderSubmitted is returned when an encoder is used after Submit.
	ErrEncoderSubmitted = errors.New("gpukit: encoder already submitted")

	// ErrPassOpen is returned when the encoder is used while a pass is open.
	ErrPassOpen = errors.New("gpukit: a pass is still open")

	// ErrPassEnded is returned when commands are recorded on an ended pass.
	ErrPassEnded = errors.New("gpukit: pass already ended")

	// ErrUnsubmittedEncoder is returned by Context.Close when encoders were
	// created but never submitted.
	ErrUnsubmittedEncoder = errors.New("gpukit: unsubmitted command encoder")

	// ErrContextClosed is returned when a closed Context is used.
	ErrContextClosed = errors.New("gpukit: context closed")
)

// configError wraps a device error so that it matches ErrConfiguration.
func configError(err error) error {
	if errors.Is(err, ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}
