//go:build !nogpu

package native

import "errors"

// Package errors for the HAL backend.
var (
	// ErrNoHAL is returned when a device provider does not expose HAL types.
	ErrNoHAL = errors.New("native: provider does not expose hal.Device and hal.Queue")

	// ErrClosed is returned when the device is used after Close.
	ErrClosed = errors.New("native: device closed")

	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("native: unknown resource")

	// ErrForeignCommandBuffer is returned when Submit is given a command
	// buffer produced by another device.
	ErrForeignCommandBuffer = errors.New("native: command buffer from another device")

	// ErrFenceTimeout is returned when a waited submission does not complete in time.
	ErrFenceTimeout = errors.New("native: fence wait timed out")

	// ErrLimit is returned when a descriptor exceeds the device limits.
	ErrLimit = errors.New("native: device limit exceeded")

	// ErrUnsupported is returned for states the HAL backend cannot express.
	ErrUnsupported = errors.New("native: unsupported")

	// ErrEncoderState is returned when an encoder is used after Finish or
	// Discard, or while a pass is open.
	ErrEncoderState = errors.New("native: invalid encoder state")
)
