// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

// Sentinel errors for native API operations.
var (
	// ErrNoBackend is returned when no HAL backend is available.
	ErrNoBackend = errors.New("native: no HAL backend available")

	// ErrNoAdapter is returned when an instance exposes no adapters.
	ErrNoAdapter = errors.New("native: no GPU adapters found")

	// ErrNilDescriptor is returned when a required descriptor is nil.
	ErrNilDescriptor = errors.New("native: nil descriptor")

	// ErrEmptyShader is returned when a shader module has neither WGSL nor
	// SPIR-V source.
	ErrEmptyShader = errors.New("native: empty shader source")

	// ErrInvalidState is returned when a command buffer is used in the
	// wrong lifecycle state.
	ErrInvalidState = errors.New("native: invalid command buffer state")

	// ErrDeviceMismatch is returned when objects from different devices
	// are combined.
	ErrDeviceMismatch = errors.New("native: objects belong to different devices")

	// ErrOutOfRange is returned when a buffer access does not fit the
	// buffer.
	ErrOutOfRange = errors.New("native: access out of buffer range")

	// ErrSubmitTimeout is returned when the GPU does not signal completion
	// of a submission in time.
	ErrSubmitTimeout = errors.New("native: timed out waiting for GPU")
)
