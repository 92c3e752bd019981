// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package identity issues and retires generational resource handles.
//
// # Handles
//
// A handle is an (index, epoch) pair. The index names a slot in a resource
// table; the epoch names one particular occupant of that slot. When a handle
// is freed the slot's epoch is bumped immediately, so every copy of the old
// handle becomes invalid at once, even before the slot is reused.
//
//	m := identity.NewManager(identity.LocalAllocation)
//	id, _ := m.Alloc()       // Id(0,1)
//	_ = m.Free(id)           // slot 0 now at epoch 2
//	again, _ := m.Alloc()    // Id(0,2)
//	err := m.Free(id)        // ErrDoubleFree
//
// RawID is untyped. ID[K] wraps a RawID with a zero-size tag type so that a
// buffer handle cannot be passed where a texture handle is expected:
//
//	type BufferTag struct{}
//	func (BufferTag) Kind() identity.Kind { return identity.KindBuffer }
//	type BufferID = identity.ID[BufferTag]
//
// # Modes
//
// A Manager is created in one of two modes and keeps it for its lifetime:
//
//   - LocalAllocation: the Manager generates identities with Alloc.
//   - ExternalIdentity: a remote client generates identities and the Manager
//     only records them with Reserve (split client/server deployments).
//
// Both modes share Free and the same double-free and stale-handle checks.
//
// # Encoding
//
// RawID and ID[K] encode as 8 little-endian bytes (MarshalBinary) or as the
// text "index:epoch" (MarshalText, also used by encoding/json and yaml).
//
// # Thread Safety
//
// Manager is not safe for concurrent use. The registry package guards each
// Manager with its own mutex.
//
// # Epoch Overflow
//
// Epochs are 32-bit. After 2^32-1 frees of the same slot the epoch wraps
// back to 1 and handles from the first lap compare equal to new ones again.
// This is a known residual risk and is not mitigated here.
package identity
