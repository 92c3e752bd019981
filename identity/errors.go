// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package identity

import "errors"

var (
	// ErrStaleHandle is returned when a handle's epoch does not match its
	// slot, or the handle refers to a slot that was never issued.
	ErrStaleHandle = errors.New("identity: stale handle")

	// ErrAlreadyRegistered is returned when an identity is bound to a slot
	// that already holds a live payload.
	ErrAlreadyRegistered = errors.New("identity: already registered")

	// ErrDoubleFree is returned when a handle is freed while its index is
	// already on the free-list.
	ErrDoubleFree = errors.New("identity: double free")

	// ErrInvalidID is returned for the zero identity, epoch zero, or an
	// external index too far beyond the current table.
	ErrInvalidID = errors.New("identity: invalid id")

	// ErrExternalIdentity is returned by Alloc on a Manager that only
	// accepts externally issued identities.
	ErrExternalIdentity = errors.New("identity: manager accepts external identities only")

	// ErrLocalAllocation is returned by Reserve on a Manager that generates
	// its own identities.
	ErrLocalAllocation = errors.New("identity: manager allocates identities locally")

	// ErrUnexpectedID is returned when a caller supplies an identity to a
	// locally allocating registry.
	ErrUnexpectedID = errors.New("identity: id supplied in local allocation mode")
)
