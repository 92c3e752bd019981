// Package hub is the resource-handle registry of a WebGPU runtime.
//
// # Overview
//
// Every GPU object the runtime hands out (instances, adapters, devices,
// buffers, textures, pipelines, passes, ...) is referred to by an opaque,
// typed handle. A handle is an (index, epoch) pair: the index names a slot,
// the epoch names one occupant of that slot. Destroying an object bumps the
// slot's epoch immediately, so stale copies of the handle are rejected
// instead of silently reaching whatever object reuses the slot.
//
// # Quick Start
//
//	h := hub.New(hub.DefaultConfig())
//
//	id, err := h.Buffers.RegisterLocal(hub.Buffer{Size: 256})
//	buf, err := h.Buffers.Get(id)
//	_, err = h.Buffers.Unregister(id)
//	_, err = h.Buffers.Get(id) // identity.ErrStaleHandle
//
// The native package builds a WebGPU-style API on top of a Hub, creating the
// HAL objects and registering them here.
//
// # Process-wide Hub
//
// Init creates the process-wide Hub, Global returns it and Teardown drops
// it. Nothing is created implicitly. Tests create isolated hubs with New.
//
// # Deployment Modes
//
// Each registry is created in one of two identity modes (see Config):
//   - identity.LocalAllocation: the hub generates handles.
//   - identity.ExternalIdentity: a remote client generates handles and the
//     hub only binds values to them (split client/server deployments).
//
// # Locking
//
// Each registry has its own locks. A call path holds at most one registry's
// locks at a time; code that needs several kinds resolves them one after
// another in declaration order (Kinds).
//
// # Architecture
//
// The module is organized into:
//   - identity: handles, kinds, modes and the identity allocator
//   - storage: the epoch-checked slot table
//   - registry: allocator + slot table behind locks, per kind
//   - hub (this package): one registry per kind, config, logging, metrics
//   - native: WebGPU-style API over a Hub and a wgpu HAL backend
package hub

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
