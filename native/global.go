// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native provides a WebGPU-style API on top of a hub.Hub and the
// gogpu/wgpu HAL.
//
// Every object is created through the HAL and registered in the Hub; every
// call that receives an ID resolves it through the Hub first, so a destroyed
// or stale ID fails with identity.ErrStaleHandle instead of reaching a
// released HAL object.
//
// Creation functions take a trailing in argument. When the target registry
// allocates locally in must be the zero ID; when it binds external
// identities in is the ID issued by the client.
//
// IDs of different kinds are resolved one registry at a time, in the Hub's
// declaration order, so no call ever holds two registries' locks.
package native

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hub"
	"github.com/gogpu/hub/identity"
	"github.com/gogpu/hub/registry"
)

// Backend creates HAL instances. hal backends obtained from hal.GetBackend
// and the noop API both satisfy it.
type Backend interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// DefaultBackend returns the Vulkan HAL backend. Builds with the nogpu tag
// do not register it and get ErrNoBackend.
func DefaultBackend() (Backend, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoBackend
	}
	return backend, nil
}

// Global is the API entry point. It is safe for concurrent use.
type Global struct {
	hub     *hub.Hub
	backend Backend

	// queueMu serializes Submit and PollCompleted; HAL queues are not safe
	// for concurrent submission.
	queueMu sync.Mutex
}

// New creates a Global over h that creates instances with backend.
func New(h *hub.Hub, backend Backend) *Global {
	return &Global{hub: h, backend: backend}
}

// Hub returns the Hub the Global registers objects in.
func (g *Global) Hub() *hub.Hub { return g.hub }

// Close destroys every registered object. Devices are destroyed with
// everything they own, then adapters, instances and surfaces.
// The first error is returned; Close keeps going after it.
func (g *Global) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	for _, id := range g.hub.Devices.IDs() {
		keep(g.DestroyDevice(id))
	}
	for _, id := range g.hub.Adapters.IDs() {
		keep(g.DestroyAdapter(id))
	}
	for _, id := range g.hub.Instances.IDs() {
		keep(g.DestroyInstance(id))
	}
	for _, id := range g.hub.Surfaces.IDs() {
		keep(g.DestroySurface(id))
	}

	if live := g.hub.Live(); live > 0 {
		slogger().Warn("native: objects left after close", "hub", g.hub.ID(), "count", live)
	}
	return first
}

func slogger() *slog.Logger { return hub.Logger() }

// errorf wraps err with the failing operation.
func errorf(op string, err error) error {
	return fmt.Errorf("native: %s: %w", op, err)
}

// owned returns the IDs of all values in reg for which match reports true.
func owned[T any, K identity.Tag](reg *registry.Registry[T, K], match func(*T) bool) []identity.ID[K] {
	var ids []identity.ID[K]
	reg.Each(func(id identity.ID[K], v *T) bool {
		if match(v) {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

// release unregisters id and hands its value to destroy together with the
// owning device. destroy runs under the device's shared lock, so the device
// cannot be destroyed underneath it. When the device is already gone the
// HAL object went with it and only the registry entry is dropped.
func release[T any, K identity.Tag](
	g *Global,
	reg *registry.Registry[T, K],
	id identity.ID[K],
	device func(*T) hub.DeviceID,
	destroy func(hal.Device, *T),
) error {
	return releaseIf(g, reg, id, nil, device, destroy)
}

// releaseIf is release with a check that runs atomically with the
// unregistration; see registry.Registry.UnregisterIf.
func releaseIf[T any, K identity.Tag](
	g *Global,
	reg *registry.Registry[T, K],
	id identity.ID[K],
	check func(*T) error,
	device func(*T) hub.DeviceID,
	destroy func(hal.Device, *T),
) error {
	v, err := reg.UnregisterIf(id, check)
	if err != nil {
		return errorf("destroy "+id.Kind().String(), err)
	}
	err = g.hub.Devices.Read(device(&v), func(dev *hub.Device) error {
		destroy(dev.Raw, &v)
		return nil
	})
	if err != nil {
		slogger().Debug("native: owner device already destroyed",
			"kind", id.Kind().String(), "id", id.String())
	}
	return nil
}
