// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/hub"
)

// DeviceProvider exposes a registered device to libraries that consume a
// gpucontext.DeviceProvider. It also implements HalDevice and HalQueue for
// consumers that want the HAL objects directly.
//
// The provider holds the device ID, not the device: once the device is
// destroyed HalDevice and HalQueue return nil.
type DeviceProvider struct {
	g      *Global
	id     hub.DeviceID
	format gputypes.TextureFormat
}

var _ gpucontext.DeviceProvider = (*DeviceProvider)(nil)

// DeviceProvider returns a provider for device. The surface format is
// taken from surface when it is non-zero, and defaults to BGRA8Unorm.
func (g *Global) DeviceProvider(device hub.DeviceID, surface hub.SurfaceID) (*DeviceProvider, error) {
	if _, err := g.hub.Devices.Get(device); err != nil {
		return nil, errorf("device provider", err)
	}
	format := gputypes.TextureFormatBGRA8Unorm
	if !surface.IsZero() {
		s, err := g.hub.Surfaces.Get(surface)
		if err != nil {
			return nil, errorf("device provider", err)
		}
		if s.Format != gputypes.TextureFormatUndefined {
			format = s.Format
		}
	}
	return &DeviceProvider{g: g, id: device, format: format}, nil
}

// ID returns the device the provider is bound to.
func (p *DeviceProvider) ID() hub.DeviceID { return p.id }

// Device implements gpucontext.DeviceProvider.
func (p *DeviceProvider) Device() gpucontext.Device { return providerDevice{p} }

// Queue implements gpucontext.DeviceProvider.
func (p *DeviceProvider) Queue() gpucontext.Queue { return providerQueue{} }

// Adapter implements gpucontext.DeviceProvider.
func (p *DeviceProvider) Adapter() gpucontext.Adapter { return providerAdapter{} }

// AdapterInfo implements gpucontext.DeviceProvider. It reports
// AdapterTypeUnknown once the device or its adapter is destroyed.
func (p *DeviceProvider) AdapterInfo() gpucontext.AdapterInfo {
	dev, err := p.g.hub.Devices.Get(p.id)
	if err != nil {
		return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
	}
	ad, err := p.g.hub.Adapters.Get(dev.Adapter)
	if err != nil {
		return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
	}
	return gpucontext.AdapterInfo{Name: ad.Name(), Type: adapterType(ad.Raw.Info.DeviceType)}
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

// SurfaceFormat implements gpucontext.DeviceProvider.
func (p *DeviceProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }

// HalDevice returns the hal.Device, or nil if the device was destroyed.
func (p *DeviceProvider) HalDevice() any {
	dev, err := p.g.hub.Devices.Get(p.id)
	if err != nil {
		return nil
	}
	return dev.Raw
}

// HalQueue returns the hal.Queue, or nil if the device was destroyed.
func (p *DeviceProvider) HalQueue() any {
	dev, err := p.g.hub.Devices.Get(p.id)
	if err != nil {
		return nil
	}
	return dev.Queue
}

type providerDevice struct{ p *DeviceProvider }

// Poll is a no-op: QueueSubmit already waits for completion.
func (providerDevice) Poll(bool) {}

// Destroy destroys the device through the hub, with everything it owns.
func (d providerDevice) Destroy() { _ = d.p.g.DestroyDevice(d.p.id) }

type providerQueue struct{}

type providerAdapter struct{}
