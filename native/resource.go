// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hub"
)

// CreateBuffer creates a buffer on device.
func (g *Global) CreateBuffer(device hub.DeviceID, desc *hal.BufferDescriptor, in hub.BufferID) (hub.BufferID, error) {
	if desc == nil {
		return hub.BufferID{}, ErrNilDescriptor
	}
	dev, err := g.hub.Devices.Get(device)
	if err != nil {
		return hub.BufferID{}, errorf("create buffer", err)
	}
	raw, err := dev.Raw.CreateBuffer(desc)
	if err != nil {
		return hub.BufferID{}, errorf("create buffer", err)
	}

	id, err := g.hub.Buffers.Assign(in, hub.Buffer{
		Device: device,
		Raw:    raw,
		Size:   desc.Size,
		Usage:  desc.Usage,
		Label:  desc.Label,
	})
	if err != nil {
		dev.Raw.DestroyBuffer(raw)
		return hub.BufferID{}, errorf("create buffer", err)
	}
	return id, nil
}

// DestroyBuffer destroys buffer. A second call with the same ID fails with
// identity.ErrDoubleFree.
func (g *Global) DestroyBuffer(buffer hub.BufferID) error {
	return release(g, g.hub.Buffers, buffer,
		func(v *hub.Buffer) hub.DeviceID { return v.Device },
		func(d hal.Device, v *hub.Buffer) { d.DestroyBuffer(v.Raw) })
}

// CreateTexture creates a texture on device.
func (g *Global) CreateTexture(device hub.DeviceID, desc *hal.TextureDescriptor, in hub.TextureID) (hub.TextureID, error) {
	if desc == nil {
		return hub.TextureID{}, ErrNilDescriptor
	}
	dev, err := g.hub.Devices.Get(device)
	if err != nil {
		return hub.TextureID{}, errorf("create texture", err)
	}
	raw, err := dev.Raw.CreateTexture(desc)
	if err != nil {
		return hub.TextureID{}, errorf("create texture", err)
	}

	id, err := g.hub.Textures.Assign(in, hub.Texture{
		Device: device,
		Raw:    raw,
		Width:  desc.Size.Width,
		Height: desc.Size.Height,
		Format: desc.Format,
		Usage:  desc.Usage,
		Label:  desc.Label,
	})
	if err != nil {
		dev.Raw.DestroyTexture(raw)
		return hub.TextureID{}, errorf("create texture", err)
	}
	return id, nil
}

// DestroyTexture destroys texture. Views created from it stay registered
// until they are destroyed.
func (g *Global) DestroyTexture(texture hub.TextureID) error {
	return release(g, g.hub.Textures, texture,
		func(v *hub.Texture) hub.DeviceID { return v.Device },
		func(d hal.Device, v *hub.Texture) { d.DestroyTexture(v.Raw) })
}

// CreateTextureView creates a view on texture. desc may be nil.
func (g *Global) CreateTextureView(texture hub.TextureID, desc *hal.TextureViewDescriptor, in hub.TextureViewID) (hub.TextureViewID, error) {
	if desc == nil {
		desc = &hal.TextureViewDescriptor{}
	}
	// Devices precede Textures in lock order, but the device is only known
	// from the texture. Neither lock is held across the other lookup.
	tex, err := g.hub.Textures.Get(texture)
	if err != nil {
		return hub.TextureViewID{}, errorf("create texture view", err)
	}
	dev, err := g.hub.Devices.Get(tex.Device)
	if err != nil {
		return hub.TextureViewID{}, errorf("create texture view", err)
	}
	raw, err := dev.Raw.CreateTextureView(tex.Raw, desc)
	if err != nil {
		return hub.TextureViewID{}, errorf("create texture view", err)
	}

	id, err := g.hub.TextureViews.Assign(in, hub.TextureView{
		Device:  tex.Device,
		Texture: texture,
		Raw:     raw,
		Label:   desc.Label,
	})
	if err != nil {
		dev.Raw.DestroyTextureView(raw)
		return hub.TextureViewID{}, errorf("create texture view", err)
	}
	return id, nil
}

// DestroyTextureView destroys view.
func (g *Global) DestroyTextureView(view hub.TextureViewID) error {
	return release(g, g.hub.TextureViews, view,
		func(v *hub.TextureView) hub.DeviceID { return v.Device },
		func(d hal.Device, v *hub.TextureView) { d.DestroyTextureView(v.Raw) })
}

// CreateSampler creates a sampler on device.
func (g *Global) CreateSampler(device hub.DeviceID, desc *hal.SamplerDescriptor, in hub.SamplerID) (hub.SamplerID, error) {
	if desc == nil {
		return hub.SamplerID{}, ErrNilDescriptor
	}
	dev, err := g.hub.Devices.Get(device)
	if err != nil {
		return hub.SamplerID{}, errorf("create sampler", err)
	}
	raw, err := dev.Raw.CreateSampler(desc)
	if err != nil {
		return hub.SamplerID{}, errorf("create sampler", err)
	}

	id, err := g.hub.Samplers.Assign(in, hub.Sampler{Device: device, Raw: raw, Label: desc.Label})
	if err != nil {
		dev.Raw.DestroySampler(raw)
		return hub.SamplerID{}, errorf("create sampler", err)
	}
	return id, nil
}

// DestroySampler destroys sampler.
func (g *Global) DestroySampler(sampler hub.SamplerID) error {
	return release(g, g.hub.Samplers, sampler,
		func(v *hub.Sampler) hub.DeviceID { return v.Device },
		func(d hal.Device, v *hub.Sampler) { d.DestroySampler(v.Raw) })
}

// QueueWriteBuffer writes data into buffer at offset through device's
// queue. The buffer stays locked for the write, so a concurrent
// DestroyBuffer waits for it.
func (g *Global) QueueWriteBuffer(device hub.DeviceID, buffer hub.BufferID, offset uint64, data []byte) error {
	dev, err := g.hub.Devices.Get(device)
	if err != nil {
		return errorf("queue write buffer", err)
	}
	// The device outlives the read: DestroyDevice unregisters the buffers
	// it owns, which waits for this lock, before destroying the device.
	err = g.hub.Buffers.Read(buffer, func(b *hub.Buffer) error {
		if err := checkRange(b, device, offset, len(data)); err != nil {
			return err
		}
		return dev.Queue.WriteBuffer(b.Raw, offset, data)
	})
	if err != nil {
		return errorf("queue write buffer", err)
	}
	return nil
}

// QueueReadBuffer copies len(data) bytes of buffer at offset into data.
// The buffer is mapped for the copy and unmapped before it returns.
func (g *Global) QueueReadBuffer(device hub.DeviceID, buffer hub.BufferID, offset uint64, data []byte) error {
	dev, err := g.hub.Devices.Get(device)
	if err != nil {
		return errorf("queue read buffer", err)
	}
	err = g.hub.Buffers.Read(buffer, func(b *hub.Buffer) error {
		if err := checkRange(b, device, offset, len(data)); err != nil {
			return err
		}
		if len(data) == 0 {
			return nil
		}
		m, err := dev.Raw.MapBuffer(b.Raw, offset, uint64(len(data)))
		if err != nil {
			return err
		}
		copy(data, unsafe.Slice((*byte)(m.Ptr), len(data)))
		return dev.Raw.UnmapBuffer(b.Raw)
	})
	if err != nil {
		return errorf("queue read buffer", err)
	}
	return nil
}

func checkRange(b *hub.Buffer, device hub.DeviceID, offset uint64, n int) error {
	if b.Device != device {
		return ErrDeviceMismatch
	}
	if offset > b.Size || uint64(n) > b.Size-offset {
		return fmt.Errorf("%w: %d bytes at %d in a %d byte buffer", ErrOutOfRange, n, offset, b.Size)
	}
	return nil
}
