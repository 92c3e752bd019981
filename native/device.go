// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hub"
)

// CreateInstance creates a HAL instance from the Global's backend.
func (g *Global) CreateInstance(label string, in hub.InstanceID) (hub.InstanceID, error) {
	raw, err := g.backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return hub.InstanceID{}, errorf("create instance", err)
	}
	id, err := g.hub.Instances.Assign(in, hub.Instance{Raw: raw, Label: label})
	if err != nil {
		raw.Destroy()
		return hub.InstanceID{}, errorf("create instance", err)
	}
	return id, nil
}

// RequestAdapter picks an adapter of instance, preferring a discrete or
// integrated GPU over software and other adapters.
func (g *Global) RequestAdapter(instance hub.InstanceID, in hub.AdapterID) (hub.AdapterID, error) {
	inst, err := g.hub.Instances.Get(instance)
	if err != nil {
		return hub.AdapterID{}, errorf("request adapter", err)
	}

	adapters := inst.Raw.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return hub.AdapterID{}, ErrNoAdapter
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	id, err := g.hub.Adapters.Assign(in, hub.Adapter{Instance: instance, Raw: *selected})
	if err != nil {
		return hub.AdapterID{}, errorf("request adapter", err)
	}
	slogger().Info("native: adapter selected", "adapter", selected.Info.Name, "id", id.String())
	return id, nil
}

// DeviceDescriptor configures RequestDevice.
type DeviceDescriptor struct {
	Label    string
	Features gputypes.Features
}

// RequestDevice opens a logical device and its queue on adapter. desc may
// be nil.
func (g *Global) RequestDevice(adapter hub.AdapterID, desc *DeviceDescriptor, in hub.DeviceID) (hub.DeviceID, error) {
	if desc == nil {
		desc = &DeviceDescriptor{}
	}
	ad, err := g.hub.Adapters.Get(adapter)
	if err != nil {
		return hub.DeviceID{}, errorf("request device", err)
	}

	openDev, err := ad.Raw.Adapter.Open(desc.Features, gputypes.DefaultLimits())
	if err != nil {
		return hub.DeviceID{}, errorf("request device: open", err)
	}

	id, err := g.hub.Devices.Assign(in, hub.Device{
		Adapter:  adapter,
		Raw:      openDev.Device,
		Queue:    openDev.Queue,
		Features: desc.Features,
		Label:    desc.Label,
	})
	if err != nil {
		openDev.Device.Destroy()
		return hub.DeviceID{}, errorf("request device", err)
	}
	slogger().Info("native: device opened", "adapter", ad.Name(), "id", id.String())
	return id, nil
}

// DestroyDevice destroys device and every object created from it.
func (g *Global) DestroyDevice(device hub.DeviceID) error {
	if g.hub.Devices.Contains(device) {
		g.destroyOwned(device)
	}

	dev, err := g.hub.Devices.Unregister(device)
	if err != nil {
		return errorf("destroy device", err)
	}
	dev.Raw.Destroy()
	slogger().Debug("native: device destroyed", "id", device.String())
	return nil
}

// destroyOwned destroys the children of device in reverse declaration
// order, so views go before textures and pipelines before layouts.
func (g *Global) destroyOwned(device hub.DeviceID) {
	h := g.hub

	for _, id := range owned(h.Samplers, func(v *hub.Sampler) bool { return v.Device == device }) {
		_ = g.DestroySampler(id)
	}
	for _, id := range owned(h.TextureViews, func(v *hub.TextureView) bool { return v.Device == device }) {
		_ = g.DestroyTextureView(id)
	}
	for _, id := range owned(h.Textures, func(v *hub.Texture) bool { return v.Device == device }) {
		_ = g.DestroyTexture(id)
	}
	for _, id := range owned(h.Buffers, func(v *hub.Buffer) bool { return v.Device == device }) {
		_ = g.DestroyBuffer(id)
	}

	cmds := make(map[hub.CommandBufferID]bool)
	for _, id := range owned(h.CommandBuffers, func(v *hub.CommandBuffer) bool { return v.Device == device }) {
		cmds[id] = true
	}
	for _, id := range owned(h.ComputePasses, func(v *hub.ComputePass) bool { return cmds[v.CommandBuffer] }) {
		_ = g.EndComputePass(id)
	}
	for _, id := range owned(h.RenderPasses, func(v *hub.RenderPass) bool { return cmds[v.CommandBuffer] }) {
		_ = g.EndRenderPass(id)
	}

	for _, id := range owned(h.ComputePipelines, func(v *hub.ComputePipeline) bool { return v.Device == device }) {
		_ = g.DestroyComputePipeline(id)
	}
	for _, id := range owned(h.RenderPipelines, func(v *hub.RenderPipeline) bool { return v.Device == device }) {
		_ = g.DestroyRenderPipeline(id)
	}
	for id := range cmds {
		_ = g.DestroyCommandBuffer(id)
	}
	for _, id := range owned(h.ShaderModules, func(v *hub.ShaderModule) bool { return v.Device == device }) {
		_ = g.DestroyShaderModule(id)
	}
	for _, id := range owned(h.BindGroups, func(v *hub.BindGroup) bool { return v.Device == device }) {
		_ = g.DestroyBindGroup(id)
	}
	for _, id := range owned(h.BindGroupLayouts, func(v *hub.BindGroupLayout) bool { return v.Device == device }) {
		_ = g.DestroyBindGroupLayout(id)
	}
	for _, id := range owned(h.PipelineLayouts, func(v *hub.PipelineLayout) bool { return v.Device == device }) {
		_ = g.DestroyPipelineLayout(id)
	}
}

// DestroyAdapter destroys adapter and every device opened on it.
func (g *Global) DestroyAdapter(adapter hub.AdapterID) error {
	for _, id := range owned(g.hub.Devices, func(v *hub.Device) bool { return v.Adapter == adapter }) {
		_ = g.DestroyDevice(id)
	}
	if _, err := g.hub.Adapters.Unregister(adapter); err != nil {
		return errorf("destroy adapter", err)
	}
	return nil
}

// DestroyInstance destroys instance and every adapter it exposed.
func (g *Global) DestroyInstance(instance hub.InstanceID) error {
	for _, id := range owned(g.hub.Adapters, func(v *hub.Adapter) bool { return v.Instance == instance }) {
		_ = g.DestroyAdapter(id)
	}
	inst, err := g.hub.Instances.Unregister(instance)
	if err != nil {
		return errorf("destroy instance", err)
	}
	inst.Raw.Destroy()
	return nil
}
