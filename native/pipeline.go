// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hub"
)

// CreateBindGroupLayout creates a bind group layout on device.
func (g *Global) CreateBindGroupLayout(device hub.DeviceID, label string, entries []gputypes.BindGroupLayoutEntry, in hub.BindGroupLayoutID) (hub.BindGroupLayoutID, error) {
	dev, err := g.hub.Devices.Get(device)
	if err != nil {
		return hub.BindGroupLayoutID{}, errorf("create bind group layout", err)
	}
	raw, err := dev.Raw.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return hub.BindGroupLayoutID{}, errorf("create bind group layout", err)
	}

	id, err := g.hub.BindGroupLayouts.Assign(in, hub.BindGroupLayout{
		Device:  device,
		Raw:     raw,
		Entries: append([]gputypes.BindGroupLayoutEntry(nil), entries...),
		Label:   label,
	})
	if err != nil {
		dev.Raw.DestroyBindGroupLayout(raw)
		return hub.BindGroupLayoutID{}, errorf("create bind group layout", err)
	}
	return id, nil
}

// DestroyBindGroupLayout destroys layout.
func (g *Global) DestroyBindGroupLayout(layout hub.BindGroupLayoutID) error {
	return release(g, g.hub.BindGroupLayouts, layout,
		func(v *hub.BindGroupLayout) hub.DeviceID { return v.Device },
		func(d hal.Device, v *hub.BindGroupLayout) { d.DestroyBindGroupLayout(v.Raw) })
}

// CreatePipelineLayout creates a pipeline layout from bind group layouts
// registered on device.
func (g *Global) CreatePipelineLayout(device hub.DeviceID, label string, layouts []hub.BindGroupLayoutID, in hub.PipelineLayoutID) (hub.PipelineLayoutID, error) {
	dev, err := g.hub.Devices.Get(device)
	if err != nil {
		return hub.PipelineLayoutID{}, errorf("create pipeline layout", err)
	}

	raws := make([]hal.BindGroupLayout, 0, len(layouts))
	for _, l := range layouts {
		bgl, err := g.hub.BindGroupLayouts.Get(l)
		if err != nil {
			return hub.PipelineLayoutID{}, errorf("create pipeline layout", err)
		}
		if bgl.Device != device {
			return hub.PipelineLayoutID{}, errorf("create pipeline layout", ErrDeviceMismatch)
		}
		raws = append(raws, bgl.Raw)
	}

	raw, err := dev.Raw.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: raws,
	})
	if err != nil {
		return hub.PipelineLayoutID{}, errorf("create pipeline layout", err)
	}

	id, err := g.hub.PipelineLayouts.Assign(in, hub.PipelineLayout{
		Device:           device,
		Raw:              raw,
		BindGroupLayouts: append([]hub.BindGroupLayoutID(nil), layouts...),
		Label:            label,
	})
	if err != nil {
		dev.Raw.DestroyPipelineLayout(raw)
		return hub.PipelineLayoutID{}, errorf("create pipeline layout", err)
	}
	return id, nil
}

// DestroyPipelineLayout destroys layout.
func (g *Global) DestroyPipelineLayout(layout hub.PipelineLayoutID) error {
	return release(g, g.hub.PipelineLayouts, layout,
		func(v *hub.PipelineLayout) hub.DeviceID { return v.Device },
		func(d hal.Device, v *hub.PipelineLayout) { d.DestroyPipelineLayout(v.Raw) })
}

// BufferBindingEntry binds a range of a buffer at a binding slot.
type BufferBindingEntry struct {
	Binding uint32
	Buffer  hub.BufferID
	Offset  uint64
	Size    uint64
}

// BindGroupDescriptor describes a bind group.
type BindGroupDescriptor struct {
	Label   string
	Layout  hub.BindGroupLayoutID
	Entries []BufferBindingEntry
}

// CreateBindGroup creates a bind group on device.
func (g *Global) CreateBindGroup(device hub.DeviceID, desc *BindGroupDescriptor, in hub.BindGroupID) (hub.BindGroupID, error) {
	if desc == nil {
		return hub.BindGroupID{}, ErrNilDescriptor
	}
	dev, err := g.hub.Devices.Get(device)
	if err != nil {
		return hub.BindGroupID{}, errorf("create bind group", err)
	}
	layout, err := g.hub.BindGroupLayouts.Get(desc.Layout)
	if err != nil {
		return hub.BindGroupID{}, errorf("create bind group", err)
	}
	if layout.Device != device {
		return hub.BindGroupID{}, errorf("create bind group", ErrDeviceMismatch)
	}

	entries := make([]gputypes.BindGroupEntry, 0, len(desc.Entries))
	buffers := make([]hub.BufferID, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		buf, err := g.hub.Buffers.Get(e.Buffer)
		if err != nil {
			return hub.BindGroupID{}, errorf("create bind group", err)
		}
		if buf.Device != device {
			return hub.BindGroupID{}, errorf("create bind group", ErrDeviceMismatch)
		}
		size := e.Size
		if size == 0 {
			size = buf.Size - e.Offset
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  e.Binding,
			Resource: gputypes.BufferBinding{Buffer: buf.Raw.NativeHandle(), Offset: e.Offset, Size: size},
		})
		buffers = append(buffers, e.Buffer)
	}

	raw, err := dev.Raw.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout.Raw,
		Entries: entries,
	})
	if err != nil {
		return hub.BindGroupID{}, errorf("create bind group", err)
	}

	id, err := g.hub.BindGroups.Assign(in, hub.BindGroup{
		Device:  device,
		Layout:  desc.Layout,
		Raw:     raw,
		Buffers: buffers,
		Label:   desc.Label,
	})
	if err != nil {
		dev.Raw.DestroyBindGroup(raw)
		return hub.BindGroupID{}, errorf("create bind group", err)
	}
	return id, nil
}

// DestroyBindGroup destroys group.
func (g *Global) DestroyBindGroup(group hub.BindGroupID) error {
	return release(g, g.hub.BindGroups, group,
		func(v *hub.BindGroup) hub.DeviceID { return v.Device },
		func(d hal.Device, v *hub.BindGroup) { d.DestroyBindGroup(v.Raw) })
}

// ComputePipelineDescriptor describes a compute pipeline.
type ComputePipelineDescriptor struct {
	Label      string
	Layout     hub.PipelineLayoutID
	Module     hub.ShaderModuleID
	EntryPoint string
}

// CreateComputePipeline creates a compute pipeline on device.
func (g *Global) CreateComputePipeline(device hub.DeviceID, desc *ComputePipelineDescriptor, in hub.ComputePipelineID) (hub.ComputePipelineID, error) {
	if desc == nil {
		return hub.ComputePipelineID{}, ErrNilDescriptor
	}
	dev, err := g.hub.Devices.Get(device)
	if err != nil {
		return hub.ComputePipelineID{}, errorf("create compute pipeline", err)
	}
	layout, err := g.hub.PipelineLayouts.Get(desc.Layout)
	if err != nil {
		return hub.ComputePipelineID{}, errorf("create compute pipeline", err)
	}
	module, err := g.hub.ShaderModules.Get(desc.Module)
	if err != nil {
		return hub.ComputePipelineID{}, errorf("create compute pipeline", err)
	}
	if layout.Device != device || module.Device != device {
		return hub.ComputePipelineID{}, errorf("create compute pipeline", ErrDeviceMismatch)
	}

	raw, err := dev.Raw.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.Raw,
		Compute: hal.ComputeState{
			Module:     module.Raw,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return hub.ComputePipelineID{}, errorf("create compute pipeline", err)
	}

	id, err := g.hub.ComputePipelines.Assign(in, hub.ComputePipeline{
		Device: device,
		Layout: desc.Layout,
		Raw:    raw,
		Label:  desc.Label,
	})
	if err != nil {
		dev.Raw.DestroyComputePipeline(raw)
		return hub.ComputePipelineID{}, errorf("create compute pipeline", err)
	}
	return id, nil
}

// DestroyComputePipeline destroys pipeline.
func (g *Global) DestroyComputePipeline(pipeline hub.ComputePipelineID) error {
	return release(g, g.hub.ComputePipelines, pipeline,
		func(v *hub.ComputePipeline) hub.DeviceID { return v.Device },
		func(d hal.Device, v *hub.ComputePipeline) { d.DestroyComputePipeline(v.Raw) })
}

// RenderPipelineDescriptor describes a render pipeline. FragmentModule may
// be zero for depth-only pipelines.
type RenderPipelineDescriptor struct {
	Label  string
	Layout hub.PipelineLayoutID

	VertexModule     hub.ShaderModuleID
	VertexEntryPoint string
	VertexBuffers    []gputypes.VertexBufferLayout

	FragmentModule     hub.ShaderModuleID
	FragmentEntryPoint string
	Targets            []gputypes.ColorTargetState

	Primitive   gputypes.PrimitiveState
	Multisample gputypes.MultisampleState
}

// CreateRenderPipeline creates a render pipeline on device.
func (g *Global) CreateRenderPipeline(device hub.DeviceID, desc *RenderPipelineDescriptor, in hub.RenderPipelineID) (hub.RenderPipelineID, error) {
	if desc == nil {
		return hub.RenderPipelineID{}, ErrNilDescriptor
	}
	dev, err := g.hub.Devices.Get(device)
	if err != nil {
		return hub.RenderPipelineID{}, errorf("create render pipeline", err)
	}
	layout, err := g.hub.PipelineLayouts.Get(desc.Layout)
	if err != nil {
		return hub.RenderPipelineID{}, errorf("create render pipeline", err)
	}
	vs, err := g.hub.ShaderModules.Get(desc.VertexModule)
	if err != nil {
		return hub.RenderPipelineID{}, errorf("create render pipeline: vertex", err)
	}
	if layout.Device != device || vs.Device != device {
		return hub.RenderPipelineID{}, errorf("create render pipeline", ErrDeviceMismatch)
	}

	halDesc := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.Raw,
		Vertex: hal.VertexState{
			Module:     vs.Raw,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    desc.VertexBuffers,
		},
		Primitive:   desc.Primitive,
		Multisample: desc.Multisample,
	}
	if !desc.FragmentModule.IsZero() {
		fs, err := g.hub.ShaderModules.Get(desc.FragmentModule)
		if err != nil {
			return hub.RenderPipelineID{}, errorf("create render pipeline: fragment", err)
		}
		if fs.Device != device {
			return hub.RenderPipelineID{}, errorf("create render pipeline", ErrDeviceMismatch)
		}
		halDesc.Fragment = &hal.FragmentState{
			Module:     fs.Raw,
			EntryPoint: desc.FragmentEntryPoint,
			Targets:    desc.Targets,
		}
	}

	raw, err := dev.Raw.CreateRenderPipeline(halDesc)
	if err != nil {
		return hub.RenderPipelineID{}, errorf("create render pipeline", err)
	}

	id, err := g.hub.RenderPipelines.Assign(in, hub.RenderPipeline{
		Device: device,
		Layout: desc.Layout,
		Raw:    raw,
		Label:  desc.Label,
	})
	if err != nil {
		dev.Raw.DestroyRenderPipeline(raw)
		return hub.RenderPipelineID{}, errorf("create render pipeline", err)
	}
	return id, nil
}

// DestroyRenderPipeline destroys pipeline.
func (g *Global) DestroyRenderPipeline(pipeline hub.RenderPipelineID) error {
	return release(g, g.hub.RenderPipelines, pipeline,
		func(v *hub.RenderPipeline) hub.DeviceID { return v.Device },
		func(d hal.Device, v *hub.RenderPipeline) { d.DestroyRenderPipeline(v.Raw) })
}
