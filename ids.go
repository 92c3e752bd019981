// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hub

import "github.com/gogpu/hub/identity"

// Resource IDs
//
// Every resource kind has its own zero-size tag type and an ID alias built
// on it. IDs of different kinds are distinct types: a BufferID cannot be
// passed where a TextureID is expected. The zero value of every ID is
// invalid and is used as "no id".

// InstanceTag marks identities of an API instance.
type InstanceTag struct{}

// Kind implements identity.Tag.
func (InstanceTag) Kind() identity.Kind { return identity.KindInstance }

// InstanceID is an opaque handle to an API instance.
type InstanceID = identity.ID[InstanceTag]

// AdapterTag marks identities of a physical adapter.
type AdapterTag struct{}

// Kind implements identity.Tag.
func (AdapterTag) Kind() identity.Kind { return identity.KindAdapter }

// AdapterID is an opaque handle to a physical adapter.
type AdapterID = identity.ID[AdapterTag]

// DeviceTag marks identities of a logical device and its queue.
type DeviceTag struct{}

// Kind implements identity.Tag.
func (DeviceTag) Kind() identity.Kind { return identity.KindDevice }

// DeviceID is an opaque handle to a logical device and its queue.
type DeviceID = identity.ID[DeviceTag]

// PipelineLayoutTag marks identities of a pipeline layout.
type PipelineLayoutTag struct{}

// Kind implements identity.Tag.
func (PipelineLayoutTag) Kind() identity.Kind { return identity.KindPipelineLayout }

// PipelineLayoutID is an opaque handle to a pipeline layout.
type PipelineLayoutID = identity.ID[PipelineLayoutTag]

// BindGroupLayoutTag marks identities of a bind group layout.
type BindGroupLayoutTag struct{}

// Kind implements identity.Tag.
func (BindGroupLayoutTag) Kind() identity.Kind { return identity.KindBindGroupLayout }

// BindGroupLayoutID is an opaque handle to a bind group layout.
type BindGroupLayoutID = identity.ID[BindGroupLayoutTag]

// BindGroupTag marks identities of a bind group.
type BindGroupTag struct{}

// Kind implements identity.Tag.
func (BindGroupTag) Kind() identity.Kind { return identity.KindBindGroup }

// BindGroupID is an opaque handle to a bind group.
type BindGroupID = identity.ID[BindGroupTag]

// ShaderModuleTag marks identities of a compiled shader module.
type ShaderModuleTag struct{}

// Kind implements identity.Tag.
func (ShaderModuleTag) Kind() identity.Kind { return identity.KindShaderModule }

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID = identity.ID[ShaderModuleTag]

// CommandBufferTag marks identities of a command encoder or finished command buffer.
type CommandBufferTag struct{}

// Kind implements identity.Tag.
func (CommandBufferTag) Kind() identity.Kind { return identity.KindCommandBuffer }

// CommandBufferID is an opaque handle to a command encoder or finished command buffer.
type CommandBufferID = identity.ID[CommandBufferTag]

// RenderPipelineTag marks identities of a render pipeline.
type RenderPipelineTag struct{}

// Kind implements identity.Tag.
func (RenderPipelineTag) Kind() identity.Kind { return identity.KindRenderPipeline }

// RenderPipelineID is an opaque handle to a render pipeline.
type RenderPipelineID = identity.ID[RenderPipelineTag]

// ComputePipelineTag marks identities of a compute pipeline.
type ComputePipelineTag struct{}

// Kind implements identity.Tag.
func (ComputePipelineTag) Kind() identity.Kind { return identity.KindComputePipeline }

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID = identity.ID[ComputePipelineTag]

// RenderPassTag marks identities of an open render pass.
type RenderPassTag struct{}

// Kind implements identity.Tag.
func (RenderPassTag) Kind() identity.Kind { return identity.KindRenderPass }

// RenderPassID is an opaque handle to an open render pass.
type RenderPassID = identity.ID[RenderPassTag]

// ComputePassTag marks identities of an open compute pass.
type ComputePassTag struct{}

// Kind implements identity.Tag.
func (ComputePassTag) Kind() identity.Kind { return identity.KindComputePass }

// ComputePassID is an opaque handle to an open compute pass.
type ComputePassID = identity.ID[ComputePassTag]

// BufferTag marks identities of a GPU buffer.
type BufferTag struct{}

// Kind implements identity.Tag.
func (BufferTag) Kind() identity.Kind { return identity.KindBuffer }

// BufferID is an opaque handle to a GPU buffer.
type BufferID = identity.ID[BufferTag]

// TextureTag marks identities of a texture.
type TextureTag struct{}

// Kind implements identity.Tag.
func (TextureTag) Kind() identity.Kind { return identity.KindTexture }

// TextureID is an opaque handle to a texture.
type TextureID = identity.ID[TextureTag]

// TextureViewTag marks identities of a texture view.
type TextureViewTag struct{}

// Kind implements identity.Tag.
func (TextureViewTag) Kind() identity.Kind { return identity.KindTextureView }

// TextureViewID is an opaque handle to a texture view.
type TextureViewID = identity.ID[TextureViewTag]

// SamplerTag marks identities of a sampler.
type SamplerTag struct{}

// Kind implements identity.Tag.
func (SamplerTag) Kind() identity.Kind { return identity.KindSampler }

// SamplerID is an opaque handle to a sampler.
type SamplerID = identity.ID[SamplerTag]

// SurfaceTag marks identities of a presentation surface.
type SurfaceTag struct{}

// Kind implements identity.Tag.
func (SurfaceTag) Kind() identity.Kind { return identity.KindSurface }

// SurfaceID is an opaque handle to a presentation surface.
type SurfaceID = identity.ID[SurfaceTag]
