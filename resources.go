// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hub

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Resource values
//
// Each registry stores one of the types below. A value owns its HAL object
// and records the IDs of the objects it was created from, so that a child
// can be traced back to its device without holding two registry locks.

// Instance is a HAL instance created from a backend.
type Instance struct {
	Raw   hal.Instance
	Label string
}

// Adapter is a physical adapter exposed by an instance.
type Adapter struct {
	Instance InstanceID
	Raw      hal.ExposedAdapter
}

// Name returns the adapter name reported by the driver.
func (a *Adapter) Name() string { return a.Raw.Info.Name }

// Device is an opened logical device together with its queue.
type Device struct {
	Adapter  AdapterID
	Raw      hal.Device
	Queue    hal.Queue
	Features gputypes.Features
	Label    string
}

// PipelineLayout is a pipeline layout built from bind group layouts.
type PipelineLayout struct {
	Device           DeviceID
	Raw              hal.PipelineLayout
	BindGroupLayouts []BindGroupLayoutID
	Label            string
}

// BindGroupLayout describes the bindings of a bind group.
type BindGroupLayout struct {
	Device  DeviceID
	Raw     hal.BindGroupLayout
	Entries []gputypes.BindGroupLayoutEntry
	Label   string
}

// BindGroup is a set of resources bound against a layout.
type BindGroup struct {
	Device  DeviceID
	Layout  BindGroupLayoutID
	Raw     hal.BindGroup
	Buffers []BufferID
	Label   string
}

// ShaderModule is a shader compiled for the device.
type ShaderModule struct {
	Device DeviceID
	Raw    hal.ShaderModule
	Label  string
}

// CommandBufferState tracks where a command buffer is in its lifecycle.
type CommandBufferState uint8

// Command buffer states.
const (
	// CommandBufferRecording accepts new passes.
	CommandBufferRecording CommandBufferState = iota

	// CommandBufferLocked has an open pass; the encoder is owned by it.
	CommandBufferLocked

	// CommandBufferFinished has been ended and may be submitted.
	CommandBufferFinished

	// CommandBufferSubmitted is owned by an in-flight queue submission.
	CommandBufferSubmitted
)

func (s CommandBufferState) String() string {
	switch s {
	case CommandBufferRecording:
		return "recording"
	case CommandBufferLocked:
		return "locked"
	case CommandBufferFinished:
		return "finished"
	case CommandBufferSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("CommandBufferState(%d)", uint8(s))
	}
}

// CommandBuffer is a command encoder while recording and the finished
// command buffer after it is ended.
type CommandBuffer struct {
	Device  DeviceID
	Encoder hal.CommandEncoder
	Raw     hal.CommandBuffer
	State   CommandBufferState
	Label   string
}

// RenderPipeline is a compiled render pipeline.
type RenderPipeline struct {
	Device DeviceID
	Layout PipelineLayoutID
	Raw    hal.RenderPipeline
	Label  string
}

// ComputePipeline is a compiled compute pipeline.
type ComputePipeline struct {
	Device DeviceID
	Layout PipelineLayoutID
	Raw    hal.ComputePipeline
	Label  string
}

// RenderPass is an open render pass on a command buffer.
type RenderPass struct {
	CommandBuffer CommandBufferID
	Raw           hal.RenderPassEncoder
}

// ComputePass is an open compute pass on a command buffer.
type ComputePass struct {
	CommandBuffer CommandBufferID
	Raw           hal.ComputePassEncoder
}

// Buffer is a GPU buffer.
type Buffer struct {
	Device DeviceID
	Raw    hal.Buffer
	Size   uint64
	Usage  gputypes.BufferUsage
	Label  string
}

// Texture is a GPU texture.
type Texture struct {
	Device DeviceID
	Raw    hal.Texture
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
	Label  string
}

// TextureView is a view on a texture.
type TextureView struct {
	Device  DeviceID
	Texture TextureID
	Raw     hal.TextureView
	Label   string
}

// Sampler is a texture sampler.
type Sampler struct {
	Device DeviceID
	Raw    hal.Sampler
	Label  string
}

// Surface is a presentation target handed in by the windowing layer. The hub
// only tracks it; Target is whatever the windowing layer uses to present.
type Surface struct {
	Label  string
	Format gputypes.TextureFormat
	Width  uint32
	Height uint32
	Target any
}
