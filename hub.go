// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hub

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/gogpu/hub/identity"
	"github.com/gogpu/hub/registry"
)

var (
	// ErrAlreadyInitialized is returned by Init when the process-wide Hub
	// already exists.
	ErrAlreadyInitialized = errors.New("hub: already initialized")

	// ErrNotInitialized is returned by Teardown when there is no
	// process-wide Hub.
	ErrNotInitialized = errors.New("hub: not initialized")
)

// Hub owns one registry per resource kind.
//
// The fields are declared in the global lock order. Code that resolves
// handles of several kinds does so one registry at a time, in this order.
type Hub struct {
	id  string
	cfg Config

	Instances        *registry.Registry[Instance, InstanceTag]
	Adapters         *registry.Registry[Adapter, AdapterTag]
	Devices          *registry.Registry[Device, DeviceTag]
	PipelineLayouts  *registry.Registry[PipelineLayout, PipelineLayoutTag]
	BindGroupLayouts *registry.Registry[BindGroupLayout, BindGroupLayoutTag]
	BindGroups       *registry.Registry[BindGroup, BindGroupTag]
	ShaderModules    *registry.Registry[ShaderModule, ShaderModuleTag]
	CommandBuffers   *registry.Registry[CommandBuffer, CommandBufferTag]
	RenderPipelines  *registry.Registry[RenderPipeline, RenderPipelineTag]
	ComputePipelines *registry.Registry[ComputePipeline, ComputePipelineTag]
	RenderPasses     *registry.Registry[RenderPass, RenderPassTag]
	ComputePasses    *registry.Registry[ComputePass, ComputePassTag]
	Buffers          *registry.Registry[Buffer, BufferTag]
	Textures         *registry.Registry[Texture, TextureTag]
	TextureViews     *registry.Registry[TextureView, TextureViewTag]
	Samplers         *registry.Registry[Sampler, SamplerTag]
	Surfaces         *registry.Registry[Surface, SurfaceTag]
}

// New creates an isolated Hub. It is independent of the process-wide Hub
// managed by Init and Teardown.
func New(cfg Config) *Hub {
	h := &Hub{id: uuid.NewString(), cfg: cfg}

	var obs registry.Observer
	if cfg.MeterProvider != nil {
		o, err := newOtelObserver(cfg.MeterProvider, h.id)
		if err != nil {
			Logger().Warn("hub: metrics initialization failed, metrics disabled",
				"hub", h.id, "error", err)
		} else {
			obs = o
		}
	}

	h.Instances = registry.New[Instance, InstanceTag](cfg.ModeFor(identity.KindInstance), obs)
	h.Adapters = registry.New[Adapter, AdapterTag](cfg.ModeFor(identity.KindAdapter), obs)
	h.Devices = registry.New[Device, DeviceTag](cfg.ModeFor(identity.KindDevice), obs)
	h.PipelineLayouts = registry.New[PipelineLayout, PipelineLayoutTag](cfg.ModeFor(identity.KindPipelineLayout), obs)
	h.BindGroupLayouts = registry.New[BindGroupLayout, BindGroupLayoutTag](cfg.ModeFor(identity.KindBindGroupLayout), obs)
	h.BindGroups = registry.New[BindGroup, BindGroupTag](cfg.ModeFor(identity.KindBindGroup), obs)
	h.ShaderModules = registry.New[ShaderModule, ShaderModuleTag](cfg.ModeFor(identity.KindShaderModule), obs)
	h.CommandBuffers = registry.New[CommandBuffer, CommandBufferTag](cfg.ModeFor(identity.KindCommandBuffer), obs)
	h.RenderPipelines = registry.New[RenderPipeline, RenderPipelineTag](cfg.ModeFor(identity.KindRenderPipeline), obs)
	h.ComputePipelines = registry.New[ComputePipeline, ComputePipelineTag](cfg.ModeFor(identity.KindComputePipeline), obs)
	h.RenderPasses = registry.New[RenderPass, RenderPassTag](cfg.ModeFor(identity.KindRenderPass), obs)
	h.ComputePasses = registry.New[ComputePass, ComputePassTag](cfg.ModeFor(identity.KindComputePass), obs)
	h.Buffers = registry.New[Buffer, BufferTag](cfg.ModeFor(identity.KindBuffer), obs)
	h.Textures = registry.New[Texture, TextureTag](cfg.ModeFor(identity.KindTexture), obs)
	h.TextureViews = registry.New[TextureView, TextureViewTag](cfg.ModeFor(identity.KindTextureView), obs)
	h.Samplers = registry.New[Sampler, SamplerTag](cfg.ModeFor(identity.KindSampler), obs)
	h.Surfaces = registry.New[Surface, SurfaceTag](cfg.ModeFor(identity.KindSurface), obs)

	Logger().Debug("hub: created", "hub", h.id, "default_mode", cfg.DefaultMode.String())
	return h
}

// ID returns the unique identifier of this Hub instance, used to tell hubs
// apart in logs and metrics.
func (h *Hub) ID() string { return h.id }

// Config returns the configuration the Hub was built with.
func (h *Hub) Config() Config { return h.cfg }

// Kinds returns the resource kinds in declaration order, which is the lock
// order for multi-kind operations.
func (h *Hub) Kinds() []identity.Kind { return identity.Kinds() }

// KindStats describes one registry of a Hub.
type KindStats struct {
	Kind identity.Kind
	Mode identity.Mode
	Live int
}

// Stats returns the number of live objects per kind in declaration order.
// Registries are read one at a time, so the result is not a consistent
// snapshot across kinds.
func (h *Hub) Stats() []KindStats {
	return []KindStats{
		{identity.KindInstance, h.Instances.Mode(), h.Instances.Len()},
		{identity.KindAdapter, h.Adapters.Mode(), h.Adapters.Len()},
		{identity.KindDevice, h.Devices.Mode(), h.Devices.Len()},
		{identity.KindPipelineLayout, h.PipelineLayouts.Mode(), h.PipelineLayouts.Len()},
		{identity.KindBindGroupLayout, h.BindGroupLayouts.Mode(), h.BindGroupLayouts.Len()},
		{identity.KindBindGroup, h.BindGroups.Mode(), h.BindGroups.Len()},
		{identity.KindShaderModule, h.ShaderModules.Mode(), h.ShaderModules.Len()},
		{identity.KindCommandBuffer, h.CommandBuffers.Mode(), h.CommandBuffers.Len()},
		{identity.KindRenderPipeline, h.RenderPipelines.Mode(), h.RenderPipelines.Len()},
		{identity.KindComputePipeline, h.ComputePipelines.Mode(), h.ComputePipelines.Len()},
		{identity.KindRenderPass, h.RenderPasses.Mode(), h.RenderPasses.Len()},
		{identity.KindComputePass, h.ComputePasses.Mode(), h.ComputePasses.Len()},
		{identity.KindBuffer, h.Buffers.Mode(), h.Buffers.Len()},
		{identity.KindTexture, h.Textures.Mode(), h.Textures.Len()},
		{identity.KindTextureView, h.TextureViews.Mode(), h.TextureViews.Len()},
		{identity.KindSampler, h.Samplers.Mode(), h.Samplers.Len()},
		{identity.KindSurface, h.Surfaces.Mode(), h.Surfaces.Len()},
	}
}

// Live returns the total number of live objects across all kinds.
func (h *Hub) Live() int {
	n := 0
	for _, s := range h.Stats() {
		n += s.Live
	}
	return n
}

var (
	globalMu sync.RWMutex
	global   *Hub
)

// Init creates the process-wide Hub. It must be called once before Global
// is used and returns ErrAlreadyInitialized if the Hub already exists.
func Init(cfg Config) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		return ErrAlreadyInitialized
	}
	global = New(cfg)
	Logger().Info("hub: initialized", "hub", global.id, "default_mode", cfg.DefaultMode.String())
	return nil
}

// Global returns the process-wide Hub, or nil before Init and after
// Teardown.
func Global() *Hub {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Teardown drops the process-wide Hub. Objects still registered are logged
// at Warn level; releasing their GPU memory is up to the owner of the HAL
// objects (see native.Global.Close). After Teardown, Init may be called
// again.
func Teardown() error {
	globalMu.Lock()
	h := global
	global = nil
	globalMu.Unlock()

	if h == nil {
		return ErrNotInitialized
	}
	for _, s := range h.Stats() {
		if s.Live > 0 {
			Logger().Warn("hub: objects still live at teardown",
				"hub", h.id, "kind", s.Kind.String(), "count", s.Live)
		}
	}
	Logger().Info("hub: torn down", "hub", h.id)
	return nil
}
