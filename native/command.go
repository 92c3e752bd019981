// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hub"
)

const (
	// defaultSubmitTimeout bounds the wait of QueueSubmit when the context
	// has no deadline.
	defaultSubmitTimeout = 5 * time.Second

	submitPollInterval = time.Millisecond
)

// CreateCommandEncoder creates a command buffer on device in the recording
// state.
func (g *Global) CreateCommandEncoder(device hub.DeviceID, label string, in hub.CommandBufferID) (hub.CommandBufferID, error) {
	dev, err := g.hub.Devices.Get(device)
	if err != nil {
		return hub.CommandBufferID{}, errorf("create command encoder", err)
	}
	enc, err := dev.Raw.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return hub.CommandBufferID{}, errorf("create command encoder", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return hub.CommandBufferID{}, errorf("create command encoder: begin encoding", err)
	}

	id, err := g.hub.CommandBuffers.Assign(in, hub.CommandBuffer{
		Device:  device,
		Encoder: enc,
		State:   hub.CommandBufferRecording,
		Label:   label,
	})
	if err != nil {
		enc.DiscardEncoding()
		return hub.CommandBufferID{}, errorf("create command encoder", err)
	}
	return id, nil
}

// lock moves cmd from recording to locked and returns its encoder.
func (g *Global) lock(cmd hub.CommandBufferID) (hal.CommandEncoder, hub.DeviceID, error) {
	var (
		enc    hal.CommandEncoder
		device hub.DeviceID
	)
	err := g.hub.CommandBuffers.Write(cmd, func(cb *hub.CommandBuffer) error {
		if cb.State != hub.CommandBufferRecording {
			return fmt.Errorf("%w: %s is %s", ErrInvalidState, cmd, cb.State)
		}
		cb.State = hub.CommandBufferLocked
		enc = cb.Encoder
		device = cb.Device
		return nil
	})
	return enc, device, err
}

// unlock moves cmd back to recording after its pass ended. A command buffer
// destroyed in the meantime is ignored.
func (g *Global) unlock(cmd hub.CommandBufferID) {
	_ = g.hub.CommandBuffers.Write(cmd, func(cb *hub.CommandBuffer) error {
		if cb.State == hub.CommandBufferLocked {
			cb.State = hub.CommandBufferRecording
		}
		return nil
	})
}

// BeginComputePass opens a compute pass on cmd. cmd stays locked until the
// pass is ended.
func (g *Global) BeginComputePass(cmd hub.CommandBufferID, label string, in hub.ComputePassID) (hub.ComputePassID, error) {
	enc, _, err := g.lock(cmd)
	if err != nil {
		return hub.ComputePassID{}, errorf("begin compute pass", err)
	}

	raw := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
	id, err := g.hub.ComputePasses.Assign(in, hub.ComputePass{CommandBuffer: cmd, Raw: raw})
	if err != nil {
		raw.End()
		g.unlock(cmd)
		return hub.ComputePassID{}, errorf("begin compute pass", err)
	}
	return id, nil
}

// ComputePassSetPipeline sets the pipeline of pass.
func (g *Global) ComputePassSetPipeline(pass hub.ComputePassID, pipeline hub.ComputePipelineID) error {
	p, err := g.hub.ComputePipelines.Get(pipeline)
	if err != nil {
		return errorf("compute pass set pipeline", err)
	}
	return g.computePass(pass, "compute pass set pipeline", func(raw hal.ComputePassEncoder) {
		raw.SetPipeline(p.Raw)
	})
}

// ComputePassSetBindGroup binds group at index.
func (g *Global) ComputePassSetBindGroup(pass hub.ComputePassID, index uint32, group hub.BindGroupID) error {
	bg, err := g.hub.BindGroups.Get(group)
	if err != nil {
		return errorf("compute pass set bind group", err)
	}
	return g.computePass(pass, "compute pass set bind group", func(raw hal.ComputePassEncoder) {
		raw.SetBindGroup(index, bg.Raw, nil)
	})
}

// ComputePassDispatch records a dispatch of x*y*z workgroups.
func (g *Global) ComputePassDispatch(pass hub.ComputePassID, x, y, z uint32) error {
	return g.computePass(pass, "compute pass dispatch", func(raw hal.ComputePassEncoder) {
		raw.Dispatch(x, y, z)
	})
}

func (g *Global) computePass(pass hub.ComputePassID, op string, fn func(hal.ComputePassEncoder)) error {
	err := g.hub.ComputePasses.Write(pass, func(p *hub.ComputePass) error {
		fn(p.Raw)
		return nil
	})
	if err != nil {
		return errorf(op, err)
	}
	return nil
}

// EndComputePass ends pass and unlocks its command buffer.
func (g *Global) EndComputePass(pass hub.ComputePassID) error {
	p, err := g.hub.ComputePasses.Unregister(pass)
	if err != nil {
		return errorf("end compute pass", err)
	}
	p.Raw.End()
	g.unlock(p.CommandBuffer)
	return nil
}

// RenderPassColorAttachment describes one color target of a render pass.
// ResolveTarget may be zero.
type RenderPassColorAttachment struct {
	View          hub.TextureViewID
	ResolveTarget hub.TextureViewID
	LoadOp        gputypes.LoadOp
	StoreOp       gputypes.StoreOp
	ClearValue    gputypes.Color
}

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []RenderPassColorAttachment
}

// BeginRenderPass opens a render pass on cmd. cmd stays locked until the
// pass is ended.
func (g *Global) BeginRenderPass(cmd hub.CommandBufferID, desc *RenderPassDescriptor, in hub.RenderPassID) (hub.RenderPassID, error) {
	if desc == nil {
		return hub.RenderPassID{}, ErrNilDescriptor
	}
	enc, device, err := g.lock(cmd)
	if err != nil {
		return hub.RenderPassID{}, errorf("begin render pass", err)
	}

	attachments, err := g.colorAttachments(device, desc.ColorAttachments)
	if err != nil {
		g.unlock(cmd)
		return hub.RenderPassID{}, errorf("begin render pass", err)
	}

	raw := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: attachments,
	})
	id, err := g.hub.RenderPasses.Assign(in, hub.RenderPass{CommandBuffer: cmd, Raw: raw})
	if err != nil {
		raw.End()
		g.unlock(cmd)
		return hub.RenderPassID{}, errorf("begin render pass", err)
	}
	return id, nil
}

func (g *Global) colorAttachments(device hub.DeviceID, in []RenderPassColorAttachment) ([]hal.RenderPassColorAttachment, error) {
	out := make([]hal.RenderPassColorAttachment, 0, len(in))
	for _, a := range in {
		view, err := g.hub.TextureViews.Get(a.View)
		if err != nil {
			return nil, err
		}
		if view.Device != device {
			return nil, ErrDeviceMismatch
		}
		att := hal.RenderPassColorAttachment{
			View:       view.Raw,
			LoadOp:     a.LoadOp,
			StoreOp:    a.StoreOp,
			ClearValue: a.ClearValue,
		}
		if !a.ResolveTarget.IsZero() {
			resolve, err := g.hub.TextureViews.Get(a.ResolveTarget)
			if err != nil {
				return nil, err
			}
			if resolve.Device != device {
				return nil, ErrDeviceMismatch
			}
			att.ResolveTarget = resolve.Raw
		}
		out = append(out, att)
	}
	return out, nil
}

// RenderPassSetPipeline sets the pipeline of pass.
func (g *Global) RenderPassSetPipeline(pass hub.RenderPassID, pipeline hub.RenderPipelineID) error {
	p, err := g.hub.RenderPipelines.Get(pipeline)
	if err != nil {
		return errorf("render pass set pipeline", err)
	}
	return g.renderPass(pass, "render pass set pipeline", func(raw hal.RenderPassEncoder) {
		raw.SetPipeline(p.Raw)
	})
}

// RenderPassSetBindGroup binds group at index.
func (g *Global) RenderPassSetBindGroup(pass hub.RenderPassID, index uint32, group hub.BindGroupID) error {
	bg, err := g.hub.BindGroups.Get(group)
	if err != nil {
		return errorf("render pass set bind group", err)
	}
	return g.renderPass(pass, "render pass set bind group", func(raw hal.RenderPassEncoder) {
		raw.SetBindGroup(index, bg.Raw, nil)
	})
}

// RenderPassSetVertexBuffer binds buffer at slot starting at offset.
func (g *Global) RenderPassSetVertexBuffer(pass hub.RenderPassID, slot uint32, buffer hub.BufferID, offset uint64) error {
	buf, err := g.hub.Buffers.Get(buffer)
	if err != nil {
		return errorf("render pass set vertex buffer", err)
	}
	return g.renderPass(pass, "render pass set vertex buffer", func(raw hal.RenderPassEncoder) {
		raw.SetVertexBuffer(slot, buf.Raw, offset)
	})
}

// RenderPassDraw records a non-indexed draw.
func (g *Global) RenderPassDraw(pass hub.RenderPassID, vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	return g.renderPass(pass, "render pass draw", func(raw hal.RenderPassEncoder) {
		raw.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	})
}

func (g *Global) renderPass(pass hub.RenderPassID, op string, fn func(hal.RenderPassEncoder)) error {
	err := g.hub.RenderPasses.Write(pass, func(p *hub.RenderPass) error {
		fn(p.Raw)
		return nil
	})
	if err != nil {
		return errorf(op, err)
	}
	return nil
}

// EndRenderPass ends pass and unlocks its command buffer.
func (g *Global) EndRenderPass(pass hub.RenderPassID) error {
	p, err := g.hub.RenderPasses.Unregister(pass)
	if err != nil {
		return errorf("end render pass", err)
	}
	p.Raw.End()
	g.unlock(p.CommandBuffer)
	return nil
}

// FinishCommandEncoder ends recording of cmd. The command buffer can then be
// submitted once.
func (g *Global) FinishCommandEncoder(cmd hub.CommandBufferID) error {
	err := g.hub.CommandBuffers.Write(cmd, func(cb *hub.CommandBuffer) error {
		if cb.State != hub.CommandBufferRecording {
			return fmt.Errorf("%w: %s is %s", ErrInvalidState, cmd, cb.State)
		}
		raw, err := cb.Encoder.EndEncoding()
		if err != nil {
			return err
		}
		cb.Raw = raw
		cb.State = hub.CommandBufferFinished
		return nil
	})
	if err != nil {
		return errorf("finish command encoder", err)
	}
	return nil
}

// DestroyCommandBuffer drops cmd without submitting it. A command buffer
// with an open pass or an in-flight submission cannot be destroyed.
func (g *Global) DestroyCommandBuffer(cmd hub.CommandBufferID) error {
	return releaseIf(g, g.hub.CommandBuffers, cmd,
		func(v *hub.CommandBuffer) error {
			switch v.State {
			case hub.CommandBufferLocked:
				return fmt.Errorf("%w: %s has an open pass", ErrInvalidState, cmd)
			case hub.CommandBufferSubmitted:
				return fmt.Errorf("%w: %s is being submitted", ErrInvalidState, cmd)
			}
			return nil
		},
		func(v *hub.CommandBuffer) hub.DeviceID { return v.Device },
		func(d hal.Device, v *hub.CommandBuffer) {
			switch v.State {
			case hub.CommandBufferRecording:
				v.Encoder.DiscardEncoding()
			case hub.CommandBufferFinished:
				d.FreeCommandBuffer(v.Raw)
			}
		})
}

// QueueSubmit submits finished command buffers to device's queue and waits
// for the GPU to complete them. Submitted command buffers are consumed:
// their IDs become invalid, also when the wait fails.
//
// The wait is bounded by ctx, or by five seconds when ctx has no deadline.
func (g *Global) QueueSubmit(ctx context.Context, device hub.DeviceID, cmds []hub.CommandBufferID) error {
	if err := ctx.Err(); err != nil {
		return errorf("queue submit", err)
	}
	if _, err := g.hub.Devices.Get(device); err != nil {
		return errorf("queue submit", err)
	}

	seen := make(map[hub.CommandBufferID]bool, len(cmds))
	for _, id := range cmds {
		if seen[id] {
			return errorf("queue submit", fmt.Errorf("%w: %s submitted twice", ErrInvalidState, id))
		}
		seen[id] = true
	}

	raws, err := g.claim(device, cmds)
	if err != nil {
		return errorf("queue submit", err)
	}

	var index uint64
	err = g.hub.Devices.Read(device, func(dev *hub.Device) error {
		g.queueMu.Lock()
		defer g.queueMu.Unlock()
		var err error
		index, err = dev.Queue.Submit(raws)
		return err
	})
	if err != nil {
		g.unclaim(cmds)
		return errorf("queue submit", err)
	}

	err = g.waitSubmission(ctx, device, index)
	g.consume(device, cmds, err == nil)
	if err != nil {
		return err
	}
	slogger().Debug("native: submitted", "device", device.String(),
		"command_buffers", len(cmds), "submission", index)
	return nil
}

// claim moves every command buffer in cmds from finished to submitted and
// returns their HAL buffers. On failure the ones already claimed are put
// back.
func (g *Global) claim(device hub.DeviceID, cmds []hub.CommandBufferID) ([]hal.CommandBuffer, error) {
	raws := make([]hal.CommandBuffer, 0, len(cmds))
	for i, id := range cmds {
		err := g.hub.CommandBuffers.Write(id, func(cb *hub.CommandBuffer) error {
			if cb.Device != device {
				return ErrDeviceMismatch
			}
			if cb.State != hub.CommandBufferFinished {
				return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, cb.State)
			}
			cb.State = hub.CommandBufferSubmitted
			raws = append(raws, cb.Raw)
			return nil
		})
		if err != nil {
			g.unclaim(cmds[:i])
			return nil, err
		}
	}
	return raws, nil
}

// unclaim returns submitted command buffers to the finished state.
func (g *Global) unclaim(cmds []hub.CommandBufferID) {
	for _, id := range cmds {
		_ = g.hub.CommandBuffers.Write(id, func(cb *hub.CommandBuffer) error {
			if cb.State == hub.CommandBufferSubmitted {
				cb.State = hub.CommandBufferFinished
			}
			return nil
		})
	}
}

// waitSubmission polls device's queue until submission index completes.
func (g *Global) waitSubmission(ctx context.Context, device hub.DeviceID, index uint64) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultSubmitTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(submitPollInterval)
	defer ticker.Stop()
	for {
		var done bool
		err := g.hub.Devices.Read(device, func(dev *hub.Device) error {
			g.queueMu.Lock()
			done = dev.Queue.PollCompleted() >= index
			g.queueMu.Unlock()
			return nil
		})
		if err != nil {
			return errorf("queue submit: wait", err)
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: submission %d", ErrSubmitTimeout, index)
			}
			return errorf("queue submit: wait", ctx.Err())
		case <-ticker.C:
		}
	}
}

// consume unregisters submitted command buffers. Their HAL buffers are
// freed only when the GPU completed them; otherwise they are left to the
// device.
func (g *Global) consume(device hub.DeviceID, cmds []hub.CommandBufferID, completed bool) {
	for _, id := range cmds {
		cb, err := g.hub.CommandBuffers.Unregister(id)
		if err != nil {
			slogger().Warn("native: submitted command buffer already gone",
				"id", id.String(), "err", err)
			continue
		}
		if !completed {
			continue
		}
		_ = g.hub.Devices.Read(device, func(dev *hub.Device) error {
			dev.Raw.FreeCommandBuffer(cb.Raw)
			return nil
		})
	}
	if !completed {
		slogger().Warn("native: submission did not complete, command buffers abandoned",
			"device", device.String(), "command_buffers", len(cmds))
	}
}
