// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/hub"
	"github.com/gogpu/hub/identity"
)

// spirvStub is a SPIR-V header; the noop backend does not parse modules.
var spirvStub = []uint32{0x07230203, 0x00010000, 0, 1, 0}

// newTestGlobal creates a Global over a fresh hub and the noop backend.
func newTestGlobal(t *testing.T, cfg hub.Config) *Global {
	t.Helper()
	g := New(hub.New(cfg), &noop.API{})
	t.Cleanup(func() { _ = g.Close() })
	return g
}

// openDevice creates an instance, adapter and device in local mode.
func openDevice(t *testing.T, g *Global) hub.DeviceID {
	t.Helper()
	inst, err := g.CreateInstance("test", hub.InstanceID{})
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapter, err := g.RequestAdapter(inst, hub.AdapterID{})
	if err != nil {
		t.Fatalf("RequestAdapter failed: %v", err)
	}
	device, err := g.RequestDevice(adapter, &DeviceDescriptor{Label: "test"}, hub.DeviceID{})
	if err != nil {
		t.Fatalf("RequestDevice failed: %v", err)
	}
	return device
}

func createBuffer(t *testing.T, g *Global, device hub.DeviceID, size uint64) hub.BufferID {
	t.Helper()
	id, err := g.CreateBuffer(device, &hal.BufferDescriptor{
		Label: "test_buffer",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageVertex,
	}, hub.BufferID{})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	return id
}

func TestOpenDevice(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	dev, err := g.Hub().Devices.Get(device)
	if err != nil {
		t.Fatalf("Devices.Get failed: %v", err)
	}
	if dev.Raw == nil || dev.Queue == nil {
		t.Error("expected non-nil device and queue")
	}
	if _, err := g.Hub().Adapters.Get(dev.Adapter); err != nil {
		t.Errorf("adapter of device not registered: %v", err)
	}
}

func TestBufferLifecycle(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	buf := createBuffer(t, g, device, 256)
	b, err := g.Hub().Buffers.Get(buf)
	if err != nil || b.Size != 256 || b.Device != device {
		t.Fatalf("Buffers.Get = %+v, %v", b, err)
	}

	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := g.QueueWriteBuffer(device, buf, 64, want); err != nil {
		t.Errorf("QueueWriteBuffer failed: %v", err)
	}
	got := make([]byte, len(want))
	if err := g.QueueReadBuffer(device, buf, 64, got); err != nil {
		t.Errorf("QueueReadBuffer failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("read back %v, want %v", got, want)
	}
	if err := g.QueueWriteBuffer(device, buf, 250, want); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("QueueWriteBuffer(past end) = %v, want ErrOutOfRange", err)
	}
	if err := g.QueueReadBuffer(device, buf, 1<<40, got); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("QueueReadBuffer(past end) = %v, want ErrOutOfRange", err)
	}

	if err := g.DestroyBuffer(buf); err != nil {
		t.Fatalf("DestroyBuffer failed: %v", err)
	}
	if err := g.DestroyBuffer(buf); !errors.Is(err, identity.ErrDoubleFree) {
		t.Errorf("second DestroyBuffer = %v, want ErrDoubleFree", err)
	}
	if err := g.QueueWriteBuffer(device, buf, 0, []byte{1}); !errors.Is(err, identity.ErrStaleHandle) {
		t.Errorf("QueueWriteBuffer(destroyed) = %v, want ErrStaleHandle", err)
	}
}

// TestBufferSlotReuse checks that a destroyed buffer's handle cannot reach
// the buffer that reuses its slot.
func TestBufferSlotReuse(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	b1 := createBuffer(t, g, device, 64)
	if err := g.DestroyBuffer(b1); err != nil {
		t.Fatal(err)
	}
	b2 := createBuffer(t, g, device, 128)

	if b2.Index() != b1.Index() || b2.Epoch() != b1.Epoch()+1 {
		t.Fatalf("b2 = %v, want same index as %v with next epoch", b2, b1)
	}
	if err := g.QueueWriteBuffer(device, b1, 0, []byte{1}); !errors.Is(err, identity.ErrStaleHandle) {
		t.Errorf("write through old handle = %v, want ErrStaleHandle", err)
	}
	if err := g.DestroyBuffer(b1); !errors.Is(err, identity.ErrStaleHandle) {
		t.Errorf("DestroyBuffer(old) = %v, want ErrStaleHandle", err)
	}
	if !g.Hub().Buffers.Contains(b2) {
		t.Error("new buffer lost after stale destroy")
	}
}

func TestTextureViewSampler(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	tex, err := g.CreateTexture(device, &hal.TextureDescriptor{
		Label:         "test_texture",
		Size:          hal.Extent3D{Width: 64, Height: 32, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	}, hub.TextureID{})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	view, err := g.CreateTextureView(tex, nil, hub.TextureViewID{})
	if err != nil {
		t.Fatalf("CreateTextureView failed: %v", err)
	}
	sampler, err := g.CreateSampler(device, &hal.SamplerDescriptor{
		Label:        "test_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
	}, hub.SamplerID{})
	if err != nil {
		t.Fatalf("CreateSampler failed: %v", err)
	}

	tv, _ := g.Hub().TextureViews.Get(view)
	if tv.Texture != tex || tv.Device != device {
		t.Errorf("TextureView = %+v", tv)
	}
	tx, _ := g.Hub().Textures.Get(tex)
	if tx.Width != 64 || tx.Height != 32 || tx.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Texture = %+v", tx)
	}

	if err := g.DestroyTextureView(view); err != nil {
		t.Errorf("DestroyTextureView failed: %v", err)
	}
	if err := g.DestroyTexture(tex); err != nil {
		t.Errorf("DestroyTexture failed: %v", err)
	}
	if err := g.DestroySampler(sampler); err != nil {
		t.Errorf("DestroySampler failed: %v", err)
	}
	if _, err := g.CreateTextureView(tex, nil, hub.TextureViewID{}); !errors.Is(err, identity.ErrStaleHandle) {
		t.Errorf("CreateTextureView(destroyed texture) = %v, want ErrStaleHandle", err)
	}
}

func TestNilDescriptors(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	if _, err := g.CreateBuffer(device, nil, hub.BufferID{}); !errors.Is(err, ErrNilDescriptor) {
		t.Errorf("CreateBuffer(nil) = %v", err)
	}
	if _, err := g.CreateShaderModule(device, nil, hub.ShaderModuleID{}); !errors.Is(err, ErrNilDescriptor) {
		t.Errorf("CreateShaderModule(nil) = %v", err)
	}
	if _, err := g.CreateShaderModule(device, &ShaderModuleDescriptor{Label: "empty"}, hub.ShaderModuleID{}); !errors.Is(err, ErrEmptyShader) {
		t.Errorf("CreateShaderModule(empty) = %v", err)
	}
	if _, err := g.CreateComputePipeline(device, nil, hub.ComputePipelineID{}); !errors.Is(err, ErrNilDescriptor) {
		t.Errorf("CreateComputePipeline(nil) = %v", err)
	}
}

func TestDestroyDeviceReleasesChildren(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	buf := createBuffer(t, g, device, 64)
	layout, err := g.CreateBindGroupLayout(device, "layout", []gputypes.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
	}}, hub.BindGroupLayoutID{})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout failed: %v", err)
	}
	if _, err := g.CreateBindGroup(device, &BindGroupDescriptor{
		Label:   "group",
		Layout:  layout,
		Entries: []BufferBindingEntry{{Binding: 0, Buffer: buf}},
	}, hub.BindGroupID{}); err != nil {
		t.Fatalf("CreateBindGroup failed: %v", err)
	}
	cmd, err := g.CreateCommandEncoder(device, "cmd", hub.CommandBufferID{})
	if err != nil {
		t.Fatalf("CreateCommandEncoder failed: %v", err)
	}
	if _, err := g.BeginComputePass(cmd, "pass", hub.ComputePassID{}); err != nil {
		t.Fatalf("BeginComputePass failed: %v", err)
	}

	if err := g.DestroyDevice(device); err != nil {
		t.Fatalf("DestroyDevice failed: %v", err)
	}

	h := g.Hub()
	for _, s := range h.Stats() {
		switch s.Kind {
		case identity.KindInstance, identity.KindAdapter:
			if s.Live != 1 {
				t.Errorf("%v live = %d, want 1", s.Kind, s.Live)
			}
		default:
			if s.Live != 0 {
				t.Errorf("%v live = %d after DestroyDevice, want 0", s.Kind, s.Live)
			}
		}
	}
	if err := g.DestroyBuffer(buf); !errors.Is(err, identity.ErrDoubleFree) {
		t.Errorf("DestroyBuffer after device = %v, want ErrDoubleFree", err)
	}
	if err := g.DestroyDevice(device); !errors.Is(err, identity.ErrDoubleFree) {
		t.Errorf("second DestroyDevice = %v, want ErrDoubleFree", err)
	}
	if _, err := g.CreateBuffer(device, &hal.BufferDescriptor{Size: 4}, hub.BufferID{}); !errors.Is(err, identity.ErrStaleHandle) {
		t.Errorf("CreateBuffer on destroyed device = %v, want ErrStaleHandle", err)
	}
}

func TestDeviceMismatch(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	d1 := openDevice(t, g)
	d2 := openDevice(t, g)

	buf := createBuffer(t, g, d2, 64)
	layout, err := g.CreateBindGroupLayout(d1, "layout", []gputypes.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}}, hub.BindGroupLayoutID{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = g.CreateBindGroup(d1, &BindGroupDescriptor{
		Layout:  layout,
		Entries: []BufferBindingEntry{{Binding: 0, Buffer: buf}},
	}, hub.BindGroupID{})
	if !errors.Is(err, ErrDeviceMismatch) {
		t.Errorf("CreateBindGroup across devices = %v, want ErrDeviceMismatch", err)
	}
	if err := g.QueueWriteBuffer(d1, buf, 0, []byte{1}); !errors.Is(err, ErrDeviceMismatch) {
		t.Errorf("QueueWriteBuffer across devices = %v, want ErrDeviceMismatch", err)
	}
	if g.Hub().BindGroups.Len() != 0 {
		t.Error("failed CreateBindGroup left a registry entry")
	}
}

func TestComputeSubmit(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	buf := createBuffer(t, g, device, 256)
	module, err := g.CreateShaderModule(device, &ShaderModuleDescriptor{Label: "double", SPIRV: spirvStub}, hub.ShaderModuleID{})
	if err != nil {
		t.Fatalf("CreateShaderModule failed: %v", err)
	}
	bgl, err := g.CreateBindGroupLayout(device, "bgl", []gputypes.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
	}}, hub.BindGroupLayoutID{})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout failed: %v", err)
	}
	pl, err := g.CreatePipelineLayout(device, "pl", []hub.BindGroupLayoutID{bgl}, hub.PipelineLayoutID{})
	if err != nil {
		t.Fatalf("CreatePipelineLayout failed: %v", err)
	}
	pipeline, err := g.CreateComputePipeline(device, &ComputePipelineDescriptor{
		Label: "double", Layout: pl, Module: module, EntryPoint: "main",
	}, hub.ComputePipelineID{})
	if err != nil {
		t.Fatalf("CreateComputePipeline failed: %v", err)
	}
	group, err := g.CreateBindGroup(device, &BindGroupDescriptor{
		Label:   "group",
		Layout:  bgl,
		Entries: []BufferBindingEntry{{Binding: 0, Buffer: buf}},
	}, hub.BindGroupID{})
	if err != nil {
		t.Fatalf("CreateBindGroup failed: %v", err)
	}

	cmd, err := g.CreateCommandEncoder(device, "compute", hub.CommandBufferID{})
	if err != nil {
		t.Fatalf("CreateCommandEncoder failed: %v", err)
	}
	pass, err := g.BeginComputePass(cmd, "compute_pass", hub.ComputePassID{})
	if err != nil {
		t.Fatalf("BeginComputePass failed: %v", err)
	}
	if err := g.ComputePassSetPipeline(pass, pipeline); err != nil {
		t.Errorf("SetPipeline failed: %v", err)
	}
	if err := g.ComputePassSetBindGroup(pass, 0, group); err != nil {
		t.Errorf("SetBindGroup failed: %v", err)
	}
	if err := g.ComputePassDispatch(pass, 4, 1, 1); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if err := g.EndComputePass(pass); err != nil {
		t.Fatalf("EndComputePass failed: %v", err)
	}
	if err := g.ComputePassDispatch(pass, 1, 1, 1); !errors.Is(err, identity.ErrStaleHandle) {
		t.Errorf("Dispatch on ended pass = %v, want ErrStaleHandle", err)
	}

	if err := g.FinishCommandEncoder(cmd); err != nil {
		t.Fatalf("FinishCommandEncoder failed: %v", err)
	}
	if err := g.QueueSubmit(context.Background(), device, []hub.CommandBufferID{cmd}); err != nil {
		t.Fatalf("QueueSubmit failed: %v", err)
	}
	if g.Hub().CommandBuffers.Contains(cmd) {
		t.Error("submitted command buffer still registered")
	}
	if err := g.QueueSubmit(context.Background(), device, []hub.CommandBufferID{cmd}); !errors.Is(err, identity.ErrStaleHandle) {
		t.Errorf("resubmit = %v, want ErrStaleHandle", err)
	}
}

func TestCommandBufferStates(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	cmd, err := g.CreateCommandEncoder(device, "states", hub.CommandBufferID{})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.QueueSubmit(context.Background(), device, []hub.CommandBufferID{cmd}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("submit while recording = %v, want ErrInvalidState", err)
	}

	pass, err := g.BeginComputePass(cmd, "first", hub.ComputePassID{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.BeginComputePass(cmd, "second", hub.ComputePassID{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second pass = %v, want ErrInvalidState", err)
	}
	if err := g.FinishCommandEncoder(cmd); !errors.Is(err, ErrInvalidState) {
		t.Errorf("finish with open pass = %v, want ErrInvalidState", err)
	}
	if err := g.DestroyCommandBuffer(cmd); !errors.Is(err, ErrInvalidState) {
		t.Errorf("destroy with open pass = %v, want ErrInvalidState", err)
	}
	if g.Hub().ComputePasses.Len() != 1 {
		t.Errorf("rejected pass left %d passes", g.Hub().ComputePasses.Len())
	}

	if err := g.EndComputePass(pass); err != nil {
		t.Fatal(err)
	}
	if err := g.FinishCommandEncoder(cmd); err != nil {
		t.Fatalf("finish after pass = %v", err)
	}
	if err := g.FinishCommandEncoder(cmd); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second finish = %v, want ErrInvalidState", err)
	}
	if err := g.QueueSubmit(context.Background(), device, []hub.CommandBufferID{cmd, cmd}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("duplicate submit = %v, want ErrInvalidState", err)
	}
	if err := g.DestroyCommandBuffer(cmd); err != nil {
		t.Errorf("DestroyCommandBuffer(finished) = %v", err)
	}
}

// finishedCommandBuffer records an empty command buffer and finishes it.
func finishedCommandBuffer(t *testing.T, g *Global, device hub.DeviceID) hub.CommandBufferID {
	t.Helper()
	cmd, err := g.CreateCommandEncoder(device, "finished", hub.CommandBufferID{})
	if err != nil {
		t.Fatalf("CreateCommandEncoder failed: %v", err)
	}
	if err := g.FinishCommandEncoder(cmd); err != nil {
		t.Fatalf("FinishCommandEncoder failed: %v", err)
	}
	return cmd
}

func commandBufferState(t *testing.T, g *Global, cmd hub.CommandBufferID) hub.CommandBufferState {
	t.Helper()
	cb, err := g.Hub().CommandBuffers.Get(cmd)
	if err != nil {
		t.Fatalf("CommandBuffers.Get(%v) failed: %v", cmd, err)
	}
	return cb.State
}

// TestQueueSubmitRestoresOnRejection checks that a submission rejected on
// its second command buffer leaves the first one submittable.
func TestQueueSubmitRestoresOnRejection(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	ready := finishedCommandBuffer(t, g, device)
	recording, err := g.CreateCommandEncoder(device, "recording", hub.CommandBufferID{})
	if err != nil {
		t.Fatal(err)
	}

	err = g.QueueSubmit(context.Background(), device, []hub.CommandBufferID{ready, recording})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("QueueSubmit = %v, want ErrInvalidState", err)
	}
	if s := commandBufferState(t, g, ready); s != hub.CommandBufferFinished {
		t.Errorf("rejected submission left %v in state %v, want finished", ready, s)
	}
	if err := g.QueueSubmit(context.Background(), device, []hub.CommandBufferID{ready}); err != nil {
		t.Errorf("QueueSubmit after rejection = %v", err)
	}
}

func TestDestroySubmittedCommandBuffer(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)
	cmd := finishedCommandBuffer(t, g, device)

	_ = g.Hub().CommandBuffers.Write(cmd, func(cb *hub.CommandBuffer) error {
		cb.State = hub.CommandBufferSubmitted
		return nil
	})
	if err := g.DestroyCommandBuffer(cmd); !errors.Is(err, ErrInvalidState) {
		t.Errorf("DestroyCommandBuffer(submitted) = %v, want ErrInvalidState", err)
	}
	if !g.Hub().CommandBuffers.Contains(cmd) {
		t.Fatal("rejected destroy removed the command buffer")
	}
	if err := g.QueueSubmit(context.Background(), device, []hub.CommandBufferID{cmd}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("QueueSubmit(submitted) = %v, want ErrInvalidState", err)
	}
}

func TestConsumeLogsMissingCommandBuffer(t *testing.T) {
	orig := hub.Logger()
	t.Cleanup(func() { hub.SetLogger(orig) })
	var buf bytes.Buffer
	hub.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)
	cmd := finishedCommandBuffer(t, g, device)
	if err := g.DestroyCommandBuffer(cmd); err != nil {
		t.Fatal(err)
	}

	g.consume(device, []hub.CommandBufferID{cmd}, true)
	if !strings.Contains(buf.String(), "submitted command buffer already gone") {
		t.Errorf("consume did not log the missing command buffer, got: %s", buf.String())
	}
}

// TestDestroyRacesQueueSubmit destroys command buffers while they are being
// submitted. Each one ends up either submitted or destroyed, never both.
func TestDestroyRacesQueueSubmit(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	for round := 0; round < 50; round++ {
		cmds := make([]hub.CommandBufferID, 4)
		for i := range cmds {
			cmds[i] = finishedCommandBuffer(t, g, device)
		}

		var (
			wg         sync.WaitGroup
			submitErr  error
			destroyErr = make([]error, len(cmds))
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			submitErr = g.QueueSubmit(context.Background(), device, cmds)
		}()
		go func() {
			defer wg.Done()
			for i := len(cmds) - 1; i >= 0; i-- {
				destroyErr[i] = g.DestroyCommandBuffer(cmds[i])
			}
		}()
		wg.Wait()

		destroyed := 0
		for i, err := range destroyErr {
			switch {
			case err == nil:
				destroyed++
			case errors.Is(err, ErrInvalidState),
				errors.Is(err, identity.ErrDoubleFree),
				errors.Is(err, identity.ErrStaleHandle):
			default:
				t.Fatalf("round %d: DestroyCommandBuffer(%v) = %v", round, cmds[i], err)
			}
		}
		if submitErr == nil && destroyed > 0 {
			t.Fatalf("round %d: submission succeeded but %d of its command buffers were destroyed", round, destroyed)
		}
		if submitErr != nil && !errors.Is(submitErr, identity.ErrStaleHandle) {
			t.Fatalf("round %d: QueueSubmit = %v, want success or ErrStaleHandle", round, submitErr)
		}

		for _, id := range cmds {
			if g.Hub().CommandBuffers.Contains(id) {
				if s := commandBufferState(t, g, id); s != hub.CommandBufferFinished {
					t.Fatalf("round %d: %v left in state %v", round, id, s)
				}
				if err := g.DestroyCommandBuffer(id); err != nil {
					t.Fatalf("round %d: cleanup of %v = %v", round, id, err)
				}
			}
		}
	}
	if n := g.Hub().CommandBuffers.Len(); n != 0 {
		t.Errorf("CommandBuffers.Len() = %d, want 0", n)
	}
}

// TestDestroyRacesQueueWrite destroys buffers while other goroutines write
// to and read from them. An access either completes or sees a stale handle.
func TestDestroyRacesQueueWrite(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	const buffers = 16
	var wg sync.WaitGroup
	for i := 0; i < buffers; i++ {
		id := createBuffer(t, g, device, 64)
		wg.Add(2)
		go func() {
			defer wg.Done()
			out := make([]byte, 4)
			for {
				err := g.QueueWriteBuffer(device, id, 0, []byte{1, 2, 3, 4})
				if err == nil {
					err = g.QueueReadBuffer(device, id, 0, out)
				}
				if errors.Is(err, identity.ErrStaleHandle) {
					return
				}
				if err != nil {
					t.Errorf("access to %v = %v, want nil or ErrStaleHandle", id, err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			if err := g.DestroyBuffer(id); err != nil {
				t.Errorf("DestroyBuffer(%v) = %v", id, err)
			}
		}()
	}
	wg.Wait()

	if n := g.Hub().Buffers.Len(); n != 0 {
		t.Errorf("Buffers.Len() = %d, want 0", n)
	}
}

func TestQueueSubmitCanceled(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.QueueSubmit(ctx, device, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("QueueSubmit(canceled) = %v, want context.Canceled", err)
	}
}

func TestRenderPass(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	tex, err := g.CreateTexture(device, &hal.TextureDescriptor{
		Label:         "target",
		Size:          hal.Extent3D{Width: 32, Height: 32, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment,
	}, hub.TextureID{})
	if err != nil {
		t.Fatal(err)
	}
	view, err := g.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "target_view"}, hub.TextureViewID{})
	if err != nil {
		t.Fatal(err)
	}
	vbuf := createBuffer(t, g, device, 3*2*4)
	module, err := g.CreateShaderModule(device, &ShaderModuleDescriptor{Label: "tri", SPIRV: spirvStub}, hub.ShaderModuleID{})
	if err != nil {
		t.Fatal(err)
	}
	pl, err := g.CreatePipelineLayout(device, "empty", nil, hub.PipelineLayoutID{})
	if err != nil {
		t.Fatal(err)
	}
	pipeline, err := g.CreateRenderPipeline(device, &RenderPipelineDescriptor{
		Label:              "tri",
		Layout:             pl,
		VertexModule:       module,
		VertexEntryPoint:   "vs_main",
		FragmentModule:     module,
		FragmentEntryPoint: "fs_main",
		Targets: []gputypes.ColorTargetState{{
			Format:    gputypes.TextureFormatBGRA8Unorm,
			WriteMask: gputypes.ColorWriteMaskAll,
		}},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	}, hub.RenderPipelineID{})
	if err != nil {
		t.Fatalf("CreateRenderPipeline failed: %v", err)
	}

	cmd, _ := g.CreateCommandEncoder(device, "render", hub.CommandBufferID{})
	pass, err := g.BeginRenderPass(cmd, &RenderPassDescriptor{
		Label: "main",
		ColorAttachments: []RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	}, hub.RenderPassID{})
	if err != nil {
		t.Fatalf("BeginRenderPass failed: %v", err)
	}
	if err := g.RenderPassSetPipeline(pass, pipeline); err != nil {
		t.Error(err)
	}
	if err := g.RenderPassSetVertexBuffer(pass, 0, vbuf, 0); err != nil {
		t.Error(err)
	}
	if err := g.RenderPassDraw(pass, 3, 1, 0, 0); err != nil {
		t.Error(err)
	}
	if err := g.EndRenderPass(pass); err != nil {
		t.Fatal(err)
	}
	if err := g.FinishCommandEncoder(cmd); err != nil {
		t.Fatal(err)
	}
	if err := g.QueueSubmit(context.Background(), device, []hub.CommandBufferID{cmd}); err != nil {
		t.Fatalf("QueueSubmit failed: %v", err)
	}

	// A pass on a destroyed view is rejected and leaves the encoder usable.
	_ = g.DestroyTextureView(view)
	cmd2, _ := g.CreateCommandEncoder(device, "render2", hub.CommandBufferID{})
	_, err = g.BeginRenderPass(cmd2, &RenderPassDescriptor{
		ColorAttachments: []RenderPassColorAttachment{{View: view}},
	}, hub.RenderPassID{})
	if !errors.Is(err, identity.ErrStaleHandle) {
		t.Errorf("BeginRenderPass(destroyed view) = %v, want ErrStaleHandle", err)
	}
	if err := g.FinishCommandEncoder(cmd2); err != nil {
		t.Errorf("encoder not unlocked after rejected pass: %v", err)
	}
}

func TestWGSLShaderModule(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	const source = `
@group(0) @binding(0) var<storage, read_write> data: array<u32, 64>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] * 2u;
}
`
	module, err := g.CreateShaderModule(device, &ShaderModuleDescriptor{Label: "double", WGSL: source}, hub.ShaderModuleID{})
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "not yet implemented") || strings.Contains(errStr, "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		t.Fatalf("CreateShaderModule(WGSL) failed: %v", err)
	}
	if !g.Hub().ShaderModules.Contains(module) {
		t.Error("shader module not registered")
	}

	if _, err := g.CreateShaderModule(device, &ShaderModuleDescriptor{WGSL: "fn broken( {"}, hub.ShaderModuleID{}); err == nil {
		t.Error("invalid WGSL compiled")
	}
}

func TestExternalIdentities(t *testing.T) {
	g := newTestGlobal(t, hub.SplitConfig())

	// The client side allocates identities with its own managers.
	instances := identity.NewManager(identity.LocalAllocation)
	adapters := identity.NewManager(identity.LocalAllocation)
	devices := identity.NewManager(identity.LocalAllocation)
	buffers := identity.NewManager(identity.LocalAllocation)
	next := func(m *identity.Manager) identity.RawID {
		raw, err := m.Alloc()
		if err != nil {
			t.Fatal(err)
		}
		return raw
	}

	instIn := identity.FromRaw[hub.InstanceTag](next(instances))
	inst, err := g.CreateInstance("split", instIn)
	if err != nil || inst != instIn {
		t.Fatalf("CreateInstance = %v, %v", inst, err)
	}
	adapter, err := g.RequestAdapter(inst, identity.FromRaw[hub.AdapterTag](next(adapters)))
	if err != nil {
		t.Fatal(err)
	}
	devIn := identity.FromRaw[hub.DeviceTag](next(devices))
	device, err := g.RequestDevice(adapter, nil, devIn)
	if err != nil || device != devIn {
		t.Fatalf("RequestDevice = %v, %v", device, err)
	}

	bufRaw := next(buffers)
	bufIn := identity.FromRaw[hub.BufferTag](bufRaw)
	desc := &hal.BufferDescriptor{Size: 16, Usage: gputypes.BufferUsageCopyDst}
	if _, err := g.CreateBuffer(device, desc, bufIn); err != nil {
		t.Fatal(err)
	}
	if _, err := g.CreateBuffer(device, desc, bufIn); !errors.Is(err, identity.ErrAlreadyRegistered) {
		t.Errorf("CreateBuffer(same id) = %v, want ErrAlreadyRegistered", err)
	}
	if _, err := g.CreateBuffer(device, desc, hub.BufferID{}); !errors.Is(err, identity.ErrInvalidID) {
		t.Errorf("CreateBuffer(zero id) = %v, want ErrInvalidID", err)
	}
	if g.Hub().Buffers.Len() != 1 {
		t.Errorf("rejected creations left %d buffers", g.Hub().Buffers.Len())
	}

	// Client frees and reuses the slot; the server follows.
	if err := g.DestroyBuffer(bufIn); err != nil {
		t.Fatal(err)
	}
	_ = buffers.Free(bufRaw)
	reused := identity.FromRaw[hub.BufferTag](next(buffers))
	if _, err := g.CreateBuffer(device, desc, reused); err != nil {
		t.Errorf("CreateBuffer(reused slot) = %v", err)
	}
	if _, err := g.CreateBuffer(device, desc, bufIn); !errors.Is(err, identity.ErrAlreadyRegistered) {
		t.Errorf("CreateBuffer(retired id over live slot) = %v, want ErrAlreadyRegistered", err)
	}
}

func TestLocalModeRejectsSuppliedID(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	in := identity.FromRaw[hub.InstanceTag](identity.NewRawID(0, 1))
	if _, err := g.CreateInstance("x", in); !errors.Is(err, identity.ErrUnexpectedID) {
		t.Errorf("CreateInstance(in) = %v, want ErrUnexpectedID", err)
	}
	if g.Hub().Instances.Len() != 0 {
		t.Error("rejected instance was registered")
	}
}

func TestSurfaces(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	surface, err := g.RegisterSurface(hub.Surface{Label: "window", Format: gputypes.TextureFormatRGBA8Unorm, Width: 800, Height: 600}, hub.SurfaceID{})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.ResizeSurface(surface, 1024, 768); err != nil {
		t.Fatal(err)
	}
	s, _ := g.Hub().Surfaces.Get(surface)
	if s.Width != 1024 || s.Height != 768 {
		t.Errorf("surface size = %dx%d", s.Width, s.Height)
	}

	p, err := g.DeviceProvider(device, surface)
	if err != nil {
		t.Fatal(err)
	}
	if p.SurfaceFormat() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("SurfaceFormat() = %v", p.SurfaceFormat())
	}

	if err := g.DestroySurface(surface); err != nil {
		t.Fatal(err)
	}
	if err := g.DestroySurface(surface); !errors.Is(err, identity.ErrDoubleFree) {
		t.Errorf("second DestroySurface = %v, want ErrDoubleFree", err)
	}
}

func TestDeviceProvider(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	p, err := g.DeviceProvider(device, hub.SurfaceID{})
	if err != nil {
		t.Fatal(err)
	}
	if p.SurfaceFormat() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("default SurfaceFormat() = %v", p.SurfaceFormat())
	}
	if p.Device() == nil || p.Queue() == nil || p.Adapter() == nil {
		t.Error("provider returned nil component")
	}
	if _, ok := p.HalDevice().(hal.Device); !ok {
		t.Errorf("HalDevice() = %T, want hal.Device", p.HalDevice())
	}
	if _, ok := p.HalQueue().(hal.Queue); !ok {
		t.Errorf("HalQueue() = %T, want hal.Queue", p.HalQueue())
	}

	info := p.AdapterInfo()
	if info.Name != "Noop Adapter" || info.Type != gpucontext.AdapterTypeUnknown {
		t.Errorf("AdapterInfo() = %+v", info)
	}

	dev, ok := p.Device().(interface {
		Poll(bool)
		Destroy()
	})
	if !ok {
		t.Fatalf("Device() = %T, want Poll and Destroy", p.Device())
	}
	dev.Poll(true)
	dev.Destroy()
	if g.Hub().Devices.Contains(device) {
		t.Error("provider Destroy did not destroy the device")
	}
	if p.HalDevice() != nil || p.HalQueue() != nil {
		t.Error("provider still hands out HAL objects of a destroyed device")
	}
	if info := p.AdapterInfo(); info.Name != "" || info.Type != gpucontext.AdapterTypeUnknown {
		t.Errorf("AdapterInfo() after destroy = %+v", info)
	}
	if _, err := g.DeviceProvider(device, hub.SurfaceID{}); !errors.Is(err, identity.ErrStaleHandle) {
		t.Errorf("DeviceProvider(destroyed) = %v, want ErrStaleHandle", err)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	g := New(hub.New(hub.DefaultConfig()), &noop.API{})
	device := openDevice(t, g)
	createBuffer(t, g, device, 64)
	_, _ = g.RegisterSurface(hub.Surface{Label: "window"}, hub.SurfaceID{})
	_ = openDevice(t, g)

	if err := g.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if live := g.Hub().Live(); live != 0 {
		t.Errorf("Live() after Close = %d, want 0", live)
	}
}

func TestConcurrentBuffers(t *testing.T) {
	g := newTestGlobal(t, hub.DefaultConfig())
	device := openDevice(t, g)

	const (
		workers = 8
		rounds  = 100
	)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				id, err := g.CreateBuffer(device, &hal.BufferDescriptor{Size: 64, Usage: gputypes.BufferUsageCopyDst}, hub.BufferID{})
				if err != nil {
					t.Errorf("CreateBuffer: %v", err)
					return
				}
				if err := g.QueueWriteBuffer(device, id, 0, []byte{1, 2, 3, 4}); err != nil {
					t.Errorf("QueueWriteBuffer: %v", err)
					return
				}
				if err := g.DestroyBuffer(id); err != nil {
					t.Errorf("DestroyBuffer: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := g.Hub().Buffers.Len(); n != 0 {
		t.Errorf("Buffers.Len() = %d, want 0", n)
	}
}
