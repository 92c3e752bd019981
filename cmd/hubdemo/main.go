// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command hubdemo exercises the resource hub: handle reuse, concurrent
// churn, a compute submission and, with -split, identities allocated by a
// separate client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/gogpu/hub"
	"github.com/gogpu/hub/identity"
	"github.com/gogpu/hub/native"
)

func main() {
	var (
		configPath = flag.String("config", "", "hub config file (.yaml, .yml or .json)")
		backend    = flag.String("backend", "noop", "HAL backend: noop or vulkan")
		buffers    = flag.Int("buffers", 1000, "buffers created and destroyed per worker")
		workers    = flag.Int("workers", 8, "concurrent workers")
		split      = flag.Bool("split", false, "bind identities allocated by a client")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		hub.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	cfg, err := loadConfig(*configPath, *split)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()
	cfg.MeterProvider = provider

	if err := hub.Init(cfg); err != nil {
		log.Fatalf("Failed to init hub: %v", err)
	}

	be, err := selectBackend(*backend)
	if err != nil {
		log.Fatalf("Failed to select backend: %v", err)
	}

	var c *client
	if *split {
		c = newClient()
	}

	g := native.New(hub.Global(), be)
	d := &demo{g: g, c: c}

	device, err := d.openDevice()
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"slot reuse", func() error { return d.slotReuse(device) }},
		{"concurrent churn", func() error { return d.churn(device, *workers, *buffers) }},
		{"compute", func() error { return d.compute(device) }},
	}
	for _, s := range steps {
		start := time.Now()
		if err := s.run(); err != nil {
			log.Printf("%s: %v", s.name, err)
			continue
		}
		log.Printf("%s: ok (%v)", s.name, time.Since(start).Round(time.Microsecond))
	}

	fmt.Println(renderStats(hub.Global()))

	if err := g.Close(); err != nil {
		log.Printf("Close: %v", err)
	}
	fmt.Println(renderCounters(reader))

	if err := hub.Teardown(); err != nil {
		log.Fatalf("Failed to tear down hub: %v", err)
	}
}

func loadConfig(path string, split bool) (hub.Config, error) {
	switch {
	case path != "":
		return hub.LoadConfig(path)
	case split:
		return hub.SplitConfig(), nil
	default:
		return hub.DefaultConfig(), nil
	}
}

func selectBackend(name string) (native.Backend, error) {
	switch name {
	case "noop":
		return &noop.API{}, nil
	case "vulkan":
		return native.DefaultBackend()
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

type demo struct {
	g *native.Global
	c *client
}

func (d *demo) openDevice() (hub.DeviceID, error) {
	inst, err := d.g.CreateInstance("hubdemo", nextID[hub.InstanceTag](d.c))
	if err != nil {
		return hub.DeviceID{}, err
	}
	adapter, err := d.g.RequestAdapter(inst, nextID[hub.AdapterTag](d.c))
	if err != nil {
		return hub.DeviceID{}, err
	}
	return d.g.RequestDevice(adapter, &native.DeviceDescriptor{Label: "hubdemo"}, nextID[hub.DeviceTag](d.c))
}

func (d *demo) createBuffer(device hub.DeviceID, size uint64) (hub.BufferID, error) {
	return d.g.CreateBuffer(device, &hal.BufferDescriptor{
		Label: "hubdemo_buffer",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	}, nextID[hub.BufferTag](d.c))
}

func (d *demo) destroyBuffer(id hub.BufferID) error {
	if err := d.g.DestroyBuffer(id); err != nil {
		return err
	}
	retire(d.c, id)
	return nil
}

// slotReuse frees a buffer, creates another in the same slot and shows the
// old handle is rejected.
func (d *demo) slotReuse(device hub.DeviceID) error {
	old, err := d.createBuffer(device, 256)
	if err != nil {
		return err
	}
	if err := d.destroyBuffer(old); err != nil {
		return err
	}
	reused, err := d.createBuffer(device, 512)
	if err != nil {
		return err
	}
	defer func() { _ = d.destroyBuffer(reused) }()

	log.Printf("slot reuse: %v freed, %v now holds the slot", old, reused)

	err = d.g.QueueWriteBuffer(device, old, 0, []byte{1, 2, 3, 4})
	if !errors.Is(err, identity.ErrStaleHandle) {
		return fmt.Errorf("write through %v: got %v, want stale handle", old, err)
	}
	log.Printf("slot reuse: write through %v rejected: %v", old, err)

	err = d.g.DestroyBuffer(old)
	if !errors.Is(err, identity.ErrStaleHandle) {
		return fmt.Errorf("destroy %v: got %v, want stale handle", old, err)
	}
	return nil
}

// churn creates, writes and destroys buffers from several goroutines.
func (d *demo) churn(device hub.DeviceID, workers, perWorker int) error {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.churnWorker(device, perWorker); err != nil {
				mu.Lock()
				if first == nil {
					first = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return first
}

func (d *demo) churnWorker(device hub.DeviceID, n int) error {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	for i := 0; i < n; i++ {
		id, err := d.createBuffer(device, 64)
		if err != nil {
			return err
		}
		if err := d.g.QueueWriteBuffer(device, id, 0, payload); err != nil {
			return err
		}
		if err := d.destroyBuffer(id); err != nil {
			return err
		}
	}
	return nil
}

const doubleShader = `
@group(0) @binding(0) var<storage, read_write> data: array<u32, 64>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] * 2u;
}
`

// compute records one dispatch and submits it. Everything it creates is
// released by destroying the device at Close.
func (d *demo) compute(device hub.DeviceID) error {
	buf, err := d.createBuffer(device, 64*4)
	if err != nil {
		return err
	}
	module, err := d.g.CreateShaderModule(device, &native.ShaderModuleDescriptor{
		Label: "double",
		WGSL:  doubleShader,
	}, nextID[hub.ShaderModuleTag](d.c))
	if err != nil {
		return err
	}
	bgl, err := d.g.CreateBindGroupLayout(device, "double", []gputypes.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
	}}, nextID[hub.BindGroupLayoutTag](d.c))
	if err != nil {
		return err
	}
	pl, err := d.g.CreatePipelineLayout(device, "double", []hub.BindGroupLayoutID{bgl}, nextID[hub.PipelineLayoutTag](d.c))
	if err != nil {
		return err
	}
	pipeline, err := d.g.CreateComputePipeline(device, &native.ComputePipelineDescriptor{
		Label:      "double",
		Layout:     pl,
		Module:     module,
		EntryPoint: "main",
	}, nextID[hub.ComputePipelineTag](d.c))
	if err != nil {
		return err
	}
	group, err := d.g.CreateBindGroup(device, &native.BindGroupDescriptor{
		Label:   "double",
		Layout:  bgl,
		Entries: []native.BufferBindingEntry{{Binding: 0, Buffer: buf}},
	}, nextID[hub.BindGroupTag](d.c))
	if err != nil {
		return err
	}

	cmd, err := d.g.CreateCommandEncoder(device, "double", nextID[hub.CommandBufferTag](d.c))
	if err != nil {
		return err
	}
	pass, err := d.g.BeginComputePass(cmd, "double", nextID[hub.ComputePassTag](d.c))
	if err != nil {
		return err
	}
	if err := d.g.ComputePassSetPipeline(pass, pipeline); err != nil {
		return err
	}
	if err := d.g.ComputePassSetBindGroup(pass, 0, group); err != nil {
		return err
	}
	if err := d.g.ComputePassDispatch(pass, 1, 1, 1); err != nil {
		return err
	}
	if err := d.g.EndComputePass(pass); err != nil {
		return err
	}
	retire(d.c, pass)
	if err := d.g.FinishCommandEncoder(cmd); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.g.QueueSubmit(ctx, device, []hub.CommandBufferID{cmd}); err != nil {
		return err
	}
	retire(d.c, cmd)
	return nil
}
