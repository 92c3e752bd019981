// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hub"
)

// ShaderModuleDescriptor describes a shader module. Exactly one of WGSL and
// SPIRV should be set; WGSL wins if both are.
type ShaderModuleDescriptor struct {
	Label string
	WGSL  string
	SPIRV []uint32
}

// CreateShaderModule creates a shader module on device. WGSL source is
// compiled to SPIR-V with naga first.
func (g *Global) CreateShaderModule(device hub.DeviceID, desc *ShaderModuleDescriptor, in hub.ShaderModuleID) (hub.ShaderModuleID, error) {
	if desc == nil {
		return hub.ShaderModuleID{}, ErrNilDescriptor
	}

	code := desc.SPIRV
	if desc.WGSL != "" {
		var err error
		code, err = compileWGSL(desc.WGSL)
		if err != nil {
			return hub.ShaderModuleID{}, errorf("create shader module "+desc.Label, err)
		}
	}
	if len(code) == 0 {
		return hub.ShaderModuleID{}, ErrEmptyShader
	}

	dev, err := g.hub.Devices.Get(device)
	if err != nil {
		return hub.ShaderModuleID{}, errorf("create shader module", err)
	}
	raw, err := dev.Raw.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: desc.Label,
		Source: hal.ShaderSource{
			SPIRV: code,
		},
	})
	if err != nil {
		return hub.ShaderModuleID{}, errorf("create shader module", err)
	}

	id, err := g.hub.ShaderModules.Assign(in, hub.ShaderModule{Device: device, Raw: raw, Label: desc.Label})
	if err != nil {
		dev.Raw.DestroyShaderModule(raw)
		return hub.ShaderModuleID{}, errorf("create shader module", err)
	}
	return id, nil
}

// DestroyShaderModule destroys module.
func (g *Global) DestroyShaderModule(module hub.ShaderModuleID) error {
	return release(g, g.hub.ShaderModules, module,
		func(v *hub.ShaderModule) hub.DeviceID { return v.Device },
		func(d hal.Device, v *hub.ShaderModule) { d.DestroyShaderModule(v.Raw) })
}

// compileWGSL compiles WGSL source to SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile wgsl: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile wgsl: spir-v length %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
