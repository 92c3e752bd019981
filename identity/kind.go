// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package identity

import (
	"fmt"
	"strings"
)

// Kind enumerates the resource kinds the runtime hands out handles for.
// The order is the hub declaration order, which is also the global lock
// order for operations that touch more than one kind.
type Kind uint8

// Resource kinds.
const (
	KindInstance Kind = iota
	KindAdapter
	KindDevice
	KindPipelineLayout
	KindBindGroupLayout
	KindBindGroup
	KindShaderModule
	KindCommandBuffer
	KindRenderPipeline
	KindComputePipeline
	KindRenderPass
	KindComputePass
	KindBuffer
	KindTexture
	KindTextureView
	KindSampler
	KindSurface

	// KindCount is the number of resource kinds.
	KindCount
)

var kindNames = [KindCount]string{
	KindInstance:        "instance",
	KindAdapter:         "adapter",
	KindDevice:          "device",
	KindPipelineLayout:  "pipeline_layout",
	KindBindGroupLayout: "bind_group_layout",
	KindBindGroup:       "bind_group",
	KindShaderModule:    "shader_module",
	KindCommandBuffer:   "command_buffer",
	KindRenderPipeline:  "render_pipeline",
	KindComputePipeline: "compute_pipeline",
	KindRenderPass:      "render_pass",
	KindComputePass:     "compute_pass",
	KindBuffer:          "buffer",
	KindTexture:         "texture",
	KindTextureView:     "texture_view",
	KindSampler:         "sampler",
	KindSurface:         "surface",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if k < KindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Kinds returns all resource kinds in declaration order.
func Kinds() []Kind {
	out := make([]Kind, KindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// ParseKind parses a kind name. Hyphens and case are ignored so that
// "bind-group-layout" and "BIND_GROUP_LAYOUT" both work.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for k, name := range kindNames {
		if name == norm {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("identity: unknown resource kind %q", s)
}

// MarshalText encodes the kind name.
func (k Kind) MarshalText() ([]byte, error) {
	if k >= KindCount {
		return nil, fmt.Errorf("identity: invalid kind %d", uint8(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
