// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// SpriteInstanceStride is the size in bytes of one sprite instance as read
// by the sprite shader: rect, uv rect and (layer, alpha, depth, unused),
// each a vec4<f32>.
const SpriteInstanceStride = 12 * 4

// SpriteShaderWGSL draws instanced sprites from an atlas texture array.
// Entry points are vs_main and fs_main.
//
//go:embed shaders/sprite.wgsl
var SpriteShaderWGSL string

// CompileSpriteShader compiles the sprite shader to SPIR-V words.
func CompileSpriteShader() ([]uint32, error) {
	return compileSPIRV(SpriteShaderWGSL)
}

// compileSPIRV compiles WGSL to little-endian SPIR-V words.
func compileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("native: compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("native: SPIR-V length %d is not a multiple of 4", len(spirvBytes))
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// CreateSpriteShaderModule compiles the sprite shader and creates a hal
// shader module on the bridged device. The caller destroys the module with
// the hal device.
func (d *Device) CreateSpriteShaderModule() (hal.ShaderModule, error) {
	words, err := CompileSpriteShader()
	if err != nil {
		return nil, err
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "atlas_sprite",
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create sprite shader module: %w", err)
	}
	return module, nil
}

// DestroyShaderModule destroys a module created by CreateSpriteShaderModule.
func (d *Device) DestroyShaderModule(module hal.ShaderModule) {
	if module != nil {
		d.device.DestroyShaderModule(module)
	}
}
