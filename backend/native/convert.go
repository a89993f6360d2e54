// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"github.com/gogpu/atlas/gpucore"
	"github.com/gogpu/gputypes"
)

// convertBufferUsage maps gpucore usage flags onto gputypes flags.
func convertBufferUsage(usage gpucore.BufferUsage) gputypes.BufferUsage {
	var out gputypes.BufferUsage
	if usage&gpucore.BufferUsageCopySrc != 0 {
		out |= gputypes.BufferUsageCopySrc
	}
	if usage&gpucore.BufferUsageCopyDst != 0 {
		out |= gputypes.BufferUsageCopyDst
	}
	if usage&gpucore.BufferUsageIndex != 0 {
		out |= gputypes.BufferUsageIndex
	}
	if usage&gpucore.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if usage&gpucore.BufferUsageStorage != 0 {
		out |= gputypes.BufferUsageStorage
	}
	return out
}

// convertTextureFormat maps a gpucore format onto gputypes.
func convertTextureFormat(format gpucore.TextureFormat) (gputypes.TextureFormat, bool) {
	switch format {
	case gpucore.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, true
	case gpucore.TextureFormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8Unorm, true
	case gpucore.TextureFormatR8Unorm:
		return gputypes.TextureFormatR8Unorm, true
	default:
		return 0, false
	}
}

// convertLimits extracts the limits the atlas sizes itself against.
func convertLimits(lim gputypes.Limits) gpucore.Limits {
	return gpucore.Limits{
		MaxTextureDimension2D: int(lim.MaxTextureDimension2D),
		MaxTextureArrayLayers: int(lim.MaxTextureArrayLayers),
		MaxBufferSize:         lim.MaxBufferSize,
	}
}
