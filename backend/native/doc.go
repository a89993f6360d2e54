// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements gpucore.Device on top of gogpu/wgpu HAL.
//
// Buffers and texture arrays map one-to-one onto hal resources. Writes go
// through the queue; a failed write is logged, since the gpucore write
// calls have no error return. Texture copies are rare (atlas growth and
// migration) and run synchronously on a dedicated command buffer.
//
// A Device either wraps a hal.Device/hal.Queue pair directly with
// [NewDevice] or borrows them from a host application with [FromProvider].
// In both cases the hal device itself belongs to the caller.
//
// Logging goes through [SetLogger]; the package is silent by default.
package native
