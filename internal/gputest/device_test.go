package gputest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/atlas/gpucore"
)

func TestDevice_BufferWrites(t *testing.T) {
	d := NewDevice(gpucore.DefaultLimits())
	id, err := d.CreateBuffer(16, gpucore.BufferUsageVertex, "vb")
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	d.WriteBuffer(id, 4, []byte{1, 2, 3, 4})

	if got := d.Buffer(id).Data[4:8]; !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("buffer content = %v", got)
	}
	if len(d.Writes) != 1 || d.Writes[0].Offset != 4 || d.Writes[0].Size != 4 {
		t.Errorf("Writes = %+v", d.Writes)
	}

	d.DestroyBuffer(id)
	if d.LiveBuffers() != 0 {
		t.Errorf("LiveBuffers() = %d after destroy", d.LiveBuffers())
	}
}

func TestDevice_FailureInjection(t *testing.T) {
	d := NewDevice(gpucore.DefaultLimits())
	d.FailBuffers = true
	d.FailTextures = true

	if _, err := d.CreateBuffer(4, gpucore.BufferUsageVertex, ""); !errors.Is(err, ErrInjected) {
		t.Errorf("CreateBuffer err = %v, want ErrInjected", err)
	}
	if _, err := d.CreateTextureArray(4, 4, 1, gpucore.TextureFormatR8Unorm, ""); !errors.Is(err, ErrInjected) {
		t.Errorf("CreateTextureArray err = %v, want ErrInjected", err)
	}
}

func TestDevice_TextureWriteAndCopy(t *testing.T) {
	d := NewDevice(gpucore.DefaultLimits())
	src, _ := d.CreateTextureArray(4, 4, 1, gpucore.TextureFormatR8Unorm, "src")
	dst, _ := d.CreateTextureArray(4, 4, 2, gpucore.TextureFormatR8Unorm, "dst")

	region := gpucore.TextureRegion{X: 1, Y: 1, Width: 2, Height: 2}
	d.WriteTexture(src, region, []byte{1, 2, 3, 4})

	if err := d.CopyTexture(src, dst, region, gpucore.Origin{X: 2, Y: 2, Layer: 1}); err != nil {
		t.Fatalf("CopyTexture: %v", err)
	}
	got := d.ReadTexture(dst, gpucore.TextureRegion{X: 2, Y: 2, Width: 2, Height: 2, Layer: 1})
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("copied pixels = %v", got)
	}
	if d.TextureWrites != 1 || d.Copies != 1 {
		t.Errorf("TextureWrites=%d Copies=%d, want 1 and 1", d.TextureWrites, d.Copies)
	}
}

func TestDevice_InvalidWritePanics(t *testing.T) {
	d := NewDevice(gpucore.DefaultLimits())
	buf, _ := d.CreateBuffer(4, gpucore.BufferUsageVertex, "vb")
	tex, _ := d.CreateTextureArray(4, 4, 1, gpucore.TextureFormatR8Unorm, "tex")

	tests := []struct {
		name  string
		write func()
	}{
		{"buffer past end", func() { d.WriteBuffer(buf, 2, []byte{1, 2, 3}) }},
		{"unknown buffer", func() { d.WriteBuffer(buf+100, 0, []byte{1}) }},
		{"texture out of bounds", func() { d.WriteTexture(tex, gpucore.TextureRegion{X: 4, Width: 1, Height: 1}, []byte{1}) }},
		{"texture data short", func() { d.WriteTexture(tex, gpucore.TextureRegion{Width: 2, Height: 2}, []byte{1}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("invalid write did not panic")
				}
			}()
			tt.write()
		})
	}
	if len(d.Writes) != 0 || d.TextureWrites != 0 {
		t.Errorf("invalid writes were recorded: %d buffer, %d texture", len(d.Writes), d.TextureWrites)
	}
}
