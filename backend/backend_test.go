package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/atlas/gpucore"
)

func TestSoftwareBackendName(t *testing.T) {
	b := NewSoftwareBackend(gpucore.DefaultLimits())
	if b.Name() != "software" {
		t.Errorf("Name() = %q, want %q", b.Name(), "software")
	}
}

func TestSoftwareBackendClose(t *testing.T) {
	b := NewSoftwareBackend(gpucore.DefaultLimits())
	if _, err := b.CreateBuffer(64, gpucore.BufferUsageVertex, "vb"); err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	if _, err := b.CreateTextureArray(16, 16, 1, gpucore.TextureFormatRGBA8Unorm, "tex"); err != nil {
		t.Fatalf("CreateTextureArray() error = %v", err)
	}
	b.Close()
	if b.LiveBuffers() != 0 || b.LiveTextures() != 0 {
		t.Errorf("Close() left %d buffers, %d textures", b.LiveBuffers(), b.LiveTextures())
	}
}

// --- Registry Tests ---

type fakeBackend struct {
	*SoftwareBackend
	name string
}

func (f *fakeBackend) Name() string { return f.name }

func TestRegistry_SoftwareRegistered(t *testing.T) {
	if !IsRegistered(BackendSoftware) {
		t.Fatal("software backend not registered by init")
	}
	if !slices.Contains(Available(), BackendSoftware) {
		t.Errorf("Available() = %v, missing software", Available())
	}

	b, err := Open(BackendSoftware)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()
	if b.Name() != BackendSoftware {
		t.Errorf("Name() = %q", b.Name())
	}
}

func TestRegistry_OpenUnknown(t *testing.T) {
	_, err := Open("missing")
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(missing) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistry_AvailableSorted(t *testing.T) {
	Register("zz-test", func() (Backend, error) { return nil, errors.New("unused") })
	Register("aa-test", func() (Backend, error) { return nil, errors.New("unused") })
	defer Unregister("zz-test")
	defer Unregister("aa-test")

	names := Available()
	if !slices.IsSorted(names) {
		t.Errorf("Available() = %v, want sorted", names)
	}
}

func TestRegistry_DefaultPriority(t *testing.T) {
	Register(BackendNoop, func() (Backend, error) {
		return &fakeBackend{SoftwareBackend: NewSoftwareBackend(gpucore.DefaultLimits()), name: BackendNoop}, nil
	})
	defer Unregister(BackendNoop)

	b, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	defer b.Close()
	if b.Name() != BackendNoop {
		t.Errorf("Default() = %q, want %q", b.Name(), BackendNoop)
	}
}

func TestRegistry_DefaultFallsBack(t *testing.T) {
	errBroken := errors.New("broken")
	Register(BackendNoop, func() (Backend, error) { return nil, errBroken })
	defer Unregister(BackendNoop)

	b, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	defer b.Close()
	if b.Name() != BackendSoftware {
		t.Errorf("Default() = %q, want fallback to %q", b.Name(), BackendSoftware)
	}
}

func TestRegistry_DefaultNothingWorks(t *testing.T) {
	saved := Available()
	factories := make(map[string]Factory, len(saved))
	registryMu.RLock()
	for _, name := range saved {
		factories[name] = backends[name]
	}
	registryMu.RUnlock()
	for _, name := range saved {
		Unregister(name)
	}
	defer func() {
		for name, f := range factories {
			Register(name, f)
		}
	}()

	if _, err := Default(); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Default() with empty registry error = %v", err)
	}

	errBroken := errors.New("broken")
	Register("broken", func() (Backend, error) { return nil, errBroken })
	defer Unregister("broken")
	_, err := Default()
	if !errors.Is(err, ErrBackendNotAvailable) || !errors.Is(err, errBroken) {
		t.Errorf("Default() error = %v, want both sentinel and cause", err)
	}
}

func TestSoftwareBackend_InvalidWriteDropped(t *testing.T) {
	b := NewSoftwareBackend(gpucore.DefaultLimits())
	defer b.Close()
	id, err := b.CreateBuffer(4, gpucore.BufferUsageVertex, "vb")
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}

	b.WriteBuffer(id, 2, []byte{1, 2, 3, 4})
	b.WriteBuffer(id+100, 0, []byte{1})
	b.WriteTexture(99, gpucore.TextureRegion{Width: 1, Height: 1}, []byte{1})

	for i, v := range b.Buffer(id).Data {
		if v != 0 {
			t.Errorf("byte %d = %d after dropped write", i, v)
		}
	}
}
