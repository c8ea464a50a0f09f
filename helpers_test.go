package gpustate

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate/backend"
	"github.com/gogpu/gpustate/recording"
)

var (
	testTextureDesc = backend.TextureDescriptor{
		Label:     "test",
		Dimension: gputypes.TextureDimension2D,
		Size:      gputypes.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1},
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Mipmaps:   1,
	}

	testRenderTargetsDesc = backend.RenderTargetsDescriptor{
		Size:            gputypes.NewExtent2D(64, 64),
		ColorFormats:    []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		DepthStencil:    gputypes.TextureFormatDepth24PlusStencil8,
		HasDepthStencil: true,
	}

	testVertexData = backend.VertexArrayData{
		Vertices: make([]byte, 36),
		Indices:  []uint32{0, 1, 2},
		Topology: gputypes.PrimitiveTopologyTriangleList,
	}

	testSources = backend.ShaderSources{
		Vertex:   "void main() {}",
		Fragment: "void main() {}",
	}
)

// newTestDevice opens a device on rec and closes it when the test ends.
func newTestDevice(t *testing.T, rec *recording.Backend, opts ...DeviceOption) *Device {
	t.Helper()
	d, err := NewDevice(rec, opts...)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func newTestTexture(t *testing.T, d *Device) *Texture {
	t.Helper()
	tex, err := d.NewTexture(testTextureDesc)
	if err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	return tex
}

func newTestShader(t *testing.T, d *Device) *Shader {
	t.Helper()
	sh, err := d.NewShader(testSources)
	if err != nil {
		t.Fatalf("NewShader() error = %v", err)
	}
	return sh
}

func newTestRenderTargets(t *testing.T, d *Device) *RenderTargets {
	t.Helper()
	rt, err := d.NewRenderTargets(testRenderTargetsDesc)
	if err != nil {
		t.Fatalf("NewRenderTargets() error = %v", err)
	}
	return rt
}

func newTestVertexArray(t *testing.T, d *Device) *VertexArray {
	t.Helper()
	va, err := d.NewVertexArray(testVertexData)
	if err != nil {
		t.Fatalf("NewVertexArray() error = %v", err)
	}
	return va
}

// mustPanic fails the test unless fn panics.
func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}
