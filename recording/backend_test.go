package recording

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate/backend"
)

func TestBackendQueries(t *testing.T) {
	b := New(WithVersion("1.4.2"), WithGitCommitHash("abc123"), WithMaxTextureUnits(4))

	if v, err := b.Version(); err != nil || v != "1.4.2" {
		t.Errorf("Version() = %q, %v, want %q", v, err, "1.4.2")
	}
	info, err := b.Info()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if want := (backend.Info{Version: "1.4.2", GitCommitHash: "abc123"}); info != want {
		t.Errorf("Info() = %+v, want %+v", info, want)
	}
	if n, _ := b.MaxTextureUnits(); n != 4 {
		t.Errorf("MaxTextureUnits() = %d, want 4", n)
	}
	if got := b.Count(CmdVersion); got != 1 {
		t.Errorf("Count(Version) = %d, want 1", got)
	}
}

func TestBackendFailNext(t *testing.T) {
	b := New()
	boom := errors.New("boom")
	b.FailNext(CmdNewTexture, boom)

	if _, err := b.NewTexture(backend.TextureDescriptor{}); !errors.Is(err, boom) {
		t.Fatalf("NewTexture() error = %v, want boom", err)
	}
	if got := b.Count(CmdNewTexture); got != 0 {
		t.Errorf("Count(NewTexture) after failure = %d, want 0", got)
	}
	if _, err := b.NewTexture(backend.TextureDescriptor{}); err != nil {
		t.Errorf("NewTexture() after failure error = %v", err)
	}
	if got := b.Live(); got != 1 {
		t.Errorf("Live() = %d, want 1", got)
	}
}

func TestBackendCmdBufLifecycle(t *testing.T) {
	b := New()
	cb, err := b.NewCmdBuf()
	if err != nil {
		t.Fatalf("NewCmdBuf() error = %v", err)
	}

	if err := b.CmdBufDepthWrite(cb, true); err != nil {
		t.Fatalf("CmdBufDepthWrite() error = %v", err)
	}
	if err := b.CmdBufFinish(cb); err != nil {
		t.Fatalf("CmdBufFinish() error = %v", err)
	}
	if err := b.CmdBufDepthWrite(cb, false); !errors.Is(err, ErrFinished) {
		t.Errorf("CmdBufDepthWrite() after finish error = %v, want ErrFinished", err)
	}
	if err := b.DropCmdBuf(cb); err != nil {
		t.Fatalf("DropCmdBuf() error = %v", err)
	}
	if err := b.DropCmdBuf(cb); !errors.Is(err, ErrDoubleDrop) {
		t.Errorf("DropCmdBuf() twice error = %v, want ErrDoubleDrop", err)
	}
	if got := b.Drops(cb.Index); got != 2 {
		t.Errorf("Drops() = %d, want 2", got)
	}
}

func TestBackendUnitRange(t *testing.T) {
	b := New(WithMaxTextureUnits(2), WithMaxUniformBufferUnits(1))
	cb, _ := b.NewCmdBuf()
	tex, _ := b.NewTexture(backend.TextureDescriptor{})
	sh, _ := b.NewShader(backend.ShaderSources{})
	ub, _ := b.ShaderUniformBuffer(sh, "Matrices")

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"texture unit 1", func() error { return b.CmdBufBindTexture(cb, tex, 1) }, nil},
		{"texture unit 2", func() error { return b.CmdBufBindTexture(cb, tex, 2) }, ErrUnitRange},
		{"uniform buffer unit 0", func() error { return b.CmdBufBindUniformBuffer(cb, ub, 0) }, nil},
		{"uniform buffer unit 1", func() error { return b.CmdBufBindUniformBuffer(cb, ub, 1) }, ErrUnitRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if tt.want == nil && err != nil {
				t.Errorf("error = %v, want nil", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBackendRenderTargetsAttachments(t *testing.T) {
	b := New()
	rt, _ := b.NewRenderTargets(backend.RenderTargetsDescriptor{
		Size:            gputypes.NewExtent2D(64, 64),
		ColorFormats:    []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		DepthStencil:    gputypes.TextureFormatDepth24PlusStencil8,
		HasDepthStencil: true,
	})

	c0, err := b.ColorAttachment(rt, 0)
	if err != nil {
		t.Fatalf("ColorAttachment(0) error = %v", err)
	}
	again, _ := b.ColorAttachment(rt, 0)
	if c0 != again {
		t.Errorf("ColorAttachment(0) twice = %v, %v, want equal", c0, again)
	}
	if _, err := b.ColorAttachment(rt, 1); !errors.Is(err, ErrUnknownObject) {
		t.Errorf("ColorAttachment(1) error = %v, want ErrUnknownObject", err)
	}
	if _, err := b.DepthStencilAttachment(rt, 0); err != nil {
		t.Errorf("DepthStencilAttachment(0) error = %v", err)
	}
}

func TestBackendTexels(t *testing.T) {
	b := New()
	tex, _ := b.NewTexture(backend.TextureDescriptor{
		Dimension: gputypes.TextureDimension2D,
		Size:      gputypes.NewExtent2D(4, 4),
		Format:    gputypes.TextureFormatRGBA8Unorm,
	})
	inside := backend.TextureRegion{Size: gputypes.NewExtent2D(4, 4)}
	outside := backend.TextureRegion{Origin: gputypes.Origin3D{X: 2}, Size: gputypes.NewExtent2D(4, 4)}

	if err := b.SetTexels(tex, inside, make([]byte, 64)); err != nil {
		t.Errorf("SetTexels(inside) error = %v", err)
	}
	if err := b.ClearTexels(tex, outside, []byte{0, 0, 0, 0}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("ClearTexels(outside) error = %v, want ErrOutOfBounds", err)
	}
	if err := b.ResizeTexture(tex, gputypes.NewExtent2D(8, 8)); err != nil {
		t.Fatalf("ResizeTexture() error = %v", err)
	}
	if err := b.ClearTexels(tex, outside, []byte{0, 0, 0, 0}); err != nil {
		t.Errorf("ClearTexels(outside) after resize error = %v", err)
	}
}

func TestBackendSwapChain(t *testing.T) {
	b := New()
	sc, err := b.NewSwapChain(800, 600, gputypes.PresentModeFifo)
	if err != nil {
		t.Fatalf("NewSwapChain() error = %v", err)
	}
	rt1, _ := b.SwapChainRenderTargets(sc)
	rt2, _ := b.SwapChainRenderTargets(sc)
	if rt1 != rt2 {
		t.Errorf("SwapChainRenderTargets() twice = %v, %v, want equal", rt1, rt2)
	}
	if err := b.DropRenderTargets(rt1); !errors.Is(err, ErrNotOwned) {
		t.Errorf("DropRenderTargets(swap chain targets) error = %v, want ErrNotOwned", err)
	}
	if err := b.SwapChainPresent(sc); err != nil {
		t.Errorf("SwapChainPresent() error = %v", err)
	}
	if err := b.DropSwapChain(sc); err != nil {
		t.Fatalf("DropSwapChain() error = %v", err)
	}
	if err := b.SwapChainPresent(sc); !errors.Is(err, ErrUnknownObject) {
		t.Errorf("SwapChainPresent() after drop error = %v, want ErrUnknownObject", err)
	}
}

func TestRegisteredUnderRecordingName(t *testing.T) {
	b, err := backend.Open(backend.NameRecording)
	if err != nil {
		t.Fatalf("backend.Open(recording) error = %v", err)
	}
	if _, ok := b.(*Backend); !ok {
		t.Errorf("backend.Open(recording) = %T, want *Backend", b)
	}
}
