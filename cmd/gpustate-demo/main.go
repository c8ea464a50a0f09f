// Command gpustate-demo renders a few frames through gpustate and reports
// how many state changes the cache elided.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/backend"
	"github.com/gogpu/gpustate/recording"
)

func main() {
	var (
		backendName  = flag.String("backend", "", "backend name (default: best registered)")
		frames       = flag.Int("frames", 3, "frames to render")
		textureUnits = flag.Uint("texture-units", 0, "cap on texture units (0: backend limit)")
		configPath   = flag.String("config", "", "TOML device configuration")
		verbose      = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		gpustate.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	var cfg gpustate.Config
	if *configPath != "" {
		var err error
		if cfg, err = gpustate.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *backendName != "" {
		cfg.Backend = *backendName
	}
	if *textureUnits > 0 {
		n := uint32(*textureUnits)
		cfg.MaxTextureUnits = &n
	}

	if err := run(cfg, *frames); err != nil {
		log.Fatal(err)
	}
}

// run opens the device, renders frames and reports the statistics. The
// device is closed on every return path.
func run(cfg gpustate.Config, frames int) (err error) {
	dev, err := gpustate.Open(cfg)
	if err != nil {
		return fmt.Errorf("open device (available: %v): %w", backend.Available(), err)
	}
	defer func() {
		if cerr := dev.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close device: %w", cerr)
		}
	}()

	s, err := newScene(dev)
	if err != nil {
		return fmt.Errorf("create scene: %w", err)
	}
	defer s.destroy()

	for i := range frames {
		if err := s.render(dev, i); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}

	report(dev)
	return nil
}

// scene holds the resources every frame draws with.
type scene struct {
	swapChain *gpustate.SwapChain
	shader    *gpustate.Shader
	quad      *gpustate.VertexArray
	textures  []*gpustate.Texture

	tint    backend.Uniform
	albedo  backend.ShaderTextureBindingPoint
	overlay backend.ShaderTextureBindingPoint
}

func newScene(dev *gpustate.Device) (*scene, error) {
	s := &scene{}
	var err error
	if s.swapChain, err = dev.NewSwapChain(800, 600, gputypes.PresentModeFifo); err != nil {
		return nil, err
	}
	if s.shader, err = dev.NewShader(backend.ShaderSources{
		Vertex:   "#version 330 core\nvoid main() { gl_Position = vec4(0.0); }",
		Fragment: "#version 330 core\nout vec4 color;\nvoid main() { color = vec4(1.0); }",
	}); err != nil {
		return nil, err
	}
	if s.quad, err = dev.NewVertexArray(backend.VertexArrayData{
		Vertices: make([]byte, 4*4*4),
		Indices:  []uint32{0, 1, 2, 2, 3, 0},
		Topology: gputypes.PrimitiveTopologyTriangleList,
	}); err != nil {
		return nil, err
	}
	for range 3 {
		tex, err := dev.NewTexture(backend.TextureDescriptor{
			Dimension: gputypes.TextureDimension2D,
			Size:      gputypes.Extent3D{Width: 64, Height: 64, DepthOrArrayLayers: 1},
			Format:    gputypes.TextureFormatRGBA8Unorm,
			Mipmaps:   1,
		})
		if err != nil {
			return nil, err
		}
		s.textures = append(s.textures, tex)
	}
	if s.tint, err = s.shader.Uniform("tint", backend.UniformVec4); err != nil {
		return nil, err
	}
	if s.albedo, err = s.shader.TextureBindingPoint("albedo"); err != nil {
		return nil, err
	}
	if s.overlay, err = s.shader.TextureBindingPoint("overlay"); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *scene) destroy() {
	for _, tex := range s.textures {
		tex.Destroy()
	}
	s.quad.Destroy()
	s.shader.Destroy()
	s.swapChain.Destroy()
}

// render draws one quad per texture, each in its own group, so the texture
// units are recycled between draws.
func (s *scene) render(dev *gpustate.Device, frame int) error {
	target, err := s.swapChain.RenderTargets()
	if err != nil {
		return err
	}
	layers, err := dev.NewLayers()
	if err != nil {
		return err
	}
	if err := layers.ClearColor(backend.ClearColorOf(gputypes.Color{R: 0.1, G: 0.1, B: 0.2, A: 1})); err != nil {
		return err
	}
	if err := layers.Blending(backend.Blending(gputypes.BlendStatePremultiplied())); err != nil {
		return err
	}

	rtl, err := layers.RenderTargets(target)
	if err != nil {
		return err
	}
	sl, err := rtl.Shader(s.shader)
	if err != nil {
		return err
	}
	for i, tex := range s.textures {
		overlay := s.textures[(i+frame)%len(s.textures)]
		err := sl.Group().Scope(func(g *gpustate.Group[*gpustate.ShaderLayer]) error {
			if _, err := g.Texture(tex, s.albedo); err != nil {
				return err
			}
			if _, err := g.Texture(overlay, s.overlay); err != nil {
				return err
			}
			if err := g.Layer().SetUniform(s.tint, make([]byte, 16)); err != nil {
				return err
			}
			return g.Layer().Draw(s.quad)
		})
		if err != nil {
			return err
		}
	}
	if err := sl.Done().Done().Finish(); err != nil {
		return err
	}
	return s.swapChain.Present()
}

func report(dev *gpustate.Device) {
	name, _ := dev.Name()
	version, _ := dev.Version()
	fmt.Printf("backend: %s %s (texture units: %d)\n", name, version, dev.TextureUnits())

	stats, err := dev.Stats()
	if err != nil {
		log.Fatalf("Stats: %v", err)
	}
	fmt.Printf("state changes: %d applied, %d elided\n", stats.Applied, stats.Elided)
	for kind, n := range stats.Tracked {
		if n > 0 {
			fmt.Printf("  %-26s %d live\n", kind, n)
		}
	}

	rec, ok := dev.Backend().(*recording.Backend)
	if !ok {
		return
	}
	fmt.Printf("commands: %d bind texture, %d draw, %d present\n",
		rec.Count(recording.CmdBindTexture),
		rec.Count(recording.CmdDrawVertexArray),
		rec.Count(recording.CmdPresent))
}
