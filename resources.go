package gpustate

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate/backend"
	"github.com/gogpu/gpustate/internal/cache"
)

// lifetime is the part of a resource wrapper shared with its cleanup. It
// must never point back at the wrapper, or the wrapper could not be
// collected.
type lifetime[H backend.Scarce[H]] struct {
	handle H
	kind   cache.Kind[H]
	cache  weak.Pointer[cache.Cache]
	log    *slog.Logger

	// owned is false for objects that belong to another resource, such as
	// the per-frame render targets of a swap chain. Releasing them only
	// releases their children.
	owned  bool
	parent interface{ destroyed() bool }

	mu       sync.Mutex
	children map[childKey]func(*cache.Cache) error

	once sync.Once
	dead atomic.Bool
}

type childKey struct {
	kind  string
	index backend.ScarceIndex
}

func newLifetime[H backend.Scarce[H]](d *Device, kind cache.Kind[H], h H, owned bool) *lifetime[H] {
	return &lifetime[H]{
		handle: h,
		kind:   kind,
		cache:  weak.Make(d.cache),
		log:    d.log(),
		owned:  owned,
	}
}

func (l *lifetime[H]) destroyed() bool {
	return l.dead.Load() || (l.parent != nil && l.parent.destroyed())
}

// alive returns the cache the resource lives in.
func (l *lifetime[H]) alive() (*cache.Cache, error) {
	if l.destroyed() {
		return nil, ErrDestroyed
	}
	c := l.cache.Value()
	if c == nil || c.Closed() {
		return nil, ErrDeviceClosed
	}
	return c, nil
}

// addChild registers an object that must be untracked together with the
// resource. Adding to a released resource untracks at once.
func (l *lifetime[H]) addChild(c *cache.Cache, key childKey, untrack func(*cache.Cache) error) error {
	l.mu.Lock()
	if !l.dead.Load() {
		if l.children == nil {
			l.children = make(map[childKey]func(*cache.Cache) error)
		}
		l.children[key] = untrack
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()
	return untrack(c)
}

// release untracks the children, then the resource itself. It runs once; a
// cache that is gone or closed has already dropped everything.
func (l *lifetime[H]) release() error {
	var err error
	l.once.Do(func() {
		l.mu.Lock()
		l.dead.Store(true)
		children := l.children
		l.children = nil
		l.mu.Unlock()

		c := l.cache.Value()
		if c == nil {
			return
		}
		var errs []error
		for _, untrack := range children {
			errs = append(errs, untrack(c))
		}
		if l.owned {
			errs = append(errs, cache.Untrack(c, l.kind, l.handle))
		} else {
			errs = append(errs, cache.Forget(c, l.kind, l.handle))
		}
		err = errors.Join(errs...)
	})
	return err
}

// collect is the cleanup of a wrapper that was never destroyed.
func (l *lifetime[H]) collect() {
	if l.destroyed() {
		return
	}
	l.log.Warn("gpustate: resource collected without Destroy",
		"kind", l.kind.Name(), "index", l.handle.ScarceIndex())
	if err := l.release(); err != nil {
		l.log.Warn("gpustate: releasing collected resource", "kind", l.kind.Name(), "err", err)
	}
}

// resource is embedded by every wrapper.
type resource[H backend.Scarce[H]] struct {
	life    *lifetime[H]
	cleanup runtime.Cleanup
	armed   bool
}

// adopt tracks h and binds its lifetime to owner. If h cannot be tracked it
// is dropped at once.
func adopt[T any, H backend.Scarce[H]](d *Device, owner *T, r *resource[H], kind cache.Kind[H], h H, drop func(H) error) error {
	if err := cache.Track(d.cache, kind, h); err != nil {
		if dropErr := drop(h); dropErr != nil {
			d.log().Warn("gpustate: dropping untracked resource", "kind", kind.Name(), "err", dropErr)
		}
		if errors.Is(err, cache.ErrClosed) {
			return ErrDeviceClosed
		}
		return err
	}
	r.life = newLifetime(d, kind, h, true)
	r.cleanup = runtime.AddCleanup(owner, (*lifetime[H]).collect, r.life)
	r.armed = true
	d.log().Debug("gpustate: resource created", "kind", kind.Name(), "index", h.ScarceIndex())
	return nil
}

// Handle returns the backend handle. It stays valid until Destroy.
func (r *resource[H]) Handle() H { return r.life.handle }

// Destroy releases the device object. Destroying after the device was
// closed, or destroying twice, does nothing.
func (r *resource[H]) Destroy() {
	if r.armed {
		r.cleanup.Stop()
	}
	if err := r.life.release(); err != nil {
		r.life.log.Warn("gpustate: destroy", "kind", r.life.kind.Name(), "err", err)
	}
}

// Destroyed reports whether Destroy was called on the resource, or on the
// resource it belongs to.
func (r *resource[H]) Destroyed() bool { return r.life.destroyed() }

func (r *resource[H]) alive() (*cache.Cache, error) { return r.life.alive() }

// trackChild tracks h as an object owned by parent.
func trackChild[P backend.Scarce[P], C backend.Scarce[C]](c *cache.Cache, parent *lifetime[P], kind cache.Kind[C], h C) error {
	if err := cache.Track(c, kind, h); err != nil {
		if errors.Is(err, cache.ErrClosed) {
			return ErrDeviceClosed
		}
		return err
	}
	key := childKey{kind: kind.Name(), index: h.ScarceIndex()}
	return parent.addChild(c, key, func(c *cache.Cache) error {
		return cache.Untrack(c, kind, h)
	})
}

// VertexArray is vertex data ready to be drawn.
type VertexArray struct {
	resource[backend.VertexArray]
	b backend.Backend
}

// Update replaces the vertex data.
func (va *VertexArray) Update(data backend.VertexArrayData) error {
	if _, err := va.alive(); err != nil {
		return err
	}
	if err := va.b.UpdateVertexArray(va.Handle(), data); err != nil {
		return fmt.Errorf("gpustate: update vertex array: %w", err)
	}
	return nil
}

// RenderTargets is a set of color and depth/stencil attachments to render
// into.
type RenderTargets struct {
	resource[backend.RenderTargets]
	b backend.Backend
}

// ColorAttachment returns the color attachment at index. It is released
// with the render targets.
func (rt *RenderTargets) ColorAttachment(index backend.AttachmentIndex) (backend.ColorAttachment, error) {
	c, err := rt.alive()
	if err != nil {
		return backend.ColorAttachment{}, err
	}
	h, err := rt.b.ColorAttachment(rt.Handle(), index)
	if err != nil {
		return backend.ColorAttachment{}, fmt.Errorf("gpustate: color attachment %d: %w", index, err)
	}
	if err := trackChild(c, rt.life, cache.ColorAttachments, h); err != nil {
		return backend.ColorAttachment{}, err
	}
	return h, nil
}

// DepthStencilAttachment returns the depth/stencil attachment at index. It
// is released with the render targets.
func (rt *RenderTargets) DepthStencilAttachment(index backend.AttachmentIndex) (backend.DepthStencilAttachment, error) {
	c, err := rt.alive()
	if err != nil {
		return backend.DepthStencilAttachment{}, err
	}
	h, err := rt.b.DepthStencilAttachment(rt.Handle(), index)
	if err != nil {
		return backend.DepthStencilAttachment{}, fmt.Errorf("gpustate: depth/stencil attachment %d: %w", index, err)
	}
	if err := trackChild(c, rt.life, cache.DepthStencilAttachments, h); err != nil {
		return backend.DepthStencilAttachment{}, err
	}
	return h, nil
}

// Shader is a linked shader program.
type Shader struct {
	resource[backend.Shader]
	b backend.Backend
}

// Uniform looks up a uniform by name. It is released with the shader.
func (sh *Shader) Uniform(name string, ty backend.UniformType) (backend.Uniform, error) {
	c, err := sh.alive()
	if err != nil {
		return backend.Uniform{}, err
	}
	h, err := sh.b.ShaderUniform(sh.Handle(), name, ty)
	if err != nil {
		return backend.Uniform{}, fmt.Errorf("gpustate: uniform %q (%s): %w", name, ty, err)
	}
	if err := trackChild(c, sh.life, cache.Uniforms, h); err != nil {
		return backend.Uniform{}, err
	}
	return h, nil
}

// UniformBuffer looks up a uniform buffer by name. It is released with the
// shader.
func (sh *Shader) UniformBuffer(name string) (backend.UniformBuffer, error) {
	c, err := sh.alive()
	if err != nil {
		return backend.UniformBuffer{}, err
	}
	h, err := sh.b.ShaderUniformBuffer(sh.Handle(), name)
	if err != nil {
		return backend.UniformBuffer{}, fmt.Errorf("gpustate: uniform buffer %q: %w", name, err)
	}
	if err := trackChild(c, sh.life, cache.UniformBuffers, h); err != nil {
		return backend.UniformBuffer{}, err
	}
	return h, nil
}

// TextureBindingPoint looks up the binding point of a sampler by name.
func (sh *Shader) TextureBindingPoint(name string) (backend.ShaderTextureBindingPoint, error) {
	if _, err := sh.alive(); err != nil {
		return backend.ShaderTextureBindingPoint{}, err
	}
	h, err := sh.b.ShaderTextureBindingPoint(sh.Handle(), name)
	if err != nil {
		return backend.ShaderTextureBindingPoint{}, fmt.Errorf("gpustate: texture binding point %q: %w", name, err)
	}
	return h, nil
}

// UniformBufferBindingPoint looks up the binding point of a uniform block
// by name.
func (sh *Shader) UniformBufferBindingPoint(name string) (backend.ShaderUniformBufferBindingPoint, error) {
	if _, err := sh.alive(); err != nil {
		return backend.ShaderUniformBufferBindingPoint{}, err
	}
	h, err := sh.b.ShaderUniformBufferBindingPoint(sh.Handle(), name)
	if err != nil {
		return backend.ShaderUniformBufferBindingPoint{}, fmt.Errorf("gpustate: uniform buffer binding point %q: %w", name, err)
	}
	return h, nil
}

// Texture is an image the shaders sample from.
type Texture struct {
	resource[backend.Texture]
	b backend.Backend

	mu   sync.Mutex
	desc backend.TextureDescriptor
}

// Descriptor returns the descriptor the texture was created with, with its
// current size.
func (t *Texture) Descriptor() backend.TextureDescriptor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.desc
}

// Size returns the current texture size.
func (t *Texture) Size() gputypes.Extent3D { return t.Descriptor().Size }

// Resize reallocates the texture storage. Texel contents are undefined
// afterwards.
func (t *Texture) Resize(size gputypes.Extent3D) error {
	if _, err := t.alive(); err != nil {
		return err
	}
	if err := t.b.ResizeTexture(t.Handle(), size); err != nil {
		return fmt.Errorf("gpustate: resize texture to %dx%dx%d: %w",
			size.Width, size.Height, size.DepthOrArrayLayers, err)
	}
	t.mu.Lock()
	t.desc.Size = size
	t.mu.Unlock()
	return nil
}

// SetTexels uploads texels into region.
func (t *Texture) SetTexels(region backend.TextureRegion, texels []byte) error {
	if _, err := t.alive(); err != nil {
		return err
	}
	if err := t.b.SetTexels(t.Handle(), region, texels); err != nil {
		return fmt.Errorf("gpustate: set texels: %w", err)
	}
	return nil
}

// ClearTexels fills region with value, one texel worth of bytes.
func (t *Texture) ClearTexels(region backend.TextureRegion, value []byte) error {
	if _, err := t.alive(); err != nil {
		return err
	}
	if err := t.b.ClearTexels(t.Handle(), region, value); err != nil {
		return fmt.Errorf("gpustate: clear texels: %w", err)
	}
	return nil
}

// SwapChain is a presentable surface.
type SwapChain struct {
	resource[backend.SwapChain]
	b    backend.Backend
	mode gputypes.PresentMode

	mu     sync.Mutex
	frames map[backend.ScarceIndex]*lifetime[backend.RenderTargets]
}

// Mode returns the present mode the swap chain was created with.
func (sc *SwapChain) Mode() gputypes.PresentMode { return sc.mode }

// RenderTargets returns the render targets of the current frame. They
// belong to the swap chain: Destroy on them only releases their
// attachments, and destroying the swap chain releases them too. Calls that
// return the same device render targets share one lifetime until it is
// destroyed.
func (sc *SwapChain) RenderTargets() (*RenderTargets, error) {
	c, err := sc.alive()
	if err != nil {
		return nil, err
	}
	h, err := sc.b.SwapChainRenderTargets(sc.Handle())
	if err != nil {
		return nil, fmt.Errorf("gpustate: swap chain render targets: %w", err)
	}

	idx := h.ScarceIndex()
	sc.mu.Lock()
	life, ok := sc.frames[idx]
	if !ok || life.destroyed() {
		life = &lifetime[backend.RenderTargets]{
			handle: h,
			kind:   cache.RenderTargets,
			cache:  weak.Make(c),
			log:    sc.life.log,
			parent: sc.life,
		}
		if sc.frames == nil {
			sc.frames = make(map[backend.ScarceIndex]*lifetime[backend.RenderTargets])
		}
		sc.frames[idx] = life
	}
	sc.mu.Unlock()

	key := childKey{kind: cache.RenderTargets.Name(), index: idx}
	if err := sc.life.addChild(c, key, func(*cache.Cache) error { return life.release() }); err != nil {
		return nil, err
	}
	if life.destroyed() {
		return nil, ErrDestroyed
	}
	return &RenderTargets{resource: resource[backend.RenderTargets]{life: life}, b: sc.b}, nil
}

// Present shows the current frame.
func (sc *SwapChain) Present() error {
	if _, err := sc.alive(); err != nil {
		return err
	}
	if err := sc.b.SwapChainPresent(sc.Handle()); err != nil {
		return fmt.Errorf("gpustate: present: %w", err)
	}
	return nil
}
