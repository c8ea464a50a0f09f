package cache

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/gpustate/backend"
)

// trackedSet is the type-erased view of a tracked used by Close and Stats.
type trackedSet interface {
	name() string
	len() int
	dropAll() []error
}

// tracked maps scarce indices to the duplicate handle the cache owns.
type tracked[H backend.Scarce[H]] struct {
	kind  string
	items map[backend.ScarceIndex]H
	drop  func(H) error // nil for objects owned by another resource
}

func newTracked[H backend.Scarce[H]](kind string, drop func(H) error) tracked[H] {
	return tracked[H]{
		kind:  kind,
		items: make(map[backend.ScarceIndex]H),
		drop:  drop,
	}
}

func (t *tracked[H]) name() string { return t.kind }
func (t *tracked[H]) len() int     { return len(t.items) }

func (t *tracked[H]) track(h H) {
	t.items[h.ScarceIndex()] = h.Share()
}

// untrack removes h and drops the device object. It reports false without
// dropping anything if h was not tracked.
func (t *tracked[H]) untrack(h H) (bool, error) {
	idx := h.ScarceIndex()
	held, ok := t.items[idx]
	if !ok {
		return false, nil
	}
	delete(t.items, idx)
	if t.drop == nil {
		return true, nil
	}
	if err := t.drop(held); err != nil {
		return true, fmt.Errorf("cache: drop %s %d: %w", t.kind, idx, err)
	}
	return true, nil
}

func (t *tracked[H]) dropAll() []error {
	var errs []error
	// Sorted for a reproducible drop order.
	for _, idx := range slices.Sorted(maps.Keys(t.items)) {
		held := t.items[idx]
		delete(t.items, idx)
		if t.drop == nil {
			continue
		}
		if err := t.drop(held); err != nil {
			errs = append(errs, fmt.Errorf("cache: drop %s %d: %w", t.kind, idx, err))
		}
	}
	return errs
}

// Kind selects one tracked resource category of a Cache.
type Kind[H backend.Scarce[H]] struct {
	name  string
	field func(*Cache) *tracked[H]
	// bound is the pipeline variable holding the bound object of this
	// kind, if any.
	bound *Var[backend.ScarceIndex]
}

// Tracked resource categories.
var (
	VertexArrays            = Kind[backend.VertexArray]{"vertex arrays", func(c *Cache) *tracked[backend.VertexArray] { return &c.vertexArrays }, nil}
	RenderTargets           = Kind[backend.RenderTargets]{"render targets", func(c *Cache) *tracked[backend.RenderTargets] { return &c.renderTargets }, &BoundRenderTargets}
	ColorAttachments        = Kind[backend.ColorAttachment]{"color attachments", func(c *Cache) *tracked[backend.ColorAttachment] { return &c.colorAttachments }, nil}
	DepthStencilAttachments = Kind[backend.DepthStencilAttachment]{"depth/stencil attachments", func(c *Cache) *tracked[backend.DepthStencilAttachment] { return &c.depthStencilAttachments }, nil}
	Shaders                 = Kind[backend.Shader]{"shaders", func(c *Cache) *tracked[backend.Shader] { return &c.shaders }, &BoundShader}
	Uniforms                = Kind[backend.Uniform]{"uniforms", func(c *Cache) *tracked[backend.Uniform] { return &c.uniforms }, nil}
	UniformBuffers          = Kind[backend.UniformBuffer]{"uniform buffers", func(c *Cache) *tracked[backend.UniformBuffer] { return &c.uniformBuffers }, nil}
	Textures                = Kind[backend.Texture]{"textures", func(c *Cache) *tracked[backend.Texture] { return &c.textures }, nil}
	CmdBufs                 = Kind[backend.CmdBuf]{"command buffers", func(c *Cache) *tracked[backend.CmdBuf] { return &c.cmdBufs }, nil}
	SwapChains              = Kind[backend.SwapChain]{"swap chains", func(c *Cache) *tracked[backend.SwapChain] { return &c.swapChains }, nil}
)

// Name returns the category name used in Stats.
func (k Kind[H]) Name() string { return k.name }

// Track records a duplicate of h. Tracking an already tracked index replaces
// the duplicate with an equal one.
func Track[H backend.Scarce[H]](c *Cache, k Kind[H], h H) error {
	return c.do(func() error {
		if c.closed {
			return ErrClosed
		}
		k.field(c).track(h)
		return nil
	})
}

// Untrack forgets h and drops its device object. If h is the bound object
// of its kind the binding is invalidated as well. Untracking an object that
// is not tracked, or untracking after Close, does nothing, so every object
// is dropped at most once.
func Untrack[H backend.Scarce[H]](c *Cache, k Kind[H], h H) error {
	return c.do(func() error {
		if c.closed {
			return nil
		}
		removed, err := k.field(c).untrack(h)
		if removed {
			k.unbind(c, h.ScarceIndex())
		}
		return err
	})
}

// Forget invalidates the pipeline variable holding h if h is bound there.
// It is used for objects the cache does not own, which are never untracked.
func Forget[H backend.Scarce[H]](c *Cache, k Kind[H], h H) error {
	return c.do(func() error {
		k.unbind(c, h.ScarceIndex())
		return nil
	})
}

// unbind forgets the bound object of kind k if it is idx, so a new object
// reusing the index is bound again. It must run under the cache lock.
func (k Kind[H]) unbind(c *Cache, idx backend.ScarceIndex) {
	if k.bound == nil {
		return
	}
	v := k.bound.field(&c.vars)
	if cur, ok := v.Get(); ok && cur == idx {
		v.Invalidate()
	}
}

// IsTracked reports whether idx is tracked in category k.
func IsTracked[H backend.Scarce[H]](c *Cache, k Kind[H], idx backend.ScarceIndex) (bool, error) {
	var ok bool
	err := c.do(func() error {
		_, ok = k.field(c).items[idx]
		return nil
	})
	return ok, err
}
