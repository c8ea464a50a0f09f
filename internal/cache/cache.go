package cache

import (
	"errors"
	"sync"

	"github.com/gogpu/gpustate/backend"
)

// ErrClosed is returned by operations on a cache that has been closed.
var ErrClosed = errors.New("cache: closed")

// Cache is the state cache of one device.
//
// Cache is safe for concurrent use.
// Cache must not be copied after creation (has mutex).
type Cache struct {
	mu       sync.Mutex
	poisoned bool
	closed   bool

	vars    Vars
	queries queries
	stats   counters

	vertexArrays            tracked[backend.VertexArray]
	renderTargets           tracked[backend.RenderTargets]
	colorAttachments        tracked[backend.ColorAttachment]
	depthStencilAttachments tracked[backend.DepthStencilAttachment]
	shaders                 tracked[backend.Shader]
	uniforms                tracked[backend.Uniform]
	uniformBuffers          tracked[backend.UniformBuffer]
	textures                tracked[backend.Texture]
	cmdBufs                 tracked[backend.CmdBuf]
	swapChains              tracked[backend.SwapChain]

	// all lists every tracked set, in drop order.
	all []trackedSet
}

type counters struct {
	applied uint64
	elided  uint64
}

// New creates a cache that drops device objects through r.
func New(r backend.Backend) *Cache {
	c := &Cache{
		vertexArrays:            newTracked(VertexArrays.name, r.DropVertexArray),
		renderTargets:           newTracked(RenderTargets.name, r.DropRenderTargets),
		colorAttachments:        newTracked[backend.ColorAttachment](ColorAttachments.name, nil),
		depthStencilAttachments: newTracked[backend.DepthStencilAttachment](DepthStencilAttachments.name, nil),
		shaders:                 newTracked(Shaders.name, r.DropShader),
		uniforms:                newTracked[backend.Uniform](Uniforms.name, nil),
		uniformBuffers:          newTracked[backend.UniformBuffer](UniformBuffers.name, nil),
		textures:                newTracked(Textures.name, r.DropTexture),
		cmdBufs:                 newTracked(CmdBufs.name, r.DropCmdBuf),
		swapChains:              newTracked(SwapChains.name, r.DropSwapChain),
	}
	c.all = []trackedSet{
		&c.cmdBufs,
		&c.vertexArrays,
		&c.colorAttachments,
		&c.depthStencilAttachments,
		&c.renderTargets,
		&c.uniforms,
		&c.uniformBuffers,
		&c.shaders,
		&c.textures,
		&c.swapChains,
	}
	return c
}

// do runs fn under the cache lock. A panic in fn poisons the cache and is
// propagated.
func (c *Cache) do(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.poisoned {
		return backend.ErrPoisonedLock
	}

	done := false
	defer func() {
		if !done {
			c.poisoned = true
		}
	}()
	err := fn()
	done = true
	return err
}

// Poisoned reports whether a holder of the lock panicked.
func (c *Cache) Poisoned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poisoned
}

// Closed reports whether Close has been called.
func (c *Cache) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close drops every device object still tracked, each exactly once, and
// invalidates every pipeline variable. Drop errors are joined; every object
// is attempted regardless. Close is idempotent.
func (c *Cache) Close() error {
	return c.do(func() error {
		if c.closed {
			return nil
		}
		c.closed = true
		c.vars = Vars{}

		var errs []error
		for _, set := range c.all {
			errs = append(errs, set.dropAll()...)
		}
		return errors.Join(errs...)
	})
}

// Stats is a snapshot of the cache bookkeeping.
type Stats struct {
	// Applied counts pipeline changes that reached the device.
	Applied uint64
	// Elided counts pipeline changes skipped because the value was cached.
	Elided uint64
	// Tracked maps a resource category to the number of live objects.
	Tracked map[string]int
}

// Stats returns a snapshot of the cache bookkeeping.
func (c *Cache) Stats() (Stats, error) {
	var s Stats
	err := c.do(func() error {
		s.Applied = c.stats.applied
		s.Elided = c.stats.elided
		s.Tracked = make(map[string]int, len(c.all))
		for _, set := range c.all {
			s.Tracked[set.name()] = set.len()
		}
		return nil
	})
	return s, err
}
