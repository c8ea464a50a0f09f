package cache

import "github.com/gogpu/gpustate/backend"

// Vars holds every cached pipeline variable of a device.
type Vars struct {
	blending         Cached[backend.BlendingMode]
	depthTest        Cached[backend.DepthTest]
	depthWrite       Cached[backend.DepthWrite]
	stencilTest      Cached[backend.StencilTest]
	faceCulling      Cached[backend.FaceCulling]
	viewport         Cached[backend.Viewport]
	scissor          Cached[backend.Scissor]
	clearColor       Cached[backend.ClearColor]
	clearDepth       Cached[backend.ClearDepth]
	clearStencil     Cached[backend.ClearStencil]
	srgb             Cached[backend.SRGB]
	primitiveRestart Cached[backend.PrimitiveRestart]

	// Bound pipeline resources, by scarce index.
	boundRenderTargets Cached[backend.ScarceIndex]
	boundShader        Cached[backend.ScarceIndex]
}

// Var selects one pipeline variable of a Cache.
type Var[T comparable] struct {
	name  string
	field func(*Vars) *Cached[T]
}

func (v Var[T]) String() string { return v.name }

// Pipeline variables.
var (
	Blending           = Var[backend.BlendingMode]{"blending", func(v *Vars) *Cached[backend.BlendingMode] { return &v.blending }}
	DepthTest          = Var[backend.DepthTest]{"depth test", func(v *Vars) *Cached[backend.DepthTest] { return &v.depthTest }}
	DepthWrite         = Var[backend.DepthWrite]{"depth write", func(v *Vars) *Cached[backend.DepthWrite] { return &v.depthWrite }}
	StencilTest        = Var[backend.StencilTest]{"stencil test", func(v *Vars) *Cached[backend.StencilTest] { return &v.stencilTest }}
	FaceCulling        = Var[backend.FaceCulling]{"face culling", func(v *Vars) *Cached[backend.FaceCulling] { return &v.faceCulling }}
	Viewport           = Var[backend.Viewport]{"viewport", func(v *Vars) *Cached[backend.Viewport] { return &v.viewport }}
	Scissor            = Var[backend.Scissor]{"scissor", func(v *Vars) *Cached[backend.Scissor] { return &v.scissor }}
	ClearColor         = Var[backend.ClearColor]{"clear color", func(v *Vars) *Cached[backend.ClearColor] { return &v.clearColor }}
	ClearDepth         = Var[backend.ClearDepth]{"clear depth", func(v *Vars) *Cached[backend.ClearDepth] { return &v.clearDepth }}
	ClearStencil       = Var[backend.ClearStencil]{"clear stencil", func(v *Vars) *Cached[backend.ClearStencil] { return &v.clearStencil }}
	SRGB               = Var[backend.SRGB]{"srgb", func(v *Vars) *Cached[backend.SRGB] { return &v.srgb }}
	PrimitiveRestart   = Var[backend.PrimitiveRestart]{"primitive restart", func(v *Vars) *Cached[backend.PrimitiveRestart] { return &v.primitiveRestart }}
	BoundRenderTargets = Var[backend.ScarceIndex]{"bound render targets", func(v *Vars) *Cached[backend.ScarceIndex] { return &v.boundRenderTargets }}
	BoundShader        = Var[backend.ScarceIndex]{"bound shader", func(v *Vars) *Cached[backend.ScarceIndex] { return &v.boundShader }}
)

// SetIfInvalid calls apply when value differs from the cached value of v,
// and caches value once apply succeeds. It reports whether the device was
// called. apply runs under the cache lock and must not call back into c.
func SetIfInvalid[T comparable](c *Cache, v Var[T], value T, apply func() error) (bool, error) {
	var changed bool
	err := c.do(func() error {
		if c.closed {
			return ErrClosed
		}
		var err error
		changed, err = v.field(&c.vars).SetIfInvalid(value, apply)
		if err != nil {
			return err
		}
		if changed {
			c.stats.applied++
		} else {
			c.stats.elided++
		}
		return nil
	})
	return changed, err
}

// Current returns the cached value of v, if any.
func Current[T comparable](c *Cache, v Var[T]) (T, bool, error) {
	var (
		value T
		ok    bool
	)
	err := c.do(func() error {
		value, ok = v.field(&c.vars).Get()
		return nil
	})
	return value, ok, err
}

// Invalidate forgets the cached value of v.
func Invalidate[T comparable](c *Cache, v Var[T]) error {
	return c.do(func() error {
		v.field(&c.vars).Invalidate()
		return nil
	})
}

// InvalidateAll forgets every cached pipeline variable. Queries and tracked
// resources are kept.
func (c *Cache) InvalidateAll() error {
	return c.do(func() error {
		c.vars = Vars{}
		return nil
	})
}
