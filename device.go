package gpustate

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate/backend"
	"github.com/gogpu/gpustate/internal/cache"
)

// Errors returned by Device and resource operations.
var (
	// ErrDeviceClosed is returned by operations on a closed device, and by
	// resources whose device has been closed.
	ErrDeviceClosed = errors.New("gpustate: device closed")

	// ErrDestroyed is returned by operations on a destroyed resource.
	ErrDestroyed = errors.New("gpustate: resource destroyed")
)

// Stats is a snapshot of a device's state cache.
type Stats = cache.Stats

// Device owns the state cache of one backend and creates resources and
// layer sessions on it.
//
// Device is safe for concurrent use. A layer session is not.
type Device struct {
	backend backend.Backend
	cache   *cache.Cache
	logger  *slog.Logger // nil: package logger

	// Unit limits for layer sessions, after WithMax*Units caps.
	textureUnits       backend.Unit
	uniformBufferUnits backend.Unit

	closeOnce sync.Once
	closeErr  error
	cleanup   runtime.Cleanup
}

// NewDevice creates a device over b.
//
// The unit limits are queried once. Extensions run in order; the first
// failure closes the device and is returned as a *backend.ExtensionCheckError.
func NewDevice(b backend.Backend, opts ...DeviceOption) (*Device, error) {
	if b == nil {
		return nil, backend.ErrBackendNotAvailable
	}
	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		backend: b,
		cache:   cache.New(b),
		logger:  o.logger,
	}
	propagateLogger(b, d.log())

	if err := d.resolveUnits(o); err != nil {
		_ = d.cache.Close()
		return nil, err
	}
	if err := initExtensions(d, o.extensions); err != nil {
		_ = d.cache.Close()
		return nil, err
	}

	// Devices dropped without Close still release their device objects.
	d.cleanup = runtime.AddCleanup(d, closeCache, d.cache)

	name, _ := d.Name()
	version, _ := d.Version()
	d.log().Info("gpustate: device opened",
		"backend", name,
		"version", version,
		"texture_units", d.textureUnits,
		"uniform_buffer_units", d.uniformBufferUnits)
	return d, nil
}

func closeCache(c *cache.Cache) {
	if err := c.Close(); err != nil {
		Logger().Warn("gpustate: closing collected device", "err", err)
	}
}

func (d *Device) resolveUnits(o deviceOptions) error {
	tex, err := d.MaxTextureUnits()
	if err != nil {
		return err
	}
	ub, err := d.MaxUniformBufferUnits()
	if err != nil {
		return err
	}
	if o.hasMaxTextureUnits {
		tex = min(tex, o.maxTextureUnits)
	}
	if o.hasMaxUniformBufferUnits {
		ub = min(ub, o.maxUniformBufferUnits)
	}
	d.textureUnits, d.uniformBufferUnits = tex, ub
	return nil
}

// log returns the device logger.
func (d *Device) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return Logger()
}

// Backend returns the backend the device drives.
func (d *Device) Backend() backend.Backend { return d.backend }

// Close destroys every resource still alive on the device. Wrappers
// destroyed afterwards do nothing. Close is idempotent.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.cleanup.Stop()
		d.closeErr = d.cache.Close()
		if d.closeErr != nil {
			d.log().Warn("gpustate: device closed with errors", "err", d.closeErr)
			return
		}
		d.log().Info("gpustate: device closed")
	})
	return d.closeErr
}

func (d *Device) ensureOpen() error {
	if d.cache.Closed() {
		return ErrDeviceClosed
	}
	return nil
}

// InvalidateState forgets every cached pipeline value, so the next setter
// of each variable reaches the backend. Use it after code outside gpustate
// has touched the device state. Queries and resources are kept.
func (d *Device) InvalidateState() error {
	return d.cache.InvalidateAll()
}

// Stats returns a snapshot of the state cache.
func (d *Device) Stats() (Stats, error) {
	return d.cache.Stats()
}

// TextureUnits returns the number of texture units a layer session uses.
func (d *Device) TextureUnits() backend.Unit { return d.textureUnits }

// UniformBufferUnits returns the number of uniform-buffer units a layer
// session uses.
func (d *Device) UniformBufferUnits() backend.Unit { return d.uniformBufferUnits }

// Queries. Every answer is fetched from the backend once.

func query[T any](d *Device, q cache.Query[T], fetch func() (T, error)) (T, error) {
	v, err := cache.Fetch(d.cache, q, fetch)
	if err != nil {
		return v, fmt.Errorf("gpustate: query %s: %w", q, err)
	}
	return v, nil
}

// Author returns the backend author.
func (d *Device) Author() (string, error) {
	return query(d, cache.Author, d.backend.Author)
}

// Name returns the backend name.
func (d *Device) Name() (string, error) {
	return query(d, cache.Name, d.backend.Name)
}

// Version returns the backend version.
func (d *Device) Version() (string, error) {
	return query(d, cache.Version, d.backend.Version)
}

// ShadingLangVersion returns the version of the shading language the
// backend compiles.
func (d *Device) ShadingLangVersion() (string, error) {
	return query(d, cache.ShadingLangVersion, d.backend.ShadingLangVersion)
}

// Info returns the backend build record.
func (d *Device) Info() (backend.Info, error) {
	return query(d, cache.Info, d.backend.Info)
}

// MaxTextureUnits returns the backend texture unit limit.
func (d *Device) MaxTextureUnits() (backend.Unit, error) {
	return query(d, cache.MaxTextureUnits, d.backend.MaxTextureUnits)
}

// MaxUniformBufferUnits returns the backend uniform-buffer unit limit.
func (d *Device) MaxUniformBufferUnits() (backend.Unit, error) {
	return query(d, cache.MaxUniformBufferUnits, d.backend.MaxUniformBufferUnits)
}

// Resource creation.

// NewVertexArray creates a vertex array.
func (d *Device) NewVertexArray(data backend.VertexArrayData) (*VertexArray, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	h, err := d.backend.NewVertexArray(data)
	if err != nil {
		return nil, fmt.Errorf("gpustate: new vertex array: %w", err)
	}
	va := &VertexArray{b: d.backend}
	if err := adopt(d, va, &va.resource, cache.VertexArrays, h, d.backend.DropVertexArray); err != nil {
		return nil, err
	}
	return va, nil
}

// NewRenderTargets creates render targets.
func (d *Device) NewRenderTargets(desc backend.RenderTargetsDescriptor) (*RenderTargets, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	h, err := d.backend.NewRenderTargets(desc)
	if err != nil {
		return nil, fmt.Errorf("gpustate: new render targets: %w", err)
	}
	rt := &RenderTargets{b: d.backend}
	if err := adopt(d, rt, &rt.resource, cache.RenderTargets, h, d.backend.DropRenderTargets); err != nil {
		return nil, err
	}
	return rt, nil
}

// NewShader creates a shader from its sources.
func (d *Device) NewShader(sources backend.ShaderSources) (*Shader, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	h, err := d.backend.NewShader(sources)
	if err != nil {
		return nil, fmt.Errorf("gpustate: new shader: %w", err)
	}
	sh := &Shader{b: d.backend}
	if err := adopt(d, sh, &sh.resource, cache.Shaders, h, d.backend.DropShader); err != nil {
		return nil, err
	}
	return sh, nil
}

// NewTexture creates a texture.
func (d *Device) NewTexture(desc backend.TextureDescriptor) (*Texture, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	h, err := d.backend.NewTexture(desc)
	if err != nil {
		return nil, fmt.Errorf("gpustate: new texture: %w", err)
	}
	tex := &Texture{b: d.backend, desc: desc}
	if err := adopt(d, tex, &tex.resource, cache.Textures, h, d.backend.DropTexture); err != nil {
		return nil, err
	}
	return tex, nil
}

// NewSwapChain creates a swap chain of the given size.
func (d *Device) NewSwapChain(width, height uint32, mode gputypes.PresentMode) (*SwapChain, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	h, err := d.backend.NewSwapChain(width, height, mode)
	if err != nil {
		return nil, fmt.Errorf("gpustate: new swap chain: %w", err)
	}
	sc := &SwapChain{b: d.backend, mode: mode}
	if err := adopt(d, sc, &sc.resource, cache.SwapChains, h, d.backend.DropSwapChain); err != nil {
		return nil, err
	}
	return sc, nil
}
