package recording

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate/backend"
)

// ErrOutOfBounds is returned when a texel region exceeds the texture size.
var ErrOutOfBounds = errors.New("recording: region out of bounds")

// Option configures a recording Backend.
type Option func(*options)

type options struct {
	author                string
	name                  string
	version               string
	shadingLangVersion    string
	gitCommitHash         string
	maxTextureUnits       backend.Unit
	maxUniformBufferUnits backend.Unit
}

func defaultOptions() options {
	return options{
		author:                "gogpu",
		name:                  backend.NameRecording,
		version:               "0.1.0",
		shadingLangVersion:    "none",
		gitCommitHash:         "unknown",
		maxTextureUnits:       16,
		maxUniformBufferUnits: 16,
	}
}

// WithMaxTextureUnits sets the reported texture unit limit.
func WithMaxTextureUnits(n backend.Unit) Option {
	return func(o *options) {
		o.maxTextureUnits = n
	}
}

// WithMaxUniformBufferUnits sets the reported uniform-buffer unit limit.
func WithMaxUniformBufferUnits(n backend.Unit) Option {
	return func(o *options) {
		o.maxUniformBufferUnits = n
	}
}

// WithVersion sets the reported backend version.
func WithVersion(v string) Option {
	return func(o *options) {
		o.version = v
	}
}

// WithGitCommitHash sets the build identifier reported by Info.
func WithGitCommitHash(hash string) Option {
	return func(o *options) {
		o.gitCommitHash = hash
	}
}

// Backend records capability calls without a device.
//
// Backend is safe for concurrent use.
type Backend struct {
	mu       sync.Mutex
	opts     options
	pool     *objectPool
	log      []Command
	failures map[CommandType][]error

	logger atomic.Pointer[slog.Logger]
}

var _ backend.Backend = (*Backend)(nil)

// New creates a recording backend.
func New(opts ...Option) *Backend {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b := &Backend{
		opts:     o,
		pool:     newObjectPool(),
		failures: make(map[CommandType][]error),
	}
	b.logger.Store(slog.New(slog.DiscardHandler))
	return b
}

// SetLogger sets the logger commands are traced to at debug level.
// Pass nil to disable logging.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	b.logger.Store(l)
}

// FailNext makes the next call of type t fail with err instead of running.
// Calls queue: FailNext twice fails the next two calls.
func (b *Backend) FailNext(t CommandType, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[t] = append(b.failures[t], err)
}

// Commands returns a copy of the command log.
func (b *Backend) Commands() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.log)
}

// Count returns the number of recorded commands of type t.
func (b *Backend) Count(t CommandType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.log {
		if c.Type == t {
			n++
		}
	}
	return n
}

// Reset clears the command log. Objects are kept.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = b.log[:0]
}

// Drops returns how many times the object at idx was dropped.
func (b *Backend) Drops(idx backend.ScarceIndex) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.pool.objects[idx]; ok {
		return o.drops
	}
	return 0
}

// Live returns the number of created objects that have not been dropped.
// Objects owned by another object (attachments, uniforms, ...) are not
// counted.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for k := kindVertexArray; k <= kindSwapChain; k++ {
		n += b.pool.alive(k)
	}
	return n
}

// call runs fn and records the command it describes. A queued failure for t
// short-circuits fn. Failed calls are not recorded.
func (b *Backend) call(t CommandType, fn func() (Command, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if q := b.failures[t]; len(q) > 0 {
		b.failures[t] = q[1:]
		b.logger.Load().Debug("recording: injected failure", "cmd", t.String(), "err", q[0])
		return q[0]
	}

	cmd, err := fn()
	if err != nil {
		return err
	}
	cmd.Type = t
	b.log = append(b.log, cmd)
	b.logger.Load().Debug("recording: command", "cmd", cmd.String())
	return nil
}

func value(v any) func() (Command, error) {
	return func() (Command, error) { return Command{Value: v}, nil }
}

// Queries

// Author implements backend.Querier.
func (b *Backend) Author() (string, error) {
	return b.opts.author, b.call(CmdAuthor, value(b.opts.author))
}

// Name implements backend.Querier.
func (b *Backend) Name() (string, error) {
	return b.opts.name, b.call(CmdName, value(b.opts.name))
}

// Version implements backend.Querier.
func (b *Backend) Version() (string, error) {
	return b.opts.version, b.call(CmdVersion, value(b.opts.version))
}

// ShadingLangVersion implements backend.Querier.
func (b *Backend) ShadingLangVersion() (string, error) {
	return b.opts.shadingLangVersion, b.call(CmdShadingLangVersion, value(b.opts.shadingLangVersion))
}

// Info implements backend.Querier.
func (b *Backend) Info() (backend.Info, error) {
	info := backend.Info{Version: b.opts.version, GitCommitHash: b.opts.gitCommitHash}
	return info, b.call(CmdInfo, value(info))
}

// MaxTextureUnits implements backend.Querier.
func (b *Backend) MaxTextureUnits() (backend.Unit, error) {
	return b.opts.maxTextureUnits, b.call(CmdMaxTextureUnits, value(b.opts.maxTextureUnits))
}

// MaxUniformBufferUnits implements backend.Querier.
func (b *Backend) MaxUniformBufferUnits() (backend.Unit, error) {
	return b.opts.maxUniformBufferUnits, b.call(CmdMaxUniformBufferUnits, value(b.opts.maxUniformBufferUnits))
}

// Resources

// NewVertexArray implements backend.Resources.
func (b *Backend) NewVertexArray(data backend.VertexArrayData) (backend.VertexArray, error) {
	var h backend.VertexArray
	err := b.call(CmdNewVertexArray, func() (Command, error) {
		h.Index = b.pool.add(kindVertexArray, 0, data)
		return Command{Object: h.Index, Value: len(data.Vertices)}, nil
	})
	return h, err
}

// UpdateVertexArray implements backend.Resources.
func (b *Backend) UpdateVertexArray(va backend.VertexArray, data backend.VertexArrayData) error {
	return b.call(CmdUpdateVertexArray, func() (Command, error) {
		o, err := b.pool.live(va.Index, kindVertexArray)
		if err != nil {
			return Command{}, err
		}
		o.desc = data
		return Command{Object: va.Index, Value: len(data.Vertices)}, nil
	})
}

// DropVertexArray implements backend.Resources.
func (b *Backend) DropVertexArray(va backend.VertexArray) error {
	return b.call(CmdDropVertexArray, func() (Command, error) {
		return Command{Object: va.Index}, b.pool.drop(va.Index, kindVertexArray)
	})
}

// NewRenderTargets implements backend.Resources.
func (b *Backend) NewRenderTargets(desc backend.RenderTargetsDescriptor) (backend.RenderTargets, error) {
	var h backend.RenderTargets
	err := b.call(CmdNewRenderTargets, func() (Command, error) {
		h.Index = b.pool.add(kindRenderTargets, 0, desc)
		return Command{Object: h.Index, Value: desc.Size}, nil
	})
	return h, err
}

// ColorAttachment implements backend.Resources.
func (b *Backend) ColorAttachment(rt backend.RenderTargets, index backend.AttachmentIndex) (backend.ColorAttachment, error) {
	var h backend.ColorAttachment
	err := b.call(CmdColorAttachment, func() (Command, error) {
		o, err := b.pool.live(rt.Index, kindRenderTargets)
		if err != nil {
			return Command{}, err
		}
		if desc, ok := o.desc.(backend.RenderTargetsDescriptor); ok && int(index) >= len(desc.ColorFormats) {
			return Command{}, fmt.Errorf("%w: render targets %d has no color attachment %d", ErrUnknownObject, rt.Index, index)
		}
		h.Index = b.pool.child(kindColorAttachment, rt.Index, fmt.Sprint(index))
		return Command{Object: h.Index, Value: index}, nil
	})
	return h, err
}

// DepthStencilAttachment implements backend.Resources.
func (b *Backend) DepthStencilAttachment(rt backend.RenderTargets, index backend.AttachmentIndex) (backend.DepthStencilAttachment, error) {
	var h backend.DepthStencilAttachment
	err := b.call(CmdDepthStencilAttachment, func() (Command, error) {
		o, err := b.pool.live(rt.Index, kindRenderTargets)
		if err != nil {
			return Command{}, err
		}
		if desc, ok := o.desc.(backend.RenderTargetsDescriptor); ok && (!desc.HasDepthStencil || index != 0) {
			return Command{}, fmt.Errorf("%w: render targets %d has no depth/stencil attachment %d", ErrUnknownObject, rt.Index, index)
		}
		h.Index = b.pool.child(kindDepthStencilAttachment, rt.Index, fmt.Sprint(index))
		return Command{Object: h.Index, Value: index}, nil
	})
	return h, err
}

// DropRenderTargets implements backend.Resources.
func (b *Backend) DropRenderTargets(rt backend.RenderTargets) error {
	return b.call(CmdDropRenderTargets, func() (Command, error) {
		return Command{Object: rt.Index}, b.pool.drop(rt.Index, kindRenderTargets)
	})
}

// NewShader implements backend.Resources.
func (b *Backend) NewShader(sources backend.ShaderSources) (backend.Shader, error) {
	var h backend.Shader
	err := b.call(CmdNewShader, func() (Command, error) {
		h.Index = b.pool.add(kindShader, 0, sources)
		return Command{Object: h.Index}, nil
	})
	return h, err
}

// lookup resolves a named object owned by a shader.
func (b *Backend) lookup(t CommandType, kind objectKind, sh backend.Shader, name string) (backend.ScarceIndex, error) {
	var idx backend.ScarceIndex
	err := b.call(t, func() (Command, error) {
		if _, err := b.pool.live(sh.Index, kindShader); err != nil {
			return Command{}, err
		}
		idx = b.pool.child(kind, sh.Index, name)
		return Command{Object: idx, Value: name}, nil
	})
	return idx, err
}

// ShaderUniform implements backend.Resources.
func (b *Backend) ShaderUniform(sh backend.Shader, name string, ty backend.UniformType) (backend.Uniform, error) {
	idx, err := b.lookup(CmdShaderUniform, kindUniform, sh, name+":"+ty.String())
	return backend.Uniform{Handle: backend.Handle{Index: idx}}, err
}

// ShaderUniformBuffer implements backend.Resources.
func (b *Backend) ShaderUniformBuffer(sh backend.Shader, name string) (backend.UniformBuffer, error) {
	idx, err := b.lookup(CmdShaderUniformBuffer, kindUniformBuffer, sh, name)
	return backend.UniformBuffer{Handle: backend.Handle{Index: idx}}, err
}

// ShaderTextureBindingPoint implements backend.Resources.
func (b *Backend) ShaderTextureBindingPoint(sh backend.Shader, name string) (backend.ShaderTextureBindingPoint, error) {
	idx, err := b.lookup(CmdShaderTextureBindingPoint, kindTextureBindingPoint, sh, name)
	return backend.ShaderTextureBindingPoint{Handle: backend.Handle{Index: idx}}, err
}

// ShaderUniformBufferBindingPoint implements backend.Resources.
func (b *Backend) ShaderUniformBufferBindingPoint(sh backend.Shader, name string) (backend.ShaderUniformBufferBindingPoint, error) {
	idx, err := b.lookup(CmdShaderUniformBufferBindingPoint, kindUniformBufferBindingPoint, sh, name)
	return backend.ShaderUniformBufferBindingPoint{Handle: backend.Handle{Index: idx}}, err
}

// DropShader implements backend.Resources.
func (b *Backend) DropShader(sh backend.Shader) error {
	return b.call(CmdDropShader, func() (Command, error) {
		return Command{Object: sh.Index}, b.pool.drop(sh.Index, kindShader)
	})
}

// NewTexture implements backend.Resources.
func (b *Backend) NewTexture(desc backend.TextureDescriptor) (backend.Texture, error) {
	var h backend.Texture
	err := b.call(CmdNewTexture, func() (Command, error) {
		h.Index = b.pool.add(kindTexture, 0, desc)
		return Command{Object: h.Index, Value: desc.Size}, nil
	})
	return h, err
}

// ResizeTexture implements backend.Resources.
func (b *Backend) ResizeTexture(tex backend.Texture, size gputypes.Extent3D) error {
	return b.call(CmdResizeTexture, func() (Command, error) {
		o, err := b.pool.live(tex.Index, kindTexture)
		if err != nil {
			return Command{}, err
		}
		desc, _ := o.desc.(backend.TextureDescriptor)
		desc.Size = size
		o.desc = desc
		return Command{Object: tex.Index, Value: size}, nil
	})
}

func (b *Backend) texels(t CommandType, tex backend.Texture, region backend.TextureRegion, data []byte) error {
	return b.call(t, func() (Command, error) {
		o, err := b.pool.live(tex.Index, kindTexture)
		if err != nil {
			return Command{}, err
		}
		desc, _ := o.desc.(backend.TextureDescriptor)
		if !regionFits(region, desc.Size) {
			return Command{}, fmt.Errorf("%w: texture %d", ErrOutOfBounds, tex.Index)
		}
		return Command{Object: tex.Index, Value: slices.Clone(data)}, nil
	})
}

func regionFits(r backend.TextureRegion, size gputypes.Extent3D) bool {
	depth := max(r.Size.DepthOrArrayLayers, 1)
	return r.Origin.X+r.Size.Width <= size.Width &&
		r.Origin.Y+r.Size.Height <= size.Height &&
		r.Origin.Z+depth <= max(size.DepthOrArrayLayers, 1)
}

// SetTexels implements backend.Resources.
func (b *Backend) SetTexels(tex backend.Texture, region backend.TextureRegion, texels []byte) error {
	return b.texels(CmdSetTexels, tex, region, texels)
}

// ClearTexels implements backend.Resources.
func (b *Backend) ClearTexels(tex backend.Texture, region backend.TextureRegion, v []byte) error {
	return b.texels(CmdClearTexels, tex, region, v)
}

// DropTexture implements backend.Resources.
func (b *Backend) DropTexture(tex backend.Texture) error {
	return b.call(CmdDropTexture, func() (Command, error) {
		return Command{Object: tex.Index}, b.pool.drop(tex.Index, kindTexture)
	})
}
