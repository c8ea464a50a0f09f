package gpustate

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gpustate/backend"
	"github.com/gogpu/gpustate/internal/cache"
	"github.com/gogpu/gpustate/internal/units"
)

// session is the state shared by every stage of one Layers session.
//
// A session is driven by a single goroutine.
type session struct {
	dev *Device
	b   backend.Backend
	cb  backend.CmdBuf
	log *slog.Logger

	// stage is the token of the only stage allowed to run operations.
	stage    uint64
	tokens   uint64
	finished bool

	// groups holds the in-use record of every open group, innermost last.
	groups []*scopeRecord

	textures       *units.Allocator
	uniformBuffers *units.Allocator
}

// scopeRecord lists the units a group has bound.
type scopeRecord struct {
	textures       []binding
	uniformBuffers []binding
}

type binding struct {
	unit  backend.Unit
	index backend.ScarceIndex
}

func (s *session) newToken() uint64 {
	s.tokens++
	return s.tokens
}

// stage identifies one builder stage of a session. A stage may run
// operations only while it is the current stage.
//
// The setters of pipeline variables are legal at every stage and in every
// group.
type stage struct {
	s     *session
	token uint64
	back  uint64 // token restored by leave
	depth int    // open groups when the stage was entered

	// group is set for group scopes, which may only be used while
	// innermost.
	group *scopeRecord
}

// enter makes a new stage current.
func (s *session) enter(back uint64) stage {
	st := stage{s: s, token: s.newToken(), back: back, depth: len(s.groups)}
	s.stage = st.token
	return st
}

func (st stage) assert(op string) {
	if st.s.finished {
		panic(fmt.Sprintf("gpustate: %s after Finish", op))
	}
	if st.s.stage != st.token {
		panic(fmt.Sprintf("gpustate: %s on a layer stage that is no longer current", op))
	}
	if st.group != nil {
		if n := len(st.s.groups); n == 0 || st.s.groups[n-1] != st.group {
			panic(fmt.Sprintf("gpustate: %s on a group that is closed or not innermost", op))
		}
	}
}

// leave returns to the parent stage. Groups opened in the stage must be
// closed first.
func (st stage) leave(op string) {
	st.assert(op)
	if n := len(st.s.groups); n != st.depth {
		panic(fmt.Sprintf("gpustate: %s with %d group(s) still open", op, n-st.depth))
	}
	st.s.stage = st.back
}

// setVar changes a pipeline variable unless the cache already holds value.
func setVar[T comparable](s *session, v cache.Var[T], value T, apply func(backend.CmdBuf, T) error) error {
	changed, err := cache.SetIfInvalid(s.dev.cache, v, value, func() error {
		return apply(s.cb, value)
	})
	if err != nil {
		if errors.Is(err, cache.ErrClosed) {
			return ErrDeviceClosed
		}
		return fmt.Errorf("gpustate: set %s: %w", v, err)
	}
	if changed {
		s.log.Debug("gpustate: state applied", "var", v.String(), "value", value)
	} else {
		s.log.Debug("gpustate: state elided", "var", v.String())
	}
	return nil
}

// Blending sets the blending mode.
func (st stage) Blending(mode backend.BlendingMode) error {
	st.assert("Blending")
	return setVar(st.s, cache.Blending, mode, st.s.b.CmdBufBlendingMode)
}

// DepthTest sets the depth test.
func (st stage) DepthTest(test backend.DepthTest) error {
	st.assert("DepthTest")
	return setVar(st.s, cache.DepthTest, test, st.s.b.CmdBufDepthTest)
}

// DepthWrite enables or disables depth writes.
func (st stage) DepthWrite(write backend.DepthWrite) error {
	st.assert("DepthWrite")
	return setVar(st.s, cache.DepthWrite, write, st.s.b.CmdBufDepthWrite)
}

// StencilTest sets the stencil test.
func (st stage) StencilTest(test backend.StencilTest) error {
	st.assert("StencilTest")
	return setVar(st.s, cache.StencilTest, test, st.s.b.CmdBufStencilTest)
}

// FaceCulling sets face culling.
func (st stage) FaceCulling(culling backend.FaceCulling) error {
	st.assert("FaceCulling")
	return setVar(st.s, cache.FaceCulling, culling, st.s.b.CmdBufFaceCulling)
}

// Viewport sets the viewport.
func (st stage) Viewport(viewport backend.Viewport) error {
	st.assert("Viewport")
	return setVar(st.s, cache.Viewport, viewport, st.s.b.CmdBufViewport)
}

// Scissor sets the scissor test.
func (st stage) Scissor(scissor backend.Scissor) error {
	st.assert("Scissor")
	return setVar(st.s, cache.Scissor, scissor, st.s.b.CmdBufScissor)
}

// ClearColor sets the color render targets are cleared to when bound.
func (st stage) ClearColor(color backend.ClearColor) error {
	st.assert("ClearColor")
	return setVar(st.s, cache.ClearColor, color, st.s.b.CmdBufClearColor)
}

// ClearDepth sets the depth render targets are cleared to when bound.
func (st stage) ClearDepth(depth backend.ClearDepth) error {
	st.assert("ClearDepth")
	return setVar(st.s, cache.ClearDepth, depth, st.s.b.CmdBufClearDepth)
}

// ClearStencil sets the stencil value render targets are cleared to when
// bound.
func (st stage) ClearStencil(stencil backend.ClearStencil) error {
	st.assert("ClearStencil")
	return setVar(st.s, cache.ClearStencil, stencil, st.s.b.CmdBufClearStencil)
}

// SRGB enables or disables sRGB conversion on write.
func (st stage) SRGB(srgb backend.SRGB) error {
	st.assert("SRGB")
	return setVar(st.s, cache.SRGB, srgb, st.s.b.CmdBufSRGB)
}

// PrimitiveRestart enables or disables primitive restart.
func (st stage) PrimitiveRestart(restart backend.PrimitiveRestart) error {
	st.assert("PrimitiveRestart")
	return setVar(st.s, cache.PrimitiveRestart, restart, st.s.b.CmdBufPrimitiveRestart)
}

// Layers is the top stage of a command buffer session: nothing is bound
// yet. Bind render targets to progress, or Finish the command buffer.
//
// Stages are used in order and never concurrently. Calling an operation
// on a stage that is no longer current panics.
type Layers struct {
	stage
}

// NewLayers opens a session over a fresh command buffer.
func (d *Device) NewLayers() (*Layers, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	cb, err := d.backend.NewCmdBuf()
	if err != nil {
		return nil, fmt.Errorf("gpustate: new command buffer: %w", err)
	}
	if err := cache.Track(d.cache, cache.CmdBufs, cb); err != nil {
		if dropErr := d.backend.DropCmdBuf(cb); dropErr != nil {
			d.log().Warn("gpustate: dropping untracked command buffer", "err", dropErr)
		}
		if errors.Is(err, cache.ErrClosed) {
			return nil, ErrDeviceClosed
		}
		return nil, err
	}

	s := &session{
		dev:            d,
		b:              d.backend,
		cb:             cb,
		log:            d.log(),
		textures:       units.New(d.textureUnits),
		uniformBuffers: units.New(d.uniformBufferUnits),
	}
	l := &Layers{stage: s.enter(0)}
	s.log.Debug("gpustate: layers opened", "cmdbuf", cb.ScarceIndex())
	return l, nil
}

// CmdBuf returns the command buffer the session records into.
func (l *Layers) CmdBuf() backend.CmdBuf { return l.s.cb }

// RenderTargets binds rt and enters the render-targets stage.
func (l *Layers) RenderTargets(rt *RenderTargets) (*RenderTargetsLayer, error) {
	l.assert("RenderTargets")
	if _, err := rt.alive(); err != nil {
		return nil, err
	}
	h := rt.Handle()
	err := setVar(l.s, cache.BoundRenderTargets, h.ScarceIndex(), func(cb backend.CmdBuf, _ backend.ScarceIndex) error {
		return l.s.b.CmdBufBindRenderTargets(cb, h)
	})
	if err != nil {
		return nil, err
	}
	next := &RenderTargetsLayer{stage: l.s.enter(l.token), parent: l}
	return next, nil
}

// Group opens a group scope over the top stage.
func (l *Layers) Group() *Group[*Layers] {
	l.assert("Group")
	return openGroup(l.stage, l)
}

// Finish marks the command buffer ready for submission and ends the
// session. Every group must be closed. The command buffer is dropped even
// if finishing fails.
func (l *Layers) Finish() error {
	l.leave("Finish")
	s := l.s
	s.finished = true

	err := s.b.CmdBufFinish(s.cb)
	if err != nil {
		err = fmt.Errorf("gpustate: finish command buffer: %w", err)
	}
	if dropErr := cache.Untrack(s.dev.cache, cache.CmdBufs, s.cb); dropErr != nil {
		s.log.Warn("gpustate: dropping command buffer", "cmdbuf", s.cb.ScarceIndex(), "err", dropErr)
	}
	s.log.Debug("gpustate: layers finished", "cmdbuf", s.cb.ScarceIndex(), "err", err)
	return err
}

// RenderTargetsLayer is the stage where render targets are bound. Bind a
// shader to draw.
type RenderTargetsLayer struct {
	stage
	parent *Layers
}

// Shader binds sh and enters the shader stage.
func (l *RenderTargetsLayer) Shader(sh *Shader) (*ShaderLayer, error) {
	l.assert("Shader")
	if _, err := sh.alive(); err != nil {
		return nil, err
	}
	h := sh.Handle()
	err := setVar(l.s, cache.BoundShader, h.ScarceIndex(), func(cb backend.CmdBuf, _ backend.ScarceIndex) error {
		return l.s.b.CmdBufBindShader(cb, h)
	})
	if err != nil {
		return nil, err
	}
	next := &ShaderLayer{stage: l.s.enter(l.token), parent: l}
	return next, nil
}

// Group opens a group scope over the render-targets stage.
func (l *RenderTargetsLayer) Group() *Group[*RenderTargetsLayer] {
	l.assert("Group")
	return openGroup(l.stage, l)
}

// Done returns to the top stage.
func (l *RenderTargetsLayer) Done() *Layers {
	l.leave("Done")
	return l.parent
}

// ShaderLayer is the stage where a shader is bound. Uniforms can be set
// and vertex arrays drawn any number of times.
type ShaderLayer struct {
	stage
	parent *RenderTargetsLayer
}

// SetUniform sets a uniform of the bound shader. value holds the raw bytes
// of the uniform's type.
func (l *ShaderLayer) SetUniform(u backend.Uniform, value []byte) error {
	l.assert("SetUniform")
	if err := l.s.b.CmdBufSetUniform(l.s.cb, u, value); err != nil {
		return fmt.Errorf("gpustate: set uniform %v: %w", u, err)
	}
	return nil
}

// Draw draws va with the bound shader into the bound render targets.
func (l *ShaderLayer) Draw(va *VertexArray) error {
	l.assert("Draw")
	if _, err := va.alive(); err != nil {
		return err
	}
	if err := l.s.b.CmdBufDrawVertexArray(l.s.cb, va.Handle()); err != nil {
		return fmt.Errorf("gpustate: draw %v: %w", va.Handle(), err)
	}
	return nil
}

// Group opens a group scope over the shader stage.
func (l *ShaderLayer) Group() *Group[*ShaderLayer] {
	l.assert("Group")
	return openGroup(l.stage, l)
}

// Done returns to the render-targets stage.
func (l *ShaderLayer) Done() *RenderTargetsLayer {
	l.leave("Done")
	return l.parent
}
