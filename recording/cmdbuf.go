package recording

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate/backend"
)

// NewCmdBuf implements backend.Commands.
func (b *Backend) NewCmdBuf() (backend.CmdBuf, error) {
	var h backend.CmdBuf
	err := b.call(CmdNewCmdBuf, func() (Command, error) {
		h.Index = b.pool.add(kindCmdBuf, 0, nil)
		return Command{Object: h.Index}, nil
	})
	return h, err
}

// DropCmdBuf implements backend.Commands.
func (b *Backend) DropCmdBuf(cb backend.CmdBuf) error {
	return b.call(CmdDropCmdBuf, func() (Command, error) {
		return Command{Object: cb.Index}, b.pool.drop(cb.Index, kindCmdBuf)
	})
}

// onCmdBuf records a command targeting cb. The command buffer must be alive
// and not finished.
func (b *Backend) onCmdBuf(t CommandType, cb backend.CmdBuf, fn func() (Command, error)) error {
	return b.call(t, func() (Command, error) {
		o, err := b.pool.live(cb.Index, kindCmdBuf)
		if err != nil {
			return Command{}, err
		}
		if o.finished {
			return Command{}, fmt.Errorf("%w: %d", ErrFinished, cb.Index)
		}
		cmd, err := fn()
		if err != nil {
			return Command{}, err
		}
		cmd.CmdBuf = cb.Index
		if t == CmdFinish {
			o.finished = true
		}
		return cmd, nil
	})
}

// CmdBufBlendingMode implements backend.Commands.
func (b *Backend) CmdBufBlendingMode(cb backend.CmdBuf, mode backend.BlendingMode) error {
	return b.onCmdBuf(CmdBlendingMode, cb, value(mode))
}

// CmdBufDepthTest implements backend.Commands.
func (b *Backend) CmdBufDepthTest(cb backend.CmdBuf, test backend.DepthTest) error {
	return b.onCmdBuf(CmdDepthTest, cb, value(test))
}

// CmdBufDepthWrite implements backend.Commands.
func (b *Backend) CmdBufDepthWrite(cb backend.CmdBuf, write backend.DepthWrite) error {
	return b.onCmdBuf(CmdDepthWrite, cb, value(write))
}

// CmdBufStencilTest implements backend.Commands.
func (b *Backend) CmdBufStencilTest(cb backend.CmdBuf, test backend.StencilTest) error {
	return b.onCmdBuf(CmdStencilTest, cb, value(test))
}

// CmdBufFaceCulling implements backend.Commands.
func (b *Backend) CmdBufFaceCulling(cb backend.CmdBuf, culling backend.FaceCulling) error {
	return b.onCmdBuf(CmdFaceCulling, cb, value(culling))
}

// CmdBufViewport implements backend.Commands.
func (b *Backend) CmdBufViewport(cb backend.CmdBuf, viewport backend.Viewport) error {
	return b.onCmdBuf(CmdViewport, cb, value(viewport))
}

// CmdBufScissor implements backend.Commands.
func (b *Backend) CmdBufScissor(cb backend.CmdBuf, scissor backend.Scissor) error {
	return b.onCmdBuf(CmdScissor, cb, value(scissor))
}

// CmdBufClearColor implements backend.Commands.
func (b *Backend) CmdBufClearColor(cb backend.CmdBuf, color backend.ClearColor) error {
	return b.onCmdBuf(CmdClearColor, cb, value(color))
}

// CmdBufClearDepth implements backend.Commands.
func (b *Backend) CmdBufClearDepth(cb backend.CmdBuf, depth backend.ClearDepth) error {
	return b.onCmdBuf(CmdClearDepth, cb, value(depth))
}

// CmdBufClearStencil implements backend.Commands.
func (b *Backend) CmdBufClearStencil(cb backend.CmdBuf, stencil backend.ClearStencil) error {
	return b.onCmdBuf(CmdClearStencil, cb, value(stencil))
}

// CmdBufSRGB implements backend.Commands.
func (b *Backend) CmdBufSRGB(cb backend.CmdBuf, srgb backend.SRGB) error {
	return b.onCmdBuf(CmdSRGB, cb, value(srgb))
}

// CmdBufPrimitiveRestart implements backend.Commands.
func (b *Backend) CmdBufPrimitiveRestart(cb backend.CmdBuf, restart backend.PrimitiveRestart) error {
	return b.onCmdBuf(CmdPrimitiveRestart, cb, value(restart))
}

// CmdBufSetUniform implements backend.Commands.
func (b *Backend) CmdBufSetUniform(cb backend.CmdBuf, uniform backend.Uniform, v []byte) error {
	return b.onCmdBuf(CmdSetUniform, cb, func() (Command, error) {
		if _, err := b.pool.live(uniform.Index, kindUniform); err != nil {
			return Command{}, err
		}
		return Command{Object: uniform.Index, Value: slices.Clone(v)}, nil
	})
}

func (b *Backend) checkUnit(unit, limit backend.Unit) error {
	if unit >= limit {
		return fmt.Errorf("%w: unit %d, limit %d", ErrUnitRange, unit, limit)
	}
	return nil
}

// CmdBufBindTexture implements backend.Commands.
func (b *Backend) CmdBufBindTexture(cb backend.CmdBuf, tex backend.Texture, unit backend.Unit) error {
	return b.onCmdBuf(CmdBindTexture, cb, func() (Command, error) {
		if _, err := b.pool.live(tex.Index, kindTexture); err != nil {
			return Command{}, err
		}
		if err := b.checkUnit(unit, b.opts.maxTextureUnits); err != nil {
			return Command{}, err
		}
		return Command{Object: tex.Index, Unit: unit}, nil
	})
}

// CmdBufAssociateTextureUnit implements backend.Commands.
func (b *Backend) CmdBufAssociateTextureUnit(cb backend.CmdBuf, unit backend.Unit, point backend.ShaderTextureBindingPoint) error {
	return b.onCmdBuf(CmdAssociateTextureUnit, cb, func() (Command, error) {
		if _, err := b.pool.live(point.Index, kindTextureBindingPoint); err != nil {
			return Command{}, err
		}
		if err := b.checkUnit(unit, b.opts.maxTextureUnits); err != nil {
			return Command{}, err
		}
		return Command{Object: point.Index, Unit: unit}, nil
	})
}

// CmdBufBindUniformBuffer implements backend.Commands.
func (b *Backend) CmdBufBindUniformBuffer(cb backend.CmdBuf, ub backend.UniformBuffer, unit backend.Unit) error {
	return b.onCmdBuf(CmdBindUniformBuffer, cb, func() (Command, error) {
		if _, err := b.pool.live(ub.Index, kindUniformBuffer); err != nil {
			return Command{}, err
		}
		if err := b.checkUnit(unit, b.opts.maxUniformBufferUnits); err != nil {
			return Command{}, err
		}
		return Command{Object: ub.Index, Unit: unit}, nil
	})
}

// CmdBufAssociateUniformBufferUnit implements backend.Commands.
func (b *Backend) CmdBufAssociateUniformBufferUnit(cb backend.CmdBuf, unit backend.Unit, point backend.ShaderUniformBufferBindingPoint) error {
	return b.onCmdBuf(CmdAssociateUniformBufferUnit, cb, func() (Command, error) {
		if _, err := b.pool.live(point.Index, kindUniformBufferBindingPoint); err != nil {
			return Command{}, err
		}
		if err := b.checkUnit(unit, b.opts.maxUniformBufferUnits); err != nil {
			return Command{}, err
		}
		return Command{Object: point.Index, Unit: unit}, nil
	})
}

// CmdBufBindRenderTargets implements backend.Commands.
func (b *Backend) CmdBufBindRenderTargets(cb backend.CmdBuf, rt backend.RenderTargets) error {
	return b.onCmdBuf(CmdBindRenderTargets, cb, func() (Command, error) {
		if _, err := b.pool.live(rt.Index, kindRenderTargets); err != nil {
			return Command{}, err
		}
		return Command{Object: rt.Index}, nil
	})
}

// CmdBufBindShader implements backend.Commands.
func (b *Backend) CmdBufBindShader(cb backend.CmdBuf, sh backend.Shader) error {
	return b.onCmdBuf(CmdBindShader, cb, func() (Command, error) {
		if _, err := b.pool.live(sh.Index, kindShader); err != nil {
			return Command{}, err
		}
		return Command{Object: sh.Index}, nil
	})
}

// CmdBufDrawVertexArray implements backend.Commands.
func (b *Backend) CmdBufDrawVertexArray(cb backend.CmdBuf, va backend.VertexArray) error {
	return b.onCmdBuf(CmdDrawVertexArray, cb, func() (Command, error) {
		if _, err := b.pool.live(va.Index, kindVertexArray); err != nil {
			return Command{}, err
		}
		return Command{Object: va.Index}, nil
	})
}

// CmdBufFinish implements backend.Commands.
func (b *Backend) CmdBufFinish(cb backend.CmdBuf) error {
	return b.onCmdBuf(CmdFinish, cb, value(nil))
}

// Swap chains

// NewSwapChain implements backend.SwapChains.
func (b *Backend) NewSwapChain(width, height uint32, mode gputypes.PresentMode) (backend.SwapChain, error) {
	var h backend.SwapChain
	err := b.call(CmdNewSwapChain, func() (Command, error) {
		size := gputypes.NewExtent2D(width, height)
		h.Index = b.pool.add(kindSwapChain, 0, size)
		return Command{Object: h.Index, Value: mode}, nil
	})
	return h, err
}

// SwapChainRenderTargets implements backend.SwapChains. Every call returns
// the same render targets, owned by the swap chain.
func (b *Backend) SwapChainRenderTargets(sc backend.SwapChain) (backend.RenderTargets, error) {
	var h backend.RenderTargets
	err := b.call(CmdSwapChainRenderTargets, func() (Command, error) {
		if _, err := b.pool.live(sc.Index, kindSwapChain); err != nil {
			return Command{}, err
		}
		h.Index = b.pool.child(kindRenderTargets, sc.Index, "frame")
		return Command{Object: sc.Index, Value: h.Index}, nil
	})
	return h, err
}

// SwapChainPresent implements backend.SwapChains.
func (b *Backend) SwapChainPresent(sc backend.SwapChain) error {
	return b.call(CmdPresent, func() (Command, error) {
		if _, err := b.pool.live(sc.Index, kindSwapChain); err != nil {
			return Command{}, err
		}
		return Command{Object: sc.Index}, nil
	})
}

// DropSwapChain implements backend.SwapChains.
func (b *Backend) DropSwapChain(sc backend.SwapChain) error {
	return b.call(CmdDropSwapChain, func() (Command, error) {
		return Command{Object: sc.Index}, b.pool.drop(sc.Index, kindSwapChain)
	})
}
