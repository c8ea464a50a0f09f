package backend

import "github.com/gogpu/gputypes"

// Backend is the capability interface a concrete graphics backend provides.
//
// Every method may be called from any goroutine, but calls targeting one
// command buffer are always issued sequentially. Errors are returned as-is
// to the caller and are never retried.
type Backend interface {
	Querier
	Resources
	Commands
	SwapChains
}

// Querier reports immutable backend metadata.
type Querier interface {
	Author() (string, error)
	Name() (string, error)
	Version() (string, error)
	ShadingLangVersion() (string, error)
	Info() (Info, error)

	// MaxTextureUnits is the number of texture units a command buffer can
	// bind at once.
	MaxTextureUnits() (Unit, error)

	// MaxUniformBufferUnits is the number of uniform-buffer units a command
	// buffer can bind at once.
	MaxUniformBufferUnits() (Unit, error)
}

// Resources creates, queries and destroys device objects.
type Resources interface {
	NewVertexArray(data VertexArrayData) (VertexArray, error)
	UpdateVertexArray(va VertexArray, data VertexArrayData) error
	DropVertexArray(va VertexArray) error

	NewRenderTargets(desc RenderTargetsDescriptor) (RenderTargets, error)
	ColorAttachment(rt RenderTargets, index AttachmentIndex) (ColorAttachment, error)
	DepthStencilAttachment(rt RenderTargets, index AttachmentIndex) (DepthStencilAttachment, error)
	DropRenderTargets(rt RenderTargets) error

	NewShader(sources ShaderSources) (Shader, error)
	ShaderUniform(sh Shader, name string, ty UniformType) (Uniform, error)
	ShaderUniformBuffer(sh Shader, name string) (UniformBuffer, error)
	ShaderTextureBindingPoint(sh Shader, name string) (ShaderTextureBindingPoint, error)
	ShaderUniformBufferBindingPoint(sh Shader, name string) (ShaderUniformBufferBindingPoint, error)
	DropShader(sh Shader) error

	NewTexture(desc TextureDescriptor) (Texture, error)
	ResizeTexture(tex Texture, size gputypes.Extent3D) error
	SetTexels(tex Texture, region TextureRegion, texels []byte) error
	ClearTexels(tex Texture, region TextureRegion, value []byte) error
	DropTexture(tex Texture) error
}

// Commands records state changes and draws onto command buffers.
type Commands interface {
	NewCmdBuf() (CmdBuf, error)
	DropCmdBuf(cb CmdBuf) error

	CmdBufBlendingMode(cb CmdBuf, mode BlendingMode) error
	CmdBufDepthTest(cb CmdBuf, test DepthTest) error
	CmdBufDepthWrite(cb CmdBuf, write DepthWrite) error
	CmdBufStencilTest(cb CmdBuf, test StencilTest) error
	CmdBufFaceCulling(cb CmdBuf, culling FaceCulling) error
	CmdBufViewport(cb CmdBuf, viewport Viewport) error
	CmdBufScissor(cb CmdBuf, scissor Scissor) error
	CmdBufClearColor(cb CmdBuf, color ClearColor) error
	CmdBufClearDepth(cb CmdBuf, depth ClearDepth) error
	CmdBufClearStencil(cb CmdBuf, stencil ClearStencil) error
	CmdBufSRGB(cb CmdBuf, srgb SRGB) error
	CmdBufPrimitiveRestart(cb CmdBuf, restart PrimitiveRestart) error

	CmdBufSetUniform(cb CmdBuf, uniform Uniform, value []byte) error

	CmdBufBindTexture(cb CmdBuf, tex Texture, unit Unit) error
	CmdBufAssociateTextureUnit(cb CmdBuf, unit Unit, point ShaderTextureBindingPoint) error
	CmdBufBindUniformBuffer(cb CmdBuf, ub UniformBuffer, unit Unit) error
	CmdBufAssociateUniformBufferUnit(cb CmdBuf, unit Unit, point ShaderUniformBufferBindingPoint) error

	CmdBufBindRenderTargets(cb CmdBuf, rt RenderTargets) error
	CmdBufBindShader(cb CmdBuf, sh Shader) error
	CmdBufDrawVertexArray(cb CmdBuf, va VertexArray) error

	// CmdBufFinish marks the command buffer ready for submission.
	CmdBufFinish(cb CmdBuf) error
}

// SwapChains manages presentable surfaces.
type SwapChains interface {
	NewSwapChain(width, height uint32, mode gputypes.PresentMode) (SwapChain, error)

	// SwapChainRenderTargets returns the render targets to draw into for the
	// current frame. They belong to the swap chain and must not be dropped.
	SwapChainRenderTargets(sc SwapChain) (RenderTargets, error)

	SwapChainPresent(sc SwapChain) error
	DropSwapChain(sc SwapChain) error
}
