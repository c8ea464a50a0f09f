package backend

import "fmt"

// ScarceIndex identifies a device-side object. Two handles with equal indices
// refer to the same object.
type ScarceIndex uint64

// Unit is a binding slot index for textures or uniform buffers.
type Unit uint32

// Handle is the common part of every resource handle. Raw carries whatever
// the backend needs to find the device object again.
type Handle struct {
	Index ScarceIndex
	Raw   any
}

// ScarceIndex returns the identity of the device object.
func (h Handle) ScarceIndex() ScarceIndex { return h.Index }

func (h Handle) String() string { return fmt.Sprintf("#%d", h.Index) }

// Scarce is implemented by every handle type. Share returns a duplicate that
// refers to the same device object.
type Scarce[H any] interface {
	ScarceIndex() ScarceIndex
	Share() H
}

// VertexArray is a vertex array object.
type VertexArray struct{ Handle }

// Share duplicates the handle.
func (h VertexArray) Share() VertexArray { return h }

// RenderTargets is a framebuffer with its attachments.
type RenderTargets struct{ Handle }

// Share duplicates the handle.
func (h RenderTargets) Share() RenderTargets { return h }

// ColorAttachment is a color attachment of a RenderTargets.
type ColorAttachment struct{ Handle }

// Share duplicates the handle.
func (h ColorAttachment) Share() ColorAttachment { return h }

// DepthStencilAttachment is the depth/stencil attachment of a RenderTargets.
type DepthStencilAttachment struct{ Handle }

// Share duplicates the handle.
func (h DepthStencilAttachment) Share() DepthStencilAttachment { return h }

// Shader is a linked shader program.
type Shader struct{ Handle }

// Share duplicates the handle.
func (h Shader) Share() Shader { return h }

// Uniform is a named uniform of a Shader.
type Uniform struct{ Handle }

// Share duplicates the handle.
func (h Uniform) Share() Uniform { return h }

// UniformBuffer is a uniform buffer declared by a Shader.
type UniformBuffer struct{ Handle }

// Share duplicates the handle.
func (h UniformBuffer) Share() UniformBuffer { return h }

// ShaderTextureBindingPoint is the shader side of a texture unit association.
type ShaderTextureBindingPoint struct{ Handle }

// Share duplicates the handle.
func (h ShaderTextureBindingPoint) Share() ShaderTextureBindingPoint { return h }

// ShaderUniformBufferBindingPoint is the shader side of a uniform-buffer unit
// association.
type ShaderUniformBufferBindingPoint struct{ Handle }

// Share duplicates the handle.
func (h ShaderUniformBufferBindingPoint) Share() ShaderUniformBufferBindingPoint { return h }

// Texture is a sampled texture.
type Texture struct{ Handle }

// Share duplicates the handle.
func (h Texture) Share() Texture { return h }

// CmdBuf is a command buffer.
type CmdBuf struct{ Handle }

// Share duplicates the handle.
func (h CmdBuf) Share() CmdBuf { return h }

// SwapChain is a presentable chain of render targets.
type SwapChain struct{ Handle }

// Share duplicates the handle.
func (h SwapChain) Share() SwapChain { return h }
