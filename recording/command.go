package recording

import (
	"fmt"

	"github.com/gogpu/gpustate/backend"
)

// CommandType identifies the backend call a command records.
type CommandType uint8

const (
	// Queries
	CmdAuthor                CommandType = iota // Author query
	CmdName                                     // Name query
	CmdVersion                                  // Version query
	CmdShadingLangVersion                       // Shading language version query
	CmdInfo                                     // Info query
	CmdMaxTextureUnits                          // Texture unit limit query
	CmdMaxUniformBufferUnits                    // Uniform-buffer unit limit query

	// Resources
	CmdNewVertexArray                  // Create a vertex array
	CmdUpdateVertexArray               // Replace vertex array contents
	CmdDropVertexArray                 // Destroy a vertex array
	CmdNewRenderTargets                // Create render targets
	CmdColorAttachment                 // Look up a color attachment
	CmdDepthStencilAttachment          // Look up a depth/stencil attachment
	CmdDropRenderTargets               // Destroy render targets
	CmdNewShader                       // Create a shader
	CmdShaderUniform                   // Look up a uniform
	CmdShaderUniformBuffer             // Look up a uniform buffer
	CmdShaderTextureBindingPoint       // Look up a texture binding point
	CmdShaderUniformBufferBindingPoint // Look up a uniform-buffer binding point
	CmdDropShader                      // Destroy a shader
	CmdNewTexture                      // Create a texture
	CmdResizeTexture                   // Resize a texture
	CmdSetTexels                       // Upload texels
	CmdClearTexels                     // Clear texels
	CmdDropTexture                     // Destroy a texture

	// Command buffers
	CmdNewCmdBuf                  // Create a command buffer
	CmdDropCmdBuf                 // Destroy a command buffer
	CmdBlendingMode               // Set blending
	CmdDepthTest                  // Set depth test
	CmdDepthWrite                 // Set depth write
	CmdStencilTest                // Set stencil test
	CmdFaceCulling                // Set face culling
	CmdViewport                   // Set viewport
	CmdScissor                    // Set scissor
	CmdClearColor                 // Set clear color
	CmdClearDepth                 // Set clear depth
	CmdClearStencil               // Set clear stencil
	CmdSRGB                       // Toggle sRGB
	CmdPrimitiveRestart           // Toggle primitive restart
	CmdSetUniform                 // Upload a uniform value
	CmdBindTexture                // Bind a texture to a unit
	CmdAssociateTextureUnit       // Associate a texture unit with a binding point
	CmdBindUniformBuffer          // Bind a uniform buffer to a unit
	CmdAssociateUniformBufferUnit // Associate a uniform-buffer unit with a binding point
	CmdBindRenderTargets          // Bind render targets
	CmdBindShader                 // Bind a shader
	CmdDrawVertexArray            // Draw a vertex array
	CmdFinish                     // Finish a command buffer

	// Swap chains
	CmdNewSwapChain           // Create a swap chain
	CmdSwapChainRenderTargets // Fetch the current render targets
	CmdPresent                // Present a swap chain
	CmdDropSwapChain          // Destroy a swap chain
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdAuthor:                          "Author",
	CmdName:                            "Name",
	CmdVersion:                         "Version",
	CmdShadingLangVersion:              "ShadingLangVersion",
	CmdInfo:                            "Info",
	CmdMaxTextureUnits:                 "MaxTextureUnits",
	CmdMaxUniformBufferUnits:           "MaxUniformBufferUnits",
	CmdNewVertexArray:                  "NewVertexArray",
	CmdUpdateVertexArray:               "UpdateVertexArray",
	CmdDropVertexArray:                 "DropVertexArray",
	CmdNewRenderTargets:                "NewRenderTargets",
	CmdColorAttachment:                 "ColorAttachment",
	CmdDepthStencilAttachment:          "DepthStencilAttachment",
	CmdDropRenderTargets:               "DropRenderTargets",
	CmdNewShader:                       "NewShader",
	CmdShaderUniform:                   "ShaderUniform",
	CmdShaderUniformBuffer:             "ShaderUniformBuffer",
	CmdShaderTextureBindingPoint:       "ShaderTextureBindingPoint",
	CmdShaderUniformBufferBindingPoint: "ShaderUniformBufferBindingPoint",
	CmdDropShader:                      "DropShader",
	CmdNewTexture:                      "NewTexture",
	CmdResizeTexture:                   "ResizeTexture",
	CmdSetTexels:                       "SetTexels",
	CmdClearTexels:                     "ClearTexels",
	CmdDropTexture:                     "DropTexture",
	CmdNewCmdBuf:                       "NewCmdBuf",
	CmdDropCmdBuf:                      "DropCmdBuf",
	CmdBlendingMode:                    "BlendingMode",
	CmdDepthTest:                       "DepthTest",
	CmdDepthWrite:                      "DepthWrite",
	CmdStencilTest:                     "StencilTest",
	CmdFaceCulling:                     "FaceCulling",
	CmdViewport:                        "Viewport",
	CmdScissor:                         "Scissor",
	CmdClearColor:                      "ClearColor",
	CmdClearDepth:                      "ClearDepth",
	CmdClearStencil:                    "ClearStencil",
	CmdSRGB:                            "SRGB",
	CmdPrimitiveRestart:                "PrimitiveRestart",
	CmdSetUniform:                      "SetUniform",
	CmdBindTexture:                     "BindTexture",
	CmdAssociateTextureUnit:            "AssociateTextureUnit",
	CmdBindUniformBuffer:               "BindUniformBuffer",
	CmdAssociateUniformBufferUnit:      "AssociateUniformBufferUnit",
	CmdBindRenderTargets:               "BindRenderTargets",
	CmdBindShader:                      "BindShader",
	CmdDrawVertexArray:                 "DrawVertexArray",
	CmdFinish:                          "Finish",
	CmdNewSwapChain:                    "NewSwapChain",
	CmdSwapChainRenderTargets:          "SwapChainRenderTargets",
	CmdPresent:                         "Present",
	CmdDropSwapChain:                   "DropSwapChain",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is one recorded backend call.
type Command struct {
	Type CommandType

	// CmdBuf is the command buffer the call targets, or 0.
	CmdBuf backend.ScarceIndex

	// Object is the object the call creates or targets, or 0.
	Object backend.ScarceIndex

	// Unit is the binding slot for bind and associate calls.
	Unit backend.Unit

	// Value is the call argument, if any (pipeline value, name, size, ...).
	Value any
}

func (c Command) String() string {
	s := c.Type.String()
	if c.CmdBuf != 0 {
		s += fmt.Sprintf(" cb=%d", c.CmdBuf)
	}
	if c.Object != 0 {
		s += fmt.Sprintf(" obj=%d", c.Object)
	}
	switch c.Type {
	case CmdBindTexture, CmdAssociateTextureUnit, CmdBindUniformBuffer, CmdAssociateUniformBufferUnit:
		s += fmt.Sprintf(" unit=%d", c.Unit)
	}
	if c.Value != nil {
		s += fmt.Sprintf(" %v", c.Value)
	}
	return s
}
