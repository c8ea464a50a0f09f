package backend

import "github.com/gogpu/gputypes"

// Pipeline variables. Every type here is comparable with ==, which is what
// the state cache relies on to elide redundant device calls.

// BlendingMode enables or disables blending.
type BlendingMode struct {
	Enabled bool
	State   gputypes.BlendState
}

// BlendingOff disables blending.
var BlendingOff = BlendingMode{}

// Blending returns an enabled blending mode for the given state.
func Blending(state gputypes.BlendState) BlendingMode {
	return BlendingMode{Enabled: true, State: state}
}

// DepthTest enables or disables depth testing.
type DepthTest struct {
	Enabled bool
	Compare gputypes.CompareFunction
}

// DepthTestOff disables depth testing.
var DepthTestOff = DepthTest{}

// DepthTestWith returns an enabled depth test using compare.
func DepthTestWith(compare gputypes.CompareFunction) DepthTest {
	return DepthTest{Enabled: true, Compare: compare}
}

// DepthWrite enables or disables writes to the depth buffer.
type DepthWrite bool

// StencilFunc is the comparison half of a stencil test.
type StencilFunc struct {
	Face      gputypes.StencilFaceState
	Reference uint8
	Mask      uint8
}

// StencilTest enables or disables stencil testing.
type StencilTest struct {
	Enabled bool
	Func    StencilFunc
}

// StencilTestOff disables stencil testing.
var StencilTestOff = StencilTest{}

// FaceCulling enables or disables face culling.
type FaceCulling struct {
	Enabled bool
	Order   gputypes.FrontFace
	Mode    gputypes.CullMode
}

// FaceCullingOff disables face culling.
var FaceCullingOff = FaceCulling{}

// Region is a rectangle in framebuffer pixels.
type Region struct {
	X, Y          uint32
	Width, Height uint32
}

// Viewport selects the viewport. The zero value covers the whole render target.
type Viewport struct {
	Specific bool
	Region   Region
}

// ViewportWhole covers the whole bound render target.
var ViewportWhole = Viewport{}

// ViewportOf returns a viewport restricted to r.
func ViewportOf(r Region) Viewport { return Viewport{Specific: true, Region: r} }

// Scissor enables or disables the scissor test.
type Scissor struct {
	Enabled bool
	Region  Region
}

// ScissorOff disables the scissor test.
var ScissorOff = Scissor{}

// ClearColor sets the color used when render targets are bound. The zero
// value disables color clearing.
type ClearColor struct {
	Enabled bool
	Color   gputypes.Color
}

// ClearColorOf returns an enabled clear color.
func ClearColorOf(c gputypes.Color) ClearColor { return ClearColor{Enabled: true, Color: c} }

// ClearDepth sets the depth used when render targets are bound. The zero
// value disables depth clearing.
type ClearDepth struct {
	Enabled bool
	Depth   float32
}

// ClearDepthOf returns an enabled clear depth.
func ClearDepthOf(d float32) ClearDepth { return ClearDepth{Enabled: true, Depth: d} }

// SRGB toggles sRGB conversion on framebuffer writes.
type SRGB bool

// ClearStencil sets the stencil value used when render targets are bound.
// The zero value disables stencil clearing.
type ClearStencil struct {
	Enabled bool
	Value   int32
}

// ClearStencilOf returns an enabled clear stencil.
func ClearStencilOf(v int32) ClearStencil { return ClearStencil{Enabled: true, Value: v} }

// PrimitiveRestart toggles primitive restart on indexed draws.
type PrimitiveRestart bool
