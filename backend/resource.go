package backend

import "github.com/gogpu/gputypes"

// Info is the structured build record reported by a backend.
type Info struct {
	Version       string
	GitCommitHash string
}

// ShaderSources holds the source of every stage of a shader program.
// Empty optional stages are skipped by the backend.
type ShaderSources struct {
	Vertex                 string
	TessellationControl    string
	TessellationEvaluation string
	Geometry               string
	Fragment               string
}

// UniformType describes the type of a uniform value.
type UniformType uint8

// Uniform types.
const (
	UniformInt UniformType = iota
	UniformUint
	UniformFloat
	UniformBool
	UniformVec2
	UniformVec3
	UniformVec4
	UniformMat2
	UniformMat3
	UniformMat4
)

var uniformTypeNames = [...]string{
	"Int", "Uint", "Float", "Bool",
	"Vec2", "Vec3", "Vec4",
	"Mat2", "Mat3", "Mat4",
}

func (t UniformType) String() string {
	if int(t) < len(uniformTypeNames) {
		return uniformTypeNames[t]
	}
	return "Unknown"
}

// TextureDescriptor describes a texture at creation time.
type TextureDescriptor struct {
	Label     string
	Dimension gputypes.TextureDimension
	Size      gputypes.Extent3D
	Format    gputypes.TextureFormat
	Mipmaps   uint32
	Sampler   gputypes.SamplerDescriptor
}

// TextureRegion selects texels of a texture.
type TextureRegion struct {
	Origin gputypes.Origin3D
	Size   gputypes.Extent3D
}

// VertexArrayData describes vertex storage and how to draw it.
type VertexArrayData struct {
	Layouts   []gputypes.VertexBufferLayout
	Vertices  []byte
	Indices   []uint32
	Topology  gputypes.PrimitiveTopology
	Instances uint32
}

// RenderTargetsDescriptor describes the attachments of a render targets object.
type RenderTargetsDescriptor struct {
	Size            gputypes.Extent3D
	ColorFormats    []gputypes.TextureFormat
	DepthStencil    gputypes.TextureFormat
	HasDepthStencil bool
}

// AttachmentIndex selects an attachment of a render targets object.
type AttachmentIndex uint32
