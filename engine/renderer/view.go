package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-view/engine/model"
)

// RenderFlags toggle the features a frame is drawn with.
type RenderFlags uint32

const (
	// RenderTextured samples the diffuse texture of materials that have a resident one.
	RenderTextured RenderFlags = 1 << iota

	// RenderShaded lights meshes that carry normals.
	RenderShaded

	// RenderAnimated marks the scene as playing a clip, so skinned meshes use the skinning permutation.
	RenderAnimated
)

// DefaultRenderFlags draws textured and shaded.
const DefaultRenderFlags = RenderTextured | RenderShaded

// Has reports whether every bit of flag is set.
func (f RenderFlags) Has(flag RenderFlags) bool {
	return f&flag == flag
}

// FrameSource is the evaluated state of one scene for the frame being drawn.
type FrameSource interface {
	// Asset returns the validated asset, whose skinned meshes hold the current pose.
	Asset() *model.Asset

	// WorldTransform returns the world transform of a node for this frame.
	WorldTransform(node int) mgl32.Mat4

	// RootTransform returns the world transform of the root node. Skinned meshes are drawn with it.
	RootTransform() mgl32.Mat4
}

// ViewState is everything besides the camera that one Render call needs.
type ViewState struct {
	// Frame is the scene to draw.
	Frame FrameSource

	// Projection overrides the camera's projection when it is not the zero matrix.
	Projection mgl32.Mat4

	// LightDirection points from the scene toward the directional light.
	LightDirection mgl32.Vec3

	// Flags select the features to draw with.
	Flags RenderFlags

	// Width and Height are the viewport in pixels. A change reconfigures the surface; zero keeps the current size.
	Width  int
	Height int
}
