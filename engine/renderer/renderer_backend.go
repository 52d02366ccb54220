package renderer

import (
	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/shader"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8x multisample anti-aliasing. Adapter-dependent.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16x multisample anti-aliasing. Adapter-dependent.
	MSAA16x MSAASampleCount = 16
)

// MeshHandle is a vertex and index buffer pair owned by a RendererBackend.
type MeshHandle any

// DrawCommand is one indexed draw of a mesh with a linked shader program.
type DrawCommand struct {
	// Program is the permutation to draw with.
	Program *shader.Program

	// Variant selects the opaque or the blended pipeline of the program.
	Variant pipeline.Variant

	// Mesh is the geometry to draw.
	Mesh MeshHandle

	// Texture is bound as the color map; nil binds a 1x1 white texture.
	Texture material.TextureHandle

	// Uniforms is the per-draw uniform block.
	Uniforms GPUDrawUniforms
}

// RendererBackend is the GPU API behind the Renderer. It compiles shader permutations for the
// shader cache, uploads textures for the material classifier and records draws.
// Every method must be called from the render goroutine.
type RendererBackend interface {
	shader.Compiler
	material.TextureUploader

	// ConfigureSurface (re)creates the swapchain and the attachments that depend on its size.
	//
	// Parameters:
	//   - width: surface width in pixels
	//   - height: surface height in pixels
	//
	// Returns:
	//   - error: error if an attachment could not be created
	ConfigureSurface(width, height int) error

	// SetPresentMode selects the present mode used by the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the color the frame is cleared to.
	//
	// Parameters:
	//   - rgba: the clear color
	SetClearColor(rgba [4]float64)

	// UploadMesh creates vertex and index buffers.
	//
	// Parameters:
	//   - label: debug label for the buffers
	//   - vertices: the packed vertices
	//   - indices: the triangle indices
	//
	// Returns:
	//   - MeshHandle: the buffers
	//   - error: error if a buffer could not be created
	UploadMesh(label string, vertices []model.GPUVertex, indices []uint32) (MeshHandle, error)

	// UpdateMesh overwrites the vertex buffer of a mesh. The vertex count must not change.
	//
	// Parameters:
	//   - handle: the mesh
	//   - vertices: the new vertices
	//
	// Returns:
	//   - error: error if the vertex count differs from the upload
	UpdateMesh(handle MeshHandle, vertices []model.GPUVertex) error

	// ReleaseMesh destroys the buffers of a mesh.
	//
	// Parameters:
	//   - handle: the mesh
	ReleaseMesh(handle MeshHandle)

	// BeginFrame acquires the next surface image and opens the render pass.
	//
	// Parameters:
	//   - drawCount: the number of Draw calls that will follow
	//
	// Returns:
	//   - error: error if the surface image could not be acquired
	BeginFrame(drawCount int) error

	// Draw records one draw into the open render pass.
	//
	// Parameters:
	//   - cmd: the draw
	//
	// Returns:
	//   - error: error if the command references a released or foreign resource
	Draw(cmd DrawCommand) error

	// EndFrame closes the render pass and submits the recorded commands.
	//
	// Returns:
	//   - error: error if the command buffer could not be finished
	EndFrame() error

	// Present shows the frame submitted by EndFrame.
	Present()

	// Release destroys every GPU object the backend still owns.
	Release()
}
