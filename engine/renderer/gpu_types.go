package renderer

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-view/engine/renderer/material"
)

// GPUDrawUniforms is the GPU-aligned per-draw uniform block shared by both shader stages.
// Size: 256 bytes, which is also the dynamic offset alignment of a uniform slot.
type GPUDrawUniforms struct {
	ViewProj     [16]float32                // offset   0: world to clip (64 bytes)
	Model        [16]float32                // offset  64: mesh to world (64 bytes)
	NormalMatrix [16]float32                // offset 128: inverse transpose of Model's 3x3 (64 bytes)
	Material     material.GPUMaterialParams // offset 192: diffuse + specular (32 bytes)
	LightDir     [4]float32                 // offset 224: direction toward the light (16 bytes)
	EyePos       [4]float32                 // offset 240: camera position (16 bytes)
}

// GPUDrawUniformsSize is the size of one uniform slot.
const GPUDrawUniformsSize = int(unsafe.Sizeof(GPUDrawUniforms{}))

// NewGPUDrawUniforms packs the per-draw uniforms.
//
// Parameters:
//   - viewProj: the view projection matrix
//   - model: the mesh to world transform
//   - m: the material, or nil for the default material
//   - lightDir: direction toward the light in world space
//   - eye: the camera position
//
// Returns:
//   - GPUDrawUniforms: the packed uniforms
func NewGPUDrawUniforms(viewProj, model mgl32.Mat4, m material.Material, lightDir, eye mgl32.Vec3) GPUDrawUniforms {
	u := GPUDrawUniforms{
		ViewProj:     viewProj,
		Model:        model,
		NormalMatrix: normalMatrix(model),
		Material:     material.NewGPUMaterialParams(m),
		EyePos:       [4]float32{eye[0], eye[1], eye[2], 1},
	}
	if lightDir.Len() > 0 {
		lightDir = lightDir.Normalize()
	}
	u.LightDir = [4]float32{lightDir[0], lightDir[1], lightDir[2], 0}
	return u
}

// normalMatrix returns the inverse transpose of the upper 3x3 of m, falling back to m itself
// when it is singular.
func normalMatrix(m mgl32.Mat4) mgl32.Mat4 {
	m3 := m.Mat3()
	if m3.Det() == 0 {
		return m3.Mat4()
	}
	return m3.Inv().Transpose().Mat4()
}
