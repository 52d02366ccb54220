package model

import (
	"unsafe"
)

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Matches the VertexInput struct of the uber vertex shader.
// Size: 48 bytes.
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in mesh space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes)
	TexCoord [2]float32 // offset 24: UV texture coordinate (8 bytes)
	Color    [4]float32 // offset 32: per-vertex RGBA color (16 bytes)
}

// GPUVertexSize is the stride of GPUVertex in a vertex buffer.
const GPUVertexSize = int(unsafe.Sizeof(GPUVertex{}))

// PackVertices interleaves the mesh's current positions and normals with its UVs and colors.
// Missing normals default to +Z and missing colors to opaque white.
//
// Parameters:
//   - m: the mesh to pack
//   - out: destination slice, reused when it has enough capacity
//
// Returns:
//   - []GPUVertex: the packed vertices
func PackVertices(m *Mesh, out []GPUVertex) []GPUVertex {
	positions := m.CurrentPositions()
	normals := m.CurrentNormals()
	if cap(out) < len(positions) {
		out = make([]GPUVertex, len(positions))
	}
	out = out[:len(positions)]
	for i, p := range positions {
		v := GPUVertex{
			Position: p,
			Normal:   [3]float32{0, 0, 1},
			Color:    [4]float32{1, 1, 1, 1},
		}
		if i < len(normals) {
			v.Normal = normals[i]
		}
		if i < len(m.UVs) {
			v.TexCoord = m.UVs[i]
		}
		if i < len(m.Colors) {
			v.Color = m.Colors[i]
		}
		out[i] = v
	}
	return out
}
