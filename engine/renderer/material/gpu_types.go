package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialParams is the GPU-aligned material block of the per-draw uniform.
// Size: 32 bytes (two vec4<f32>).
type GPUMaterialParams struct {
	DiffuseColor [4]float32 // offset  0: RGBA diffuse color (16 bytes)
	Specular     [4]float32 // offset 16: RGB specular color + exponent in w (16 bytes)
}

// NewGPUMaterialParams packs a material for upload. A nil material yields the default diffuse color.
//
// Parameters:
//   - m: the material, or nil
//
// Returns:
//   - GPUMaterialParams: the packed parameters
func NewGPUMaterialParams(m Material) GPUMaterialParams {
	if m == nil {
		return GPUMaterialParams{DiffuseColor: DefaultDiffuseColor}
	}
	spec := m.SpecularColor()
	return GPUMaterialParams{
		DiffuseColor: m.DiffuseColor(),
		Specular:     [4]float32{spec[0], spec[1], spec[2], m.Shininess()},
	}
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, 32)
	for i, f := range g.DiffuseColor {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	for i, f := range g.Specular {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(f))
	}
	return buf
}
