package material

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultDiffuseColor is used by materials that declare no diffuse color.
var DefaultDiffuseColor = mgl32.Vec4{0.8, 0.8, 0.8, 1}

type material struct {
	name           string
	diffuseColor   mgl32.Vec4
	specularColor  mgl32.Vec3
	shininess      float32
	diffuseTexture Texture
}

// Material defines the interface for the surface description of a mesh.
// Materials are immutable after construction; residency and classification state live in
// the Texture and the Classifier.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the material name
	Name() string

	// DiffuseColor retrieves the base diffuse RGBA color. An alpha below 1 makes the material blended.
	//
	// Returns:
	//   - mgl32.Vec4: the diffuse color
	DiffuseColor() mgl32.Vec4

	// SpecularColor retrieves the specular RGB color. Black disables the specular term.
	//
	// Returns:
	//   - mgl32.Vec3: the specular color
	SpecularColor() mgl32.Vec3

	// Shininess retrieves the specular exponent.
	//
	// Returns:
	//   - float32: the specular exponent
	Shininess() float32

	// HasSpecular reports whether the specular term contributes anything.
	//
	// Returns:
	//   - bool: true if the specular color is not black and the exponent is positive
	HasSpecular() bool

	// DiffuseTexture retrieves the diffuse texture, or nil for untextured materials.
	//
	// Returns:
	//   - Texture: the diffuse texture or nil
	DiffuseTexture() Texture
}

var _ Material = &material{}

// NewMaterial creates a new Material with the given options.
// The diffuse color defaults to DefaultDiffuseColor and the specular term is off.
//
// Parameters:
//   - options: functional options to configure the material
//
// Returns:
//   - Material: the new material
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		diffuseColor: DefaultDiffuseColor,
		shininess:    1,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) DiffuseColor() mgl32.Vec4 {
	return m.diffuseColor
}

func (m *material) SpecularColor() mgl32.Vec3 {
	return m.specularColor
}

func (m *material) Shininess() float32 {
	return m.shininess
}

func (m *material) HasSpecular() bool {
	return m.shininess > 0 && m.specularColor != (mgl32.Vec3{})
}

func (m *material) DiffuseTexture() Texture {
	return m.diffuseTexture
}
