package material

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithDiffuseColor is an option builder that sets the diffuse RGBA color of the material.
//
// Parameters:
//   - color: the diffuse color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the diffuse color option to a material
func WithDiffuseColor(color mgl32.Vec4) MaterialBuilderOption {
	return func(m *material) {
		m.diffuseColor = color
	}
}

// WithSpecular is an option builder that sets the specular color and exponent of the material.
// The exponent is the product of shininess and strength, as importers report them separately.
//
// Parameters:
//   - color: the specular color
//   - shininess: the specular exponent
//   - strength: a multiplier applied to the exponent
//
// Returns:
//   - MaterialBuilderOption: a function that applies the specular option to a material
func WithSpecular(color mgl32.Vec3, shininess, strength float32) MaterialBuilderOption {
	return func(m *material) {
		m.specularColor = color
		m.shininess = shininess * strength
	}
}

// WithDiffuseTexture is an option builder that sets the diffuse texture of the material.
//
// Parameters:
//   - tex: the diffuse texture
//
// Returns:
//   - MaterialBuilderOption: a function that applies the diffuse texture option to a material
func WithDiffuseTexture(tex Texture) MaterialBuilderOption {
	return func(m *material) {
		m.diffuseTexture = tex
	}
}
