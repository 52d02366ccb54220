package shader

import "strings"

// PermutationKey selects one variant of the uber shader. Each set bit enables a feature block.
type PermutationKey uint32

const (
	// FlagTexturing samples the diffuse texture.
	FlagTexturing PermutationKey = 1 << iota

	// FlagVertexColor multiplies the base color by the per-vertex color.
	FlagVertexColor

	// FlagSpecular adds a Phong specular term. Only meaningful together with FlagLighting.
	FlagSpecular

	// FlagSkinning marks meshes whose vertices are re-skinned every frame.
	FlagSkinning

	// FlagLighting enables directional diffuse lighting.
	FlagLighting

	flagCount = iota
)

// PermutationCount is the number of distinct keys.
const PermutationCount = 1 << flagCount

var flagDefines = [flagCount]struct {
	name   string
	define string
}{
	{"texturing", "HAS_COLOR_MAP"},
	{"vertex_color", "HAS_VERTEX_COLOR"},
	{"specular", "HAS_PHONG_SPECULAR_SHADING"},
	{"skinning", "HAS_SKINNING"},
	{"lighting", "HAS_LIGHTING"},
}

// Has reports whether every bit of flag is set on k.
//
// Parameters:
//   - flag: one or more flags
//
// Returns:
//   - bool: true if all bits of flag are set
func (k PermutationKey) Has(flag PermutationKey) bool {
	return k&flag == flag
}

// Defines returns the preprocessor symbols enabled by k in flag order.
//
// Returns:
//   - []string: the HAS_* symbols
func (k PermutationKey) Defines() []string {
	var out []string
	for i, f := range flagDefines {
		if k&(1<<i) != 0 {
			out = append(out, f.define)
		}
	}
	return out
}

// Prologue returns the #define block prepended to both templates.
//
// Returns:
//   - string: one "#define HAS_*" line per set flag
func (k PermutationKey) Prologue() string {
	var sb strings.Builder
	for _, d := range k.Defines() {
		sb.WriteString("#define ")
		sb.WriteString(d)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (k PermutationKey) String() string {
	if k == 0 {
		return "base"
	}
	var parts []string
	for i, f := range flagDefines {
		if k&(1<<i) != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "+")
}

// Stage identifies one programmable stage of a program.
type Stage int

const (
	// StageVertex is the vertex stage.
	StageVertex Stage = iota

	// StageFragment is the fragment stage.
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}
