package shader

import (
	_ "embed"
)

// VertexTemplate is the uber vertex stage. Feature blocks are guarded by the HAS_* symbols of PermutationKey.
//
//go:embed assets/uber_vertex.wgsl
var VertexTemplate string

// FragmentTemplate is the uber fragment stage.
//
//go:embed assets/uber_fragment.wgsl
var FragmentTemplate string

// Source returns the unprocessed source of one stage of a permutation: the key's prologue
// followed by the embedded template.
//
// Parameters:
//   - stage: the stage
//   - key: the permutation
//
// Returns:
//   - string: prologue and template
func Source(stage Stage, key PermutationKey) string {
	if stage == StageFragment {
		return key.Prologue() + FragmentTemplate
	}
	return key.Prologue() + VertexTemplate
}
