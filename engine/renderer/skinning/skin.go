package skinning

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-view/engine/model"
)

// skinRange writes the skinned positions and normals of vertices [lo, hi) into the mesh's pose buffer.
// Weights are divided by their sum; a vertex whose weights sum to zero keeps its canonical data.
// Normals use only the 3x3 part of each bone matrix and are renormalized.
func skinRange(m *model.Mesh, bones []mgl32.Mat4, lo, hi int) {
	pose := m.Pose
	hasNormals := len(m.Normals) > 0
	for v := lo; v < hi; v++ {
		weights := m.Influences[v]
		var sum float32
		for _, w := range weights {
			sum += w.Weight
		}
		if sum <= 0 {
			pose.Positions[v] = m.Positions[v]
			if hasNormals {
				pose.Normals[v] = m.Normals[v]
			}
			continue
		}

		inv := 1 / sum
		rest := m.Positions[v].Vec4(1)
		var pos, nrm mgl32.Vec3
		for _, w := range weights {
			f := w.Weight * inv
			bone := bones[w.Bone]
			pos = pos.Add(bone.Mul4x1(rest).Vec3().Mul(f))
			if hasNormals {
				nrm = nrm.Add(bone.Mat3().Mul3x1(m.Normals[v]).Mul(f))
			}
		}
		pose.Positions[v] = pos
		if hasNormals {
			if l := nrm.Len(); l > 0 {
				pose.Normals[v] = nrm.Mul(1 / l)
			} else {
				pose.Normals[v] = m.Normals[v]
			}
		}
	}
}
