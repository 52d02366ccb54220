package model

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Validate checks the structural integrity of an asset and prepares it for playback.
// On success it records the parent-before-child node order, computes mesh bounds and allocates
// a pose buffer for every skinned mesh. Validation is the only place bone and node indices are
// range-checked; per-frame code relies on it.
//
// Parameters:
//   - a: the asset to validate
//
// Returns:
//   - error: nil, or an *AssetIntegrityError describing the first defect found
func Validate(a *Asset) error {
	if a == nil || a.Graph == nil || len(a.Graph.Nodes) == 0 {
		return integrityErrorf(IntegrityBadHierarchy, "asset", "no scene graph")
	}
	if err := validateGraph(a); err != nil {
		return err
	}
	for i, m := range a.Meshes {
		if err := validateMesh(a, i, m); err != nil {
			return err
		}
	}
	for i, c := range a.Clips {
		if err := validateClip(a, i, c); err != nil {
			return err
		}
	}

	for _, m := range a.Meshes {
		m.boundsCenter, m.boundsRadius = boundingSphere(m.Positions)
		if m.Skinned() {
			allocatePose(m)
		} else {
			m.Pose = nil
		}
	}
	a.validated = true
	return nil
}

func validateGraph(a *Asset) error {
	g := a.Graph
	n := len(g.Nodes)
	if g.Root < 0 || g.Root >= n {
		return integrityErrorf(IntegrityBadHierarchy, "graph", "root index %d out of range [0, %d)", g.Root, n)
	}

	for i := range g.Nodes {
		node := &g.Nodes[i]
		subject := nodeSubject(g, i)
		if i == g.Root {
			if node.Parent != -1 {
				return integrityErrorf(IntegrityBadHierarchy, subject, "root has parent %d", node.Parent)
			}
		} else {
			if node.Parent < 0 || node.Parent >= n {
				return integrityErrorf(IntegrityBadHierarchy, subject, "parent %d out of range [0, %d)", node.Parent, n)
			}
			if node.Parent == i {
				return integrityErrorf(IntegrityBadHierarchy, subject, "node is its own parent")
			}
		}
		for _, c := range node.Children {
			if c < 0 || c >= n {
				return integrityErrorf(IntegrityBadNodeIndex, subject, "child %d out of range [0, %d)", c, n)
			}
			if g.Nodes[c].Parent != i {
				return integrityErrorf(IntegrityBadHierarchy, subject, "child %d names parent %d", c, g.Nodes[c].Parent)
			}
		}
		for _, m := range node.Meshes {
			if m < 0 || m >= len(a.Meshes) {
				return integrityErrorf(IntegrityBadMeshIndex, subject, "mesh %d out of range [0, %d)", m, len(a.Meshes))
			}
		}
		if !finiteMat4(node.Local) {
			return integrityErrorf(IntegrityBadValue, subject, "local transform is not finite")
		}
	}

	// breadth-first from the root; a node reached twice or never reached means the child lists are not a tree
	order := make([]int, 0, n)
	seen := make([]bool, n)
	order = append(order, g.Root)
	seen[g.Root] = true
	for head := 0; head < len(order); head++ {
		for _, c := range g.Nodes[order[head]].Children {
			if seen[c] {
				return integrityErrorf(IntegrityBadHierarchy, nodeSubject(g, c), "reached twice from the root")
			}
			seen[c] = true
			order = append(order, c)
		}
	}
	if len(order) != n {
		for i := range seen {
			if !seen[i] {
				return integrityErrorf(IntegrityBadHierarchy, nodeSubject(g, i), "not reachable from the root")
			}
		}
	}
	g.order = order
	return nil
}

func validateMesh(a *Asset, mi int, m *Mesh) error {
	if m == nil {
		return integrityErrorf(IntegrityBadMeshIndex, fmt.Sprintf("mesh %d", mi), "mesh is nil")
	}
	subject := fmt.Sprintf("mesh %d %q", mi, m.Name)
	vc := len(m.Positions)
	if len(m.Normals) != 0 && len(m.Normals) != vc {
		return integrityErrorf(IntegrityShapeMismatch, subject, "%d normals for %d vertices", len(m.Normals), vc)
	}
	if len(m.UVs) != 0 && len(m.UVs) != vc {
		return integrityErrorf(IntegrityShapeMismatch, subject, "%d uvs for %d vertices", len(m.UVs), vc)
	}
	if len(m.Colors) != 0 && len(m.Colors) != vc {
		return integrityErrorf(IntegrityShapeMismatch, subject, "%d colors for %d vertices", len(m.Colors), vc)
	}
	if len(m.Influences) != 0 && len(m.Influences) != vc {
		return integrityErrorf(IntegrityShapeMismatch, subject, "%d influence lists for %d vertices", len(m.Influences), vc)
	}
	if len(m.Indices)%3 != 0 {
		return integrityErrorf(IntegrityShapeMismatch, subject, "%d indices is not a triangle list", len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= vc {
			return integrityErrorf(IntegrityShapeMismatch, subject, "index %d references vertex %d of %d", i, idx, vc)
		}
	}
	if m.MaterialIndex < -1 || m.MaterialIndex >= len(a.Materials) {
		return integrityErrorf(IntegrityBadValue, subject, "material %d out of range [-1, %d)", m.MaterialIndex, len(a.Materials))
	}
	for i, p := range m.Positions {
		if !finiteVec3(p) {
			return integrityErrorf(IntegrityBadValue, subject, "vertex %d position is not finite", i)
		}
	}

	nodes := len(a.Graph.Nodes)
	for b, bone := range m.Bones {
		if bone.Node < 0 || bone.Node >= nodes {
			return integrityErrorf(IntegrityBadNodeIndex, fmt.Sprintf("%s bone %d %q", subject, b, bone.Name),
				"node %d out of range [0, %d)", bone.Node, nodes)
		}
		if !finiteMat4(bone.InverseBind) {
			return integrityErrorf(IntegrityBadValue, fmt.Sprintf("%s bone %d %q", subject, b, bone.Name),
				"inverse bind matrix is not finite")
		}
	}
	for v, weights := range m.Influences {
		for _, w := range weights {
			if w.Bone < 0 || w.Bone >= len(m.Bones) {
				return integrityErrorf(IntegrityBadBoneIndex, fmt.Sprintf("%s vertex %d", subject, v),
					"bone %d out of range [0, %d)", w.Bone, len(m.Bones))
			}
			if math32.IsNaN(w.Weight) || math32.IsInf(w.Weight, 0) || w.Weight < 0 {
				return integrityErrorf(IntegrityBadValue, fmt.Sprintf("%s vertex %d", subject, v),
					"weight %v for bone %d", w.Weight, w.Bone)
			}
		}
	}
	return nil
}

func validateClip(a *Asset, ci int, c *AnimationClip) error {
	if c == nil {
		return integrityErrorf(IntegrityBadValue, fmt.Sprintf("clip %d", ci), "clip is nil")
	}
	subject := fmt.Sprintf("clip %d %q", ci, c.Name)
	if !finite(c.Duration) || c.Duration < 0 {
		return integrityErrorf(IntegrityBadValue, subject, "duration %v", c.Duration)
	}
	if !finite(c.TicksPerSecond) || c.TicksPerSecond < 0 {
		return integrityErrorf(IntegrityBadValue, subject, "ticks per second %v", c.TicksPerSecond)
	}
	nodes := len(a.Graph.Nodes)
	for node, ch := range c.Channels {
		chSubject := fmt.Sprintf("%s channel for node %d", subject, node)
		if node < 0 || node >= nodes {
			return integrityErrorf(IntegrityBadNodeIndex, chSubject, "node %d out of range [0, %d)", node, nodes)
		}
		if ch == nil {
			return integrityErrorf(IntegrityBadValue, chSubject, "channel is nil")
		}
		if err := checkVectorKeys(chSubject+" translation", ch.Translations); err != nil {
			return err
		}
		if err := checkVectorKeys(chSubject+" scale", ch.Scales); err != nil {
			return err
		}
		prev := math32.Inf(-1)
		for k, key := range ch.Rotations {
			if !finite(key.Time) {
				return integrityErrorf(IntegrityBadValue, chSubject+" rotation", "key %d time %v", k, key.Time)
			}
			if key.Time < prev {
				return integrityErrorf(IntegrityNonMonotonicKeys, chSubject+" rotation", "key %d time %v before %v", k, key.Time, prev)
			}
			if key.Value.Len() == 0 {
				return integrityErrorf(IntegrityBadValue, chSubject+" rotation", "key %d is a zero quaternion", k)
			}
			prev = key.Time
		}
	}
	return nil
}

func checkVectorKeys(subject string, keys []VectorKeyframe) error {
	prev := math32.Inf(-1)
	for k, key := range keys {
		if !finite(key.Time) || !finiteVec3(key.Value) {
			return integrityErrorf(IntegrityBadValue, subject, "key %d is not finite", k)
		}
		if key.Time < prev {
			return integrityErrorf(IntegrityNonMonotonicKeys, subject, "key %d time %v before %v", k, key.Time, prev)
		}
		prev = key.Time
	}
	return nil
}

func allocatePose(m *Mesh) {
	vc := len(m.Positions)
	if m.Pose != nil && len(m.Pose.Positions) == vc && len(m.Pose.Normals) == len(m.Normals) {
		return
	}
	pose := &PoseBuffer{
		Positions: make([]mgl32.Vec3, vc),
		Normals:   make([]mgl32.Vec3, len(m.Normals)),
	}
	copy(pose.Positions, m.Positions)
	copy(pose.Normals, m.Normals)
	m.Pose = pose
}

func boundingSphere(points []mgl32.Vec3) (mgl32.Vec3, float32) {
	if len(points) == 0 {
		return mgl32.Vec3{}, 0
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math32.Min(lo[k], p[k])
			hi[k] = math32.Max(hi[k], p[k])
		}
	}
	center := lo.Add(hi).Mul(0.5)
	var radius float32
	for _, p := range points {
		radius = math32.Max(radius, p.Sub(center).Len())
	}
	return center, radius
}

func nodeSubject(g *Graph, i int) string {
	return fmt.Sprintf("node %d %q", i, g.Nodes[i].Name)
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

func finiteVec3(v mgl32.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}

func finiteMat4(m mgl32.Mat4) bool {
	for _, f := range m {
		if !finite(f) {
			return false
		}
	}
	return true
}
