package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-view/engine/renderer/material"
)

// DefaultTicksPerSecond is used for clips that declare a rate of zero.
const DefaultTicksPerSecond = 25.0

// --- Scene Graph Types ---

// Node is a single scene graph node.
// Its world transform is derived each frame and never stored here.
type Node struct {
	// Name is the node identifier. Bones and channels refer to nodes by index, not name.
	Name string

	// Parent is the index of the parent node (-1 for the root).
	Parent int

	// Children are the ordered child node indices.
	Children []int

	// Local is the node's static transform relative to its parent.
	Local mgl32.Mat4

	// Meshes are indices into Asset.Meshes drawn at this node.
	Meshes []int
}

// Graph is the node hierarchy of an asset, rooted at a single node.
type Graph struct {
	// Nodes holds every node. Indices are stable for the asset's lifetime.
	Nodes []Node

	// Root is the index of the root node.
	Root int

	order   []int
	byName  map[string]int
	rootSet bool
}

// Order returns the node indices sorted parent-before-child.
// It is computed once by Validate.
//
// Returns:
//   - []int: the traversal order, shared and read-only
func (g *Graph) Order() []int {
	return g.order
}

// NodeIndex resolves a node name to its index. Intended for load time only.
//
// Parameters:
//   - name: the node name
//
// Returns:
//   - int: the node index
//   - bool: true if the name is known
func (g *Graph) NodeIndex(name string) (int, bool) {
	if g.byName == nil {
		g.byName = make(map[string]int, len(g.Nodes))
		for i := range g.Nodes {
			if _, dup := g.byName[g.Nodes[i].Name]; !dup {
				g.byName[g.Nodes[i].Name] = i
			}
		}
	}
	i, ok := g.byName[name]
	return i, ok
}

// --- Skinning Types ---

// Bone binds a mesh to a node of the graph.
type Bone struct {
	// Name is the bone identifier, kept for diagnostics.
	Name string

	// Node is the index of the node that drives this bone.
	Node int

	// InverseBind transforms from mesh space to bone space at bind pose.
	InverseBind mgl32.Mat4
}

// VertexWeight is one bone influence on a vertex.
type VertexWeight struct {
	// Bone indexes Mesh.Bones.
	Bone int

	// Weight is the influence factor. Weights of a vertex are normalized by their sum before use.
	Weight float32
}

// PoseBuffer holds the skinned result of the current frame.
// It has the same shape as the mesh's canonical data and never shares storage with it.
type PoseBuffer struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
}

// Mesh is triangle geometry with optional bone influences.
// Canonical vertex data is never written after load.
type Mesh struct {
	// Name is the mesh identifier.
	Name string

	// Positions are the bind pose vertex positions.
	Positions []mgl32.Vec3

	// Normals are the bind pose vertex normals (empty or one per vertex).
	Normals []mgl32.Vec3

	// UVs are texture coordinates (empty or one per vertex).
	UVs []mgl32.Vec2

	// Colors are per-vertex RGBA colors (empty or one per vertex).
	Colors []mgl32.Vec4

	// Indices are the triangle indices.
	Indices []uint32

	// Bones are the bones referenced by Influences.
	Bones []Bone

	// Influences holds the bone weights per vertex (empty or one list per vertex).
	Influences [][]VertexWeight

	// MaterialIndex references Asset.Materials (-1 uses the default material).
	MaterialIndex int

	// Pose is allocated by Validate for meshes with bones and rewritten every frame.
	Pose *PoseBuffer

	boundsCenter mgl32.Vec3
	boundsRadius float32
}

// Skinned reports whether the mesh carries any bone influence.
//
// Returns:
//   - bool: true if the mesh is deformed by bones
func (m *Mesh) Skinned() bool {
	if len(m.Bones) == 0 {
		return false
	}
	for _, vw := range m.Influences {
		if len(vw) > 0 {
			return true
		}
	}
	return false
}

// CurrentPositions returns the pose positions for skinned meshes and the canonical positions otherwise.
//
// Returns:
//   - []mgl32.Vec3: the positions to draw
func (m *Mesh) CurrentPositions() []mgl32.Vec3 {
	if m.Pose != nil {
		return m.Pose.Positions
	}
	return m.Positions
}

// CurrentNormals returns the pose normals for skinned meshes and the canonical normals otherwise.
//
// Returns:
//   - []mgl32.Vec3: the normals to draw
func (m *Mesh) CurrentNormals() []mgl32.Vec3 {
	if m.Pose != nil {
		return m.Pose.Normals
	}
	return m.Normals
}

// Bounds returns the bind pose bounding sphere computed by Validate.
//
// Returns:
//   - mgl32.Vec3: the sphere center in mesh space
//   - float32: the sphere radius
func (m *Mesh) Bounds() (mgl32.Vec3, float32) {
	return m.boundsCenter, m.boundsRadius
}

// --- Animation Types ---

// AnimationClip is a single animation (walk, run, attack, etc.).
type AnimationClip struct {
	// Name is the animation identifier.
	Name string

	// Duration is the clip length in ticks.
	Duration float32

	// TicksPerSecond is the sample rate of the clip. Zero selects DefaultTicksPerSecond.
	TicksPerSecond float32

	// Channels maps a node index to its keyframe tracks.
	Channels map[int]*Channel
}

// Rate returns the effective ticks per second.
//
// Returns:
//   - float32: TicksPerSecond, or DefaultTicksPerSecond when it is zero
func (c *AnimationClip) Rate() float32 {
	if c.TicksPerSecond > 0 {
		return c.TicksPerSecond
	}
	return DefaultTicksPerSecond
}

// DurationSeconds returns the clip length in seconds.
//
// Returns:
//   - float32: Duration / Rate
func (c *AnimationClip) DurationSeconds() float32 {
	return c.Duration / c.Rate()
}

// Channel contains the keyframe tracks of one node.
type Channel struct {
	// Translations are keyframes for translation.
	Translations []VectorKeyframe

	// Rotations are keyframes for rotation.
	Rotations []QuaternionKeyframe

	// Scales are keyframes for scale.
	Scales []VectorKeyframe
}

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in ticks.
	Time float32

	// Value is the 3D vector value at this keyframe.
	Value mgl32.Vec3
}

// QuaternionKeyframe stores a rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in ticks.
	Time float32

	// Value is the rotation at this keyframe.
	Value mgl32.Quat
}

// --- Asset ---

// Asset is everything an external loader produces for one scene.
// It must pass Validate before any sampler or evaluator uses it.
type Asset struct {
	// Name is the asset identifier.
	Name string

	// Graph is the node hierarchy.
	Graph *Graph

	// Meshes are referenced by Node.Meshes.
	Meshes []*Mesh

	// Clips are the animation clips bundled with the asset.
	Clips []*AnimationClip

	// Materials are referenced by Mesh.MaterialIndex.
	Materials []material.Material

	validated bool
}

// Validated reports whether Validate accepted the asset.
//
// Returns:
//   - bool: true once Validate has succeeded
func (a *Asset) Validated() bool {
	return a.validated
}

// TRS composes a local transform from translation, rotation and scale as T * R * S.
//
// Parameters:
//   - t: translation
//   - r: rotation
//   - s: scale
//
// Returns:
//   - mgl32.Mat4: the composed transform
func TRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(t[0], t[1], t[2]).Mul4(r.Mat4()).Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}
