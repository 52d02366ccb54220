package model

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/engine/renderer/material"
)

// armAsset is a root with a two bone arm and a skinned strip bound to it.
func armAsset() *Asset {
	g := &Graph{}
	root := g.AddNode("root", -1, mgl32.Ident4(), 0)
	upper := g.AddNode("upper", root, mgl32.Translate3D(0, 1, 0))
	g.AddNode("lower", upper, mgl32.Translate3D(0, 1, 0))

	strip := &Mesh{
		Name:      "strip",
		Positions: []mgl32.Vec3{{0, 1, 0}, {1, 1, 0}, {0, 2, 0}, {1, 2, 0}},
		Normals:   []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Indices:   []uint32{0, 1, 2, 2, 1, 3},
		Bones: []Bone{
			{Name: "upper", Node: 1, InverseBind: mgl32.Translate3D(0, -1, 0)},
			{Name: "lower", Node: 2, InverseBind: mgl32.Translate3D(0, -2, 0)},
		},
		Influences: [][]VertexWeight{
			{{Bone: 0, Weight: 1}},
			{{Bone: 0, Weight: 1}},
			{{Bone: 1, Weight: 1}},
			{{Bone: 0, Weight: 0.5}, {Bone: 1, Weight: 0.5}},
		},
		MaterialIndex: 0,
	}
	raise := &AnimationClip{
		Name:     "Raise",
		Duration: 50,
		Channels: map[int]*Channel{
			1: {Rotations: []QuaternionKeyframe{
				{Time: 0, Value: mgl32.QuatIdent()},
				{Time: 50, Value: mgl32.QuatRotate(1, mgl32.Vec3{0, 0, 1})},
			}},
		},
	}
	return NewAsset("arm",
		WithGraph(g),
		WithMeshes(strip),
		WithClips(raise),
		WithMaterials(material.NewMaterial(material.WithName("skin"))))
}

func TestValidateAcceptsArm(t *testing.T) {
	a := armAsset()
	if err := Validate(a); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !a.Validated() {
		t.Fatal("Validated = false after success")
	}
	order := a.Graph.Order()
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("order = %v, want [0 1 2]", order)
	}
	m := a.Meshes[0]
	if m.Pose == nil || len(m.Pose.Positions) != 4 || len(m.Pose.Normals) != 4 {
		t.Fatalf("pose buffer = %+v", m.Pose)
	}
	if &m.Pose.Positions[0] == &m.Positions[0] {
		t.Fatal("pose shares storage with the canonical positions")
	}
	c, r := m.Bounds()
	if !c.ApproxEqual(mgl32.Vec3{0.5, 1.5, 0}) || math32.Abs(r-math32.Sqrt(0.5)) > 1e-5 {
		t.Fatalf("bounds = %v %v", c, r)
	}
	if d := a.Clips[0].DurationSeconds(); d != 2 {
		t.Fatalf("duration at the default rate = %v, want 2", d)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Asset)
		want   IntegrityKind
	}{
		{"no graph", func(a *Asset) { a.Graph = nil }, IntegrityBadHierarchy},
		{"root out of range", func(a *Asset) { a.Graph.Root = 9 }, IntegrityBadHierarchy},
		{"root with parent", func(a *Asset) { a.Graph.Nodes[0].Parent = 1 }, IntegrityBadHierarchy},
		{"self parent", func(a *Asset) { a.Graph.Nodes[2].Parent = 2 }, IntegrityBadHierarchy},
		{"child out of range", func(a *Asset) { a.Graph.Nodes[1].Children = append(a.Graph.Nodes[1].Children, 7) }, IntegrityBadNodeIndex},
		{"child names other parent", func(a *Asset) { a.Graph.Nodes[0].Children = append(a.Graph.Nodes[0].Children, 2) }, IntegrityBadHierarchy},
		{"cycle", func(a *Asset) {
			a.Graph.Nodes[1].Parent = 2
			a.Graph.Nodes[2].Children = []int{1}
			a.Graph.Nodes[0].Children = nil
		}, IntegrityBadHierarchy},
		{"mesh index", func(a *Asset) { a.Graph.Nodes[2].Meshes = []int{3} }, IntegrityBadMeshIndex},
		{"nil mesh", func(a *Asset) { a.Meshes = append(a.Meshes, nil) }, IntegrityBadMeshIndex},
		{"normals length", func(a *Asset) { a.Meshes[0].Normals = a.Meshes[0].Normals[:2] }, IntegrityShapeMismatch},
		{"partial triangle", func(a *Asset) { a.Meshes[0].Indices = a.Meshes[0].Indices[:4] }, IntegrityShapeMismatch},
		{"index past vertices", func(a *Asset) { a.Meshes[0].Indices[5] = 4 }, IntegrityShapeMismatch},
		{"material index", func(a *Asset) { a.Meshes[0].MaterialIndex = 1 }, IntegrityBadValue},
		{"nan position", func(a *Asset) { a.Meshes[0].Positions[1][0] = math32.NaN() }, IntegrityBadValue},
		{"bone node", func(a *Asset) { a.Meshes[0].Bones[1].Node = 3 }, IntegrityBadNodeIndex},
		{"bone index", func(a *Asset) { a.Meshes[0].Influences[2][0].Bone = 2 }, IntegrityBadBoneIndex},
		{"negative weight", func(a *Asset) { a.Meshes[0].Influences[0][0].Weight = -1 }, IntegrityBadValue},
		{"negative duration", func(a *Asset) { a.Clips[0].Duration = -1 }, IntegrityBadValue},
		{"channel node", func(a *Asset) { a.Clips[0].Channels[5] = &Channel{} }, IntegrityBadNodeIndex},
		{"keys out of order", func(a *Asset) {
			keys := a.Clips[0].Channels[1].Rotations
			keys[0].Time, keys[1].Time = 50, 0
		}, IntegrityNonMonotonicKeys},
		{"zero quaternion", func(a *Asset) { a.Clips[0].Channels[1].Rotations[1].Value = mgl32.Quat{} }, IntegrityBadValue},
		{"translation keys out of order", func(a *Asset) {
			a.Clips[0].Channels[1].Translations = []VectorKeyframe{{Time: 3}, {Time: 1}}
		}, IntegrityNonMonotonicKeys},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := armAsset()
			tt.mutate(a)
			err := Validate(a)
			var ie *AssetIntegrityError
			if !errors.As(err, &ie) {
				t.Fatalf("err = %v, want *AssetIntegrityError", err)
			}
			if ie.Kind != tt.want {
				t.Fatalf("kind = %v, want %v (%v)", ie.Kind, tt.want, err)
			}
			if a.Validated() {
				t.Fatal("rejected asset is marked validated")
			}
		})
	}
}

func TestUnskinnedMeshHasNoPose(t *testing.T) {
	a := armAsset()
	a.Meshes[0].Influences = nil
	if err := Validate(a); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	m := a.Meshes[0]
	if m.Skinned() || m.Pose != nil {
		t.Fatalf("Skinned = %v, Pose = %v", m.Skinned(), m.Pose)
	}
	if &m.CurrentPositions()[0] != &m.Positions[0] {
		t.Fatal("CurrentPositions does not return the canonical positions")
	}
}

func TestNodeIndex(t *testing.T) {
	a := armAsset()
	if i, ok := a.Graph.NodeIndex("lower"); !ok || i != 2 {
		t.Fatalf("NodeIndex(lower) = %d, %v", i, ok)
	}
	if _, ok := a.Graph.NodeIndex("missing"); ok {
		t.Fatal("NodeIndex found a missing node")
	}
}

func TestPackVerticesDefaults(t *testing.T) {
	if GPUVertexSize != 48 {
		t.Fatalf("GPUVertexSize = %d, want 48", GPUVertexSize)
	}
	m := &Mesh{
		Positions: []mgl32.Vec3{{1, 2, 3}, {4, 5, 6}},
		UVs:       []mgl32.Vec2{{0.5, 0.25}, {1, 1}},
	}
	out := PackVertices(m, nil)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Normal != [3]float32{0, 0, 1} || out[0].Color != [4]float32{1, 1, 1, 1} {
		t.Fatalf("defaults = %+v", out[0])
	}
	if out[1].Position != [3]float32{4, 5, 6} || out[0].TexCoord != [2]float32{0.5, 0.25} {
		t.Fatalf("packed = %+v", out)
	}
	reused := PackVertices(m, out)
	if &reused[0] != &out[0] {
		t.Fatal("PackVertices did not reuse the destination")
	}
}
