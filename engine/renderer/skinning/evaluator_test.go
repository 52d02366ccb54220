package skinning

import (
	"context"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/animator"
)

const eps = 1e-4

// armAsset builds root -> arm, where the "Slide" clip moves the arm from (0,1,0) to (2,1,0) over one second.
// Mesh bones are 0: root, 1: arm.
func armAsset(t *testing.T, rootLocal mgl32.Mat4, meshes ...*model.Mesh) *model.Asset {
	t.Helper()
	g := &model.Graph{}
	nodeMeshes := make([]int, len(meshes))
	for i := range meshes {
		nodeMeshes[i] = i
	}
	root := g.AddNode("root", -1, rootLocal)
	g.AddNode("arm", root, mgl32.Translate3D(0, 1, 0), nodeMeshes...)

	for _, m := range meshes {
		if len(m.Bones) > 0 {
			m.Bones[0].InverseBind = rootLocal.Inv()
			m.Bones[1].InverseBind = rootLocal.Mul4(mgl32.Translate3D(0, 1, 0)).Inv()
		}
	}
	slide := &model.AnimationClip{
		Name:           "Slide",
		Duration:       24,
		TicksPerSecond: 24,
		Channels: map[int]*model.Channel{
			1: {Translations: []model.VectorKeyframe{
				{Time: 0, Value: mgl32.Vec3{0, 1, 0}},
				{Time: 24, Value: mgl32.Vec3{2, 1, 0}},
			}},
		},
	}
	a := model.NewAsset("arm", model.WithGraph(g), model.WithMeshes(meshes...), model.WithClips(slide))
	if err := model.Validate(a); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return a
}

func armBones() []model.Bone {
	return []model.Bone{{Name: "root", Node: 0}, {Name: "arm", Node: 1}}
}

// skinnedQuad has four vertices: fully root, fully arm, half and half, and no influence.
func skinnedQuad(scale float32) *model.Mesh {
	return &model.Mesh{
		Name: "quad",
		Positions: []mgl32.Vec3{
			{0, 0, 0}, {1, 2, 0}, {0, 1, 1}, {3, 3, 3},
		},
		Normals: []mgl32.Vec3{
			{0, 0, 1}, {0, 0, 1}, {0, 1, 0}, {1, 0, 0},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
		Bones:   armBones(),
		Influences: [][]model.VertexWeight{
			{{Bone: 0, Weight: 1 * scale}},
			{{Bone: 1, Weight: 1 * scale}},
			{{Bone: 0, Weight: 0.5 * scale}, {Bone: 1, Weight: 0.5 * scale}},
			nil,
		},
		MaterialIndex: -1,
	}
}

func newEvaluator(t *testing.T, a *model.Asset, options ...PoseEvaluatorBuilderOption) (PoseEvaluator, animator.Sampler) {
	t.Helper()
	s, err := animator.NewSampler(a, animator.WithActiveClip(0))
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	options = append([]PoseEvaluatorBuilderOption{WithDispatcher(dispatch.NewDispatcher(dispatch.WithWorkers(2)))}, options...)
	e, err := NewPoseEvaluator(a, s, options...)
	if err != nil {
		t.Fatalf("NewPoseEvaluator: %v", err)
	}
	return e, s
}

func TestBindPoseIsIdentity(t *testing.T) {
	mesh := skinnedQuad(1)
	a := armAsset(t, mgl32.Ident4(), mesh)
	e, s := newEvaluator(t, a)
	if err := s.SetActiveClip(animator.NoClip); err != nil {
		t.Fatal(err)
	}
	if err := e.Evaluate(context.Background(), 0.3); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for _, b := range e.BoneMatrices(0) {
		if !b.ApproxEqualThreshold(mgl32.Ident4(), eps) {
			t.Fatalf("bind pose bone matrix = %v, want identity", b)
		}
	}
	for i := range mesh.Positions {
		if !mesh.Pose.Positions[i].ApproxEqualThreshold(mesh.Positions[i], eps) {
			t.Fatalf("vertex %d = %v, want %v", i, mesh.Pose.Positions[i], mesh.Positions[i])
		}
	}
}

func TestSkinnedPositions(t *testing.T) {
	mesh := skinnedQuad(1)
	a := armAsset(t, mgl32.Ident4(), mesh)
	e, _ := newEvaluator(t, a)
	if err := e.Evaluate(context.Background(), 0.5); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	want := []mgl32.Vec3{
		{0, 0, 0},   // root only
		{2, 2, 0},   // arm moved by +1 in x
		{0.5, 1, 1}, // half of the arm's motion
		{3, 3, 3},   // no influence keeps canonical
	}
	for i, w := range want {
		if got := mesh.Pose.Positions[i]; !got.ApproxEqualThreshold(w, eps) {
			t.Fatalf("vertex %d = %v, want %v", i, got, w)
		}
	}
	if got := mesh.Positions[1]; got != (mgl32.Vec3{1, 2, 0}) {
		t.Fatalf("canonical position changed to %v", got)
	}
	if &mesh.Pose.Positions[0] == &mesh.Positions[0] {
		t.Fatal("pose buffer aliases canonical positions")
	}
}

func TestWeightsAreNormalizedBySum(t *testing.T) {
	unit := skinnedQuad(1)
	scaled := skinnedQuad(3.5)
	a := armAsset(t, mgl32.Ident4(), unit, scaled)
	e, _ := newEvaluator(t, a)
	if err := e.Evaluate(context.Background(), 0.25); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i := range unit.Positions {
		if !unit.Pose.Positions[i].ApproxEqualThreshold(scaled.Pose.Positions[i], eps) {
			t.Fatalf("vertex %d: %v with unit weights, %v with scaled weights", i, unit.Pose.Positions[i], scaled.Pose.Positions[i])
		}
	}
}

func TestMeshWithoutBonesIsUntouched(t *testing.T) {
	static := &model.Mesh{
		Name:          "static",
		Positions:     []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:       []uint32{0, 1, 2},
		MaterialIndex: -1,
	}
	a := armAsset(t, mgl32.Ident4(), static)
	e, _ := newEvaluator(t, a)
	if err := e.Evaluate(context.Background(), 0.5); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if static.Pose != nil {
		t.Fatal("mesh without bones has a pose buffer")
	}
	if e.BoneMatrices(0) != nil {
		t.Fatal("mesh without bones has bone matrices")
	}
	if got := static.CurrentPositions(); &got[0] != &static.Positions[0] {
		t.Fatal("mesh without bones does not draw its canonical data")
	}
}

func TestBoneMatrixIsRelativeToRoot(t *testing.T) {
	rootLocal := mgl32.Translate3D(0, 2, 0)
	mesh := skinnedQuad(1)
	a := armAsset(t, rootLocal, mesh)
	e, _ := newEvaluator(t, a)
	if err := e.Evaluate(context.Background(), 0.5); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if got := e.RootTransform(); !got.ApproxEqualThreshold(rootLocal, eps) {
		t.Fatalf("root transform = %v, want %v", got, rootLocal)
	}
	armWorld := e.WorldTransform(1)
	if want := mgl32.Translate3D(1, 3, 0); !armWorld.ApproxEqualThreshold(want, eps) {
		t.Fatalf("arm world = %v, want %v", armWorld, want)
	}
	want := rootLocal.Inv().Mul4(armWorld).Mul4(mesh.Bones[1].InverseBind)
	if got := e.BoneMatrices(0)[1]; !got.ApproxEqualThreshold(want, eps) {
		t.Fatalf("bone matrix = %v, want %v", got, want)
	}
	// drawn with the root transform, the skinned vertex follows the arm by +1 in x
	world := rootLocal.Mul4x1(mesh.Pose.Positions[1].Vec4(1)).Vec3()
	if !world.ApproxEqualThreshold(mgl32.Vec3{2, 2, 0}, eps) {
		t.Fatalf("world position = %v, want (2, 2, 0)", world)
	}
}

func TestAnimatedRootIsAppliedOnce(t *testing.T) {
	mesh := skinnedQuad(1)
	a := armAsset(t, mgl32.Ident4(), mesh)
	a.Clips[0].Channels[0] = &model.Channel{Translations: []model.VectorKeyframe{
		{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
		{Time: 24, Value: mgl32.Vec3{20, 0, 0}},
	}}
	e, _ := newEvaluator(t, a)
	if err := e.Evaluate(context.Background(), 0.5); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	root := e.RootTransform()
	if want := mgl32.Translate3D(10, 0, 0); !root.ApproxEqualThreshold(want, eps) {
		t.Fatalf("root transform = %v, want %v", root, want)
	}
	tests := []struct {
		vertex int
		want   mgl32.Vec3
	}{
		// fully on the root bone: carried by the root motion alone
		{0, mgl32.Vec3{10, 0, 0}},
		// fully on the arm: root motion plus the arm's own slide of +1 in x
		{1, mgl32.Vec3{12, 2, 0}},
	}
	for _, tt := range tests {
		drawn := root.Mul4x1(mesh.Pose.Positions[tt.vertex].Vec4(1)).Vec3()
		if !drawn.ApproxEqualThreshold(tt.want, eps) {
			t.Fatalf("vertex %d drawn at %v, want %v", tt.vertex, drawn, tt.want)
		}
	}
}

func TestSkinnedNormalsStayUnitLength(t *testing.T) {
	mesh := skinnedQuad(1)
	a := armAsset(t, mgl32.Ident4(), mesh)
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0})
	a.Clips[0].Channels[1].Rotations = []model.QuaternionKeyframe{{Time: 0, Value: rot}}
	a.Clips[0].Channels[1].Scales = []model.VectorKeyframe{{Time: 0, Value: mgl32.Vec3{2, 2, 2}}}

	e, _ := newEvaluator(t, a)
	if err := e.Evaluate(context.Background(), 0); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i, n := range mesh.Pose.Normals {
		if l := n.Len(); math32.Abs(l-1) > eps {
			t.Fatalf("normal %d length = %v, want 1", i, l)
		}
	}
	// +Z rotated 90 degrees about +X points along -Y
	if got := mesh.Pose.Normals[1]; !got.ApproxEqualThreshold(mgl32.Vec3{0, -1, 0}, eps) {
		t.Fatalf("rotated normal = %v, want (0, -1, 0)", got)
	}
	if got := mesh.Normals[1]; got != (mgl32.Vec3{0, 0, 1}) {
		t.Fatalf("canonical normal changed to %v", got)
	}
}

func TestParallelSkinningMatchesSerial(t *testing.T) {
	const n = 5000
	mesh := &model.Mesh{Name: "strip", Bones: armBones(), MaterialIndex: -1}
	for i := 0; i < n; i++ {
		f := float32(i) / n
		mesh.Positions = append(mesh.Positions, mgl32.Vec3{f, 2 * f, -f})
		mesh.Normals = append(mesh.Normals, mgl32.Vec3{0, 1, 0})
		mesh.Influences = append(mesh.Influences, []model.VertexWeight{
			{Bone: 0, Weight: 1 - f},
			{Bone: 1, Weight: f},
		})
	}
	a := armAsset(t, mgl32.Translate3D(0, 0, 1), mesh)
	e, _ := newEvaluator(t, a, WithMinChunkSize(64))
	if err := e.Evaluate(context.Background(), 0.75); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	want := &model.Mesh{
		Positions:  mesh.Positions,
		Normals:    mesh.Normals,
		Influences: mesh.Influences,
		Pose: &model.PoseBuffer{
			Positions: make([]mgl32.Vec3, n),
			Normals:   make([]mgl32.Vec3, n),
		},
	}
	skinRange(want, e.BoneMatrices(0), 0, n)
	for i := 0; i < n; i++ {
		if mesh.Pose.Positions[i] != want.Pose.Positions[i] || mesh.Pose.Normals[i] != want.Pose.Normals[i] {
			t.Fatalf("vertex %d differs from serial skinning", i)
		}
	}
}

func TestEvaluateCanceled(t *testing.T) {
	mesh := skinnedQuad(1)
	a := armAsset(t, mgl32.Ident4(), mesh)
	e, _ := newEvaluator(t, a)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Evaluate(ctx, 0.5); err == nil {
		t.Fatal("Evaluate succeeded on a canceled context")
	}
}

func TestNewPoseEvaluatorNeedsValidatedAsset(t *testing.T) {
	a := model.NewAsset("raw")
	if _, err := NewPoseEvaluator(a, nil); err == nil {
		t.Fatal("NewPoseEvaluator accepted an unvalidated asset")
	}
}
