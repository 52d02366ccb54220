// Package skinning composes hierarchical world transforms and deforms skinned meshes on the CPU.
package skinning

import (
	"context"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/animator"
)

type evaluator struct {
	mu                *sync.Mutex
	asset             *model.Asset
	sampler           animator.Sampler
	dispatcher        dispatch.Dispatcher
	minChunk          int
	locals            []mgl32.Mat4
	world             []mgl32.Mat4
	boneMatrices      [][]mgl32.Mat4
	globalInverseRoot mgl32.Mat4
}

// PoseEvaluator turns sampled local transforms into world transforms, bone matrices and skinned vertices.
//
// Each Evaluate recomputes every node's world transform in parent-before-child order and rewrites the
// pose buffer of every skinned mesh. Canonical mesh data is only read. Meshes without bone influences
// are skipped entirely and draw their canonical data.
type PoseEvaluator interface {
	// Evaluate samples the scene at time t and updates world transforms and pose buffers.
	// Vertex ranges of each skinned mesh are skinned in parallel through the dispatcher.
	//
	// Parameters:
	//   - ctx: cancels skinning chunks that have not started
	//   - t: the sample time in seconds
	//
	// Returns:
	//   - error: error if a skinning chunk failed; pose buffers may then be partially updated
	Evaluate(ctx context.Context, t float32) error

	// WorldTransform returns a node's world transform from the last Evaluate.
	//
	// Parameters:
	//   - node: the node index
	//
	// Returns:
	//   - mgl32.Mat4: the world transform
	WorldTransform(node int) mgl32.Mat4

	// RootTransform returns the world transform of the root node. Skinned meshes are drawn with it,
	// as their pose buffers are expressed relative to the root.
	//
	// Returns:
	//   - mgl32.Mat4: the root world transform
	RootTransform() mgl32.Mat4

	// BoneMatrices returns the bone matrices of a mesh from the last Evaluate.
	//
	// Parameters:
	//   - mesh: the mesh index
	//
	// Returns:
	//   - []mgl32.Mat4: one matrix per bone, shared and read-only
	BoneMatrices(mesh int) []mgl32.Mat4
}

var _ PoseEvaluator = &evaluator{}

// NewPoseEvaluator creates a PoseEvaluator for a validated asset. All per-frame buffers are allocated here.
//
// Parameters:
//   - asset: the validated asset
//   - sampler: the sampler providing local transforms
//   - options: functional options to configure the evaluator
//
// Returns:
//   - PoseEvaluator: the new evaluator
//   - error: error if the asset has not been validated
func NewPoseEvaluator(asset *model.Asset, sampler animator.Sampler, options ...PoseEvaluatorBuilderOption) (PoseEvaluator, error) {
	if asset == nil || !asset.Validated() {
		return nil, errors.New("pose evaluator needs a validated asset")
	}
	if sampler == nil {
		return nil, errors.New("pose evaluator needs a sampler")
	}
	n := len(asset.Graph.Nodes)
	e := &evaluator{
		mu:                &sync.Mutex{},
		asset:             asset,
		sampler:           sampler,
		locals:            make([]mgl32.Mat4, n),
		world:             make([]mgl32.Mat4, n),
		boneMatrices:      make([][]mgl32.Mat4, len(asset.Meshes)),
		globalInverseRoot: asset.Graph.Nodes[asset.Graph.Root].Local.Inv(),
	}
	for i := range asset.Graph.Nodes {
		e.locals[i] = asset.Graph.Nodes[i].Local
	}
	for i, m := range asset.Meshes {
		if m.Skinned() {
			e.boneMatrices[i] = make([]mgl32.Mat4, len(m.Bones))
		}
	}
	for _, option := range options {
		option(e)
	}
	if e.dispatcher == nil {
		e.dispatcher = dispatch.Default()
	}
	// world transforms hold the static pose until the first Evaluate
	e.composeWorld()
	return e, nil
}

func (e *evaluator) Evaluate(ctx context.Context, t float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sampler.SampleLocalTransforms(t, e.locals)
	e.composeWorld()
	// skinned meshes are drawn with the root's current world, so bones are expressed relative to it
	if root := e.world[e.asset.Graph.Root]; root.Det() != 0 {
		e.globalInverseRoot = root.Inv()
	}

	for mi, m := range e.asset.Meshes {
		bones := e.boneMatrices[mi]
		if bones == nil {
			continue
		}
		for b, bone := range m.Bones {
			bones[b] = e.globalInverseRoot.Mul4(e.world[bone.Node]).Mul4(bone.InverseBind)
		}
		mesh := m
		err := e.dispatcher.Run(ctx, len(mesh.Positions), e.minChunk, func(lo, hi int) error {
			skinRange(mesh, bones, lo, hi)
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "skin mesh %q", m.Name)
		}
	}
	return nil
}

func (e *evaluator) WorldTransform(node int) mgl32.Mat4 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world[node]
}

func (e *evaluator) RootTransform() mgl32.Mat4 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world[e.asset.Graph.Root]
}

func (e *evaluator) BoneMatrices(mesh int) []mgl32.Mat4 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.boneMatrices[mesh]
}

// composeWorld walks the precomputed order so every parent is final before its children.
func (e *evaluator) composeWorld() {
	g := e.asset.Graph
	for _, i := range g.Order() {
		if p := g.Nodes[i].Parent; p >= 0 {
			e.world[i] = e.world[p].Mul4(e.locals[i])
		} else {
			e.world[i] = e.locals[i]
		}
	}
}
