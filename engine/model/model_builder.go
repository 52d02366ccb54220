package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-view/engine/renderer/material"
)

// AssetBuilderOption is a functional option for configuring an Asset via NewAsset.
type AssetBuilderOption func(*Asset)

// NewAsset creates an Asset from the given options.
// The asset still has to pass Validate before use.
//
// Parameters:
//   - name: the asset identifier
//   - options: functional options to populate the asset
//
// Returns:
//   - *Asset: the new asset
func NewAsset(name string, options ...AssetBuilderOption) *Asset {
	a := &Asset{
		Name:  name,
		Graph: &Graph{},
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// WithGraph is an option builder that sets the node hierarchy of the Asset.
//
// Parameters:
//   - g: the graph to set
//
// Returns:
//   - AssetBuilderOption: a function that applies the graph option to an asset
func WithGraph(g *Graph) AssetBuilderOption {
	return func(a *Asset) {
		a.Graph = g
	}
}

// WithMeshes is an option builder that appends meshes to the Asset.
//
// Parameters:
//   - meshes: the meshes to append
//
// Returns:
//   - AssetBuilderOption: a function that applies the meshes option to an asset
func WithMeshes(meshes ...*Mesh) AssetBuilderOption {
	return func(a *Asset) {
		a.Meshes = append(a.Meshes, meshes...)
	}
}

// WithClips is an option builder that appends animation clips to the Asset.
//
// Parameters:
//   - clips: the clips to append
//
// Returns:
//   - AssetBuilderOption: a function that applies the clips option to an asset
func WithClips(clips ...*AnimationClip) AssetBuilderOption {
	return func(a *Asset) {
		a.Clips = append(a.Clips, clips...)
	}
}

// WithMaterials is an option builder that appends materials to the Asset.
//
// Parameters:
//   - materials: the materials to append
//
// Returns:
//   - AssetBuilderOption: a function that applies the materials option to an asset
func WithMaterials(materials ...material.Material) AssetBuilderOption {
	return func(a *Asset) {
		a.Materials = append(a.Materials, materials...)
	}
}

// AddNode appends a node and links it into its parent's child list.
// Pass parent -1 for the root; the first such node becomes Graph.Root.
//
// Parameters:
//   - name: the node name
//   - parent: the parent index, or -1
//   - local: the node's static local transform
//   - meshes: indices of meshes drawn at this node
//
// Returns:
//   - int: the index of the new node
func (g *Graph) AddNode(name string, parent int, local mgl32.Mat4, meshes ...int) int {
	idx := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{
		Name:   name,
		Parent: parent,
		Local:  local,
		Meshes: meshes,
	})
	if parent < 0 {
		if !g.rootSet {
			g.Root = idx
			g.rootSet = true
		}
	} else if parent < idx {
		g.Nodes[parent].Children = append(g.Nodes[parent].Children, idx)
	}
	g.byName = nil
	return idx
}
