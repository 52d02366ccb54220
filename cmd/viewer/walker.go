package main

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/material"
)

const (
	walkerSegments  = 6
	walkerRings     = 4 // rings per segment
	walkerSides     = 12
	walkerRadius    = 0.35
	walkerTicks     = 48
	walkerTickRate  = 24
	walkerKeyframes = 8
)

// buildWalker assembles the demo asset: a skinned tube swaying on a bone chain over a
// checkered floor, with a translucent pane behind it.
//
// Node layout: 0 root, 1..walkerSegments the bone chain, then floor and pane.
//
// Returns:
//   - *model.Asset: the unvalidated asset
//   - error: error if the floor texture could not be built
func buildWalker() (*model.Asset, error) {
	g := &model.Graph{}
	root := g.AddNode("root", -1, mgl32.Ident4(), 0)
	parent := root
	bones := make([]model.Bone, walkerSegments)
	for i := range walkerSegments {
		local := mgl32.Translate3D(0, 1, 0)
		if i == 0 {
			local = mgl32.Ident4()
		}
		name := fmt.Sprintf("spine%d", i)
		parent = g.AddNode(name, parent, local)
		bones[i] = model.Bone{Name: name, Node: parent, InverseBind: mgl32.Translate3D(0, -float32(i), 0)}
	}
	g.AddNode("floor", root, mgl32.Ident4(), 1)
	g.AddNode("pane", root, mgl32.Translate3D(0, 2.5, -3), 2)

	tube := tubeMesh(bones)
	checker, err := checkerTexture("floor_checker", 64, 8)
	if err != nil {
		return nil, err
	}
	materials := []material.Material{
		material.NewMaterial(material.WithName("skin"),
			material.WithDiffuseColor(mgl32.Vec4{0.85, 0.55, 0.35, 1}),
			material.WithSpecular(mgl32.Vec3{0.6, 0.6, 0.6}, 24, 1)),
		material.NewMaterial(material.WithName("floor"), material.WithDiffuseTexture(checker)),
		material.NewMaterial(material.WithName("glass"), material.WithDiffuseColor(mgl32.Vec4{0.4, 0.7, 1, 0.35})),
	}
	tube.MaterialIndex = 0
	floor := quadMesh("floor", 12, 6, mgl32.Vec3{0, 1, 0}, 1)
	pane := quadMesh("pane", 5, 1, mgl32.Vec3{0, 0, 1}, 2)

	return model.NewAsset("walker",
		model.WithGraph(g),
		model.WithMeshes(tube, floor, pane),
		model.WithMaterials(materials...),
		model.WithClips(walkClip(), idleClip())), nil
}

// tubeMesh is an open cylinder along +Y whose rings blend between the two nearest bones.
func tubeMesh(bones []model.Bone) *model.Mesh {
	rings := walkerSegments*walkerRings + 1
	m := &model.Mesh{
		Name:  "tube",
		Bones: bones,
	}
	for r := range rings {
		y := float32(r) / walkerRings
		// weight toward the bone whose joint lies below, fading into the next one
		lower := min(int(y), walkerSegments-1)
		frac := y - float32(lower)
		weights := []model.VertexWeight{{Bone: lower, Weight: 1}}
		if lower+1 < walkerSegments && frac > 0 {
			weights = []model.VertexWeight{
				{Bone: lower, Weight: 1 - frac*0.5},
				{Bone: lower + 1, Weight: frac * 0.5},
			}
		}
		taper := 1 - 0.5*y/walkerSegments
		for s := range walkerSides {
			a := 2 * math32.Pi * float32(s) / walkerSides
			n := mgl32.Vec3{math32.Cos(a), 0, math32.Sin(a)}
			m.Positions = append(m.Positions, mgl32.Vec3{n[0] * walkerRadius * taper, y, n[2] * walkerRadius * taper})
			m.Normals = append(m.Normals, n)
			m.Influences = append(m.Influences, weights)
		}
	}
	for r := range rings - 1 {
		for s := range walkerSides {
			a := uint32(r*walkerSides + s)
			b := uint32(r*walkerSides + (s+1)%walkerSides)
			c, d := a+walkerSides, b+walkerSides
			m.Indices = append(m.Indices, a, c, b, b, c, d)
		}
	}
	return m
}

// quadMesh is a square of the given half size facing normal, with UVs repeating tiles times.
func quadMesh(name string, half, tiles float32, normal mgl32.Vec3, materialIndex int) *model.Mesh {
	var u, v mgl32.Vec3
	if normal.Y() != 0 {
		u, v = mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}
	} else {
		u, v = mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	m := &model.Mesh{Name: name, MaterialIndex: materialIndex, Indices: []uint32{0, 1, 2, 0, 2, 3}}
	for _, c := range corners {
		m.Positions = append(m.Positions, u.Mul(c[0]*half).Add(v.Mul(c[1]*half)))
		m.Normals = append(m.Normals, normal)
		m.UVs = append(m.UVs, mgl32.Vec2{(c[0] + 1) / 2 * tiles, (1 - c[1]) / 2 * tiles})
	}
	return m
}

// walkClip sways every spine bone about Z with a phase that travels up the chain.
func walkClip() *model.AnimationClip {
	clip := &model.AnimationClip{
		Name:           "Walk",
		Duration:       walkerTicks,
		TicksPerSecond: walkerTickRate,
		Channels:       make(map[int]*model.Channel, walkerSegments),
	}
	for i := range walkerSegments {
		ch := &model.Channel{}
		for k := 0; k <= walkerKeyframes; k++ {
			t := float32(k) * walkerTicks / walkerKeyframes
			phase := 2*math32.Pi*float32(k)/walkerKeyframes - float32(i)*0.6
			ch.Rotations = append(ch.Rotations, model.QuaternionKeyframe{
				Time:  t,
				Value: mgl32.QuatRotate(0.3*math32.Sin(phase), mgl32.Vec3{0, 0, 1}),
			})
		}
		if i == 0 {
			ch.Translations = []model.VectorKeyframe{
				{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
				{Time: walkerTicks / 4, Value: mgl32.Vec3{0, 0.15, 0}},
				{Time: walkerTicks / 2, Value: mgl32.Vec3{0, 0, 0}},
				{Time: walkerTicks * 3 / 4, Value: mgl32.Vec3{0, 0.15, 0}},
				{Time: walkerTicks, Value: mgl32.Vec3{0, 0, 0}},
			}
		} else {
			ch.Translations = []model.VectorKeyframe{{Time: 0, Value: mgl32.Vec3{0, 1, 0}}}
		}
		clip.Channels[1+i] = ch
	}
	return clip
}

// idleClip leans the top of the chain forward and back once every four seconds.
// It declares no tick rate and so plays at the default rate.
func idleClip() *model.AnimationClip {
	top := walkerSegments
	return &model.AnimationClip{
		Name:     "Idle",
		Duration: 4 * model.DefaultTicksPerSecond,
		Channels: map[int]*model.Channel{
			top: {
				Translations: []model.VectorKeyframe{{Time: 0, Value: mgl32.Vec3{0, 1, 0}}},
				Rotations: []model.QuaternionKeyframe{
					{Time: 0, Value: mgl32.QuatIdent()},
					{Time: 2 * model.DefaultTicksPerSecond, Value: mgl32.QuatRotate(0.4, mgl32.Vec3{1, 0, 0})},
					{Time: 4 * model.DefaultTicksPerSecond, Value: mgl32.QuatIdent()},
				},
			},
		},
	}
}

// checkerTexture renders a two tone checkerboard as a decoded texture.
func checkerTexture(name string, size, cells int) (material.Texture, error) {
	img := image.NewGray(image.Rect(0, 0, size, size))
	cell := size / cells
	for y := range size {
		for x := range size {
			c := uint8(90)
			if (x/cell+y/cell)%2 == 0 {
				c = 200
			}
			img.SetGray(x, y, color.Gray{Y: c})
		}
	}
	tex, err := material.NewDecodedTexture(common.NewTextureStagingData(name, img))
	if err != nil {
		return nil, errors.Wrap(err, "checker texture")
	}
	return tex, nil
}
