package renderer

import (
	"image"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/shader"
)

type fakeMesh struct {
	label    string
	vertices []model.GPUVertex
	released bool
}

type fakeBackend struct {
	failKey     *shader.PermutationKey
	compiles    int
	configured  [][2]int
	textures    int
	released    []material.TextureHandle
	meshUploads int
	meshUpdates int
	meshes      []*fakeMesh
	frames      int
	announced   int
	draws       []DrawCommand
	ended       int
	presented   int
	releases    int
}

func (f *fakeBackend) CompileStage(stage shader.Stage, label, source string) (shader.StageHandle, error) {
	resolved, err := shader.Preprocess(source)
	if err != nil {
		return nil, err
	}
	if f.failKey != nil && strings.HasPrefix(label, "uber["+f.failKey.String()+"]") {
		return nil, errors.New("error: unresolved identifier")
	}
	f.compiles++
	return resolved, nil
}

func (f *fakeBackend) LinkProgram(label string, vertex, fragment shader.StageHandle) (shader.ProgramHandle, error) {
	return label, nil
}

func (f *fakeBackend) ReleaseStage(shader.StageHandle) {}

func (f *fakeBackend) ReleaseProgram(shader.ProgramHandle) {}

func (f *fakeBackend) UploadTexture(label string, levels []*image.RGBA) (material.TextureHandle, error) {
	f.textures++
	return f.textures, nil
}

func (f *fakeBackend) ReleaseTexture(h material.TextureHandle) {
	f.released = append(f.released, h)
}

func (f *fakeBackend) ConfigureSurface(width, height int) error {
	f.configured = append(f.configured, [2]int{width, height})
	return nil
}

func (f *fakeBackend) SetPresentMode(PresentMode) {}

func (f *fakeBackend) SetClearColor([4]float64) {}

func (f *fakeBackend) UploadMesh(label string, vertices []model.GPUVertex, indices []uint32) (MeshHandle, error) {
	f.meshUploads++
	m := &fakeMesh{label: label, vertices: append([]model.GPUVertex(nil), vertices...)}
	f.meshes = append(f.meshes, m)
	return m, nil
}

func (f *fakeBackend) UpdateMesh(h MeshHandle, vertices []model.GPUVertex) error {
	f.meshUpdates++
	m := h.(*fakeMesh)
	m.vertices = append(m.vertices[:0], vertices...)
	return nil
}

func (f *fakeBackend) ReleaseMesh(h MeshHandle) {
	h.(*fakeMesh).released = true
}

func (f *fakeBackend) BeginFrame(drawCount int) error {
	f.frames++
	f.announced = drawCount
	f.draws = f.draws[:0]
	return nil
}

func (f *fakeBackend) Draw(cmd DrawCommand) error {
	f.draws = append(f.draws, cmd)
	return nil
}

func (f *fakeBackend) EndFrame() error {
	f.ended++
	return nil
}

func (f *fakeBackend) Present() {
	f.presented++
}

func (f *fakeBackend) Release() {
	f.releases++
}

// fakeFrame serves world transforms composed from the static node transforms.
type fakeFrame struct {
	asset *model.Asset
	world []mgl32.Mat4
}

func newFakeFrame(a *model.Asset) *fakeFrame {
	f := &fakeFrame{asset: a, world: make([]mgl32.Mat4, len(a.Graph.Nodes))}
	for _, i := range a.Graph.Order() {
		n := a.Graph.Nodes[i]
		if n.Parent < 0 {
			f.world[i] = n.Local
		} else {
			f.world[i] = f.world[n.Parent].Mul4(n.Local)
		}
	}
	return f
}

func (f *fakeFrame) Asset() *model.Asset {
	return f.asset
}

func (f *fakeFrame) WorldTransform(node int) mgl32.Mat4 {
	return f.world[node]
}

func (f *fakeFrame) RootTransform() mgl32.Mat4 {
	return f.world[f.asset.Graph.Root]
}

func triangle(name string, materialIndex int) *model.Mesh {
	return &model.Mesh{
		Name:          name,
		Positions:     []mgl32.Vec3{{-1, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:       []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		UVs:           []mgl32.Vec2{{0, 0}, {1, 0}, {0.5, 1}},
		Indices:       []uint32{0, 1, 2},
		MaterialIndex: materialIndex,
	}
}

// layeredAsset places an opaque triangle and two translucent ones along -Z.
// Nodes: 0 root, 1 "solid" at z=0, 2 "near" at z=0, 3 "far" at z=-10.
func layeredAsset(t *testing.T) *model.Asset {
	t.Helper()
	g := &model.Graph{}
	root := g.AddNode("root", -1, mgl32.Ident4())
	g.AddNode("solid", root, mgl32.Ident4(), 0)
	g.AddNode("near", root, mgl32.Ident4(), 1)
	g.AddNode("far", root, mgl32.Translate3D(0, 0, -10), 2)

	glass := material.NewMaterial(material.WithName("glass"), material.WithDiffuseColor(mgl32.Vec4{1, 1, 1, 0.5}))
	a := model.NewAsset("layers",
		model.WithGraph(g),
		model.WithMeshes(triangle("solid", -1), triangle("near", 0), triangle("far", 0)),
		model.WithMaterials(glass))
	if err := model.Validate(a); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return a
}

func testCamera() camera.Camera {
	ctrl := camera.NewOrbitController(camera.WithRadius(5), camera.WithAngles(0, 0))
	return camera.NewCamera(camera.WithController(ctrl))
}

func newTestRenderer(t *testing.T, b *fakeBackend) Renderer {
	t.Helper()
	r, err := NewRenderer(BackendTypeWGPU, nil,
		WithBackend(b),
		WithClassifierOptions(material.WithDispatcher(dispatch.NewDispatcher(dispatch.WithWorkers(2)))))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func meshLabels(draws []DrawCommand) []string {
	labels := make([]string, len(draws))
	for i, d := range draws {
		labels[i] = d.Mesh.(*fakeMesh).label
	}
	return labels
}

func TestRenderDrawsOpaqueFirstThenAlphaBackToFront(t *testing.T) {
	b := &fakeBackend{}
	r := newTestRenderer(t, b)
	a := layeredAsset(t)

	view := ViewState{Frame: newFakeFrame(a), Flags: DefaultRenderFlags, LightDirection: mgl32.Vec3{0, 0, 1}}
	if err := r.Render(view, testCamera(), []int{2, 3, 1}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := []string{"layers/solid", "layers/far", "layers/near"}
	got := meshLabels(b.draws)
	if len(got) != len(want) {
		t.Fatalf("drew %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("draw order %v, want %v", got, want)
		}
	}
	wantVariants := []pipeline.Variant{pipeline.VariantOpaque, pipeline.VariantBlended, pipeline.VariantBlended}
	for i, d := range b.draws {
		if d.Variant != wantVariants[i] {
			t.Fatalf("draw %d variant = %v, want %v", i, d.Variant, wantVariants[i])
		}
	}
	if b.announced != 3 || b.ended != 1 || b.presented != 1 {
		t.Fatalf("frame bookkeeping: announced %d, ended %d, presented %d", b.announced, b.ended, b.presented)
	}
}

func TestRenderSharesProgramsAcrossMeshes(t *testing.T) {
	b := &fakeBackend{}
	r := newTestRenderer(t, b)
	a := layeredAsset(t)
	view := ViewState{Frame: newFakeFrame(a), Flags: DefaultRenderFlags}

	for i := 0; i < 3; i++ {
		if err := r.Render(view, testCamera(), []int{1, 2, 3}); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}
	// every triangle is lit and untextured, so one permutation serves all of them
	if n := r.Cache().Len(); n != 1 {
		t.Fatalf("cache holds %d programs, want 1", n)
	}
	if b.compiles != 2 {
		t.Fatalf("compiled %d stages, want 2", b.compiles)
	}
	if b.draws[0].Program != b.draws[1].Program {
		t.Fatal("equal keys produced different programs")
	}
	if b.meshUploads != 3 || b.meshUpdates != 0 {
		t.Fatalf("mesh uploads %d updates %d, want 3 and 0", b.meshUploads, b.meshUpdates)
	}
}

func TestRenderIgnoresUnknownAndRepeatedNodes(t *testing.T) {
	b := &fakeBackend{}
	r := newTestRenderer(t, b)
	view := ViewState{Frame: newFakeFrame(layeredAsset(t))}
	if err := r.Render(view, testCamera(), []int{-1, 99, 1, 1, 0}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(b.draws) != 1 {
		t.Fatalf("drew %d meshes, want 1", len(b.draws))
	}
}

func TestRenderUploadsPendingTextures(t *testing.T) {
	b := &fakeBackend{}
	r := newTestRenderer(t, b)

	pix := make([]byte, 4*4*4)
	for i := range pix {
		pix[i] = 0xff
	}
	tex, err := material.NewDecodedTexture(&common.TextureStagingData{Name: "white.png", Pixels: pix, Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("NewDecodedTexture: %v", err)
	}
	g := &model.Graph{}
	g.AddNode("root", -1, mgl32.Ident4(), 0)
	a := model.NewAsset("tex",
		model.WithGraph(g),
		model.WithMeshes(triangle("tri", 0)),
		model.WithMaterials(material.NewMaterial(material.WithDiffuseTexture(tex))))
	if err := model.Validate(a); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	view := ViewState{Frame: newFakeFrame(a), Flags: DefaultRenderFlags}
	if err := r.Render(view, testCamera(), []int{0}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if tex.State() != material.TextureResident {
		t.Fatalf("texture state = %v, want resident", tex.State())
	}
	d := b.draws[0]
	if !d.Program.Key.Has(shader.FlagTexturing) || d.Texture != tex.Handle() {
		t.Fatalf("draw key %v texture %v, want texturing with %v", d.Program.Key, d.Texture, tex.Handle())
	}

	if err := r.Render(ViewState{Frame: newFakeFrame(a), Flags: RenderShaded}, testCamera(), []int{0}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if d := b.draws[0]; d.Program.Key.Has(shader.FlagTexturing) || d.Texture != nil {
		t.Fatal("texturing used with RenderTextured off")
	}
	if b.textures != 1 {
		t.Fatalf("uploaded %d textures, want 1", b.textures)
	}
}

func TestCompileErrorOpensNoFrame(t *testing.T) {
	key := shader.FlagLighting
	b := &fakeBackend{failKey: &key}
	r := newTestRenderer(t, b)
	view := ViewState{Frame: newFakeFrame(layeredAsset(t)), Flags: DefaultRenderFlags}

	err := r.Render(view, testCamera(), []int{1})
	var compileErr *shader.ShaderCompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("Render error = %v, want a ShaderCompileError", err)
	}
	if b.frames != 0 {
		t.Fatalf("opened %d frames, want 0", b.frames)
	}

	b.failKey = nil
	if err := r.Render(view, testCamera(), []int{1}); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestSkinnedMeshDrawsPoseWithRootTransform(t *testing.T) {
	b := &fakeBackend{}
	r := newTestRenderer(t, b)

	g := &model.Graph{}
	root := g.AddNode("root", -1, mgl32.Translate3D(0, 2, 0))
	g.AddNode("bone", root, mgl32.Translate3D(5, 0, 0), 0)
	mesh := triangle("skin", -1)
	mesh.Bones = []model.Bone{{Name: "bone", Node: 1, InverseBind: mgl32.Ident4()}}
	mesh.Influences = [][]model.VertexWeight{{{Bone: 0, Weight: 1}}, {{Bone: 0, Weight: 1}}, {{Bone: 0, Weight: 1}}}
	a := model.NewAsset("skinned", model.WithGraph(g), model.WithMeshes(mesh))
	if err := model.Validate(a); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	frame := newFakeFrame(a)
	view := ViewState{Frame: frame, Flags: DefaultRenderFlags | RenderAnimated}

	if err := r.Render(view, testCamera(), []int{1}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	d := b.draws[0]
	if !d.Program.Key.Has(shader.FlagSkinning) {
		t.Fatalf("key %v lacks skinning", d.Program.Key)
	}
	if mgl32.Mat4(d.Uniforms.Model) != frame.RootTransform() {
		t.Fatalf("model = %v, want the root transform", d.Uniforms.Model)
	}

	mesh.Pose.Positions[0] = mgl32.Vec3{7, 7, 7}
	if err := r.Render(view, testCamera(), []int{1}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b.meshUploads != 1 || b.meshUpdates != 1 {
		t.Fatalf("uploads %d updates %d, want 1 and 1", b.meshUploads, b.meshUpdates)
	}
	if got := b.meshes[0].vertices[0].Position; got != [3]float32{7, 7, 7} {
		t.Fatalf("updated position = %v, want the pose", got)
	}
}

func TestSelectKey(t *testing.T) {
	shiny := material.NewMaterial(material.WithSpecular(mgl32.Vec3{1, 1, 1}, 32, 1))
	colored := triangle("colored", -1)
	colored.Colors = []mgl32.Vec4{{1, 0, 0, 1}, {0, 1, 0, 1}, {0, 0, 1, 1}}
	bare := triangle("bare", -1)
	bare.Normals = nil

	tests := []struct {
		name  string
		flags RenderFlags
		mesh  *model.Mesh
		mat   material.Material
		want  shader.PermutationKey
	}{
		{"lit", DefaultRenderFlags, triangle("t", -1), nil, shader.FlagLighting},
		{"unshaded", RenderTextured, triangle("t", -1), nil, 0},
		{"no normals", DefaultRenderFlags, bare, shiny, 0},
		{"specular", DefaultRenderFlags, triangle("t", -1), shiny, shader.FlagLighting | shader.FlagSpecular},
		{"vertex color", RenderShaded, colored, nil, shader.FlagLighting | shader.FlagVertexColor},
		{"pending texture", DefaultRenderFlags, triangle("t", -1), material.NewMaterial(material.WithDiffuseTexture(material.NewTexture("x.png"))), shader.FlagLighting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectKey(tt.flags, tt.mesh, tt.mat); got != tt.want {
				t.Fatalf("selectKey = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResizeReconfiguresOnChange(t *testing.T) {
	b := &fakeBackend{}
	r := newTestRenderer(t, b)
	view := ViewState{Frame: newFakeFrame(layeredAsset(t)), Width: 800, Height: 600}
	for i := 0; i < 2; i++ {
		if err := r.Render(view, testCamera(), nil); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}
	if err := r.Resize(1024, 768); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if len(b.configured) != 2 || b.configured[1] != [2]int{1024, 768} {
		t.Fatalf("configured %v", b.configured)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	b := &fakeBackend{}
	r := newTestRenderer(t, b)
	a := layeredAsset(t)
	if err := r.Render(ViewState{Frame: newFakeFrame(a)}, testCamera(), []int{1, 2}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	r.Release()
	r.Release()
	if b.releases != 1 {
		t.Fatalf("backend released %d times, want 1", b.releases)
	}
	for _, m := range b.meshes {
		if !m.released {
			t.Fatalf("mesh %s not released", m.label)
		}
	}
	if err := r.Render(ViewState{Frame: newFakeFrame(a)}, testCamera(), nil); err == nil {
		t.Fatal("Render after Release succeeded")
	}
	if _, err := r.Cache().GenerateOrGet(0); !errors.Is(err, shader.ErrCacheDisposed) {
		t.Fatalf("GenerateOrGet after Release = %v, want ErrCacheDisposed", err)
	}
}

func TestReleaseAssetDropsMeshes(t *testing.T) {
	b := &fakeBackend{}
	r := newTestRenderer(t, b)
	a := layeredAsset(t)
	if err := r.Render(ViewState{Frame: newFakeFrame(a)}, testCamera(), []int{1}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	r.ReleaseAsset(a)
	if !b.meshes[0].released {
		t.Fatal("mesh still resident")
	}
	if err := r.Render(ViewState{Frame: newFakeFrame(a)}, testCamera(), []int{1}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b.meshUploads != 2 {
		t.Fatalf("uploads = %d, want a re-upload", b.meshUploads)
	}
}

func TestNewRendererNeedsSurfaceOrBackend(t *testing.T) {
	if _, err := NewRenderer(BackendTypeWGPU, nil); err == nil {
		t.Fatal("NewRenderer without surface or backend succeeded")
	}
}
