package renderer

import (
	"sort"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/shader"
)

// Surface is the window the wgpu backend presents to.
type Surface interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// meshEntry is the GPU copy of a mesh. frame records the last frame its pose was written.
type meshEntry struct {
	handle MeshHandle
	frame  uint64
}

// drawItem is one mesh instance collected for the frame.
type drawItem struct {
	mesh     *model.Mesh
	entry    *meshEntry
	key      shader.PermutationKey
	program  *shader.Program
	material material.Material
	texture  material.TextureHandle
	model    mgl32.Mat4
	depth    float32
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	cache       shader.Cache
	classifier  material.Classifier

	meshes   map[*model.Mesh]*meshEntry
	frame    uint64
	width    int
	height   int
	released bool

	// per frame scratch
	vertices []model.GPUVertex
	opaque   []drawItem
	alpha    []drawItem
	seen     []bool

	// pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	pendingClearColor    *[4]float64
	cacheOptions         []shader.CacheBuilderOption
	classifierOptions    []material.ClassifierBuilderOption
}

// Renderer draws evaluated scenes. It owns the shader permutation cache, the material classifier
// and the GPU copies of meshes, and releases all of them in Release.
//
// Render must be called from the goroutine that created the Renderer.
type Renderer interface {
	// Render draws the visible nodes of a frame: it uploads pending textures, draws opaque and
	// unclassified meshes with depth writes, then alpha meshes sorted back to front with blending.
	//
	// Parameters:
	//   - view: the frame source, projection, light and flags
	//   - cam: the camera providing the view matrix
	//   - visible: the node indices to draw; out of range and repeated indices are ignored
	//
	// Returns:
	//   - error: error if a shader permutation fails to build or the backend fails the frame
	Render(view ViewState, cam camera.Camera, visible []int) error

	// Resize reconfigures the surface for a new viewport size.
	//
	// Parameters:
	//   - width: viewport width in pixels
	//   - height: viewport height in pixels
	//
	// Returns:
	//   - error: error if the surface could not be reconfigured
	Resize(width, height int) error

	// Cache returns the shader permutation cache.
	//
	// Returns:
	//   - shader.Cache: the cache
	Cache() shader.Cache

	// Classifier returns the material classifier.
	//
	// Returns:
	//   - material.Classifier: the classifier
	Classifier() material.Classifier

	// ReleaseAsset destroys the GPU buffers of an asset's meshes, typically when its scene unloads.
	//
	// Parameters:
	//   - asset: the asset
	ReleaseAsset(asset *model.Asset)

	// Release destroys every GPU object owned by the renderer. Safe to call more than once.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer. Without WithBackend it creates the backend selected by
// backendType on the given surface.
//
// Parameters:
//   - backendType: the GPU backend to create
//   - surface: the window to present to; may be nil when a backend is injected
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the new renderer
//   - error: error if the backend could not be created or the surface configured
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		meshes:      make(map[*model.Mesh]*meshEntry),
	}

	// options first so config flags are known before the backend requests an adapter
	for _, opt := range options {
		opt(r)
	}

	if r.backend == nil {
		if surface == nil {
			return nil, errors.New("renderer needs a surface or a backend")
		}
		msaa := MSAA4x
		if r.pendingMSAA != nil {
			msaa = *r.pendingMSAA
		}
		switch backendType {
		case BackendTypeWGPU:
			fallthrough
		default:
			b, err := newWGPURendererBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
			if err != nil {
				return nil, errors.Wrap(err, "create wgpu backend")
			}
			r.backend = b
		}
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if r.pendingClearColor != nil {
		r.backend.SetClearColor(*r.pendingClearColor)
	}
	if surface != nil {
		if err := r.configure(surface.Width(), surface.Height()); err != nil {
			r.backend.Release()
			return nil, err
		}
	}

	r.cache = shader.NewCache(r.backend, r.cacheOptions...)
	r.classifier = material.NewClassifier(r.backend, r.classifierOptions...)
	return r, nil
}

func (r *renderer) Cache() shader.Cache {
	return r.cache
}

func (r *renderer) Classifier() material.Classifier {
	return r.classifier
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return errors.New("renderer is released")
	}
	return r.configure(width, height)
}

// configure reconfigures the surface when the size changed. Caller must hold the mutex.
func (r *renderer) configure(width, height int) error {
	if width <= 0 || height <= 0 || (width == r.width && height == r.height) {
		return nil
	}
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		return errors.Wrapf(err, "configure surface %dx%d", width, height)
	}
	r.width, r.height = width, height
	return nil
}

func (r *renderer) Render(view ViewState, cam camera.Camera, visible []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return errors.New("renderer is released")
	}
	if view.Frame == nil || view.Frame.Asset() == nil {
		return errors.New("view has no frame source")
	}
	if cam == nil {
		return errors.New("render needs a camera")
	}
	asset := view.Frame.Asset()
	if !asset.Validated() {
		return errors.Errorf("asset %q has not been validated", asset.Name)
	}
	if err := r.configure(view.Width, view.Height); err != nil {
		return err
	}
	r.frame++

	// a failed upload leaves the texture decoded; it is retried next frame and drawn untextured meanwhile
	for _, m := range asset.Materials {
		if _, err := r.classifier.UploadTextures(m); err != nil {
			common.Logger().Warn("texture upload failed", "asset", asset.Name, "material", m.Name(), "error", err)
		}
	}

	viewMatrix := cam.ViewMatrix()
	projection := view.Projection
	if projection == (mgl32.Mat4{}) {
		projection = cam.ProjectionMatrix()
	}
	viewProj := projection.Mul4(viewMatrix)

	if err := r.collect(view, asset, viewMatrix, visible); err != nil {
		return err
	}
	// view space looks down -Z, so the farthest item has the smallest depth
	sort.SliceStable(r.alpha, func(i, j int) bool {
		return r.alpha[i].depth < r.alpha[j].depth
	})

	// build every permutation before the pass opens so a compile error leaves no frame half recorded
	for _, items := range [][]drawItem{r.opaque, r.alpha} {
		for i := range items {
			prog, err := r.cache.GenerateOrGet(items[i].key)
			if err != nil {
				return errors.Wrapf(err, "mesh %q", items[i].mesh.Name)
			}
			items[i].program = prog
		}
	}

	if err := r.backend.BeginFrame(len(r.opaque) + len(r.alpha)); err != nil {
		return errors.Wrap(err, "begin frame")
	}
	eye := cam.Position()
	for _, pass := range []struct {
		items   []drawItem
		variant pipeline.Variant
	}{
		{r.opaque, pipeline.VariantOpaque},
		{r.alpha, pipeline.VariantBlended},
	} {
		for _, item := range pass.items {
			err := r.backend.Draw(DrawCommand{
				Program:  item.program,
				Variant:  pass.variant,
				Mesh:     item.entry.handle,
				Texture:  item.texture,
				Uniforms: NewGPUDrawUniforms(viewProj, item.model, item.material, view.LightDirection, eye),
			})
			if err != nil {
				// close the pass so the next frame can acquire the surface
				_ = r.backend.EndFrame()
				r.backend.Present()
				return errors.Wrapf(err, "draw mesh %q", item.mesh.Name)
			}
		}
	}
	if err := r.backend.EndFrame(); err != nil {
		return errors.Wrap(err, "end frame")
	}
	r.backend.Present()
	return nil
}

// collect fills the opaque and alpha lists. Caller must hold the mutex.
func (r *renderer) collect(view ViewState, asset *model.Asset, viewMatrix mgl32.Mat4, visible []int) error {
	r.opaque, r.alpha = r.opaque[:0], r.alpha[:0]
	nodes := asset.Graph.Nodes
	if cap(r.seen) < len(nodes) {
		r.seen = make([]bool, len(nodes))
	}
	r.seen = r.seen[:len(nodes)]
	clear(r.seen)

	for _, node := range visible {
		if node < 0 || node >= len(nodes) || r.seen[node] {
			continue
		}
		r.seen[node] = true
		for _, mi := range nodes[node].Meshes {
			mesh := asset.Meshes[mi]
			if len(mesh.Indices) == 0 || len(mesh.Positions) == 0 {
				continue
			}
			entry, err := r.meshEntry(asset, mi, mesh)
			if err != nil {
				return err
			}

			var mat material.Material
			if mesh.MaterialIndex >= 0 {
				mat = asset.Materials[mesh.MaterialIndex]
			}
			item := drawItem{
				mesh:     mesh,
				entry:    entry,
				key:      selectKey(view.Flags, mesh, mat),
				material: mat,
			}
			if item.key.Has(shader.FlagTexturing) {
				item.texture = mat.DiffuseTexture().Handle()
			}
			if mesh.Skinned() {
				item.model = view.Frame.RootTransform()
			} else {
				item.model = view.Frame.WorldTransform(node)
			}

			if r.classifier.Classify(mat) == material.ClassAlpha {
				center, _ := mesh.Bounds()
				item.depth = mgl32.TransformCoordinate(center, viewMatrix.Mul4(item.model)).Z()
				r.alpha = append(r.alpha, item)
			} else {
				r.opaque = append(r.opaque, item)
			}
		}
	}
	return nil
}

// meshEntry uploads a mesh on first use and rewrites the vertex buffer of skinned meshes once per frame.
// Caller must hold the mutex.
func (r *renderer) meshEntry(asset *model.Asset, index int, mesh *model.Mesh) (*meshEntry, error) {
	entry, ok := r.meshes[mesh]
	if !ok {
		r.vertices = model.PackVertices(mesh, r.vertices)
		handle, err := r.backend.UploadMesh(asset.Name+"/"+mesh.Name, r.vertices, mesh.Indices)
		if err != nil {
			return nil, errors.Wrapf(err, "upload mesh %d %q", index, mesh.Name)
		}
		entry = &meshEntry{handle: handle, frame: r.frame}
		r.meshes[mesh] = entry
		common.Logger().Debug("mesh uploaded",
			"asset", asset.Name,
			"mesh", mesh.Name,
			"vertices", len(mesh.Positions),
			"skinned", mesh.Skinned())
		return entry, nil
	}
	if mesh.Pose != nil && entry.frame != r.frame {
		r.vertices = model.PackVertices(mesh, r.vertices)
		if err := r.backend.UpdateMesh(entry.handle, r.vertices); err != nil {
			return nil, errors.Wrapf(err, "update mesh %d %q", index, mesh.Name)
		}
		entry.frame = r.frame
	}
	return entry, nil
}

// selectKey picks the shader permutation for a mesh. Features only switch on when the mesh
// carries the data they read.
func selectKey(flags RenderFlags, mesh *model.Mesh, mat material.Material) shader.PermutationKey {
	var key shader.PermutationKey
	if flags.Has(RenderShaded) && len(mesh.Normals) > 0 {
		key |= shader.FlagLighting
		if mat != nil && mat.HasSpecular() {
			key |= shader.FlagSpecular
		}
	}
	if flags.Has(RenderTextured) && mat != nil && len(mesh.UVs) > 0 {
		if tex := mat.DiffuseTexture(); tex != nil && tex.State() == material.TextureResident {
			key |= shader.FlagTexturing
		}
	}
	if len(mesh.Colors) > 0 {
		key |= shader.FlagVertexColor
	}
	if flags.Has(RenderAnimated) && mesh.Skinned() {
		key |= shader.FlagSkinning
	}
	return key
}

func (r *renderer) ReleaseAsset(asset *model.Asset) {
	if asset == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mesh := range asset.Meshes {
		if entry, ok := r.meshes[mesh]; ok {
			r.backend.ReleaseMesh(entry.handle)
			delete(r.meshes, mesh)
		}
	}
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true

	for mesh, entry := range r.meshes {
		r.backend.ReleaseMesh(entry.handle)
		delete(r.meshes, mesh)
	}
	r.cache.Dispose()
	r.classifier.Release()
	r.backend.Release()
}
