package scene

import (
	"context"
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/skinning"
)

// DefaultLightDirection points from the scene toward a light above and in front of the camera.
var DefaultLightDirection = mgl32.Vec3{0.3, 1, 0.6}

// Scene is one loaded asset together with its playback state, evaluated pose and camera.
// It implements renderer.FrameSource so a Renderer can draw it directly.
// Update and the FrameSource methods must be called from the goroutine driving the frame.
type Scene interface {
	renderer.FrameSource

	// ID returns the identifier assigned at load, used to correlate log lines.
	ID() uuid.UUID

	// Name returns the scene's name.
	Name() string

	// Active returns whether the scene is drawn.
	Active() bool

	// SetActive sets whether the scene is drawn.
	//
	// Parameters:
	//   - active: true to draw the scene
	SetActive(active bool)

	// Sampler returns the scene's playback state.
	Sampler() animator.Sampler

	// Evaluator returns the scene's pose evaluator.
	Evaluator() skinning.PoseEvaluator

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Flags returns the render flags of the scene.
	Flags() renderer.RenderFlags

	// SetFlags replaces the render flags of the scene. RenderAnimated is managed by the scene
	// and follows whether a clip is playing.
	//
	// Parameters:
	//   - flags: the new flags
	SetFlags(flags renderer.RenderFlags)

	// SetLightDirection sets the direction toward the scene's directional light.
	//
	// Parameters:
	//   - dir: the direction in world space, need not be normalized
	SetLightDirection(dir mgl32.Vec3)

	// Bounds returns a sphere enclosing every mesh of the scene at its static pose.
	//
	// Returns:
	//   - mgl32.Vec3: the center in world space
	//   - float32: the radius
	Bounds() (mgl32.Vec3, float32)

	// FrameCamera moves the camera so the whole scene is in view.
	FrameCamera()

	// Update advances playback by dt seconds and evaluates the pose at the new cursor.
	//
	// Parameters:
	//   - ctx: cancels skinning work that has not started
	//   - dt: elapsed time in seconds
	//
	// Returns:
	//   - error: error if pose evaluation failed
	Update(ctx context.Context, dt float32) error

	// View returns the render state of the current frame.
	//
	// Parameters:
	//   - width: the viewport width in pixels
	//   - height: the viewport height in pixels
	//
	// Returns:
	//   - renderer.ViewState: the state to pass to Renderer.Render
	View(width, height int) renderer.ViewState

	// VisibleNodes returns the nodes whose meshes intersect the camera frustum.
	// The returned slice is reused by the next call.
	//
	// Returns:
	//   - []int: node indices in graph order
	VisibleNodes() []int
}

type scene struct {
	mu        *sync.Mutex
	id        uuid.UUID
	name      string
	active    bool
	asset     *model.Asset
	sampler   animator.Sampler
	evaluator skinning.PoseEvaluator
	camera    camera.Camera
	flags     renderer.RenderFlags
	lightDir  mgl32.Vec3
	center    mgl32.Vec3
	radius    float32
	visible   []int

	frameOnLoad      bool
	samplerOptions   []animator.SamplerBuilderOption
	evaluatorOptions []skinning.PoseEvaluatorBuilderOption
}

var _ Scene = &scene{}

// Load validates an asset and builds the scene around it. The camera is framed on the
// asset's bounds unless one was supplied.
//
// Parameters:
//   - asset: the asset to load
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the loaded scene
//   - error: an *model.AssetIntegrityError if the asset is malformed, or an error from an out of range option
func Load(asset *model.Asset, options ...SceneBuilderOption) (Scene, error) {
	if asset == nil {
		return nil, errors.New("load needs an asset")
	}
	s := &scene{
		mu:       &sync.Mutex{},
		id:       uuid.New(),
		name:     asset.Name,
		active:   true,
		asset:    asset,
		flags:    renderer.DefaultRenderFlags,
		lightDir: DefaultLightDirection,
	}
	for _, opt := range options {
		opt(s)
	}

	if err := model.Validate(asset); err != nil {
		common.Logger().Error("asset rejected", "scene", s.id, "asset", asset.Name, "error", err)
		return nil, err
	}
	sampler, err := animator.NewSampler(asset, s.samplerOptions...)
	if err != nil {
		return nil, errors.Wrapf(err, "scene %q", s.name)
	}
	evaluator, err := skinning.NewPoseEvaluator(asset, sampler, s.evaluatorOptions...)
	if err != nil {
		return nil, errors.Wrapf(err, "scene %q", s.name)
	}
	s.sampler, s.evaluator = sampler, evaluator
	s.center, s.radius = s.staticBounds()

	if s.camera == nil {
		s.camera = camera.NewCamera(camera.WithController(camera.NewOrbitController()))
		s.frameOnLoad = true
	}
	if s.frameOnLoad {
		s.FrameCamera()
	}
	// pose buffers and world transforms reflect the initial cursor before the first frame
	if err := evaluator.Evaluate(context.Background(), sampler.Cursor()); err != nil {
		return nil, errors.Wrapf(err, "scene %q", s.name)
	}

	common.Logger().Info("scene loaded",
		"scene", s.id,
		"name", s.name,
		"nodes", len(asset.Graph.Nodes),
		"meshes", len(asset.Meshes),
		"clips", len(asset.Clips),
		"radius", s.radius)
	return s, nil
}

func (s *scene) ID() uuid.UUID {
	return s.id
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Asset() *model.Asset {
	return s.asset
}

func (s *scene) Sampler() animator.Sampler {
	return s.sampler
}

func (s *scene) Evaluator() skinning.PoseEvaluator {
	return s.evaluator
}

func (s *scene) Camera() camera.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = cam
}

func (s *scene) Flags() renderer.RenderFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags
}

func (s *scene) SetFlags(flags renderer.RenderFlags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = flags &^ renderer.RenderAnimated
}

func (s *scene) SetLightDirection(dir mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lightDir = dir
}

func (s *scene) Bounds() (mgl32.Vec3, float32) {
	return s.center, s.radius
}

func (s *scene) FrameCamera() {
	cam := s.Camera()
	if cam == nil || cam.Controller() == nil {
		return
	}
	radius := s.radius
	if radius <= 0 {
		radius = 1
	}
	cam.Controller().Frame(s.center, radius, cam.Fov())
	// keep the whole sphere between the clip planes
	dist := cam.Controller().Radius()
	cam.SetNear(math32.Max(dist-radius*1.5, dist*0.001))
	cam.SetFar(dist + radius*4)
	cam.Update()
}

func (s *scene) Update(ctx context.Context, dt float32) error {
	s.sampler.Advance(dt)
	if err := s.evaluator.Evaluate(ctx, s.sampler.Cursor()); err != nil {
		return errors.Wrapf(err, "scene %q", s.name)
	}
	if cam := s.Camera(); cam != nil {
		cam.Update()
	}
	return nil
}

func (s *scene) WorldTransform(node int) mgl32.Mat4 {
	return s.evaluator.WorldTransform(node)
}

func (s *scene) RootTransform() mgl32.Mat4 {
	return s.evaluator.RootTransform()
}

func (s *scene) View(width, height int) renderer.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	flags := s.flags
	if s.sampler.ActiveClip() != animator.NoClip {
		flags |= renderer.RenderAnimated
	}
	return renderer.ViewState{
		Frame:          s,
		LightDirection: s.lightDir,
		Flags:          flags,
		Width:          width,
		Height:         height,
	}
}

func (s *scene) VisibleNodes() []int {
	cam := s.Camera()
	if cam == nil {
		return s.visible[:0]
	}
	s.visible = renderer.VisibleNodes(s, cam.ViewProjectionMatrix(), s.visible)
	return s.visible
}

// staticBounds encloses the bounding sphere of every mesh instance at the static pose.
func (s *scene) staticBounds() (mgl32.Vec3, float32) {
	var lo, hi mgl32.Vec3
	first := true
	g := s.asset.Graph
	for _, node := range g.Order() {
		for _, mi := range g.Nodes[node].Meshes {
			mesh := s.asset.Meshes[mi]
			if len(mesh.Positions) == 0 {
				continue
			}
			world := s.evaluator.WorldTransform(node)
			if mesh.Skinned() {
				world = s.evaluator.RootTransform()
			}
			c, r := mesh.Bounds()
			c = mgl32.TransformCoordinate(c, world)
			r *= maxAxisScale(world)
			for k := 0; k < 3; k++ {
				if first || c[k]-r < lo[k] {
					lo[k] = c[k] - r
				}
				if first || c[k]+r > hi[k] {
					hi[k] = c[k] + r
				}
			}
			first = false
		}
	}
	if first {
		return mgl32.Vec3{}, 0
	}
	center := lo.Add(hi).Mul(0.5)
	return center, hi.Sub(center).Len()
}

func maxAxisScale(m mgl32.Mat4) float32 {
	return max(m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len())
}
