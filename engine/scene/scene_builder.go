package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/skinning"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName overrides the scene name, which defaults to the asset name.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithCamera supplies the scene's camera. A supplied camera is left where it is unless
// WithFrameOnLoad is also given.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.camera = cam
	}
}

// WithFrameOnLoad frames the camera on the asset's bounds after loading.
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithFrameOnLoad() SceneBuilderOption {
	return func(s *scene) {
		s.frameOnLoad = true
	}
}

// WithRenderFlags sets the initial render flags.
//
// Parameters:
//   - flags: the render flags
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRenderFlags(flags renderer.RenderFlags) SceneBuilderOption {
	return func(s *scene) {
		s.flags = flags &^ renderer.RenderAnimated
	}
}

// WithLightDirection sets the direction toward the directional light.
//
// Parameters:
//   - dir: the direction in world space
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLightDirection(dir mgl32.Vec3) SceneBuilderOption {
	return func(s *scene) {
		s.lightDir = dir
	}
}

// WithSamplerOptions forwards options to the scene's animation sampler.
//
// Parameters:
//   - options: sampler options such as the active clip, speed and loop flag
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSamplerOptions(options ...animator.SamplerBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.samplerOptions = append(s.samplerOptions, options...)
	}
}

// WithDispatcher sets the dispatcher that skins the scene's meshes.
// Defaults to the process-wide dispatcher.
//
// Parameters:
//   - d: the dispatcher
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithDispatcher(d dispatch.Dispatcher) SceneBuilderOption {
	return func(s *scene) {
		s.evaluatorOptions = append(s.evaluatorOptions, skinning.WithDispatcher(d))
	}
}

// WithMinChunkSize sets the minimum number of vertices skinned per chunk.
//
// Parameters:
//   - n: the minimum chunk size
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMinChunkSize(n int) SceneBuilderOption {
	return func(s *scene) {
		s.evaluatorOptions = append(s.evaluatorOptions, skinning.WithMinChunkSize(n))
	}
}
