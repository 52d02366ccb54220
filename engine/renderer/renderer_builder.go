package renderer

import (
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/shader"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithBackend uses the given backend instead of creating one. The renderer takes ownership
// and releases it in Release.
//
// Parameters:
//   - backend: the backend to draw with
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend option to a renderer
func WithBackend(backend RendererBackend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = backend
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// Higher values (MSAA8x, MSAA16x) are adapter-dependent and may not be supported
// by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithClearColor sets the color every frame is cleared to.
//
// Parameters:
//   - rgba: the clear color with components in [0, 1]
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(rgba [4]float64) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingClearColor = &rgba
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithShaderCacheOptions passes options to the renderer's shader permutation cache.
//
// Parameters:
//   - options: the cache options
//
// Returns:
//   - RendererBuilderOption: a function that applies the cache options to a renderer
func WithShaderCacheOptions(options ...shader.CacheBuilderOption) RendererBuilderOption {
	return func(r *renderer) {
		r.cacheOptions = append(r.cacheOptions, options...)
	}
}

// WithClassifierOptions passes options to the renderer's material classifier.
//
// Parameters:
//   - options: the classifier options
//
// Returns:
//   - RendererBuilderOption: a function that applies the classifier options to a renderer
func WithClassifierOptions(options ...material.ClassifierBuilderOption) RendererBuilderOption {
	return func(r *renderer) {
		r.classifierOptions = append(r.classifierOptions, options...)
	}
}
