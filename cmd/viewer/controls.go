package main

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-view/engine/scene"
	"github.com/Carmen-Shannon/oxy-view/engine/window"
)

const (
	speedStep  = 1.25
	maxSpeed   = 8
	minSpeed   = 1.0 / 16
	pausedRate = 0
)

// controls maps window input to camera moves and playback changes of one scene.
type controls struct {
	mu     *sync.Mutex
	scene  scene.Scene
	button window.MouseButton
	held   bool
	lastX  float32
	lastY  float32
	speed  float32 // speed to restore on unpause
}

func newControls(s scene.Scene) *controls {
	return &controls{
		mu:    &sync.Mutex{},
		scene: s,
		speed: s.Sampler().PlaybackSpeed(),
	}
}

// bind registers the input callbacks on a window.
func (c *controls) bind(w window.Window) {
	w.SetMouseButtonCallback(c.mouseButton)
	w.SetMouseMoveCallback(c.mouseMove)
	w.SetScrollCallback(c.scroll)
	w.SetKeyDownCallback(c.keyDown)
}

func (c *controls) mouseButton(button window.MouseButton, pressed bool, x, y float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pressed {
		c.button, c.held = button, true
		c.lastX, c.lastY = x, y
		return
	}
	if button == c.button {
		c.held = false
	}
}

func (c *controls) mouseMove(x, y float32) {
	c.mu.Lock()
	dx, dy := x-c.lastX, y-c.lastY
	c.lastX, c.lastY = x, y
	held, button := c.held, c.button
	c.mu.Unlock()

	cam := c.scene.Camera()
	if !held || cam == nil || cam.Controller() == nil {
		return
	}
	ctrl := cam.Controller()
	switch button {
	case window.MouseLeft:
		ctrl.Drag(dx, dy)
	case window.MouseMiddle, window.MouseRight:
		ctrl.DragPan(dx, dy)
	}
}

func (c *controls) scroll(delta float32) {
	if cam := c.scene.Camera(); cam != nil && cam.Controller() != nil {
		cam.Controller().Zoom(delta)
	}
}

func (c *controls) keyDown(key window.Key) {
	sampler := c.scene.Sampler()
	switch key {
	case window.KeySpace:
		c.togglePause()
	case window.KeyN:
		next := sampler.ActiveClip() + 1
		if next >= sampler.ClipCount() {
			next = animator.NoClip
		}
		if err := sampler.SetActiveClip(next); err != nil {
			common.Logger().Warn("select clip", "clip", next, "error", err)
			return
		}
		common.Logger().Info("clip selected", "clip", next)
	case window.KeyL:
		sampler.SetLoop(!sampler.Loop())
		common.Logger().Info("loop toggled", "loop", sampler.Loop())
	case window.KeyT:
		c.scene.SetFlags(c.scene.Flags() ^ renderer.RenderTextured)
	case window.KeyS:
		c.scene.SetFlags(c.scene.Flags() ^ renderer.RenderShaded)
	case window.KeyF:
		c.scene.FrameCamera()
	case window.KeyEqual:
		c.scaleSpeed(speedStep)
	case window.KeyMinus:
		c.scaleSpeed(1 / speedStep)
	}
}

// togglePause stops playback, remembering the speed, or restores the remembered speed.
func (c *controls) togglePause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	sampler := c.scene.Sampler()
	if cur := sampler.PlaybackSpeed(); cur != pausedRate {
		c.speed = cur
		_ = sampler.SetPlaybackSpeed(pausedRate)
		return
	}
	_ = sampler.SetPlaybackSpeed(c.speed)
}

func (c *controls) scaleSpeed(factor float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sampler := c.scene.Sampler()
	cur := sampler.PlaybackSpeed()
	if cur == pausedRate {
		c.speed = clampSpeed(c.speed * factor)
		return
	}
	next := clampSpeed(cur * factor)
	_ = sampler.SetPlaybackSpeed(next)
	common.Logger().Info("playback speed", "speed", next)
}

func clampSpeed(s float32) float32 {
	return math32.Min(math32.Max(s, minSpeed), maxSpeed)
}
