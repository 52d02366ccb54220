package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-view/engine/scene"
)

type fakeRenderer struct {
	mu       sync.Mutex
	frames   []renderer.ViewState
	released int
	assets   []*model.Asset
	fail     error
}

func (f *fakeRenderer) Render(view renderer.ViewState, cam camera.Camera, visible []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, view)
	return f.fail
}

func (f *fakeRenderer) Resize(width, height int) error {
	return nil
}

func (f *fakeRenderer) Cache() shader.Cache {
	return nil
}

func (f *fakeRenderer) Classifier() material.Classifier {
	return nil
}

func (f *fakeRenderer) ReleaseAsset(a *model.Asset) {
	f.assets = append(f.assets, a)
}

func (f *fakeRenderer) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
}

func (f *fakeRenderer) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func loadScene(t *testing.T, name string) scene.Scene {
	t.Helper()
	g := &model.Graph{}
	g.AddNode("root", -1, mgl32.Ident4(), 0)
	mesh := &model.Mesh{
		Name:          "tri",
		Positions:     []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:       []uint32{0, 1, 2},
		MaterialIndex: -1,
	}
	s, err := scene.Load(model.NewAsset(name, model.WithGraph(g), model.WithMeshes(mesh)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestFrameDrawsLowestActiveScene(t *testing.T) {
	r := &fakeRenderer{}
	back, front := loadScene(t, "back"), loadScene(t, "front")
	e := NewEngine(WithRenderer(r), WithScene(5, back), WithScene(1, front)).(*engine)

	if got := e.frame(0.016); got != front {
		t.Fatalf("drew %v, want the front scene", got)
	}
	front.SetActive(false)
	if got := e.frame(0.016); got != back {
		t.Fatalf("drew %v, want the back scene", got)
	}
	back.SetActive(false)
	if got := e.frame(0.016); got != nil {
		t.Fatalf("drew %v with no active scene", got)
	}
	if len(r.frames) != 2 || r.frames[1].Frame != back {
		t.Fatalf("renderer saw %d frames", len(r.frames))
	}
	if len(r.frames[0].Frame.Asset().Graph.Nodes) != 1 {
		t.Fatal("frame source lost its asset")
	}
}

func TestFrameReportsErrors(t *testing.T) {
	r := &fakeRenderer{fail: errors.New("device lost")}
	s := loadScene(t, "broken")
	e := NewEngine(WithRenderer(r), WithScene(0, s)).(*engine)

	var reported error
	e.SetErrorCallback(func(got scene.Scene, err error) {
		if got != s {
			t.Errorf("error reported for %v", got)
		}
		reported = err
	})
	e.frame(0.016)
	if !errors.Is(reported, r.fail) {
		t.Fatalf("reported %v, want the render error", reported)
	}
}

func TestRemoveSceneReleasesAsset(t *testing.T) {
	r := &fakeRenderer{}
	s := loadScene(t, "gone")
	e := NewEngine(WithRenderer(r), WithScene(3, s))
	e.RemoveScene(3)
	if e.Scene(3) != nil || len(e.Scenes()) != 0 {
		t.Fatal("scene still registered")
	}
	if len(r.assets) != 1 || r.assets[0] != s.Asset() {
		t.Fatalf("released assets %v", r.assets)
	}
	e.RemoveScene(3)
	if len(r.assets) != 1 {
		t.Fatal("removing a missing scene released an asset")
	}
}

func TestRunHeadlessUntilQuit(t *testing.T) {
	r := &fakeRenderer{}
	e := NewEngine(WithRenderer(r), WithScene(0, loadScene(t, "loop")), WithTickRate(500))

	ticks := make(chan struct{}, 1)
	e.SetTickCallback(func(float32) {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	e.SetRenderCallback(func(float32) {
		if r.frameCount() >= 3 {
			e.Quit()
		}
	})

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		e.Quit()
		t.Fatal("Run did not return after Quit")
	}
	if r.released != 1 {
		t.Fatalf("renderer released %d times, want 1", r.released)
	}
	if r.frameCount() < 3 {
		t.Fatalf("rendered %d frames", r.frameCount())
	}
	e.Quit()
}

func TestTickRateConversion(t *testing.T) {
	e := NewEngine(WithTickRate(0)).(*engine)
	if e.engineTickRate != time.Second/60 {
		t.Fatalf("default tick = %v", e.engineTickRate)
	}
	e.SetTickRate(120)
	if e.engineTickRate != time.Second/120 {
		t.Fatalf("tick = %v", e.engineTickRate)
	}
	e.SetRenderFrameLimit(0)
	if e.renderFrameLimit != 0 {
		t.Fatal("frame limit not cleared")
	}
}
