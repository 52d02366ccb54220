// Command viewer opens a window and plays the built in walker scene.
//
// Controls: left drag orbits, middle or right drag pans, the wheel zooms. Space pauses,
// N cycles clips, L toggles looping, T and S toggle texturing and shading, F frames the
// scene and the minus and equal keys change the playback speed.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine"
	"github.com/Carmen-Shannon/oxy-view/engine/config"
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/Carmen-Shannon/oxy-view/engine/scene"
	"github.com/Carmen-Shannon/oxy-view/engine/window"
)

func main() {
	configPath := flag.String("config", "oxy-view.yaml", "settings file; a missing file uses the defaults")
	flag.Parse()

	if err := run(*configPath); err != nil {
		common.Logger().Error("viewer failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		// no logger is configured yet
		common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
		return err
	}
	level, _ := cfg.SlogLevel()
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := dispatch.ConfigureDefault(cfg.DispatcherOptions()...); err != nil {
		return errors.Wrap(err, "configure dispatcher")
	}

	s, err := loadWalker(cfg)
	if err != nil {
		return err
	}

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return errors.Wrap(err, "open window")
	}
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win, cfg.RendererOptions()...)
	if err != nil {
		_ = win.Close()
		return errors.Wrap(err, "create renderer")
	}
	if cam := s.Camera(); cam != nil && win.Height() > 0 {
		cam.SetAspect(float32(win.Width()) / float32(win.Height()))
	}

	newControls(s).bind(win)

	e := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithScene(0, s),
		engine.WithTickRate(cfg.Engine.TickRate),
		engine.WithRenderFrameLimit(cfg.Engine.FrameLimit),
		engine.WithProfiling(cfg.Engine.Profiling),
	)
	e.Run()
	return nil
}

// loadWalker builds the demo asset and loads it with the configured playback and render flags.
func loadWalker(cfg *config.Config) (scene.Scene, error) {
	asset, err := buildWalker()
	if err != nil {
		return nil, err
	}
	return scene.Load(asset,
		scene.WithName("walker"),
		scene.WithSamplerOptions(cfg.SamplerOptions(len(asset.Clips))...),
		scene.WithRenderFlags(cfg.RenderFlags()),
	)
}
