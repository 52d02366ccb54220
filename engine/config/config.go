// Package config loads the viewer settings from a YAML file and turns them into component options.
package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/animator"
)

// Config is the full set of viewer settings. Fields missing from the file keep their defaults.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Playback   PlaybackConfig   `yaml:"playback"`
	Window     WindowConfig     `yaml:"window"`
	Renderer   RendererConfig   `yaml:"renderer"`
	Engine     EngineConfig     `yaml:"engine"`
}

// DispatcherConfig sizes the CPU worker pool.
type DispatcherConfig struct {
	// Workers is the pool size. 0 uses one worker per CPU.
	Workers int `yaml:"workers"`

	// MinChunkSize is the smallest number of items handed to one worker.
	MinChunkSize int `yaml:"min_chunk_size"`
}

// PlaybackConfig sets the initial animation state.
type PlaybackConfig struct {
	// Clip is the index of the clip to play, or -1 for the static pose.
	Clip  int     `yaml:"clip"`
	Speed float32 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

// WindowConfig sets the window title and size.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// RendererConfig sets surface and draw options.
type RendererConfig struct {
	// PresentMode is "vsync" or "uncapped".
	PresentMode string     `yaml:"present_mode"`
	MSAA        uint32     `yaml:"msaa"`
	ClearColor  [4]float64 `yaml:"clear_color"`
	Textured    bool       `yaml:"textured"`
	Shaded      bool       `yaml:"shaded"`
	Software    bool       `yaml:"software"`
}

// EngineConfig sets the frame loop rates.
type EngineConfig struct {
	TickRate   float64 `yaml:"tick_rate"`
	FrameLimit float64 `yaml:"frame_limit"`
	Profiling  bool    `yaml:"profiling"`
}

// Default returns the settings used when no file is given.
//
// Returns:
//   - *Config: a new config holding the defaults
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Dispatcher: DispatcherConfig{
			MinChunkSize: dispatch.DefaultMinChunkSize,
		},
		Playback: PlaybackConfig{
			Clip:  0,
			Speed: 1,
			Loop:  true,
		},
		Window: WindowConfig{
			Title:  "oxy-view",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			PresentMode: "vsync",
			MSAA:        uint32(renderer.MSAA4x),
			ClearColor:  [4]float64{0.1, 0.1, 0.12, 1},
			Textured:    true,
			Shaded:      true,
		},
		Engine: EngineConfig{
			TickRate: 60,
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
//
// Parameters:
//   - path: the file to read; empty means no file
//
// Returns:
//   - *Config: the loaded settings
//   - error: error if the file cannot be read or parsed, or holds an invalid value
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg and validates the result. Keys not present in data leave cfg unchanged.
//
// Parameters:
//   - data: the YAML document
//   - cfg: the config to update
//
// Returns:
//   - error: error if the document is malformed, has unknown keys or holds an invalid value
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// an empty document is not an error
		if errors.Is(err, io.EOF) {
			return cfg.Validate()
		}
		return errors.Wrap(err, "decode")
	}
	return cfg.Validate()
}

// Validate checks every value for range.
//
// Returns:
//   - error: error naming the first invalid value
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Dispatcher.Workers < 0 {
		return errors.Errorf("dispatcher.workers %d must not be negative", c.Dispatcher.Workers)
	}
	if c.Dispatcher.MinChunkSize < 1 {
		return errors.Errorf("dispatcher.min_chunk_size %d must be at least 1", c.Dispatcher.MinChunkSize)
	}
	if c.Playback.Clip < animator.NoClip {
		return errors.Errorf("playback.clip %d must be -1 or a clip index", c.Playback.Clip)
	}
	if c.Playback.Speed < 0 {
		return errors.Errorf("playback.speed %v must not be negative", c.Playback.Speed)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if _, err := c.PresentMode(); err != nil {
		return err
	}
	switch renderer.MSAASampleCount(c.Renderer.MSAA) {
	case renderer.MSAAOff, renderer.MSAA4x, renderer.MSAA8x, renderer.MSAA16x:
	default:
		return errors.Errorf("renderer.msaa %d must be 1, 4, 8 or 16", c.Renderer.MSAA)
	}
	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			return errors.Errorf("renderer.clear_color[%d] %v must be in [0, 1]", i, v)
		}
	}
	if c.Engine.TickRate < 0 || c.Engine.FrameLimit < 0 {
		return errors.Errorf("engine rates %v and %v must not be negative", c.Engine.TickRate, c.Engine.FrameLimit)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
//
// Returns:
//   - slog.Level: the level
//   - error: error if LogLevel is not debug, info, warn or error
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, errors.Errorf("log_level %q must be debug, info, warn or error", c.LogLevel)
	}
	return l, nil
}

// PresentMode maps the configured present mode name.
//
// Returns:
//   - renderer.PresentMode: the present mode
//   - error: error if the name is unknown
func (c *Config) PresentMode() (renderer.PresentMode, error) {
	switch strings.ToLower(c.Renderer.PresentMode) {
	case "vsync", "fifo":
		return renderer.PresentModeVSync, nil
	case "uncapped", "immediate":
		return renderer.PresentModeUncapped, nil
	}
	return 0, errors.Errorf("renderer.present_mode %q must be vsync or uncapped", c.Renderer.PresentMode)
}

// RenderFlags returns the render flags selected by the textured and shaded switches.
//
// Returns:
//   - renderer.RenderFlags: the flags
func (c *Config) RenderFlags() renderer.RenderFlags {
	var flags renderer.RenderFlags
	if c.Renderer.Textured {
		flags |= renderer.RenderTextured
	}
	if c.Renderer.Shaded {
		flags |= renderer.RenderShaded
	}
	return flags
}

// DispatcherOptions returns the options for the process-wide dispatcher.
//
// Returns:
//   - []dispatch.DispatcherBuilderOption: the dispatcher options
func (c *Config) DispatcherOptions() []dispatch.DispatcherBuilderOption {
	opts := []dispatch.DispatcherBuilderOption{dispatch.WithMinChunkSize(c.Dispatcher.MinChunkSize)}
	if c.Dispatcher.Workers > 0 {
		opts = append(opts, dispatch.WithWorkers(c.Dispatcher.Workers))
	}
	return opts
}

// SamplerOptions returns the options for a scene's animation sampler. The clip is only selected
// when the asset has that many clips.
//
// Parameters:
//   - clipCount: the number of clips of the asset being loaded
//
// Returns:
//   - []animator.SamplerBuilderOption: the sampler options
func (c *Config) SamplerOptions(clipCount int) []animator.SamplerBuilderOption {
	opts := []animator.SamplerBuilderOption{
		animator.WithPlaybackSpeed(c.Playback.Speed),
		animator.WithLoop(c.Playback.Loop),
	}
	if c.Playback.Clip < clipCount {
		opts = append(opts, animator.WithActiveClip(c.Playback.Clip))
	}
	return opts
}

// RendererOptions returns the options for the renderer. The config must have passed Validate.
//
// Returns:
//   - []renderer.RendererBuilderOption: the renderer options
func (c *Config) RendererOptions() []renderer.RendererBuilderOption {
	mode, _ := c.PresentMode()
	return []renderer.RendererBuilderOption{
		renderer.WithPresentMode(mode),
		renderer.WithMSAA(renderer.MSAASampleCount(c.Renderer.MSAA)),
		renderer.WithClearColor(c.Renderer.ClearColor),
		renderer.WithForceSoftwareRenderer(c.Renderer.Software),
	}
}
