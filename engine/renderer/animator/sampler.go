package animator

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/engine/model"
)

// NoClip is the active clip index that disables playback and shows the bind pose.
const NoClip = -1

type sampler struct {
	mu     *sync.Mutex
	graph  *model.Graph
	clips  []*model.AnimationClip
	active int
	cursor float32
	speed  float32
	loop   bool
}

// Sampler owns the playback state of one scene and samples per-node local transforms from its clips.
//
// The cursor is measured in seconds. Advance and SetCursor bound it to [0, duration] of the active clip:
// when looping, advancing past the end wraps modulo the duration; otherwise the cursor stops at the end
// and every track holds its last key. Switching to a shorter clip keeps the cursor as is, so it may lie
// past the new duration until the next Advance or SetCursor.
type Sampler interface {
	// ClipCount returns the number of clips the sampler is bound to.
	//
	// Returns:
	//   - int: the clip count
	ClipCount() int

	// ActiveClip returns the active clip index, or NoClip.
	//
	// Returns:
	//   - int: the active clip index in [-1, ClipCount())
	ActiveClip() int

	// SetActiveClip selects the clip to play. NoClip freezes every node at its static transform.
	// Only the index changes; the cursor is left as it is and is bounded to the new clip on the next
	// Advance or SetCursor.
	//
	// Parameters:
	//   - i: the clip index in [-1, ClipCount())
	//
	// Returns:
	//   - error: error if i is out of range
	SetActiveClip(i int) error

	// Cursor returns the playback position in seconds.
	//
	// Returns:
	//   - float32: the cursor
	Cursor() float32

	// SetCursor moves the playback position, applying the loop policy.
	//
	// Parameters:
	//   - t: the position in seconds, not negative
	//
	// Returns:
	//   - error: error if t is negative or not finite
	SetCursor(t float32) error

	// Duration returns the active clip's length in seconds, or 0 without an active clip.
	//
	// Returns:
	//   - float32: the duration
	Duration() float32

	// PlaybackSpeed returns the playback speed multiplier.
	//
	// Returns:
	//   - float32: the speed
	PlaybackSpeed() float32

	// SetPlaybackSpeed sets the playback speed multiplier.
	//
	// Parameters:
	//   - speed: the multiplier, not negative
	//
	// Returns:
	//   - error: error if speed is negative or not finite
	SetPlaybackSpeed(speed float32) error

	// Loop reports whether playback wraps at the end of the clip.
	//
	// Returns:
	//   - bool: true when looping
	Loop() bool

	// SetLoop toggles looping and re-applies the policy to the current cursor.
	//
	// Parameters:
	//   - loop: true to wrap, false to stop at the end
	SetLoop(loop bool)

	// Advance moves the cursor by dt scaled by the playback speed.
	// With a zero duration the cursor stays at 0.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Advance(dt float32)

	// SampleNodeTransform returns the local transform of a node at time t (seconds).
	// Nodes without a channel in the active clip return their static local transform.
	//
	// Parameters:
	//   - node: the node index
	//   - t: the sample time in seconds
	//
	// Returns:
	//   - mgl32.Mat4: the local transform
	SampleNodeTransform(node int, t float32) mgl32.Mat4

	// SampleLocalTransforms fills out with the local transform of every node at time t.
	//
	// Parameters:
	//   - t: the sample time in seconds
	//   - out: destination, one entry per graph node
	SampleLocalTransforms(t float32, out []mgl32.Mat4)
}

var _ Sampler = &sampler{}

// NewSampler creates a Sampler bound to a validated asset's graph and clips.
// Playback starts disabled at cursor 0 with speed 1 and looping on.
//
// Parameters:
//   - asset: the validated asset
//   - options: functional options to configure the sampler
//
// Returns:
//   - Sampler: the new sampler
//   - error: error if the asset has not been validated or an option is out of range
func NewSampler(asset *model.Asset, options ...SamplerBuilderOption) (Sampler, error) {
	if asset == nil || !asset.Validated() {
		return nil, errors.New("sampler needs a validated asset")
	}
	s := &sampler{
		mu:     &sync.Mutex{},
		graph:  asset.Graph,
		clips:  asset.Clips,
		active: NoClip,
		speed:  1,
		loop:   true,
	}
	for _, option := range options {
		option(s)
	}
	if s.active < NoClip || s.active >= len(s.clips) {
		return nil, errors.Errorf("clip index %d out of range [-1, %d)", s.active, len(s.clips))
	}
	if s.speed < 0 || math32.IsNaN(s.speed) || math32.IsInf(s.speed, 0) {
		return nil, errors.Errorf("playback speed %v must be a non-negative number", s.speed)
	}
	s.cursor = s.bound(s.cursor)
	return s, nil
}

func (s *sampler) ClipCount() int {
	return len(s.clips)
}

func (s *sampler) ActiveClip() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *sampler) SetActiveClip(i int) error {
	if i < NoClip || i >= len(s.clips) {
		return errors.Errorf("clip index %d out of range [-1, %d)", i, len(s.clips))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = i
	return nil
}

func (s *sampler) Cursor() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *sampler) SetCursor(t float32) error {
	if t < 0 || math32.IsNaN(t) || math32.IsInf(t, 0) {
		return errors.Errorf("cursor %v must be a non-negative number", t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = s.bound(t)
	return nil
}

func (s *sampler) Duration() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration()
}

func (s *sampler) PlaybackSpeed() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

func (s *sampler) SetPlaybackSpeed(speed float32) error {
	if speed < 0 || math32.IsNaN(speed) || math32.IsInf(speed, 0) {
		return errors.Errorf("playback speed %v must be a non-negative number", speed)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = speed
	return nil
}

func (s *sampler) Loop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

func (s *sampler) SetLoop(loop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = loop
	s.cursor = s.bound(s.cursor)
}

func (s *sampler) Advance(dt float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = s.bound(s.cursor + dt*s.speed)
}

func (s *sampler) SampleNodeTransform(node int, t float32) mgl32.Mat4 {
	s.mu.Lock()
	defer s.mu.Unlock()
	clip := s.activeClip()
	if clip == nil {
		return s.graph.Nodes[node].Local
	}
	return s.sampleNode(clip, node, s.clipTicks(clip, t))
}

func (s *sampler) SampleLocalTransforms(t float32, out []mgl32.Mat4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clip := s.activeClip()
	if clip == nil {
		for i := range s.graph.Nodes {
			out[i] = s.graph.Nodes[i].Local
		}
		return
	}
	ticks := s.clipTicks(clip, t)
	for i := range s.graph.Nodes {
		out[i] = s.sampleNode(clip, i, ticks)
	}
}

func (s *sampler) activeClip() *model.AnimationClip {
	if s.active == NoClip {
		return nil
	}
	return s.clips[s.active]
}

func (s *sampler) duration() float32 {
	clip := s.activeClip()
	if clip == nil {
		return 0
	}
	return clip.DurationSeconds()
}

// bound applies the loop policy to a cursor value. Caller must hold the mutex.
func (s *sampler) bound(t float32) float32 {
	d := s.duration()
	if d <= 0 {
		return 0
	}
	if !s.loop {
		return mgl32.Clamp(t, 0, d)
	}
	return wrap(t, d)
}

// clipTicks converts a time in seconds to a position in the clip's ticks under the loop policy.
func (s *sampler) clipTicks(clip *model.AnimationClip, t float32) float32 {
	if clip.Duration <= 0 {
		return 0
	}
	ticks := t * clip.Rate()
	if !s.loop {
		return mgl32.Clamp(ticks, 0, clip.Duration)
	}
	return wrap(ticks, clip.Duration)
}

func (s *sampler) sampleNode(clip *model.AnimationClip, node int, ticks float32) mgl32.Mat4 {
	ch, ok := clip.Channels[node]
	if !ok {
		return s.graph.Nodes[node].Local
	}
	return model.TRS(
		sampleVector(ch.Translations, ticks, mgl32.Vec3{}),
		sampleRotation(ch.Rotations, ticks),
		sampleVector(ch.Scales, ticks, mgl32.Vec3{1, 1, 1}),
	)
}

func wrap(t, d float32) float32 {
	r := math32.Mod(t, d)
	if r < 0 {
		r += d
	}
	return r
}
