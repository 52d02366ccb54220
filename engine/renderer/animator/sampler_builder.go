package animator

// SamplerBuilderOption is a functional option for configuring a Sampler via NewSampler.
type SamplerBuilderOption func(*sampler)

// WithActiveClip selects the clip that plays from the start.
//
// Parameters:
//   - i: the clip index, or NoClip
//
// Returns:
//   - SamplerBuilderOption: a function that sets the active clip
func WithActiveClip(i int) SamplerBuilderOption {
	return func(s *sampler) {
		s.active = i
	}
}

// WithPlaybackSpeed sets the initial playback speed multiplier.
//
// Parameters:
//   - speed: the multiplier, not negative
//
// Returns:
//   - SamplerBuilderOption: a function that sets the playback speed
func WithPlaybackSpeed(speed float32) SamplerBuilderOption {
	return func(s *sampler) {
		s.speed = speed
	}
}

// WithLoop sets whether playback wraps at the end of the clip.
//
// Parameters:
//   - loop: true to wrap, false to stop at the end
//
// Returns:
//   - SamplerBuilderOption: a function that sets looping
func WithLoop(loop bool) SamplerBuilderOption {
	return func(s *sampler) {
		s.loop = loop
	}
}

// WithCursor sets the initial playback position in seconds.
//
// Parameters:
//   - t: the position in seconds
//
// Returns:
//   - SamplerBuilderOption: a function that sets the cursor
func WithCursor(t float32) SamplerBuilderOption {
	return func(s *sampler) {
		s.cursor = t
	}
}
