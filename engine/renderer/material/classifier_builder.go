package material

import (
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
)

// ClassifierBuilderOption is a functional option for configuring a Classifier.
type ClassifierBuilderOption func(*classifier)

// WithDispatcher sets the dispatcher used for alpha scans and mip generation.
// The process-wide dispatcher is used when none is set.
//
// Parameters:
//   - d: the dispatcher
//
// Returns:
//   - ClassifierBuilderOption: a function that sets the dispatcher
func WithDispatcher(d dispatch.Dispatcher) ClassifierBuilderOption {
	return func(c *classifier) {
		c.dispatcher = d
	}
}

// WithMipmaps toggles generation of a full mip chain on upload.
//
// Parameters:
//   - enabled: true to build all mip levels, false to upload the base level only
//
// Returns:
//   - ClassifierBuilderOption: a function that sets mip generation
func WithMipmaps(enabled bool) ClassifierBuilderOption {
	return func(c *classifier) {
		c.mipmaps = enabled
	}
}
