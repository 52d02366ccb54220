package skinning

import (
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
)

// PoseEvaluatorBuilderOption is a functional option for configuring a PoseEvaluator.
type PoseEvaluatorBuilderOption func(*evaluator)

// WithDispatcher sets the dispatcher used to skin vertex ranges in parallel.
// The process-wide dispatcher is used when none is set.
//
// Parameters:
//   - d: the dispatcher
//
// Returns:
//   - PoseEvaluatorBuilderOption: a function that sets the dispatcher
func WithDispatcher(d dispatch.Dispatcher) PoseEvaluatorBuilderOption {
	return func(e *evaluator) {
		e.dispatcher = d
	}
}

// WithMinChunkSize sets the minimum number of vertices per skinning chunk.
// Zero uses the dispatcher's default.
//
// Parameters:
//   - n: the minimum vertices per chunk
//
// Returns:
//   - PoseEvaluatorBuilderOption: a function that sets the chunk size
func WithMinChunkSize(n int) PoseEvaluatorBuilderOption {
	return func(e *evaluator) {
		e.minChunk = n
	}
}
