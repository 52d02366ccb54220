package dispatch

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
)

// DispatcherBuilderOption is a functional option for configuring a Dispatcher.
type DispatcherBuilderOption func(*dispatcher)

// WithWorkers sets the number of pooled worker goroutines.
// Values below 1 are ignored.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - DispatcherBuilderOption: a function that sets the worker count
func WithWorkers(n int) DispatcherBuilderOption {
	return func(d *dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the capacity of the pool's task queue.
//
// Parameters:
//   - n: the queue capacity
//
// Returns:
//   - DispatcherBuilderOption: a function that sets the queue size
func WithQueueSize(n int) DispatcherBuilderOption {
	return func(d *dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithMinChunkSize sets the minimum chunk size used when a caller passes a non-positive one.
//
// Parameters:
//   - n: the minimum number of items per chunk
//
// Returns:
//   - DispatcherBuilderOption: a function that sets the default minimum chunk size
func WithMinChunkSize(n int) DispatcherBuilderOption {
	return func(d *dispatcher) {
		if n > 0 {
			d.minChunk = n
		}
	}
}

// withSubmitter replaces the worker pool with a custom submit function.
// The pool is not created when a submitter is set.
func withSubmitter(submit func(worker.Task)) DispatcherBuilderOption {
	return func(d *dispatcher) {
		d.submit = submit
	}
}
