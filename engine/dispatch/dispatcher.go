// Package dispatch splits CPU-bound batch work into contiguous chunks and runs them on a bounded worker pool.
package dispatch

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/common"
)

const (
	// DefaultMinChunkSize is the minimum number of items per chunk when none is configured.
	DefaultMinChunkSize = 200

	// MaxConcurrentChunks caps how many chunks a single call splits its input into.
	MaxConcurrentChunks = 64

	defaultQueueSize = 256

	// poolIdleTimeout fills the pool constructor's idle timeout argument, which the pool does not act on.
	poolIdleTimeout = 1 * time.Second
)

// ChunkFunc processes the items in [lo, hi).
type ChunkFunc func(lo, hi int) error

// ItemFunc processes a single item.
type ItemFunc func(i int) error

type dispatcher struct {
	workers   int
	queueSize int
	minChunk  int

	pool   worker.DynamicWorkerPool
	submit func(worker.Task)
	taskID atomic.Int64
}

// Dispatcher runs batch work over a bounded worker pool with a barrier join.
// Chunks never overlap, so actions need no locking between chunks. Results are only
// safe to read after the call returns.
type Dispatcher interface {
	// Run splits n items into chunks and calls action once per chunk.
	// Inputs smaller than twice the minimum chunk size run synchronously on the calling goroutine
	// with a single call to action. The call blocks until every chunk has finished or been skipped.
	// The first chunk error cancels chunks that have not started yet and is returned as a
	// *ParallelDispatchError. Completed chunks are not rolled back.
	//
	// Parameters:
	//   - ctx: cancels chunks that have not started yet
	//   - n: the number of items
	//   - minChunk: the minimum items per chunk; values below 1 use the configured default
	//   - action: the per-chunk work
	//
	// Returns:
	//   - error: nil, a *ParallelDispatchError, or the context error if ctx was canceled
	Run(ctx context.Context, n, minChunk int, action ChunkFunc) error

	// ForEach is Run with a per-item action. Behaviour is otherwise identical.
	//
	// Parameters:
	//   - ctx: cancels chunks that have not started yet
	//   - n: the number of items
	//   - minChunk: the minimum items per chunk; values below 1 use the configured default
	//   - action: the per-item work
	//
	// Returns:
	//   - error: nil, a *ParallelDispatchError, or the context error if ctx was canceled
	ForEach(ctx context.Context, n, minChunk int, action ItemFunc) error

	// Workers returns the fixed size of the worker pool.
	//
	// Returns:
	//   - int: the worker count
	Workers() int

	// MinChunkSize returns the default minimum chunk size.
	//
	// Returns:
	//   - int: the default minimum chunk size
	MinChunkSize() int
}

var _ Dispatcher = &dispatcher{}

// NewDispatcher creates a Dispatcher backed by its own worker pool.
// The worker count is fixed for the dispatcher's lifetime.
//
// Parameters:
//   - options: functional options to configure the dispatcher
//
// Returns:
//   - Dispatcher: the new dispatcher
func NewDispatcher(options ...DispatcherBuilderOption) Dispatcher {
	d := &dispatcher{
		workers:   max(runtime.NumCPU()-1, 1),
		queueSize: defaultQueueSize,
		minChunk:  DefaultMinChunkSize,
	}
	for _, option := range options {
		option(d)
	}
	if d.submit == nil {
		d.pool = worker.NewDynamicWorkerPool(d.workers, d.queueSize, poolIdleTimeout)
		d.submit = func(t worker.Task) {
			d.pool.SubmitTask(t)
		}
	}
	return d
}

var (
	defaultOnce       sync.Once
	defaultMu         sync.Mutex
	defaultOptions    []DispatcherBuilderOption
	defaultDispatcher Dispatcher
)

// ConfigureDefault sets the options used to build the process-wide dispatcher.
// It must run before the first call to Default; afterwards the pool size is fixed and an error is returned.
//
// Parameters:
//   - options: functional options for the process-wide dispatcher
//
// Returns:
//   - error: error if the process-wide dispatcher was already created
func ConfigureDefault(options ...DispatcherBuilderOption) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultDispatcher != nil {
		return errors.New("default dispatcher already created")
	}
	defaultOptions = options
	return nil
}

// Default returns the process-wide dispatcher, creating it on first use.
//
// Returns:
//   - Dispatcher: the shared dispatcher
func Default() Dispatcher {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		defaultDispatcher = NewDispatcher(defaultOptions...)
		common.Logger().Info("dispatcher started",
			"workers", defaultDispatcher.Workers(),
			"min_chunk", defaultDispatcher.MinChunkSize())
	})
	return defaultDispatcher
}

func (d *dispatcher) Workers() int {
	return d.workers
}

func (d *dispatcher) MinChunkSize() int {
	return d.minChunk
}

func (d *dispatcher) Run(ctx context.Context, n, minChunk int, action ChunkFunc) error {
	if n <= 0 {
		return nil
	}
	if minChunk <= 0 {
		minChunk = d.minChunk
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "dispatch canceled")
	}

	if n < 2*minChunk {
		if err := runChunk(action, 0, n); err != nil {
			return &ParallelDispatchError{Chunk: 0, Lo: 0, Hi: n, Err: err}
		}
		return nil
	}

	parallelism := min(MaxConcurrentChunks, max(1, n/minChunk))
	chunkSize := n / parallelism

	chunkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		failOnce  sync.Once
		firstFail *ParallelDispatchError
	)
	wg.Add(parallelism)
	for c := 0; c < parallelism; c++ {
		lo := c * chunkSize
		hi := lo + chunkSize
		if c == parallelism-1 {
			hi = n
		}
		chunk := c
		d.submit(worker.Task{
			ID: int(d.taskID.Add(1)),
			Do: func() (any, error) {
				defer wg.Done()
				// skipped chunks still count down the barrier so nothing stays queued past the join
				if chunkCtx.Err() != nil {
					return nil, chunkCtx.Err()
				}
				err := runChunk(action, lo, hi)
				if err != nil {
					failOnce.Do(func() {
						firstFail = &ParallelDispatchError{Chunk: chunk, Lo: lo, Hi: hi, Err: err}
						cancel()
					})
				}
				return nil, err
			},
		})
	}
	wg.Wait()

	if firstFail != nil {
		return firstFail
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "dispatch canceled")
	}
	return nil
}

func (d *dispatcher) ForEach(ctx context.Context, n, minChunk int, action ItemFunc) error {
	return d.Run(ctx, n, minChunk, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			if err := action(i); err != nil {
				return errors.Wrapf(err, "item %d", i)
			}
		}
		return nil
	})
}

// runChunk calls action and turns a panic into an error so the barrier is always released.
func runChunk(action ChunkFunc, lo, hi int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("chunk [%d, %d) panicked: %v", lo, hi, r)
		}
	}()
	return action(lo, hi)
}
