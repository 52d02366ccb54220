package dispatch

import (
	"fmt"
)

// ParallelDispatchError wraps the first error raised by a chunk action.
// Chunks that completed before the failure keep their side effects.
type ParallelDispatchError struct {
	// Chunk is the index of the chunk that failed first.
	Chunk int
	// Lo and Hi bound the failed chunk's item range [Lo, Hi).
	Lo, Hi int
	// Err is the error returned (or the panic recovered) by the chunk action.
	Err error
}

func (e *ParallelDispatchError) Error() string {
	return fmt.Sprintf("parallel dispatch: chunk %d [%d, %d): %v", e.Chunk, e.Lo, e.Hi, e.Err)
}

func (e *ParallelDispatchError) Unwrap() error { return e.Err }

// Cause lets errors.Cause from github.com/pkg/errors reach the chunk error.
func (e *ParallelDispatchError) Cause() error { return e.Err }
