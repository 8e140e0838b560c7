package drive

import (
	"errors"
	"fmt"
)

// ErrNeedsRechunk indicates the service rejected a chunk as too large.
// The whole drive aborts; the orchestrator discards the plan and re-plans at
// a smaller chunk duration.
var ErrNeedsRechunk = errors.New("chunk rejected as too large, plan needs smaller chunks")

// ExhaustedError indicates a chunk failed every retry attempt with only
// transient errors. The drive is aborted; this is fatal to the pipeline.
type ExhaustedError struct {
	ChunkIndex int
	Attempts   int
	Err        error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("chunk %d failed after %d attempts: %v", e.ChunkIndex, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}
