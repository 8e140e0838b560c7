package plan

import "errors"

// ErrInvalidChunkDuration indicates a non-positive chunk duration.
var ErrInvalidChunkDuration = errors.New("chunk duration must be positive")

// ErrPlanFailed indicates chunk materialization failed. Partial plans are
// never returned; files created before the failure are removed.
var ErrPlanFailed = errors.New("chunk planning failed")
