package pipeline

import "errors"

// ErrStillTooLarge indicates a chunk was rejected as oversized even after
// the single permitted re-plan at a smaller chunk duration. Fatal: the plan
// is never shrunk a second time.
var ErrStillTooLarge = errors.New("chunk still exceeds service size limit after re-planning")
