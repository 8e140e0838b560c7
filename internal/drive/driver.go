// Package drive runs transcription over a chunk plan: strictly sequential,
// in index order, with bounded retry and backoff per chunk. Ordering matters
// because the merger concatenates results positionally; the service's rate
// limits also make concurrent chunk calls counter-productive.
package drive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jordansepetys/AibaPM-Notes/internal/plan"
	"github.com/jordansepetys/AibaPM-Notes/internal/stt"
)

// Default retry schedule: 5 attempts per chunk, delays of 5s, 10s, 20s and
// 40s between them.
const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 5 * time.Second
	defaultMaxDelay    = 80 * time.Second
)

// Progress statuses emitted through ProgressFunc.
const (
	StatusTranscoding  = "transcoding"
	StatusTranscribing = "transcribing"
	StatusMerging      = "merging"
)

// Progress is a coarse progress event. Per-chunk events carry Current, Total
// and ChunkIndex; phase transitions carry only Status and Message.
type Progress struct {
	Status     string
	Message    string
	Current    int
	Total      int
	ChunkIndex int
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(Progress)

// Result pairs a chunk with its recognized content. Segment timestamps are
// chunk-local until merged.
type Result struct {
	Chunk    plan.Entry
	Text     string
	Language string
	Segments []stt.Segment
}

// sleepFunc blocks for d or until ctx is done. Injectable for tests.
type sleepFunc func(ctx context.Context, d time.Duration) error

// cooperativeSleep waits on a timer and the context, never busy-waits.
func cooperativeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Driver transcribes chunk plans sequentially.
type Driver struct {
	client      stt.Client
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       sleepFunc
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithMaxAttempts sets the attempt budget per chunk.
func WithMaxAttempts(n int) DriverOption {
	return func(d *Driver) {
		if n >= 1 {
			d.maxAttempts = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) DriverOption {
	return func(d *Driver) {
		if base > 0 {
			d.baseDelay = base
		}
		if max > 0 {
			d.maxDelay = max
		}
	}
}

// WithSleepFunc sets the backoff sleep implementation (for testing).
func WithSleepFunc(fn sleepFunc) DriverOption {
	return func(d *Driver) {
		if fn != nil {
			d.sleep = fn
		}
	}
}

// NewDriver creates a Driver using client for each transcription call.
func NewDriver(client stt.Client, opts ...DriverOption) *Driver {
	d := &Driver{
		client:      client,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
		sleep:       cooperativeSleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DriveAll transcribes every chunk in index order and returns results in the
// same order. Failure modes:
//   - ErrNeedsRechunk: a chunk was rejected as too large; the caller must
//     discard this plan and re-plan at a smaller chunk duration.
//   - *ExhaustedError: a chunk ran out of retry attempts on transient errors.
//   - fatal classifications (auth, quota) and context errors propagate as-is.
func (d *Driver) DriveAll(ctx context.Context, chunks []plan.Entry, onProgress ProgressFunc) ([]Result, error) {
	results := make([]Result, 0, len(chunks))

	for _, chunk := range chunks {
		res, err := d.driveOne(ctx, chunk)
		if err != nil {
			return nil, err
		}
		results = append(results, res)

		if onProgress != nil {
			onProgress(Progress{
				Status:     StatusTranscribing,
				Current:    len(results),
				Total:      len(chunks),
				ChunkIndex: chunk.Index,
			})
		}
	}

	return results, nil
}

// driveOne runs the per-chunk retry state machine: attempt, classify, and
// either succeed, abort (too large / fatal), back off and retry, or exhaust.
func (d *Driver) driveOne(ctx context.Context, chunk plan.Entry) (Result, error) {
	delay := d.baseDelay
	var lastErr error

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		res, err := d.client.Transcribe(ctx, chunk.Path)
		if err == nil {
			return Result{
				Chunk:    chunk,
				Text:     res.Text,
				Language: res.Language,
				Segments: res.Segments,
			}, nil
		}

		switch {
		case errors.Is(err, stt.ErrPayloadTooLarge):
			return Result{}, fmt.Errorf("chunk %d (%s): %w", chunk.Index, chunk.Path, ErrNeedsRechunk)
		case stt.IsFatal(err):
			return Result{}, fmt.Errorf("chunk %d: %w", chunk.Index, err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Result{}, err
		}

		lastErr = err
		if attempt == d.maxAttempts {
			break
		}

		if err := d.sleep(ctx, delay); err != nil {
			return Result{}, err
		}
		delay = min(delay*2, d.maxDelay)
	}

	return Result{}, &ExhaustedError{ChunkIndex: chunk.Index, Attempts: d.maxAttempts, Err: lastErr}
}
