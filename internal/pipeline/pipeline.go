// Package pipeline orchestrates meeting processing: transcode, plan, drive,
// merge, persist - as one cancellable unit of work under an adaptive
// wall-clock deadline. Every fatal path ends with a terminal failure written
// to the meeting record; nothing is ever left silently stuck.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jordansepetys/AibaPM-Notes/internal/drive"
	"github.com/jordansepetys/AibaPM-Notes/internal/media"
	"github.com/jordansepetys/AibaPM-Notes/internal/merge"
	"github.com/jordansepetys/AibaPM-Notes/internal/plan"
	"github.com/jordansepetys/AibaPM-Notes/internal/stt"
)

// Resource-sizing thresholds, all from the original file's byte size except
// directSizeLimit, which applies to the canonical waveform.
const (
	// directSizeLimit is the canonical waveform size below which chunking is
	// bypassed entirely. The service ceiling is 25MB; 24MB leaves margin.
	directSizeLimit = 24 << 20

	// largeFileSize is the original size at which the initial chunk duration
	// drops to the re-chunk duration pre-emptively.
	largeFileSize = 50 << 20

	// failRecordTimeout bounds the failure-recording write, which runs on a
	// fresh context because the pipeline's own deadline may already be gone.
	failRecordTimeout = 15 * time.Second
)

// DeadlineFor returns the overall processing deadline for an original file
// of the given byte size. Computed once, before any conversion.
func DeadlineFor(sizeBytes int64) time.Duration {
	switch {
	case sizeBytes < 10<<20:
		return 5 * time.Minute
	case sizeBytes < 30<<20:
		return 10 * time.Minute
	case sizeBytes < 50<<20:
		return 15 * time.Minute
	case sizeBytes < 80<<20:
		return 30 * time.Minute
	default:
		return 45 * time.Minute
	}
}

// InitialChunkDuration returns the first plan's chunk duration for an
// original file of the given byte size. Large files start at the smaller
// granularity because they are likely to need it anyway.
func InitialChunkDuration(sizeBytes int64) time.Duration {
	if sizeBytes >= largeFileSize {
		return plan.RechunkDuration
	}
	return plan.DefaultChunkDuration
}

// MediaProcessor is the transcoder/prober collaborator. *media.FFmpeg implements it.
type MediaProcessor interface {
	Probe(ctx context.Context, path string) (media.Info, error)
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// ChunkPlanner materializes chunk plans. *plan.Planner implements it.
type ChunkPlanner interface {
	Plan(ctx context.Context, waveformPath, dir string, total, chunkDuration time.Duration) ([]plan.Entry, error)
	Discard(entries []plan.Entry)
}

// ChunkDriver transcribes a chunk plan. *drive.Driver implements it.
type ChunkDriver interface {
	DriveAll(ctx context.Context, chunks []plan.Entry, onProgress drive.ProgressFunc) ([]drive.Result, error)
}

// RecordStore is the slice of the durable store the orchestrator mutates.
type RecordStore interface {
	MarkProcessing(ctx context.Context, id string) error
	SaveTranscript(ctx context.Context, id, transcript, language string, durationSeconds float64) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Orchestrator runs the processing pipeline for one meeting at a time.
// Instances are safe for concurrent use across different meetings: per-call
// state lives on the stack and work directories embed the meeting ID.
type Orchestrator struct {
	media   MediaProcessor
	planner ChunkPlanner
	driver  ChunkDriver
	records RecordStore
	workDir string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkDir sets the parent directory for per-meeting scratch space.
// Defaults to the OS temp directory.
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) {
		if dir != "" {
			o.workDir = dir
		}
	}
}

// New creates an Orchestrator from its collaborators.
func New(m MediaProcessor, p ChunkPlanner, d ChunkDriver, r RecordStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		media:   m,
		planner: p,
		driver:  d,
		records: r,
		workDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs the full pipeline for one meeting and persists the outcome.
// On success the record holds the merged transcript and duration; on any
// failure - deadline expiry included - it holds a failed status with a
// human-readable reason and duration zero. The returned error mirrors what
// was recorded. No automatic retry is scheduled; callers reprocess by
// invoking Process again, which restarts from the original bytes.
func (o *Orchestrator) Process(ctx context.Context, meetingID, audioPath string, onProgress drive.ProgressFunc) error {
	if err := o.records.MarkProcessing(ctx, meetingID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	if err := o.run(ctx, meetingID, audioPath, onProgress); err != nil {
		o.recordFailure(ctx, meetingID, err)
		return err
	}
	return nil
}

// run executes transcode, plan, drive, merge, persist under the adaptive deadline.
func (o *Orchestrator) run(ctx context.Context, meetingID, audioPath string, onProgress drive.ProgressFunc) error {
	// Deadline and initial chunk duration come from the original file size,
	// before any conversion.
	info, err := o.media.Probe(ctx, audioPath)
	if err != nil {
		return err
	}
	deadline := DeadlineFor(info.SizeBytes)
	chunkDuration := InitialChunkDuration(info.SizeBytes)

	slog.Info("processing meeting",
		"meeting_id", meetingID,
		"size_bytes", info.SizeBytes,
		"deadline", deadline,
		"chunk_duration", chunkDuration,
	)

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	workDir := filepath.Join(o.workDir, "meeting-"+meetingID)
	if err := os.MkdirAll(workDir, 0750); err != nil { // #nosec G301 -- scratch dir
		return fmt.Errorf("create work directory: %w", err)
	}
	defer o.cleanup(meetingID, workDir)

	emit(onProgress, drive.Progress{Status: drive.StatusTranscoding, Message: "converting audio"})

	waveformPath := filepath.Join(workDir, "waveform.ogg")
	if err := o.media.Transcode(ctx, audioPath, waveformPath); err != nil {
		return err
	}

	waveform, err := o.media.Probe(ctx, waveformPath)
	if err != nil {
		return err
	}

	// Small waveforms go to the service as a single chunk-of-one.
	var chunks []plan.Entry
	planned := false
	if waveform.SizeBytes <= directSizeLimit {
		chunks = []plan.Entry{{
			Path:      waveformPath,
			Index:     0,
			StartTime: 0,
			EndTime:   waveform.Duration,
			SizeBytes: waveform.SizeBytes,
		}}
	} else {
		chunks, err = o.planner.Plan(ctx, waveformPath, workDir, waveform.Duration, chunkDuration)
		if err != nil {
			return err
		}
		planned = true
	}

	results, err := o.driver.DriveAll(ctx, chunks, onProgress)
	if errors.Is(err, drive.ErrNeedsRechunk) {
		results, err = o.rechunkAndDrive(ctx, meetingID, waveformPath, workDir, waveform.Duration, chunkDuration, chunks, planned, onProgress)
	}
	if err != nil {
		return err
	}

	emit(onProgress, drive.Progress{Status: drive.StatusMerging, Message: "merging transcript"})

	transcript := merge.Merge(results)

	if err := o.records.SaveTranscript(ctx, meetingID, transcript.Text, transcript.Language, transcript.Duration.Seconds()); err != nil {
		return fmt.Errorf("persist transcript: %w", err)
	}

	slog.Info("meeting transcribed",
		"meeting_id", meetingID,
		"chunks", len(results),
		"duration_seconds", transcript.Duration.Seconds(),
	)
	return nil
}

// rechunkAndDrive handles the single permitted re-plan after a
// payload-too-large rejection: discard the failed plan, re-plan at a
// strictly smaller chunk duration, and drive exactly once more. A second
// rejection is fatal.
func (o *Orchestrator) rechunkAndDrive(
	ctx context.Context,
	meetingID, waveformPath, workDir string,
	total, usedDuration time.Duration,
	failed []plan.Entry,
	planned bool,
	onProgress drive.ProgressFunc,
) ([]drive.Result, error) {
	// A direct chunk-of-one was never planned; its first re-plan uses the
	// initial chunk duration as-is. A planned chunk set gets halved.
	nextDuration := usedDuration
	if planned {
		o.planner.Discard(failed)
		nextDuration = usedDuration / 2
	}

	slog.Warn("chunk rejected as too large, re-planning",
		"meeting_id", meetingID,
		"chunk_duration", nextDuration,
	)

	chunks, err := o.planner.Plan(ctx, waveformPath, workDir, total, nextDuration)
	if err != nil {
		return nil, err
	}

	results, err := o.driver.DriveAll(ctx, chunks, onProgress)
	if errors.Is(err, drive.ErrNeedsRechunk) {
		return nil, fmt.Errorf("%w (chunk duration %s)", ErrStillTooLarge, nextDuration)
	}
	return results, err
}

// recordFailure writes the terminal failure state. It runs on a fresh
// context because the pipeline context may already be past its deadline.
func (o *Orchestrator) recordFailure(ctx context.Context, meetingID string, cause error) {
	reason := FailureReason(cause)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failRecordTimeout)
	defer cancel()

	if err := o.records.MarkFailed(ctx, meetingID, reason); err != nil {
		slog.Error("failed to record meeting failure",
			"meeting_id", meetingID,
			"reason", reason,
			"error", err,
		)
		return
	}

	slog.Warn("meeting failed", "meeting_id", meetingID, "reason", reason)
}

// FailureReason converts a pipeline error into the human-readable reason
// stored on the meeting record.
func FailureReason(err error) string {
	var exhausted *drive.ExhaustedError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "processing deadline exceeded"
	case errors.As(err, &exhausted):
		return fmt.Sprintf("transcription gave up on chunk %d after %d attempts", exhausted.ChunkIndex, exhausted.Attempts)
	case errors.Is(err, ErrStillTooLarge):
		return "audio chunk exceeds the transcription size limit even after re-chunking"
	case errors.Is(err, stt.ErrUnauthorized):
		return "speech-to-text authentication failed"
	case errors.Is(err, stt.ErrQuotaExceeded):
		return "speech-to-text quota exhausted"
	default:
		return err.Error()
	}
}

// cleanup removes the per-meeting scratch directory (chunk files and the
// intermediate waveform). Runs after success and after failure alike; a
// cleanup error is logged, never escalated.
func (o *Orchestrator) cleanup(meetingID, workDir string) {
	if err := os.RemoveAll(workDir); err != nil {
		slog.Warn("failed to clean up work directory",
			"meeting_id", meetingID,
			"work_dir", workDir,
			"error", err,
		)
	}
}

func emit(fn drive.ProgressFunc, p drive.Progress) {
	if fn != nil {
		fn(p)
	}
}
