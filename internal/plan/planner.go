// Package plan computes overlapping chunk windows for a canonical waveform
// and materializes one audio file per window.
package plan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default planning parameters.
const (
	// DefaultChunkDuration is the logical length of each chunk.
	DefaultChunkDuration = 10 * time.Minute

	// RechunkDuration is the chunk length used after a payload-too-large
	// rejection when the plan started at the default length.
	RechunkDuration = 5 * time.Minute

	// defaultOverlap is prepended to every chunk except the first so words
	// straddling a cut survive in at least one chunk. Segment timestamps are
	// shifted by the logical start, so the overlap never moves the timeline.
	defaultOverlap = 2 * time.Second
)

// Entry is one materialized chunk of a larger waveform.
// StartTime/EndTime describe the chunk's contribution to the final timeline
// and are contiguous across a plan; the file at Path may additionally carry
// up to the overlap duration of audio before StartTime (except index 0).
type Entry struct {
	Path      string        // Absolute path to the chunk file.
	Index     int           // Zero-based index for ordering.
	StartTime time.Duration // Logical start in the source waveform.
	EndTime   time.Duration // Logical end in the source waveform.
	SizeBytes int64         // Size of the materialized file.
}

// Duration returns the logical length of this chunk.
func (e Entry) Duration() time.Duration {
	return e.EndTime - e.StartTime
}

// String returns a human-readable representation for logging.
func (e Entry) String() string {
	return fmt.Sprintf("chunk %d: %s-%s", e.Index, FormatClock(e.StartTime), FormatClock(e.EndTime))
}

// FormatClock renders a duration as MM:SS or HH:MM:SS for log output.
func FormatClock(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Extractor materializes a time range of a waveform into a new file.
// *media.FFmpeg implements this.
type Extractor interface {
	ExtractRange(ctx context.Context, inputPath, outputPath string, start, duration time.Duration) error
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// fileRemover removes files.
type fileRemover interface {
	Remove(name string) error
}

type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

type osFileRemover struct{}

func (osFileRemover) Remove(name string) error { return os.Remove(name) }

// Planner turns a waveform into an ordered sequence of chunk entries.
type Planner struct {
	extractor Extractor
	overlap   time.Duration

	// Injectable dependencies (defaults to OS implementations).
	files   fileStatter
	remover fileRemover
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithOverlap sets the overlap prepended to every chunk except the first.
func WithOverlap(d time.Duration) PlannerOption {
	return func(p *Planner) {
		if d >= 0 {
			p.overlap = d
		}
	}
}

// WithFileStatter sets the file statter (for testing).
func WithFileStatter(s fileStatter) PlannerOption {
	return func(p *Planner) {
		p.files = s
	}
}

// WithFileRemover sets the file remover (for testing).
func WithFileRemover(r fileRemover) PlannerOption {
	return func(p *Planner) {
		p.remover = r
	}
}

// NewPlanner creates a Planner that materializes chunks via extractor.
func NewPlanner(extractor Extractor, opts ...PlannerOption) *Planner {
	p := &Planner{
		extractor: extractor,
		overlap:   defaultOverlap,
		files:     osFileStatter{},
		remover:   osFileRemover{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// window is a logical [start, end) slice of the waveform timeline.
type window struct {
	start time.Duration
	end   time.Duration
}

// windows computes the logical chunk boundaries: ceil(total/chunkDuration)
// contiguous, non-overlapping windows covering [0, total) exactly.
func windows(total, chunkDuration time.Duration) []window {
	var out []window
	for t := time.Duration(0); t < total; t += chunkDuration {
		out = append(out, window{start: t, end: min(t+chunkDuration, total)})
	}
	return out
}

// Plan splits the waveform at waveformPath into chunks of chunkDuration,
// materializing each into dir. Entries are ordered by index. On any
// extraction failure the files created so far are removed and an error is
// returned; a partial plan is never returned.
func (p *Planner) Plan(ctx context.Context, waveformPath, dir string, total, chunkDuration time.Duration) ([]Entry, error) {
	if chunkDuration <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChunkDuration, chunkDuration)
	}

	var entries []Entry
	for i, w := range windows(total, chunkDuration) {
		// Widen the materialized range: same end, start pulled back by the
		// overlap for every window except the first.
		extractStart := w.start
		if i > 0 {
			extractStart = max(0, w.start-p.overlap)
		}

		chunkPath := filepath.Join(dir, fmt.Sprintf("chunk_%03d.ogg", i))
		if err := p.extractor.ExtractRange(ctx, waveformPath, chunkPath, extractStart, w.end-extractStart); err != nil {
			p.removeFiles(entries)
			return nil, fmt.Errorf("%w: window %d [%s, %s): %v",
				ErrPlanFailed, i, FormatClock(w.start), FormatClock(w.end), err)
		}

		size := int64(0)
		if stat, err := p.files.Stat(chunkPath); err == nil {
			size = stat.Size()
		}

		entries = append(entries, Entry{
			Path:      chunkPath,
			Index:     i,
			StartTime: w.start, // Logical start, not the widened extract start.
			EndTime:   w.end,
			SizeBytes: size,
		})
	}

	return entries, nil
}

// removeFiles deletes the materialized files of the given entries.
// Best effort: the plan is already failing or being discarded.
func (p *Planner) removeFiles(entries []Entry) {
	for _, e := range entries {
		_ = p.remover.Remove(e.Path)
	}
}

// Discard removes the materialized files of a plan that will not be merged,
// e.g. after a payload-too-large rejection forces re-planning.
func (p *Planner) Discard(entries []Entry) {
	p.removeFiles(entries)
}
