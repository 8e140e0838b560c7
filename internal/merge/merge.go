// Package merge concatenates per-chunk transcription results into one
// transcript on the full recording's timeline. Pure functions, no I/O.
package merge

import (
	"strings"
	"time"

	"github.com/jordansepetys/AibaPM-Notes/internal/drive"
)

// Segment is a recognized phrase on the global timeline.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Transcript is the merged result of a full recording.
// Because chunks are processed and concatenated in index order, Segments is
// non-decreasing in Start. Chunk overlap at internal boundaries can produce
// a short duplicated phrase; that is a known limitation, not deduplicated
// here because dedupe would silently change transcript content.
type Transcript struct {
	Text     string
	Language string
	Duration time.Duration
	Segments []Segment
}

// Merge joins chunk texts in order with single spaces, collapses whitespace
// runs, shifts segment timestamps by each chunk's logical start time, and
// reports the duration as the maximum chunk end time. Deterministic in its
// input.
func Merge(results []drive.Result) Transcript {
	var (
		parts    []string
		segments []Segment
		language string
		duration time.Duration
	)

	for _, r := range results {
		if text := normalizeWhitespace(r.Text); text != "" {
			parts = append(parts, text)
		}
		if language == "" {
			language = r.Language
		}
		if r.Chunk.EndTime > duration {
			duration = r.Chunk.EndTime
		}

		for _, s := range r.Segments {
			segments = append(segments, Segment{
				Start: s.Start + r.Chunk.StartTime,
				End:   s.End + r.Chunk.StartTime,
				Text:  s.Text,
			})
		}
	}

	return Transcript{
		Text:     strings.Join(parts, " "),
		Language: language,
		Duration: duration,
		Segments: segments,
	}
}

// normalizeWhitespace collapses runs of whitespace into single spaces and
// trims the ends.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
