// Package media wraps the ffmpeg binary for the three operations the
// transcription pipeline needs: probing duration/size, transcoding arbitrary
// input to the canonical waveform, and extracting a time range into a new
// file. Each invocation is a blocking subprocess call bound to the caller's
// context.
package media

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// Canonical waveform encoding: mono 16kHz OGG Vorbis. Small enough that most
// meetings fit a single transcription request, and the fixed rate makes
// size/duration arithmetic predictable.
func canonicalEncodingArgs() []string {
	return []string{
		"-c:a", "libvorbis",
		"-ar", "16000",
		"-ac", "1",
		"-q:a", "2",
	}
}

// Info describes a probed media file.
type Info struct {
	Duration  time.Duration
	SizeBytes int64
}

// FFmpeg invokes the ffmpeg binary at a fixed path.
type FFmpeg struct {
	path string

	// Injectable dependencies (defaults to OS implementations).
	cmd   commandRunner
	files fileStatter
}

// Option configures an FFmpeg.
type Option func(*FFmpeg)

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(r commandRunner) Option {
	return func(f *FFmpeg) {
		f.cmd = r
	}
}

// WithFileStatter sets the file statter (for testing).
func WithFileStatter(s fileStatter) Option {
	return func(f *FFmpeg) {
		f.files = s
	}
}

// New creates an FFmpeg wrapper for the binary at path.
func New(path string, opts ...Option) (*FFmpeg, error) {
	if path == "" {
		return nil, fmt.Errorf("ffmpeg path cannot be empty: %w", ErrNotFound)
	}

	f := &FFmpeg{
		path:  path,
		cmd:   osCommandRunner{},
		files: osFileStatter{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Resolve returns the ffmpeg binary path. An explicit path wins; otherwise
// the binary is looked up on PATH.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w: install ffmpeg or set AIBAPM_FFMPEG", ErrNotFound)
	}
	return path, nil
}

// Probe returns the duration and byte size of an audio file.
// Duration is read from ffmpeg's stderr because some container formats carry
// no duration metadata until ffmpeg has decoded the stream.
func (f *FFmpeg) Probe(ctx context.Context, path string) (Info, error) {
	stat, err := f.files.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	args := []string{
		"-i", path,
		"-f", "null", "-",
	}
	output, err := f.cmd.CombinedOutput(ctx, f.path, args)
	if err != nil {
		// FFmpeg returns non-zero even when it successfully reads file info,
		// so we try to parse the output anyway.
		if len(output) == 0 {
			return Info{}, fmt.Errorf("%w: %v", ErrProbeFailed, err)
		}
	}

	duration, err := ParseDuration(string(output))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	return Info{Duration: duration, SizeBytes: stat.Size()}, nil
}

// Transcode converts inputPath to the canonical mono 16kHz waveform at outputPath.
func (f *FFmpeg) Transcode(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", inputPath,
	}
	args = append(args, canonicalEncodingArgs()...)
	args = append(args, outputPath)

	output, err := f.cmd.CombinedOutput(ctx, f.path, args)
	if err != nil {
		return fmt.Errorf("%w: %v\nOutput: %s", ErrTranscodeFailed, err, string(output))
	}
	return nil
}

// ExtractRange copies [start, start+duration) from inputPath into outputPath.
// The range is re-encoded rather than stream-copied so the output is valid
// even when the cut lands mid-frame.
func (f *FFmpeg) ExtractRange(ctx context.Context, inputPath, outputPath string, start, duration time.Duration) error {
	args := []string{
		"-y",
		"-i", inputPath,
		"-ss", FormatTime(start),
		"-to", FormatTime(start + duration),
	}
	args = append(args, canonicalEncodingArgs()...)
	args = append(args, outputPath)

	output, err := f.cmd.CombinedOutput(ctx, f.path, args)
	if err != nil {
		return fmt.Errorf("%w: %s: %v\nOutput: %s", ErrExtractFailed, outputPath, err, string(output))
	}
	return nil
}

// ParseDuration extracts a duration from FFmpeg stderr.
// Looks for: "Duration: HH:MM:SS.ms" or "time=HH:MM:SS.ms"
func ParseDuration(output string) (time.Duration, error) {
	// Pattern: Duration: 00:05:23.45
	durationRe := regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	if matches := durationRe.FindStringSubmatch(output); matches != nil {
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	// Fallback pattern: time=00:05:23.45 (from progress output).
	// Use the last match - it is the final decode position.
	timeRe := regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
	allMatches := timeRe.FindAllStringSubmatch(output, -1)
	if len(allMatches) > 0 {
		matches := allMatches[len(allMatches)-1]
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	return 0, fmt.Errorf("could not parse duration from ffmpeg output")
}

// parseTimeComponents converts HH:MM:SS.ms strings to Duration.
func parseTimeComponents(hours, minutes, seconds, fractional string) (time.Duration, error) {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	// Normalize fractional part to milliseconds.
	// Input may be 1-6+ digits (e.g., ".4", ".45", ".456", ".456789").
	frac, _ := strconv.Atoi(fractional)
	ms := frac
	switch n := len(fractional); {
	case n == 1:
		ms = frac * 100
	case n == 2:
		ms = frac * 10
	case n == 3:
		// Already milliseconds.
	case n > 3:
		// Truncate excess precision by dividing.
		for i := n; i > 3; i-- {
			ms /= 10
		}
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// FormatTime formats a duration for FFmpeg -ss/-to arguments.
func FormatTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}
