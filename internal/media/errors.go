package media

import "errors"

// ErrNotFound indicates the ffmpeg binary could not be located.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrProbeFailed indicates ffmpeg could not determine file duration.
var ErrProbeFailed = errors.New("audio probe failed")

// ErrTranscodeFailed indicates ffmpeg failed to produce the canonical waveform.
var ErrTranscodeFailed = errors.New("audio transcode failed")

// ErrExtractFailed indicates ffmpeg failed to extract a sub-range.
var ErrExtractFailed = errors.New("audio range extraction failed")
