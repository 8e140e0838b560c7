package store

import (
	"context"
	"errors"
	"time"
)

// Status is the processing outcome of a meeting. The outcome is an explicit
// column, with the human-readable reason in a separate field, so nothing ever
// parses a sentinel prefix out of the transcript.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Meeting is the durable record for one submitted recording.
type Meeting struct {
	ID              string
	Title           string
	AudioPath       string
	Status          Status
	Transcript      string
	Language        string
	DurationSeconds float64
	ErrorReason     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ErrNotFound indicates no meeting exists with the given ID.
var ErrNotFound = errors.New("meeting not found")

// ErrNotProcessing indicates a terminal write was rejected because the
// meeting is not in the processing state. This is how a stray late result is
// kept from overwriting an already-recorded outcome.
var ErrNotProcessing = errors.New("meeting is not processing")

// RecordStore is the interface consumed by the pipeline, CLI, and API.
// The concrete implementation is *Store (pgx-backed); tests use
// testutil.MockStore.
type RecordStore interface {
	CreateMeeting(ctx context.Context, title, audioPath string) (Meeting, error)
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	ListMeetings(ctx context.Context, status Status, limit int) ([]Meeting, error)
	MarkProcessing(ctx context.Context, id string) error
	SaveTranscript(ctx context.Context, id, transcript, language string, durationSeconds float64) error
	MarkFailed(ctx context.Context, id, reason string) error
	Close()
}
