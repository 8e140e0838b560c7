// Package testutil provides shared test doubles.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jordansepetys/AibaPM-Notes/internal/store"
)

// MockStore is a thread-safe in-memory store.RecordStore for testing.
type MockStore struct {
	mu sync.Mutex

	Meetings map[string]store.Meeting

	CreateErr         error
	MarkProcessingErr error
	SaveTranscriptErr error
	MarkFailedErr     error

	MarkProcessingCalls int
	SaveTranscriptCalls int
	MarkFailedCalls     int
}

// Compile-time interface compliance check.
var _ store.RecordStore = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{Meetings: make(map[string]store.Meeting)}
}

func (m *MockStore) CreateMeeting(_ context.Context, title, audioPath string) (store.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return store.Meeting{}, m.CreateErr
	}
	mt := store.Meeting{
		ID:        uuid.NewString(),
		Title:     title,
		AudioPath: audioPath,
		Status:    store.StatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	m.Meetings[mt.ID] = mt
	return mt, nil
}

func (m *MockStore) GetMeeting(_ context.Context, id string) (store.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.Meetings[id]
	if !ok {
		return store.Meeting{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return mt, nil
}

func (m *MockStore) ListMeetings(_ context.Context, status store.Status, limit int) ([]store.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Meeting
	for _, mt := range m.Meetings {
		if status != "" && mt.Status != status {
			continue
		}
		out = append(out, mt)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockStore) MarkProcessing(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkProcessingCalls++
	if m.MarkProcessingErr != nil {
		return m.MarkProcessingErr
	}
	mt, ok := m.Meetings[id]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	mt.Status = store.StatusProcessing
	mt.Transcript = ""
	mt.Language = ""
	mt.DurationSeconds = 0
	mt.ErrorReason = ""
	mt.UpdatedAt = time.Now().UTC()
	m.Meetings[id] = mt
	return nil
}

func (m *MockStore) SaveTranscript(_ context.Context, id, transcript, language string, durationSeconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveTranscriptCalls++
	if m.SaveTranscriptErr != nil {
		return m.SaveTranscriptErr
	}
	mt, ok := m.Meetings[id]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if mt.Status != store.StatusProcessing {
		return fmt.Errorf("%w: %s", store.ErrNotProcessing, id)
	}
	mt.Status = store.StatusSucceeded
	mt.Transcript = transcript
	mt.Language = language
	mt.DurationSeconds = durationSeconds
	mt.ErrorReason = ""
	mt.UpdatedAt = time.Now().UTC()
	m.Meetings[id] = mt
	return nil
}

func (m *MockStore) MarkFailed(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkFailedCalls++
	if m.MarkFailedErr != nil {
		return m.MarkFailedErr
	}
	mt, ok := m.Meetings[id]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if mt.Status != store.StatusProcessing {
		return fmt.Errorf("%w: %s", store.ErrNotProcessing, id)
	}
	mt.Status = store.StatusFailed
	mt.ErrorReason = reason
	mt.DurationSeconds = 0
	mt.UpdatedAt = time.Now().UTC()
	m.Meetings[id] = mt
	return nil
}

func (m *MockStore) Close() {}

// SetMeeting seeds a meeting for testing.
func (m *MockStore) SetMeeting(mt store.Meeting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Meetings[mt.ID] = mt
}

// Meeting returns a copy of a stored meeting.
func (m *MockStore) Meeting(id string) (store.Meeting, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.Meetings[id]
	return mt, ok
}
