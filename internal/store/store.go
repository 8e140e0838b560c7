package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface compliance check.
var _ RecordStore = (*Store)(nil)

// Store persists meeting records in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the meetings table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS meetings (
			id               UUID PRIMARY KEY,
			title            TEXT NOT NULL,
			audio_path       TEXT NOT NULL,
			status           TEXT NOT NULL DEFAULT 'pending',
			transcript       TEXT NOT NULL DEFAULT '',
			language         TEXT NOT NULL DEFAULT '',
			duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			error_reason     TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure meetings schema: %w", err)
	}
	return nil
}

const meetingColumns = `id, title, audio_path, status, transcript, language, duration_seconds, error_reason, created_at, updated_at`

// CreateMeeting inserts a new pending meeting record.
func (s *Store) CreateMeeting(ctx context.Context, title, audioPath string) (Meeting, error) {
	id := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO meetings (id, title, audio_path, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING `+meetingColumns,
		id, title, audioPath,
	)

	m, err := scanMeeting(row)
	if err != nil {
		return Meeting{}, fmt.Errorf("create meeting: %w", err)
	}

	slog.Debug("meeting created", "meeting_id", m.ID, "title", m.Title)
	return m, nil
}

// GetMeeting returns a single meeting by ID.
func (s *Store) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)

	m, err := scanMeeting(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Meeting{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Meeting{}, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

// ListMeetings returns meetings, newest first, optionally filtered by status.
func (s *Store) ListMeetings(ctx context.Context, status Status, limit int) ([]Meeting, error) {
	q := `SELECT ` + meetingColumns + ` FROM meetings`
	args := []any{}
	argN := 1

	if status != "" {
		q += fmt.Sprintf(` WHERE status = $%d`, argN)
		args = append(args, string(status))
		argN++
	}

	q += ` ORDER BY created_at DESC`

	if limit > 0 {
		q += fmt.Sprintf(` LIMIT $%d`, argN)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("list meetings: %w", err)
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// MarkProcessing moves a meeting into the processing state, clearing any
// previous outcome. Used both at pipeline start and by explicit reprocess,
// which restarts from scratch rather than resuming partial state.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE meetings
		SET status = 'processing', transcript = '', language = '',
		    duration_seconds = 0, error_reason = '', updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// SaveTranscript records a successful outcome. The status guard rejects a
// stray late success after a failure (or deadline expiry) has already been
// recorded.
func (s *Store) SaveTranscript(ctx context.Context, id, transcript, language string, durationSeconds float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE meetings
		SET status = 'succeeded', transcript = $2, language = $3,
		    duration_seconds = $4, error_reason = '', updated_at = now()
		WHERE id = $1 AND status = 'processing'
	`, id, transcript, language, durationSeconds)
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotProcessing, id)
	}

	slog.Debug("transcript saved", "meeting_id", id, "duration_seconds", durationSeconds)
	return nil
}

// MarkFailed records a terminal failure with a human-readable reason and
// duration zero. Same guard as SaveTranscript: the first terminal write wins.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE meetings
		SET status = 'failed', error_reason = $2, duration_seconds = 0, updated_at = now()
		WHERE id = $1 AND status = 'processing'
	`, id, reason)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotProcessing, id)
	}

	slog.Debug("meeting marked failed", "meeting_id", id, "reason", reason)
	return nil
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (Meeting, error) {
	var m Meeting
	err := row.Scan(
		&m.ID, &m.Title, &m.AudioPath, &m.Status, &m.Transcript,
		&m.Language, &m.DurationSeconds, &m.ErrorReason,
		&m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}
