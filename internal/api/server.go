// Package api exposes meeting records and processing control over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jordansepetys/AibaPM-Notes/internal/drive"
	"github.com/jordansepetys/AibaPM-Notes/internal/store"
)

// shutdownTimeout bounds graceful shutdown; in-flight requests past it are cut.
const shutdownTimeout = 10 * time.Second

// Processor runs the transcription pipeline for one meeting.
// *pipeline.Orchestrator implements it.
type Processor interface {
	Process(ctx context.Context, meetingID, audioPath string, onProgress drive.ProgressFunc) error
}

type Server struct {
	records store.RecordStore
	proc    Processor
	router  chi.Router
	port    int
}

func NewServer(records store.RecordStore, proc Processor, port int) *Server {
	srv := &Server{
		records: records,
		proc:    proc,
		port:    port,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", srv.handleHealth)
		r.Get("/meetings", srv.handleListMeetings)
		r.Post("/meetings", srv.handleCreateMeeting)
		r.Get("/meetings/{meetingID}", srv.handleGetMeeting)
		r.Post("/meetings/{meetingID}/reprocess", srv.handleReprocess)
	})

	srv.router = r
	return srv
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("starting HTTP API", "addr", srv.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "aibapm",
	})
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	status := store.Status(r.URL.Query().Get("status"))
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	meetings, err := s.records.ListMeetings(r.Context(), status, limit)
	if err != nil {
		slog.Error("list meetings failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, toMeetingViews(meetings))
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "meetingID")

	m, err := s.records.GetMeeting(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "meeting not found"})
		return
	}
	if err != nil {
		slog.Error("get meeting failed", "meeting_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, toMeetingView(m))
}

type createMeetingRequest struct {
	Title     string `json:"title"`
	AudioPath string `json:"audio_path"`
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.AudioPath == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "audio_path is required"})
		return
	}
	if req.Title == "" {
		req.Title = req.AudioPath
	}

	m, err := s.records.CreateMeeting(r.Context(), req.Title, req.AudioPath)
	if err != nil {
		slog.Error("create meeting failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	s.startProcessing(m)

	writeJSON(w, http.StatusAccepted, toMeetingView(m))
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "meetingID")

	m, err := s.records.GetMeeting(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "meeting not found"})
		return
	}
	if err != nil {
		slog.Error("get meeting failed", "meeting_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if m.Status == store.StatusProcessing {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "meeting is already processing"})
		return
	}

	s.startProcessing(m)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reprocessing"})
}

// startProcessing runs the pipeline as an independent background task.
// The request context is not used: processing outlives the HTTP exchange,
// and the pipeline applies its own adaptive deadline.
func (s *Server) startProcessing(m store.Meeting) {
	go func() {
		if err := s.proc.Process(context.Background(), m.ID, m.AudioPath, nil); err != nil {
			slog.Error("meeting processing failed", "meeting_id", m.ID, "error", err)
		}
	}()
}

// meetingView is the JSON shape of a meeting record.
type meetingView struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	AudioPath       string  `json:"audio_path"`
	Status          string  `json:"status"`
	Transcript      string  `json:"transcript,omitempty"`
	Language        string  `json:"language,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	ErrorReason     string  `json:"error_reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toMeetingView(m store.Meeting) meetingView {
	return meetingView{
		ID:              m.ID,
		Title:           m.Title,
		AudioPath:       m.AudioPath,
		Status:          string(m.Status),
		Transcript:      m.Transcript,
		Language:        m.Language,
		DurationSeconds: m.DurationSeconds,
		ErrorReason:     m.ErrorReason,
		CreatedAt:       m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:       m.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toMeetingViews(meetings []store.Meeting) []meetingView {
	views := make([]meetingView, 0, len(meetings))
	for _, m := range meetings {
		views = append(views, toMeetingView(m))
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
