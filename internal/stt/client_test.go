package stt_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jordansepetys/AibaPM-Notes/internal/stt"
)

// fakeAPI returns a scripted response and records the requests it saw.
type fakeAPI struct {
	resp openai.AudioResponse
	err  error

	requests []openai.AudioRequest
}

func (f *fakeAPI) CreateTranscription(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.AudioResponse{}, f.err
	}
	return f.resp, nil
}

func TestTranscribe_Success(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		resp: openai.AudioResponse{
			Text:     "hello world",
			Language: "english",
			Segments: []struct {
				ID               int     `json:"id"`
				Seek             int     `json:"seek"`
				Start            float64 `json:"start"`
				End              float64 `json:"end"`
				Text             string  `json:"text"`
				Tokens           []int   `json:"tokens"`
				Temperature      float64 `json:"temperature"`
				AvgLogprob       float64 `json:"avg_logprob"`
				CompressionRatio float64 `json:"compression_ratio"`
				NoSpeechProb     float64 `json:"no_speech_prob"`
				Transient        bool    `json:"transient"`
			}{
				{Start: 0, End: 2.5, Text: "hello"},
				{Start: 2.5, End: 5, Text: "world"},
			},
		},
	}

	client := stt.NewOpenAIClient(api)
	result, err := client.Transcribe(context.Background(), "chunk_000.ogg")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if result.Text != "hello world" {
		t.Errorf("Text = %q, want %q", result.Text, "hello world")
	}
	if result.Language != "english" {
		t.Errorf("Language = %q, want %q", result.Language, "english")
	}
	if len(result.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(result.Segments))
	}
	if result.Segments[0].End != 2500*time.Millisecond {
		t.Errorf("segment 0 End = %v, want 2.5s", result.Segments[0].End)
	}
	if result.Segments[1].Start != 2500*time.Millisecond {
		t.Errorf("segment 1 Start = %v, want 2.5s", result.Segments[1].Start)
	}
}

func TestTranscribe_RequestShape(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{resp: openai.AudioResponse{Text: "ok"}}
	client := stt.NewOpenAIClient(api,
		stt.WithModel("whisper-large"),
		stt.WithPrompt("Sprint planning, AibaPM, retrospective"))

	if _, err := client.Transcribe(context.Background(), "chunk_001.ogg"); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if len(api.requests) != 1 {
		t.Fatalf("got %d requests, want 1", len(api.requests))
	}
	req := api.requests[0]
	if req.FilePath != "chunk_001.ogg" {
		t.Errorf("FilePath = %q, want chunk_001.ogg", req.FilePath)
	}
	if req.Model != "whisper-large" {
		t.Errorf("Model = %q, want whisper-large", req.Model)
	}
	if req.Format != openai.AudioResponseFormatVerboseJSON {
		t.Errorf("Format = %q, want verbose_json", req.Format)
	}
	if req.Prompt == "" {
		t.Error("Prompt not forwarded")
	}
}

func TestTranscribe_DefaultModel(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{resp: openai.AudioResponse{Text: "ok"}}
	client := stt.NewOpenAIClient(api, stt.WithModel(""))

	if _, err := client.Transcribe(context.Background(), "chunk.ogg"); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if api.requests[0].Model != openai.Whisper1 {
		t.Errorf("Model = %q, want %q", api.requests[0].Model, openai.Whisper1)
	}
}

func TestTranscribe_ClassifiesErrors(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		err: &openai.APIError{
			HTTPStatusCode: http.StatusRequestEntityTooLarge,
			Message:        "Maximum content size limit exceeded",
		},
	}
	client := stt.NewOpenAIClient(api)

	_, err := client.Transcribe(context.Background(), "chunk.ogg")
	if !errors.Is(err, stt.ErrPayloadTooLarge) {
		t.Errorf("Transcribe() error = %v, want ErrPayloadTooLarge", err)
	}
}
