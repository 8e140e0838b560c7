package stt

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Segment is a recognized phrase with timestamps relative to the chunk's own
// materialized audio. The merger rewrites these into the global timeline.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Result is the recognized content of a single chunk file.
type Result struct {
	Text     string
	Language string
	Segments []Segment
}

// Client transcribes a single audio file per call.
type Client interface {
	// Transcribe issues exactly one request for the file at audioPath.
	// Failures are classified into the package's sentinel taxonomy.
	Transcribe(ctx context.Context, audioPath string) (Result, error)
}

// transcriptionAPI is the slice of the OpenAI client the transcriber uses.
// *openai.Client implements this implicitly; tests inject fakes.
type transcriptionAPI interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Client           = (*OpenAIClient)(nil)
	_ transcriptionAPI = (*openai.Client)(nil)
)

// OpenAIClient transcribes audio via OpenAI's transcription endpoint using
// the verbose JSON format so per-segment timestamps come back with the text.
type OpenAIClient struct {
	api    transcriptionAPI
	model  string
	prompt string
}

// ClientOption configures an OpenAIClient.
type ClientOption func(*OpenAIClient)

// WithModel overrides the transcription model.
func WithModel(model string) ClientOption {
	return func(c *OpenAIClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithPrompt provides context to improve recognition of domain vocabulary.
func WithPrompt(prompt string) ClientOption {
	return func(c *OpenAIClient) {
		c.prompt = prompt
	}
}

// NewOpenAIClient creates an OpenAIClient backed by the given API client.
// The client is injected to enable testing with fakes.
func NewOpenAIClient(api transcriptionAPI, opts ...ClientOption) *OpenAIClient {
	c := &OpenAIClient{
		api:   api,
		model: openai.Whisper1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe sends one request for audioPath and returns the recognized text
// with chunk-local segment timestamps. It never retries; retry policy lives
// in the driver.
func (c *OpenAIClient) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	req := openai.AudioRequest{
		Model:    c.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Prompt:   c.prompt,
	}

	resp, err := c.api.CreateTranscription(ctx, req)
	if err != nil {
		return Result{}, Classify(err)
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, Segment{
			Start: secondsToDuration(s.Start),
			End:   secondsToDuration(s.End),
			Text:  s.Text,
		})
	}

	return Result{
		Text:     resp.Text,
		Language: resp.Language,
		Segments: segments,
	}, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
