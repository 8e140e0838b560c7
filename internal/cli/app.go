// Package cli implements the aibapm subcommands: process, serve, and status.
package cli

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jordansepetys/AibaPM-Notes/internal/config"
	"github.com/jordansepetys/AibaPM-Notes/internal/drive"
	"github.com/jordansepetys/AibaPM-Notes/internal/media"
	"github.com/jordansepetys/AibaPM-Notes/internal/pipeline"
	"github.com/jordansepetys/AibaPM-Notes/internal/plan"
	"github.com/jordansepetys/AibaPM-Notes/internal/store"
	"github.com/jordansepetys/AibaPM-Notes/internal/stt"
)

// App bundles the collaborators the commands need. Production wiring comes
// from Build; tests construct an App directly with fakes.
type App struct {
	Config  config.Config
	Records store.RecordStore
	Proc    Processor
}

// AppProvider builds an App when a command actually runs, so parsing and
// help never touch the database. The returned func releases resources.
type AppProvider func(ctx context.Context) (*App, func(), error)

// StaticApp wraps an already-built App (for tests).
func StaticApp(app *App) AppProvider {
	return func(context.Context) (*App, func(), error) {
		return app, func() {}, nil
	}
}

// Processor runs the transcription pipeline for one meeting.
type Processor interface {
	Process(ctx context.Context, meetingID, audioPath string, onProgress drive.ProgressFunc) error
}

// Build validates configuration and wires the production dependency graph:
// Postgres record store, ffmpeg media processor, chunk planner, OpenAI
// speech-to-text client, sequential driver, orchestrator.
func Build(ctx context.Context, cfg config.Config) (*App, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("%w (set it in the environment or .env)", ErrDatabaseURLMissing)
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, nil, fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, config.EnvOpenAIAPIKey)
	}

	records, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := records.EnsureSchema(ctx); err != nil {
		records.Close()
		return nil, nil, err
	}

	ffmpegPath, err := media.Resolve(cfg.FFmpegPath)
	if err != nil {
		records.Close()
		return nil, nil, err
	}
	ffmpeg, err := media.New(ffmpegPath)
	if err != nil {
		records.Close()
		return nil, nil, err
	}

	planner := plan.NewPlanner(ffmpeg)
	client := stt.NewOpenAIClient(openai.NewClient(cfg.OpenAIAPIKey))
	driver := drive.NewDriver(client)

	orch := pipeline.New(ffmpeg, planner, driver, records,
		pipeline.WithWorkDir(cfg.WorkDir))

	app := &App{
		Config:  cfg,
		Records: records,
		Proc:    orch,
	}
	return app, records.Close, nil
}
