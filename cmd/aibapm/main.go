package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jordansepetys/AibaPM-Notes/internal/cli"
	"github.com/jordansepetys/AibaPM-Notes/internal/config"
	"github.com/jordansepetys/AibaPM-Notes/internal/media"
	"github.com/jordansepetys/AibaPM-Notes/internal/store"
	"github.com/jordansepetys/AibaPM-Notes/internal/stt"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitSetup         = 3
	ExitValidation    = 4
	ExitTranscription = 5
	ExitInterrupt     = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	provider := func(ctx context.Context) (*cli.App, func(), error) {
		return cli.Build(ctx, cfg)
	}

	rootCmd := &cobra.Command{
		Use:     "aibapm",
		Short:   "Transcribe meeting recordings into time-aligned transcripts",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.ProcessCmd(provider))
	rootCmd.AddCommand(cli.ServeCmd(provider))
	rootCmd.AddCommand(cli.StatusCmd(provider))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes by sentinel class.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Setup errors: missing binaries, keys, or database.
	if errors.Is(err, media.ErrNotFound) || errors.Is(err, cli.ErrAPIKeyMissing) ||
		errors.Is(err, cli.ErrDatabaseURLMissing) {
		return ExitSetup
	}

	// Validation errors: bad input.
	if errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, store.ErrNotFound) {
		return ExitValidation
	}

	// Transcription errors: the external service refused us.
	if errors.Is(err, stt.ErrRateLimited) || errors.Is(err, stt.ErrQuotaExceeded) ||
		errors.Is(err, stt.ErrUnauthorized) || errors.Is(err, stt.ErrPayloadTooLarge) {
		return ExitTranscription
	}

	return ExitGeneral
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
