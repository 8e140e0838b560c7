package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jordansepetys/AibaPM-Notes/internal/drive"
)

// ProcessCmd creates the process command. Each audio file becomes its own
// meeting record and runs through the pipeline as an independent task;
// multiple files process concurrently up to the configured bound.
func ProcessCmd(provider AppProvider) *cobra.Command {
	var (
		title    string
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "process <audio-file>...",
		Short: "Transcribe meeting recordings",
		Long: `Create a meeting record for each audio file and run the transcription
pipeline: convert to the canonical waveform, split oversized audio into
overlapping chunks, transcribe each chunk with bounded retries, and merge
the results into one time-aligned transcript.

Failed meetings stay failed until explicitly reprocessed.`,
		Example: `  aibapm process standup.m4a
  aibapm process --title "Q3 planning" planning.mp3
  aibapm process recordings/*.ogg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := provider(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp()

			if parallel < 1 {
				parallel = app.Config.MaxParallel
			}
			// A zero or negative bound would deadlock the semaphore.
			parallel = max(parallel, 1)
			return runProcess(cmd.Context(), app, cmd.OutOrStdout(), args, title, parallel)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Meeting title (default: file name; single file only)")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "Max meetings processed concurrently")

	return cmd
}

func runProcess(ctx context.Context, app *App, out io.Writer, files []string, title string, parallel int) error {
	if title != "" && len(files) > 1 {
		return fmt.Errorf("--title applies to a single file, got %d", len(files))
	}

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", ErrFileNotFound, f)
			}
			return fmt.Errorf("cannot access input file: %w", err)
		}
	}

	// One errgroup task per meeting; a semaphore bounds concurrency. Chunks
	// inside each meeting stay strictly sequential.
	sem := make(chan struct{}, parallel)
	g, ctx := errgroup.WithContext(ctx)

	for _, file := range files {
		file := file
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			meetingTitle := title
			if meetingTitle == "" {
				meetingTitle = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			}

			m, err := app.Records.CreateMeeting(ctx, meetingTitle, file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			progress := func(p drive.Progress) {
				if p.Total > 0 {
					fmt.Fprintf(out, "%s: chunk %d/%d done\n", meetingTitle, p.Current, p.Total)
				} else if p.Message != "" {
					fmt.Fprintf(out, "%s: %s\n", meetingTitle, p.Message)
				}
			}

			if err := app.Proc.Process(ctx, m.ID, file, progress); err != nil {
				fmt.Fprintf(out, "%s: failed: %v\n", meetingTitle, err)
				return fmt.Errorf("%s: %w", file, err)
			}

			fmt.Fprintf(out, "%s: done (meeting %s)\n", meetingTitle, m.ID)
			return nil
		})
	}

	return g.Wait()
}
