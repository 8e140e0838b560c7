package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// StatusCmd creates the status command.
func StatusCmd(provider AppProvider) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status [meeting-id]",
		Short: "Show meeting processing status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := provider(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp()

			if len(args) == 1 {
				return printMeeting(cmd.Context(), app, cmd.OutOrStdout(), args[0])
			}
			return printMeetings(cmd.Context(), app, cmd.OutOrStdout(), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Max meetings to list")

	return cmd
}

func printMeeting(ctx context.Context, app *App, out io.Writer, id string) error {
	m, err := app.Records.GetMeeting(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Meeting:  %s\n", m.ID)
	fmt.Fprintf(out, "Title:    %s\n", m.Title)
	fmt.Fprintf(out, "Status:   %s\n", m.Status)
	fmt.Fprintf(out, "Duration: %.1fs\n", m.DurationSeconds)
	if m.ErrorReason != "" {
		fmt.Fprintf(out, "Error:    %s\n", m.ErrorReason)
	}
	if m.Transcript != "" {
		fmt.Fprintf(out, "\n%s\n", m.Transcript)
	}
	return nil
}

func printMeetings(ctx context.Context, app *App, out io.Writer, limit int) error {
	meetings, err := app.Records.ListMeetings(ctx, "", limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tDURATION\tERROR")
	for _, m := range meetings {
		errReason := m.ErrorReason
		if len(errReason) > 40 {
			errReason = errReason[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\t%s\n", m.ID, m.Title, m.Status, m.DurationSeconds, errReason)
	}
	return w.Flush()
}
