package cli

import (
	"github.com/spf13/cobra"

	"github.com/jordansepetys/AibaPM-Notes/internal/api"
)

// ServeCmd creates the serve command, exposing meeting records and
// processing control over HTTP.
func ServeCmd(provider AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the meeting API: list and inspect meeting records, submit new
recordings for processing, and trigger explicit reprocessing of failed
meetings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := provider(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp()

			srv := api.NewServer(app.Records, app.Proc, app.Config.Port)
			return srv.Start(cmd.Context())
		},
	}
}
