package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/canon/internal/app"
	"github.com/MrSnakeDoc/canon/internal/logger"
	"github.com/MrSnakeDoc/canon/internal/scheduler"
)

func newImportCommand() *cobra.Command {
	var (
		file   string
		userID string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a Raindrop export (JSON or YAML) into the staging store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd, func(c *app.Components, log logger.Logger) error {
				si := scheduler.NewStagingImporter(file, userID, c.Staging, c.Metrics, log, time.Hour, nil)
				n, err := si.Import(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d staging bookmarks\n", n)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the export file")
	cmd.Flags().StringVar(&userID, "user", "", "owner when the export carries no user_id")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
