package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/canon/internal/app"
	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

func newTransferCommand() *cobra.Command {
	var (
		userID  string
		asJSON  bool
		showErr bool
	)

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Promote a user's unorganized staging bookmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd, func(c *app.Components, _ logger.Logger) error {
				res, err := c.Orchestrator.TransferUnorganizedBookmarks(cmd.Context(), userID)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(res)
				}
				printSummary(cmd.OutOrStdout(), res, showErr)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user whose staging bookmarks are promoted")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&showErr, "errors", false, "list per-bookmark failures")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printSummary(w io.Writer, res *domain.TransferResult, showErrors bool) {
	if res.Message != "" && res.Total == 0 {
		fmt.Fprintln(w, res.Message)
		return
	}

	fmt.Fprintf(w, "transferred %d of %d (failed %d)\n", res.Success, res.Total, res.Failed)
	fmt.Fprintf(w, "enrichment: %d enriched, %d failed, %d skipped\n",
		res.EnrichmentStats.Enriched, res.EnrichmentStats.Failed, res.EnrichmentStats.Skipped)

	if !showErrors {
		return
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  #%d %q [%s] %s\n", e.BookmarkID, e.Title, e.ErrorType, e.Error)
	}
}
