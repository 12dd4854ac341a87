package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/canon/internal/app"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the enrichment cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Delete every cached enrichment result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd, func(c *app.Components, _ logger.Logger) error {
				if c.RedisStore == nil {
					return errors.New("redis is not configured (set CANON_REDIS_ADDR)")
				}
				n, err := c.RedisStore.FlushEnrichments(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "flushed %d cached enrichments\n", n)
				return nil
			})
		},
	})
	return cmd
}
