package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/bizsearch/internal/crawler"
)

func newCrawlCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "crawl <business name>",
		Short: "Searches the registry directly, without reading or writing the database.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.config()
			if err := cfg.Crawler.Validate(); err != nil {
				return err
			}

			c, err := crawler.FromConfig(cfg.Crawler, g.logger())
			if err != nil {
				return err
			}

			name := strings.Join(args, " ")
			businesses, err := c.Search(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("crawl %q: %w", name, err)
			}
			return g.printer(cmd.OutOrStdout()).Businesses("crawler", businesses)
		},
	}
}
