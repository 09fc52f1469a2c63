package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/bizsearch/internal/crawler"
	"github.com/stwalsh4118/bizsearch/internal/database"
	"github.com/stwalsh4118/bizsearch/internal/repository"
	"github.com/stwalsh4118/bizsearch/internal/services"
)

func newLookupCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <business name>",
		Short: "Returns a stored business, crawling and storing the registry results when none matches.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.config()
			if err := cfg.Database.Validate(); err != nil {
				return err
			}
			if err := cfg.Crawler.Validate(); err != nil {
				return err
			}

			log := g.logger()
			ctx := cmd.Context()

			db, err := database.NewPostgresPool(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if cfg.Database.AutoMigrate {
				if err := db.Migrate(ctx); err != nil {
					return err
				}
			}

			c, err := crawler.FromConfig(cfg.Crawler, log)
			if err != nil {
				return err
			}

			service := services.NewBusinessService(repository.NewBusinessRepository(db), c, log)
			result, err := service.Search(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return g.printer(cmd.OutOrStdout()).Businesses(result.Source, result.Businesses)
		},
	}
}
