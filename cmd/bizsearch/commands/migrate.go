package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/bizsearch/internal/database"
)

func newMigrateCmd(g *globals) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Creates the businesses, officers and filing_history tables if they do not exist.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if printOnly {
				_, err := fmt.Fprint(cmd.OutOrStdout(), database.Schema())
				return err
			}

			cfg := g.config()
			if err := cfg.Database.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := database.NewPostgresPool(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s\n", cfg.Database.Name)
			return err
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the schema instead of applying it")
	return cmd
}
