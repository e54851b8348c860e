package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd.Context(), func(b backend) error {
				version, err := b.Migrate(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "schema at version %d\n", version)
				return nil
			})
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the embedded step catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd.Context(), func(b backend) error {
				n, err := b.SeedCatalog(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "seeded %d steps\n", n)
				return nil
			})
		},
	}
}
