package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credicefi/crediface/internal/bootstrap"
)

func newSeedCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the demonstration tenant and its dataset",
		Long: `seed writes the banco_demo configuration and its sample dataset to the
configured tenant store, replacing any existing copy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd.Context(), root, func(c *bootstrap.Container) error {
				res, err := c.SeedAll(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %s with %d records\n", res.TenantID, res.Records)
				return err
			})
		},
	}
}
