package cli

import (
	"github.com/spf13/cobra"

	"github.com/credicefi/crediface/internal/bootstrap"
)

func newDataCheckCmd(root *rootOptions) *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "data-check",
		Short: "Summarize a tenant's historical dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd.Context(), root, func(c *bootstrap.Container) error {
				resp, err := c.TenantsApp.DataCheck(cmd.Context(), tenantID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "tenant (institution) id")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
