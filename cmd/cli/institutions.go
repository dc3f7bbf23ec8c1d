package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/credicefi/crediface/internal/bootstrap"
)

func newInstitutionsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "institutions",
		Aliases: []string{"tenants"},
		Short:   "Inspect configured institutions",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List every configured institution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd.Context(), root, func(c *bootstrap.Container) error {
				resp, err := c.TenantsApp.ListInstitutions(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tSTATUS")
				for _, inst := range resp.Institutions {
					fmt.Fprintf(w, "%s\t%s\t%s\n", inst.ID, inst.Name, inst.Status)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	show := &cobra.Command{
		Use:   "show TENANT_ID",
		Short: "Print an institution's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), root, func(c *bootstrap.Container) error {
				resp, err := c.TenantsApp.GetTenantConfig(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}
