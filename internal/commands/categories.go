package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"billbook/internal/core"
	"billbook/internal/services"
)

func newCategoriesCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category"},
		Short:   "Manage shared categories",
	}
	cmd.AddCommand(newCategoriesSeedCommand(opts), newCategoriesListCommand(opts))
	return cmd
}

func newCategoriesSeedCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default income and expense categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			added, err := services.NewCategoryService(store, opts.logger).SeedDefaults(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d of %d default categories\n", added, len(services.DefaultCategories))
			return nil
		},
	}
}

func newCategoriesListCommand(opts *options) *cobra.Command {
	var billType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var t core.BillType
			if billType != "" {
				parsed, err := core.ParseBillType(billType)
				if err != nil {
					return err
				}
				t = parsed
			}

			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			cats, err := services.NewCategoryService(store, opts.logger).List(cmd.Context(), t)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tNAME\tICON")
			for _, c := range cats {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Type, c.Name, c.Icon)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&billType, "type", "", "only list income or expense categories")

	return cmd
}
