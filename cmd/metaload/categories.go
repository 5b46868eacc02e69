package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cognicore/metaload/pkg/metaload/config"
	"github.com/cognicore/metaload/pkg/metaload/selector"
)

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use: "categories",

		Short: "Lists the configured categories.",

		RunE: func(cmd *cobra.Command, args []string) error {
			l := a.loader()
			f := &config.File{}
			if l.Path != "" {
				var err error
				if f, err = config.Load(l.Path); err != nil {
					return err
				}
			}
			cats, err := f.Resolve(l.Only)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tSEMANTIC TYPES\tSOURCES\tTERM TYPES")
			for _, c := range cats {
				tty := c.TermTypes
				if len(tty) == 0 {
					tty = selector.DefaultTermTypes
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name,
					strings.Join(c.SemanticTypes, ","),
					strings.Join(c.Sources, ","),
					strings.Join(tty, ","))
			}
			return tw.Flush()
		},
	}
}
