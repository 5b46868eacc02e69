package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cognicore/metaload/pkg/metaload"
	"github.com/cognicore/metaload/pkg/metaload/config"
)

// openImporter opens the store for commands that never read input files.
func (a *app) openImporter(cmd *cobra.Command) (*metaload.Importer, error) {
	l := a.loader()
	sc, err := l.Store()
	if err != nil {
		return nil, err
	}

	f := &config.File{}
	if l.Path != "" {
		if f, err = config.Load(l.Path); err != nil {
			return nil, err
		}
	}
	cats, err := f.Resolve(l.Only)
	if err != nil {
		return nil, err
	}

	st, err := metaload.OpenStore(cmd.Context(), sc, a.log)
	if err != nil {
		return nil, err
	}
	return metaload.New(metaload.Options{Store: st, Categories: cats, Logger: a.log}), nil
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use: "status",

		Short: "Prints the number of stored entities per category.",

		RunE: func(cmd *cobra.Command, args []string) error {
			im, err := a.openImporter(cmd)
			if err != nil {
				return err
			}
			defer im.Close()

			status, err := im.Status(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tENTITIES\tIMPORTED")
			for _, s := range status {
				fmt.Fprintf(tw, "%s\t%d\t%t\n", s.Category, s.Entities, s.Entities > 0)
			}
			return tw.Flush()
		},
	}
}
