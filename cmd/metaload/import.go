package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cognicore/metaload/pkg/metaload"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use: "import",

		Short: "Imports every configured category into the destination store.",

		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := a.loader().Load()
			if err != nil {
				return err
			}

			st, err := metaload.OpenStore(cmd.Context(), run.Store, a.log)
			if err != nil {
				return err
			}

			im := metaload.New(metaload.Options{
				Store:       st,
				Inputs:      run.Inputs,
				Categories:  run.Categories,
				Parallelism: run.Parallelism,
				Logger:      a.log,
			})
			defer im.Close()

			rep := im.Import(cmd.Context())
			printReport(cmd.OutOrStdout(), rep)
			return rep.Err()
		},
	}

	flags := cmd.Flags()
	flags.String("source-dir", "", "Release directory holding MRSTY.RRF and MRCONSO.RRF (or a META subdirectory).")
	flags.String("mrsty", "", "Path to the semantic type file.")
	flags.String("mrconso", "", "Path to the concept names file.")
	flags.Int("parallelism", 0, "Number of categories imported at once.")

	_ = a.v.BindPFlag("import.source-dir", flags.Lookup("source-dir"))
	_ = a.v.BindPFlag("import.mrsty", flags.Lookup("mrsty"))
	_ = a.v.BindPFlag("import.mrconso", flags.Lookup("mrconso"))
	_ = a.v.BindPFlag("import.parallelism", flags.Lookup("parallelism"))

	return cmd
}

func printReport(w io.Writer, rep metaload.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSTATE\tCUIS\tSELECTED\tPERSISTED\tTRUNCATED\tSKIPPED")
	for _, s := range rep.Summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			s.Category, s.State, s.CUIs, s.Selected, s.Write.Persisted, s.Write.Truncated, s.Write.Skipped)
	}
	tw.Flush()
}
