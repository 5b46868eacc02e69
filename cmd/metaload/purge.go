package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use: "purge",

		Short: "Deletes stored entities so the next import runs again.",

		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.categories()) == 0 && !a.v.GetBool("purge.all") {
				return errors.New("name categories with --category or pass --all")
			}

			im, err := a.openImporter(cmd)
			if err != nil {
				return err
			}
			defer im.Close()

			purged, err := im.Purge(cmd.Context())
			for _, p := range purged {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d deleted\n", p.Category, p.Entities)
			}
			return err
		},
	}

	cmd.Flags().Bool("all", false, "Purge every configured category.")
	_ = a.v.BindPFlag("purge.all", cmd.Flags().Lookup("all"))

	return cmd
}
