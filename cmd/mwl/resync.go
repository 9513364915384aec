package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func resyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Rebuild the worklist store from the scheduling database once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.sync.FullRefresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "worklist rebuilt: %d entries\n", n)
			return nil
		},
	}
}
