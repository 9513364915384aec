package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caio-sobreiro/mwlbridge/services"
)

func exportCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored worklist entry as a DICOM worklist file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close()

			entries, err := a.store.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			paths, err := services.ExportWorklistFiles(dir, entries, a.cfg.StationAETitle)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d worklist files to %s\n", len(paths), dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "worklist", "output directory")
	return cmd
}
