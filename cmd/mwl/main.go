// Command mwl runs the modality worklist bridge and its maintenance tools.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mwl",
		Short:         "Modality worklist bridge between the clinic scheduling database and ultrasound devices",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(resyncCmd())
	rootCmd.AddCommand(echoCmd())
	rootCmd.AddCommand(findCmd())
	rootCmd.AddCommand(exportCmd())
	return rootCmd
}
