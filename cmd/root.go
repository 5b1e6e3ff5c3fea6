package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/iris/cmd/gen"
)

var RootCmd = &cobra.Command{
	Use:   "iris",
	Short: "Client tools for JSON/TCP eye tracker servers",
}

func Execute() {
	RootCmd.AddCommand(WatchCmd)
	RootCmd.AddCommand(SimulateCmd)
	RootCmd.AddCommand(gen.RootCmd)

	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
