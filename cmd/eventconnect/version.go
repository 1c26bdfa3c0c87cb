package main

import (
	"fmt"

	"github.com/eventconnect/eventconnect/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Fprintf(cmd.OutOrStdout(), "eventconnect %s built %s\n", info, info.BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
