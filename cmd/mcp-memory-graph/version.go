package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mcp-memory-graph %s (revision %s, built %s)\n",
			buildinfo.Version, buildinfo.Revision, buildinfo.BuildDate)
	},
}
