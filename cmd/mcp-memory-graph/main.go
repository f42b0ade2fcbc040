// Command mcp-memory-graph serves a knowledge graph and document memory over
// MCP and administers its databases.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
