package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var databasesCmd = &cobra.Command{
	Use:   "databases",
	Short: "Inspect logical databases",
}

var databasesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List logical databases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openAdmin(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		dbs, err := db.ListDatabases(cmd.Context())
		if err != nil {
			return err
		}
		for _, d := range dbs {
			marker := " "
			if d.Active {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, d.Name)
		}
		return nil
	},
}

func init() {
	databasesCmd.AddCommand(databasesListCmd)
}
