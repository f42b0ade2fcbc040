package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage schema migrations of a database",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Opening a database applies its pending migrations.
		db, err := openAdmin(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		status, err := db.MigrationStatus(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is at schema version %d\n", status.Database, status.CurrentVersion)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down <target-version>",
	Short: "Roll back migrations above the target version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.Atoi(args[0])
		if err != nil || target < 0 {
			return fmt.Errorf("target version must be a non-negative integer, got %q", args[0])
		}
		db, err := openAdmin(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		reverted, err := db.RollbackMigrations(cmd.Context(), target)
		if err != nil {
			return err
		}
		for _, v := range reverted {
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d\n", v)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is at schema version %d\n", db.CurrentDatabase(), target)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openAdmin(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		status, err := db.MigrationStatus(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "database %s, version %d\n", status.Database, status.CurrentVersion)
		for _, m := range status.Migrations {
			state := "pending"
			if m.Applied {
				state = "applied " + m.AppliedAt
			}
			fmt.Fprintf(out, "%4d  %-28s %s\n", m.Version, m.Name, state)
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

// openAdmin opens the configured database without embedding resources.
func openAdmin(cmd *cobra.Command) (*database.DBManager, error) {
	db, err := database.NewDBManager(cmd.Context(), dbConfig, database.WithoutResources())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
