package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/database"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger/console"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/util"
)

// Global flag values.
var (
	flagConfig string
	flagDebug  bool
)

// dbConfig is resolved by PersistentPreRunE for every subcommand.
var dbConfig *database.Config

var rootCmd = &cobra.Command{
	Use:           "mcp-memory-graph",
	Short:         "Knowledge graph and document memory for MCP clients",
	Version:       buildinfo.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		util.LoadEnv()
		debug := flagDebug || strings.EqualFold(util.GetEnv("LOG_LEVEL"), "debug")
		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Debug: debug}))
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dbConfig = cfg
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "config file (default: ./config.yaml or ~/.mcp-memory-graph/config.yaml)")
	flags.BoolVar(&flagDebug, "debug", false, "enable debug logging")
	flags.String("engine", database.EngineEmbedded, "storage engine: embedded or postgres")
	flags.String("driver", database.DriverLibSQL, "embedded driver: libsql or sqlite")
	flags.String("libsql-url", "", "single libSQL database URL (disables multiple databases)")
	flags.String("auth-token", "", "authentication token for remote libSQL databases")
	flags.String("data-dir", "./data", "directory holding one file per database")
	flags.String("database-url", "", "Postgres connection URL for the postgres engine")
	flags.String("database", "default", "database to open at startup")
	flags.Bool("auto-create", false, "create databases that do not exist when switching")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(databasesCmd)
}
