package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/database"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/logger"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/server"
)

var (
	flagTransport   string
	flagAddr        string
	flagSSEEndpoint string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagTransport, "transport", "stdio", "transport to use: stdio or sse")
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "address to listen on when using SSE transport")
	serveCmd.Flags().StringVar(&flagSSEEndpoint, "sse-endpoint", "/sse", "SSE endpoint path when using SSE transport")
}

func runServe(cmd *cobra.Command, args []string) error {
	if flagTransport != "stdio" && flagTransport != "sse" {
		return fmt.Errorf("unknown transport: %s (expected: stdio or sse)", flagTransport)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.InitFromEnv()

	db, err := database.NewDBManager(ctx, dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}()
	db.SetFatalHook(func(err error) {
		logger.Fatal("no database reachable after a failed switch", "error", err)
	})

	mcpServer := server.NewMCPServer(db)
	logger.Info("starting MCP memory graph server",
		"transport", flagTransport,
		"engine", db.EngineKind(),
		"database", db.CurrentDatabase(),
	)

	switch flagTransport {
	case "sse":
		err = mcpServer.RunSSE(ctx, flagAddr, flagSSEEndpoint)
	default:
		err = mcpServer.Run(ctx)
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
