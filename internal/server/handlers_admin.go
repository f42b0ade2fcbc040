package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/metrics"
)

func (s *MCPServer) handleListDatabases(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ListDatabasesArgs],
) (*mcp.CallToolResultFor[apptype.ListDatabasesResult], error) {
	done := metrics.TimeTool("list_databases")
	var success bool
	defer func() { done(success) }()

	dbs, err := s.db.ListDatabases(ctx)
	if err != nil {
		return nil, errs.WithCommand("list_databases", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.ListDatabasesResult]{
		Content:           text("%d databases", len(dbs)),
		StructuredContent: apptype.ListDatabasesResult{Databases: dbs},
	}, nil
}

func (s *MCPServer) handleGetCurrentDatabase(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.GetCurrentDatabaseArgs],
) (*mcp.CallToolResultFor[apptype.CurrentDatabaseResult], error) {
	done := metrics.TimeTool("get_current_database")
	defer func() { done(true) }()

	name := s.db.CurrentDatabase()
	return &mcp.CallToolResultFor[apptype.CurrentDatabaseResult]{
		Content:           text("%s", name),
		StructuredContent: apptype.CurrentDatabaseResult{Database: name, Engine: s.db.EngineKind()},
	}, nil
}

// handleSwitchDatabase handles the switch_database tool call
func (s *MCPServer) handleSwitchDatabase(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.SwitchDatabaseArgs],
) (*mcp.CallToolResultFor[apptype.SwitchDatabaseResult], error) {
	done := metrics.TimeTool("switch_database")
	var success bool
	defer func() { done(success) }()

	if err := s.check("switch_database", params.Arguments); err != nil {
		return nil, err
	}
	res, err := s.db.Switch(ctx, params.Arguments.DatabaseName)
	if err != nil {
		return nil, errs.WithCommand("switch_database", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.SwitchDatabaseResult]{
		Content: text("Switched from %s to %s", res.Previous, res.Current),
		StructuredContent: apptype.SwitchDatabaseResult{
			Previous: res.Previous,
			Current:  res.Current,
			Migrated: res.Migrated,
		},
	}, nil
}

// handleHealth returns basic server health information
func (s *MCPServer) handleHealth(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.HealthArgs],
) (*mcp.CallToolResultFor[apptype.HealthResult], error) {
	done := metrics.TimeTool("health_check")
	defer func() { done(true) }()

	res := s.db.Health(ctx)
	res.Name = ServerName
	status := "ok"
	if !res.Ready {
		status = "loading"
	}
	return &mcp.CallToolResultFor[apptype.HealthResult]{
		Content:           text("%s", status),
		StructuredContent: *res,
	}, nil
}

func (s *MCPServer) handleMigrationStatus(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.MigrationStatusArgs],
) (*mcp.CallToolResultFor[apptype.MigrationStatusResult], error) {
	done := metrics.TimeTool("migration_status")
	var success bool
	defer func() { done(success) }()

	status, err := s.db.MigrationStatus(ctx)
	if err != nil {
		return nil, errs.WithCommand("migration_status", err)
	}
	success = true
	return &mcp.CallToolResultFor[apptype.MigrationStatusResult]{
		Content:           text("%s is at schema version %d", status.Database, status.CurrentVersion),
		StructuredContent: *status,
	}, nil
}
