package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/apptype"
)

type StepResult struct {
	Name      string `json:"name"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type Report struct {
	SSEURL     string       `json:"sse_url"`
	StartedAt  time.Time    `json:"started_at"`
	DurationMs int64        `json:"duration_ms"`
	Steps      []StepResult `json:"steps"`
	Passed     bool         `json:"passed"`
}

func main() {
	sseURL := flag.String("sse-url", "http://localhost:8080/sse", "SSE endpoint URL")
	database := flag.String("database", "", "Database to switch to before running (optional)")
	timeout := flag.Duration("timeout", 60*time.Second, "Overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "integration-tester", Version: "dev"}, nil)
	transport := mcp.NewSSEClientTransport(*sseURL, nil)

	start := time.Now()
	report := Report{SSEURL: *sseURL, StartedAt: start}
	steps := make([]StepResult, 0, 24)

	// Connect
	tConn := time.Now()
	connRes := StepResult{Name: "connect"}
	session, err := client.Connect(ctx, transport)
	if err != nil {
		connRes.Error = err.Error()
		connRes.ElapsedMs = elapsedMsSince(tConn)
		report.Steps = append(steps, connRes)
		report.DurationMs = elapsedMsSince(start)
		writeReport(report)
		os.Exit(1)
	}
	defer session.Close()
	connRes.Success = true
	connRes.ElapsedMs = elapsedMsSince(tConn)
	steps = append(steps, connRes)

	// Names carry a run suffix so repeated runs against one database do not
	// collide with skipped creates.
	run := fmt.Sprintf("%d", start.UnixNano())
	a, b, c, d := "a-"+run, "b-"+run, "c-"+run, "d-"+run
	doc := "doc-" + run

	steps = append(steps, runListTools(ctx, session))
	steps = append(steps, call(ctx, session, "health_check", apptype.HealthArgs{}))
	if *database != "" {
		steps = append(steps, call(ctx, session, "switch_database", apptype.SwitchDatabaseArgs{DatabaseName: *database}))
	}
	steps = append(steps, call(ctx, session, "get_current_database", apptype.GetCurrentDatabaseArgs{}))
	steps = append(steps, call(ctx, session, "create_entities", apptype.CreateEntitiesArgs{Entities: []apptype.Entity{
		{Name: a, EntityType: "t", Observations: []string{"oa"}},
		{Name: b, EntityType: "t", Observations: []string{"ob"}},
		{Name: c, EntityType: "t", Observations: []string{"oc"}},
	}}))
	// d is created implicitly by the relation.
	steps = append(steps, call(ctx, session, "create_relations", apptype.CreateRelationsArgs{Relations: []apptype.Relation{
		{From: a, To: b, RelationType: "r"},
		{From: b, To: c, RelationType: "r"},
		{From: a, To: d, RelationType: "r"},
	}}))
	steps = append(steps, call(ctx, session, "add_observations", apptype.AddObservationsArgs{Observations: []apptype.ObservationAddition{
		{EntityName: a, Contents: []string{"oa2"}},
	}}))
	steps = append(steps, call(ctx, session, "store_document", apptype.StoreDocumentArgs{
		ID:      doc,
		Content: "Integration testing stores this document and links it to the seeded entities.",
	}))
	steps = append(steps, call(ctx, session, "extract_terms", apptype.ExtractTermsArgs{DocumentID: doc}))
	steps = append(steps, call(ctx, session, "link_entities_to_document", apptype.LinkEntitiesToDocumentArgs{
		DocumentID: doc, EntityNames: []string{a, b},
	}))
	steps = append(steps, call(ctx, session, "list_documents", apptype.ListDocumentsArgs{}))
	steps = append(steps, call(ctx, session, "search_nodes", apptype.SearchNodesArgs{Query: "oa", Limit: 10}))
	steps = append(steps, call(ctx, session, "hybrid_search", apptype.HybridSearchArgs{Query: "integration testing", Limit: 5}))
	steps = append(steps, call(ctx, session, "open_nodes", apptype.OpenNodesArgs{Names: []string{a, d}}))
	steps = append(steps, call(ctx, session, "read_graph", apptype.ReadGraphArgs{}))
	steps = append(steps, call(ctx, session, "neighbors", apptype.NeighborsArgs{Names: []string{a}, Direction: "out"}))
	steps = append(steps, call(ctx, session, "walk", apptype.WalkArgs{Names: []string{a}, MaxDepth: 2, Direction: "out"}))
	steps = append(steps, call(ctx, session, "shortest_path", apptype.ShortestPathArgs{From: a, To: c, Direction: "out"}))
	steps = append(steps, call(ctx, session, "get_knowledge_graph_stats", apptype.GetKnowledgeGraphStatsArgs{}))
	steps = append(steps, call(ctx, session, "migration_status", apptype.MigrationStatusArgs{}))
	// Deletes
	steps = append(steps, call(ctx, session, "delete_observations", apptype.DeleteObservationsArgs{Deletions: []apptype.ObservationDeletion{
		{EntityName: a, Observations: []string{"oa"}},
	}}))
	steps = append(steps, call(ctx, session, "delete_relations", apptype.DeleteRelationsArgs{Relations: []apptype.Relation{
		{From: a, To: d, RelationType: "r"},
	}}))
	steps = append(steps, call(ctx, session, "delete_documents", apptype.DeleteDocumentsArgs{DocumentIDs: []string{doc}}))
	steps = append(steps, call(ctx, session, "delete_entities", apptype.DeleteEntitiesArgs{EntityNames: []string{a, b, c, d}}))

	// finalize report
	report.Steps = steps
	report.DurationMs = elapsedMsSince(start)
	report.Passed = true
	for _, s := range steps {
		if !s.Success {
			report.Passed = false
			break
		}
	}
	writeReport(report)

	if !report.Passed {
		os.Exit(1)
	}
}

func writeReport(report Report) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}

func runListTools(ctx context.Context, session *mcp.ClientSession) StepResult {
	t0 := time.Now()
	res := StepResult{Name: "list_tools"}
	if _, err := session.ListTools(ctx, &mcp.ListToolsParams{}); err != nil {
		res.Error = err.Error()
	} else {
		res.Success = true
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res
}

// call invokes one tool. A transport error or a tool error fails the step.
func call(ctx context.Context, session *mcp.ClientSession, name string, args any) StepResult {
	t0 := time.Now()
	res := StepResult{Name: name}
	raw, err := json.Marshal(args)
	if err != nil {
		res.Error = err.Error()
		res.ElapsedMs = elapsedMsSince(t0)
		return res
	}
	out, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: json.RawMessage(raw)})
	switch {
	case err != nil:
		res.Error = err.Error()
	case out.IsError:
		res.Error = toolErrorText(out)
	default:
		res.Success = true
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res
}

func toolErrorText(out *mcp.CallToolResult) string {
	for _, c := range out.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return "tool returned an error"
}

// elapsedMsSince returns max(1ms, elapsed) to avoid zero durations on fast steps
func elapsedMsSince(t0 time.Time) int64 {
	d := time.Since(t0) / time.Millisecond
	if d <= 0 {
		return 1
	}
	return int64(d)
}
