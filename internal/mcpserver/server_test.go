package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/fitch/internal/proofservice"
	"github.com/starford/fitch/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, store := testutil.TestStore(t)
	db := testutil.TestDB(t)
	return New(proofservice.NewService(store, db, nil, testutil.Logger()))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "verify_document":
		result, err = srv.verifyDocument(ctx, req)
	case "create_document":
		result, err = srv.createDocument(ctx, req)
	case "list_rules":
		result, err = srv.listRules(ctx, req)
	case "get_document_format":
		result, err = srv.getDocumentFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// create stores the demo proof and returns its id.
func create(t *testing.T, srv *Server) string {
	t.Helper()
	r := callTool(t, srv, "create_document", map[string]any{"content": testutil.Demo})
	text := resultText(r)
	if r.IsError || !strings.HasPrefix(text, "created: ") {
		t.Fatalf("create result = %q", text)
	}
	id, _, _ := strings.Cut(strings.TrimPrefix(text, "created: "), " ")
	return id
}

func TestCreateAndReadDocument(t *testing.T) {
	srv := testServer(t)
	id := create(t, srv)

	r := callTool(t, srv, "read_document", map[string]any{"id": id})
	text := resultText(r)
	if r.IsError {
		t.Fatalf("read error: %s", text)
	}
	for _, want := range []string{"Conjunction then implication", "A ∧ B", "Assumption", "Correct"} {
		if !strings.Contains(text, want) {
			t.Errorf("listing lacks %q:\n%s", want, text)
		}
	}
}

func TestCreateDocument_Invalid(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_document", map[string]any{"content": "premises: []\n"})
	if !r.IsError {
		t.Error("expected error for a document without premises")
	}
}

func TestVerifyDocument(t *testing.T) {
	srv := testServer(t)
	id := create(t, srv)

	r := callTool(t, srv, "verify_document", map[string]any{"id": id})
	var rep proofservice.Report
	if err := json.Unmarshal([]byte(resultText(r)), &rep); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if !rep.Summary.Complete || rep.Summary.Valid != 3 {
		t.Errorf("summary = %+v", rep.Summary)
	}
}

func TestListDocuments(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "list_documents", map[string]any{})
	if text := resultText(r); text != "no documents" {
		t.Errorf("empty list = %q", text)
	}

	id := create(t, srv)
	r = callTool(t, srv, "list_documents", map[string]any{"rule": "→ Intro"})
	if !strings.Contains(resultText(r), id) {
		t.Errorf("list lacks %s: %s", id, resultText(r))
	}

	r = callTool(t, srv, "list_documents", map[string]any{"rule": "no such rule at all"})
	if !r.IsError {
		t.Error("expected error for an unknown rule")
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_document", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
	r = callTool(t, srv, "read_document", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing id")
	}
}

func TestListRules(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "list_rules", nil)
	var infos []proofservice.RuleInfo
	if err := json.Unmarshal([]byte(resultText(r)), &infos); err != nil {
		t.Fatalf("rules are not JSON: %v", err)
	}
	if len(infos) == 0 || infos[0].ID != "reiteration" {
		t.Errorf("rules = %+v", infos)
	}
}

func TestDocumentFormat(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_document_format", nil)
	if resultText(r) != DocumentFormatContract {
		t.Error("format tool does not return the contract")
	}

	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != "fitch://document-format" {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
