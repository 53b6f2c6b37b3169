// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Fitch tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/fitch/internal/proofservice"
)

const formatURI = "fitch://document-format"

// Server wraps the MCP server with Fitch tools.
type Server struct {
	mcp *server.MCPServer
	svc *proofservice.Service
}

// New creates a new MCP server with all Fitch tools registered.
func New(svc *proofservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Fitch",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List stored proofs with their line counts and validity."),
		mcp.WithString("rule", mcp.Description("Only documents citing this rule (id or name)")),
		mcp.WithString("sort", mcp.Description("Sort field: updated, title, invalid or path")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Render a proof as a numbered Fitch-style listing with a verdict per line."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("verify_document",
		mcp.WithDescription("Check every line of a proof and report the verdicts as JSON."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.verifyDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Store a new proof. Content MUST follow the document format "+
			"(YAML with premises and lines). Read the contract first via the "+
			"get_document_format tool or the "+formatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("YAML document following the Fitch format contract")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("list_rules",
		mcp.WithDescription("List the rule catalogue with the lines and sub-proofs each rule cites."),
	), s.listRules)

	s.mcp.AddTool(mcp.NewTool("get_document_format",
		mcp.WithDescription("Returns the Fitch document format contract. "+
			"Call this before creating documents to ensure correct structure."),
	), s.getDocumentFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Document Format Contract",
			mcp.WithResourceDescription("YAML proof format that all documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, total, err := s.svc.List(ctx, 0, 0, req.GetString("rule", ""), req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if total == 0 {
		return mcp.NewToolResultText("no documents"), nil
	}
	return jsonResult(docs), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.svc.Text(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", id, err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) verifyDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep, err := s.svc.Verify(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("verify %s: %v", id, err)), nil
	}
	return jsonResult(rep), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Import(ctx, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%d/%d steps correct)",
		doc.ID, doc.Summary.Valid, doc.Summary.Steps)), nil
}

func (s *Server) listRules(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos, err := s.svc.Rules(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(infos), nil
}

func (s *Server) getDocumentFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
