// Package precedents is a small MCP tool server over a sample corpus of
// Indian judgments and statutory provisions. It is used for local
// development and for end-to-end tests of the assistant.
package precedents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	Name    = "precedents"
	Version = "0.1.0"
)

// NewServer registers search_precedents and lookup_statute.
func NewServer(logger *zap.Logger) *server.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := server.NewMCPServer(Name, Version, server.WithToolCapabilities(false))

	s.AddTool(
		mcp.NewTool("search_precedents",
			mcp.WithDescription("Search reported Indian judgments by keywords"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Keywords, statute sections or party names")),
			mcp.WithArray("courts", mcp.Description("Restrict results to these courts"), mcp.Items(map[string]any{"type": "string"})),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			query := req.GetString("query", "")
			if query == "" {
				return mcp.NewToolResultError("query is required"), nil
			}
			hits := Search(query, req.GetStringSlice("courts", nil), req.GetInt("limit", 5))
			logger.Debug("search_precedents", zap.String("query", query), zap.Int("hits", len(hits)))
			return jsonResult(map[string]any{"query": query, "results": hits})
		},
	)

	s.AddTool(
		mcp.NewTool("lookup_statute",
			mcp.WithDescription("Return the text of a section of an Indian statute"),
			mcp.WithString("section", mcp.Required(), mcp.Description("Section or article number, e.g. 420 or 498A")),
			mcp.WithString("act", mcp.Description("IPC, CrPC or Constitution (default IPC)")),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			section := req.GetString("section", "")
			if section == "" {
				return mcp.NewToolResultError("section is required"), nil
			}
			act := req.GetString("act", "")
			found, ok := Lookup(act, section)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("section %s not found", section)), nil
			}
			return jsonResult(found)
		},
	)
	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ServeStdio serves s on the given streams until ctx is cancelled or in is
// closed.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s).Listen(ctx, in, out)
}
