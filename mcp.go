// CLAUDE:SUMMARY Registers the docqa MCP tools — ask, search, stats.
package docqa

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/docqa/internal/qa"
	"github.com/hazyhaar/docqa/kit"
)

// RegisterMCP registers docqa tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerAskTool(srv)
	s.registerSearchTool(srv)
	s.registerStatsTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func qaRequestSchema() map[string]any {
	return inputSchema(map[string]any{
		"query":      map[string]any{"type": "string", "description": "Question or search query"},
		"documentId": map[string]any{"type": "string", "description": "Optional: restrict to one document"},
		"top_k":      map[string]any{"type": "integer", "description": "Max passages to retrieve (default 6)"},
	}, []string{"query"})
}

func decodeQARequest(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r qa.Request
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}

func (s *Service) registerAskTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docqa_ask",
		Description: "Answer a question over the ingested PDF corpus. Returns a grounded answer with page-level citations.",
		InputSchema: qaRequestSchema(),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.Ask(ctx, *req.(*qa.Request))
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeQARequest)
}

func (s *Service) registerSearchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docqa_search",
		Description: "Retrieve the passages most similar to a query, without answer synthesis. Returns ranked chunks with scores.",
		InputSchema: qaRequestSchema(),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		hits, err := s.Search(ctx, *req.(*qa.Request))
		if err != nil {
			return nil, err
		}
		if hits == nil {
			hits = []qa.Hit{}
		}
		return map[string]any{"hits": hits}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeQARequest)
}

func (s *Service) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docqa_stats",
		Description: "Corpus statistics: document counts by status, chunk counts, index size, embedding model.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.GetStats(ctx)
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
