package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dia-Souci/IsDBI/docstore"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type mcpSearcher interface {
	Query(ctx context.Context, text string, k int) ([]docstore.Hit, error)
}

// newMCPServer exposes standards retrieval as an MCP tool so agent
// clients can search the corpus directly.
func newMCPServer(store mcpSearcher, k int) *server.MCPServer {
	tool := mcp.NewTool("search_standards",
		mcp.WithDescription("Searches the AAOIFI standards corpus and returns the most relevant passages"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		))

	srv := server.NewMCPServer("AAOIFI standards", "0.1.0", server.WithToolCapabilities(false))
	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		hits, err := store.Query(ctx, q, k)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response string
		for _, hit := range hits {
			raw, err := json.Marshal(struct {
				Score  float64 `json:"score"`
				Source string  `json:"source"`
				Page   int     `json:"page"`
				Text   string  `json:"text"`
			}{
				Score:  hit.Score,
				Source: hit.Chunk.Source,
				Page:   hit.Chunk.Page,
				Text:   hit.Chunk.Text,
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			response += fmt.Sprintf("%s\n", string(raw))
		}

		return mcp.NewToolResultText(response), nil
	})

	return srv
}
