package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/studyassist/rag-server/internal/registry"
)

// ListArgument carries no parameters; the tool lists every document.
type ListArgument struct{}

// ListHandler handles the list_documents MCP tool.
type ListHandler struct {
	store registry.Store
}

// NewListHandler creates a new list handler.
func NewListHandler(store registry.Store) *ListHandler {
	return &ListHandler{
		store: store,
	}
}

// Handle lists the registered documents in upload order.
func (h *ListHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ListArgument) (*mcp.CallToolResult, any, error) {
	records, err := h.store.List()
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to list documents: %s", err)},
			},
			IsError: true,
		}, nil, nil
	}

	if len(records) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: "No documents have been uploaded yet."},
			},
		}, nil, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d document(s):\n\n", len(records)))
	for i, rec := range records {
		sb.WriteString(fmt.Sprintf("%d. %s (id: %s, chunks: %d, status: %s)\n",
			i+1, rec.Filename, rec.ID, rec.TotalChunks, rec.Status))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
	}, nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ListHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_documents",
		Description: "List the uploaded PDF documents and their indexing status",
	}
}

// RegisterListTool registers the list_documents tool with an MCP server.
func RegisterListTool(server *mcp.Server, store registry.Store) {
	handler := NewListHandler(store)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
