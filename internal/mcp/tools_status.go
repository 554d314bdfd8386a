package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/studyassist/rag-server/internal/ingest"
	"github.com/studyassist/rag-server/internal/registry"
)

// StatusArgument identifies the document to report on.
type StatusArgument struct {
	PDFID string `json:"pdf_id" jsonschema_description:"The document id returned by the upload operation"`
}

// StatusHandler handles the document_status MCP tool.
type StatusHandler struct {
	store  registry.Store
	layout ingest.Layout
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(store registry.Store, layout ingest.Layout) *StatusHandler {
	return &StatusHandler{
		store:  store,
		layout: layout,
	}
}

// Handle reports index readiness for a document. Readiness comes from
// the on-disk marker; registry metadata is attached when available.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.PDFID) == "" {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: "pdf_id cannot be empty"},
			},
			IsError: true,
		}, nil, nil
	}

	ready := h.layout.IndexReady(args.PDFID)

	var sb strings.Builder
	if ready {
		sb.WriteString(fmt.Sprintf("Document %s is indexed and ready for questions.", args.PDFID))
	} else {
		sb.WriteString(fmt.Sprintf("Document %s is not ready yet.", args.PDFID))
	}

	rec, err := h.store.Get(args.PDFID)
	switch {
	case err == nil:
		sb.WriteString(fmt.Sprintf("\nFilename: %s\nChunks: %d\nStatus: %s", rec.Filename, rec.TotalChunks, rec.Status))
	case errors.Is(err, registry.ErrNotFound):
		// Marker stays authoritative when the registry has no record.
	default:
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to look up document: %s", err)},
			},
			IsError: true,
		}, nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
	}, nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *StatusHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "document_status",
		Description: "Report whether an uploaded document has finished indexing",
	}
}

// RegisterStatusTool registers the document_status tool with an MCP server.
func RegisterStatusTool(server *mcp.Server, store registry.Store, layout ingest.Layout) {
	handler := NewStatusHandler(store, layout)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
