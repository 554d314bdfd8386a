package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/studyassist/rag-server/internal/query"
)

// AskArgument defines question parameters.
type AskArgument struct {
	Question string `json:"question" jsonschema_description:"The question to answer from the indexed documents"`
	PDFID    string `json:"pdf_id,omitempty" jsonschema_description:"Restrict retrieval to a single document by its id"`
	TopK     int    `json:"top_k,omitempty" jsonschema_description:"Number of chunks to retrieve (default is configured server-side)"`
}

// AskHandler handles the ask MCP tool.
type AskHandler struct {
	coordinator *query.Coordinator
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(coordinator *query.Coordinator) *AskHandler {
	return &AskHandler{
		coordinator: coordinator,
	}
}

// Handle forwards the question and returns the formatted answer.
func (h *AskHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args AskArgument) (*mcp.CallToolResult, any, error) {
	var scope *string
	if args.PDFID != "" {
		scope = &args.PDFID
	}

	answer, err := h.coordinator.Ask(ctx, args.Question, scope, args.TopK)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to answer the question: %s", err)},
			},
			IsError: true,
		}, nil, nil
	}

	return h.formatAnswer(answer), nil, nil
}

// formatAnswer renders the answer and its supporting chunks.
func (h *AskHandler) formatAnswer(answer query.Answer) *mcp.CallToolResult {
	var sb strings.Builder
	sb.WriteString(answer.Answer)

	if answer.PDFName != nil {
		sb.WriteString(fmt.Sprintf("\n\n(answered from %s)", *answer.PDFName))
	}

	if len(answer.Sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for i, src := range answer.Sources {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, src))
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
	}
}

// GetToolDefinition returns the MCP tool definition.
func (h *AskHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question answered from the indexed PDF documents, optionally scoped to one document",
	}
}

// RegisterAskTool registers the ask tool with an MCP server.
func RegisterAskTool(server *mcp.Server, coordinator *query.Coordinator) {
	handler := NewAskHandler(coordinator)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
