package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/studyassist/rag-server/internal/ingest"
	"github.com/studyassist/rag-server/internal/query"
	"github.com/studyassist/rag-server/internal/registry"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name        string
	Version     string
	Coordinator *query.Coordinator
	Store       registry.Store
	Layout      ingest.Layout
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Coordinator != nil {
		RegisterAskTool(s, cfg.Coordinator)
	}
	if cfg.Store != nil {
		RegisterStatusTool(s, cfg.Store, cfg.Layout)
		RegisterListTool(s, cfg.Store)
	}

	return s
}
