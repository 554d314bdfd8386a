package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/studyassist/rag-server/internal/config"
	"github.com/studyassist/rag-server/internal/ingest"
	mcputil "github.com/studyassist/rag-server/internal/mcp"
	"github.com/studyassist/rag-server/internal/query"
	"github.com/studyassist/rag-server/internal/registry"
	"github.com/studyassist/rag-server/internal/supervise"
)

// Services bundles the wired application components.
type Services struct {
	Store       registry.Store
	Layout      ingest.Layout
	Ingest      *ingest.Service
	Supervisor  *supervise.Supervisor
	Coordinator *query.Coordinator
}

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	BuildServices     func(*config.Settings) (*Services, func(), error)
	StartHTTPServer   func(*Services, *config.Settings) error
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:    config.LoadSettingsWithFlags,
		ValidSettings:   config.ValidateSettings,
		BuildServices:   BuildServices,
		StartHTTPServer: StartHTTPServer,
	}
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to avoid buffering issues
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	slog.Info("Starting RAG server", "version", version)
	config.Log(settings)

	services, cleanup, err := params.BuildServices(settings)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if settings.Transport == config.TransportStdio {
		mcpServer := mcputil.CreateServer(mcputil.ServerConfig{
			Name:        "rag-server",
			Version:     version,
			Coordinator: services.Coordinator,
			Store:       services.Store,
			Layout:      services.Layout,
		})

		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting HTTP server", "host", settings.Host, "port", settings.Port)
	return params.StartHTTPServer(services, settings)
}

// BuildServices wires the registry, ingestion pipeline, indexing
// supervisor and query coordinator from the settings. The returned
// cleanup waits for in-flight indexing jobs and closes the registry.
func BuildServices(settings *config.Settings) (*Services, func(), error) {
	store, err := newStore(settings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open document registry: %w", err)
	}

	supervisor, err := supervise.New(store, settings.Indexing.IndexerBin, settings.Indexing.MaxParallelJobs)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	layout := ingest.Layout{BaseDir: settings.Ingest.BaseDir}
	extractor := ingest.NewPDFExtractor(settings.Ingest.ExtractorBin)

	ingestSvc, err := ingest.NewService(
		layout,
		extractor,
		store,
		supervisor,
		settings.Ingest.ChunkSize,
		settings.Ingest.ChunkOverlap,
		settings.Ingest.PreviewLength,
	)
	if err != nil {
		supervisor.Close()
		_ = store.Close()
		return nil, nil, err
	}

	coordinator := query.New(settings.Retrieval.URL, store, settings.Retrieval.Timeout, settings.Retrieval.DefaultTopK)

	cleanup := func() {
		supervisor.Wait()
		supervisor.Close()
		if err := store.Close(); err != nil {
			slog.Error("Failed to close document registry", "error", err)
		}
	}

	return &Services{
		Store:       store,
		Layout:      layout,
		Ingest:      ingestSvc,
		Supervisor:  supervisor,
		Coordinator: coordinator,
	}, cleanup, nil
}

// newStore opens the configured registry backend.
func newStore(settings *config.Settings) (registry.Store, error) {
	switch settings.Registry.Backend {
	case config.RegistryBackendBolt:
		if err := os.MkdirAll(filepath.Dir(settings.Registry.Path), 0755); err != nil {
			return nil, err
		}
		return registry.NewBoltStore(settings.Registry.Path)
	default:
		return registry.NewMemoryStore(), nil
	}
}
