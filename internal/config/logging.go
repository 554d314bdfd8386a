package config

import (
	"context"
	"log/slog"
)

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == TransportHTTP {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
	}

	logger.InfoContext(ctx, "Config: ingest.base_dir", "value", s.Ingest.BaseDir)
	logger.InfoContext(ctx, "Config: ingest.chunk_size", "value", s.Ingest.ChunkSize)
	logger.InfoContext(ctx, "Config: ingest.chunk_overlap", "value", s.Ingest.ChunkOverlap)
	logger.InfoContext(ctx, "Config: indexing.indexer_bin", "value", s.Indexing.IndexerBin)
	logger.InfoContext(ctx, "Config: indexing.max_parallel_jobs", "value", s.Indexing.MaxParallelJobs)
	logger.InfoContext(ctx, "Config: retrieval.url", "value", s.Retrieval.URL)
	logger.InfoContext(ctx, "Config: retrieval.timeout", "value", s.Retrieval.Timeout)

	logger.InfoContext(ctx, "Config: registry.backend", "value", s.Registry.Backend)
	if s.Registry.Backend == RegistryBackendBolt {
		logger.InfoContext(ctx, "Config: registry.path", "value", s.Registry.Path)
	}
}

// SettingsLogValue returns a slog.Value summarising the settings
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.String("base_dir", s.Ingest.BaseDir),
		slog.String("registry_backend", s.Registry.Backend),
	)
}
