package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Transport constants
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Registry backend constants
const (
	RegistryBackendMemory = "memory"
	RegistryBackendBolt   = "bolt"
)

// IngestSettings configuration for document ingestion
type IngestSettings struct {
	BaseDir       string `mapstructure:"base_dir"`
	ChunkSize     int    `mapstructure:"chunk_size"`
	ChunkOverlap  int    `mapstructure:"chunk_overlap"`
	PreviewLength int    `mapstructure:"preview_length"`
	ExtractorBin  string `mapstructure:"extractor_bin"`
}

// IndexingSettings configuration for the external indexing job
type IndexingSettings struct {
	IndexerBin      string `mapstructure:"indexer_bin"`
	MaxParallelJobs int    `mapstructure:"max_parallel_jobs"`
}

// RetrievalSettings configuration for the retrieval/LLM service client
type RetrievalSettings struct {
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DefaultTopK int           `mapstructure:"default_top_k"`
}

// RegistrySettings configuration for the document registry backend
type RegistrySettings struct {
	Backend string `mapstructure:"backend"` // RegistryBackendMemory or RegistryBackendBolt
	Path    string `mapstructure:"path"`    // bolt db path; defaults to <base_dir>/registry.db
}

// Settings application settings
type Settings struct {
	Transport string            `mapstructure:"transport"`
	Host      string            `mapstructure:"host"`
	Port      int               `mapstructure:"port"`
	Ingest    IngestSettings    `mapstructure:"ingest"`
	Indexing  IndexingSettings  `mapstructure:"indexing"`
	Retrieval RetrievalSettings `mapstructure:"retrieval"`
	Registry  RegistrySettings  `mapstructure:"registry"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("transport", TransportHTTP)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 3000)

	v.SetDefault("ingest.base_dir", defaultBaseDir())
	v.SetDefault("ingest.chunk_size", 500)
	v.SetDefault("ingest.chunk_overlap", 50)
	v.SetDefault("ingest.preview_length", 300)
	v.SetDefault("ingest.extractor_bin", "pdftotext")

	v.SetDefault("indexing.indexer_bin", "rag-indexer")
	v.SetDefault("indexing.max_parallel_jobs", 4)

	v.SetDefault("retrieval.url", "http://localhost:8000")
	v.SetDefault("retrieval.timeout", 120*time.Second)
	v.SetDefault("retrieval.default_top_k", 3)

	v.SetDefault("registry.backend", RegistryBackendMemory)
	v.SetDefault("registry.path", "")

	// Environment variables
	v.SetEnvPrefix("RAG_SERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("ingest.base_dir", "RAG_SERVER_INGEST_BASE_DIR")
	_ = v.BindEnv("ingest.chunk_size", "RAG_SERVER_INGEST_CHUNK_SIZE")
	_ = v.BindEnv("ingest.chunk_overlap", "RAG_SERVER_INGEST_CHUNK_OVERLAP")
	_ = v.BindEnv("ingest.preview_length", "RAG_SERVER_INGEST_PREVIEW_LENGTH")
	_ = v.BindEnv("ingest.extractor_bin", "RAG_SERVER_INGEST_EXTRACTOR_BIN")
	_ = v.BindEnv("indexing.indexer_bin", "RAG_SERVER_INDEXING_INDEXER_BIN")
	_ = v.BindEnv("indexing.max_parallel_jobs", "RAG_SERVER_INDEXING_MAX_PARALLEL_JOBS")
	_ = v.BindEnv("retrieval.url", "RAG_SERVER_RETRIEVAL_URL")
	_ = v.BindEnv("retrieval.timeout", "RAG_SERVER_RETRIEVAL_TIMEOUT")
	_ = v.BindEnv("retrieval.default_top_k", "RAG_SERVER_RETRIEVAL_DEFAULT_TOP_K")
	_ = v.BindEnv("registry.backend", "RAG_SERVER_REGISTRY_BACKEND")
	_ = v.BindEnv("registry.path", "RAG_SERVER_REGISTRY_PATH")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("transport", flags.Lookup("transport"))
		_ = v.BindPFlag("host", flags.Lookup("host"))
		_ = v.BindPFlag("port", flags.Lookup("port"))
		_ = v.BindPFlag("ingest.base_dir", flags.Lookup("base-dir"))
		_ = v.BindPFlag("ingest.chunk_size", flags.Lookup("chunk-size"))
		_ = v.BindPFlag("ingest.chunk_overlap", flags.Lookup("chunk-overlap"))
		_ = v.BindPFlag("ingest.preview_length", flags.Lookup("preview-length"))
		_ = v.BindPFlag("ingest.extractor_bin", flags.Lookup("extractor-bin"))
		_ = v.BindPFlag("indexing.indexer_bin", flags.Lookup("indexer-bin"))
		_ = v.BindPFlag("indexing.max_parallel_jobs", flags.Lookup("max-parallel-jobs"))
		_ = v.BindPFlag("retrieval.url", flags.Lookup("retrieval-url"))
		_ = v.BindPFlag("retrieval.timeout", flags.Lookup("retrieval-timeout"))
		_ = v.BindPFlag("retrieval.default_top_k", flags.Lookup("top-k"))
		_ = v.BindPFlag("registry.backend", flags.Lookup("registry-backend"))
		_ = v.BindPFlag("registry.path", flags.Lookup("registry-path"))
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Expand home directory in base_dir
	settings.Ingest.BaseDir = expandHomeDir(settings.Ingest.BaseDir)

	// Default the bolt registry path under the base directory
	if settings.Registry.Path == "" {
		settings.Registry.Path = filepath.Join(settings.Ingest.BaseDir, "registry.db")
	} else {
		settings.Registry.Path = expandHomeDir(settings.Registry.Path)
	}

	return &settings, nil
}

// defaultBaseDir returns the default base directory for artifacts
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rag-server"
	}
	return filepath.Join(home, ".rag-server")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// ValidateSettings checks for invalid or inconsistent configuration.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case TransportHTTP, TransportStdio:
		// valid
	default:
		return errors.New("transport must be 'http' or 'stdio', got: " + s.Transport)
	}

	if s.Transport == TransportHTTP && (s.Port <= 0 || s.Port > 65535) {
		return errors.New("port must be in (0, 65535]")
	}

	if err := validateIngestSettings(&s.Ingest); err != nil {
		return err
	}

	if s.Indexing.IndexerBin == "" {
		return errors.New("indexer-bin cannot be empty")
	}
	if s.Indexing.MaxParallelJobs <= 0 {
		return errors.New("max-parallel-jobs must be positive")
	}

	if s.Retrieval.URL == "" {
		return errors.New("retrieval-url cannot be empty")
	}
	if s.Retrieval.Timeout <= 0 {
		return errors.New("retrieval-timeout must be positive")
	}
	if s.Retrieval.DefaultTopK <= 0 {
		return errors.New("top-k must be positive")
	}

	switch s.Registry.Backend {
	case RegistryBackendMemory, RegistryBackendBolt:
		// valid
	default:
		return errors.New("registry-backend must be 'memory' or 'bolt', got: " + s.Registry.Backend)
	}

	return nil
}

// validateIngestSettings validates the ingestion configuration
func validateIngestSettings(i *IngestSettings) error {
	if i.BaseDir == "" {
		return errors.New("base-dir cannot be empty")
	}
	if i.ChunkSize <= 0 {
		return errors.New("chunk-size must be positive")
	}
	if i.ChunkOverlap < 0 || i.ChunkOverlap >= i.ChunkSize {
		return errors.New("chunk-overlap must be non-negative and smaller than chunk-size")
	}
	if i.PreviewLength <= 0 {
		return errors.New("preview-length must be positive")
	}
	if i.ExtractorBin == "" {
		return errors.New("extractor-bin cannot be empty")
	}
	return nil
}
