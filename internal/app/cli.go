package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: http or stdio")
	flags.StringP("host", "H", "", "Host for the HTTP transport")
	flags.IntP("port", "p", 0, "Port for the HTTP transport")
	flags.StringP("base-dir", "d", "", "Base directory for uploads, chunk files and indexes")
	flags.Int("chunk-size", 0, "Tokens per chunk window")
	flags.Int("chunk-overlap", 0, "Tokens shared between consecutive windows")
	flags.Int("preview-length", 0, "Characters of the first chunk echoed on upload")
	flags.String("extractor-bin", "", "Text extraction binary (pdftotext)")
	flags.String("indexer-bin", "", "External indexing binary")
	flags.Int("max-parallel-jobs", 0, "Maximum concurrent indexing processes")
	flags.String("retrieval-url", "", "Base URL of the retrieval/LLM service")
	flags.Duration("retrieval-timeout", 0, "Timeout for retrieval service calls")
	flags.IntP("top-k", "k", 0, "Default number of chunks to retrieve per question")
	flags.String("registry-backend", "", "Document registry backend: memory or bolt")
	flags.String("registry-path", "", "Path of the bolt registry database")
}
