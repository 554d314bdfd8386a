package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/studyassist/rag-server/internal/indexer"
)

var (
	// Version is injected at build time
	Version = "dev"
	// ProgramName is injected at build time
	ProgramName = "rag-indexer"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, programName string, args []string) error {
	var chunksPath string
	var outDir string

	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "Chunk indexing worker",
		Long:    "Builds a searchable index from a JSONL chunk file. Invoked per document by the RAG server",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(chunksPath, outDir)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	rootCmd.Flags().StringVar(&chunksPath, "chunks", "", "Path of the JSONL chunk file to index")
	rootCmd.Flags().StringVar(&outDir, "out", "", "Directory to write the index into")
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// runIndex builds the index and reports progress on stdout/stderr; the
// launching server forwards both streams to its own log.
func runIndex(chunksPath, outDir string) error {
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	if chunksPath == "" {
		return errors.New("--chunks is required")
	}
	if outDir == "" {
		return errors.New("--out is required")
	}

	slog.Info("Indexing chunk file", "chunks", chunksPath, "out", outDir)

	count, err := indexer.Build(chunksPath, outDir)
	if err != nil {
		slog.Error("Indexing failed", "error", err)
		return err
	}

	// Stdout line for the supervising server's log.
	fmt.Printf("indexed %d chunks into %s\n", count, indexer.IndexPath(outDir))
	return nil
}
