// Package indexer builds the per-document Bleve index consumed by the
// retrieval service. It is linked into the rag-indexer executable that
// the server spawns as an out-of-process indexing job.
package indexer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/studyassist/rag-server/internal/domain"
)

const (
	// IndexDirName is the name of the Bleve index directory inside a
	// document's index output directory.
	IndexDirName = "index.bleve"

	// MarkerFilename is written by Bleve when the index is created.
	// Its existence is the authoritative readiness signal for a document.
	MarkerFilename = "index_meta.json"

	// MaxBatchSize is the maximum number of chunks per index batch
	MaxBatchSize = 100

	// maxChunkLineBytes bounds a single JSONL record when scanning
	maxChunkLineBytes = 1024 * 1024
)

// CreateIndexMapping creates the Bleve index mapping for chunk records.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Text field - analyzed for full-text search
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = true
	textField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.ChunkFieldText, textField)

	// Filename - keyword (not analyzed), stored for display
	filenameField := bleve.NewTextFieldMapping()
	filenameField.Analyzer = keyword.Name
	filenameField.Store = true
	docMapping.AddFieldMappingsAt(domain.ChunkFieldFilename, filenameField)

	// Document id - keyword, stored
	docIDField := bleve.NewTextFieldMapping()
	docIDField.Analyzer = keyword.Name
	docIDField.Store = true
	docMapping.AddFieldMappingsAt(domain.ChunkFieldDocumentID, docIDField)

	// Ordinal - numeric, stored so results can cite chunk positions
	ordinalField := bleve.NewNumericFieldMapping()
	ordinalField.Store = true
	docMapping.AddFieldMappingsAt(domain.ChunkFieldOrdinal, ordinalField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// IndexPath returns the Bleve index directory inside outDir.
func IndexPath(outDir string) string {
	return filepath.Join(outDir, IndexDirName)
}

// MarkerPath returns the readiness marker path inside outDir.
func MarkerPath(outDir string) string {
	return filepath.Join(IndexPath(outDir), MarkerFilename)
}

// Build reads the chunk artifact at chunksPath and builds a fresh Bleve
// index under outDir. Returns the number of chunks indexed. The index
// directory must not already contain an index: document ids are minted
// fresh per ingestion, so a collision means a misconfigured caller.
func Build(chunksPath, outDir string) (count int, err error) {
	file, err := os.Open(chunksPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open chunk artifact: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	index, err := bleve.New(IndexPath(outDir), CreateIndexMapping())
	if err != nil {
		return 0, fmt.Errorf("failed to create index: %w", err)
	}
	defer func() {
		if cerr := index.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	batch := index.NewBatch()
	batchSize := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxChunkLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec domain.ChunkRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return count, fmt.Errorf("malformed chunk record at line %d: %w", count+1, err)
		}

		docID := fmt.Sprintf("%s-%d", rec.DocumentID, rec.Ordinal)
		if err := batch.Index(docID, rec); err != nil {
			return count, fmt.Errorf("failed to add chunk %d to batch: %w", rec.Ordinal, err)
		}
		batchSize++

		if batchSize >= MaxBatchSize {
			if err := index.Batch(batch); err != nil {
				return count, fmt.Errorf("batch index failed: %w", err)
			}
			count += batchSize
			batch = index.NewBatch()
			batchSize = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read chunk artifact: %w", err)
	}

	if batchSize > 0 {
		if err := index.Batch(batch); err != nil {
			return count, fmt.Errorf("final batch index failed: %w", err)
		}
		count += batchSize
	}

	if count == 0 {
		return 0, fmt.Errorf("chunk artifact %s contains no records", chunksPath)
	}

	return count, nil
}
