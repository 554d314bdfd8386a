package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/studyassist/rag-server/internal/domain"
	"github.com/studyassist/rag-server/internal/indexer"
)

// Layout maps document identifiers to on-disk artifact paths. Every
// artifact is namespaced by the document id, so concurrent ingestions
// never share a path.
type Layout struct {
	BaseDir string
}

// UploadsDir returns the directory for temporary upload files.
func (l Layout) UploadsDir() string {
	return filepath.Join(l.BaseDir, "uploads")
}

// ChunksDir returns the directory holding chunk artifacts.
func (l Layout) ChunksDir() string {
	return filepath.Join(l.BaseDir, "chunks")
}

// IndexesDir returns the directory holding index output directories.
func (l Layout) IndexesDir() string {
	return filepath.Join(l.BaseDir, "indexes")
}

// ChunkFile returns the chunk artifact path for a document.
func (l Layout) ChunkFile(documentID string) string {
	return filepath.Join(l.ChunksDir(), documentID+".jsonl")
}

// IndexDir returns the index output directory for a document.
func (l Layout) IndexDir(documentID string) string {
	return filepath.Join(l.IndexesDir(), documentID)
}

// MarkerPath returns the readiness marker path for a document.
func (l Layout) MarkerPath(documentID string) string {
	return indexer.MarkerPath(l.IndexDir(documentID))
}

// EnsureDirs creates the shared base directories.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.UploadsDir(), l.ChunksDir(), l.IndexesDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// IndexReady reports whether the readiness marker exists for a
// document. The marker on disk is the ground truth for readiness,
// independent of the in-memory registry status.
func (l Layout) IndexReady(documentID string) bool {
	_, err := os.Stat(l.MarkerPath(documentID))
	return err == nil
}

// WriteChunks writes the chunk artifact for a document: one JSON
// record per line, one per text window, ordinals starting at 1.
func (l Layout) WriteChunks(documentID, filename string, windows []string) error {
	file, err := os.Create(l.ChunkFile(documentID))
	if err != nil {
		return fmt.Errorf("failed to create chunk artifact: %w", err)
	}
	defer func() { _ = file.Close() }()

	enc := json.NewEncoder(file)
	for i, text := range windows {
		rec := domain.ChunkRecord{
			Filename:   filename,
			DocumentID: documentID,
			Ordinal:    i + 1,
			Text:       text,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write chunk %d: %w", i+1, err)
		}
	}

	return file.Sync()
}

// RemoveArtifacts deletes the chunk artifact and index directory for a
// document. Absent paths are not errors; a delete may race with an
// in-flight indexing job or follow a registry-only failure.
func (l Layout) RemoveArtifacts(documentID string) error {
	if err := os.Remove(l.ChunkFile(documentID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove chunk artifact: %w", err)
	}
	if err := os.RemoveAll(l.IndexDir(documentID)); err != nil {
		return fmt.Errorf("failed to remove index directory: %w", err)
	}
	return nil
}
