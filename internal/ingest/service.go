package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/studyassist/rag-server/internal/registry"
	"github.com/studyassist/rag-server/internal/segment"
)

// JobStarter launches the asynchronous indexing job for a document.
// It must return without waiting for the job to finish.
type JobStarter interface {
	Start(documentID, chunkPath, indexDir string)
}

// Result is the immediate acknowledgement returned by Ingest, before
// indexing completes.
type Result struct {
	DocumentID  string
	Filename    string
	TotalChunks int
	Preview     string
}

// Service is the ingestion orchestrator: it extracts text, segments it
// into overlapping windows, persists the chunk artifact, registers the
// document and hands the indexing job to the supervisor.
type Service struct {
	layout        Layout
	extractor     Extractor
	store         registry.Store
	jobs          JobStarter
	chunkSize     int
	chunkOverlap  int
	previewLength int
	logger        *slog.Logger
}

// NewService creates an ingestion service. The layout's base
// directories are created eagerly so the first upload does not race
// directory creation.
func NewService(layout Layout, extractor Extractor, store registry.Store, jobs JobStarter, chunkSize, chunkOverlap, previewLength int) (*Service, error) {
	if err := layout.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStorageFailed, err)
	}

	return &Service{
		layout:        layout,
		extractor:     extractor,
		store:         store,
		jobs:          jobs,
		chunkSize:     chunkSize,
		chunkOverlap:  chunkOverlap,
		previewLength: previewLength,
		logger:        slog.Default(),
	}, nil
}

// Layout returns the artifact layout the service writes into.
func (s *Service) Layout() Layout {
	return s.layout
}

// Ingest processes an uploaded file: extract, segment, persist, start
// the indexing job. It returns as soon as the job is handed off; the
// indexing outcome is observable only through the status API.
//
// The uploaded temporary file at uploadPath is removed best-effort on
// success.
func (s *Service) Ingest(ctx context.Context, uploadPath, originalFilename string) (Result, error) {
	text, err := s.extractor.Extract(ctx, uploadPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrExtractionFailed, err)
	}

	windows, err := segment.Split(text, s.chunkSize, s.chunkOverlap)
	if err != nil {
		// Chunking configuration is validated at startup, so this
		// indicates a programming error rather than bad input.
		return Result{}, err
	}
	if len(windows) == 0 {
		return Result{}, ErrNoExtractableText
	}

	// The registry mints the identifier that namespaces all artifacts.
	rec, err := s.store.Create(originalFilename, len(windows))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrStorageFailed, err)
	}

	if err := os.MkdirAll(s.layout.IndexDir(rec.ID), 0755); err != nil {
		s.abortIngest(rec.ID)
		return Result{}, fmt.Errorf("%w: %s", ErrStorageFailed, err)
	}
	if err := s.layout.WriteChunks(rec.ID, originalFilename, windows); err != nil {
		s.abortIngest(rec.ID)
		return Result{}, fmt.Errorf("%w: %s", ErrStorageFailed, err)
	}

	s.jobs.Start(rec.ID, s.layout.ChunkFile(rec.ID), s.layout.IndexDir(rec.ID))

	if err := os.Remove(uploadPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove uploaded temp file", "path", uploadPath, "error", err)
	}

	s.logger.Info("Document ingested",
		"doc_id", rec.ID,
		"filename", originalFilename,
		"total_chunks", len(windows))

	return Result{
		DocumentID:  rec.ID,
		Filename:    originalFilename,
		TotalChunks: len(windows),
		Preview:     truncate(windows[0], s.previewLength),
	}, nil
}

// abortIngest removes the registry row for a failed ingestion so no
// partial state stays referenced. Orphaned empty artifact directories
// are left behind deliberately; they are unreachable without a row.
func (s *Service) abortIngest(documentID string) {
	if err := s.store.Delete(documentID); err != nil {
		s.logger.Error("Failed to remove registry entry after storage failure", "doc_id", documentID, "error", err)
	}
}

// Delete removes a document's registry row and on-disk artifacts.
// Deleting an unknown id is not an error.
func (s *Service) Delete(documentID string) error {
	if err := s.store.Delete(documentID); err != nil {
		return err
	}
	return s.layout.RemoveArtifacts(documentID)
}

// truncate limits s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
