// Package supervise launches and observes external indexing jobs.
package supervise

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/studyassist/rag-server/internal/domain"
	"github.com/studyassist/rag-server/internal/registry"
)

// Supervisor runs one external indexing process per document and
// reports the outcome to the registry. Jobs execute on a bounded
// worker pool; scheduling never blocks the caller. A job is never
// retried: a failed document requires re-upload.
type Supervisor struct {
	store      registry.Store
	indexerBin string
	pool       *ants.Pool
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// New creates a supervisor executing at most maxParallel indexing
// processes at a time.
func New(store registry.Store, indexerBin string, maxParallel int) (*Supervisor, error) {
	pool, err := ants.NewPool(maxParallel)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &Supervisor{
		store:      store,
		indexerBin: indexerBin,
		pool:       pool,
		logger:     slog.Default(),
	}, nil
}

// Start schedules the indexing job for a document and returns
// immediately. The job's exit transitions the document to ready or
// failed through the registry; the transition is observable only via
// the status API.
func (s *Supervisor) Start(documentID, chunkPath, indexDir string) {
	s.wg.Add(1)
	// Submit blocks while the pool is saturated, so the hand-off runs
	// on its own goroutine to keep Start non-blocking.
	go func() {
		err := s.pool.Submit(func() {
			defer s.wg.Done()
			s.run(documentID, chunkPath, indexDir)
		})
		if err != nil {
			s.wg.Done()
			s.logger.Error("Failed to schedule indexing job", "doc_id", documentID, "error", err)
			s.setStatus(documentID, domain.StatusFailed)
		}
	}()
}

// run executes one indexing process to completion.
func (s *Supervisor) run(documentID, chunkPath, indexDir string) {
	cmd := exec.Command(s.indexerBin, "--chunks", chunkPath, "--out", indexDir)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.logger.Error("Failed to attach stdout", "doc_id", documentID, "error", err)
		s.setStatus(documentID, domain.StatusFailed)
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.logger.Error("Failed to attach stderr", "doc_id", documentID, "error", err)
		s.setStatus(documentID, domain.StatusFailed)
		return
	}

	if err := cmd.Start(); err != nil {
		s.logger.Error("Failed to launch indexing process", "doc_id", documentID, "bin", s.indexerBin, "error", err)
		s.setStatus(documentID, domain.StatusFailed)
		return
	}

	s.logger.Info("Indexing job started", "doc_id", documentID, "pid", cmd.Process.Pid)

	// Both streams must be drained before Wait closes the pipes.
	var streams sync.WaitGroup
	streams.Add(2)
	go func() {
		defer streams.Done()
		s.forward(stdout, slog.LevelInfo, documentID)
	}()
	go func() {
		defer streams.Done()
		s.forward(stderr, slog.LevelError, documentID)
	}()
	streams.Wait()

	if err := cmd.Wait(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		s.logger.Error("Indexing job failed", "doc_id", documentID, "exit_code", exitCode, "error", err)
		s.setStatus(documentID, domain.StatusFailed)
		return
	}

	s.logger.Info("Indexing job completed", "doc_id", documentID)
	s.setStatus(documentID, domain.StatusReady)
}

// forward copies process output lines to the log, tagged by document.
func (s *Supervisor) forward(r io.Reader, level slog.Level, documentID string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.logger.Log(context.Background(), level, "indexer: "+scanner.Text(), "doc_id", documentID)
	}
}

// setStatus requests a status transition through the registry. The
// document may have been deleted while the job ran; that makes the
// transition a no-op, which is fine.
func (s *Supervisor) setStatus(documentID string, status domain.Status) {
	if err := s.store.SetStatus(documentID, status); err != nil {
		s.logger.Error("Failed to record job outcome", "doc_id", documentID, "status", status, "error", err)
	}
}

// Wait blocks until every scheduled job has finished. Intended for
// tests and shutdown paths.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Close releases the worker pool. In-flight external processes are not
// cancelled; their completion callbacks become no-ops if the documents
// are gone.
func (s *Supervisor) Close() {
	s.pool.Release()
}
