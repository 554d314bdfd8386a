package domain

import "time"

// Status describes where a document is in its indexing lifecycle.
type Status string

const (
	// StatusProcessing means the indexing job has been started but has not
	// finished yet. Every new document begins in this state.
	StatusProcessing Status = "processing"

	// StatusReady means the indexing job exited successfully and the
	// document can be queried.
	StatusReady Status = "ready"

	// StatusFailed means the indexing job exited with a non-zero code or
	// could not be launched. A failed document requires re-upload.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status is a final one. A document never
// moves back to processing once it reached a terminal status.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// DocumentRecord is the registry row for one ingested document.
// The ID is minted exactly once at ingestion time and namespaces every
// derived artifact (chunk file, index directory).
type DocumentRecord struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	UploadedAt  time.Time `json:"uploaded_at"`
	TotalChunks int       `json:"totalChunks"`
	Status      Status    `json:"status"`
}

// ChunkRecord is one overlapping text window of a document.
// It is the unit written to the per-document chunk artifact (one JSON
// object per line) and the unit the indexing executable stores.
type ChunkRecord struct {
	// Filename is the original upload filename, kept for display.
	Filename string `json:"filename"`

	// DocumentID is the owning document's identifier.
	DocumentID string `json:"pdf_id"`

	// Ordinal is the 1-based position of the window in the document.
	Ordinal int `json:"chunk"`

	// Text is the window content, tokens joined by single spaces.
	Text string `json:"text"`
}

// Bleve field name constants for consistent field references in mappings.
const (
	ChunkFieldFilename   = "filename"
	ChunkFieldDocumentID = "pdf_id"
	ChunkFieldOrdinal    = "chunk"
	ChunkFieldText       = "text"
)
