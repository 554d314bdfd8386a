package ingest

import "errors"

var (
	// ErrNoFile is returned when an upload carries no file payload.
	ErrNoFile = errors.New("no file uploaded")

	// ErrNoExtractableText is returned when extraction succeeds but
	// yields empty or whitespace-only text.
	ErrNoExtractableText = errors.New("document contains no extractable text")

	// ErrExtractionFailed is returned when the text extractor fails.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrStorageFailed is returned when artifact directories or files
	// cannot be created.
	ErrStorageFailed = errors.New("failed to store document artifacts")
)
