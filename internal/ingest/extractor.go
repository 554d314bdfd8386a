package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Extractor converts an uploaded document file into raw text.
type Extractor interface {
	// Extract returns the plain text of the document at path.
	Extract(ctx context.Context, path string) (string, error)
}

// CommandExecutor abstracts command execution for testing.
type CommandExecutor interface {
	// Run executes a command and returns its standard output.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor executes commands using os/exec.
type DefaultExecutor struct{}

// Run executes a command and returns its standard output.
func (e *DefaultExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Include stderr in error message for debugging
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// PDFExtractor extracts text from PDF files with the pdftotext tool.
type PDFExtractor struct {
	bin      string
	executor CommandExecutor
}

// NewPDFExtractor creates a PDFExtractor using the given binary name
// and the default command executor.
func NewPDFExtractor(bin string) *PDFExtractor {
	return NewPDFExtractorWithExecutor(bin, &DefaultExecutor{})
}

// NewPDFExtractorWithExecutor creates a PDFExtractor with a custom
// executor (for testing).
func NewPDFExtractorWithExecutor(bin string, executor CommandExecutor) *PDFExtractor {
	return &PDFExtractor{
		bin:      bin,
		executor: executor,
	}
}

// Extract runs pdftotext on the file and returns its stdout.
// "-" sends the extracted text to stdout instead of a sibling file.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	output, err := e.executor.Run(ctx, "", e.bin, "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(output), nil
}
