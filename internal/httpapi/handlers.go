// Package httpapi exposes the ingestion, status and query operations
// over HTTP with JSON bodies.
package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/studyassist/rag-server/internal/domain"
	"github.com/studyassist/rag-server/internal/ingest"
	"github.com/studyassist/rag-server/internal/query"
	"github.com/studyassist/rag-server/internal/registry"
)

// uploadField is the multipart form field carrying the document.
const uploadField = "pdf"

// maxUploadBytes bounds the in-memory part of multipart parsing.
const maxUploadBytes = 64 << 20 // 64MB

// API wires the core services to HTTP routes.
type API struct {
	ingest      *ingest.Service
	store       registry.Store
	coordinator *query.Coordinator
	logger      *slog.Logger
}

// New creates the HTTP API over the given services.
func New(ingestSvc *ingest.Service, store registry.Store, coordinator *query.Coordinator) *API {
	return &API{
		ingest:      ingestSvc,
		store:       store,
		coordinator: coordinator,
		logger:      slog.Default(),
	}
}

// Routes returns the request mux for the API.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("POST /upload", a.handleUpload)
	mux.HandleFunc("POST /ask", a.handleAsk)
	mux.HandleFunc("GET /index_status/{id}", a.handleStatus)
	mux.HandleFunc("GET /pdfs", a.handleList)
	mux.HandleFunc("DELETE /pdf/{id}", a.handleDelete)
	return mux
}

func (a *API) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Study assistant backend is running"))
}

// uploadResponse acknowledges an ingestion before indexing completes.
type uploadResponse struct {
	Message     string `json:"message"`
	DocumentID  string `json:"pdf_id"`
	Filename    string `json:"filename"`
	TotalChunks int    `json:"totalChunks"`
	Preview     string `json:"preview"`
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "no_file", "a multipart file upload is required")
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no_file", "a file field named 'pdf' is required")
		return
	}
	defer func() { _ = file.Close() }()

	tmpPath, err := a.saveUpload(file, header.Filename)
	if err != nil {
		a.logger.Error("Failed to persist upload", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed", "could not store the uploaded file")
		return
	}

	result, err := a.ingest.Ingest(r.Context(), tmpPath, header.Filename)
	if err != nil {
		a.logger.Error("Ingestion failed", "filename", header.Filename, "error", err)
		switch {
		case errors.Is(err, ingest.ErrNoExtractableText):
			writeError(w, http.StatusBadRequest, "no_extractable_text", "the document contains no extractable text")
		case errors.Is(err, ingest.ErrExtractionFailed):
			writeError(w, http.StatusInternalServerError, "extraction_failed", "could not extract text from the document")
		case errors.Is(err, ingest.ErrStorageFailed):
			writeError(w, http.StatusInternalServerError, "storage_failed", "could not store document artifacts")
		default:
			writeError(w, http.StatusInternalServerError, "internal", "ingestion failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:     "PDF uploaded, chunked & queued for indexing",
		DocumentID:  result.DocumentID,
		Filename:    result.Filename,
		TotalChunks: result.TotalChunks,
		Preview:     result.Preview,
	})
}

// saveUpload copies the uploaded file into the uploads directory and
// returns its path. The ingestion service removes it when done.
func (a *API) saveUpload(file io.Reader, originalName string) (string, error) {
	dir := a.ingest.Layout().UploadsDir()
	tmp, err := os.CreateTemp(dir, "upload-*"+filepath.Ext(originalName))
	if err != nil {
		return "", err
	}
	defer func() { _ = tmp.Close() }()

	if _, err := io.Copy(tmp, file); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// askRequest is the client-facing question payload.
type askRequest struct {
	Question   string  `json:"question"`
	DocumentID *string `json:"pdf_id"`
	TopK       int     `json:"top_k"`
}

func (a *API) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "request body must be valid JSON")
		return
	}

	answer, err := a.coordinator.Ask(r.Context(), req.Question, req.DocumentID, req.TopK)
	if err != nil {
		a.logger.Error("Question forwarding failed", "error", err)
		var upstream *query.UpstreamError
		switch {
		case errors.Is(err, query.ErrEmptyQuestion):
			writeError(w, http.StatusBadRequest, "empty_question", "question is required")
		case errors.Is(err, query.ErrUnknownDocument):
			writeError(w, http.StatusNotFound, "unknown_document", "no document with the given pdf_id")
		case errors.Is(err, query.ErrUpstreamTimeout):
			writeError(w, http.StatusGatewayTimeout, "upstream_timeout", "the retrieval service did not answer in time")
		case errors.As(err, &upstream):
			msg := upstream.Detail
			if msg == "" {
				msg = "the retrieval service rejected the request"
			}
			writeError(w, upstream.StatusCode, "upstream_error", msg)
		case errors.Is(err, query.ErrUpstreamUnreachable):
			writeError(w, http.StatusInternalServerError, "upstream_unreachable", "the retrieval service is unreachable")
		default:
			writeError(w, http.StatusInternalServerError, "internal", "failed to answer the question")
		}
		return
	}

	if answer.Sources == nil {
		answer.Sources = []string{}
	}
	writeJSON(w, http.StatusOK, answer)
}

// statusResponse reports readiness for a document. Ready is computed
// from the on-disk marker; the registry status is informational and
// defaults to processing when no record exists.
type statusResponse struct {
	Ready       bool          `json:"ready"`
	Status      domain.Status `json:"status"`
	Filename    string        `json:"filename"`
	TotalChunks int           `json:"totalChunks"`
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	resp := statusResponse{
		Ready:  a.ingest.Layout().IndexReady(id),
		Status: domain.StatusProcessing,
	}

	rec, err := a.store.Get(id)
	switch {
	case err == nil:
		resp.Status = rec.Status
		resp.Filename = rec.Filename
		resp.TotalChunks = rec.TotalChunks
	case errors.Is(err, registry.ErrNotFound):
		// Registry loss tolerated: the marker stays authoritative.
	default:
		a.logger.Error("Status lookup failed", "doc_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "status lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// listResponse wraps the full registry listing.
type listResponse struct {
	PDFs []domain.DocumentRecord `json:"pdfs"`
}

func (a *API) handleList(w http.ResponseWriter, _ *http.Request) {
	records, err := a.store.List()
	if err != nil {
		a.logger.Error("Listing documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "could not list documents")
		return
	}
	if records == nil {
		records = []domain.DocumentRecord{}
	}
	writeJSON(w, http.StatusOK, listResponse{PDFs: records})
}

func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := a.ingest.Delete(id); err != nil {
		a.logger.Error("Delete failed", "doc_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "could not delete the document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "document deleted"})
}
