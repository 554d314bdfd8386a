package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/studyassist/rag-server/internal/app"
	"github.com/studyassist/rag-server/internal/config"
	"github.com/studyassist/rag-server/internal/domain"
	mcputil "github.com/studyassist/rag-server/internal/mcp"
)

// writeStubScript writes an executable shell script used in place of
// the real extractor or indexer binary.
func writeStubScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write stub script %s: %v", name, err)
	}
	return path
}

// stubExtractor prints fixed text regardless of the input file, like
// pdftotext writing to stdout.
func stubExtractor(t *testing.T, text string) string {
	t.Helper()
	return writeStubScript(t, "stub-pdftotext", `echo "`+text+`"`)
}

// stubIndexer mimics the indexing binary: it receives
// --chunks <path> --out <dir> and drops the readiness marker.
func stubIndexer(t *testing.T) string {
	t.Helper()
	return writeStubScript(t, "stub-indexer",
		`mkdir -p "$4/index.bleve" && echo "{}" > "$4/index.bleve/index_meta.json" && echo "indexed"`)
}

// failingIndexer exits non-zero without producing a marker.
func failingIndexer(t *testing.T) string {
	t.Helper()
	return writeStubScript(t, "stub-indexer-fail", `echo "chunk file unreadable" >&2; exit 3`)
}

func pipelineSettings(t *testing.T, extractorBin, indexerBin, retrievalURL string) *config.Settings {
	t.Helper()
	return &config.Settings{
		Transport: config.TransportHTTP,
		Host:      "localhost",
		Port:      0,
		Ingest: config.IngestSettings{
			BaseDir:       t.TempDir(),
			ChunkSize:     500,
			ChunkOverlap:  50,
			PreviewLength: 300,
			ExtractorBin:  extractorBin,
		},
		Indexing: config.IndexingSettings{
			IndexerBin:      indexerBin,
			MaxParallelJobs: 2,
		},
		Retrieval: config.RetrievalSettings{
			URL:         retrievalURL,
			Timeout:     5 * time.Second,
			DefaultTopK: 3,
		},
		Registry: config.RegistrySettings{
			Backend: config.RegistryBackendMemory,
		},
	}
}

func uploadPDF(t *testing.T, handler http.Handler, filename string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("pdf", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 fake content")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Upload status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Upload response is not JSON: %v", err)
	}
	return resp
}

func getStatus(t *testing.T, handler http.Handler, id string) map[string]any {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/index_status/"+id, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Status endpoint = %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Status response is not JSON: %v", err)
	}
	return resp
}

func TestPipeline_UploadIndexAndStatus(t *testing.T) {
	settings := pipelineSettings(t,
		stubExtractor(t, "the krebs cycle produces ATP inside the mitochondria of every cell"),
		stubIndexer(t),
		"http://127.0.0.1:0")

	services, cleanup, err := app.BuildServices(settings)
	if err != nil {
		t.Fatalf("BuildServices failed: %v", err)
	}
	defer cleanup()

	handler := app.NewHTTPServer(services, settings).Handler

	resp := uploadPDF(t, handler, "biology.pdf")
	id, _ := resp["pdf_id"].(string)
	if id == "" {
		t.Fatal("Upload did not return a pdf_id")
	}
	if resp["totalChunks"] != float64(1) {
		t.Errorf("totalChunks = %v, want 1", resp["totalChunks"])
	}

	// Let the indexing job finish, then the marker must drive readiness.
	services.Supervisor.Wait()

	status := getStatus(t, handler, id)
	if status["ready"] != true {
		t.Errorf("ready = %v, want true after indexing", status["ready"])
	}
	if status["status"] != string(domain.StatusReady) {
		t.Errorf("status = %v, want ready", status["status"])
	}

	// The chunk artifact must exist as JSONL next to the index.
	chunkPath := services.Layout.ChunkFile(id)
	data, err := os.ReadFile(chunkPath)
	if err != nil {
		t.Fatalf("Chunk artifact missing: %v", err)
	}
	var rec domain.ChunkRecord
	firstLine := strings.SplitN(string(data), "\n", 2)[0]
	if err := json.Unmarshal([]byte(firstLine), &rec); err != nil {
		t.Fatalf("Chunk artifact is not JSONL: %v", err)
	}
	if rec.DocumentID != id || rec.Ordinal != 1 {
		t.Errorf("Chunk record = %+v", rec)
	}
	if !strings.Contains(rec.Text, "krebs") {
		t.Errorf("Chunk text missing extracted content: %q", rec.Text)
	}
}

func TestPipeline_FailedIndexingMarksFailed(t *testing.T) {
	settings := pipelineSettings(t,
		stubExtractor(t, "some extractable text"),
		failingIndexer(t),
		"http://127.0.0.1:0")

	services, cleanup, err := app.BuildServices(settings)
	if err != nil {
		t.Fatalf("BuildServices failed: %v", err)
	}
	defer cleanup()

	handler := app.NewHTTPServer(services, settings).Handler

	resp := uploadPDF(t, handler, "broken.pdf")
	id := resp["pdf_id"].(string)

	services.Supervisor.Wait()

	status := getStatus(t, handler, id)
	if status["ready"] != false {
		t.Errorf("ready = %v, want false after failed indexing", status["ready"])
	}
	if status["status"] != string(domain.StatusFailed) {
		t.Errorf("status = %v, want failed", status["status"])
	}
}

func TestPipeline_DeleteRemovesDocumentAndArtifacts(t *testing.T) {
	settings := pipelineSettings(t,
		stubExtractor(t, "text to delete"),
		stubIndexer(t),
		"http://127.0.0.1:0")

	services, cleanup, err := app.BuildServices(settings)
	if err != nil {
		t.Fatalf("BuildServices failed: %v", err)
	}
	defer cleanup()

	handler := app.NewHTTPServer(services, settings).Handler

	resp := uploadPDF(t, handler, "temp.pdf")
	id := resp["pdf_id"].(string)
	services.Supervisor.Wait()

	req := httptest.NewRequest(http.MethodDelete, "/pdf/"+id, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Delete status = %d", rr.Code)
	}

	// Registry row and artifacts are gone, so readiness drops.
	status := getStatus(t, handler, id)
	if status["ready"] != false {
		t.Error("Deleted document should not be ready")
	}
	if _, err := os.Stat(services.Layout.ChunkFile(id)); !os.IsNotExist(err) {
		t.Error("Chunk artifact should be removed")
	}
	if _, err := os.Stat(services.Layout.IndexDir(id)); !os.IsNotExist(err) {
		t.Error("Index directory should be removed")
	}

	// List no longer contains the document.
	req = httptest.NewRequest(http.MethodGet, "/pdfs", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if !bytes.Contains(rr.Body.Bytes(), []byte(`"pdfs":[]`)) {
		t.Errorf("Expected empty listing, got %s", rr.Body.String())
	}
}

func TestPipeline_AskFlowsThroughRetrievalService(t *testing.T) {
	var forwarded map[string]any
	retrieval := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ask_llm" {
			t.Errorf("Path = %q, want /ask_llm", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&forwarded)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"answer":  "ATP is produced in the mitochondria.",
			"sources": []string{"the krebs cycle produces ATP"},
		})
	}))
	defer retrieval.Close()

	settings := pipelineSettings(t,
		stubExtractor(t, "the krebs cycle produces ATP"),
		stubIndexer(t),
		retrieval.URL)

	services, cleanup, err := app.BuildServices(settings)
	if err != nil {
		t.Fatalf("BuildServices failed: %v", err)
	}
	defer cleanup()

	handler := app.NewHTTPServer(services, settings).Handler

	resp := uploadPDF(t, handler, "biology.pdf")
	id := resp["pdf_id"].(string)
	services.Supervisor.Wait()

	body, _ := json.Marshal(map[string]any{
		"question": "where is ATP produced?",
		"pdf_id":   id,
		"top_k":    2,
	})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Ask status = %d, body %s", rr.Code, rr.Body.String())
	}

	var answer map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &answer); err != nil {
		t.Fatalf("Ask response is not JSON: %v", err)
	}
	if answer["answer"] != "ATP is produced in the mitochondria." {
		t.Errorf("answer = %v", answer["answer"])
	}
	if answer["pdf_name"] != "biology.pdf" {
		t.Errorf("pdf_name = %v, want biology.pdf", answer["pdf_name"])
	}

	if forwarded["pdf_id"] != id {
		t.Errorf("Forwarded pdf_id = %v, want %s", forwarded["pdf_id"], id)
	}
	if forwarded["top_k"] != float64(2) {
		t.Errorf("Forwarded top_k = %v, want 2", forwarded["top_k"])
	}
}

func TestMCPServer_StatusToolSeesPipelineResults(t *testing.T) {
	settings := pipelineSettings(t,
		stubExtractor(t, "content for the mcp tools"),
		stubIndexer(t),
		"http://127.0.0.1:0")

	services, cleanup, err := app.BuildServices(settings)
	if err != nil {
		t.Fatalf("BuildServices failed: %v", err)
	}
	defer cleanup()

	handler := app.NewHTTPServer(services, settings).Handler
	resp := uploadPDF(t, handler, "notes.pdf")
	id := resp["pdf_id"].(string)
	services.Supervisor.Wait()

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:        "test-server",
		Version:     "1.0.0",
		Coordinator: services.Coordinator,
		Store:       services.Store,
		Layout:      services.Layout,
	})
	if server == nil {
		t.Fatal("Expected MCP server to be created")
	}

	statusHandler := mcputil.NewStatusHandler(services.Store, services.Layout)
	result, _, err := statusHandler.Handle(context.Background(), &mcp.CallToolRequest{}, mcputil.StatusArgument{PDFID: id})
	if err != nil {
		t.Fatalf("Status tool failed: %v", err)
	}
	text := extractTextContent(result)
	if !strings.Contains(text, "ready for questions") {
		t.Errorf("Expected ready report, got: %s", text)
	}
	if !strings.Contains(text, "notes.pdf") {
		t.Errorf("Expected filename in report, got: %s", text)
	}

	listHandler := mcputil.NewListHandler(services.Store)
	result, _, err = listHandler.Handle(context.Background(), &mcp.CallToolRequest{}, mcputil.ListArgument{})
	if err != nil {
		t.Fatalf("List tool failed: %v", err)
	}
	if !strings.Contains(extractTextContent(result), id) {
		t.Errorf("List tool should include the document id")
	}
}

// extractTextContent extracts text from MCP result
func extractTextContent(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
