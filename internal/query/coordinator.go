// Package query forwards questions to the external retrieval/LLM
// service on behalf of clients.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/studyassist/rag-server/internal/registry"
)

var (
	// ErrEmptyQuestion is returned when the question is missing or
	// blank after trimming.
	ErrEmptyQuestion = errors.New("question is required")

	// ErrUnknownDocument is returned when a document scope is supplied
	// but no such document exists in the registry.
	ErrUnknownDocument = errors.New("unknown document")

	// ErrUpstreamTimeout is returned when the retrieval service did
	// not answer within the configured timeout.
	ErrUpstreamTimeout = errors.New("retrieval service timed out")

	// ErrUpstreamUnreachable is returned on network-level failures.
	ErrUpstreamUnreachable = errors.New("retrieval service unreachable")
)

// UpstreamError carries a non-success response from the retrieval
// service, including its own error detail when it provided one.
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("retrieval service returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("retrieval service returned %d", e.StatusCode)
}

// Answer is the result of a forwarded question.
type Answer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	PDFName  *string  `json:"pdf_name"`
}

// askRequest is the wire payload sent to the retrieval service.
type askRequest struct {
	Question   string  `json:"question"`
	TopK       int     `json:"top_k"`
	DocumentID *string `json:"pdf_id,omitempty"`
}

// askResponse is the wire payload returned by the retrieval service.
type askResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// upstreamDetail covers the error body shapes the retrieval service
// is known to produce.
type upstreamDetail struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// Coordinator validates questions and issues a single bounded call to
// the retrieval service. There is no retry: an LLM call is expensive
// and not guaranteed idempotent.
type Coordinator struct {
	baseURL     string
	store       registry.Store
	client      *http.Client
	timeout     time.Duration
	defaultTopK int
}

// New creates a Coordinator for the retrieval service at baseURL.
func New(baseURL string, store registry.Store, timeout time.Duration, defaultTopK int) *Coordinator {
	return &Coordinator{
		baseURL:     strings.TrimRight(baseURL, "/"),
		store:       store,
		client:      &http.Client{},
		timeout:     timeout,
		defaultTopK: defaultTopK,
	}
}

// Ask validates the question and document scope, then forwards the
// question to the retrieval service. documentID may be nil for an
// unscoped question; topK <= 0 selects the configured default.
func (c *Coordinator) Ask(ctx context.Context, question string, documentID *string, topK int) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	var pdfName *string
	if documentID != nil && *documentID != "" {
		rec, err := c.store.Get(*documentID)
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return Answer{}, fmt.Errorf("%w: %s", ErrUnknownDocument, *documentID)
			}
			return Answer{}, err
		}
		pdfName = &rec.Filename
	} else {
		documentID = nil
	}

	if topK <= 0 {
		topK = c.defaultTopK
	}

	payload, err := json.Marshal(askRequest{
		Question:   question,
		TopK:       topK,
		DocumentID: documentID,
	})
	if err != nil {
		return Answer{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask_llm", bytes.NewReader(payload))
	if err != nil {
		return Answer{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Answer{}, fmt.Errorf("%w after %s", ErrUpstreamTimeout, c.timeout)
		}
		return Answer{}, fmt.Errorf("%w: %s", ErrUpstreamUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %s", ErrUpstreamUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail upstreamDetail
		_ = json.Unmarshal(body, &detail)
		msg := detail.Detail
		if msg == "" {
			msg = detail.Error
		}
		return Answer{}, &UpstreamError{StatusCode: resp.StatusCode, Detail: msg}
	}

	var decoded askResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Answer{}, fmt.Errorf("malformed retrieval response: %w", err)
	}

	return Answer{
		Question: question,
		Answer:   decoded.Answer,
		Sources:  decoded.Sources,
		PDFName:  pdfName,
	}, nil
}
