// Package registry tracks the metadata lifecycle of ingested documents.
package registry

import (
	"errors"

	"github.com/studyassist/rag-server/internal/domain"
)

// ErrNotFound is returned by Get when no record exists for an id.
var ErrNotFound = errors.New("document not found")

// Store is the document registry. Implementations must be safe for
// concurrent use: uploads, supervisor completion callbacks and
// status/list/delete requests all touch the store at the same time.
//
// SetStatus and Delete on an absent id are no-ops, not errors, because
// a supervisor completion may race with a delete.
type Store interface {
	// Create mints a fresh identifier and inserts a record with
	// status processing and the current time as upload timestamp.
	Create(filename string, totalChunks int) (domain.DocumentRecord, error)

	// Get returns the record for id, or ErrNotFound.
	Get(id string) (domain.DocumentRecord, error)

	// List returns all records in upload order.
	List() ([]domain.DocumentRecord, error)

	// SetStatus transitions a record out of processing. Once a record
	// is ready or failed it stays there; later calls are ignored.
	SetStatus(id string, status domain.Status) error

	// Delete removes the record for id.
	Delete(id string) error

	// Close releases any resources held by the store.
	Close() error
}
