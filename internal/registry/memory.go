package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/studyassist/rag-server/internal/domain"
)

// MemoryStore is the reference Store implementation backed by a
// mutex-guarded map. State does not survive a restart; the status API
// treats on-disk artifacts as ground truth for exactly that reason.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]domain.DocumentRecord
	order []string
}

// NewMemoryStore creates an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]domain.DocumentRecord),
	}
}

// Create mints a fresh identifier and inserts a processing record.
func (s *MemoryStore) Create(filename string, totalChunks int) (domain.DocumentRecord, error) {
	rec := domain.DocumentRecord{
		ID:          uuid.New().String(),
		Filename:    filename,
		UploadedAt:  time.Now().UTC(),
		TotalChunks: totalChunks,
		Status:      domain.StatusProcessing,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	return rec, nil
}

// Get returns the record for id, or ErrNotFound.
func (s *MemoryStore) Get(id string) (domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[id]
	if !ok {
		return domain.DocumentRecord{}, ErrNotFound
	}
	return rec, nil
}

// List returns all records in insertion (upload) order.
func (s *MemoryStore) List() ([]domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.DocumentRecord, 0, len(s.order))
	for _, id := range s.order {
		if rec, ok := s.docs[id]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// SetStatus transitions id out of processing. Absent ids and records
// already in a terminal status are left untouched.
func (s *MemoryStore) SetStatus(id string, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.docs[id]
	if !ok || rec.Status.Terminal() {
		return nil
	}
	rec.Status = status
	s.docs[id] = rec
	return nil
}

// Delete removes the record for id. Absent ids are not an error.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return nil
	}
	delete(s.docs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
