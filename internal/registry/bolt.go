package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/studyassist/rag-server/internal/domain"
	"go.etcd.io/bbolt"
)

var bucketDocuments = []byte("documents")

// BoltStore is a bbolt-backed Store for deployments that want the
// registry to survive restarts. Status transitions are applied inside
// a read-modify-write transaction so the processing→terminal move
// stays exactly-once even across concurrent callers.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the registry database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create documents bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Create mints a fresh identifier and persists a processing record.
func (s *BoltStore) Create(filename string, totalChunks int) (domain.DocumentRecord, error) {
	rec := domain.DocumentRecord{
		ID:          uuid.New().String(),
		Filename:    filename,
		UploadedAt:  time.Now().UTC(),
		TotalChunks: totalChunks,
		Status:      domain.StatusProcessing,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return domain.DocumentRecord{}, err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Put([]byte(rec.ID), data)
	})
	if err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("failed to persist document record: %w", err)
	}
	return rec, nil
}

// Get returns the record for id, or ErrNotFound.
func (s *BoltStore) Get(id string) (domain.DocumentRecord, error) {
	var rec domain.DocumentRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return domain.DocumentRecord{}, err
	}
	return rec, nil
}

// List returns all records ordered by upload time. For a single server
// instance this matches insertion order.
func (s *BoltStore) List() ([]domain.DocumentRecord, error) {
	var records []domain.DocumentRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(_, data []byte) error {
			var rec domain.DocumentRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].UploadedAt.Equal(records[j].UploadedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].UploadedAt.Before(records[j].UploadedAt)
	})
	return records, nil
}

// SetStatus transitions id out of processing using a conditional
// update: absent ids and terminal records are left untouched.
func (s *BoltStore) SetStatus(id string, status domain.Status) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketDocuments)
		data := bucket.Get([]byte(id))
		if data == nil {
			return nil
		}

		var rec domain.DocumentRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if rec.Status.Terminal() {
			return nil
		}

		rec.Status = status
		updated, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), updated)
	})
}

// Delete removes the record for id. Absent ids are not an error.
func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Delete([]byte(id))
	})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
