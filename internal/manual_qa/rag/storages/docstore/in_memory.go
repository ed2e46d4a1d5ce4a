// Package docstore provides an in-memory DocumentStore for tests and for
// single-node deployments that do not need MySQL.
package docstore

import (
	"context"
	"sort"
	"sync"

	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/internal/manual_qa/rag/ragerr"
	"manualqa/internal/models"
)

// InMemoryStore keeps documents, chunks and query records in process memory.
// All operations copy on the way in and out, so callers can mutate what they
// hold without racing the store.
type InMemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]*models.Document
	records map[string][]*models.QueryRecord // keyed by document ID
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		docs:    make(map[string]*models.Document),
		records: make(map[string][]*models.QueryRecord),
	}
}

// CreateDocumentWithChunks stores the document and its chunks as one unit.
func (s *InMemoryStore) CreateDocumentWithChunks(ctx context.Context, doc *models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneDocument(doc)
	s.docs[cp.ID] = cp
	return nil
}

// GetDocument returns the document with its chunks ordered by position, or
// (nil, nil) when it does not exist.
func (s *InMemoryStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	return cloneDocument(doc), nil
}

// ListDocuments returns all documents without their chunks, newest upload
// first.
func (s *InMemoryStore) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		cp := cloneDocument(doc)
		cp.Chunks = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteDocument removes the document, its chunks and its query records.
func (s *InMemoryStore) DeleteDocument(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ragerr.ErrDocumentNotFound
	}
	delete(s.docs, id)
	delete(s.records, id)
	return nil
}

// CreateQueryRecord appends a record under its document.
func (s *InMemoryStore) CreateQueryRecord(ctx context.Context, rec *models.QueryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	cp.Evidence = append([]models.Chunk(nil), rec.Evidence...)
	s.records[rec.DocumentID] = append(s.records[rec.DocumentID], &cp)
	return nil
}

// QueryRecords returns the stored records for a document, oldest first. Not
// part of the DocumentStore contract; used by tests to assert persistence.
func (s *InMemoryStore) QueryRecords(documentID string) []*models.QueryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.records[documentID]
	out := make([]*models.QueryRecord, len(recs))
	copy(out, recs)
	return out
}

func cloneDocument(doc *models.Document) *models.Document {
	cp := *doc
	cp.Chunks = append([]models.Chunk(nil), doc.Chunks...)
	sort.SliceStable(cp.Chunks, func(i, j int) bool {
		return cp.Chunks[i].Position < cp.Chunks[j].Position
	})
	return &cp
}

var _ interfaces.DocumentStore = (*InMemoryStore)(nil)
