package repository

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

// MemoryStore keeps documents in process memory. Used for local runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]models.Record
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]models.Record)}
}

// ExistingIDs implements DocumentStore.
func (s *MemoryStore) ExistingIDs(ctx context.Context, collection string, ids []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing := make(map[string]struct{})
	docs := s.collections[collection]
	for _, id := range ids {
		if _, ok := docs[id]; ok {
			existing[id] = struct{}{}
		}
	}
	return existing, nil
}

// CommitBatch implements DocumentStore.
func (s *MemoryStore) CommitBatch(ctx context.Context, collection string, docs []Document, overwrite bool) (CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return CommitResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.collections[collection]
	if !ok {
		target = make(map[string]models.Record)
		s.collections[collection] = target
	}

	var result CommitResult
	for _, doc := range docs {
		if _, exists := target[doc.ID]; exists && !overwrite {
			result.Conflicts++
			continue
		}
		target[doc.ID] = copyRecord(doc.Data)
		result.Written++
	}
	return result, nil
}

// Get implements DocumentStore.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrRecordNotFound, collection+"/"+id+" not found")
	}
	return copyRecord(rec), nil
}

// Query implements DocumentStore. Results are ordered by document id.
func (s *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]models.Record, 0)
	for _, id := range ids {
		rec := docs[id]
		if matches(rec, filters) {
			result = append(result, copyRecord(rec))
		}
	}
	return result, nil
}

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Close implements DocumentStore.
func (s *MemoryStore) Close(context.Context) error { return nil }

func matches(rec models.Record, filters []Filter) bool {
	for _, f := range filters {
		value, ok := rec[f.Field]
		if !ok || !reflect.DeepEqual(value, f.Value) {
			return false
		}
	}
	return true
}

func copyRecord(rec models.Record) models.Record {
	out := make(models.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
