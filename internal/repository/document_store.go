package repository

import (
	"context"

	"github.com/noah-isme/sma-report-card/internal/models"
)

// WriteMode selects how DocumentWriter treats documents that already exist.
type WriteMode string

const (
	// ModeCheckFirst skips ids already present and creates the rest only if absent.
	ModeCheckFirst WriteMode = "check-first"
	// ModePushAlways overwrites every document.
	ModePushAlways WriteMode = "push-always"
)

// Filter is an equality constraint on a top-level document field.
type Filter struct {
	Field string
	Value interface{}
}

// Document is a record keyed by its document id.
type Document struct {
	ID   string
	Data models.Record
}

// CommitResult reports what a single batch commit achieved. Conflicts counts
// documents the store refused to create because they already existed.
type CommitResult struct {
	Written   int
	Conflicts int
}

// DocumentStore is the persistence boundary shared by every backend.
type DocumentStore interface {
	// ExistingIDs returns the subset of ids already present in the collection.
	ExistingIDs(ctx context.Context, collection string, ids []string) (map[string]struct{}, error)
	// CommitBatch writes the documents as one bounded call. Without overwrite
	// each document is created only if absent.
	CommitBatch(ctx context.Context, collection string, docs []Document, overwrite bool) (CommitResult, error)
	Get(ctx context.Context, collection, id string) (models.Record, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]models.Record, error)
	Close(ctx context.Context) error
}

func documentIDs(docs []Document) []string {
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	return ids
}
