package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

// FirestoreStore persists documents in Cloud Firestore collections.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore wraps a Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// ExistingIDs implements DocumentStore.
func (s *FirestoreStore) ExistingIDs(ctx context.Context, collection string, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(ids) == 0 {
		return existing, nil
	}

	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = s.client.Collection(collection).Doc(id)
	}
	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("get existing ids in %s: %w", collection, err)
	}
	for _, snap := range snaps {
		if snap.Exists() {
			existing[snap.Ref.ID] = struct{}{}
		}
	}
	return existing, nil
}

// CommitBatch implements DocumentStore. Without overwrite each document is
// written with Create, which Firestore rejects when the document exists.
func (s *FirestoreStore) CommitBatch(ctx context.Context, collection string, docs []Document, overwrite bool) (CommitResult, error) {
	if len(docs) == 0 {
		return CommitResult{}, nil
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
	var enqueueErr error
	for _, doc := range docs {
		ref := s.client.Collection(collection).Doc(doc.ID)
		data := map[string]interface{}(doc.Data)
		var (
			job *firestore.BulkWriterJob
			err error
		)
		if overwrite {
			job, err = bw.Set(ref, data)
		} else {
			job, err = bw.Create(ref, data)
		}
		if err != nil {
			enqueueErr = fmt.Errorf("enqueue %s/%s: %w", collection, doc.ID, err)
			break
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var result CommitResult
	var failures []error
	for _, job := range jobs {
		_, err := job.Results()
		switch {
		case err == nil:
			result.Written++
		case !overwrite && status.Code(err) == codes.AlreadyExists:
			result.Conflicts++
		default:
			failures = append(failures, err)
		}
	}
	if enqueueErr != nil {
		failures = append(failures, enqueueErr)
	}
	if len(failures) > 0 {
		return result, fmt.Errorf("commit to %s: %d writes failed: %w", collection, len(failures), errors.Join(failures...))
	}
	return result, nil
}

// Get implements DocumentStore.
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (models.Record, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, appErrors.Clone(appErrors.ErrRecordNotFound, collection+"/"+id+" not found")
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return models.Record(snap.Data()), nil
}

// Query implements DocumentStore.
func (s *FirestoreStore) Query(ctx context.Context, collection string, filters ...Filter) ([]models.Record, error) {
	query := s.client.Collection(collection).Query
	for _, f := range filters {
		query = query.Where(f.Field, "==", f.Value)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	records := make([]models.Record, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		records = append(records, models.Record(snap.Data()))
	}
	return records, nil
}

// Close implements DocumentStore.
func (s *FirestoreStore) Close(context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
