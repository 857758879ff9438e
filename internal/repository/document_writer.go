package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/pkg/config"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

// BatchCommitError reports a failed batch with the counts it managed before failing.
// Batches committed earlier are not rolled back.
type BatchCommitError struct {
	Collection string
	BatchIndex int
	Attempted  int
	Written    int
	Err        error
}

func (e *BatchCommitError) Error() string {
	return fmt.Sprintf("batch %d of %s failed after %d/%d writes: %v", e.BatchIndex, e.Collection, e.Written, e.Attempted, e.Err)
}

func (e *BatchCommitError) Unwrap() error { return e.Err }

// Is lets errors.Is match appErrors.ErrBatchCommit.
func (e *BatchCommitError) Is(target error) bool {
	t, ok := target.(*appErrors.Error)
	return ok && t != nil && t.Code == appErrors.ErrBatchCommit.Code
}

// WriteResult summarises one WriteCollection call.
type WriteResult struct {
	Collection string `json:"collection"`
	Written    int    `json:"written"`
	Skipped    int    `json:"skipped"`
	Invalid    int    `json:"invalid"`
	Failed     int    `json:"failed"`
}

// Partial reports whether some records were written while others failed.
func (r *WriteResult) Partial() bool {
	return r != nil && r.Failed > 0 && r.Written > 0
}

// WriteObserver receives write outcomes, typically for metrics.
type WriteObserver interface {
	ObserveDocumentsWritten(collection string, written, skipped int)
	ObserveBatchFailure(collection string)
}

// WriterOption customises a DocumentWriter.
type WriterOption func(*DocumentWriter)

// WithBatchSize bounds the documents per commit. Values above MaxBatchSize are capped.
func WithBatchSize(n int) WriterOption {
	return func(w *DocumentWriter) {
		if n > 0 && n <= config.MaxBatchSize {
			w.batchSize = n
		}
	}
}

// WithBatchTimeout bounds every store call.
func WithBatchTimeout(d time.Duration) WriterOption {
	return func(w *DocumentWriter) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithObserver attaches a WriteObserver.
func WithObserver(o WriteObserver) WriterOption {
	return func(w *DocumentWriter) { w.observer = o }
}

// DocumentWriter persists collections in bounded batches, creating each
// document id at most once.
type DocumentWriter struct {
	store     DocumentStore
	batchSize int
	timeout   time.Duration
	observer  WriteObserver
	logger    *zap.Logger
}

// NewDocumentWriter constructs a writer over the given store.
func NewDocumentWriter(store DocumentStore, logger *zap.Logger, opts ...WriterOption) *DocumentWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &DocumentWriter{
		store:     store,
		batchSize: config.MaxBatchSize,
		timeout:   30 * time.Second,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteCollection writes records keyed by idField. In ModeCheckFirst ids that
// already exist are skipped and the rest are created only if absent, so a
// repeated call writes nothing. Existing documents are never an error. The
// returned result is always populated; the error joins every BatchCommitError.
func (w *DocumentWriter) WriteCollection(ctx context.Context, collection string, records []models.Record, idField string, mode WriteMode) (*WriteResult, error) {
	if idField == "" {
		idField = models.DefaultIDField
	}
	result := &WriteResult{Collection: collection}
	log := w.logger.With(zap.String("collection", collection), zap.String("mode", string(mode)))

	docs := make([]Document, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		id, ok := rec.ID(idField)
		if !ok {
			result.Invalid++
			continue
		}
		if _, dup := seen[id]; dup {
			result.Skipped++
			continue
		}
		seen[id] = struct{}{}
		docs = append(docs, Document{ID: id, Data: rec})
	}
	if result.Invalid > 0 {
		log.Warn("records without id ignored", zap.String("id_field", idField), zap.Int("count", result.Invalid))
	}

	var errs []error
	for index, start := 0, 0; start < len(docs); index, start = index+1, start+w.batchSize {
		end := start + w.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		if err := ctx.Err(); err != nil {
			remaining := len(docs) - start
			result.Failed += remaining
			errs = append(errs, &BatchCommitError{Collection: collection, BatchIndex: index, Attempted: remaining, Err: err})
			break
		}

		pending := batch
		if mode == ModeCheckFirst {
			pending = w.withoutExisting(ctx, collection, batch, log)
			result.Skipped += len(batch) - len(pending)
		}
		if len(pending) == 0 {
			continue
		}

		commit, err := w.commit(ctx, collection, pending, mode == ModePushAlways)
		result.Written += commit.Written
		result.Skipped += commit.Conflicts
		if err != nil {
			failed := len(pending) - commit.Written - commit.Conflicts
			result.Failed += failed
			errs = append(errs, &BatchCommitError{
				Collection: collection,
				BatchIndex: index,
				Attempted:  len(pending),
				Written:    commit.Written,
				Err:        err,
			})
			if w.observer != nil {
				w.observer.ObserveBatchFailure(collection)
			}
			log.Error("batch commit failed",
				zap.Int("batch", index),
				zap.Int("attempted", len(pending)),
				zap.Int("written", commit.Written),
				zap.Error(err))
		}
	}

	if w.observer != nil {
		w.observer.ObserveDocumentsWritten(collection, result.Written, result.Skipped)
	}
	log.Info("collection written",
		zap.Int("written", result.Written),
		zap.Int("skipped", result.Skipped),
		zap.Int("invalid", result.Invalid),
		zap.Int("failed", result.Failed))

	return result, errors.Join(errs...)
}

// withoutExisting drops ids already stored. A failed lookup keeps the whole
// batch since the create-if-absent commit still rejects existing documents.
func (w *DocumentWriter) withoutExisting(ctx context.Context, collection string, batch []Document, log *zap.Logger) []Document {
	checkCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	existing, err := w.store.ExistingIDs(checkCtx, collection, documentIDs(batch))
	if err != nil {
		log.Warn("existence check failed, relying on create-if-absent", zap.Error(err))
		return batch
	}
	if len(existing) == 0 {
		return batch
	}
	pending := make([]Document, 0, len(batch)-len(existing))
	for _, doc := range batch {
		if _, ok := existing[doc.ID]; !ok {
			pending = append(pending, doc)
		}
	}
	return pending
}

func (w *DocumentWriter) commit(ctx context.Context, collection string, docs []Document, overwrite bool) (CommitResult, error) {
	commitCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.store.CommitBatch(commitCtx, collection, docs, overwrite)
}
