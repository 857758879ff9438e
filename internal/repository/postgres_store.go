package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

const documentsSchema = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
)`

const (
	insertDocumentQuery = `INSERT INTO documents (collection, id, data)
VALUES (:collection, :id, CAST(:data AS JSONB))
ON CONFLICT (collection, id) DO NOTHING`
	upsertDocumentQuery = `INSERT INTO documents (collection, id, data)
VALUES (:collection, :id, CAST(:data AS JSONB))
ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
)

type documentRow struct {
	Collection string `db:"collection"`
	ID         string `db:"id"`
	Data       string `db:"data"`
}

// PostgresStore keeps documents as JSONB rows keyed by (collection, id).
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore constructs a store backed by the documents table.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the documents table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, documentsSchema); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// ExistingIDs implements DocumentStore.
func (s *PostgresStore) ExistingIDs(ctx context.Context, collection string, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(ids) == 0 {
		return existing, nil
	}

	var found []string
	query := `SELECT id FROM documents WHERE collection = $1 AND id = ANY($2)`
	if err := s.db.SelectContext(ctx, &found, query, collection, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("select existing ids in %s: %w", collection, err)
	}
	for _, id := range found {
		existing[id] = struct{}{}
	}
	return existing, nil
}

// CommitBatch implements DocumentStore. The batch is one transaction, so a
// failed batch commits nothing.
func (s *PostgresStore) CommitBatch(ctx context.Context, collection string, docs []Document, overwrite bool) (result CommitResult, err error) {
	if len(docs) == 0 {
		return CommitResult{}, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return CommitResult{}, fmt.Errorf("begin batch for %s: %w", collection, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			result = CommitResult{}
		}
	}()

	query := insertDocumentQuery
	if overwrite {
		query = upsertDocumentQuery
	}

	for _, doc := range docs {
		payload, marshalErr := json.Marshal(doc.Data)
		if marshalErr != nil {
			return result, fmt.Errorf("marshal %s/%s: %w", collection, doc.ID, marshalErr)
		}
		res, execErr := tx.NamedExecContext(ctx, query, documentRow{Collection: collection, ID: doc.ID, Data: string(payload)})
		if execErr != nil {
			return result, fmt.Errorf("write %s/%s: %w", collection, doc.ID, execErr)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			result.Conflicts++
			continue
		}
		result.Written++
	}

	if err = tx.Commit(); err != nil {
		return result, fmt.Errorf("commit batch for %s: %w", collection, err)
	}
	return result, nil
}

// Get implements DocumentStore.
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (models.Record, error) {
	var raw []byte
	query := `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	if err := s.db.GetContext(ctx, &raw, query, collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRecordNotFound, collection+"/"+id+" not found")
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decodeDocument(raw)
}

// Query implements DocumentStore using JSONB containment.
func (s *PostgresStore) Query(ctx context.Context, collection string, filters ...Filter) ([]models.Record, error) {
	criteria := make(map[string]interface{}, len(filters))
	for _, f := range filters {
		criteria[f.Field] = f.Value
	}
	payload, err := json.Marshal(criteria)
	if err != nil {
		return nil, fmt.Errorf("marshal filters: %w", err)
	}

	var rows [][]byte
	query := `SELECT data FROM documents WHERE collection = $1 AND data @> $2::jsonb ORDER BY id`
	if err := s.db.SelectContext(ctx, &rows, query, collection, string(payload)); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	records := make([]models.Record, 0, len(rows))
	for _, raw := range rows {
		rec, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close implements DocumentStore.
func (s *PostgresStore) Close(context.Context) error {
	return s.db.Close()
}

func decodeDocument(raw []byte) (models.Record, error) {
	var rec models.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return rec, nil
}
