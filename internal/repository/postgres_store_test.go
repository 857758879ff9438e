package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

func newPostgresStoreMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresStore(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestPostgresStoreExistingIDs(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM documents WHERE collection = $1 AND id = ANY($2)")).
		WithArgs("students", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1"))

	existing, err := store.ExistingIDs(context.Background(), "students", []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Contains(t, existing, "s1")
	assert.NotContains(t, existing, "s2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCommitBatchCountsConflicts(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("(?s)INSERT INTO documents .* ON CONFLICT \\(collection, id\\) DO NOTHING").
		WithArgs("students", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("(?s)INSERT INTO documents .* ON CONFLICT \\(collection, id\\) DO NOTHING").
		WithArgs("students", "s2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	result, err := store.CommitBatch(context.Background(), "students", []Document{
		{ID: "s1", Data: models.Record{"id": "s1"}},
		{ID: "s2", Data: models.Record{"id": "s2"}},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, CommitResult{Written: 1, Conflicts: 1}, result)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCommitBatchRollsBackOnFailure(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("(?s)INSERT INTO documents .* DO UPDATE SET data = EXCLUDED.data").
		WithArgs("grades", "g1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("(?s)INSERT INTO documents .* DO UPDATE SET data = EXCLUDED.data").
		WithArgs("grades", "g2", sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	result, err := store.CommitBatch(context.Background(), "grades", []Document{
		{ID: "g1", Data: models.Record{"id": "g1"}},
		{ID: "g2", Data: models.Record{"id": "g2"}},
	}, true)
	require.Error(t, err)
	assert.Equal(t, CommitResult{}, result)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM documents WHERE collection = $1 AND id = $2")).
		WithArgs("classes", "s4").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"id":"s4","name":"Senior Four"}`)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM documents WHERE collection = $1 AND id = $2")).
		WithArgs("classes", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	rec, err := store.Get(context.Background(), "classes", "s4")
	require.NoError(t, err)
	assert.Equal(t, "Senior Four", rec["name"])

	_, err = store.Get(context.Background(), "classes", "missing")
	assert.True(t, errors.Is(err, appErrors.ErrRecordNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreQueryUsesContainment(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM documents WHERE collection = $1 AND data @> $2::jsonb ORDER BY id")).
		WithArgs("grades", `{"studentId":"s1"}`).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"id":"g1","studentId":"s1"}`)).
			AddRow([]byte(`{"id":"g2","studentId":"s1"}`)))

	records, err := store.Query(context.Background(), "grades", Filter{Field: "studentId", Value: "s1"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
