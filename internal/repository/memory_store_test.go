package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

func TestMemoryStoreQueryAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, err := store.CommitBatch(ctx, "grades", []Document{
		{ID: "g2", Data: models.Record{"studentId": "s1", "term": "term1"}},
		{ID: "g1", Data: models.Record{"studentId": "s1", "term": "term2"}},
		{ID: "g3", Data: models.Record{"studentId": "s2", "term": "term1"}},
	}, false)
	require.NoError(t, err)

	found, err := store.Query(ctx, "grades", Filter{Field: "studentId", Value: "s1"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "term2", found[0]["term"])

	found, err = store.Query(ctx, "grades", Filter{Field: "studentId", Value: "s1"}, Filter{Field: "term", Value: "term1"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = store.Get(ctx, "grades", "missing")
	assert.True(t, errors.Is(err, appErrors.ErrRecordNotFound))
}

func TestMemoryStoreCreateIfAbsent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	docs := []Document{{ID: "a", Data: models.Record{"v": 1}}}

	res, err := store.CommitBatch(ctx, "c", docs, false)
	require.NoError(t, err)
	assert.Equal(t, CommitResult{Written: 1}, res)

	res, err = store.CommitBatch(ctx, "c", docs, false)
	require.NoError(t, err)
	assert.Equal(t, CommitResult{Conflicts: 1}, res)
}
