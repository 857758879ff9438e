package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/internal/repository"
	"github.com/noah-isme/sma-report-card/pkg/config"
)

type failingStore struct {
	*repository.MemoryStore
	collection string
}

func (s *failingStore) CommitBatch(ctx context.Context, collection string, docs []repository.Document, overwrite bool) (repository.CommitResult, error) {
	if collection == s.collection {
		return repository.CommitResult{}, errors.New("quota exceeded")
	}
	return s.MemoryStore.CommitBatch(ctx, collection, docs, overwrite)
}

func testConfig() *config.Config {
	return &config.Config{
		Env:   config.EnvDevelopment,
		Store: config.StoreConfig{Driver: config.StoreMemory},
		Grading: config.GradingConfig{
			DefaultWeights:       map[string]float64{"midTerm": 0.2, "endTerm": 0.8},
			DeterministicRemarks: true,
		},
		Setup: config.SetupConfig{
			BatchSize:    config.MaxBatchSize,
			BatchTimeout: 5 * time.Second,
			LockTTL:      time.Minute,
			BcryptCost:   4,
		},
	}
}

func runSetup(t *testing.T, store repository.DocumentStore, mode repository.WriteMode, args ...string) (string, error) {
	t.Helper()
	cmd := NewSetupCommand(Options{Use: "setup", Mode: mode}, WithConfig(testConfig()), WithStore(store), WithLogger(zap.NewNop()))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func csvRows(output string) map[string]string {
	rows := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		name, _, _ := strings.Cut(line, ",")
		rows[name] = line
	}
	return rows
}

func TestSetupCommandProfessionalIsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore()

	out, err := runSetup(t, store, repository.ModeCheckFirst, "--csv")
	require.NoError(t, err)
	rows := csvRows(out)
	assert.True(t, strings.HasPrefix(rows["students"], "students,OK,5,0,0,0,"), rows["students"])
	assert.True(t, strings.HasPrefix(rows["reportCards"], "reportCards,OK,5,0,0,0,"), rows["reportCards"])
	assert.True(t, strings.HasPrefix(rows["TOTAL"], "TOTAL,check-first,34,0,0,0,"), rows["TOTAL"])

	out, err = runSetup(t, store, repository.ModeCheckFirst, "--csv")
	require.NoError(t, err)
	rows = csvRows(out)
	assert.True(t, strings.HasPrefix(rows["grades"], "grades,OK,0,13,0,0,"), rows["grades"])
	assert.True(t, strings.HasPrefix(rows["TOTAL"], "TOTAL,check-first,0,34,0,0,"), rows["TOTAL"])
	assert.Equal(t, 5, store.Count(models.CollectionReportCards))
}

func TestSetupCommandBasicOverwrites(t *testing.T) {
	store := repository.NewMemoryStore()

	_, err := runSetup(t, store, repository.ModePushAlways, "--csv", "--batch-size", "2")
	require.NoError(t, err)
	out, err := runSetup(t, store, repository.ModePushAlways, "--csv", "--batch-size", "2")
	require.NoError(t, err)

	rows := csvRows(out)
	assert.True(t, strings.HasPrefix(rows["grades"], "grades,OK,13,0,0,0,"), rows["grades"])
	assert.Equal(t, 13, store.Count(models.CollectionGrades))
}

func TestSetupCommandTableAndSkipReportCards(t *testing.T) {
	out, err := runSetup(t, repository.NewMemoryStore(), repository.ModeCheckFirst, "--skip-report-cards")
	require.NoError(t, err)
	assert.Contains(t, out, "students")
	assert.Contains(t, out, "subjects")
	assert.NotContains(t, out, "reportCards")
}

func TestSetupCommandWritesPDFs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cards")
	_, err := runSetup(t, repository.NewMemoryStore(), repository.ModeCheckFirst, "--csv", "--pdf-dir", dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
	_, err = os.Stat(filepath.Join(dir, "stu-001_2024_term1.pdf"))
	assert.NoError(t, err)
}

func TestSetupCommandFailsWhenACollectionFails(t *testing.T) {
	store := &failingStore{MemoryStore: repository.NewMemoryStore(), collection: models.CollectionGrades}

	out, err := runSetup(t, store, repository.ModeCheckFirst, "--csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCollectionsFailed))
	assert.Contains(t, csvRows(out)["grades"], "grades,FAILED,0,0,0,13,")
	assert.Equal(t, 5, store.Count(models.CollectionStudents))

	cmd := NewSetupCommand(Options{Use: "setup-professional", Mode: repository.ModeCheckFirst},
		WithConfig(testConfig()), WithStore(store), WithLogger(zap.NewNop()))
	var stderr bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--csv"})
	assert.Equal(t, 1, Execute(context.Background(), cmd))
	assert.Contains(t, stderr.String(), "one or more collections failed")
}

func TestSetupCommandRejectsMissingFixtures(t *testing.T) {
	_, err := runSetup(t, repository.NewMemoryStore(), repository.ModeCheckFirst, "--fixtures", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
