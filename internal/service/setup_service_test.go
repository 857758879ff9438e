package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-report-card/internal/fixtures"
	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/internal/repository"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

// faultyWriter fails or panics for selected collections and delegates the rest.
type faultyWriter struct {
	next   collectionWriter
	fail   map[string]error
	panics map[string]bool
}

func (w *faultyWriter) WriteCollection(ctx context.Context, collection string, records []models.Record, idField string, mode repository.WriteMode) (*repository.WriteResult, error) {
	if w.panics[collection] {
		panic("store connection lost")
	}
	if err, ok := w.fail[collection]; ok {
		return &repository.WriteResult{Collection: collection, Failed: len(records)}, err
	}
	return w.next.WriteCollection(ctx, collection, records, idField, mode)
}

type stubLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired []string
	released []string
}

func (l *stubLocker) Acquire(ctx context.Context, collection string) (repository.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[collection] {
		return nil, appErrors.Clone(appErrors.ErrLocked, "collection "+collection+" is locked")
	}
	l.acquired = append(l.acquired, collection)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released = append(l.released, collection)
		return nil
	}, nil
}

func newSetupServiceForTest(writer collectionWriter, locker collectionLocker) *SetupService {
	return NewSetupService(writer, newTestAssembler(), locker, NewMetricsService(), zap.NewNop(), SetupServiceConfig{BcryptCost: bcrypt.MinCost})
}

func loadFixtures(t *testing.T) *fixtures.Fixtures {
	t.Helper()
	fx, err := fixtures.Load("")
	require.NoError(t, err)
	return fx
}

func resultsByCollection(report *SetupReport) map[string]CollectionResult {
	out := make(map[string]CollectionResult, len(report.Results))
	for _, res := range report.Results {
		out[res.Collection] = res
	}
	return out
}

func TestSetupServiceRunWritesEveryCollection(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newSetupServiceForTest(repository.NewDocumentWriter(store, zap.NewNop()), nil)

	report, err := svc.Run(context.Background(), loadFixtures(t), SetupOptions{Mode: repository.ModeCheckFirst})
	require.NoError(t, err)
	require.False(t, report.Failed())
	require.Len(t, report.Results, 6)

	results := resultsByCollection(report)
	assert.Equal(t, 6, results[models.CollectionSubjects].Result.Written)
	assert.Equal(t, 5, results[models.CollectionStudents].Result.Written)
	assert.Equal(t, 13, results[models.CollectionGrades].Result.Written)
	assert.Equal(t, 5, results[models.CollectionReportCards].Result.Written)
	assert.Equal(t, 5, store.Count(models.CollectionReportCards))

	staff, err := store.Get(context.Background(), models.CollectionStaff, "staff-002")
	require.NoError(t, err)
	assert.NotContains(t, staff, "password")
	assert.Equal(t, "Sciences", staff["department"])
	hash, _ := staff["passwordHash"].(string)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("change-me-002")))

	cards := make(map[string]*models.ReportCard)
	for _, card := range report.ReportCards {
		cards[card.StudentID] = card
	}
	assert.Equal(t, &models.Rank{Position: 1, OutOf: 2}, cards["stu-001"].AcademicPerformance.Rank)
	assert.Equal(t, &models.Rank{Position: 2, OutOf: 2}, cards["stu-002"].AcademicPerformance.Rank)
	assert.Nil(t, cards["stu-003"].AcademicPerformance.Rank)
	assert.Equal(t, &models.Rank{Position: 1, OutOf: 2}, cards["stu-004"].AcademicPerformance.Rank)
	assert.Equal(t, "system", cards["stu-005"].GeneratedBy)

	studentRec, err := store.Get(context.Background(), models.CollectionStudents, "stu-001")
	require.NoError(t, err)
	var student models.Student
	require.NoError(t, models.FromRecord(studentRec, &student))
	require.Len(t, student.History, 1)
	assert.Equal(t, "stu-001_2024_term1", student.History[0].ReportCardID)
	assert.Equal(t, models.GradeA, student.History[0].Grade)
}

func TestSetupServiceRunIsIdempotentInCheckFirstMode(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newSetupServiceForTest(repository.NewDocumentWriter(store, zap.NewNop()), nil)
	fx := loadFixtures(t)

	_, err := svc.Run(context.Background(), fx, SetupOptions{Mode: repository.ModeCheckFirst})
	require.NoError(t, err)

	report, err := svc.Run(context.Background(), fx, SetupOptions{Mode: repository.ModeCheckFirst})
	require.NoError(t, err)
	require.False(t, report.Failed())
	for _, res := range report.Results {
		assert.Zero(t, res.Result.Written, res.Collection)
		assert.Equal(t, store.Count(res.Collection), res.Result.Skipped, res.Collection)
	}
}

func TestSetupServiceRunIsolatesCollectionFailures(t *testing.T) {
	store := repository.NewMemoryStore()
	writer := &faultyWriter{
		next:   repository.NewDocumentWriter(store, zap.NewNop()),
		fail:   map[string]error{models.CollectionGrades: errors.New("deadline exceeded")},
		panics: map[string]bool{models.CollectionClasses: true},
	}
	svc := newSetupServiceForTest(writer, nil)

	report, err := svc.Run(context.Background(), loadFixtures(t), SetupOptions{Mode: repository.ModePushAlways})
	require.NoError(t, err)
	assert.True(t, report.Failed())

	results := resultsByCollection(report)
	assert.False(t, results[models.CollectionGrades].Success)
	assert.EqualError(t, results[models.CollectionGrades].Err, "deadline exceeded")
	assert.False(t, results[models.CollectionClasses].Success)
	assert.Contains(t, results[models.CollectionClasses].Err.Error(), "panicked")

	for _, name := range []string{models.CollectionSubjects, models.CollectionStaff, models.CollectionStudents, models.CollectionReportCards} {
		assert.True(t, results[name].Success, name)
		assert.NoError(t, results[name].Err, name)
	}
	assert.Equal(t, 5, store.Count(models.CollectionStudents))
	assert.Zero(t, store.Count(models.CollectionGrades))
}

func TestSetupServiceRunHonoursCollectionLocks(t *testing.T) {
	store := repository.NewMemoryStore()
	locker := &stubLocker{held: map[string]bool{models.CollectionStaff: true}}
	svc := newSetupServiceForTest(repository.NewDocumentWriter(store, zap.NewNop()), locker)

	report, err := svc.Run(context.Background(), loadFixtures(t), SetupOptions{Mode: repository.ModeCheckFirst, SkipReportCards: true})
	require.NoError(t, err)
	require.Len(t, report.Results, 5)

	results := resultsByCollection(report)
	assert.False(t, results[models.CollectionStaff].Success)
	assert.True(t, errors.Is(results[models.CollectionStaff].Err, appErrors.ErrLocked))
	assert.Zero(t, store.Count(models.CollectionStaff))
	assert.Zero(t, store.Count(models.CollectionReportCards))

	assert.ElementsMatch(t, locker.acquired, locker.released)
	assert.Len(t, locker.acquired, 4)
}

func TestSetupServiceRunRequiresFixtures(t *testing.T) {
	svc := newSetupServiceForTest(repository.NewDocumentWriter(repository.NewMemoryStore(), nil), nil)
	_, err := svc.Run(context.Background(), nil, SetupOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
