package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCountersAndHandler(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/report-cards/:id", http.StatusOK, 15*time.Millisecond)
	m.ObserveDocumentsWritten("students", 5, 2)
	m.ObserveBatchFailure("grades")
	m.ObserveReportCard("A")
	m.ObserveReportCard("C")
	m.ObserveStoreOperation("report_card_get", time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.Equal(t, uint64(5), snap.DocumentsWritten)
	assert.Equal(t, uint64(2), snap.DocumentsSkipped)
	assert.Equal(t, uint64(1), snap.BatchFailures)
	assert.Equal(t, uint64(2), snap.ReportCardsGenerated)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `report_cards_generated_total{grade="A"} 1`)
	assert.Contains(t, string(body), `documents_written_total{collection="students"} 5`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveReportCard("A")
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
}
