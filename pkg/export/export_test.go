package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"collection", "written", "skipped"},
		Rows:    [][]string{{"students", "5", "0"}, {"grades"}},
		Footer:  []string{"total", "5", "0"},
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "grades,,", lines[2])
	assert.Equal(t, "total,5,0", lines[3])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(Document{
		Title:         "Report Card",
		Subtitle:      "Term 1, 2024",
		Fields:        []Field{{Label: "Student", Value: "Amina Hassan"}},
		Table:         Dataset{Headers: []string{"Subject", "%", "Grade"}, Rows: [][]string{{"Mathematics", "85.00", "A"}}},
		ColumnWeights: []float64{3, 1, 1},
		Sections:      []Section{{Heading: "Class teacher", Body: "Good work."}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRequiresTable(t *testing.T) {
	_, err := NewPDFExporter().Render(Document{Title: "Empty"})
	assert.Error(t, err)
}

func TestColumnWidthsFallBackToEqual(t *testing.T) {
	e := NewPDFExporter()
	assert.Equal(t, []float64{95, 95}, e.columnWidths(2, []float64{1}))
	assert.Equal(t, []float64{142.5, 47.5}, e.columnWidths(2, []float64{3, 1}))
}
