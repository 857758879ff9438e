package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/pkg/export"
	"github.com/noah-isme/sma-report-card/pkg/storage"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
}

// ExportService renders report cards and setup summaries.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger}
}

// ReportCardFilename is the file name used for a rendered report card.
func ReportCardFilename(card *models.ReportCard) string {
	return storage.SafeName(card.ReportCardID) + ".pdf"
}

// ReportCardPDF renders a single report card.
func (s *ExportService) ReportCardPDF(card *models.ReportCard) ([]byte, error) {
	if card == nil {
		return nil, fmt.Errorf("report card is required")
	}
	return s.pdf.Render(reportCardDocument(card))
}

// SaveReportCards renders every card into dst and returns the written paths.
// A card that fails to render is logged and skipped.
func (s *ExportService) SaveReportCards(dst fileStorage, cards []*models.ReportCard) ([]string, error) {
	paths := make([]string, 0, len(cards))
	for _, card := range cards {
		data, err := s.ReportCardPDF(card)
		if err != nil {
			s.logger.Warn("report card pdf render failed", zap.String("report_card_id", card.ReportCardID), zap.Error(err))
			continue
		}
		path, err := dst.Save(ReportCardFilename(card), data)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SummaryDataset tabulates a setup report, one row per collection.
func SummaryDataset(report *SetupReport) export.Dataset {
	data := export.Dataset{Headers: []string{"Collection", "Status", "Written", "Skipped", "Invalid", "Failed", "Duration", "Error"}}
	if report == nil {
		return data
	}
	var written, skipped, invalid, failed int
	for _, res := range report.Results {
		status := "OK"
		if !res.Success {
			status = "FAILED"
		} else if res.Result != nil && res.Result.Partial() {
			status = "PARTIAL"
		}
		row := []string{res.Collection, status, "0", "0", "0", "0", res.Duration.Round(time.Millisecond).String(), ""}
		if res.Result != nil {
			row[2] = strconv.Itoa(res.Result.Written)
			row[3] = strconv.Itoa(res.Result.Skipped)
			row[4] = strconv.Itoa(res.Result.Invalid)
			row[5] = strconv.Itoa(res.Result.Failed)
			written += res.Result.Written
			skipped += res.Result.Skipped
			invalid += res.Result.Invalid
			failed += res.Result.Failed
		}
		if res.Err != nil {
			row[7] = strings.ReplaceAll(res.Err.Error(), "\n", "; ")
		}
		data.Rows = append(data.Rows, row)
	}
	data.Footer = []string{"TOTAL", string(report.Mode), strconv.Itoa(written), strconv.Itoa(skipped), strconv.Itoa(invalid), strconv.Itoa(failed), "", fmt.Sprintf("%d rejected", len(report.Rejected))}
	return data
}

// SummaryCSV renders the setup summary as CSV.
func (s *ExportService) SummaryCSV(report *SetupReport) ([]byte, error) {
	return s.csv.Render(SummaryDataset(report))
}

func reportCardDocument(card *models.ReportCard) export.Document {
	perf := card.AcademicPerformance
	fields := []export.Field{
		{Label: "Student", Value: firstNonEmpty(card.StudentName, card.StudentID)},
		{Label: "Class", Value: firstNonEmpty(card.ClassName, card.ClassID)},
		{Label: "Term", Value: fmt.Sprintf("%s %s", card.Term, card.AcademicYear)},
		{Label: "Overall", Value: fmt.Sprintf("%.2f%% (%s)", perf.Percentage, perf.Grade)},
	}
	if perf.Rank != nil {
		fields = append(fields, export.Field{Label: "Position", Value: fmt.Sprintf("%d of %d", perf.Rank.Position, perf.Rank.OutOf)})
	}
	if card.Attendance != nil {
		fields = append(fields, export.Field{
			Label: "Attendance",
			Value: fmt.Sprintf("%d/%d days (%.2f%%)", card.Attendance.DaysPresent, card.Attendance.TotalDays, card.Attendance.Percentage),
		})
	}

	table := export.Dataset{Headers: []string{"Subject", "Percentage", "Grade", "Remarks"}}
	for _, sp := range card.SubjectPerformance {
		pct := "-"
		if sp.Percentage != nil {
			pct = strconv.FormatFloat(*sp.Percentage, 'f', 2, 64)
		}
		table.Rows = append(table.Rows, []string{firstNonEmpty(sp.SubjectName, sp.SubjectID), pct, string(sp.Grade), sp.Remarks})
	}

	return export.Document{
		Title:         "Student Report Card",
		Subtitle:      card.ReportCardID,
		Fields:        fields,
		Table:         table,
		ColumnWeights: []float64{3, 1.5, 1, 6},
		Sections: []export.Section{
			{Heading: "Class teacher", Body: card.Comments.ClassTeacher},
			{Heading: "Head teacher", Body: card.Comments.HeadTeacher},
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
