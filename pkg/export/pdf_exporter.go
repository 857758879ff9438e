package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Field is a labelled value printed in the document header block.
type Field struct {
	Label string
	Value string
}

// Section is a titled paragraph.
type Section struct {
	Heading string
	Body    string
}

// Document describes a single-page report: header fields, one table and
// trailing narrative sections.
type Document struct {
	Title    string
	Subtitle string
	Fields   []Field
	Table    Dataset
	// ColumnWeights sizes table columns relative to each other. Equal when empty.
	ColumnWeights []float64
	Sections      []Section
}

// PDFExporter renders documents with gofpdf.
type PDFExporter struct {
	pageWidth float64
}

// NewPDFExporter constructs a PDF exporter for A4 portrait pages.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{pageWidth: 190}
}

// Render lays out the document and returns the PDF bytes.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Table.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one table header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, tr(strings.ToUpper(doc.Title)), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	for _, field := range doc.Fields {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 6, tr(field.Label), "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(field.Value), "", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	widths := e.columnWidths(len(doc.Table.Headers), doc.ColumnWeights)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range doc.Table.Headers {
		pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range doc.Table.Rows {
		cells := fit(row, len(widths))
		for i, value := range cells {
			pdf.CellFormat(widths[i], 7, tr(value), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(doc.Table.Footer) > 0 {
		pdf.SetFont("Arial", "B", 9)
		for i, value := range fit(doc.Table.Footer, len(widths)) {
			pdf.CellFormat(widths[i], 7, tr(value), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	for _, section := range doc.Sections {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, tr(section.Heading), "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(section.Body), "", "", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) columnWidths(n int, weights []float64) []float64 {
	widths := make([]float64, n)
	var total float64
	if len(weights) == n {
		for _, w := range weights {
			total += w
		}
	}
	for i := range widths {
		if total > 0 {
			widths[i] = e.pageWidth * weights[i] / total
		} else {
			widths[i] = e.pageWidth / float64(n)
		}
	}
	return widths
}
