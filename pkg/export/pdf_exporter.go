package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Timetable is a day-by-period grid rendered on its own page.
type Timetable struct {
	Title   string
	Columns []string
	Rows    []string
	// Cells is indexed [row][column]; a cell may hold several lines separated by "\n".
	Cells [][]string
}

// PDFExporter renders timetables into a landscape PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with one page per timetable.
func (e *PDFExporter) Render(title string, tables []Timetable) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("pdf requires at least one timetable")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, table := range tables {
		if len(table.Columns) == 0 {
			return nil, fmt.Errorf("timetable %q has no columns", table.Title)
		}
		pdf.AddPage()

		if title != "" {
			pdf.SetFont("Arial", "B", 13)
			pdf.CellFormat(0, 8, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, tr(table.Title), "", 1, "L", false, 0, "")
		pdf.Ln(2)

		const labelWidth = 22.0
		colWidth := (277.0 - labelWidth) / float64(len(table.Columns))

		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(labelWidth, 8, "", "1", 0, "C", false, 0, "")
		for _, column := range table.Columns {
			pdf.CellFormat(colWidth, 8, tr(column), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 7)
		for r, label := range table.Rows {
			height := 6.0 * float64(maxLines(table.Cells, r))
			x, y := pdf.GetXY()
			pdf.SetFont("Arial", "B", 8)
			pdf.CellFormat(labelWidth, height, tr(label), "1", 0, "C", false, 0, "")
			pdf.SetFont("Arial", "", 7)
			for col := range table.Columns {
				cx := x + labelWidth + float64(col)*colWidth
				pdf.Rect(cx, y, colWidth, height, "D")
				pdf.SetXY(cx, y)
				pdf.MultiCell(colWidth, 6, tr(cell(table.Cells, r, col)), "", "L", false)
			}
			pdf.SetXY(x, y+height)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func cell(cells [][]string, row, col int) string {
	if row >= len(cells) || col >= len(cells[row]) {
		return ""
	}
	return cells[row][col]
}

func maxLines(cells [][]string, row int) int {
	lines := 1
	if row >= len(cells) {
		return lines
	}
	for _, value := range cells[row] {
		if n := strings.Count(value, "\n") + 1; value != "" && n > lines {
			lines = n
		}
	}
	return lines
}
