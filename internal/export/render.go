// Package export renders report lists as spreadsheets and pdf documents and
// writes them to a sink.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

const (
	SheetName     = "Rapports"
	DocumentTitle = "SERO-EST - Rapports Topographiques"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

var (
	sheetHeader = []string{"Date", "Topographe", "Projet", "Phase", "Type Structure", "N° Structure", "Tâches", "Station", "Remarques"}
	tableHeader = []string{"Date", "Topographe", "Projet", "Phase", "Type", "N° Struct.", "Tâches", "Station", "Remarques"}
	// Column widths in mm; they fill an A4 landscape page with 10mm margins.
	tableWidths = []float64{22, 28, 38, 38, 16, 20, 40, 22, 53}
)

// ParseFormat accepts "xlsx" or "pdf" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return ContentTypePDF
	}
	return ContentTypeXLSX
}

// DefaultFilename is SERO-EST_Rapports_dd-MM-yyyy.<ext>.
func DefaultFilename(f Format, now time.Time) string {
	return fmt.Sprintf("SERO-EST_Rapports_%s.%s", now.Format("02-01-2006"), f)
}

// ReportFilename names the document archived for a single submission. The
// id prefix keeps two submissions of the same user and day apart.
func ReportFilename(r models.Report) string {
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("Rapport_%s_%s_%s.pdf", r.UserName, r.Date, id)
}

// Render encodes reports in format f.
func Render(f Format, reports []models.Report, now time.Time) ([]byte, error) {
	switch f {
	case FormatXLSX:
		return Spreadsheet(reports)
	case FormatPDF:
		return Document(reports, now)
	}
	return nil, fmt.Errorf("unknown export format %q", f)
}

// Row is the display form of r, in table column order.
func Row(r models.Report) []string {
	return []string{
		displayDate(r.Date),
		r.UserName,
		r.ProjetNom,
		r.PhaseLabel(),
		r.TypeStructure.Label(),
		r.NumeroStructure,
		strings.Join(r.Taches, ", "),
		r.StationNom,
		r.Remarques,
	}
}

func displayDate(d string) string {
	t, err := time.Parse(models.DateLayout, d)
	if err != nil {
		return d
	}
	return t.Format("02/01/2006")
}

// Spreadsheet writes one row per report on the Rapports sheet.
func Spreadsheet(reports []models.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, len(sheetHeader))
	for i, h := range sheetHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "I1", bold); err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, r := range reports {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := Row(r)
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(SheetName, "A", "I", 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

// Document lays the reports out as a bordered table on A4 landscape pages,
// repeating the header on every page.
func Document(reports []models.Report, now time.Time) ([]byte, error) {
	const (
		margin = 10.0
		lineH  = 5.0
	)
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(41, 128, 185)
		pdf.SetTextColor(255, 255, 255)
		for i, h := range tableHeader {
			pdf.CellFormat(tableWidths[i], 7, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(DocumentTitle), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Généré le "+now.Format("02/01/2006")+" à "+now.Format("15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	header()

	_, pageH := pdf.GetPageSize()
	for _, r := range reports {
		cells := Row(r)
		lines := make([][]string, len(cells))
		rows := 1
		for i, c := range cells {
			lines[i] = pdf.SplitText(tr(c), tableWidths[i]-2)
			if len(lines[i]) > rows {
				rows = len(lines[i])
			}
		}
		h := float64(rows) * lineH
		if pdf.GetY()+h > pageH-2*margin {
			pdf.AddPage()
			header()
		}

		x, y := pdf.GetXY()
		for i := range cells {
			pdf.Rect(x, y, tableWidths[i], h, "D")
			pdf.SetXY(x, y)
			pdf.MultiCell(tableWidths[i], lineH, strings.Join(lines[i], "\n"), "", "L", false)
			x += tableWidths[i]
		}
		pdf.SetXY(margin, y+h)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}
