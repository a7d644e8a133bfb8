package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/xuri/excelize/v2"
)

func sampleReport() models.Report {
	return models.Report{
		ID:              "r1",
		UserName:        "Bachir",
		Date:            "2026-03-09",
		ProjetNom:       "Viaduc Oued Rhumel",
		PhaseNom:        "Autre",
		PhaseAutre:      "Nivellement",
		TypeStructure:   models.StructureCulee,
		NumeroStructure: "C2",
		Taches:          []string{"Relevé", "Contrôle"},
		StationNom:      "TS 07",
		Remarques:       "Terrain humide",
	}
}

func TestRow(t *testing.T) {
	assert.Equal(t,
		[]string{"09/03/2026", "Bachir", "Viaduc Oued Rhumel", "Nivellement", "Culée", "C2", "Relevé, Contrôle", "TS 07", "Terrain humide"},
		Row(sampleReport()))

	r := sampleReport()
	r.PhaseAutre = ""
	r.TypeStructure = models.StructurePile
	row := Row(r)
	assert.Equal(t, "Autre", row[3])
	assert.Equal(t, "Pile", row[4])
}

func TestDefaultFilename(t *testing.T) {
	now := time.Date(2026, 10, 4, 16, 0, 0, 0, time.UTC)
	assert.Equal(t, "SERO-EST_Rapports_04-10-2026.xlsx", DefaultFilename(FormatXLSX, now))
	assert.Equal(t, "SERO-EST_Rapports_04-10-2026.pdf", DefaultFilename(FormatPDF, now))
	assert.Equal(t, "Rapport_Bachir_2026-03-09_r1.pdf", ReportFilename(sampleReport()))

	r := sampleReport()
	r.ID = "5f0c2a9e-8d41-4b7a-9c3e-2d6f1a0b7e55"
	assert.Equal(t, "Rapport_Bachir_2026-03-09_5f0c2a9e.pdf", ReportFilename(r))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	_, err = ParseFormat("csv")
	assert.Error(t, err)
}

func TestSpreadsheet(t *testing.T) {
	second := sampleReport()
	second.UserName = "Salah"
	out, err := Spreadsheet([]models.Report{sampleReport(), second})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, sheetHeader, rows[0])
	assert.Equal(t, Row(sampleReport()), rows[1])
	assert.Equal(t, "Salah", rows[2][1])
}

func TestSpreadsheet_Empty(t *testing.T) {
	out, err := Spreadsheet(nil)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func pageCount(doc []byte) int {
	return bytes.Count(doc, []byte("<</Type /Page\n"))
}

func TestDocument(t *testing.T) {
	now := time.Date(2026, 10, 4, 16, 5, 0, 0, time.UTC)
	out, err := Document([]models.Report{sampleReport()}, now)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, 1, pageCount(out))

	many := make([]models.Report, 80)
	for i := range many {
		many[i] = sampleReport()
		many[i].NumeroStructure = fmt.Sprintf("P%d", i)
	}
	out, err = Document(many, now)
	require.NoError(t, err)
	assert.Greater(t, pageCount(out), 1)
}

func TestRender(t *testing.T) {
	now := time.Now()
	x, err := Render(FormatXLSX, nil, now)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(x, []byte("PK")), "xlsx is a zip archive")

	p, err := Render(FormatPDF, nil, now)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(p, []byte("%PDF-")))

	_, err = Render("odt", nil, now)
	assert.Error(t, err)
}

func TestFSSink(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFSSink(fs, "/srv/exports")

	require.NoError(t, sink.Put(context.Background(), "Rapport_Bachir_2026-03-09.pdf", ContentTypePDF, []byte("%PDF-1.3")))
	got, err := afero.ReadFile(fs, "/srv/exports/Rapport_Bachir_2026-03-09.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(got))

	require.NoError(t, sink.Put(context.Background(), "../../etc/passwd", ContentTypePDF, []byte("x")))
	exists, _ := afero.Exists(fs, "/srv/exports/passwd")
	assert.True(t, exists, "names are confined to the export directory")

	assert.Error(t, sink.Put(context.Background(), "/", ContentTypePDF, nil))
}

type fakeSink struct {
	PutFunc func(ctx context.Context, name, contentType string, data []byte) error
}

func (f *fakeSink) Put(ctx context.Context, name, contentType string, data []byte) error {
	return f.PutFunc(ctx, name, contentType, data)
}

func TestMultiSink(t *testing.T) {
	var names []string
	ok := &fakeSink{PutFunc: func(_ context.Context, name, _ string, _ []byte) error {
		names = append(names, name)
		return nil
	}}
	bad := &fakeSink{PutFunc: func(context.Context, string, string, []byte) error { return errors.New("offline") }}

	err := MultiSink{bad, ok}.Put(context.Background(), "a.pdf", ContentTypePDF, nil)
	assert.ErrorContains(t, err, "offline")
	assert.Equal(t, []string{"a.pdf"}, names, "later sinks still receive the file")
}

func TestArchiver(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := &Archiver{Sink: NewFSSink(fs, "exports"), Now: func() time.Time { return time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC) }}

	require.NoError(t, a.Archive(context.Background(), sampleReport()))
	doc, err := afero.ReadFile(fs, "exports/Rapport_Bachir_2026-03-09_r1.pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))

	second := sampleReport()
	second.ID = "r2"
	require.NoError(t, a.Archive(context.Background(), second))
	files, err := afero.ReadDir(fs, "exports")
	require.NoError(t, err)
	assert.Len(t, files, 2, "same user and day must not overwrite the first document")
}
