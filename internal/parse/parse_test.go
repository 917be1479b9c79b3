package parse

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bidintake/internal/model"
)

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) ExtractText(_ context.Context, _ string) (string, error) {
	return s.text, s.err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_UnsupportedExtension(t *testing.T) {
	p := New(nil, nil)
	outcome := p.Parse(context.Background(), "/tmp/model.rvt", "application/octet-stream")
	assert.Equal(t, model.FileStatusFailed, outcome.Status)
	assert.Equal(t, "Unsupported file type: .rvt", outcome.Error)
}

func TestParse_Text(t *testing.T) {
	path := writeFile(t, "notes.txt", "Pre-bid walkthrough is mandatory.")
	p := New(nil, nil)
	outcome := p.Parse(context.Background(), path, "text/plain")
	assert.Equal(t, model.FileStatusParsed, outcome.Status)
	assert.Equal(t, "Pre-bid walkthrough is mandatory.", outcome.Text)
	assert.Empty(t, outcome.Error)
	assert.Equal(t, "text/plain", outcome.Metadata["mime"])
}

func TestParse_TextEmpty(t *testing.T) {
	path := writeFile(t, "empty.txt", "   ")
	outcome := New(nil, nil).Parse(context.Background(), path, "text/plain")
	assert.Equal(t, model.FileStatusParsed, outcome.Status)
	assert.Equal(t, "Empty text file", outcome.Error)
}

func TestParse_TextInvalidUTF8(t *testing.T) {
	// 0xE9 is "é" in Windows-1252 but invalid standalone UTF-8.
	path := filepath.Join(t.TempDir(), "latin.txt")
	require.NoError(t, os.WriteFile(path, []byte{'c', 'a', 'f', 0xE9}, 0o644))

	outcome := New(nil, nil).Parse(context.Background(), path, "text/plain")
	assert.Equal(t, model.FileStatusParsed, outcome.Status)
	assert.Equal(t, "café", outcome.Text)
}

func TestParse_TextTruncation(t *testing.T) {
	path := writeFile(t, "huge.txt", strings.Repeat("x", maxPreviewChars+500))
	outcome := New(nil, nil).Parse(context.Background(), path, "text/plain")
	assert.Equal(t, model.FileStatusParsed, outcome.Status)
	assert.True(t, strings.HasSuffix(outcome.Text, "\n...\n[truncated]"))
	assert.Len(t, outcome.Text, maxPreviewChars+len("\n...\n[truncated]"))
}

func TestParse_CSV(t *testing.T) {
	path := writeFile(t, "bid.csv", "item, qty ,unit\nconcrete,10,cy\n")
	outcome := New(nil, nil).Parse(context.Background(), path, "text/csv")
	assert.Equal(t, model.FileStatusParsed, outcome.Status)
	assert.Equal(t, "item, qty, unit\nconcrete, 10, cy", outcome.Text)
	assert.Equal(t, 2, outcome.Metadata["rows_sampled"])
}

func TestParse_CSVRowCap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&sb, "row%d,value\n", i)
	}
	path := writeFile(t, "big.csv", sb.String())

	outcome := New(nil, nil).Parse(context.Background(), path, "text/csv")
	assert.Equal(t, model.FileStatusParsed, outcome.Status)
	lines := strings.Split(outcome.Text, "\n")
	require.Len(t, lines, csvPreviewRows+1)
	assert.Equal(t, "…", lines[len(lines)-1])
	assert.Equal(t, csvPreviewRows, outcome.Metadata["rows_sampled"])
}

func TestParse_CSVEmpty(t *testing.T) {
	path := writeFile(t, "empty.csv", "")
	outcome := New(nil, nil).Parse(context.Background(), path, "text/csv")
	assert.Equal(t, model.FileStatusParsed, outcome.Status)
	assert.Equal(t, "Empty CSV", outcome.Error)
}

func writeTestDOCX(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	fw, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return path
}

func TestParse_DOCX(t *testing.T) {
	body := `<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <body>
    <p><r><t>General Conditions</t></r></p>
    <p><r><t></t></r></p>
    <tbl>
      <tr><tc><p><r><t>Scope</t></r></p></tc><tc><p><r><t>Sitework</t></r></p></tc></tr>
      <tr><tc><p><r><t>Bond</t></r></p></tc><tc><p><r><t>Required</t></r></p></tc></tr>
    </tbl>
  </body>
</document>`
	path := writeTestDOCX(t, body)

	outcome := New(nil, nil).Parse(context.Background(), path, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	require.Equal(t, model.FileStatusParsed, outcome.Status, outcome.Error)
	assert.Contains(t, outcome.Text, "General Conditions")
	assert.Contains(t, outcome.Text, "# Table 1")
	assert.Contains(t, outcome.Text, "R1C1: Scope | R1C2: Sitework")
	assert.Contains(t, outcome.Text, "R2C1: Bond | R2C2: Required")
	assert.Equal(t, 2, outcome.Metadata["paragraphs"])
	assert.Equal(t, 1, outcome.Metadata["tables"])
}

func TestParse_DOCXCorrupt(t *testing.T) {
	path := writeFile(t, "broken.docx", "not a zip at all")
	outcome := New(nil, nil).Parse(context.Background(), path, "application/msword")
	assert.Equal(t, model.FileStatusFailed, outcome.Status)
	assert.NotEmpty(t, outcome.Error)
}

func TestParse_DOCXMissingBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hollow.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	_, err = w.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	outcome := New(nil, nil).Parse(context.Background(), path, "application/msword")
	assert.Equal(t, model.FileStatusFailed, outcome.Status)
	assert.Contains(t, outcome.Error, "document.xml")
}

func TestParse_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quantities.xlsx")
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("Takeoff")
	require.NoError(t, err)
	row := sheet.AddRow()
	row.AddCell().SetString("Item")
	row.AddCell().SetString("Qty")
	row2 := sheet.AddRow()
	row2.AddCell().SetString("Concrete")
	row2.AddCell().SetString("10")
	require.NoError(t, wb.Save(path))

	outcome := New(nil, nil).Parse(context.Background(), path, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	require.Equal(t, model.FileStatusParsed, outcome.Status, outcome.Error)
	assert.Contains(t, outcome.Text, "# Sheet: Takeoff")
	assert.Contains(t, outcome.Text, "Takeoff!A1: Item; Takeoff!B1: Qty")
	assert.Contains(t, outcome.Text, "Takeoff!A2: Concrete; Takeoff!B2: 10")
	assert.Equal(t, 1, outcome.Metadata["sheets"])
	assert.Equal(t, 4, outcome.Metadata["cells_sampled"])
}

func TestParse_XLSXCorrupt(t *testing.T) {
	path := writeFile(t, "broken.xlsx", "not a workbook")
	outcome := New(nil, nil).Parse(context.Background(), path, "application/vnd.ms-excel")
	assert.Equal(t, model.FileStatusFailed, outcome.Status)
	assert.NotEmpty(t, outcome.Error)
}

func TestParse_PDFWithText(t *testing.T) {
	p := New(stubExtractor{text: "SECTION 03 30 00 CAST-IN-PLACE CONCRETE"}, nil)
	outcome := p.Parse(context.Background(), "/tmp/specs.pdf", "application/pdf")
	assert.Equal(t, model.FileStatusParsed, outcome.Status)
	assert.Equal(t, "SECTION 03 30 00 CAST-IN-PLACE CONCRETE", outcome.Text)
	assert.Empty(t, outcome.Error)
}

func TestParse_PDFNoText(t *testing.T) {
	p := New(stubExtractor{text: ""}, nil)
	outcome := p.Parse(context.Background(), "/tmp/scan.pdf", "application/pdf")
	assert.Equal(t, model.FileStatusParsed, outcome.Status)
	assert.Equal(t, "No extractable text", outcome.Error)
}

func TestParse_PDFExtractorErrorIsNotFatal(t *testing.T) {
	p := New(stubExtractor{err: assert.AnError}, nil)
	outcome := p.Parse(context.Background(), "/tmp/bad.pdf", "application/pdf")
	assert.Equal(t, model.FileStatusParsed, outcome.Status)
	assert.Equal(t, "No extractable text", outcome.Error)
}

func TestParse_CADStub(t *testing.T) {
	outcome := New(nil, nil).Parse(context.Background(), "/plans/A-101.dwg", "image/vnd.dwg")
	assert.Equal(t, model.FileStatusParsed, outcome.Status)
	assert.Empty(t, outcome.Text)
	assert.Empty(t, outcome.Error)
	assert.Equal(t, "A-101.dwg", outcome.Metadata["file_name"])
	assert.Equal(t, "Preview not available; metadata only", outcome.Metadata["note"])
}

func TestSnippet_Normalization(t *testing.T) {
	outcome := model.ParseOutcome{Text: "  line one\n\n  line   two  "}
	assert.Equal(t, "line one line two", outcome.Snippet())
}
