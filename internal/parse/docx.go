package parse

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bidintake/internal/model"
)

// DOCX is a ZIP container; the main document body lives at word/document.xml.
// Paragraph text is flattened line by line, tables are rendered as numbered
// blocks of "R{row}C{col}: value" cells. Any open or decode failure is a hard
// parse failure for the file.

type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
	Tables     []docxTable     `xml:"tbl"`
}

type docxParagraph struct {
	Texts []string `xml:"r>t"`
}

func (p docxParagraph) text() string {
	return strings.Join(p.Texts, "")
}

type docxTable struct {
	Rows []docxTableRow `xml:"tr"`
}

type docxTableRow struct {
	Cells []docxTableCell `xml:"tc"`
}

type docxTableCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

func (c docxTableCell) text() string {
	parts := make([]string, 0, len(c.Paragraphs))
	for _, p := range c.Paragraphs {
		parts = append(parts, p.text())
	}
	return strings.Join(parts, "\n")
}

func parseDOCX(path, mimeType string) model.ParseOutcome {
	doc, err := readDOCX(path)
	if err != nil {
		return failedOutcome(err.Error())
	}

	var lines []string
	for _, para := range doc.Body.Paragraphs {
		if data := strings.TrimSpace(para.text()); data != "" {
			lines = append(lines, data)
		}
	}

	for tableIndex, table := range doc.Body.Tables {
		lines = append(lines, fmt.Sprintf("# Table %d", tableIndex+1))
		for rowIndex, row := range table.Rows {
			var cells []string
			for colIndex, cell := range row.Cells {
				value := strings.TrimSpace(cell.text())
				if value != "" {
					cells = append(cells, fmt.Sprintf("R%dC%d: %s", rowIndex+1, colIndex+1, value))
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " | "))
			}
		}
		lines = append(lines, "")
	}

	text := truncate(strings.Join(lines, "\n"))
	outcome := model.ParseOutcome{
		Status: model.FileStatusParsed,
		Text:   text,
		Metadata: map[string]any{
			"mime":       mimeType,
			"paragraphs": len(doc.Body.Paragraphs),
			"tables":     len(doc.Body.Tables),
		},
	}
	if text == "" {
		outcome.Error = "Empty document"
	}
	return outcome
}

func readDOCX(path string) (*docxDocument, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, eris.Wrap(err, "open docx")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, eris.Wrap(err, "open docx body")
		}
		defer rc.Close() //nolint:errcheck

		var doc docxDocument
		if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
			return nil, eris.Wrap(err, "decode docx body")
		}
		return &doc, nil
	}
	return nil, eris.New("docx missing word/document.xml")
}
