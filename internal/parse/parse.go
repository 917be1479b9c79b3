// Package parse turns individual intake files into uniform ParseOutcome
// records. Dispatch is by file extension, not declared mime: the extension is
// what the extraction listing was filtered on, and the declared mime is only
// carried through as metadata.
package parse

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/sells-group/bidintake/internal/model"
	"github.com/sells-group/bidintake/internal/ocr"
)

const (
	maxPreviewChars = 100_000
	csvPreviewRows  = 200
	xlsxPreviewRows = 200
)

// Parser extracts text and metadata from supported document types.
type Parser struct {
	pdf   ocr.Extractor
	pages *ocr.PageCounter
}

// New creates a Parser. pages may be nil to skip PDF page counting.
func New(pdf ocr.Extractor, pages *ocr.PageCounter) *Parser {
	return &Parser{pdf: pdf, pages: pages}
}

// Parse dispatches on the lowercased file extension and returns an outcome
// for every input: unsupported extensions fail the file, they never panic or
// abort the run.
func (p *Parser) Parse(ctx context.Context, path, mimeType string) model.ParseOutcome {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return p.parsePDF(ctx, path, mimeType)
	case ".docx":
		return parseDOCX(path, mimeType)
	case ".csv":
		return parseCSV(path, mimeType)
	case ".txt", ".text":
		return parseText(path, mimeType)
	case ".xlsx":
		return parseXLSX(path, mimeType)
	case ".dwg", ".dxf":
		return cadStub(path, mimeType)
	default:
		return model.ParseOutcome{
			Status:   model.FileStatusFailed,
			Metadata: map[string]any{},
			Error:    "Unsupported file type: " + strings.ToLower(filepath.Ext(path)),
		}
	}
}

// truncate bounds preview text regardless of source type so artifacts stay a
// manageable size. The marker is visible in downstream previews.
func truncate(text string) string {
	if len(text) <= maxPreviewChars {
		return text
	}
	return text[:maxPreviewChars] + "\n...\n[truncated]"
}

func failedOutcome(err string) model.ParseOutcome {
	return model.ParseOutcome{
		Status:   model.FileStatusFailed,
		Metadata: map[string]any{},
		Error:    err,
	}
}
