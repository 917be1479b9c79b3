package parse

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/bidintake/internal/model"
)

// parsePDF extracts text through the layered OCR strategy. Empty text after
// every layer is still a parsed outcome, with an explanatory error string, so
// the run can proceed. Page count is best-effort and independent of which
// text layer succeeded.
func (p *Parser) parsePDF(ctx context.Context, path, mimeType string) model.ParseOutcome {
	text := ""
	if p.pdf != nil {
		extracted, err := p.pdf.ExtractText(ctx, path)
		if err != nil {
			zap.L().Debug("parse: pdf text extraction failed",
				zap.String("path", path),
				zap.Error(err),
			)
		} else {
			text = extracted
		}
	}

	var pageCount *int
	if p.pages != nil {
		if count, err := p.pages.PageCount(ctx, path); err == nil {
			pageCount = &count
		} else {
			zap.L().Debug("parse: pdf page count unavailable",
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}

	outcome := model.ParseOutcome{
		Status:    model.FileStatusParsed,
		Text:      truncate(text),
		Metadata:  map[string]any{"mime": mimeType},
		PageCount: pageCount,
	}
	if strings.TrimSpace(text) == "" {
		outcome.Error = "No extractable text"
	}
	return outcome
}
