// Package ocr extracts text and page counts from PDF files through a layered
// strategy: a fast local extractor first, then progressively more expensive
// fallbacks for scanned documents.
package ocr

import (
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bidintake/internal/config"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates a layered Extractor based on config. The ocrmypdf
// fallback layer is attached only when OCR is enabled and the tool is
// actually present on the host.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	layers := []Extractor{NewPdfToText(cfg.PdfToTextPath)}

	switch cfg.Provider {
	case "local", "":
		if cfg.Enabled {
			if path, err := exec.LookPath(ocrMyPDFBin(cfg.OcrMyPDFPath)); err == nil {
				layers = append(layers, NewOcrMyPDF(path, cfg.Language, cfg.TimeoutSecs))
			}
		}
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		layers = append(layers, NewMistralOCR(cfg.MistralKey, cfg.MistralModel))
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}

	return &Layered{layers: layers}, nil
}

// Layered tries each extractor in order and returns the first non-empty
// text. Layer errors are logged and treated as empty output so a scanned or
// malformed PDF degrades instead of failing the file outright.
type Layered struct {
	layers []Extractor
}

// ExtractText runs the layers in order. It returns "" with a nil error when
// every layer comes back empty; the caller decides how to report that.
func (l *Layered) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	for _, layer := range l.layers {
		text, err := layer.ExtractText(ctx, pdfPath)
		if err != nil {
			zap.L().Debug("ocr: extraction layer failed",
				zap.String("pdf", pdfPath),
				zap.Error(err),
			)
			continue
		}
		if strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), nil
		}
	}
	return "", nil
}

func ocrMyPDFBin(path string) string {
	if path == "" {
		return "ocrmypdf"
	}
	return path
}
