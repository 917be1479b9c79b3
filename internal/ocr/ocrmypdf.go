package ocr

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

const defaultOCRTimeout = 300 * time.Second

// OcrMyPDF rasterizes and OCRs scanned PDFs via the ocrmypdf CLI, reading
// the recognized text back from a sidecar file.
type OcrMyPDF struct {
	binPath  string
	language string
	timeout  time.Duration
}

// NewOcrMyPDF creates an OcrMyPDF extractor. timeoutSecs <= 0 falls back to
// the default bounded timeout.
func NewOcrMyPDF(binPath, language string, timeoutSecs int) *OcrMyPDF {
	if binPath == "" {
		binPath = "ocrmypdf"
	}
	timeout := defaultOCRTimeout
	if timeoutSecs > 0 {
		timeout = time.Duration(timeoutSecs) * time.Second
	}
	return &OcrMyPDF{binPath: binPath, language: language, timeout: timeout}
}

// ExtractText invokes ocrmypdf with a sidecar text output and a bounded
// timeout. Temporary artifacts are removed on every exit path.
func (o *OcrMyPDF) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "bidintake_ocr_")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create temp dir")
	}
	defer os.RemoveAll(tmpDir) //nolint:errcheck

	outputPDF := filepath.Join(tmpDir, "ocr.pdf")
	sidecar := filepath.Join(tmpDir, "sidecar.txt")

	args := []string{"--sidecar", sidecar, "--quiet", "--skip-text"}
	if o.language != "" {
		args = append(args, "-l", o.language)
	}
	args = append(args, pdfPath, outputPDF)

	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, o.binPath, args...)
	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: ocrmypdf failed for %s", pdfPath)
	}

	data, err := os.ReadFile(sidecar)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: read sidecar for %s", pdfPath)
	}
	return string(data), nil
}
