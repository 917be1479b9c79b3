package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// PageCounter reports PDF page counts via the pdfinfo CLI tool.
type PageCounter struct {
	binPath string
}

// NewPageCounter creates a PageCounter. If binPath is empty, "pdfinfo" is used.
func NewPageCounter(binPath string) *PageCounter {
	if binPath == "" {
		binPath = "pdfinfo"
	}
	return &PageCounter{binPath: binPath}
}

// PageCount parses the "Pages:" line of pdfinfo output. Callers treat any
// error as "page count unknown"; counting never gates text extraction.
func (p *PageCounter) PageCount(ctx context.Context, pdfPath string) (int, error) {
	cmd := exec.CommandContext(ctx, p.binPath, pdfPath)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return 0, eris.Wrapf(err, "ocr: pdfinfo failed for %s", pdfPath)
	}

	for _, line := range strings.Split(stdout.String(), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, "Pages:"))
		count, err := strconv.Atoi(value)
		if err != nil {
			return 0, eris.Wrapf(err, "ocr: parse page count %q", value)
		}
		return count, nil
	}
	return 0, eris.Errorf("ocr: no Pages line in pdfinfo output for %s", pdfPath)
}
