package parse

import (
	"path/filepath"

	"github.com/sells-group/bidintake/internal/model"
)

// cadStub covers .dwg/.dxf drawings: no text extraction is attempted, but
// the file still parses successfully as a metadata-only record.
func cadStub(path, mimeType string) model.ParseOutcome {
	return model.ParseOutcome{
		Status: model.FileStatusParsed,
		Metadata: map[string]any{
			"mime":      mimeType,
			"note":      "Preview not available; metadata only",
			"file_name": filepath.Base(path),
		},
	}
}
