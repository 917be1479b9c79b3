package parse

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/bidintake/internal/model"
)

// decodeTolerant reads a file as UTF-8, falling back to Windows-1252 for
// byte sequences that are not valid UTF-8. Decoding never fails; garbled
// bytes become substituted characters rather than errors.
func decodeTolerant(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		// Single-byte decode cannot fail in practice; substitute as a last resort.
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), nil
	}
	return string(decoded), nil
}

func parseText(path, mimeType string) model.ParseOutcome {
	text, err := decodeTolerant(path)
	if err != nil {
		return failedOutcome(err.Error())
	}
	outcome := model.ParseOutcome{
		Status:   model.FileStatusParsed,
		Text:     truncate(text),
		Metadata: map[string]any{"mime": mimeType},
	}
	if strings.TrimSpace(text) == "" {
		outcome.Error = "Empty text file"
	}
	return outcome
}

// parseCSV previews up to 200 rows as comma-joined lines, with an ellipsis
// sentinel marking truncation.
func parseCSV(path, mimeType string) model.ParseOutcome {
	raw, err := decodeTolerant(path)
	if err != nil {
		return failedOutcome(err.Error())
	}

	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return failedOutcome(err.Error())
		}
		if len(rows) >= csvPreviewRows {
			rows = append(rows, "…")
			break
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		rows = append(rows, strings.Join(record, ", "))
	}

	text := truncate(strings.Join(rows, "\n"))
	sampled := len(rows)
	if sampled > csvPreviewRows {
		sampled = csvPreviewRows
	}
	outcome := model.ParseOutcome{
		Status: model.FileStatusParsed,
		Text:   text,
		Metadata: map[string]any{
			"mime":         mimeType,
			"rows_sampled": sampled,
		},
	}
	if text == "" {
		outcome.Error = "Empty CSV"
	}
	return outcome
}
