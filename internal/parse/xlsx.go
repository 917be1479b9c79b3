package parse

import (
	"fmt"
	"strings"

	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bidintake/internal/model"
)

// parseXLSX renders each sheet as "Sheet!Coord: value" preview lines, capped
// at 200 rows per sheet with a "." truncation sentinel. Empty cells are
// skipped; sampled non-empty cells are counted in metadata.
func parseXLSX(path, mimeType string) model.ParseOutcome {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return failedOutcome(err.Error())
	}

	var lines []string
	cellCount := 0
	for _, sheet := range f.Sheets {
		lines = append(lines, "# Sheet: "+sheet.Name)
		for rowIndex, row := range sheet.Rows {
			if rowIndex >= xlsxPreviewRows {
				lines = append(lines, ".")
				break
			}
			var cells []string
			for colIndex, cell := range row.Cells {
				value := strings.TrimSpace(cell.String())
				if value == "" {
					continue
				}
				coord := cellCoordinate(colIndex, rowIndex)
				cells = append(cells, fmt.Sprintf("%s!%s: %s", sheet.Name, coord, value))
				cellCount++
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, "; "))
			}
		}
		lines = append(lines, "")
	}

	text := truncate(strings.Join(lines, "\n"))
	outcome := model.ParseOutcome{
		Status: model.FileStatusParsed,
		Text:   text,
		Metadata: map[string]any{
			"mime":          mimeType,
			"sheets":        len(f.Sheets),
			"cells_sampled": cellCount,
		},
	}
	if strings.TrimSpace(text) == "" {
		outcome.Error = "Empty workbook"
	}
	return outcome
}

// cellCoordinate converts zero-based column/row indices to A1 notation.
func cellCoordinate(col, row int) string {
	letters := ""
	for c := col; c >= 0; c = c/26 - 1 {
		letters = string(rune('A'+c%26)) + letters
	}
	return fmt.Sprintf("%s%d", letters, row+1)
}
