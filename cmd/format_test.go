package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/bidintake/internal/model"
)

func TestFormatRunSummary(t *testing.T) {
	now := time.Now().UTC()
	summary := &model.RunSummary{
		RunID:       "run_abc",
		ProjectID:   "p1",
		Status:      model.RunStatusFailed,
		Total:       2,
		Parsed:      1,
		Failed:      1,
		StartedAt:   now,
		CompletedAt: &now,
		Items: []model.FileSummary{
			{RelPath: "notes.txt", ParsedStatus: model.FileStatusParsed, Size: 120},
			{RelPath: "huge.pdf", ParsedStatus: model.FileStatusFailed, Size: 99, Error: "File exceeds 25MB guard"},
		},
		RiskFlags: []model.RiskFlag{
			{Code: "bonding", Message: "Bonding requirement", RelPath: "notes.txt", Line: 1},
		},
		SummaryHighlights: []model.SummaryHighlight{
			{Rank: 1, Snippet: "Performance bond required.", RelPath: "notes.txt"},
		},
	}

	var buf bytes.Buffer
	formatRunSummary(&buf, summary)
	out := buf.String()

	assert.Contains(t, out, "run_abc")
	assert.Contains(t, out, "2 total, 0 pending, 1 parsed, 1 failed")
	assert.Contains(t, out, "huge.pdf")
	assert.Contains(t, out, "[bonding]")
	assert.Contains(t, out, "1. Performance bond required.")
}

func TestFormatRunsList(t *testing.T) {
	runs := []model.IntakeRun{
		{RunID: "run_1", ProjectID: "p1", Status: model.RunStatusReady, TotalFiles: 3, CreatedAt: time.Now()},
		{RunID: "run_2", ProjectID: "p2", Status: model.RunStatusParsing, TotalFiles: 1, CreatedAt: time.Now()},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "run_1")
	assert.Contains(t, out, "parsing")
}
