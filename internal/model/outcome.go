package model

import (
	"strings"
	"time"
)

const snippetChars = 500

// ParseOutcome is the transient result of parsing one file. It is consumed
// by classification and artifact persistence; its JSON projection is the
// durable Artifact.
type ParseOutcome struct {
	Status    FileStatus
	Text      string
	Metadata  map[string]any
	PageCount *int
	Error     string
}

// Snippet returns the whitespace-normalized first 500 characters of the
// extracted text, or "" when there is no text.
func (o ParseOutcome) Snippet() string {
	data := strings.TrimSpace(o.Text)
	if data == "" {
		return ""
	}
	normalized := strings.Join(strings.Fields(data), " ")
	if len(normalized) > snippetChars {
		return normalized[:snippetChars]
	}
	return normalized
}

// Artifact is the durable JSON snapshot of one file's parse outcome,
// written once per file.
type Artifact struct {
	FileID       string         `json:"file_id"`
	RunID        string         `json:"run_id"`
	ProjectID    string         `json:"project_id"`
	RelPath      string         `json:"rel_path"`
	Mime         string         `json:"mime"`
	Size         int64          `json:"size"`
	ParsedStatus FileStatus     `json:"parsed_status"`
	PageCount    *int           `json:"page_count"`
	Snippet      string         `json:"snippet,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	Error        string         `json:"error,omitempty"`
	GeneratedAt  time.Time      `json:"generated_at"`
	Text         string         `json:"text"`
}
