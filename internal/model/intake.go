package model

import "time"

// RunStatus represents the lifecycle state of an intake run.
type RunStatus string

const (
	RunStatusStaging RunStatus = "staging"
	RunStatusParsing RunStatus = "parsing"
	RunStatusReady   RunStatus = "ready"
	RunStatusFailed  RunStatus = "failed"
)

// FileStatus represents the parse state of a single intake file.
type FileStatus string

const (
	FileStatusPending FileStatus = "pending"
	FileStatusParsed  FileStatus = "parsed"
	FileStatusFailed  FileStatus = "failed"
)

// IntakeRun tracks one archive-intake attempt for a project.
type IntakeRun struct {
	RunID         string     `json:"run_id"`
	ProjectID     string     `json:"project_id"`
	SourceZip     string     `json:"source_zip"`
	StagedPath    string     `json:"staged_path"`
	ExtractedPath string     `json:"extracted_path"`
	ZipHash       string     `json:"zip_hash"`
	Status        RunStatus  `json:"status"`
	TotalFiles    int        `json:"total_files"`
	PendingFiles  int        `json:"pending_files"`
	ParsedFiles   int        `json:"parsed_files"`
	FailedFiles   int        `json:"failed_files"`
	LastError     string     `json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// IntakeFile is one file discovered inside an extracted archive.
// A file transitions pending -> parsed|failed exactly once; oversized files
// are created directly in failed state and never scheduled.
type IntakeFile struct {
	ID           string      `json:"id"`
	RunID        string      `json:"run_id"`
	ProjectID    string      `json:"project_id"`
	RelPath      string      `json:"rel_path"`
	MimeType     string      `json:"mime_type"`
	Size         int64       `json:"size"`
	Checksum     string      `json:"checksum"`
	ParsedStatus FileStatus  `json:"parsed_status"`
	PageCount    *int        `json:"page_count,omitempty"`
	Error        string      `json:"error,omitempty"`
	ArtifactPath string      `json:"artifact_path"`
	Details      FileDetails `json:"details"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// FileDetails is the free-form metadata+snippet blob stored with each file.
type FileDetails struct {
	Metadata map[string]any `json:"metadata"`
	Snippet  string         `json:"snippet,omitempty"`
}

// RiskFlag is a detected contractual red flag tied back to a file and line.
type RiskFlag struct {
	FileID    string `json:"file_id"`
	RelPath   string `json:"rel_path"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Line      int    `json:"line"`
	Snippet   string `json:"snippet"`
	RunID     string `json:"run_id"`
	ProjectID string `json:"project_id"`
}

// SummaryHighlight is one ranked snippet from the run-level summary.
type SummaryHighlight struct {
	FileID    string  `json:"file_id"`
	RelPath   string  `json:"rel_path"`
	Snippet   string  `json:"snippet"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank"`
	RunID     string  `json:"run_id"`
	ProjectID string  `json:"project_id"`
}

// FileSummary is the per-file entry of a RunSummary.
type FileSummary struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"project_id"`
	RelPath      string         `json:"rel_path"`
	Mime         string         `json:"mime"`
	Size         int64          `json:"size"`
	ParsedStatus FileStatus     `json:"parsed_status"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Error        string         `json:"error,omitempty"`
	PageCount    *int           `json:"page_count,omitempty"`
	Checksum     string         `json:"checksum"`
	ArtifactPath string         `json:"artifact_path"`
	Metadata     map[string]any `json:"metadata"`
	Snippet      string         `json:"snippet,omitempty"`
}

// RunSummary is the caller-facing view of a run, assembled on every poll.
type RunSummary struct {
	RunID              string             `json:"run_id"`
	ProjectID          string             `json:"project_id"`
	Status             RunStatus          `json:"status"`
	Total              int                `json:"total"`
	Pending            int                `json:"pending"`
	Parsed             int                `json:"parsed"`
	Failed             int                `json:"failed"`
	StartedAt          time.Time          `json:"started_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
	Items              []FileSummary      `json:"items"`
	RiskFlags          []RiskFlag         `json:"risk_flags"`
	RiskGeneratedAt    *time.Time         `json:"risk_generated_at,omitempty"`
	SummaryHighlights  []SummaryHighlight `json:"summary_highlights"`
	SummaryGeneratedAt *time.Time         `json:"summary_generated_at,omitempty"`
}
