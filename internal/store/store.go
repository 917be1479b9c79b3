// Package store persists intake runs and their file records behind a single
// interface with SQLite and Postgres implementations.
package store

import (
	"context"

	"github.com/sells-group/bidintake/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	ProjectID string          `json:"project_id,omitempty"`
	Status    model.RunStatus `json:"status,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the intake pipeline. All
// operations are scoped to short-lived calls; no transaction spans file
// processing.
type Store interface {
	// Runs
	//
	// CreateRunWithFiles inserts the run and its file records in one
	// transaction so a half-created run is never observable.
	CreateRunWithFiles(ctx context.Context, run *model.IntakeRun, files []model.IntakeFile) error
	// FindRunByHash serves the dedup check. The (project_id, zip_hash) pair
	// is indexed but not UNIQUE: sequential relaunches are idempotent,
	// concurrent identical launches may still race to create duplicates.
	FindRunByHash(ctx context.Context, projectID, zipHash string) (*model.IntakeRun, error)
	GetRun(ctx context.Context, runID string) (*model.IntakeRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.IntakeRun, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, lastError string) error
	// RefreshRunCounts recomputes the run's counters from its file records
	// and derives status from them: parsing while any file is pending,
	// otherwise ready or failed. Terminal transitions stamp completed_at.
	RefreshRunCounts(ctx context.Context, runID string) (*model.IntakeRun, error)

	// Files
	ListFiles(ctx context.Context, runID string) ([]model.IntakeFile, error)
	ListFilesByStatus(ctx context.Context, runID string, status model.FileStatus) ([]model.IntakeFile, error)
	GetFile(ctx context.Context, fileID string) (*model.IntakeFile, error)
	PendingFileIDs(ctx context.Context, runID string) ([]string, error)
	// UpdateFileOutcome records the single pending -> parsed|failed
	// transition for a file.
	UpdateFileOutcome(ctx context.Context, fileID string, outcome FileOutcome) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// FileOutcome carries the fields written by a file's one processing step.
type FileOutcome struct {
	Status       model.FileStatus
	PageCount    *int
	Error        string
	ArtifactPath string
	Details      model.FileDetails
}
