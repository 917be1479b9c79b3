// Package intake orchestrates the archive-intake pipeline: zip validation
// and staging, extraction, per-file parsing, classification, artifact
// persistence, and run-level risk and summary generation.
package intake

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bidintake/internal/archive"
	"github.com/sells-group/bidintake/internal/config"
	"github.com/sells-group/bidintake/internal/model"
	"github.com/sells-group/bidintake/internal/parse"
	"github.com/sells-group/bidintake/internal/store"
)

// maxFileSizeBytes is the per-file guard; anything larger is recorded as an
// eager failure and never parsed.
const maxFileSizeBytes = 25 * 1024 * 1024

// supportedExtensions maps the file types the pipeline accepts to their MIME
// types. Everything else inside the archive is ignored.
var supportedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv",
	".txt":  "text/plain",
	".text": "text/plain",
	".dwg":  "application/acad",
	".dxf":  "image/vnd.dxf",
}

// LaunchRequest carries the inputs of one intake launch.
type LaunchRequest struct {
	ProjectID  string `json:"project_id"`
	ZipPath    string `json:"zip_path"`
	Background bool   `json:"background"`
}

// Service runs the intake pipeline against a Store and a Parser.
type Service struct {
	cfg    *config.Config
	st     store.Store
	parser *parse.Parser
	events *EventLog
	paths  layout

	mu       sync.Mutex
	inflight map[string]struct{}
	sem      chan struct{}
	wg       sync.WaitGroup
}

// New creates an intake service. Background runs are processed by at most
// cfg.Ingest.MaxWorkers goroutines.
func New(cfg *config.Config, st store.Store, parser *parse.Parser) *Service {
	workers := cfg.Ingest.MaxWorkers
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		cfg:      cfg,
		st:       st,
		parser:   parser,
		events:   NewEventLog(cfg.Ingest.EventLogPath),
		paths:    layout{dataRoot: cfg.Paths.DataRoot},
		inflight: make(map[string]struct{}),
		sem:      make(chan struct{}, workers),
	}
}

// Launch validates and stages a zip, extracts it, records the run and its
// files, and either schedules, runs, or short-circuits processing. Launching
// the same archive for the same project again returns the existing run.
func (s *Service) Launch(ctx context.Context, req LaunchRequest) (*model.RunSummary, error) {
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		return nil, &ServiceError{
			StatusCode: 400,
			Message:    "Invalid project",
			Detail:     "Project ID cannot be empty",
			Hint:       "Provide a non-empty project_id",
		}
	}

	zipPath, err := normalizeZipPath(req.ZipPath)
	if err != nil {
		return nil, err
	}
	if err := validateZip(zipPath); err != nil {
		return nil, err
	}

	zipHash, err := hashFile(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "intake: hash %s", zipPath)
	}

	existing, err := s.st.FindRunByHash(ctx, projectID, zipHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		refreshed, err := s.st.RefreshRunCounts(ctx, existing.RunID)
		if err != nil {
			return nil, err
		}
		zap.L().Info("reusing existing intake run",
			zap.String("run_id", refreshed.RunID), zap.String("project_id", projectID))
		return s.buildSummary(ctx, refreshed)
	}

	timestamp := time.Now().UTC().Format("20060102150405")

	stagedZip := s.paths.stagedZip(projectID, timestamp)
	if err := copyFile(zipPath, stagedZip); err != nil {
		return nil, eris.Wrapf(err, "intake: stage %s", zipPath)
	}

	extractedRoot := s.paths.extractionDir(projectID, timestamp)
	if err := os.MkdirAll(extractedRoot, 0o755); err != nil {
		return nil, eris.Wrapf(err, "intake: create %s", extractedRoot)
	}
	if _, err := archive.Extract(stagedZip, extractedRoot); err != nil {
		if errors.Is(err, archive.ErrCorrupt) {
			return nil, &ServiceError{
				StatusCode: 400,
				Message:    "Corrupt ZIP",
				Detail:     "Unable to read archive contents",
				Hint:       "Recreate the archive and retry",
			}
		}
		return nil, &ServiceError{
			StatusCode: 400,
			Message:    "Extraction failed",
			Detail:     err.Error(),
			Hint:       "Ensure the ZIP file is not corrupted",
		}
	}

	artifactsDir := s.paths.artifactDir(projectID)
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "intake: create %s", artifactsDir)
	}

	now := time.Now().UTC()
	run := &model.IntakeRun{
		RunID:         newID("run"),
		ProjectID:     projectID,
		SourceZip:     zipPath,
		StagedPath:    stagedZip,
		ExtractedPath: extractedRoot,
		ZipHash:       zipHash,
		Status:        model.RunStatusStaging,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	files, err := s.prepareFileRecords(run, extractedRoot, artifactsDir)
	if err != nil {
		return nil, err
	}

	var pending, eagerFailures int
	for _, f := range files {
		switch f.ParsedStatus {
		case model.FileStatusPending:
			pending++
		case model.FileStatusFailed:
			eagerFailures++
		}
	}

	run.TotalFiles = len(files)
	run.PendingFiles = pending
	run.FailedFiles = eagerFailures
	if pending > 0 {
		run.Status = model.RunStatusParsing
	} else {
		if eagerFailures > 0 {
			run.Status = model.RunStatusFailed
		} else {
			run.Status = model.RunStatusReady
		}
		completed := time.Now().UTC()
		run.CompletedAt = &completed
	}

	if err := s.st.CreateRunWithFiles(ctx, run, files); err != nil {
		return nil, err
	}

	s.events.Append(map[string]any{
		"event":      "run_launch",
		"run_id":     run.RunID,
		"project_id": projectID,
		"files":      run.TotalFiles,
		"pending":    pending,
		"failed":     eagerFailures,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	})

	// Oversized files never enter parsing, so their artifacts are written
	// here, after the run is durable.
	for i := range files {
		if files[i].ParsedStatus == model.FileStatusPending {
			continue
		}
		s.writeArtifact(&files[i], model.ParseOutcome{
			Status:    files[i].ParsedStatus,
			Metadata:  files[i].Details.Metadata,
			PageCount: files[i].PageCount,
			Error:     files[i].Error,
		})
	}

	if pending > 0 && req.Background {
		s.schedule(run.RunID)
		return s.buildSummary(ctx, run)
	}
	if pending > 0 {
		// A processing failure is reflected in the run's terminal state; the
		// launch itself still returns the summary.
		_ = s.ProcessRun(ctx, run.RunID)
		return s.GetStatus(ctx, run.RunID)
	}
	return s.buildSummary(ctx, run)
}

// GetStatus refreshes a run's counters and returns its full summary.
func (s *Service) GetStatus(ctx context.Context, runID string) (*model.RunSummary, error) {
	if _, err := s.st.GetRun(ctx, runID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &ServiceError{
				StatusCode: 404,
				Message:    "Run not found",
				Detail:     fmt.Sprintf("No intake run matches id %s", runID),
				Hint:       "Verify run_id",
			}
		}
		return nil, err
	}

	run, err := s.st.RefreshRunCounts(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.buildSummary(ctx, run)
}

// ListRuns lists intake runs matching the filter.
func (s *Service) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.IntakeRun, error) {
	return s.st.ListRuns(ctx, filter)
}

// Wait blocks until every scheduled background run has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// buildSummary assembles the caller-facing view of a run: its counters, all
// file records ordered by path, and any persisted risk/summary snapshots.
func (s *Service) buildSummary(ctx context.Context, run *model.IntakeRun) (*model.RunSummary, error) {
	files, err := s.st.ListFiles(ctx, run.RunID)
	if err != nil {
		return nil, err
	}

	items := make([]model.FileSummary, 0, len(files))
	for _, f := range files {
		updated := f.UpdatedAt
		if updated.IsZero() {
			updated = run.UpdatedAt
		}
		metadata := f.Details.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		items = append(items, model.FileSummary{
			ID:           f.ID,
			ProjectID:    f.ProjectID,
			RelPath:      f.RelPath,
			Mime:         f.MimeType,
			Size:         f.Size,
			ParsedStatus: f.ParsedStatus,
			UpdatedAt:    updated,
			Error:        f.Error,
			PageCount:    f.PageCount,
			Checksum:     f.Checksum,
			ArtifactPath: f.ArtifactPath,
			Metadata:     metadata,
			Snippet:      f.Details.Snippet,
		})
	}

	flags, riskGeneratedAt := s.loadRiskFlags(run.ProjectID, run.ZipHash)
	highlights, summaryGeneratedAt := s.loadSummaryHighlights(run.ProjectID, run.ZipHash)

	return &model.RunSummary{
		RunID:              run.RunID,
		ProjectID:          run.ProjectID,
		Status:             run.Status,
		Total:              run.TotalFiles,
		Pending:            run.PendingFiles,
		Parsed:             run.ParsedFiles,
		Failed:             run.FailedFiles,
		StartedAt:          run.CreatedAt,
		UpdatedAt:          run.UpdatedAt,
		CompletedAt:        run.CompletedAt,
		Items:              items,
		RiskFlags:          flags,
		RiskGeneratedAt:    riskGeneratedAt,
		SummaryHighlights:  highlights,
		SummaryGeneratedAt: summaryGeneratedAt,
	}, nil
}

// prepareFileRecords walks the extraction tree and creates one record per
// supported file. Files that cannot be stat'd are skipped; oversized files
// are recorded as failed up front.
func (s *Service) prepareFileRecords(run *model.IntakeRun, extractedRoot, artifactsDir string) ([]model.IntakeFile, error) {
	var records []model.IntakeFile

	err := filepath.WalkDir(extractedRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		mime, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			zap.L().Debug("skipping unreadable file", zap.String("path", path), zap.Error(err))
			return nil
		}

		rel, err := filepath.Rel(extractedRoot, path)
		if err != nil {
			return eris.Wrapf(err, "intake: relativize %s", path)
		}
		relPath := filepath.ToSlash(rel)

		checksum, err := hashFile(path)
		if err != nil {
			zap.L().Debug("skipping unreadable file", zap.String("path", path), zap.Error(err))
			return nil
		}

		fileID := newID("file")
		status := model.FileStatusPending
		errMsg := ""
		metadata := map[string]any{"mime": mime}
		if info.Size() > maxFileSizeBytes {
			status = model.FileStatusFailed
			errMsg = fmt.Sprintf("File exceeds %dMB guard", maxFileSizeBytes/(1024*1024))
			metadata["skipped"] = true
		}

		records = append(records, model.IntakeFile{
			ID:           fileID,
			RunID:        run.RunID,
			ProjectID:    run.ProjectID,
			RelPath:      relPath,
			MimeType:     mime,
			Size:         info.Size(),
			Checksum:     checksum,
			ParsedStatus: status,
			Error:        errMsg,
			ArtifactPath: filepath.Join(artifactsDir, fileID+".json"),
			Details:      model.FileDetails{Metadata: metadata},
			UpdatedAt:    time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "intake: enumerate %s", extractedRoot)
	}

	return records, nil
}

func normalizeZipPath(zipPath string) (string, error) {
	cleaned := strings.Trim(strings.TrimSpace(zipPath), `"`)
	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", eris.Wrapf(err, "intake: resolve %s", cleaned)
	}
	return abs, nil
}

func validateZip(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ServiceError{
			StatusCode: 404,
			Message:    "ZIP not found",
			Detail:     fmt.Sprintf("No file at %s", path),
			Hint:       "Check the path or share access",
		}
	}
	if info.IsDir() {
		return &ServiceError{
			StatusCode: 400,
			Message:    "Invalid ZIP",
			Detail:     fmt.Sprintf("%s is not a file", path),
			Hint:       "Provide a .zip archive",
		}
	}
	if strings.ToLower(filepath.Ext(path)) != ".zip" {
		return &ServiceError{
			StatusCode: 400,
			Message:    "Unsupported archive",
			Detail:     "Only .zip archives are supported",
			Hint:       "Compress files into a ZIP before launching intake",
		}
	}
	return nil
}

// hashFile streams the file through SHA-256 in 1MB blocks.
func hashFile(path string) (string, error) {
	handle, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer handle.Close() //nolint:errcheck

	digest := sha256.New()
	if _, err := io.CopyBuffer(digest, handle, make([]byte, 1024*1024)); err != nil {
		return "", err
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck
		return err
	}
	return out.Close()
}

func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
