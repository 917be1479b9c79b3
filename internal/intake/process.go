package intake

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bidintake/internal/classify"
	"github.com/sells-group/bidintake/internal/model"
	"github.com/sells-group/bidintake/internal/normalize"
	"github.com/sells-group/bidintake/internal/risk"
	"github.com/sells-group/bidintake/internal/store"
	"github.com/sells-group/bidintake/internal/summarize"
)

// ProcessRun drives a run through parsing to a terminal state. Per-file
// parse failures are recorded on the file; only infrastructural failures
// (store, filesystem walk) fail the run itself. Any escaping error marks the
// run failed before being returned.
func (s *Service) ProcessRun(ctx context.Context, runID string) error {
	start := time.Now()

	summary, err := s.runPipeline(ctx, runID)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		zap.L().Error("intake run failed", zap.String("run_id", runID), zap.Error(err))
		if updateErr := s.st.UpdateRunStatus(ctx, runID, model.RunStatusFailed, err.Error()); updateErr != nil {
			zap.L().Error("failed to mark run failed", zap.String("run_id", runID), zap.Error(updateErr))
		}
		s.events.Append(map[string]any{
			"event":       "run_failed",
			"run_id":      runID,
			"error":       err.Error(),
			"duration_ms": duration,
			"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		})
		return err
	}
	if summary == nil {
		// Run vanished between scheduling and processing.
		return nil
	}

	s.events.Append(map[string]any{
		"event":              "run_complete",
		"run_id":             runID,
		"project_id":         summary.ProjectID,
		"status":             summary.Status,
		"duration_ms":        duration,
		"parsed":             summary.Parsed,
		"failed":             summary.Failed,
		"risk_flags":         len(summary.RiskFlags),
		"summary_highlights": len(summary.SummaryHighlights),
		"timestamp":          time.Now().UTC().Format(time.RFC3339Nano),
	})
	return nil
}

func (s *Service) runPipeline(ctx context.Context, runID string) (*model.RunSummary, error) {
	if _, err := s.st.GetRun(ctx, runID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if err := s.st.UpdateRunStatus(ctx, runID, model.RunStatusParsing, ""); err != nil {
		return nil, err
	}

	fileIDs, err := s.st.PendingFileIDs(ctx, runID)
	if err != nil {
		return nil, err
	}
	for _, fileID := range fileIDs {
		if err := s.ProcessFile(ctx, runID, fileID); err != nil {
			return nil, err
		}
	}

	run, err := s.st.RefreshRunCounts(ctx, runID)
	if err != nil {
		return nil, err
	}

	var flags []model.RiskFlag
	var riskGeneratedAt *time.Time
	var highlights []model.SummaryHighlight
	var summaryGeneratedAt *time.Time

	if run.PendingFiles == 0 {
		flags, riskGeneratedAt, err = s.generateRiskFlags(ctx, run)
		if err != nil {
			return nil, err
		}
		highlights, summaryGeneratedAt = s.generateSummaryHighlights(ctx, run)
	}

	summary, err := s.buildSummary(ctx, run)
	if err != nil {
		return nil, err
	}
	if flags != nil {
		summary.RiskFlags = flags
		summary.RiskGeneratedAt = riskGeneratedAt
	}
	if highlights != nil {
		summary.SummaryHighlights = highlights
		summary.SummaryGeneratedAt = summaryGeneratedAt
	}
	return summary, nil
}

// ProcessFile runs the pending -> parsed|failed transition for one file:
// parse, sanitize, classify, persist the outcome, write the artifact, and
// refresh the run's counters. Settled files only refresh the counters.
func (s *Service) ProcessFile(ctx context.Context, runID, fileID string) error {
	record, err := s.st.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	run, err := s.st.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	// Already settled by an earlier pass.
	if record.ParsedStatus != model.FileStatusPending {
		_, err := s.st.RefreshRunCounts(ctx, runID)
		return err
	}

	filePath := filepath.Join(run.ExtractedPath, filepath.FromSlash(record.RelPath))
	if _, err := os.Stat(filePath); err != nil {
		if updateErr := s.st.UpdateFileOutcome(ctx, record.ID, store.FileOutcome{
			Status:       model.FileStatusFailed,
			Error:        "Extracted file not found",
			ArtifactPath: record.ArtifactPath,
			Details:      record.Details,
		}); updateErr != nil {
			return updateErr
		}
		_, err := s.st.RefreshRunCounts(ctx, runID)
		return err
	}

	outcome := s.parser.Parse(ctx, filePath, record.MimeType)

	sanitized, redacted := normalize.Sanitize(outcome.Text, s.cfg.Ingest.RedactSensitive)
	outcome.Text = sanitized

	sectionTag := classify.Section(outcome.Text, record.RelPath)
	discipline := classify.Discipline(outcome.Text)

	metadata := outcome.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	if redacted {
		metadata["redacted"] = "true"
	}
	if sectionTag != "" {
		metadata["section_tag"] = sectionTag
	}
	if discipline != "" {
		if _, exists := metadata["discipline"]; !exists {
			metadata["discipline"] = discipline
		}
	}
	outcome.Metadata = metadata

	status := outcome.Status
	if status != model.FileStatusParsed && status != model.FileStatusFailed {
		status = model.FileStatusParsed
	}

	if err := s.st.UpdateFileOutcome(ctx, record.ID, store.FileOutcome{
		Status:       status,
		PageCount:    outcome.PageCount,
		Error:        outcome.Error,
		ArtifactPath: record.ArtifactPath,
		Details:      model.FileDetails{Metadata: metadata, Snippet: outcome.Snippet()},
	}); err != nil {
		return err
	}

	record.ParsedStatus = status
	record.PageCount = outcome.PageCount
	record.Error = outcome.Error
	s.writeArtifact(record, outcome)

	_, err = s.st.RefreshRunCounts(ctx, runID)
	return err
}

// writeArtifact persists the durable JSON snapshot of one file's outcome.
// Failures are logged and swallowed; the database record is authoritative.
func (s *Service) writeArtifact(file *model.IntakeFile, outcome model.ParseOutcome) {
	artifact := model.Artifact{
		FileID:       file.ID,
		RunID:        file.RunID,
		ProjectID:    file.ProjectID,
		RelPath:      file.RelPath,
		Mime:         file.MimeType,
		Size:         file.Size,
		ParsedStatus: file.ParsedStatus,
		PageCount:    outcome.PageCount,
		Snippet:      outcome.Snippet(),
		Metadata:     outcome.Metadata,
		Error:        outcome.Error,
		GeneratedAt:  time.Now().UTC(),
		Text:         outcome.Text,
	}

	if err := os.MkdirAll(filepath.Dir(file.ArtifactPath), 0o755); err != nil {
		zap.L().Debug("failed to create artifact dir", zap.String("path", file.ArtifactPath), zap.Error(err))
		return
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		zap.L().Debug("failed to encode artifact", zap.String("file_id", file.ID), zap.Error(err))
		return
	}
	if err := os.WriteFile(file.ArtifactPath, data, 0o644); err != nil {
		zap.L().Debug("failed to write artifact", zap.String("path", file.ArtifactPath), zap.Error(err))
	}
}

// readArtifact loads a file's persisted artifact. Missing or malformed
// artifacts are skipped with a debug log.
func readArtifact(record *model.IntakeFile) (*model.Artifact, bool) {
	raw, err := os.ReadFile(record.ArtifactPath)
	if err != nil {
		zap.L().Debug("artifact not available", zap.String("file_id", record.ID), zap.Error(err))
		return nil, false
	}
	var artifact model.Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		zap.L().Debug("malformed artifact", zap.String("path", record.ArtifactPath), zap.Error(err))
		return nil, false
	}
	return &artifact, true
}

// generateRiskFlags scans the text of every parsed file's artifact for
// contractual red flags, deduplicates them per (file, code, line), and
// persists the snapshot keyed by (project, zip hash).
func (s *Service) generateRiskFlags(ctx context.Context, run *model.IntakeRun) ([]model.RiskFlag, *time.Time, error) {
	records, err := s.st.ListFilesByStatus(ctx, run.RunID, model.FileStatusParsed)
	if err != nil {
		return nil, nil, err
	}

	type flagKey struct {
		fileID string
		code   string
		line   int
	}
	seen := make(map[flagKey]struct{})
	flags := []model.RiskFlag{}

	for i := range records {
		artifact, ok := readArtifact(&records[i])
		if !ok || artifact.Text == "" {
			continue
		}
		for _, flag := range risk.Detect(artifact.Text) {
			key := flagKey{fileID: records[i].ID, code: flag.Code, line: flag.Line}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			flags = append(flags, model.RiskFlag{
				FileID:    records[i].ID,
				RelPath:   records[i].RelPath,
				Code:      flag.Code,
				Message:   flag.Message,
				Line:      flag.Line,
				Snippet:   flag.Snippet,
				RunID:     run.RunID,
				ProjectID: run.ProjectID,
			})
		}
	}

	generatedAt := time.Now().UTC()
	snapshot := riskSnapshot{
		RunID:       run.RunID,
		ProjectID:   run.ProjectID,
		ZipHash:     run.ZipHash,
		GeneratedAt: generatedAt.Format(time.RFC3339Nano),
		Flags:       flags,
	}
	if err := writeSnapshot(s.paths.riskFlagsPath(run.ProjectID, run.ZipHash), snapshot); err != nil {
		zap.L().Debug("failed to persist risk flags", zap.String("run_id", run.RunID), zap.Error(err))
	}

	return flags, &generatedAt, nil
}

// generateSummaryHighlights summarizes the parsed artifacts into ranked
// highlights and persists both the JSON snapshot and a markdown companion.
// Any failure degrades to an empty result.
func (s *Service) generateSummaryHighlights(ctx context.Context, run *model.IntakeRun) ([]model.SummaryHighlight, *time.Time) {
	records, err := s.st.ListFilesByStatus(ctx, run.RunID, model.FileStatusParsed)
	if err != nil {
		zap.L().Debug("summary highlight generation failed", zap.String("run_id", run.RunID), zap.Error(err))
		return []model.SummaryHighlight{}, nil
	}

	var sources []summarize.Source
	for i := range records {
		artifact, ok := readArtifact(&records[i])
		if !ok {
			continue
		}
		if strings.TrimSpace(artifact.Text) == "" {
			continue
		}
		sources = append(sources, summarize.Source{
			DocumentID: records[i].ID,
			RelPath:    records[i].RelPath,
			Text:       artifact.Text,
		})
	}

	result := summarize.Documents(sources, summarize.DefaultMaxSentences)

	highlights := []model.SummaryHighlight{}
	for _, item := range result.Highlights {
		highlights = append(highlights, model.SummaryHighlight{
			FileID:    item.DocumentID,
			RelPath:   item.RelPath,
			Snippet:   item.Snippet,
			Score:     item.Score,
			Rank:      item.Rank,
			RunID:     run.RunID,
			ProjectID: run.ProjectID,
		})
	}

	generatedAt := time.Now().UTC()
	snapshot := summarySnapshot{
		RunID:       run.RunID,
		ProjectID:   run.ProjectID,
		ZipHash:     run.ZipHash,
		GeneratedAt: generatedAt.Format(time.RFC3339Nano),
		Highlights:  highlights,
		Overview:    result.Overview,
		WordCount:   result.WordCount,
		Documents:   result.DocumentCount,
	}
	if err := writeSnapshot(s.paths.summaryHighlightsPath(run.ProjectID, run.ZipHash), snapshot); err != nil {
		zap.L().Debug("failed to persist summary highlights", zap.String("run_id", run.RunID), zap.Error(err))
	}

	markdown := summarize.RenderMarkdown(result, generatedAt.Format(time.RFC3339Nano))
	markdownPath := s.paths.summaryMarkdownPath(run.ProjectID, run.ZipHash)
	if err := os.WriteFile(markdownPath, []byte(markdown), 0o644); err != nil {
		zap.L().Debug("failed to write summary markdown", zap.String("run_id", run.RunID), zap.Error(err))
	}

	return highlights, &generatedAt
}
