package intake

import "path/filepath"

// layout resolves every pipeline directory off the configured data root:
// staged zips, extraction trees, per-file artifacts, and run-level snapshots
// keyed by (project, zip hash).
type layout struct {
	dataRoot string
}

func (l layout) stagedZip(projectID, timestamp string) string {
	return filepath.Join(l.dataRoot, "staging", projectID, timestamp+".zip")
}

func (l layout) extractionDir(projectID, timestamp string) string {
	return filepath.Join(l.dataRoot, "intake", projectID, "extracted", timestamp)
}

func (l layout) artifactDir(projectID string) string {
	return filepath.Join(l.dataRoot, "intake", projectID, "artifacts")
}

func (l layout) snapshotDir(projectID, zipHash string) string {
	return filepath.Join(l.dataRoot, "uploads", projectID, zipHash)
}

func (l layout) riskFlagsPath(projectID, zipHash string) string {
	return filepath.Join(l.snapshotDir(projectID, zipHash), "risk_flags.json")
}

func (l layout) summaryHighlightsPath(projectID, zipHash string) string {
	return filepath.Join(l.snapshotDir(projectID, zipHash), "summary_highlights.json")
}

func (l layout) summaryMarkdownPath(projectID, zipHash string) string {
	return filepath.Join(l.snapshotDir(projectID, zipHash), "summary.md")
}
