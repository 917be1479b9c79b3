package intake

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bidintake/internal/model"
)

// riskSnapshot is the durable risk_flags.json payload for one (project, zip
// hash) pair. Relaunches of the same archive replay it instead of rescanning.
type riskSnapshot struct {
	RunID       string           `json:"run_id"`
	ProjectID   string           `json:"project_id"`
	ZipHash     string           `json:"zip_hash"`
	GeneratedAt string           `json:"generated_at"`
	Flags       []model.RiskFlag `json:"flags"`
}

// summarySnapshot is the durable summary_highlights.json payload.
type summarySnapshot struct {
	RunID       string                   `json:"run_id"`
	ProjectID   string                   `json:"project_id"`
	ZipHash     string                   `json:"zip_hash"`
	GeneratedAt string                   `json:"generated_at"`
	Highlights  []model.SummaryHighlight `json:"highlights"`
	Overview    string                   `json:"overview"`
	WordCount   int                      `json:"word_count"`
	Documents   int                      `json:"documents"`
}

func writeSnapshot(path string, payload any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func parseGeneratedAt(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		zap.L().Debug("invalid generated_at timestamp in snapshot", zap.String("value", raw))
		return nil
	}
	return &ts
}

// loadRiskFlags reads the persisted risk flags for a (project, zip hash)
// pair. A missing or unreadable snapshot is not an error; it just means no
// flags have been generated yet.
func (s *Service) loadRiskFlags(projectID, zipHash string) ([]model.RiskFlag, *time.Time) {
	path := s.paths.riskFlagsPath(projectID, zipHash)

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Debug("unable to read risk flags snapshot",
				zap.String("project_id", projectID), zap.String("zip_hash", zipHash), zap.Error(err))
		}
		return []model.RiskFlag{}, nil
	}

	var snapshot riskSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		zap.L().Debug("malformed risk flags snapshot", zap.String("path", path), zap.Error(err))
		return []model.RiskFlag{}, nil
	}

	flags := snapshot.Flags
	if flags == nil {
		flags = []model.RiskFlag{}
	}
	return flags, parseGeneratedAt(snapshot.GeneratedAt)
}

// loadSummaryHighlights reads the persisted summary highlights for a
// (project, zip hash) pair.
func (s *Service) loadSummaryHighlights(projectID, zipHash string) ([]model.SummaryHighlight, *time.Time) {
	path := s.paths.summaryHighlightsPath(projectID, zipHash)

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Debug("unable to read summary highlights snapshot",
				zap.String("project_id", projectID), zap.String("zip_hash", zipHash), zap.Error(err))
		}
		return []model.SummaryHighlight{}, nil
	}

	var snapshot summarySnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		zap.L().Debug("malformed summary highlights snapshot", zap.String("path", path), zap.Error(err))
		return []model.SummaryHighlight{}, nil
	}

	highlights := snapshot.Highlights
	if highlights == nil {
		highlights = []model.SummaryHighlight{}
	}
	return highlights, parseGeneratedAt(snapshot.GeneratedAt)
}
