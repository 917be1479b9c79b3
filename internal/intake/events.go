package intake

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// EventLog appends one JSON object per line to an operational log file.
// Writes are best-effort: a log failure never fails the run that emits it.
type EventLog struct {
	mu   sync.Mutex
	path string
}

// NewEventLog creates an event log writing to path.
func NewEventLog(path string) *EventLog {
	return &EventLog{path: path}
}

// Append serializes event as a single JSONL record.
func (e *EventLog) Append(event map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		zap.L().Debug("failed to encode intake event", zap.Error(err))
		return
	}

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		zap.L().Debug("failed to create event log dir", zap.Error(err))
		return
	}

	handle, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		zap.L().Debug("failed to open event log", zap.String("path", e.path), zap.Error(err))
		return
	}
	defer handle.Close() //nolint:errcheck

	if _, err := handle.Write(append(data, '\n')); err != nil {
		zap.L().Debug("failed to append intake event", zap.Error(err))
	}
}
