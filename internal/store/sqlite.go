package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bidintake/internal/model"
)

// ErrNotFound marks lookups for runs or files that do not exist.
var ErrNotFound = errors.New("store: not found")

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS intake_runs (
	run_id         TEXT PRIMARY KEY,
	project_id     TEXT NOT NULL,
	source_zip     TEXT NOT NULL,
	staged_path    TEXT NOT NULL DEFAULT '',
	extracted_path TEXT NOT NULL DEFAULT '',
	zip_hash       TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'staging',
	total_files    INTEGER NOT NULL DEFAULT 0,
	pending_files  INTEGER NOT NULL DEFAULT 0,
	parsed_files   INTEGER NOT NULL DEFAULT 0,
	failed_files   INTEGER NOT NULL DEFAULT 0,
	last_error     TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at   DATETIME
);

CREATE TABLE IF NOT EXISTS intake_files (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL REFERENCES intake_runs(run_id),
	project_id    TEXT NOT NULL,
	rel_path      TEXT NOT NULL,
	mime_type     TEXT NOT NULL,
	size          INTEGER NOT NULL DEFAULT 0,
	checksum      TEXT NOT NULL DEFAULT '',
	parsed_status TEXT NOT NULL DEFAULT 'pending',
	page_count    INTEGER,
	error         TEXT,
	artifact_path TEXT NOT NULL DEFAULT '',
	details       TEXT NOT NULL DEFAULT '{}',
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_intake_runs_project_hash ON intake_runs(project_id, zip_hash);
CREATE INDEX IF NOT EXISTS idx_intake_runs_status ON intake_runs(status);
CREATE INDEX IF NOT EXISTS idx_intake_files_run_id ON intake_files(run_id);
CREATE INDEX IF NOT EXISTS idx_intake_files_run_status ON intake_files(run_id, parsed_status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRunWithFiles(ctx context.Context, run *model.IntakeRun, files []model.IntakeFile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin create run")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO intake_runs
		 (run_id, project_id, source_zip, staged_path, extracted_path, zip_hash, status,
		  total_files, pending_files, parsed_files, failed_files, last_error, created_at, updated_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.ProjectID, run.SourceZip, run.StagedPath, run.ExtractedPath,
		run.ZipHash, string(run.Status), run.TotalFiles, run.PendingFiles,
		run.ParsedFiles, run.FailedFiles, nullString(run.LastError),
		run.CreatedAt, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.RunID)
	}

	for _, f := range files {
		detailsJSON, err := json.Marshal(f.Details)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal details for %s", f.RelPath)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO intake_files
			 (id, run_id, project_id, rel_path, mime_type, size, checksum, parsed_status,
			  page_count, error, artifact_path, details, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.RunID, f.ProjectID, f.RelPath, f.MimeType, f.Size, f.Checksum,
			string(f.ParsedStatus), f.PageCount, nullString(f.Error),
			f.ArtifactPath, string(detailsJSON), f.UpdatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert file %s", f.RelPath)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit create run")
}

func (s *SQLiteStore) FindRunByHash(ctx context.Context, projectID, zipHash string) (*model.IntakeRun, error) {
	row := s.db.QueryRowContext(ctx,
		runSelect+` WHERE project_id = ? AND zip_hash = ? ORDER BY created_at DESC LIMIT 1`,
		projectID, zipHash,
	)
	run, err := scanRun(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.IntakeRun, error) {
	row := s.db.QueryRowContext(ctx, runSelect+` WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, ErrNotFound) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.IntakeRun, error) {
	query := runSelect + ` WHERE 1=1`
	var args []any

	if filter.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.IntakeRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, lastError string) error {
	query := `UPDATE intake_runs SET status = ?, last_error = ?, updated_at = ?`
	args := []any{string(status), nullString(lastError), time.Now().UTC()}
	if status == model.RunStatusReady || status == model.RunStatusFailed {
		query += `, completed_at = COALESCE(completed_at, ?)`
		args = append(args, time.Now().UTC())
	}
	query += ` WHERE run_id = ?`
	args = append(args, runID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) RefreshRunCounts(ctx context.Context, runID string) (*model.IntakeRun, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin refresh counts")
	}
	defer tx.Rollback() //nolint:errcheck

	var total, pending, parsed, failed int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(parsed_status = 'pending'), 0),
		        COALESCE(SUM(parsed_status = 'parsed'), 0),
		        COALESCE(SUM(parsed_status = 'failed'), 0)
		 FROM intake_files WHERE run_id = ?`,
		runID,
	).Scan(&total, &pending, &parsed, &failed)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: count files for %s", runID)
	}

	status := deriveStatus(pending, failed)
	res, err := tx.ExecContext(ctx,
		`UPDATE intake_runs
		 SET total_files = ?, pending_files = ?, parsed_files = ?, failed_files = ?,
		     status = ?, updated_at = ?,
		     completed_at = CASE WHEN ? IN ('ready','failed') THEN COALESCE(completed_at, ?) ELSE completed_at END
		 WHERE run_id = ?`,
		total, pending, parsed, failed,
		string(status), time.Now().UTC(), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: refresh counts %s", runID)
	}
	if err := checkRowsAffected(res, "run", runID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit refresh counts")
	}

	return s.GetRun(ctx, runID)
}

func (s *SQLiteStore) ListFiles(ctx context.Context, runID string) ([]model.IntakeFile, error) {
	return s.queryFiles(ctx, fileSelect+` WHERE run_id = ? ORDER BY rel_path`, runID)
}

func (s *SQLiteStore) ListFilesByStatus(ctx context.Context, runID string, status model.FileStatus) ([]model.IntakeFile, error) {
	return s.queryFiles(ctx,
		fileSelect+` WHERE run_id = ? AND parsed_status = ? ORDER BY rel_path`,
		runID, string(status),
	)
}

func (s *SQLiteStore) GetFile(ctx context.Context, fileID string) (*model.IntakeFile, error) {
	row := s.db.QueryRowContext(ctx, fileSelect+` WHERE id = ?`, fileID)
	f, err := scanFile(row)
	if errors.Is(err, ErrNotFound) {
		return nil, eris.Wrapf(ErrNotFound, "file %s", fileID)
	}
	return f, err
}

func (s *SQLiteStore) PendingFileIDs(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM intake_files WHERE run_id = ? AND parsed_status = 'pending' ORDER BY rel_path`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: pending file ids %s", runID)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pending id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: pending ids iterate")
}

func (s *SQLiteStore) UpdateFileOutcome(ctx context.Context, fileID string, outcome FileOutcome) error {
	detailsJSON, err := json.Marshal(outcome.Details)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal details for %s", fileID)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE intake_files
		 SET parsed_status = ?, page_count = ?, error = ?, artifact_path = ?, details = ?, updated_at = ?
		 WHERE id = ?`,
		string(outcome.Status), outcome.PageCount, nullString(outcome.Error),
		outcome.ArtifactPath, string(detailsJSON), time.Now().UTC(), fileID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update file outcome %s", fileID)
	}
	return checkRowsAffected(res, "file", fileID)
}

// helpers

const runSelect = `SELECT run_id, project_id, source_zip, staged_path, extracted_path, zip_hash, status,
       total_files, pending_files, parsed_files, failed_files, last_error, created_at, updated_at, completed_at
  FROM intake_runs`

const fileSelect = `SELECT id, run_id, project_id, rel_path, mime_type, size, checksum, parsed_status,
       page_count, error, artifact_path, details, updated_at
  FROM intake_files`

func deriveStatus(pending, failed int) model.RunStatus {
	switch {
	case pending > 0:
		return model.RunStatusParsing
	case failed > 0:
		return model.RunStatusFailed
	default:
		return model.RunStatusReady
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.IntakeRun, error) {
	var r model.IntakeRun
	var lastError sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&r.RunID, &r.ProjectID, &r.SourceZip, &r.StagedPath, &r.ExtractedPath,
		&r.ZipHash, &r.Status, &r.TotalFiles, &r.PendingFiles, &r.ParsedFiles,
		&r.FailedFiles, &lastError, &r.CreatedAt, &r.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	r.LastError = lastError.String
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func scanFile(row scannable) (*model.IntakeFile, error) {
	var f model.IntakeFile
	var pageCount sql.NullInt64
	var errText sql.NullString
	var detailsJSON string

	err := row.Scan(&f.ID, &f.RunID, &f.ProjectID, &f.RelPath, &f.MimeType, &f.Size,
		&f.Checksum, &f.ParsedStatus, &pageCount, &errText, &f.ArtifactPath,
		&detailsJSON, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan file")
	}

	if pageCount.Valid {
		n := int(pageCount.Int64)
		f.PageCount = &n
	}
	f.Error = errText.String
	if err := json.Unmarshal([]byte(detailsJSON), &f.Details); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal details")
	}
	return &f, nil
}

func (s *SQLiteStore) queryFiles(ctx context.Context, query string, args ...any) ([]model.IntakeFile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query files")
	}
	defer rows.Close()

	var files []model.IntakeFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, eris.Wrap(rows.Err(), "sqlite: query files iterate")
}
