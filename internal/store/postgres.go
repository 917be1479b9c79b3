package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bidintake/internal/db"
	"github.com/sells-group/bidintake/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"find_run_by_hash":   pgRunSelect + ` WHERE project_id = $1 AND zip_hash = $2 ORDER BY created_at DESC LIMIT 1`,
	"get_run":            pgRunSelect + ` WHERE run_id = $1`,
	"pending_file_ids":   `SELECT id FROM intake_files WHERE run_id = $1 AND parsed_status = 'pending' ORDER BY rel_path`,
	"get_file":           pgFileSelect + ` WHERE id = $1`,
	"update_file_outcome": `UPDATE intake_files SET parsed_status = $1, page_count = $2, error = $3, artifact_path = $4, details = $5, updated_at = $6 WHERE id = $7`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS intake_runs (
	run_id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS intake_files (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id        TEXT NOT NULL REFERENCES intake_runs(run_id),
	project_id    TEXT NOT NULL,
	rel_path      TEXT NOT NULL,
	mime_type     TEXT NOT NULL,
	size          BIGINT NOT NULL DEFAULT 0,
	checksum      TEXT NOT NULL DEFAULT '',
	parsed_status TEXT NOT NULL DEFAULT 'pending',
	page_count    INTEGER,
	error         TEXT,
	artifact_path TEXT NOT NULL DEFAULT '',
	details       JSONB NOT NULL DEFAULT '{}',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_intake_runs_project_hash ON intake_runs(project_id, zip_hash);
CREATE INDEX IF NOT EXISTS idx_intake_runs_status ON intake_runs(status);
CREATE INDEX IF NOT EXISTS idx_intake_files_run_id ON intake_files(run_id);
CREATE INDEX IF NOT EXISTS idx_intake_files_run_status ON intake_files(run_id, parsed_status);
`

const pgRunSelect = `SELECT run_id, project_id, source_zip, staged_path, extracted_path, zip_hash, status,
       total_files, pending_files, parsed_files, failed_files, last_error, created_at, updated_at, completed_at
  FROM intake_runs`

const pgFileSelect = `SELECT id, run_id, project_id, rel_path, mime_type, size, checksum, parsed_status,
       page_count, error, artifact_path, details, updated_at
  FROM intake_files`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRunWithFiles(ctx context.Context, run *model.IntakeRun, files []model.IntakeFile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin create run")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO intake_runs
		 (run_id, project_id, source_zip, staged_path, extracted_path, zip_hash, status,
		  total_files, pending_files, parsed_files, failed_files, last_error, created_at, updated_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		run.RunID, run.ProjectID, run.SourceZip, run.StagedPath, run.ExtractedPath,
		run.ZipHash, string(run.Status), run.TotalFiles, run.PendingFiles,
		run.ParsedFiles, run.FailedFiles, textOrNil(run.LastError),
		run.CreatedAt, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.RunID)
	}

	for _, f := range files {
		detailsJSON, err := json.Marshal(f.Details)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal details for %s", f.RelPath)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO intake_files
			 (id, run_id, project_id, rel_path, mime_type, size, checksum, parsed_status,
			  page_count, error, artifact_path, details, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			f.ID, f.RunID, f.ProjectID, f.RelPath, f.MimeType, f.Size, f.Checksum,
			string(f.ParsedStatus), f.PageCount, textOrNil(f.Error),
			f.ArtifactPath, detailsJSON, f.UpdatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert file %s", f.RelPath)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit create run")
}

func (s *PostgresStore) FindRunByHash(ctx context.Context, projectID, zipHash string) (*model.IntakeRun, error) {
	row := s.pool.QueryRow(ctx,
		pgRunSelect+` WHERE project_id = $1 AND zip_hash = $2 ORDER BY created_at DESC LIMIT 1`,
		projectID, zipHash,
	)
	run, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.IntakeRun, error) {
	row := s.pool.QueryRow(ctx, pgRunSelect+` WHERE run_id = $1`, runID)
	run, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return run, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.IntakeRun, error) {
	query := pgRunSelect + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ProjectID != "" {
		query += fmt.Sprintf(` AND project_id = $%d`, argIdx)
		args = append(args, filter.ProjectID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.IntakeRun
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, lastError string) error {
	query := `UPDATE intake_runs SET status = $1, last_error = $2, updated_at = $3`
	args := []any{string(status), textOrNil(lastError), time.Now().UTC()}
	if status == model.RunStatusReady || status == model.RunStatusFailed {
		query += `, completed_at = COALESCE(completed_at, $4) WHERE run_id = $5`
		args = append(args, time.Now().UTC(), runID)
	} else {
		query += ` WHERE run_id = $4`
		args = append(args, runID)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) RefreshRunCounts(ctx context.Context, runID string) (*model.IntakeRun, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin refresh counts")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var total, pending, parsed, failed int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE parsed_status = 'pending'),
		        COUNT(*) FILTER (WHERE parsed_status = 'parsed'),
		        COUNT(*) FILTER (WHERE parsed_status = 'failed')
		 FROM intake_files WHERE run_id = $1`,
		runID,
	).Scan(&total, &pending, &parsed, &failed)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: count files for %s", runID)
	}

	status := deriveStatus(pending, failed)
	tag, err := tx.Exec(ctx,
		`UPDATE intake_runs
		 SET total_files = $1, pending_files = $2, parsed_files = $3, failed_files = $4,
		     status = $5, updated_at = $6,
		     completed_at = CASE WHEN $5 IN ('ready','failed') THEN COALESCE(completed_at, $6) ELSE completed_at END
		 WHERE run_id = $7`,
		total, pending, parsed, failed, string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: refresh counts %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit refresh counts")
	}

	return s.GetRun(ctx, runID)
}

func (s *PostgresStore) ListFiles(ctx context.Context, runID string) ([]model.IntakeFile, error) {
	return s.queryFiles(ctx, pgFileSelect+` WHERE run_id = $1 ORDER BY rel_path`, runID)
}

func (s *PostgresStore) ListFilesByStatus(ctx context.Context, runID string, status model.FileStatus) ([]model.IntakeFile, error) {
	return s.queryFiles(ctx,
		pgFileSelect+` WHERE run_id = $1 AND parsed_status = $2 ORDER BY rel_path`,
		runID, string(status),
	)
}

func (s *PostgresStore) GetFile(ctx context.Context, fileID string) (*model.IntakeFile, error) {
	row := s.pool.QueryRow(ctx, pgFileSelect+` WHERE id = $1`, fileID)
	f, err := scanPgFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "file %s", fileID)
	}
	return f, err
}

func (s *PostgresStore) PendingFileIDs(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM intake_files WHERE run_id = $1 AND parsed_status = 'pending' ORDER BY rel_path`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: pending file ids %s", runID)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pending id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: pending ids iterate")
}

func (s *PostgresStore) UpdateFileOutcome(ctx context.Context, fileID string, outcome FileOutcome) error {
	detailsJSON, err := json.Marshal(outcome.Details)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal details for %s", fileID)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE intake_files
		 SET parsed_status = $1, page_count = $2, error = $3, artifact_path = $4, details = $5, updated_at = $6
		 WHERE id = $7`,
		string(outcome.Status), outcome.PageCount, textOrNil(outcome.Error),
		outcome.ArtifactPath, detailsJSON, time.Now().UTC(), fileID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update file outcome %s", fileID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "file %s", fileID)
	}
	return nil
}

// helpers

func textOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type pgScannable interface {
	Scan(dest ...any) error
}

func scanPgRun(row pgScannable) (*model.IntakeRun, error) {
	var r model.IntakeRun
	var lastError *string
	var completedAt *time.Time

	err := row.Scan(&r.RunID, &r.ProjectID, &r.SourceZip, &r.StagedPath, &r.ExtractedPath,
		&r.ZipHash, &r.Status, &r.TotalFiles, &r.PendingFiles, &r.ParsedFiles,
		&r.FailedFiles, &lastError, &r.CreatedAt, &r.UpdatedAt, &completedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if lastError != nil {
		r.LastError = *lastError
	}
	r.CompletedAt = completedAt
	return &r, nil
}

func scanPgFile(row pgScannable) (*model.IntakeFile, error) {
	var f model.IntakeFile
	var errText *string
	var detailsJSON []byte

	err := row.Scan(&f.ID, &f.RunID, &f.ProjectID, &f.RelPath, &f.MimeType, &f.Size,
		&f.Checksum, &f.ParsedStatus, &f.PageCount, &errText, &f.ArtifactPath,
		&detailsJSON, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan file")
	}

	if errText != nil {
		f.Error = *errText
	}
	if err := json.Unmarshal(detailsJSON, &f.Details); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal details")
	}
	return &f, nil
}

func (s *PostgresStore) queryFiles(ctx context.Context, query string, args ...any) ([]model.IntakeFile, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query files")
	}
	defer rows.Close()

	var files []model.IntakeFile
	for rows.Next() {
		f, err := scanPgFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, eris.Wrap(rows.Err(), "postgres: query files iterate")
}
