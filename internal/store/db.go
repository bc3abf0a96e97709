package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"go-dataset-workflow/internal/model"
)

// ErrNotFound is returned when a workflow id is unknown.
var ErrNotFound = errors.New("workflow not found")

// Store persists workflow headers, the audit trail of stage runs, and surfaced errors.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS workflows (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	stage TEXT NOT NULL,
	row_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS stage_runs (
	id TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	params TEXT,
	report TEXT,
	rows_in INTEGER NOT NULL,
	rows_out INTEGER NOT NULL,
	fingerprint TEXT NOT NULL,
	created_at DATETIME
);
CREATE INDEX IF NOT EXISTS stage_runs_workflow ON stage_runs (workflow_id, created_at);
CREATE TABLE IF NOT EXISTS workflow_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	workflow_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	error_message TEXT,
	created_at DATETIME
);
`

// Open opens (creating if needed) the sqlite database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection avoids "database is locked".
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveWorkflow inserts a new workflow header. An empty ID gets a fresh uuid.
func (s *Store) SaveWorkflow(ctx context.Context, wf *model.WorkflowInfo) error {
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}
	now := s.now()
	wf.CreatedAt, wf.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workflows (id, name, stage, row_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		wf.ID, wf.Name, wf.Stage.String(), wf.Rows, now, now)
	return err
}

// UpdateWorkflow records the stage and row count a workflow has reached.
func (s *Store) UpdateWorkflow(ctx context.Context, id string, stage model.Stage, rows int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE workflows SET stage = ?, row_count = ?, updated_at = ? WHERE id = ?`,
		stage.String(), rows, s.now(), id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// GetWorkflow fetches one workflow header.
func (s *Store) GetWorkflow(ctx context.Context, id string) (*model.WorkflowInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, stage, row_count, created_at, updated_at FROM workflows WHERE id = ?`, id)
	wf, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return wf, err
}

// ListWorkflows returns all workflows, newest first.
func (s *Store) ListWorkflows(ctx context.Context) ([]model.WorkflowInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, stage, row_count, created_at, updated_at FROM workflows ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.WorkflowInfo{}
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *wf)
	}
	return out, rows.Err()
}

// DeleteWorkflow removes a workflow with its history.
func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := expectRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stage_runs WHERE workflow_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_errors WHERE workflow_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveStageRun appends an audit entry. ID and CreatedAt are filled in when empty.
func (s *Store) SaveStageRun(ctx context.Context, run *model.StageRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_runs (id, workflow_id, stage, params, report, rows_in, rows_out, fingerprint, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.WorkflowID, run.Stage.String(), nullText(run.Params), nullText(run.Report),
		run.RowsIn, run.RowsOut, run.Fingerprint, run.CreatedAt)
	return err
}

// ListStageRuns returns a workflow's audit trail, oldest first.
func (s *Store) ListStageRuns(ctx context.Context, workflowID string) ([]model.StageRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow_id, stage, params, report, rows_in, rows_out, fingerprint, created_at
		 FROM stage_runs WHERE workflow_id = ? ORDER BY created_at, rowid`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.StageRun{}
	for rows.Next() {
		var (
			run            model.StageRun
			stage          string
			params, report sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.WorkflowID, &stage, &params, &report,
			&run.RowsIn, &run.RowsOut, &run.Fingerprint, &run.CreatedAt); err != nil {
			return nil, err
		}
		if err := run.Stage.UnmarshalText([]byte(stage)); err != nil {
			return nil, err
		}
		if params.Valid {
			run.Params = []byte(params.String)
		}
		if report.Valid {
			run.Report = []byte(report.String)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// SaveError records an error surfaced by a workflow.
func (s *Store) SaveError(ctx context.Context, workflowID, kind, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workflow_errors (workflow_id, kind, error_message, created_at) VALUES (?, ?, ?, ?)`,
		workflowID, kind, message, s.now())
	return err
}

// ListErrors returns a workflow's surfaced errors, oldest first.
func (s *Store) ListErrors(ctx context.Context, workflowID string) ([]model.WorkflowError, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT workflow_id, kind, error_message, created_at FROM workflow_errors
		 WHERE workflow_id = ? ORDER BY id`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.WorkflowError{}
	for rows.Next() {
		var e model.WorkflowError
		var msg sql.NullString
		if err := rows.Scan(&e.WorkflowID, &e.Kind, &msg, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Message = msg.String
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkflow(sc scanner) (*model.WorkflowInfo, error) {
	var wf model.WorkflowInfo
	var stage string
	if err := sc.Scan(&wf.ID, &wf.Name, &stage, &wf.Rows, &wf.CreatedAt, &wf.UpdatedAt); err != nil {
		return nil, err
	}
	if err := wf.Stage.UnmarshalText([]byte(stage)); err != nil {
		return nil, err
	}
	return &wf, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullText(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
