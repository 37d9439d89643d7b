package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded corpus run.
type Run struct {
	ID            uuid.UUID
	Mode          string
	SourceDir     string
	TargetDir     string
	Dialogues     int
	Substitutions int
	Collisions    int
	Collapsed     int
	Errors        []string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// RecordRun inserts a run, or replaces it when the ID was already recorded.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO delex_runs (id, mode, source_dir, target_dir, dialogues, substitutions, collisions, collapsed, errors, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			dialogues = EXCLUDED.dialogues,
			substitutions = EXCLUDED.substitutions,
			collisions = EXCLUDED.collisions,
			collapsed = EXCLUDED.collapsed,
			errors = EXCLUDED.errors,
			finished_at = EXCLUDED.finished_at`,
		r.ID, r.Mode, r.SourceDir, r.TargetDir, r.Dialogues, r.Substitutions, r.Collisions, r.Collapsed, errs, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

const runColumns = `id, mode, source_dir, target_dir, dialogues, substitutions, collisions, collapsed, errors, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Mode, &r.SourceDir, &r.TargetDir, &r.Dialogues, &r.Substitutions, &r.Collisions, &r.Collapsed, &r.Errors, &r.StartedAt, &r.FinishedAt)
	return r, err
}

// GetRun fetches a run by ID.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	r, err := scanRun(s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM delex_runs WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `SELECT `+runColumns+` FROM delex_runs ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
