package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS delex_runs (
	id            uuid PRIMARY KEY,
	mode          text NOT NULL,
	source_dir    text NOT NULL,
	target_dir    text NOT NULL,
	dialogues     integer NOT NULL DEFAULT 0,
	substitutions integer NOT NULL DEFAULT 0,
	collisions    integer NOT NULL DEFAULT 0,
	collapsed     integer NOT NULL DEFAULT 0,
	errors        text[] NOT NULL DEFAULT '{}',
	started_at    timestamptz NOT NULL,
	finished_at   timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS delex_seed_pairs (
	id         uuid PRIMARY KEY,
	run_id     uuid NOT NULL,
	domain     text NOT NULL,
	kb_row     jsonb NOT NULL,
	utterance  text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS delex_seed_pairs_run_domain ON delex_seed_pairs (run_id, domain);
`

// EnsureSchema creates the run and seed-pair tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
