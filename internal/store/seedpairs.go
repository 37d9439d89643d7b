package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SeedPair is a KB row, as JSON, and the utterance it was matched to.
type SeedPair struct {
	Domain    string
	Row       []byte
	Utterance string
}

// WriteSeedPairs bulk-loads the pairs of one run with COPY.
func (s *Store) WriteSeedPairs(ctx context.Context, runID uuid.UUID, pairs []SeedPair) (int64, error) {
	if len(pairs) == 0 {
		return 0, nil
	}
	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"delex_seed_pairs"},
		[]string{"id", "run_id", "domain", "kb_row", "utterance"},
		pgx.CopyFromSlice(len(pairs), func(i int) ([]any, error) {
			p := pairs[i]
			return []any{uuid.New(), runID, p.Domain, string(p.Row), p.Utterance}, nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copy seed pairs: %w", err)
	}
	return n, nil
}

// CountSeedPairs returns the number of pairs stored per domain for a run.
func (s *Store) CountSeedPairs(ctx context.Context, runID uuid.UUID) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT domain, count(*) FROM delex_seed_pairs
		WHERE run_id = $1 GROUP BY domain`, runID)
	if err != nil {
		return nil, fmt.Errorf("count seed pairs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var domain string
		var n int
		if err := rows.Scan(&domain, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[domain] = n
	}
	return out, rows.Err()
}
