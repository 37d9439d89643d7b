// Package kb derives match candidates from a dialogue's knowledge-base table.
package kb

import (
	"strings"

	"github.com/MikeSquared-Agency/delex/internal/corpus"
	"github.com/MikeSquared-Agency/delex/internal/vocab"
)

// Entry pairs a canonical key with the literal value it stands for.
type Entry struct {
	Key   string
	Value corpus.Value
}

// Result is the canonical form of one table.
type Result struct {
	Entries []Entry
	// Collisions counts entries whose key was already emitted for this table.
	Collisions int
}

// Map returns the entries keyed by canonical key; later entries overwrite
// earlier ones that collided.
func (r Result) Map() map[string]corpus.Value {
	m := make(map[string]corpus.Value, len(r.Entries))
	for _, e := range r.Entries {
		m[e.Key] = e.Value
	}
	return m
}

// Key builds the canonical key for a primary value and a column.
func Key(primary, column string) string {
	return underscore(primary) + "_" + underscore(column)
}

func underscore(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

// Canonicalize emits one entry per non-primary cell, row by row in column
// order, followed by the row's own primary entry. Repeated keys are counted
// and kept. A nil table or one without rows yields an empty result.
func Canonicalize(table *corpus.KB) Result {
	var res Result
	primary, ok := table.Primary()
	if !ok || table.Empty() {
		return res
	}

	seen := make(map[string]bool)
	emit := func(key string, v corpus.Value) {
		if seen[key] {
			res.Collisions++
		}
		seen[key] = true
		res.Entries = append(res.Entries, Entry{Key: key, Value: v})
	}

	for _, row := range table.Items {
		var main string
		mainVal, hasMain := row.Get(primary)
		if hasMain {
			main = mainVal.String()
		}
		for _, column := range table.ColumnNames[1:] {
			v, ok := row.Get(column)
			if !ok {
				continue
			}
			emit(Key(main, column), v)
		}
		if hasMain {
			emit(Key(main, primary), mainVal)
		}
	}
	return res
}

// Values returns the distinct textual cell values of the table, longest
// first. Empty strings are dropped.
func Values(table *corpus.KB) []string {
	if table.Empty() {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, row := range table.Items {
		for _, c := range row.Cells() {
			s := c.Value.String()
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	vocab.SortLongestFirst(out)
	return out
}
