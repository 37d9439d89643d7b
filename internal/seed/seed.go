// Package seed pairs utterances that mention KB entities with the KB row
// they most likely talk about. The pairs seed response generation.
package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/delex/internal/corpus"
	"github.com/MikeSquared-Agency/delex/internal/matcher"
)

// Word runs, #word, <word>, %word and punctuation runs are single tokens.
var tokenPattern = regexp.MustCompile(
	`[\p{L}\p{N}_]+|#[\p{L}\p{N}_]+|<[\p{L}\p{N}_]+>|%[\p{L}\p{N}_]+|[^\p{L}\p{N}_\s]+`,
)

// Tokenize splits s into tokens.
func Tokenize(s string) []string {
	return tokenPattern.FindAllString(s, -1)
}

// Jaccard returns |a ∩ b| / |a ∪ b| over the token sets, using integer
// division. Any pair of sets that differ scores 0; identical non-empty sets
// score 1.
func Jaccard(a, b []string) int {
	set := make(map[string]uint8, len(a)+len(b))
	for _, t := range a {
		set[t] |= 1
	}
	for _, t := range b {
		set[t] |= 2
	}
	if len(set) == 0 {
		return 0
	}
	inter := 0
	for _, m := range set {
		if m == 3 {
			inter++
		}
	}
	return inter / len(set)
}

// RowTokens tokenizes a row's column names and values in column order.
func RowTokens(r corpus.Row) []string {
	parts := make([]string, 0, 2*r.Len())
	for _, c := range r.Cells() {
		parts = append(parts, c.Column, c.Value.String())
	}
	return Tokenize(strings.Join(parts, " "))
}

// ClosestRow returns the index of the row scoring highest against the
// utterance tokens. Only a strictly greater score replaces the current
// best, so ties go to the earlier row. It returns -1 for no rows.
func ClosestRow(rows [][]string, utterance []string) int {
	best, bestScore := -1, -1
	for i, r := range rows {
		if s := Jaccard(r, utterance); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// Pair is a KB row and the utterance matched to it. It encodes as a
// two-element JSON array.
type Pair struct {
	Row       corpus.Row
	Utterance string
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Row, p.Utterance})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("seed pair: want 2 elements, got %d", len(raw))
	}
	var out Pair
	if err := json.Unmarshal(raw[0], &out.Row); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &out.Utterance); err != nil {
		return err
	}
	*p = out
	return nil
}

// ExtractDialogue returns one pair per turn that mentions at least one
// candidate. Dialogues without KB rows yield nothing.
func ExtractDialogue(d corpus.Dialogue, cands []matcher.Candidate) []Pair {
	table := d.Scenario.KB
	if table.Empty() {
		return nil
	}
	rows := make([][]string, len(table.Items))
	for i, r := range table.Items {
		rows[i] = RowTokens(r)
	}

	var pairs []Pair
	for _, t := range d.Turns {
		utt := t.Data.Utterance
		if _, found := matcher.Extract(utt, cands, matcher.Placeholder); len(found) == 0 {
			continue
		}
		idx := ClosestRow(rows, Tokenize(utt))
		pairs = append(pairs, Pair{Row: table.Items[idx], Utterance: utt})
	}
	return pairs
}

// Result holds seed pairs grouped by domain, in the order domains were
// first seen.
type Result struct {
	domains []string
	pairs   map[string][]Pair
}

// NewResult returns an empty result.
func NewResult() *Result {
	return &Result{pairs: make(map[string][]Pair)}
}

// Add appends pairs under domain. A domain is registered even when pairs
// is empty.
func (r *Result) Add(domain string, pairs ...Pair) {
	if _, ok := r.pairs[domain]; !ok {
		r.domains = append(r.domains, domain)
		r.pairs[domain] = []Pair{}
	}
	r.pairs[domain] = append(r.pairs[domain], pairs...)
}

// Domains returns the domains in first-seen order.
func (r *Result) Domains() []string { return r.domains }

// Pairs returns the pairs collected for domain.
func (r *Result) Pairs(domain string) []Pair { return r.pairs[domain] }

// Len returns the total number of pairs.
func (r *Result) Len() int {
	n := 0
	for _, p := range r.pairs {
		n += len(p)
	}
	return n
}

func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range r.domains {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.pairs[d])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExtractDataset runs ExtractDialogue over every dialogue and groups the
// pairs by task intent. vocab is the flattened entity vocabulary.
func ExtractDataset(ds []corpus.Dialogue, vocab []string) *Result {
	cands := matcher.Vocabulary(vocab)
	res := NewResult()
	for _, d := range ds {
		res.Add(d.Domain(), ExtractDialogue(d, cands)...)
	}
	return res
}
