// Package dialogue applies the matcher to whole dialogues. Every function
// returns a new dialogue and leaves its input untouched.
package dialogue

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/delex/internal/corpus"
	"github.com/MikeSquared-Agency/delex/internal/kb"
	"github.com/MikeSquared-Agency/delex/internal/matcher"
)

// Options control the delexicalize and canonicalize transforms.
type Options struct {
	// Placeholder masks KB values. Empty means matcher.Placeholder.
	Placeholder string
	// RewriteUtterance overwrites the utterance with the transformed text
	// in addition to writing the derived field.
	RewriteUtterance bool
	// Lowercase normalizes the KB and every utterance before matching.
	Lowercase bool
}

func (o Options) placeholder() string {
	if o.Placeholder == "" {
		return matcher.Placeholder
	}
	return o.Placeholder
}

// Stats describes what a transform did to one dialogue.
type Stats struct {
	// Substitutions counts turns whose text changed.
	Substitutions int
	// Collisions counts repeated canonical keys in the KB.
	Collisions int
	// Collapsed counts KB tables reduced to a single row.
	Collapsed int
}

// Add folds o into the running total s.
func (s *Stats) Add(o Stats) {
	s.Substitutions += o.Substitutions
	s.Collisions += o.Collisions
	s.Collapsed += o.Collapsed
}

func strPtr(s string) *string { return &s }

// prepare returns the table and turns to work on, lowercased when asked.
func prepare(d corpus.Dialogue, lower bool) (*corpus.KB, []corpus.Turn) {
	table := d.Scenario.KB
	turns := make([]corpus.Turn, len(d.Turns))
	copy(turns, d.Turns)
	if lower {
		table = table.Lower()
		for i := range turns {
			turns[i].Data.Utterance = strings.ToLower(turns[i].Data.Utterance)
		}
	}
	return table, turns
}

func assemble(d corpus.Dialogue, table *corpus.KB, turns []corpus.Turn) corpus.Dialogue {
	out := d
	out.Scenario.KB = table
	out.Turns = turns
	return out
}

// Delexicalize masks every KB value found in any turn. The masked text is
// written to the turn's utterance_delex field.
func Delexicalize(d corpus.Dialogue, opts Options) (corpus.Dialogue, Stats) {
	var st Stats
	table, turns := prepare(d, opts.Lowercase)
	cands := matcher.Vocabulary(kb.Values(table))

	for i := range turns {
		utt := turns[i].Data.Utterance
		masked := matcher.Mask(utt, cands, opts.placeholder())
		if masked != utt {
			st.Substitutions++
		}
		turns[i].Data.Delexicalized = strPtr(masked)
		if opts.RewriteUtterance {
			turns[i].Data.Utterance = masked
		}
	}
	return assemble(d, table, turns), st
}

// CanonicalCandidates turns the KB's canonical entries into substitution
// candidates, longest value first. Equal lengths keep table order.
func CanonicalCandidates(res kb.Result) []matcher.Candidate {
	cands := make([]matcher.Candidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		text := e.Value.String()
		if text == "" {
			continue
		}
		cands = append(cands, matcher.Candidate{Text: text, Key: e.Key})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return utf8.RuneCountInString(cands[i].Text) > utf8.RuneCountInString(cands[j].Text)
	})
	return cands
}

// Canonicalize replaces KB values in assistant turns with canonical
// row/column keys. Each assistant turn gets utterance_canonical and
// canonical_keys; the KB gets item_canonical. Other turns are left as they
// are apart from lowercasing.
func Canonicalize(d corpus.Dialogue, opts Options) (corpus.Dialogue, Stats) {
	table, turns := prepare(d, opts.Lowercase)
	res := kb.Canonicalize(table)
	st := Stats{Collisions: res.Collisions}
	cands := CanonicalCandidates(res)

	for i := range turns {
		if !turns[i].IsAssistant() {
			continue
		}
		utt := turns[i].Data.Utterance
		canonical, applied := matcher.Substitute(utt, cands)
		if len(applied) > 0 {
			st.Substitutions++
		}
		turns[i].Data.Canonical = strPtr(canonical)
		turns[i].Data.CanonicalKeys = strPtr(matcher.Label(utt, cands))
		if opts.RewriteUtterance {
			turns[i].Data.Utterance = canonical
		}
	}

	if table != nil {
		table = table.WithCanonical(res.Map())
	}
	return assemble(d, table, turns), st
}

// Preprocess lowercases the dialogue, tags every turn with the vocabulary
// entities it mentions and collapses the KB to the first row that mentions
// all of them. vocab is expected lowercase and longest first, as produced
// by vocab.Flatten.
func Preprocess(d corpus.Dialogue, vocab []string) (corpus.Dialogue, Stats) {
	var st Stats
	table, turns := prepare(d, true)
	cands := matcher.Vocabulary(vocab)

	var entities []string
	seen := make(map[string]bool)
	for i := range turns {
		matches := matcher.Find(turns[i].Data.Utterance, cands)
		keys := make([]string, len(matches))
		for j, m := range matches {
			keys[j] = m.Key
			if !seen[m.Key] {
				seen[m.Key] = true
				entities = append(entities, m.Key)
			}
		}
		if len(keys) > 0 {
			st.Substitutions++
		}
		turns[i].Data.Entities = strPtr(strings.Join(keys, matcher.LabelSeparator))
	}

	table, collapsed := CollapseKB(table, entities)
	if collapsed {
		st.Collapsed = 1
	}
	return assemble(d, table, turns), st
}

// CollapseKB keeps only the first row whose serialized form contains every
// entity. With no entities the first row qualifies. When no row does, the
// table is returned unchanged and the second result is false.
func CollapseKB(table *corpus.KB, entities []string) (*corpus.KB, bool) {
	if table.Empty() {
		return table, false
	}
	for _, row := range table.Items {
		s := row.Serialize()
		all := true
		for _, e := range entities {
			if !strings.Contains(s, e) {
				all = false
				break
			}
		}
		if all {
			return table.WithItems([]corpus.Row{row}), true
		}
	}
	return table, false
}
