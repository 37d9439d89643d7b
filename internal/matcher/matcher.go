// Package matcher finds literal candidate strings inside an utterance and
// rewrites them. Candidates are tried in the order given; a caller that wants
// longest-match priority sorts them longest first. Text produced by a
// replacement is never matched again.
package matcher

import (
	"sort"
	"strings"
)

// Placeholder is the default mask token.
const Placeholder = "__entity__"

// LabelSeparator joins the keys emitted by Label.
const LabelSeparator = " | "

// Candidate is a string to look for and the key it stands for. For plain
// vocabulary matching Key equals Text; for canonicalization Key is the
// canonical row/column key.
type Candidate struct {
	Text string
	Key  string
}

// Vocabulary wraps plain strings as candidates whose key is their text.
func Vocabulary(texts []string) []Candidate {
	out := make([]Candidate, len(texts))
	for i, t := range texts {
		out[i] = Candidate{Text: t, Key: t}
	}
	return out
}

// Match records the first place a candidate was found, as a byte offset into
// the text that was scanned.
type Match struct {
	Candidate
	Pos int
}

// span is a run of the working text. Unfrozen spans are untouched input and
// offset is where they start in it; frozen spans hold replacement text.
type span struct {
	text   string
	frozen bool
	offset int
}

type scanner struct {
	spans []span
}

func newScanner(text string) *scanner {
	return &scanner{spans: []span{{text: text}}}
}

// replace rewrites every occurrence of needle outside frozen spans with repl
// and returns the input offset of the first one, or -1 when nothing matched.
func (s *scanner) replace(needle, repl string) int {
	if needle == "" {
		return -1
	}
	first := -1
	out := make([]span, 0, len(s.spans))
	for _, sp := range s.spans {
		if sp.frozen || !strings.Contains(sp.text, needle) {
			out = append(out, sp)
			continue
		}
		rest, base := sp.text, sp.offset
		for {
			i := strings.Index(rest, needle)
			if i < 0 {
				break
			}
			if first < 0 {
				first = base + i
			}
			if i > 0 {
				out = append(out, span{text: rest[:i], offset: base})
			}
			out = append(out, span{text: repl, frozen: true, offset: base + i})
			rest = rest[i+len(needle):]
			base += i + len(needle)
		}
		if rest != "" {
			out = append(out, span{text: rest, offset: base})
		}
	}
	s.spans = out
	return first
}

func (s *scanner) String() string {
	var sb strings.Builder
	for _, sp := range s.spans {
		sb.WriteString(sp.text)
	}
	return sb.String()
}

// Mask replaces every occurrence of each candidate with placeholder.
func Mask(text string, cands []Candidate, placeholder string) string {
	s := newScanner(text)
	for _, c := range cands {
		s.replace(c.Text, placeholder)
	}
	return s.String()
}

// Substitute replaces each candidate with its key. A key is applied at most
// once per call: once one candidate carrying it has matched, later
// candidates with the same key are skipped. The applied keys are returned in
// the order they were applied.
func Substitute(text string, cands []Candidate) (string, []string) {
	s := newScanner(text)
	applied := make(map[string]bool)
	var keys []string
	for _, c := range cands {
		if applied[c.Key] {
			continue
		}
		if s.replace(c.Text, c.Key) >= 0 {
			applied[c.Key] = true
			keys = append(keys, c.Key)
		}
	}
	return s.String(), keys
}

// Find lowercases text and candidates, runs the masking scan, and returns
// one match per distinct key ordered by where it first occurs in the text.
func Find(text string, cands []Candidate) []Match {
	s := newScanner(strings.ToLower(text))
	seen := make(map[string]bool)
	var matches []Match
	for _, c := range cands {
		pos := s.replace(strings.ToLower(c.Text), Placeholder)
		if pos < 0 || seen[c.Key] {
			continue
		}
		seen[c.Key] = true
		matches = append(matches, Match{Candidate: c, Pos: pos})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Pos < matches[j].Pos
	})
	return matches
}

// Label returns the keys of the matched candidates in reading order, joined
// with LabelSeparator. No match gives "".
func Label(text string, cands []Candidate) string {
	matches := Find(text, cands)
	keys := make([]string, len(matches))
	for i, m := range matches {
		keys[i] = m.Key
	}
	return strings.Join(keys, LabelSeparator)
}

// Extract masks text with placeholder and also returns the distinct
// candidate texts that matched, in the order they matched.
func Extract(text string, cands []Candidate, placeholder string) (string, []string) {
	s := newScanner(text)
	seen := make(map[string]bool)
	var found []string
	for _, c := range cands {
		if s.replace(c.Text, placeholder) < 0 || seen[c.Text] {
			continue
		}
		seen[c.Text] = true
		found = append(found, c.Text)
	}
	return s.String(), found
}
