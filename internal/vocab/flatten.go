// Package vocab turns the nested domain entity file into a flat candidate
// list for matching.
package vocab

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/delex/internal/corpus"
)

// Flatten returns every scalar of the vocabulary, stringified and lowercased,
// without duplicates and sorted longest first. Records contribute each of
// their values; their keys are dropped. Equal-length strings keep the order
// they appear in the file.
func Flatten(v corpus.Vocabulary) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(val corpus.Value) {
		s := strings.ToLower(val.String())
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, cat := range v.Categories {
		for _, e := range cat.Entries {
			if e.IsRecord() {
				for _, c := range e.Record.Cells() {
					add(c.Value)
				}
				continue
			}
			add(e.Scalar)
		}
	}

	SortLongestFirst(out)
	return out
}

// SortLongestFirst stable-sorts candidates by descending rune length.
func SortLongestFirst(s []string) {
	sort.SliceStable(s, func(i, j int) bool {
		return utf8.RuneCountInString(s[i]) > utf8.RuneCountInString(s[j])
	})
}
