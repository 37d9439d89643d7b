package matcher

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		cands []string
		want  string
	}{
		{"longest first", "meet at 7am", []string{"7am", "7"}, "meet at __entity__"},
		{"all occurrences", "home to home", []string{"home"}, "__entity__ to __entity__"},
		{"no match", "what is the weather like", []string{"paris", "7am"}, "what is the weather like"},
		{"no candidates", "meet at 7am", nil, "meet at 7am"},
		{"empty candidate ignored", "meet at 7am", []string{""}, "meet at 7am"},
		{"inside a word", "the stanford hospital", []string{"ford"}, "the stan__entity__ hospital"},
		{"case sensitive", "Meet at Home", []string{"home"}, "Meet at Home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mask(tt.text, Vocabulary(tt.cands), Placeholder))
		})
	}
}

func TestMask_Idempotent(t *testing.T) {
	cands := Vocabulary([]string{"4 miles", "valero", "7am", "7"})
	text := "valero is 4 miles away, open from 7am until 7"

	once := Mask(text, cands, Placeholder)
	assert.Equal(t, "__entity__ is __entity__ away, open from __entity__ until __entity__", once)
	assert.Equal(t, once, Mask(once, cands, Placeholder))
}

func TestMask_ReplacementIsFrozen(t *testing.T) {
	// "ent" also occurs inside the inserted "<event>" and must stay there.
	got := Mask("parent meeting", Vocabulary([]string{"meeting", "ent"}), "<event>")
	assert.Equal(t, "par<event> <event>", got)
}

func TestSubstitute(t *testing.T) {
	cands := []Candidate{
		{Text: "2 miles", Key: "home_distance"},
		{Text: "light", Key: "home_traffic"},
		{Text: "home", Key: "home_location"},
	}

	got, keys := Substitute("home is 2 miles away with light traffic", cands)
	assert.Equal(t, "home_location is home_distance away with home_traffic traffic", got)
	assert.Equal(t, []string{"home_distance", "home_traffic", "home_location"}, keys)
}

func TestSubstitute_KeyAppliedOnce(t *testing.T) {
	cands := []Candidate{
		{Text: "8pm", Key: "dinner_time"},
		{Text: "7pm", Key: "dinner_time"},
	}

	got, keys := Substitute("dinner moved from 7pm to 8pm", cands)
	assert.Equal(t, "dinner moved from 7pm to dinner_time", got)
	assert.Equal(t, []string{"dinner_time"}, keys)
}

func TestSubstitute_KeysAreNotRematched(t *testing.T) {
	cands := []Candidate{
		{Text: "home", Key: "home_location"},
		{Text: "location", Key: "office_location"},
	}

	got, keys := Substitute("go home", cands)
	assert.Equal(t, "go home_location", got)
	assert.Equal(t, []string{"home_location"}, keys)
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		cands []Candidate
		want  string
	}{
		{
			name:  "reading order",
			text:  "the 7am train to paris",
			cands: Vocabulary([]string{"paris", "7am"}),
			want:  "7am | paris",
		},
		{
			name:  "case folded",
			text:  "Dinner with the Boss",
			cands: Vocabulary([]string{"boss", "dinner"}),
			want:  "dinner | boss",
		},
		{
			name: "keys",
			text: "home is 2 miles away",
			cands: []Candidate{
				{Text: "2 miles", Key: "home_distance"},
				{Text: "home", Key: "home_location"},
			},
			want: "home_location | home_distance",
		},
		{
			name:  "shorter candidate inside a longer match",
			text:  "meet at 7am",
			cands: Vocabulary([]string{"7am", "7"}),
			want:  "7am",
		},
		{
			name:  "no match",
			text:  "what is the weather like",
			cands: Vocabulary([]string{"paris"}),
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(tt.text, tt.cands))
		})
	}
}

func TestFind_PositionsAndDedup(t *testing.T) {
	cands := []Candidate{
		{Text: "paris", Key: "city"},
		{Text: "7am", Key: "time"},
		{Text: "london", Key: "city"},
	}

	got := Find("the 7am train from london to paris", cands)
	want := []Match{
		{Candidate: Candidate{Text: "7am", Key: "time"}, Pos: 4},
		{Candidate: Candidate{Text: "paris", Key: "city"}, Pos: 29},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Find mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract(t *testing.T) {
	masked, found := Extract(
		"remind me about the 7am meeting and the 7am call",
		Vocabulary([]string{"meeting", "7am", "dentist"}),
		Placeholder,
	)
	assert.Equal(t, "remind me about the __entity__ __entity__ and the __entity__ call", masked)
	assert.Equal(t, []string{"meeting", "7am"}, found)

	masked, found = Extract("nothing here", Vocabulary([]string{"paris"}), Placeholder)
	assert.Equal(t, "nothing here", masked)
	assert.Empty(t, found)
}
