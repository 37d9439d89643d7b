package vocab

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/delex/internal/corpus"
)

func mustVocabulary(t *testing.T, in string) corpus.Vocabulary {
	t.Helper()
	var v corpus.Vocabulary
	require.NoError(t, json.Unmarshal([]byte(in), &v))
	return v
}

func TestFlatten_LongestFirst(t *testing.T) {
	v := mustVocabulary(t, `{"time": ["7", "7am", "7am monday"]}`)
	assert.Equal(t, []string{"7am monday", "7am", "7"}, Flatten(v))
}

func TestFlatten_RecordsAndScalars(t *testing.T) {
	v := mustVocabulary(t, `{
		"poi": [{"address": "593 Arrowhead Way", "poi": "Chef Chu's", "type": "chinese restaurant"}],
		"temperature": [20, 100],
		"party": ["Boss"]
	}`)

	got := Flatten(v)
	assert.Equal(t, []string{
		"chinese restaurant",
		"593 arrowhead way",
		"chef chu's",
		"boss",
		"100",
		"20",
	}, got)
}

func TestFlatten_DeduplicatesKeepingFirst(t *testing.T) {
	v := mustVocabulary(t, `{"location": ["Home", "office"], "poi_type": ["home", "OFFICE", "mall"]}`)
	assert.Equal(t, []string{"office", "home", "mall"}, Flatten(v))
}

func TestFlatten_StableForEqualLength(t *testing.T) {
	v := mustVocabulary(t, `{"a": ["bbb", "aaa"], "b": ["ccc"]}`)
	for i := 0; i < 5; i++ {
		assert.Equal(t, []string{"bbb", "aaa", "ccc"}, Flatten(v))
	}
}

func TestFlatten_Empty(t *testing.T) {
	assert.Empty(t, Flatten(corpus.Vocabulary{}))
	assert.Empty(t, Flatten(mustVocabulary(t, `{"time": [""]}`)))
}

func TestSortLongestFirst_RuneLength(t *testing.T) {
	s := []string{"ab", "café", "abc"}
	SortLongestFirst(s)
	assert.Equal(t, []string{"café", "abc", "ab"}, s)
}
