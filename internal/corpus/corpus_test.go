package corpus

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDialogue = `{
	"dialogue": [
		{"turn": "driver", "data": {"end_dialogue": false, "utterance": "Where is the nearest gas station?"}},
		{"turn": "assistant", "data": {"end_dialogue": false, "utterance": "Valero is 4 miles away.", "requested": {"poi": true}}}
	],
	"scenario": {
		"kb": {
			"items": [
				{"distance": "4 miles", "traffic_info": "no traffic", "poi_type": "gas station", "address": "200 Alester Ave", "poi": "Valero"},
				{"distance": 2, "traffic_info": "heavy traffic", "poi_type": "gas station", "address": "783 Arcadia Pl", "poi": "Chevron"}
			],
			"column_names": ["poi", "poi_type", "address", "distance", "traffic_info"],
			"kb_title": "location information"
		},
		"task": {"intent": "navigate"},
		"uuid": "a2b5f8e1"
	}
}`

func TestValue_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind Kind
		str  string
	}{
		{"string", `"7am"`, KindString, "7am"},
		{"integer", `7`, KindNumber, "7"},
		{"float keeps literal", `2.50`, KindNumber, "2.50"},
		{"true", `true`, KindBool, "True"},
		{"false", `false`, KindBool, "False"},
		{"null", `null`, KindNull, "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.in), &v))
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.str, v.String())

			out, err := json.Marshal(v)
			require.NoError(t, err)
			assert.JSONEq(t, tt.in, string(out))
		})
	}
}

func TestValue_RejectsNested(t *testing.T) {
	var v Value
	assert.Error(t, json.Unmarshal([]byte(`{"a": 1}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &v))
}

func TestRow_KeepsColumnOrder(t *testing.T) {
	var r Row
	require.NoError(t, json.Unmarshal([]byte(`{"z": "last", "a": 1, "m": "Mid"}`), &r))

	var cols []string
	for _, c := range r.Cells() {
		cols = append(cols, c.Column)
	}
	assert.Equal(t, []string{"z", "a", "m"}, cols)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last","a":1,"m":"Mid"}`, string(out))
	assert.Equal(t, `{"z": "last", "a": 1, "m": "Mid"}`, r.Serialize())
}

func TestRow_Lower(t *testing.T) {
	r := NewRow(
		Cell{Column: "POI", Value: StringValue("Valero")},
		Cell{Column: "Distance", Value: NumberValue("4")},
	)
	lower := r.Lower()

	v, ok := lower.Get("poi")
	require.True(t, ok)
	assert.Equal(t, "valero", v.String())

	// The source row is untouched.
	v, ok = r.Get("POI")
	require.True(t, ok)
	assert.Equal(t, "Valero", v.String())
}

func TestDialogue_RoundTripPreservesUnknownFields(t *testing.T) {
	var d Dialogue
	require.NoError(t, json.Unmarshal([]byte(sampleDialogue), &d))

	assert.Equal(t, "navigate", d.Domain())
	require.Len(t, d.Turns, 2)
	assert.False(t, d.Turns[0].IsAssistant())
	assert.True(t, d.Turns[1].IsAssistant())
	require.NotNil(t, d.Scenario.KB)
	primary, ok := d.Scenario.KB.Primary()
	require.True(t, ok)
	assert.Equal(t, "poi", primary)
	require.Len(t, d.Scenario.KB.Items, 2)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, sampleDialogue, string(out))
}

func TestDialogue_NullItems(t *testing.T) {
	in := `{"dialogue": [], "scenario": {"kb": {"items": null, "column_names": ["event", "time"]}, "task": {"intent": "schedule"}}}`

	var d Dialogue
	require.NoError(t, json.Unmarshal([]byte(in), &d))
	assert.True(t, d.Scenario.KB.Empty())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestDialogue_AbsentMembersStayAbsent(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no task", `{"dialogue": [], "scenario": {"kb": {"items": null, "column_names": []}}}`},
		{"explicit null kb", `{"dialogue": [], "scenario": {"kb": null, "task": {"intent": "weather"}}}`},
		{"no kb", `{"dialogue": [], "scenario": {"task": {"intent": "weather"}}}`},
		{"empty scenario", `{"dialogue": [], "scenario": {}}`},
		{"turn without utterance", `{"dialogue": [{"turn": "driver", "data": {"end_dialogue": true}}], "scenario": {"task": {"intent": "navigate"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Dialogue
			require.NoError(t, json.Unmarshal([]byte(tt.in), &d))

			out, err := json.Marshal(d)
			require.NoError(t, err)
			assert.JSONEq(t, tt.in, string(out))
		})
	}
}

func TestTurnData_AbsentUtteranceWrittenOnceSet(t *testing.T) {
	var d TurnData
	require.NoError(t, json.Unmarshal([]byte(`{"slots": {}}`), &d))
	d.Utterance = "hello"

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"slots": {}, "utterance": "hello"}`, string(out))
}

func TestDialogue_MissingScenario(t *testing.T) {
	var d Dialogue
	assert.Error(t, json.Unmarshal([]byte(`{"dialogue": []}`), &d))
}

func TestTurnData_DerivedFields(t *testing.T) {
	delex := "__entity__ is 4 miles away."
	d := TurnData{Utterance: "Valero is 4 miles away.", Delexicalized: &delex}

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"utterance": "Valero is 4 miles away.", "utterance_delex": "__entity__ is 4 miles away."}`, string(out))

	var back TurnData
	require.NoError(t, json.Unmarshal(out, &back))
	require.NotNil(t, back.Delexicalized)
	assert.Equal(t, delex, *back.Delexicalized)
	assert.Nil(t, back.Canonical)
}

func TestKB_Lower(t *testing.T) {
	var d Dialogue
	require.NoError(t, json.Unmarshal([]byte(sampleDialogue), &d))

	lower := d.Scenario.KB.Lower()
	assert.Equal(t, []string{"poi", "poi_type", "address", "distance", "traffic_info"}, lower.ColumnNames)
	v, _ := lower.Items[0].Get("address")
	assert.Equal(t, "200 alester ave", v.String())
	assert.JSONEq(t, `"location information"`, string(lower.Extra["kb_title"]))

	orig, _ := d.Scenario.KB.Items[0].Get("address")
	assert.Equal(t, "200 Alester Ave", orig.String())
}

func TestVocabulary_OrderAndRecords(t *testing.T) {
	in := `{"poi": [{"address": "593 Arrowhead Way", "poi": "Chef Chu's", "type": "chinese restaurant"}], "time": ["7am", "10pm"], "temperature": [20, 30]}`

	var v Vocabulary
	require.NoError(t, json.Unmarshal([]byte(in), &v))

	var names []string
	for _, c := range v.Categories {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff([]string{"poi", "time", "temperature"}, names); diff != "" {
		t.Errorf("category order mismatch (-want +got):\n%s", diff)
	}
	require.True(t, v.Categories[0].Entries[0].IsRecord())
	assert.False(t, v.Categories[1].Entries[0].IsRecord())
	assert.Equal(t, KindNumber, v.Categories[2].Entries[0].Scalar.Kind())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestPlaceholderVocabulary(t *testing.T) {
	out, err := json.Marshal(PlaceholderVocabulary("__entity__"))
	require.NoError(t, err)
	assert.Equal(t, `{"entity":["__entity__"]}`, string(out))
}

func TestLoadSaveDataset(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, PartitionFile("train"))
	require.NoError(t, os.WriteFile(src, []byte("["+sampleDialogue+"]"), 0o644))

	ds, err := LoadDataset(src)
	require.NoError(t, err)
	require.Len(t, ds, 1)

	dst := filepath.Join(dir, "out", PartitionFile("train"))
	require.NoError(t, SaveDataset(dst, ds))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.JSONEq(t, "["+sampleDialogue+"]", string(data))
}

func TestLoadDataset_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadDataset(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadDataset(bad)
	assert.Error(t, err)
}

func TestIsDatasetFile(t *testing.T) {
	assert.True(t, IsDatasetFile("kvret_train_public.json"))
	assert.True(t, IsDatasetFile("kvret_dev_public.json"))
	assert.True(t, IsDatasetFile("kvret_test_public.json"))
	assert.False(t, IsDatasetFile(EntitiesFile))
	assert.False(t, IsDatasetFile("README.md"))
}
