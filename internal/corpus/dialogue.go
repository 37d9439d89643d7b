package corpus

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SpeakerAssistant is the turn label of the system side of a dialogue.
const SpeakerAssistant = "assistant"

// Derived turn fields written by the transforms.
const (
	FieldDelexicalized = "utterance_delex"
	FieldCanonical     = "utterance_canonical"
	FieldCanonicalKeys = "canonical_keys"
	FieldEntities      = "entities"
)

// KB is the per-dialogue knowledge-base table.
type KB struct {
	ColumnNames []string
	// Items is nil when the table is empty; it encodes as JSON null.
	Items []Row
	// ItemCanonical maps canonical keys to values. Derived, nil unless set.
	ItemCanonical map[string]Value
	Extra         map[string]json.RawMessage
}

// Primary returns the primary (first) column name.
func (kb *KB) Primary() (string, bool) {
	if kb == nil || len(kb.ColumnNames) == 0 {
		return "", false
	}
	return kb.ColumnNames[0], true
}

// Empty reports whether the table has no rows.
func (kb *KB) Empty() bool {
	return kb == nil || len(kb.Items) == 0
}

// Lower returns a lowercased copy of the whole table: column names, row
// keys, values and any extra fields.
func (kb *KB) Lower() *KB {
	if kb == nil {
		return nil
	}
	out := &KB{Extra: lowerExtra(kb.Extra)}
	if kb.ColumnNames != nil {
		out.ColumnNames = make([]string, len(kb.ColumnNames))
		for i, c := range kb.ColumnNames {
			out.ColumnNames[i] = strings.ToLower(c)
		}
	}
	if kb.Items != nil {
		out.Items = make([]Row, len(kb.Items))
		for i, r := range kb.Items {
			out.Items[i] = r.Lower()
		}
	}
	if kb.ItemCanonical != nil {
		out.ItemCanonical = make(map[string]Value, len(kb.ItemCanonical))
		for k, v := range kb.ItemCanonical {
			out.ItemCanonical[strings.ToLower(k)] = v.Lower()
		}
	}
	return out
}

// WithItems returns a shallow copy whose rows are replaced by items.
func (kb *KB) WithItems(items []Row) *KB {
	out := *kb
	out.Items = items
	return &out
}

// WithCanonical returns a shallow copy carrying the canonical key map.
func (kb *KB) WithCanonical(m map[string]Value) *KB {
	out := *kb
	out.ItemCanonical = m
	return &out
}

func (kb KB) MarshalJSON() ([]byte, error) {
	members := map[string]any{
		"column_names": kb.ColumnNames,
		"items":        kb.Items,
	}
	if kb.ItemCanonical != nil {
		members["item_canonical"] = kb.ItemCanonical
	}
	return marshalObject(kb.Extra, members)
}

func (kb *KB) UnmarshalJSON(data []byte) error {
	f, err := splitObject(data)
	if err != nil {
		return err
	}
	var out KB
	if _, err := f.take("column_names", &out.ColumnNames); err != nil {
		return err
	}
	if _, err := f.take("items", &out.Items); err != nil {
		return err
	}
	if _, err := f.take("item_canonical", &out.ItemCanonical); err != nil {
		return err
	}
	out.Extra = f.extra()
	*kb = out
	return nil
}

// Task describes the goal of a dialogue. Intent is the domain label.
type Task struct {
	Intent string
	Extra  map[string]json.RawMessage
}

func (t Task) MarshalJSON() ([]byte, error) {
	return marshalObject(t.Extra, map[string]any{"intent": t.Intent})
}

func (t *Task) UnmarshalJSON(data []byte) error {
	f, err := splitObject(data)
	if err != nil {
		return err
	}
	var out Task
	if _, err := f.take("intent", &out.Intent); err != nil {
		return err
	}
	out.Extra = f.extra()
	*t = out
	return nil
}

// Scenario holds the dialogue's KB and task. A task or KB member the input
// did not carry is not written back, and an explicit "kb": null stays null.
type Scenario struct {
	KB    *KB
	Task  Task
	Extra map[string]json.RawMessage

	noTask bool
	nullKB bool
}

func (s Scenario) MarshalJSON() ([]byte, error) {
	members := map[string]any{}
	if !s.noTask || s.Task.Intent != "" || s.Task.Extra != nil {
		members["task"] = s.Task
	}
	switch {
	case s.KB != nil:
		members["kb"] = s.KB
	case s.nullKB:
		members["kb"] = nil
	}
	return marshalObject(s.Extra, members)
}

func (s *Scenario) UnmarshalJSON(data []byte) error {
	f, err := splitObject(data)
	if err != nil {
		return err
	}
	var out Scenario
	hasKB, err := f.take("kb", &out.KB)
	if err != nil {
		return err
	}
	out.nullKB = hasKB && out.KB == nil
	hasTask, err := f.take("task", &out.Task)
	if err != nil {
		return err
	}
	out.noTask = !hasTask
	out.Extra = f.extra()
	*s = out
	return nil
}

// TurnData is the payload of a turn. Derived fields are nil until a
// transform sets them.
type TurnData struct {
	Utterance     string
	Delexicalized *string
	Canonical     *string
	CanonicalKeys *string
	Entities      *string
	Extra         map[string]json.RawMessage

	noUtterance bool
}

func (d TurnData) MarshalJSON() ([]byte, error) {
	members := map[string]any{}
	if !d.noUtterance || d.Utterance != "" {
		members["utterance"] = d.Utterance
	}
	for name, v := range map[string]*string{
		FieldDelexicalized: d.Delexicalized,
		FieldCanonical:     d.Canonical,
		FieldCanonicalKeys: d.CanonicalKeys,
		FieldEntities:      d.Entities,
	} {
		if v != nil {
			members[name] = *v
		}
	}
	return marshalObject(d.Extra, members)
}

func (d *TurnData) UnmarshalJSON(data []byte) error {
	f, err := splitObject(data)
	if err != nil {
		return err
	}
	var out TurnData
	hasUtterance, err := f.take("utterance", &out.Utterance)
	if err != nil {
		return err
	}
	out.noUtterance = !hasUtterance
	for name, dst := range map[string]**string{
		FieldDelexicalized: &out.Delexicalized,
		FieldCanonical:     &out.Canonical,
		FieldCanonicalKeys: &out.CanonicalKeys,
		FieldEntities:      &out.Entities,
	} {
		if _, err := f.take(name, dst); err != nil {
			return err
		}
	}
	out.Extra = f.extra()
	*d = out
	return nil
}

// Turn is one utterance of a dialogue.
type Turn struct {
	Speaker string
	Data    TurnData
	Extra   map[string]json.RawMessage
}

// IsAssistant reports whether the turn was spoken by the assistant.
func (t Turn) IsAssistant() bool { return t.Speaker == SpeakerAssistant }

func (t Turn) MarshalJSON() ([]byte, error) {
	return marshalObject(t.Extra, map[string]any{"turn": t.Speaker, "data": t.Data})
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	f, err := splitObject(data)
	if err != nil {
		return err
	}
	var out Turn
	if _, err := f.take("turn", &out.Speaker); err != nil {
		return err
	}
	if _, err := f.take("data", &out.Data); err != nil {
		return err
	}
	out.Extra = f.extra()
	*t = out
	return nil
}

// Dialogue is one corpus record.
type Dialogue struct {
	Scenario Scenario
	Turns    []Turn
	Extra    map[string]json.RawMessage
}

// Domain returns the task intent.
func (d Dialogue) Domain() string { return d.Scenario.Task.Intent }

func (d Dialogue) MarshalJSON() ([]byte, error) {
	turns := d.Turns
	if turns == nil {
		turns = []Turn{}
	}
	return marshalObject(d.Extra, map[string]any{"scenario": d.Scenario, "dialogue": turns})
}

func (d *Dialogue) UnmarshalJSON(data []byte) error {
	f, err := splitObject(data)
	if err != nil {
		return err
	}
	var out Dialogue
	if ok, err := f.take("scenario", &out.Scenario); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("dialogue: missing scenario")
	}
	if _, err := f.take("dialogue", &out.Turns); err != nil {
		return err
	}
	out.Extra = f.extra()
	*d = out
	return nil
}
