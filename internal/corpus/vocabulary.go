package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is a vocabulary item: either a scalar or a record of scalars.
type Entry struct {
	Scalar Value
	Record *Row
}

// ScalarEntry wraps a scalar vocabulary item.
func ScalarEntry(v Value) Entry { return Entry{Scalar: v} }

// RecordEntry wraps a record vocabulary item.
func RecordEntry(r Row) Entry { return Entry{Record: &r} }

func (e Entry) IsRecord() bool { return e.Record != nil }

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Record != nil {
		return e.Record.MarshalJSON()
	}
	return e.Scalar.MarshalJSON()
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var r Row
		if err := r.UnmarshalJSON(trimmed); err != nil {
			return err
		}
		*e = RecordEntry(r)
		return nil
	}
	var v Value
	if err := v.UnmarshalJSON(trimmed); err != nil {
		return err
	}
	*e = ScalarEntry(v)
	return nil
}

// Category is a named list of vocabulary entries.
type Category struct {
	Name    string
	Entries []Entry
}

// Vocabulary is the domain entity file, categories kept in file order.
type Vocabulary struct {
	Categories []Category
}

// PlaceholderVocabulary is the single-entry vocabulary written in place of
// the entities file of a delexicalized corpus.
func PlaceholderVocabulary(placeholder string) Vocabulary {
	return Vocabulary{Categories: []Category{{
		Name:    "entity",
		Entries: []Entry{ScalarEntry(StringValue(placeholder))},
	}}}
}

func (v Vocabulary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range v.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalNoEscape(c.Name)
		if err != nil {
			return nil, err
		}
		entries := c.Entries
		if entries == nil {
			entries = []Entry{}
		}
		body, err := marshalNoEscape(entries)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (v *Vocabulary) UnmarshalJSON(data []byte) error {
	var out Vocabulary
	err := eachField(data, func(key string, raw json.RawMessage) error {
		var entries []Entry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("category %q: %w", key, err)
		}
		out.Categories = append(out.Categories, Category{Name: key, Entries: entries})
		return nil
	})
	if err != nil {
		return err
	}
	*v = out
	return nil
}
