package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Cell is one column/value pair of a Row.
type Cell struct {
	Column string
	Value  Value
}

// Row maps column names to scalar values and remembers the column order it
// was read in.
type Row struct {
	columns []string
	values  map[string]Value
}

// NewRow builds a row from cells in order. A repeated column keeps its first
// position and its last value.
func NewRow(cells ...Cell) Row {
	r := Row{values: make(map[string]Value, len(cells))}
	for _, c := range cells {
		r.set(c.Column, c.Value)
	}
	return r
}

func (r *Row) set(column string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = v
}

// Get returns the value stored under column.
func (r Row) Get(column string) (Value, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Len returns the number of cells.
func (r Row) Len() int { return len(r.columns) }

// Cells returns the cells in column order.
func (r Row) Cells() []Cell {
	out := make([]Cell, len(r.columns))
	for i, c := range r.columns {
		out[i] = Cell{Column: c, Value: r.values[c]}
	}
	return out
}

// Lower returns a copy with column names and values lowercased.
func (r Row) Lower() Row {
	out := Row{values: make(map[string]Value, len(r.columns))}
	for _, c := range r.columns {
		out.set(strings.ToLower(c), r.values[c].Lower())
	}
	return out
}

// Serialize renders the row as a single-line JSON object with ", " and ": "
// separators, the form rows are searched in during KB collapse.
func (r Row) Serialize() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		k, _ := marshalNoEscape(c)
		v, _ := r.values[c].MarshalJSON()
		sb.Write(k)
		sb.WriteString(": ")
		sb.Write(v)
	}
	sb.WriteByte('}')
	return sb.String()
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalNoEscape(c)
		if err != nil {
			return nil, err
		}
		v, err := r.values[c].MarshalJSON()
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

func (r *Row) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	out := Row{values: make(map[string]Value)}
	err := eachField(data, func(key string, raw json.RawMessage) error {
		var v Value
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("column %q: %w", key, err)
		}
		out.set(key, v)
		return nil
	})
	if err != nil {
		return err
	}
	*r = out
	return nil
}
