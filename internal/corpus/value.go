package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags the scalar held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a scalar KB cell or vocabulary entry. Numbers keep their JSON
// literal so they are written back exactly as read.
type Value struct {
	kind Kind
	text string
}

// StringValue wraps a string scalar.
func StringValue(s string) Value { return Value{kind: KindString, text: s} }

// NumberValue wraps a JSON number literal such as "7" or "2.5".
func NumberValue(literal string) Value { return Value{kind: KindNumber, text: literal} }

// BoolValue wraps a boolean scalar.
func BoolValue(b bool) Value {
	if b {
		return Value{kind: KindBool, text: "true"}
	}
	return Value{kind: KindBool, text: "false"}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// String renders the scalar as text for matching: strings verbatim, numbers
// as their literal, booleans as True/False and null as None.
func (v Value) String() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.text
	case KindBool:
		if v.text == "true" {
			return "True"
		}
		return "False"
	default:
		return "None"
	}
}

// Lower returns the value with its textual form lowercased. Booleans and
// null are already lowercase in JSON and come back unchanged.
func (v Value) Lower() Value {
	switch v.kind {
	case KindString, KindNumber:
		return Value{kind: v.kind, text: strings.ToLower(v.text)}
	default:
		return v
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return marshalNoEscape(v.text)
	case KindNumber, KindBool:
		return []byte(v.text), nil
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("corpus: empty value")
	}
	switch data[0] {
	case 'n':
		*v = Value{}
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case '{', '[':
		return fmt.Errorf("corpus: expected scalar, got %s", preview(data))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberValue(n.String())
		return nil
	}
}

// marshalNoEscape encodes v without HTML escaping, matching how the corpus
// files are written.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func preview(data []byte) string {
	if len(data) > 40 {
		return string(data[:40]) + "..."
	}
	return string(data)
}
