package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// eachField walks a JSON object in source order.
func eachField(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("corpus: expected object, got %s", preview(data))
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("corpus: unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

// fields splits an object into raw members so known keys can be taken out
// and the rest kept as extras.
type fields map[string]json.RawMessage

func splitObject(data []byte) (fields, error) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f == nil {
		f = fields{}
	}
	return f, nil
}

// take decodes and removes key. It reports whether the key was present.
func (f fields) take(key string, dst any) (bool, error) {
	raw, ok := f[key]
	if !ok {
		return false, nil
	}
	delete(f, key)
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("%s: %w", key, err)
	}
	return true, nil
}

func (f fields) extra() map[string]json.RawMessage {
	if len(f) == 0 {
		return nil
	}
	return map[string]json.RawMessage(f)
}

// marshalObject merges typed members over preserved extras.
func marshalObject(extra map[string]json.RawMessage, members map[string]any) ([]byte, error) {
	out := make(map[string]any, len(extra)+len(members))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range members {
		out[k] = v
	}
	return marshalNoEscape(out)
}

func lowerExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		out[strings.ToLower(k)] = json.RawMessage(bytes.ToLower(v))
	}
	return out
}
