package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Cell is one named value of a source row.
type Cell struct {
	Name  string
	Value string
}

// RowData is a source row in column order. It encodes as a JSON object whose
// keys keep that order.
type RowData []Cell

// NewRowData zips header with cells. Missing trailing cells are empty and
// cells beyond the header are dropped.
func NewRowData(header, cells []string) RowData {
	out := make(RowData, len(header))
	for i, name := range header {
		out[i].Name = name
		if i < len(cells) {
			out[i].Value = cells[i]
		}
	}
	return out
}

// Get returns the value of the named column, or "" if there is none.
func (d RowData) Get(name string) string {
	for _, c := range d {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// MarshalJSON writes the cells as an object without HTML escaping.
func (d RowData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, c := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(c.Name); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(c.Value); err != nil {
			return nil, err
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of string values, keeping key order.
func (d *RowData) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("row data: expected object")
	}

	out := RowData{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("row data: unexpected key %v", tok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("row data %q: %w", name, err)
		}
		out = append(out, Cell{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
