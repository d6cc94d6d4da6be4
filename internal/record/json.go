package record

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	ErrNotObject    = errors.New("record: expected a JSON object")
	ErrTrailingData = errors.New("record: trailing data after object")
)

// ParseJSON lee un objeto JSON {"campo":"valor",...} respetando el orden de las claves.
// Los valores deben ser strings; se guardan como sus bytes UTF-8.
func ParseJSON(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}
	r := New()
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("record: %w", err)
		}
		name, _ := kt.(string)
		var v string
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("record: field %q: %w", name, err)
		}
		r.Set(name, []byte(v))
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	// una línea = un objeto
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return r, nil
}

// MarshalBase64JSON serializa el registro como objeto JSON con los valores en base64
// estándar, en orden de inserción. Los valores firmados son binarios, por eso base64.
func (r *Record) MarshalBase64JSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.WriteByte('"')
		buf.WriteString(base64.StdEncoding.EncodeToString(r.values[n]))
		buf.WriteByte('"')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
