// Package body classifies request payloads into the encoding path they
// take on the wire.
//
// A payload is classified exactly once, by [Classify], into one of four
// variants: [None] (no payload), [JSON] (serialized with encoding/json),
// [Form] (flattened with the query encoder) or [Raw] (already in a
// transport-native format and passed through untouched).
package body

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/adamwoolhether/reqadapter/client/query"
)

// Kind names a Body variant.
type Kind int

const (
	KindNone Kind = iota
	KindJSON
	KindForm
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindJSON:
		return "json"
	case KindForm:
		return "form"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Body is a classified request payload.
type Body interface {
	Kind() Kind
	// Encode returns the wire reader and its length, -1 if unknown.
	// None returns a nil reader.
	Encode() (io.Reader, int64, error)
}

// None is the "no body" sentinel.
type None struct{}

func (None) Kind() Kind { return KindNone }

func (None) Encode() (io.Reader, int64, error) { return nil, 0, nil }

// JSON is a payload serialized with encoding/json.
type JSON struct {
	Value any
}

func (JSON) Kind() Kind { return KindJSON }

func (j JSON) Encode() (io.Reader, int64, error) {
	b, err := json.Marshal(j.Value)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding json body: %w", err)
	}

	return bytes.NewReader(b), int64(len(b)), nil
}

// Form is a mapping flattened into application/x-www-form-urlencoded.
type Form struct {
	Values any
}

func (Form) Kind() Kind { return KindForm }

func (f Form) Encode() (io.Reader, int64, error) {
	s, err := query.Encode(f.Values)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding form body: %w", err)
	}

	return strings.NewReader(s), int64(len(s)), nil
}

// Raw is a transport-native payload that is never re-encoded.
// ContentType is set by payloads that carry their own media type,
// such as multipart bodies.
type Raw struct {
	Reader      io.Reader
	Len         int64
	ContentType string
}

func (Raw) Kind() Kind { return KindRaw }

func (r Raw) Encode() (io.Reader, int64, error) {
	if r.Reader == nil {
		return bytes.NewReader(nil), 0, nil
	}
	return r.Reader, r.Len, nil
}

// Classify decides the encoding path for v. formEncoded reports whether
// the outgoing content type is application/x-www-form-urlencoded.
//
//   - nil is None.
//   - an already classified Body is kept, except that a JSON mapping in
//     form mode becomes Form so the payload matches its content type.
//   - string, []byte, io.Reader, *Multipart and Raw are passed through.
//   - a plain mapping in form mode is Form.
//   - anything else is JSON.
func Classify(v any, formEncoded bool) Body {
	switch val := v.(type) {
	case nil:
		return None{}
	case JSON:
		if formEncoded && query.IsMapping(val.Value) {
			return Form{Values: val.Value}
		}
		return val
	case Body:
		return val
	case string:
		return Raw{Reader: strings.NewReader(val), Len: int64(len(val))}
	case []byte:
		return Raw{Reader: bytes.NewReader(val), Len: int64(len(val))}
	case *Multipart:
		return val.Raw()
	case io.Reader:
		return Raw{Reader: val, Len: readerLen(val)}
	}

	if formEncoded && query.IsMapping(v) {
		return Form{Values: v}
	}

	return JSON{Value: v}
}

// Native reports whether b is passed to the transport untouched.
func Native(b Body) bool {
	return b != nil && b.Kind() == KindRaw
}

func readerLen(r io.Reader) int64 {
	switch v := r.(type) {
	case *bytes.Buffer:
		return int64(v.Len())
	case *bytes.Reader:
		return int64(v.Len())
	case *strings.Reader:
		return int64(v.Len())
	}
	return -1
}
