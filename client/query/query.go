// Package query flattens nested values into the key=value&key2=value2
// wire format used by application/x-www-form-urlencoded request bodies.
//
// Nesting is expressed with bracketed path segments:
//
//	query.Encode(query.Map{
//		{Key: "a", Value: nil},
//		{Key: "b", Value: []int{2, 3}},
//		{Key: "c", Value: query.Map{{Key: "d", Value: []int{55}}}},
//	})
//	// a=null&b[0]=2&b[1]=3&c[d][0]=55
//
// Only leaves emit pairs. A nil leaf serializes to the literal "null";
// [Undefined] leaves are dropped entirely. Nil Go slices and maps are
// empty containers and emit nothing, like their empty counterparts.
// Floats follow the shortest round-trip form, switching to exponent
// notation outside [1e-6, 1e21) (so 1e21 is written "1e+21").
package query

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// ErrNotMapping is returned when the top level value handed to
// [Encode] is not a string-keyed mapping.
var ErrNotMapping = errors.New("query: value is not a mapping")

// Pair is a single key and its value inside an ordered [Map].
type Pair struct {
	Key   string
	Value any
}

// Map is a string-keyed mapping that keeps insertion order.
// Plain Go maps are walked in sorted key order instead.
type Map []Pair

// Get returns the first value stored under key.
func (m Map) Get(key string) (any, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes m as a JSON object in insertion order. Pairs
// holding [Undefined] are skipped.
func (m Map) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')

	first := true
	for _, p := range m {
		if _, ok := p.Value.(undefined); ok {
			continue
		}

		key, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(p.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", p.Key, err)
		}

		if !first {
			b.WriteByte(',')
		}
		first = false

		b.Write(key)
		b.WriteByte(':')
		b.Write(value)
	}

	b.WriteByte('}')
	return b.Bytes(), nil
}

type undefined struct{}

// Undefined marks a leaf that contributes no pair to the output.
var Undefined = undefined{}

// Encode flattens v into a form-urlencoded string. Keys and values are
// written as-is; use [EncodeEscaped] when they may contain reserved
// characters.
func Encode(v any) (string, error) {
	return encode(v, func(s string) string { return s })
}

// EncodeEscaped is Encode with every key and value passed through
// [url.QueryEscape].
func EncodeEscaped(v any) (string, error) {
	return encode(v, url.QueryEscape)
}

func encode(v any, esc func(string) string) (string, error) {
	if !IsMapping(v) {
		return "", fmt.Errorf("%w: %T", ErrNotMapping, v)
	}

	var b strings.Builder
	emit := func(path, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(esc(path))
		b.WriteByte('=')
		b.WriteString(esc(value))
	}

	if err := walk("", v, emit); err != nil {
		return "", err
	}

	return b.String(), nil
}

// IsMapping reports whether v is a plain string-keyed mapping: a [Map],
// a Go map with string keys, or a struct (or pointer to one).
func IsMapping(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case Map:
		return true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		return rv.Type().Key().Kind() == reflect.String
	case reflect.Struct:
		return !isScalarType(rv.Type())
	}

	return false
}

// Split re-splits an encoded string into its ordered path/value pairs.
// Values are returned as strings.
func Split(s string) Map {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, "&")
	out := make(Map, 0, len(parts))
	for _, part := range parts {
		k, v, _ := strings.Cut(part, "=")
		out = append(out, Pair{Key: k, Value: v})
	}

	return out
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "[" + key + "]"
}

func walk(path string, v any, emit func(path, value string)) error {
	switch val := v.(type) {
	case nil:
		emit(path, "null")
		return nil
	case undefined:
		return nil
	case Map:
		for _, p := range val {
			if err := walk(join(path, p.Key), p.Value, emit); err != nil {
				return err
			}
		}
		return nil
	case string:
		emit(path, val)
		return nil
	case json.Number:
		emit(path, val.String())
		return nil
	case []byte:
		emit(path, string(val))
		return nil
	case encoding.TextMarshaler:
		if rv := reflect.ValueOf(val); rv.Kind() == reflect.Pointer && rv.IsNil() {
			emit(path, "null")
			return nil
		}
		text, err := val.MarshalText()
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		emit(path, string(text))
		return nil
	}

	return walkValue(path, reflect.ValueOf(v), emit)
}

func walkValue(path string, rv reflect.Value, emit func(path, value string)) error {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			emit(path, "null")
			return nil
		}
		return walk(path, rv.Elem().Interface(), emit)

	case reflect.Bool:
		emit(path, strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		emit(path, strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		emit(path, strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32:
		emit(path, formatFloat(rv.Float(), 32))
	case reflect.Float64:
		emit(path, formatFloat(rv.Float(), 64))
	case reflect.String:
		emit(path, rv.String())

	case reflect.Slice, reflect.Array:
		for i := range rv.Len() {
			if err := walk(join(path, strconv.Itoa(i)), rv.Index(i).Interface(), emit); err != nil {
				return err
			}
		}

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("query: unsupported map key type %s at %q", rv.Type().Key(), path)
		}
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return strings.Compare(a.String(), b.String())
		})
		for _, k := range keys {
			if err := walk(join(path, k.String()), rv.MapIndex(k).Interface(), emit); err != nil {
				return err
			}
		}

	case reflect.Struct:
		return walkStruct(path, rv, emit)

	default:
		return fmt.Errorf("query: unsupported value of kind %s at %q", rv.Kind(), path)
	}

	return nil
}

func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}

	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		s := strconv.FormatFloat(f, 'e', -1, bitSize)
		s = strings.Replace(s, "e-0", "e-", 1)
		return strings.Replace(s, "e+0", "e+", 1)
	}

	return strconv.FormatFloat(f, 'f', -1, bitSize)
}

// walkStruct follows encoding/json naming: the json tag name when set,
// fields tagged "-" are skipped and omitempty zero values are dropped.
func walkStruct(path string, rv reflect.Value, emit func(path, value string)) error {
	rt := rv.Type()
	for i := range rt.NumField() {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name
		var omitEmpty bool
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, opts, _ := strings.Cut(tag, ",")
			if tagName == "-" && opts == "" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
			omitEmpty = slices.Contains(strings.Split(opts, ","), "omitempty")
		}

		fv := rv.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}

		if err := walk(join(path, name), fv.Interface(), emit); err != nil {
			return err
		}
	}

	return nil
}

var textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

// isScalarType reports struct types that serialize as a single leaf,
// such as time.Time.
func isScalarType(t reflect.Type) bool {
	return t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType)
}
