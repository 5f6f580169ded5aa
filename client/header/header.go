// Package header negotiates outgoing request headers and parses raw
// response header blobs.
package header

import (
	"regexp"
	"slices"
	"strings"

	"github.com/adamwoolhether/reqadapter/client/body"
)

const (
	// ContentType is the canonical Content-Type header name.
	ContentType = "Content-Type"
	// DefaultContentType is injected when the caller sets no content type
	// and the payload is not transport-native.
	DefaultContentType = "application/json; charset=UTF-8"
	// FormURLEncoded is the media type that switches bodies to form encoding.
	FormURLEncoded = "application/x-www-form-urlencoded"
)

var formPattern = regexp.MustCompile(`(?i)application/x-www-form-urlencoded`)

// Pair is a single outgoing header.
type Pair struct {
	Name  string
	Value string
}

// Negotiation is the result of inspecting caller supplied headers.
type Negotiation struct {
	pairs []Pair

	// ContentTypeSet reports whether any header named content-type
	// (any case) was supplied.
	ContentTypeSet bool
	// FormEncoded reports whether that header selects form encoding.
	FormEncoded bool
}

// Negotiate copies headers verbatim, in sorted name order, while
// detecting the content type.
func Negotiate(headers map[string]string) Negotiation {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	slices.Sort(names)

	var n Negotiation
	n.pairs = make([]Pair, 0, len(names)+1)
	for _, name := range names {
		value := headers[name]
		if strings.EqualFold(name, ContentType) {
			n.ContentTypeSet = true
			n.FormEncoded = formPattern.MatchString(value)
		}
		n.pairs = append(n.pairs, Pair{Name: name, Value: value})
	}

	return n
}

// Finalize returns the outgoing header set for payload b. A missing
// content type is derived from b: form bodies get [FormURLEncoded],
// transport-native bodies their own content type (if any), and
// everything else [DefaultContentType]. Caller headers are never
// overridden.
func (n Negotiation) Finalize(b body.Body) []Pair {
	out := slices.Clone(n.pairs)
	if n.ContentTypeSet {
		return out
	}

	switch v := b.(type) {
	case body.Form:
		return append(out, Pair{Name: ContentType, Value: FormURLEncoded})
	case body.Raw:
		if v.ContentType != "" {
			return append(out, Pair{Name: ContentType, Value: v.ContentType})
		}
		return out
	}

	if body.Native(b) {
		return out
	}

	return append(out, Pair{Name: ContentType, Value: DefaultContentType})
}

// Has reports whether the caller supplied a header named name, ignoring case.
func (n Negotiation) Has(name string) bool {
	return slices.ContainsFunc(n.pairs, func(p Pair) bool {
		return strings.EqualFold(p.Name, name)
	})
}
