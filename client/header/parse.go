package header

import (
	"net/http"
	"slices"
	"strings"
)

// Parse turns a raw header blob of newline separated "name: value" lines
// into a mapping. Carriage returns and surrounding whitespace are
// trimmed, blank or malformed lines are skipped, and a later duplicate
// name overwrites an earlier one. An empty blob yields an empty mapping.
func Parse(blob string) map[string]string {
	headers := make(map[string]string)

	for line := range strings.SplitSeq(blob, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		headers[name] = strings.TrimSpace(value)
	}

	return headers
}

// Blob renders h as a raw header blob: lower-cased names in sorted
// order, repeated values joined with ", ", lines ended by CRLF.
func Blob(h http.Header) string {
	if len(h) == 0 {
		return ""
	}

	merged := make(map[string][]string, len(h))
	for name, values := range h {
		lower := strings.ToLower(name)
		merged[lower] = append(merged[lower], values...)
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.Join(merged[name], ", "))
		b.WriteString("\r\n")
	}

	return b.String()
}
