package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// decode interprets a response body according to t. contentType is the
// effective media type, used for charset and document detection.
func decode(t ResponseType, contentType string, data []byte) any {
	switch t {
	case ResponseText:
		return transcode(data, contentType)

	case ResponseArrayBuffer:
		return data

	case ResponseBlob:
		return Blob{Type: contentType, Data: data}

	case ResponseDocument:
		if !isMarkup(contentType) {
			return nil
		}
		r, err := charset.NewReader(bytes.NewReader(data), contentType)
		if err != nil {
			r = bytes.NewReader(data)
		}
		doc, err := html.Parse(r)
		if err != nil {
			return nil
		}
		return doc

	default:
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil
		}
		return v
	}
}

// transcode converts data to UTF-8 using the charset parameter of
// contentType. Without a known charset the bytes are taken as UTF-8.
func transcode(data []byte, contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil || params["charset"] == "" {
		return string(data)
	}

	enc, _ := charset.Lookup(params["charset"])
	if enc == nil {
		return string(data)
	}

	out, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(data)))
	if err != nil {
		return string(data)
	}

	return string(out)
}

func isMarkup(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/xml", "application/xml":
		return true
	}

	return strings.HasSuffix(mediaType, "+xml")
}
