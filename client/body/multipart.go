package body

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Multipart is a multipart/form-data payload. It classifies as [Raw]
// carrying its own boundary-bearing content type.
type Multipart struct {
	Fields []Field
	Files  []File
}

// Field is a plain multipart form field.
type Field struct {
	Name  string
	Value string
}

// File is a multipart file part. Reader takes precedence over Data.
type File struct {
	FieldName   string
	FileName    string
	ContentType string
	Data        []byte
	Reader      io.Reader
}

// NewMultipart builds a Multipart from fields and files.
func NewMultipart(fields []Field, files ...File) *Multipart {
	return &Multipart{Fields: fields, Files: files}
}

// Raw encodes the parts into a buffered Raw body. Encoding errors are
// deferred until the body is read.
func (m *Multipart) Raw() Body {
	buf, contentType, err := m.encode()
	if err != nil {
		return Raw{Reader: &errReader{err: err}, Len: -1}
	}

	return Raw{Reader: buf, Len: int64(buf.Len()), ContentType: contentType}
}

func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range m.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f.Name, err)
		}
	}

	for _, f := range m.Files {
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(f.FieldName), escapeQuotes(f.FileName)))
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating part %s: %w", f.FieldName, err)
		}

		src := f.Reader
		if src == nil {
			src = bytes.NewReader(f.Data)
		}
		if _, err := io.Copy(part, src); err != nil {
			return nil, "", fmt.Errorf("writing part %s: %w", f.FieldName, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }
