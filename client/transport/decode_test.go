package transport

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		t           ResponseType
		contentType string
		data        []byte
		want        any
	}{
		{"json object", ResponseJSON, "application/json", []byte(`{"a":[1,"b"]}`), map[string]any{"a": []any{float64(1), "b"}}},
		{"json empty", ResponseJSON, "application/json", nil, nil},
		{"json invalid", ResponseJSON, "application/json", []byte(`<html>`), nil},
		{"json null", ResponseJSON, "", []byte(`null`), nil},
		{"text", ResponseText, "text/plain", []byte("héllo"), "héllo"},
		{"text latin1", ResponseText, "text/plain; charset=ISO-8859-1", []byte{'c', 0xe9}, "cé"},
		{"text unknown charset", ResponseText, "text/plain; charset=nope", []byte("raw"), "raw"},
		{"arraybuffer", ResponseArrayBuffer, "", []byte{1, 2}, []byte{1, 2}},
		{"blob", ResponseBlob, "image/jpeg", []byte{0xff}, Blob{Type: "image/jpeg", Data: []byte{0xff}}},
		{"document non markup", ResponseDocument, "application/json", []byte(`{}`), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decode(tt.t, tt.contentType, tt.data)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("decode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Document(t *testing.T) {
	got := decode(ResponseDocument, "text/html; charset=utf-8", []byte("<html><head><title>hi</title></head></html>"))

	doc, ok := got.(*html.Node)
	if !ok {
		t.Fatalf("expected *html.Node, got %T", got)
	}

	var title string
	var find func(n *html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = n.FirstChild.Data
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)

	if title != "hi" {
		t.Errorf("expected title hi, got %q", title)
	}
}

func TestDecode_UserDefinedCharset(t *testing.T) {
	got, ok := decode(ResponseText, "text/plain; charset=x-user-defined", []byte("abc")).(string)
	if !ok {
		t.Fatal("expected string")
	}
	if got != "abc" {
		t.Errorf("expected ascii bytes preserved, got %q", got)
	}
}

func TestResponseType_Valid(t *testing.T) {
	for _, rt := range []ResponseType{ResponseJSON, ResponseBlob, ResponseText, ResponseArrayBuffer, ResponseDocument} {
		if !rt.Valid() {
			t.Errorf("expected %q valid", rt)
		}
	}
	if ResponseType("").Valid() || ResponseType("xml").Valid() {
		t.Error("expected empty and unknown types invalid")
	}
}
