//go:build integration

package e2e_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/reqadapter"
	"github.com/adamwoolhether/reqadapter/client"
	"github.com/adamwoolhether/reqadapter/client/body"
	"github.com/adamwoolhether/reqadapter/internal/echoserver"
)

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

func newTestServer(t *testing.T) string {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := echoserver.NewServer(ln.Addr().String(), echoserver.New(
		echoserver.WithLogger(log),
		echoserver.WithDelay(2*time.Second),
	), log)

	var wg sync.WaitGroup
	wg.Go(func() {
		if err := srv.Run(ctx, ln); err != nil {
			t.Errorf("server run: %v", err)
		}
	})
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	return "http://" + ln.Addr().String()
}

func newAdapter(t *testing.T) client.Adapter {
	t.Helper()

	adapter, err := reqadapter.NewAdapter(client.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	return adapter
}

func settle(t *testing.T, h *client.Handle) (*client.Response, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	resp, err := h.Response(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("handle never settled")
	}
	return resp, err
}

// -------------------------------------------------------------------------
// Tests
// -------------------------------------------------------------------------

func TestE2E_JSONRoundTrip(t *testing.T) {
	base := newTestServer(t)
	adapter := newAdapter(t)

	resp, err := settle(t, adapter(client.Descriptor{
		Method: http.MethodPost,
		URL:    base + "/unit-test?a=1",
		Body:   map[string]any{"name": "alice", "age": 30},
	}))
	if err != nil {
		t.Fatalf("expected response, got: %v", err)
	}

	data := resp.Data.(map[string]any)["data"].(map[string]any)
	want := map[string]any{"name": "alice", "age": float64(30)}
	if diff := cmp.Diff(want, data["data"]); diff != "" {
		t.Errorf("echoed body mismatch (-want +got):\n%s", diff)
	}
	if got := data["params"].(map[string]any)["a"]; got != "1" {
		t.Errorf("expected query param echoed, got %v", got)
	}
}

func TestE2E_FormRoundTrip(t *testing.T) {
	base := newTestServer(t)
	adapter := newAdapter(t)

	resp, err := settle(t, adapter(client.Descriptor{
		Method:  http.MethodPost,
		URL:     base + "/unit-test",
		Headers: map[string]string{"CONTENT-TYPE": "application/x-www-form-urlencoded"},
		Body:    map[string]any{"a": 1, "b": []any{1, 2}},
	}))
	if err != nil {
		t.Fatalf("expected response, got: %v", err)
	}

	data := resp.Data.(map[string]any)["data"].(map[string]any)
	if got := data["data"]; got != "a=1&b[0]=1&b[1]=2" {
		t.Errorf("expected flattened form body, got %v", got)
	}
}

func TestE2E_ReasonPhrase(t *testing.T) {
	base := newTestServer(t)
	adapter := newAdapter(t)

	resp, err := settle(t, adapter(client.Descriptor{Method: http.MethodGet, URL: base + "/unit-test-404"}))
	if err != nil {
		t.Fatalf("expected response, got: %v", err)
	}

	if resp.Status != http.StatusNotFound || resp.StatusText != "api not found" {
		t.Errorf("expected 404 api not found, got %d %q", resp.Status, resp.StatusText)
	}
}

func TestE2E_Failures(t *testing.T) {
	base := newTestServer(t)
	adapter := newAdapter(t)

	tests := []struct {
		name string
		d    client.Descriptor
		want error
	}{
		{"network", client.Descriptor{Method: http.MethodGet, URL: base + "/unit-test-error"}, client.ErrNetwork},
		{"timeout", client.Descriptor{Method: http.MethodGet, URL: base + "/unit-test-10s", Options: client.RequestOptions{Timeout: 100 * time.Millisecond}}, client.ErrTimeout},
		{"setup", client.Descriptor{Method: http.MethodGet, URL: base + "/unit-test", Options: client.RequestOptions{Timeout: -1}}, client.ErrSetup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := settle(t, adapter(tt.d)); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
		})
	}
}

func TestE2E_DownloadAndUpload(t *testing.T) {
	base := newTestServer(t)
	adapter := newAdapter(t)

	var last int64
	resp, err := settle(t, adapter(client.Descriptor{
		Method: http.MethodGet,
		URL:    base + "/unit-test-download",
		Options: client.RequestOptions{
			ResponseType:   client.ResponseBlob,
			EnableDownload: true,
			OnDownload:     func(loaded, _ int64) { last = loaded },
		},
	}))
	if err != nil {
		t.Fatalf("download: %v", err)
	}

	blob := resp.Data.(client.Blob)
	if int64(len(blob.Data)) != echoserver.DefaultDownloadSize || last != echoserver.DefaultDownloadSize {
		t.Fatalf("expected %d bytes, got %d (progress %d)", echoserver.DefaultDownloadSize, len(blob.Data), last)
	}

	mp := body.NewMultipart(
		[]body.Field{{Name: "name", Value: "download"}},
		body.File{FieldName: "file", FileName: "download.jpg", ContentType: blob.Type, Data: blob.Data},
	)

	resp, err = settle(t, adapter(client.Descriptor{
		Method: http.MethodPost,
		URL:    base + "/unit-test-upload",
		Body:   mp,
	}))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	params := resp.Data.(map[string]any)["data"].(map[string]any)["params"].(map[string]any)
	size, _ := strconv.ParseInt(params["size"].(string), 10, 64)
	if size <= echoserver.DefaultDownloadSize {
		t.Errorf("expected multipart body larger than the file, got %d", size)
	}
}
