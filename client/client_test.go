package client_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/adamwoolhether/reqadapter/client"
	"github.com/adamwoolhether/reqadapter/client/throttle"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// await settles h or fails the test.
func await(t *testing.T, h *client.Handle) (*client.Response, error) {
	t.Helper()

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("handle never settled")
	}

	return h.Response(t.Context())
}

func get(t *testing.T, c *client.Client, url string) *client.Response {
	t.Helper()

	resp, err := await(t, c.Request(client.Descriptor{Method: http.MethodGet, URL: url}))
	if err != nil {
		t.Fatalf("expected response, got: %v", err)
	}
	return resp
}

func TestClient_WithUserAgent(t *testing.T) {
	expectedUA := "TestUserAgent/1.0"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		if ua != expectedUA {
			t.Errorf("expected User-Agent %q, got %q", expectedUA, ua)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.Build(client.WithUserAgent(expectedUA), client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if resp := get(t, c, ts.URL); resp.Status != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.Status)
	}
}

func TestClient_WithThrottleAndUserAgent(t *testing.T) {
	expectedUA := "ThrottledAgent/1.0"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != expectedUA {
			t.Errorf("expected User-Agent %q, got %q", expectedUA, ua)
		}
	}))
	defer ts.Close()

	// WithThrottle applied before WithUserAgent; order does not matter.
	c, err := client.Build(
		client.WithThrottle(100, 10),
		client.WithUserAgent(expectedUA),
		client.WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if resp := get(t, c, ts.URL); resp.Status != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.Status)
	}
}

func TestClient_WithThrottleValidation(t *testing.T) {
	_, err := client.Build(client.WithThrottle(0, 10))
	if err == nil {
		t.Fatal("expected error for zero rps")
	}
	if !errors.Is(err, throttle.ErrMustNotBeZero) {
		t.Errorf("expected ErrMustNotBeZero, got: %v", err)
	}
}

func TestClient_WithTransport(t *testing.T) {
	var called atomic.Bool
	custom := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called.Store(true)
		return http.DefaultTransport.RoundTrip(r)
	})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	c, err := client.Build(client.WithTransport(custom), client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	get(t, c, ts.URL)

	if !called.Load() {
		t.Error("custom transport was not called")
	}
}

func TestClient_NilOptions(t *testing.T) {
	tests := map[string]client.Option{
		"client":     client.WithClient(nil),
		"transport":  client.WithTransport(nil),
		"tracer":     client.WithTracer(nil),
		"metrics":    client.WithMetrics(nil),
		"cookie jar": client.WithCookieJar(nil),
		"primitive":  client.WithPrimitive(nil),
	}

	for name, opt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := client.Build(opt); err == nil {
				t.Fatalf("expected error for nil %s", name)
			}
		})
	}
}

func TestClient_WithTimeoutNegative(t *testing.T) {
	_, err := client.Build(client.WithTimeout(-1))
	if err == nil {
		t.Fatal("expected error for negative timeout")
	}
}

func TestClient_WithTimeoutSettlesAsTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c, err := client.Build(client.WithTimeout(50*time.Millisecond), client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = await(t, c.Request(client.Descriptor{Method: http.MethodGet, URL: ts.URL}))
	if !errors.Is(err, client.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got: %v", err)
	}
}

func TestClient_WithClientIsNotModified(t *testing.T) {
	hc := &http.Client{}

	if _, err := client.Build(client.WithClient(hc), client.WithTimeout(time.Second), client.WithUserAgent("x")); err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if hc.Timeout != 0 || hc.Transport != nil {
		t.Error("expected caller's http.Client left untouched")
	}
}

func TestClient_WithNoFollowRedirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/target", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	// Order should not matter between WithClient and WithNoFollowRedirects.
	orders := map[string][]client.Option{
		"client first": {client.WithClient(&http.Client{}), client.WithNoFollowRedirects()},
		"client last":  {client.WithNoFollowRedirects(), client.WithClient(&http.Client{})},
	}

	for name, opts := range orders {
		t.Run(name, func(t *testing.T) {
			c, err := client.Build(append(opts, client.WithLogger(quietLogger()))...)
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}

			if resp := get(t, c, ts.URL+"/redirect"); resp.Status != http.StatusFound {
				t.Errorf("expected 302 response without following, got %d", resp.Status)
			}
		})
	}
}

func TestClient_WithMetrics(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	reg := prometheus.NewRegistry()
	c, err := client.Build(client.WithMetrics(reg), client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	get(t, c, ts.URL)
	c.Request(client.Descriptor{Method: http.MethodGet, URL: "not a url"})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	outcomes := make(map[string]float64)
	var inFlight float64 = -1
	for _, mf := range families {
		switch mf.GetName() {
		case "reqadapter_requests_total":
			for _, m := range mf.GetMetric() {
				for _, l := range m.GetLabel() {
					if l.GetName() == "outcome" {
						outcomes[l.GetValue()] += m.GetCounter().GetValue()
					}
				}
			}
		case "reqadapter_requests_in_flight":
			inFlight = 0
			for _, m := range mf.GetMetric() {
				inFlight += m.GetGauge().GetValue()
			}
		}
	}

	if outcomes["ok"] != 1 {
		t.Errorf("expected one ok request, got %v", outcomes["ok"])
	}
	if outcomes["setup"] != 1 {
		t.Errorf("expected one setup failure, got %v", outcomes["setup"])
	}
	if inFlight != 0 {
		t.Errorf("expected nothing in flight, got %v", inFlight)
	}
}

func TestClient_Adapter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("pong"))
	}))
	defer ts.Close()

	c, err := client.Build(client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	adapter := c.Adapter()
	resp, err := await(t, adapter(client.Descriptor{
		Method:  http.MethodGet,
		URL:     ts.URL,
		Options: client.RequestOptions{ResponseType: client.ResponseText},
	}))
	if err != nil {
		t.Fatalf("expected response, got: %v", err)
	}
	if resp.Data != "pong" {
		t.Errorf("expected pong, got %v", resp.Data)
	}
	if !strings.HasPrefix(resp.Headers["content-type"], "text/plain") {
		t.Errorf("expected lower-cased content-type header, got %v", resp.Headers)
	}
}

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
