package echoserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option configures the handler built by [New].
type Option func(*options)

type options struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	delay    time.Duration
	download []byte
	origins  []string
}

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithTracer sets the server tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithDelay sets how long /unit-test-10s waits before answering.
func WithDelay(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

// WithDownload sets the payload served by /unit-test-download.
func WithDownload(payload []byte) Option {
	return func(o *options) { o.download = payload }
}

// WithCORS answers cross-origin requests from origins.
func WithCORS(origins ...string) Option {
	return func(o *options) { o.origins = origins }
}

// DefaultDownloadSize is the size of the generated download payload.
const DefaultDownloadSize = 256 << 10

// Result is the JSON envelope returned by the echo routes.
type Result struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data Echo   `json:"data"`
}

// Echo describes the request that was received.
type Echo struct {
	Path   string            `json:"path"`
	Method string            `json:"method"`
	Params map[string]string `json:"params"`
	Data   any               `json:"data,omitempty"`
}

// New returns the echo handler.
func New(optFns ...Option) http.Handler {
	o := options{
		delay:    4 * time.Second,
		download: DownloadPayload(DefaultDownloadSize),
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	mw := []Middleware{Logger(o.logger)}
	if len(o.origins) > 0 {
		mw = append(mw, CORS(o.origins))
	}
	mw = append(mw, Panics())

	app := NewApp(o.logger, o.tracer, mw...)
	h := handlers{delay: o.delay, download: o.download}

	app.Get("/unit-test", h.echo)
	app.Post("/unit-test", h.echo)
	app.Get("/unit-test-10s", h.slow)
	app.Get("/unit-test-404", h.notFound)
	app.Get("/unit-test-error", h.drop)
	app.Get("/unit-test-download", h.serveDownload)
	app.Post("/unit-test-upload", h.upload)

	if len(o.origins) > 0 {
		app.Handle(http.MethodOptions, "/", func(context.Context, http.ResponseWriter, *http.Request) error {
			return nil
		})
	}

	return app
}

// DownloadPayload returns n deterministic bytes.
func DownloadPayload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

type handlers struct {
	delay    time.Duration
	download []byte
}

func (h handlers) echo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	e, err := describe(r)
	if err != nil {
		return respondJSON(ctx, w, http.StatusBadRequest, Result{Code: http.StatusBadRequest, Msg: err.Error()})
	}

	return respondJSON(ctx, w, http.StatusOK, Result{Code: http.StatusOK, Data: e})
}

func (h handlers) slow(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	select {
	case <-time.After(h.delay):
	case <-ctx.Done():
		return nil
	}

	return h.echo(ctx, w, r)
}

// notFound replies 404 with the reason phrase "api not found", which the
// standard ResponseWriter cannot express.
func (h handlers) notFound(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	setStatusCode(ctx, http.StatusNotFound)

	conn, buf, err := http.NewResponseController(w).Hijack()
	if err != nil {
		return fmt.Errorf("hijacking: %w", err)
	}
	defer conn.Close()

	if _, err := buf.WriteString("HTTP/1.1 404 api not found\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"); err != nil {
		return fmt.Errorf("writing status line: %w", err)
	}

	return buf.Flush()
}

// drop closes the connection without answering.
func (h handlers) drop(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	conn, _, err := http.NewResponseController(w).Hijack()
	if err != nil {
		return fmt.Errorf("hijacking: %w", err)
	}

	return conn.Close()
}

func (h handlers) serveDownload(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	setStatusCode(ctx, http.StatusOK)

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(h.download)))
	w.WriteHeader(http.StatusOK)

	_, err := io.Copy(w, bytes.NewReader(h.download))
	return err
}

// upload echoes the request and the content type it arrived with.
func (h handlers) upload(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := io.Copy(io.Discard, r.Body)
	if err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}

	e := Echo{
		Path:   r.URL.Path,
		Method: r.Method,
		Params: params(r),
	}
	e.Params["contentType"] = r.Header.Get("Content-Type")
	e.Params["size"] = strconv.FormatInt(n, 10)

	return respondJSON(ctx, w, http.StatusOK, Result{Code: http.StatusOK, Data: e})
}

// describe builds the echo of r. JSON bodies are decoded, any other body
// is returned as text.
func describe(r *http.Request) (Echo, error) {
	e := Echo{
		Path:   r.URL.Path,
		Method: r.Method,
		Params: params(r),
	}

	if r.Body == nil || r.Method == http.MethodGet {
		return e, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return e, fmt.Errorf("reading body: %w", err)
	}
	if len(raw) == 0 {
		return e, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		e.Data = string(raw)
		return e, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return e, errors.New("body is not valid json")
	}
	e.Data = v

	return e, nil
}

func params(r *http.Request) map[string]string {
	out := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func respondJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) error {
	setStatusCode(ctx, statusCode)

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err = w.Write(jsonData); err != nil {
		return err
	}

	return nil
}
