package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/net/publicsuffix"

	"github.com/adamwoolhether/reqadapter/client/body"
	"github.com/adamwoolhether/reqadapter/client/header"
	"github.com/adamwoolhether/reqadapter/client/throttle"
	"github.com/adamwoolhether/reqadapter/client/transport"
)

// Client turns [Descriptor] values into requests over a fresh transport
// primitive each. It holds only immutable configuration and is safe for
// concurrent use.
type Client struct {
	c         *http.Client
	jar       http.CookieJar
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *metrics
	primitive PrimitiveFactory
}

// Build creates a Client. The supplied [http.Client] is copied, never
// modified. Passing the same registerer to [WithMetrics] twice panics.
func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		logger: slog.Default(),
		tracer: noop.NewTracerProvider().Tracer("no-op tracer"),
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	hc := &http.Client{}
	if opts.client != nil {
		cpy := *opts.client
		hc = &cpy
	}
	client.c = hc

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if opts.registerer != nil {
		client.metrics = newMetrics(opts.registerer)
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var rt http.RoundTripper
	switch {
	case opts.rt != nil:
		rt = opts.rt
	case hc.Transport != nil:
		rt = hc.Transport
	default:
		rt = http.DefaultTransport
	}
	if opts.userAgent != "" {
		rt = userAgent{value: opts.userAgent, base: rt}
	}
	if opts.throttle != nil {
		trt, err := throttle.NewRoundTripper(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger }, rt)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		rt = trt
	}
	client.c.Transport = rt

	switch {
	case opts.jar != nil:
		client.jar = opts.jar
	case hc.Jar != nil:
		client.jar = hc.Jar
	default:
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		client.jar = jar
	}

	client.primitive = opts.primitive
	if client.primitive == nil {
		client.primitive = func() transport.Primitive {
			return transport.NewHTTP(client.c, client.jar)
		}
	}

	return client, nil
}

// Adapter returns c.Request as a plain function value.
func (c *Client) Adapter() Adapter {
	return c.Request
}

// Request configures and dispatches d, returning its handle without
// waiting for the network. Configuration failures settle the handle
// immediately with a [KindSetup] error and nothing is sent.
func (c *Client) Request(d Descriptor) *Handle {
	h := newHandle(uuid.NewString())
	h.OnDownload(d.Options.OnDownload)
	h.OnUpload(d.Options.OnUpload)
	log := c.logger.With("req_id", h.id)

	ctx, span := c.tracer.Start(context.Background(), "reqadapter.request", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("req_id", h.id),
		attribute.String("http.method", d.Method),
		attribute.String("url", d.URL),
	)

	start := time.Now()
	var dispatched bool

	h.onSettle = func(resp *Response, err error) {
		outcome := "ok"

		var reqErr *Error
		if errors.As(err, &reqErr) {
			outcome = reqErr.Kind.String()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if resp != nil {
			span.SetAttributes(attribute.Int("http.status_code", resp.Status))
			c.metrics.transferred("download", contentLength(resp.Headers))
		}
		span.End()

		c.metrics.settled(d.Method, outcome, dispatched, time.Since(start))
		log.Debug("request settled", "method", d.Method, "url", d.URL, "outcome", outcome, "since", time.Since(start).String())
	}

	err := c.dispatch(ctx, h, d, func(length int64) {
		dispatched = true
		c.metrics.started(d.Method)
		c.metrics.transferred("upload", length)
		log.Debug("request dispatched", "method", d.Method, "url", d.URL)
	})
	if err != nil {
		log.Debug("request setup failed", "method", d.Method, "url", d.URL, "error", err)
		h.settle(nil, setupError(err))
	}

	return h
}

// dispatch drives a new primitive through its setup sequence. sending is
// called right before Send with the body length.
func (c *Client) dispatch(ctx context.Context, h *Handle, d Descriptor, sending func(int64)) error {
	if err := Validate(d); err != nil {
		return err
	}

	prim := c.primitive()
	h.abort = prim.Abort

	if err := prim.Open(d.Method, d.URL, d.Options.Auth); err != nil {
		return err
	}

	rt := d.Options.ResponseType
	if rt == "" {
		rt = ResponseJSON
	}
	if err := prim.SetResponseType(rt); err != nil {
		return err
	}

	if err := prim.SetTimeout(d.Options.Timeout); err != nil {
		return err
	}

	if d.Options.WithCredentials {
		if err := prim.SetWithCredentials(true); err != nil {
			return err
		}
	}

	if d.Options.MimeType != "" {
		if err := prim.OverrideMimeType(d.Options.MimeType); err != nil {
			return err
		}
	}

	neg := header.Negotiate(d.Headers)
	b := body.Classify(d.Body, neg.FormEncoded)
	payload, length, err := b.Encode()
	if err != nil {
		return err
	}

	for _, p := range neg.Finalize(b) {
		if err := prim.SetRequestHeader(p.Name, p.Value); err != nil {
			return err
		}
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		if neg.Has(k) {
			continue
		}
		if err := prim.SetRequestHeader(k, v); err != nil {
			return err
		}
	}

	l := transport.Listeners{
		Load:    func() { h.settle(normalize(prim), nil) },
		Error:   func(err error) { h.settle(nil, networkError(err)) },
		Timeout: func(err error) { h.settle(nil, timeoutError(err)) },
		Abort:   func() { h.settle(nil, abortedError()) },
	}
	if d.Options.EnableDownload {
		l.Download = h.emitDownload
	}
	if d.Options.EnableUpload {
		l.Upload = h.emitUpload
	}
	prim.Listen(l)

	sending(length)

	return prim.Send(payload, length)
}

func contentLength(headers map[string]string) int64 {
	n, err := strconv.ParseInt(headers["content-length"], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
