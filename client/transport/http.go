package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/adamwoolhether/reqadapter/client/header"
)

type state int

const (
	stateUnsent state = iota
	stateOpened
	stateSent
	stateDone
)

type event int

const (
	eventLoad event = iota
	eventError
	eventTimeout
	eventAbort
)

// HTTP is a [Primitive] backed by an [http.Client]. One HTTP value
// serves exactly one request.
type HTTP struct {
	client *http.Client
	jar    http.CookieJar

	// emitMu serializes listener delivery so that progress delivered from
	// the transport's body writer never overlaps the terminal event.
	emitMu sync.Mutex

	mu              sync.Mutex
	state           state
	aborted         bool
	cancel          context.CancelFunc
	req             *http.Request
	responseType    ResponseType
	timeout         time.Duration
	withCredentials bool
	mimeType        string
	listeners       Listeners

	status     int
	statusText string
	respHeader http.Header
	response   any
}

// NewHTTP returns a primitive dispatching through hc. Cookies from jar
// are only sent and stored when credentials are enabled.
func NewHTTP(hc *http.Client, jar http.CookieJar) *HTTP {
	if hc == nil {
		hc = http.DefaultClient
	}

	return &HTTP{
		client:       hc,
		jar:          jar,
		responseType: ResponseJSON,
	}
}

func (p *HTTP) Open(method, rawURL string, auth *Auth) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateUnsent && p.state != stateOpened {
		return fmt.Errorf("%w: open after send", ErrInvalidState)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q must be absolute", ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequest(method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("instantiating request: %w", err)
	}

	if auth != nil && (auth.Username != "" || auth.Password != "") {
		req.SetBasicAuth(auth.Username, auth.Password)
	}

	p.req = req
	p.state = stateOpened

	return nil
}

func (p *HTTP) SetResponseType(t ResponseType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidResponseType, t)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state >= stateSent {
		return fmt.Errorf("%w: response type after send", ErrInvalidState)
	}
	p.responseType = t

	return nil
}

func (p *HTTP) SetTimeout(d time.Duration) error {
	if d < 0 {
		return ErrNegativeTimeout
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state >= stateSent {
		return fmt.Errorf("%w: timeout after send", ErrInvalidState)
	}
	p.timeout = d

	return nil
}

func (p *HTTP) SetWithCredentials(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state >= stateSent {
		return fmt.Errorf("%w: credentials after send", ErrInvalidState)
	}
	p.withCredentials = enabled

	return nil
}

func (p *HTTP) OverrideMimeType(mimeType string) error {
	if _, _, err := mime.ParseMediaType(mimeType); err != nil {
		return fmt.Errorf("parsing mime type %q: %w", mimeType, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state >= stateSent {
		return fmt.Errorf("%w: mime override after send", ErrInvalidState)
	}
	p.mimeType = mimeType

	return nil
}

// SetRequestHeader adds a header, keeping name exactly as given.
// Repeated names accumulate values.
func (p *HTTP) SetRequestHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("%w: name %q", ErrInvalidHeader, name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("%w: value for %q", ErrInvalidHeader, name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateOpened {
		return fmt.Errorf("%w: header outside opened state", ErrInvalidState)
	}
	p.req.Header[name] = append(p.req.Header[name], value)

	return nil
}

func (p *HTTP) Listen(l Listeners) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.listeners = l
}

func (p *HTTP) Send(body io.Reader, length int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateOpened {
		return fmt.Errorf("%w: send outside opened state", ErrInvalidState)
	}
	p.state = stateSent

	if p.aborted {
		go p.finish(eventAbort, nil)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	if p.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, p.timeout)
		parent := cancel
		cancel = func() {
			cancelTimeout()
			parent()
		}
	}
	p.cancel = cancel

	req := p.req.WithContext(ctx)
	p.attachBody(req, body, length)

	hc := *p.client
	hc.Jar = nil
	if p.withCredentials {
		hc.Jar = p.jar
	}

	go p.run(ctx, &hc, req)

	return nil
}

// attachBody wires body into req. GET and HEAD requests never carry one.
func (p *HTTP) attachBody(req *http.Request, body io.Reader, length int64) {
	if body == nil || req.Method == http.MethodGet || req.Method == http.MethodHead {
		req.Body = nil
		req.ContentLength = 0
		return
	}

	if length == 0 {
		req.Body = http.NoBody
		req.ContentLength = 0
		return
	}

	if p.listeners.Upload != nil {
		total := max(length, 0)
		body = &progressReader{
			r:     body,
			total: total,
			emit:  p.emitUpload,
		}
	}

	req.Body = io.NopCloser(body)
	req.ContentLength = max(length, 0)
}

func (p *HTTP) run(ctx context.Context, hc *http.Client, req *http.Request) {
	defer p.cancelRequest()

	resp, err := hc.Do(req)
	if err != nil {
		p.fail(ctx, err)
		return
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	p.mu.Lock()
	download := p.listeners.Download
	p.mu.Unlock()
	if download != nil {
		r = &progressReader{
			r:     r,
			total: max(resp.ContentLength, 0),
			emit:  p.emitDownload,
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		p.fail(ctx, err)
		return
	}

	p.mu.Lock()
	p.status = resp.StatusCode
	p.statusText = reasonPhrase(resp)
	p.respHeader = resp.Header
	p.response = decode(p.responseType, p.effectiveMimeType(resp.Header), data)
	p.mu.Unlock()

	p.finish(eventLoad, nil)
}

func (p *HTTP) cancelRequest() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// fail maps a transport failure onto the terminal event it represents.
func (p *HTTP) fail(ctx context.Context, err error) {
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		p.finish(eventTimeout, err)
	default:
		p.finish(eventError, err)
	}
}

// finish delivers the terminal event. Only the first call has any
// effect; an abort request turns any later terminal event into Abort.
func (p *HTTP) finish(ev event, err error) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if p.state == stateDone {
		p.mu.Unlock()
		return
	}
	if p.aborted {
		ev = eventAbort
		p.status = 0
		p.statusText = ""
		p.respHeader = nil
		p.response = nil
	}
	p.state = stateDone
	l := p.listeners
	p.mu.Unlock()

	switch ev {
	case eventLoad:
		if l.Load != nil {
			l.Load()
		}
	case eventError:
		if l.Error != nil {
			l.Error(err)
		}
	case eventTimeout:
		if l.Timeout != nil {
			l.Timeout(err)
		}
	case eventAbort:
		if l.Abort != nil {
			l.Abort()
		}
	}
}

func (p *HTTP) Abort() {
	p.mu.Lock()
	if p.state == stateDone || p.aborted {
		p.mu.Unlock()
		return
	}
	p.aborted = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (p *HTTP) emitDownload(pr Progress) { p.emitProgress(pr, false) }

func (p *HTTP) emitUpload(pr Progress) { p.emitProgress(pr, true) }

func (p *HTTP) emitProgress(pr Progress, upload bool) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if p.state == stateDone || p.aborted {
		p.mu.Unlock()
		return
	}
	fn := p.listeners.Download
	if upload {
		fn = p.listeners.Upload
	}
	p.mu.Unlock()

	if fn != nil {
		fn(pr)
	}
}

func (p *HTTP) Status() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *HTTP) StatusText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusText
}

func (p *HTTP) Response() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.response
}

func (p *HTTP) AllResponseHeaders() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return header.Blob(p.respHeader)
}

// effectiveMimeType prefers the override over the response Content-Type.
// Callers must hold p.mu.
func (p *HTTP) effectiveMimeType(h http.Header) string {
	if p.mimeType != "" {
		return p.mimeType
	}
	return h.Get("Content-Type")
}

// reasonPhrase extracts the status text sent by the server, falling back
// to the standard text when the server sent none.
func reasonPhrase(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}
