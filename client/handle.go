package client

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/adamwoolhether/reqadapter/client/transport"
)

// Handle controls one in-flight request. It is returned before the
// request is dispatched and settles exactly once, with either a
// [Response] or an *[Error].
type Handle struct {
	id   string
	done chan struct{}
	once sync.Once

	resp *Response
	err  error

	abortOnce sync.Once
	abort     func()
	onSettle  func(*Response, error)

	download atomic.Pointer[ProgressFunc]
	upload   atomic.Pointer[ProgressFunc]
}

func newHandle(id string) *Handle {
	return &Handle{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID returns the identifier used in this request's logs and spans.
func (h *Handle) ID() string { return h.id }

// Done returns a channel that is closed once the handle settles.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Response blocks until the handle settles or ctx ends. A ctx error
// leaves the handle untouched.
func (h *Handle) Response(ctx context.Context) (*Response, error) {
	select {
	case <-h.done:
		return h.resp, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Headers blocks like Response and yields only the response headers.
func (h *Handle) Headers(ctx context.Context) (map[string]string, error) {
	resp, err := h.Response(ctx)
	if err != nil {
		return nil, err
	}

	return resp.Headers, nil
}

// Abort cancels the request. Repeated calls, and calls after the handle
// settled, do nothing.
func (h *Handle) Abort() {
	h.abortOnce.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}
		if h.abort != nil {
			h.abort()
		}
	})
}

// OnDownload replaces the download progress handler. Events are only
// produced when the request enabled download progress. A nil fn stops
// delivery.
func (h *Handle) OnDownload(fn ProgressFunc) {
	h.download.Store(&fn)
}

// OnUpload replaces the upload progress handler. Events are only
// produced when the request enabled upload progress. A nil fn stops
// delivery.
func (h *Handle) OnUpload(fn ProgressFunc) {
	h.upload.Store(&fn)
}

func (h *Handle) emitDownload(p transport.Progress) { h.emit(&h.download, p) }

func (h *Handle) emitUpload(p transport.Progress) { h.emit(&h.upload, p) }

func (h *Handle) emit(slot *atomic.Pointer[ProgressFunc], p transport.Progress) {
	select {
	case <-h.done:
		return
	default:
	}

	fn := slot.Load()
	if fn == nil || *fn == nil {
		return
	}
	(*fn)(p.Loaded, p.Total)
}

// settle records the outcome. Only the first call has any effect.
func (h *Handle) settle(resp *Response, err error) {
	h.once.Do(func() {
		h.resp = resp
		h.err = err
		if h.onSettle != nil {
			h.onSettle(resp, err)
		}
		close(h.done)
	})
}
