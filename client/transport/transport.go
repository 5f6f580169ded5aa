// Package transport defines the single-request/single-response primitive
// driven by the client orchestrator, and its net/http implementation.
//
// A Primitive is configured through its setters, given a set of
// [Listeners], and dispatched with Send. Send never blocks: the request
// runs on a goroutine owned by the primitive, and every event (progress
// and terminal) is delivered to the listeners from that lifecycle. At most
// one terminal event (Load, Error, Timeout or Abort) is ever delivered;
// progress events are only delivered before it.
package transport

import (
	"errors"
	"io"
	"time"
)

var (
	// ErrInvalidState is returned when a method is called in a state that
	// does not allow it, e.g. setting a header before Open or after Send.
	ErrInvalidState = errors.New("transport: invalid state")
	// ErrInvalidResponseType is returned by SetResponseType for unknown types.
	ErrInvalidResponseType = errors.New("transport: invalid response type")
	// ErrNegativeTimeout is returned by SetTimeout for negative durations.
	ErrNegativeTimeout = errors.New("transport: timeout must not be negative")
	// ErrInvalidHeader is returned by SetRequestHeader for malformed pairs.
	ErrInvalidHeader = errors.New("transport: invalid header")
	// ErrInvalidURL is returned by Open for unusable URLs.
	ErrInvalidURL = errors.New("transport: invalid url")
)

// ResponseType selects how the response body is interpreted.
type ResponseType string

const (
	ResponseJSON        ResponseType = "json"
	ResponseBlob        ResponseType = "blob"
	ResponseText        ResponseType = "text"
	ResponseArrayBuffer ResponseType = "arraybuffer"
	ResponseDocument    ResponseType = "document"
)

// Valid reports whether t is one of the known response types.
func (t ResponseType) Valid() bool {
	switch t {
	case ResponseJSON, ResponseBlob, ResponseText, ResponseArrayBuffer, ResponseDocument:
		return true
	}
	return false
}

// Auth holds basic auth credentials handed to Open.
type Auth struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// Progress reports transferred bytes. Total is 0 when unknown.
type Progress struct {
	Loaded int64
	Total  int64
}

// Blob is the decoded body for [ResponseBlob].
type Blob struct {
	Type string
	Data []byte
}

// Listeners receive primitive events. Nil listeners are skipped, and
// progress is only measured for non-nil progress listeners.
type Listeners struct {
	Load     func()
	Error    func(err error)
	Timeout  func(err error)
	Abort    func()
	Download func(Progress)
	Upload   func(Progress)
}

// Primitive is a single-shot request/response transport.
type Primitive interface {
	Open(method, url string, auth *Auth) error
	SetResponseType(t ResponseType) error
	SetTimeout(d time.Duration) error
	SetWithCredentials(enabled bool) error
	OverrideMimeType(mimeType string) error
	SetRequestHeader(name, value string) error
	Listen(l Listeners)

	// Send dispatches the request with body (nil for none) of the given
	// length (-1 when unknown) and returns immediately.
	Send(body io.Reader, length int64) error

	// Abort cancels the request. The Abort listener fires unless a
	// terminal event was already delivered.
	Abort()

	Status() int
	StatusText() string
	Response() any
	AllResponseHeaders() string
}
