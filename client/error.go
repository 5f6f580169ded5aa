package client

import (
	"errors"
)

// Kind classifies the way a request failed to produce a response.
type Kind int

const (
	// KindNetwork is a transport-level failure: refused, reset, DNS, TLS.
	KindNetwork Kind = iota + 1
	// KindTimeout means the configured timeout elapsed first.
	KindTimeout
	// KindAborted means the caller aborted the request.
	KindAborted
	// KindSetup means the request could not be configured and was never sent.
	KindSetup
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindAborted:
		return "aborted"
	case KindSetup:
		return "setup"
	default:
		return "unknown"
	}
}

// Messages carried by the non-setup error kinds.
const (
	MsgNetwork = "Network Error"
	MsgTimeout = "Network Timeout"
	MsgAborted = "The user aborted a request"
)

var (
	// ErrNetwork matches any *Error of KindNetwork via [errors.Is].
	ErrNetwork = errors.New(MsgNetwork)
	// ErrTimeout matches any *Error of KindTimeout via [errors.Is].
	ErrTimeout = errors.New(MsgTimeout)
	// ErrAborted matches any *Error of KindAborted via [errors.Is].
	ErrAborted = errors.New(MsgAborted)
	// ErrSetup matches any *Error of KindSetup via [errors.Is].
	ErrSetup = errors.New("request setup failed")
)

// Error is the failure a [Handle] settles with. HTTP error statuses are
// never represented as an Error; they resolve as a [Response].
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error returns Message unchanged.
func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrAborted:
		return e.Kind == KindAborted
	case ErrSetup:
		return e.Kind == KindSetup
	}
	return false
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: MsgNetwork, Err: err}
}

func timeoutError(err error) *Error {
	return &Error{Kind: KindTimeout, Message: MsgTimeout, Err: err}
}

func abortedError() *Error {
	return &Error{Kind: KindAborted, Message: MsgAborted}
}

// setupError keeps the configuration error's text as the message.
func setupError(err error) *Error {
	return &Error{Kind: KindSetup, Message: err.Error(), Err: err}
}
