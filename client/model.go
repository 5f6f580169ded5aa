package client

import (
	"time"

	"github.com/adamwoolhether/reqadapter/client/transport"
)

type (
	// Auth holds basic auth credentials.
	Auth = transport.Auth

	// ResponseType selects how the response body is decoded.
	ResponseType = transport.ResponseType

	// Blob is the response data for [ResponseBlob].
	Blob = transport.Blob
)

const (
	ResponseJSON        = transport.ResponseJSON
	ResponseBlob        = transport.ResponseBlob
	ResponseText        = transport.ResponseText
	ResponseArrayBuffer = transport.ResponseArrayBuffer
	ResponseDocument    = transport.ResponseDocument
)

// Descriptor describes one request. The adapter never mutates it.
//
// Body may be nil, a string, []byte, an [io.Reader], a
// *[body.Multipart], a [body.Body] variant, or any value to be encoded.
// Encodable values are sent as JSON unless Headers declares
// application/x-www-form-urlencoded, in which case mappings are
// flattened with [query.Encode].
type Descriptor struct {
	Method  string            `json:"method" validate:"required"`
	URL     string            `json:"url" validate:"required,url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty" validate:"-"`
	Options RequestOptions    `json:"options"`
}

// RequestOptions are the request-scoped settings handed to the transport.
type RequestOptions struct {
	Auth            *Auth         `json:"auth,omitempty"`
	WithCredentials bool          `json:"withCredentials,omitempty"`
	MimeType        string        `json:"mimeType,omitempty"`
	Timeout         time.Duration `json:"timeout,omitempty" validate:"gte=0"`
	ResponseType    ResponseType  `json:"responseType,omitempty" validate:"omitempty,oneof=json blob text arraybuffer document"`
	EnableDownload  bool          `json:"enableDownload,omitempty"`
	EnableUpload    bool          `json:"enableUpload,omitempty"`

	// OnDownload and OnUpload are installed on the handle before dispatch,
	// so no early progress event is missed. Either can be replaced later
	// through the handle.
	OnDownload ProgressFunc `json:"-"`
	OnUpload   ProgressFunc `json:"-"`
}

// Response is the canonical result of a request that reached the server.
type Response struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Data       any               `json:"data"`
	Headers    map[string]string `json:"headers"`
}

// ProgressFunc receives transferred and total byte counts. total is 0
// when the size is unknown.
type ProgressFunc func(loaded, total int64)

// Adapter is the request function handed to a state-management layer.
type Adapter func(Descriptor) *Handle

// PrimitiveFactory creates the transport for one request.
type PrimitiveFactory func() transport.Primitive
