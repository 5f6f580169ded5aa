// Package client adapts declarative request descriptors onto a callback
// style transport primitive and exposes each in-flight request as a
// [Handle].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//	)
//
// # Making Requests
//
// [Client.Request] returns immediately. The request settles exactly once,
// with either a normalized [Response] or an [*Error]:
//
//	h := c.Request(client.Descriptor{
//		Method:  http.MethodPost,
//		URL:     "https://api.example.com/v1/users",
//		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
//		Body:    map[string]any{"name": "alice", "tags": []string{"a", "b"}},
//	})
//	resp, err := h.Response(ctx)
//
// Bodies are classified by the [body] package: nil sends nothing, strings,
// byte slices, readers and [body.Multipart] pass through untouched, plain
// mappings are form-encoded when the content type asks for it, and
// everything else is sent as JSON. Without a caller content type, a
// non-native body is labeled application/json; charset=UTF-8.
//
// # Progress and Cancellation
//
// Progress is only reported when enabled per request. Handlers may be set
// in [RequestOptions] or later on the handle:
//
//	h := c.Request(client.Descriptor{
//		Method:  http.MethodGet,
//		URL:     "https://example.com/file.bin",
//		Options: client.RequestOptions{ResponseType: client.ResponseBlob, EnableDownload: true},
//	})
//	h.OnDownload(func(loaded, total int64) { ... })
//	h.Abort()
//
// No progress is delivered after the handle settles, and [Handle.Abort]
// is a no-op once it has.
//
// # Errors
//
// Failures carry a [Kind] and match [ErrNetwork], [ErrTimeout],
// [ErrAborted] or [ErrSetup] with [errors.Is]. Setup failures settle the
// handle before Request returns.
package client
