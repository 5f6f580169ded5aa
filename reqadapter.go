// Package reqadapter exposes the request adapter builder.
package reqadapter

import (
	"github.com/adamwoolhether/reqadapter/client"
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, a fresh http.Client and http.DefaultTransport are used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// NewAdapter builds a client and returns its request function.
func NewAdapter(opts ...client.Option) (client.Adapter, error) {
	c, err := client.Build(opts...)
	if err != nil {
		return nil, err
	}

	return c.Adapter(), nil
}
