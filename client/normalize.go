package client

import (
	"github.com/adamwoolhether/reqadapter/client/header"
	"github.com/adamwoolhether/reqadapter/client/transport"
)

// normalize reads the settled primitive into a Response.
func normalize(p transport.Primitive) *Response {
	return &Response{
		Status:     p.Status(),
		StatusText: p.StatusText(),
		Data:       p.Response(),
		Headers:    header.Parse(p.AllResponseHeaders()),
	}
}
