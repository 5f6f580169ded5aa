package client_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/adamwoolhether/reqadapter/client"
)

func ExampleBuild() {
	c, err := client.Build(
		client.WithTimeout(10*time.Second),
		client.WithUserAgent("example/1.0"),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	_ = c
	fmt.Println("client built")
	// Output: client built
}

func ExampleClient_Request() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name":%q}`, r.PostForm.Get("name"))
	}))
	defer ts.Close()

	c, _ := client.Build(client.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	h := c.Request(client.Descriptor{
		Method:  http.MethodPost,
		URL:     ts.URL,
		Headers: map[string]string{"content-type": "application/x-www-form-urlencoded"},
		Body:    map[string]any{"name": "alice"},
	})

	resp, err := h.Response(context.Background())
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(resp.Status, resp.Data)
	// Output: 200 map[name:alice]
}

func ExampleHandle_Abort() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	c, _ := client.Build(client.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	h := c.Request(client.Descriptor{Method: http.MethodGet, URL: ts.URL})
	h.Abort()

	_, err := h.Response(context.Background())
	fmt.Println(err, errors.Is(err, client.ErrAborted))
	// Output: The user aborted a request true
}

func ExampleValidate() {
	err := client.Validate(client.Descriptor{
		URL:     "https://example.com",
		Options: client.RequestOptions{ResponseType: "xml"},
	})
	fmt.Println(err != nil)
	// Output: true
}
