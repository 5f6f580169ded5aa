// Package config loads request descriptor files for the command line tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/adamwoolhether/reqadapter/client"
	"github.com/adamwoolhether/reqadapter/client/query"
)

// Request is the on-disk form of a [client.Descriptor]. Mappings in Body
// load as [query.Map] in file order.
type Request struct {
	Method   string            `yaml:"method" json:"method"`
	URL      string            `yaml:"url" json:"url"`
	Headers  map[string]string `yaml:"headers" json:"headers"`
	Body     any               `yaml:"body" json:"body"`
	BodyFile string            `yaml:"body_file" json:"body_file"`
	Options  Options           `yaml:"options" json:"options"`
}

// Options mirrors [client.RequestOptions] with a textual timeout.
type Options struct {
	Auth            *Auth  `yaml:"auth" json:"auth"`
	WithCredentials bool   `yaml:"with_credentials" json:"with_credentials"`
	MimeType        string `yaml:"mime_type" json:"mime_type"`
	Timeout         string `yaml:"timeout" json:"timeout"`
	ResponseType    string `yaml:"response_type" json:"response_type"`
	EnableDownload  bool   `yaml:"enable_download" json:"enable_download"`
	EnableUpload    bool   `yaml:"enable_upload" json:"enable_upload"`
}

// Auth holds basic credentials.
type Auth struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LoadFromFile reads and parses a request file.
func LoadFromFile(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}

	var req Request
	if err := yaml.UnmarshalWithOptions(data, &req, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("failed to parse request file: %w", err)
	}
	req.Body = ordered(req.Body)

	if req.BodyFile != "" && !filepath.IsAbs(req.BodyFile) {
		req.BodyFile = filepath.Join(filepath.Dir(path), req.BodyFile)
	}

	return &req, nil
}

// Descriptor converts r into a descriptor. A body file, when set, is
// sent as raw bytes in place of Body.
func (r *Request) Descriptor() (client.Descriptor, error) {
	d := client.Descriptor{
		Method:  r.Method,
		URL:     r.URL,
		Headers: r.Headers,
		Body:    r.Body,
		Options: client.RequestOptions{
			WithCredentials: r.Options.WithCredentials,
			MimeType:        r.Options.MimeType,
			ResponseType:    client.ResponseType(r.Options.ResponseType),
			EnableDownload:  r.Options.EnableDownload,
			EnableUpload:    r.Options.EnableUpload,
		},
	}

	if r.Options.Auth != nil {
		d.Options.Auth = &client.Auth{Username: r.Options.Auth.Username, Password: r.Options.Auth.Password}
	}

	if r.Options.Timeout != "" {
		timeout, err := time.ParseDuration(r.Options.Timeout)
		if err != nil {
			return client.Descriptor{}, fmt.Errorf("parsing timeout: %w", err)
		}
		d.Options.Timeout = timeout
	}

	if r.BodyFile != "" {
		if r.Body != nil {
			return client.Descriptor{}, errors.New("body and body_file are mutually exclusive")
		}

		data, err := os.ReadFile(r.BodyFile)
		if err != nil {
			return client.Descriptor{}, fmt.Errorf("reading body file: %w", err)
		}
		d.Body = data
	}

	return d, nil
}

// ordered turns the YAML ordered maps in v into query.Map values so
// bodies keep the key order written in the file.
func ordered(v any) any {
	switch val := v.(type) {
	case yaml.MapSlice:
		m := make(query.Map, 0, len(val))
		for _, item := range val {
			m = append(m, query.Pair{Key: fmt.Sprint(item.Key), Value: ordered(item.Value)})
		}
		return m
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = ordered(e)
		}
		return out
	}
	return v
}
