// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package request provides the in-flight request which flows through
// the dispatch pipeline.
//
// A [Request] is owned by exactly one dispatch and is not safe for
// concurrent use. Version, auth and alteration hooks may rewrite its
// path and data before routing.
package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/format"
)

// Request is the pipeline view of an inbound HTTP request.
type Request struct {
	ID     uuid.UUID
	Method string

	// Path is relative to the endpoint once the endpoint has been
	// resolved. It never has a leading or trailing slash.
	Path string

	Query  url.Values
	Header http.Header

	// Endpoint is the machine name of the resolved endpoint.
	Endpoint string

	// Version is the resolved version label.
	Version string

	// RequestFormat and ResponseFormat are the negotiated format names.
	RequestFormat  string
	ResponseFormat string

	body  []byte
	data  map[string]any
	view  []byte
	attrs map[any]any
}

// New initializes a [Request] with no body.
func New(method, path string) *Request {
	return &Request{
		ID:     uuid.New(),
		Method: method,
		Path:   trim(path),
		Query:  url.Values{},
		Header: http.Header{},
		data:   map[string]any{},
		attrs:  map[any]any{},
	}
}

// ErrBodyTooLarge is returned by [FromHTTP] when the body exceeds the
// configured limit.
var ErrBodyTooLarge = errors.New("request body too large")

// FromHTTP reads the method, path, query, headers and raw body of r.
// A maxBody of zero or less disables the body size limit.
func FromHTTP(r *http.Request, maxBody int64) (*Request, error) {
	req := New(r.Method, r.URL.Path)
	req.Query = r.URL.Query()
	req.Header = r.Header.Clone()

	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}

	var body io.Reader = r.Body
	if maxBody > 0 {
		body = io.LimitReader(r.Body, maxBody+1)
	}

	b, err := io.ReadAll(body)
	if err != nil {
		return nil, restrouter.BadRequestError{Cause: err}
	}
	if maxBody > 0 && int64(len(b)) > maxBody {
		return nil, restrouter.BadRequestError{Cause: ErrBodyTooLarge}
	}
	req.body = b
	return req, nil
}

// Body returns the raw request body.
func (r *Request) Body() []byte {
	return r.body
}

// SetBody replaces the raw request body. Parsed data is left untouched
// until the next call to [Request.Decode].
func (r *Request) SetBody(b []byte) {
	r.body = b
}

// Decode parses the raw body into the request data. An empty body
// results in empty data.
func (r *Request) Decode(d format.Decoder) error {
	if len(strings.TrimSpace(string(r.body))) == 0 {
		r.SetData(map[string]any{})
		return nil
	}

	data, err := d.Decode(r.body)
	if err != nil {
		return restrouter.BadRequestError{Cause: fmt.Errorf("decode body: %w", err)}
	}
	r.SetData(data)
	return nil
}

// Get returns the first value of the query parameter key.
func (r *Request) Get(key string) string {
	return r.Query.Get(key)
}

// Data returns the parsed body data.
func (r *Request) Data() map[string]any {
	return r.data
}

// DataValue returns the top level body value stored under key.
func (r *Request) DataValue(key string) (any, bool) {
	v, ok := r.data[key]
	return v, ok
}

// SetData replaces the parsed body data.
func (r *Request) SetData(data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	r.data = data
	r.view = nil
}

// Lookup returns the value at the given gjson path within the body data,
// e.g. "subscriber.email" or "items.#". It works for every request
// format since the lookup runs against the decoded data.
func (r *Request) Lookup(path string) gjson.Result {
	if r.view == nil {
		b, err := json.Marshal(r.data)
		if err != nil {
			return gjson.Result{}
		}
		r.view = b
	}
	return gjson.GetBytes(r.view, path)
}

// SetPath rewrites the request path. Leading and trailing slashes are removed.
func (r *Request) SetPath(path string) {
	r.Path = trim(path)
}

// Segments returns the slash separated segments of the request path.
func (r *Request) Segments() []string {
	if r.Path == "" {
		return nil
	}
	return strings.Split(r.Path, "/")
}

// Arg returns the path segment at position i or an empty string
// if the path is shorter.
func (r *Request) Arg(i int) string {
	segs := r.Segments()
	if i < 0 || i >= len(segs) {
		return ""
	}
	return segs[i]
}

// Set stores a value produced by a pipeline stage, e.g. the claims of
// an authenticated principal.
func (r *Request) Set(key, value any) {
	if r.attrs == nil {
		r.attrs = map[any]any{}
	}
	r.attrs[key] = value
}

// Attribute returns the value stored under key with [Request.Set].
func (r *Request) Attribute(key any) any {
	return r.attrs[key]
}

type ctxKey struct{}

// NewContext returns a copy of ctx which carries req.
func NewContext(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, ctxKey{}, req)
}

// FromContext returns the [Request] carried by ctx, if any.
// Free function callbacks use it to read query parameters and body data.
func FromContext(ctx context.Context) (*Request, bool) {
	req, ok := ctx.Value(ctxKey{}).(*Request)
	return req, ok
}

func trim(path string) string {
	return strings.Trim(path, "/")
}
