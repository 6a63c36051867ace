// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"cmp"
	"context"
	"slices"

	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/auth"
	"github.com/z5labs/restrouter/request"
	"github.com/z5labs/restrouter/route"
	"github.com/z5labs/restrouter/version"
)

// Registry is the immutable catalog of built endpoints.
// It is safe for concurrent use.
type Registry struct {
	byName map[string]*Endpoint
	byPath []*Endpoint
}

// Lookup returns the endpoint whose path is the longest prefix of path
// on a segment boundary, along with the remainder of path.
func (r *Registry) Lookup(path string) (*Endpoint, string, error) {
	p := normalizePath(path)
	for _, ep := range r.byPath {
		rest, ok := hasSegmentPrefix(p, ep.path)
		if ok {
			return ep, rest, nil
		}
	}
	return nil, "", restrouter.UnknownEndpointError{Path: path}
}

// Get returns the endpoint with the given machine name.
func (r *Registry) Get(name string) (*Endpoint, bool) {
	ep, ok := r.byName[name]
	return ep, ok
}

// Endpoints returns every endpoint sorted by machine name.
func (r *Registry) Endpoints() []*Endpoint {
	eps := make([]*Endpoint, 0, len(r.byName))
	for _, ep := range r.byName {
		eps = append(eps, ep)
	}
	slices.SortFunc(eps, func(a, b *Endpoint) int {
		return cmp.Compare(a.name, b.name)
	})
	return eps
}

// Endpoint is a built endpoint: its definition together with the
// compiled route table of every version and its instantiated plugins.
type Endpoint struct {
	name      string
	path      string
	def       Definition
	versions  []string
	tables    map[string]*route.Table
	detectors []version.Detector
	auth      auth.Pipeline
}

// Name returns the machine name.
func (e *Endpoint) Name() string {
	return e.name
}

// Path returns the normalized path prefix.
func (e *Endpoint) Path() string {
	return e.path
}

// Definition returns a copy of the validated definition with defaults applied.
func (e *Endpoint) Definition() Definition {
	return e.def.clone()
}

// Versions returns the declared version labels in sorted order.
func (e *Endpoint) Versions() []string {
	return slices.Clone(e.versions)
}

// Table returns the compiled route table of a version.
func (e *Endpoint) Table(version string) (*route.Table, bool) {
	t, ok := e.tables[version]
	return t, ok
}

// StructuredErrors reports whether errors are rendered with the
// structured error envelope.
func (e *Endpoint) StructuredErrors() bool {
	return e.def.StructuredErrors
}

// RequestFormats returns the accepted request format names.
// The returned slice must not be modified.
func (e *Endpoint) RequestFormats() []string {
	return e.def.RequestFormats
}

// ResponseFormats returns the accepted response format names.
// The returned slice must not be modified.
func (e *Endpoint) ResponseFormats() []string {
	return e.def.ResponseFormats
}

// ResolveVersion runs the version plugins of the endpoint against req.
func (e *Endpoint) ResolveVersion(ctx context.Context, req *request.Request) (string, error) {
	return version.Resolve(ctx, req, e.detectors, e.versions, e.def.DefaultVersion)
}

// Authenticate runs the auth plugins of the endpoint against req.
// An endpoint without auth plugins accepts every request.
func (e *Endpoint) Authenticate(ctx context.Context, req *request.Request) error {
	return e.auth.Authenticate(ctx, req)
}
