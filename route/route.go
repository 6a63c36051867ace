// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package route provides route tables for endpoint versions.
//
// A [Router] declares an ordered list of [Definition]s. [Compile] binds
// every callback and loader reference of those definitions to a typed
// function handle, either a free function registered in [Funcs] or a
// method of the endpoint [Class], and fails if any reference cannot be
// bound. The compiled [Table] matches requests in declaration order.
package route

import (
	"context"
	"strings"
)

// Definition declares a single route of a router.
type Definition struct {
	// Method is the HTTP method, e.g. "GET".
	Method string `yaml:"method"`

	// Path is the slash separated pattern relative to the endpoint,
	// e.g. "subscriptions/%api::load_subscription". Placeholder segments
	// start with '%'.
	Path string `yaml:"path"`

	// PageCallback references the handler producing the response payload.
	PageCallback string `yaml:"page_callback"`

	// PageArguments are the path positions passed to the page callback.
	PageArguments []int `yaml:"page_arguments"`

	// AccessCallback references the predicate gating the page callback.
	// An empty reference allows every request.
	AccessCallback string `yaml:"access_callback"`

	// AccessArguments are the path positions passed to the access callback.
	AccessArguments []int `yaml:"access_arguments"`

	// Summary is used when documenting the route.
	Summary string `yaml:"summary"`
}

// Key returns the route key in the form "METHOD:path".
func (d Definition) Key() string {
	return d.Method + ":" + strings.Trim(d.Path, "/")
}

// Router supplies the ordered route list of an endpoint version.
type Router interface {
	Routes() []Definition
}

// RouterFunc is an adapter to allow the use of ordinary functions as [Router]s.
type RouterFunc func() []Definition

// Routes implements the [Router] interface.
func (f RouterFunc) Routes() []Definition {
	return f()
}

// Args are the arguments of a matched route indexed by path position.
// Literal and raw placeholder positions hold the segment string while
// loader placeholders hold the loaded value.
type Args []any

// String returns the argument at position i as a string. It returns an
// empty string if the position is out of range or not a string.
func (a Args) String(i int) string {
	if i < 0 || i >= len(a) {
		return ""
	}
	s, _ := a[i].(string)
	return s
}

// LoaderFunc converts the raw value of a placeholder segment into a
// domain value. Returning a nil value or an error means the argument
// failed to load and the route does not match.
//
// args holds the arguments of all positions preceding the placeholder.
type LoaderFunc func(ctx context.Context, value string, args Args) (any, error)

// PageFunc produces the response payload of a matched route.
type PageFunc func(ctx context.Context, args Args) (any, error)

// AccessFunc reports whether the page callback of a matched route may run.
type AccessFunc func(ctx context.Context, args Args) (bool, error)

// Funcs is the catalog of free functions route definitions may reference.
type Funcs struct {
	Loaders map[string]LoaderFunc
	Pages   map[string]PageFunc
	Access  map[string]AccessFunc
}

// Segments returns the pattern segments of the definition path.
func (d Definition) Segments() []string {
	return splitPath(d.Path)
}

// IsPlaceholder reports whether a pattern segment binds a request value.
func IsPlaceholder(segment string) bool {
	return strings.HasPrefix(segment, "%")
}
