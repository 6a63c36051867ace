// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"context"
	"errors"
	"reflect"

	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/request"
)

// Match is a route matched against a request.
type Match struct {
	Route Definition

	// Raw holds the request path segments.
	Raw []string

	// Args holds the loaded arguments. It is nil until the match
	// has been resolved.
	Args Args

	route *compiledRoute
}

// Class returns the endpoint class of the table, which may be nil.
func (t *Table) Class() *Class {
	return t.class
}

// Routes returns the compiled definitions in declaration order.
func (t *Table) Routes() []Definition {
	defs := make([]Definition, len(t.routes))
	for i, cr := range t.routes {
		defs[i] = cr.def
	}
	return defs
}

// Match returns the first route, in declaration order, whose method
// equals method and whose pattern matches every segment of path.
// Placeholders match any single segment. Segment counts must be equal.
func (t *Table) Match(method, path string) (*Match, error) {
	segs := splitPath(path)
	for _, cr := range t.routes {
		if cr.def.Method != method {
			continue
		}
		if !cr.matches(segs) {
			continue
		}
		return &Match{
			Route: cr.def,
			Raw:   segs,
			route: cr,
		}, nil
	}
	return nil, restrouter.RouteNotFoundError{Method: method, Path: path}
}

func (cr *compiledRoute) matches(segs []string) bool {
	if len(cr.segments) != len(segs) {
		return false
	}
	for i, s := range cr.segments {
		if s.kind == literalSegment && s.literal != segs[i] {
			return false
		}
	}
	return true
}

// Resolve matches the request method and path and loads the arguments
// of the matched route from left to right. obj is the endpoint object
// method loaders are bound to.
//
// A loader which fails or returns nil aborts resolution with a
// [restrouter.RouteNotFoundError] wrapping a [restrouter.LoaderError].
// Later candidates are not tried.
func (t *Table) Resolve(ctx context.Context, obj any, req *request.Request) (*Match, error) {
	m, err := t.Match(req.Method, req.Path)
	if err != nil {
		return nil, err
	}

	args := make(Args, len(m.Raw))
	for i, s := range m.route.segments {
		raw := m.Raw[i]
		if s.kind != loaderSegment {
			args[i] = raw
			continue
		}

		v, err := s.load(ctx, obj, raw, args[:i])
		if err != nil || isNil(v) {
			return nil, restrouter.RouteNotFoundError{
				Method: req.Method,
				Path:   req.Path,
				Cause: restrouter.LoaderError{
					Loader: s.ref.String(),
					Value:  raw,
					Cause:  err,
				},
			}
		}
		args[i] = v
	}

	m.Args = args
	return m, nil
}

// isNil reports whether a loaded value is empty, including typed nils
// such as a nil pointer stored in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func (s segment) load(ctx context.Context, obj any, raw string, args Args) (v any, err error) {
	defer restrouter.Recover(&err)

	fn := s.loader
	if s.method != "" {
		fn = bindLoader(obj, s.method)
	}
	return fn(ctx, raw, args)
}

// Invoke runs the access callback of a resolved match and, if access is
// granted, its page callback. Arguments are picked from m.Args by the
// positions declared in the route definition.
//
// Errors which carry their own status code are returned unchanged. Any
// other failure, including a panic, is wrapped in a [restrouter.CallbackError].
func Invoke(ctx context.Context, m *Match, obj any) (any, error) {
	if m.Args == nil && len(m.Raw) > 0 {
		return nil, restrouter.CallbackError{
			Route: m.Route.Key(),
			Cause: errors.New("match has not been resolved"),
		}
	}

	key := m.Route.Key()
	allowed, err := m.route.checkAccess(ctx, obj, pick(m.Args, m.Route.AccessArguments))
	if err != nil {
		return nil, callbackError(key, err)
	}
	if !allowed {
		return nil, restrouter.AccessDeniedError{Route: key}
	}

	v, err := m.route.callPage(ctx, obj, pick(m.Args, m.Route.PageArguments))
	if err != nil {
		return nil, callbackError(key, err)
	}
	return v, nil
}

func (cr *compiledRoute) checkAccess(ctx context.Context, obj any, args Args) (ok bool, err error) {
	defer restrouter.Recover(&err)

	switch cr.access.Kind {
	case ConstRef:
		return cr.access.Value, nil
	case MethodRef:
		return bindAccess(obj, cr.accessM)(ctx, args)
	default:
		return cr.accessFn(ctx, args)
	}
}

func (cr *compiledRoute) callPage(ctx context.Context, obj any, args Args) (v any, err error) {
	defer restrouter.Recover(&err)

	if cr.page.Kind == MethodRef {
		return bindPage(obj, cr.pageM)(ctx, args)
	}
	return cr.pageFn(ctx, args)
}

func callbackError(route string, err error) error {
	var sc restrouter.StatusCoder
	if errors.As(err, &sc) {
		return err
	}
	return restrouter.CallbackError{Route: route, Cause: err}
}

func pick(args Args, positions []int) Args {
	picked := make(Args, 0, len(positions))
	for _, pos := range positions {
		picked = append(picked, args[pos])
	}
	return picked
}
