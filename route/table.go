// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// DuplicateRouteError is returned by [Compile] when two definitions
// share the same key.
type DuplicateRouteError struct {
	Key string
}

func (e DuplicateRouteError) Error() string {
	return fmt.Sprintf("duplicate route: %s", e.Key)
}

// InvalidRouteError is returned by [Compile] when a definition is malformed
// or references something which cannot be bound.
type InvalidRouteError struct {
	Key   string
	Cause error
}

func (e InvalidRouteError) Error() string {
	return fmt.Sprintf("invalid route %s: %v", e.Key, e.Cause)
}

// Unwrap returns the underlying cause.
func (e InvalidRouteError) Unwrap() error {
	return e.Cause
}

// UnknownFuncError is returned by [Compile] when a free function reference
// is not registered in [Funcs].
type UnknownFuncError struct {
	Role string
	Name string
}

func (e UnknownFuncError) Error() string {
	return fmt.Sprintf("unknown %s function: %s", e.Role, e.Name)
}

// ErrNoClass is returned by [Compile] when a method reference is used
// by a router whose endpoint version has no class.
var ErrNoClass = errors.New("method reference used without an endpoint class")

var methods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

type segmentKind int

const (
	literalSegment segmentKind = iota
	rawSegment
	loaderSegment
)

type segment struct {
	kind    segmentKind
	literal string
	ref     Ref
	loader  LoaderFunc
	method  string
}

type compiledRoute struct {
	def      Definition
	segments []segment

	page     Ref
	pageFn   PageFunc
	pageM    string
	access   Ref
	accessFn AccessFunc
	accessM  string
}

// Table is the compiled, immutable route table of an endpoint version.
// It is safe for concurrent use.
type Table struct {
	class  *Class
	routes []*compiledRoute
}

// Compile binds every reference of the router's definitions and returns
// the resulting [Table]. class may be nil if no definition references
// an endpoint method.
func Compile(router Router, class *Class, funcs Funcs) (*Table, error) {
	defs := router.Routes()
	t := &Table{
		class:  class,
		routes: make([]*compiledRoute, 0, len(defs)),
	}

	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		def.Path = strings.Trim(def.Path, "/")

		key := def.Key()
		if seen[key] {
			return nil, DuplicateRouteError{Key: key}
		}
		seen[key] = true

		cr, err := compileRoute(def, class, funcs)
		if err != nil {
			return nil, InvalidRouteError{Key: key, Cause: err}
		}
		t.routes = append(t.routes, cr)
	}
	return t, nil
}

func compileRoute(def Definition, class *Class, funcs Funcs) (*compiledRoute, error) {
	if !methods[def.Method] {
		return nil, fmt.Errorf("unsupported http method: %q", def.Method)
	}

	cr := &compiledRoute{def: def}

	segs := splitPath(def.Path)
	for _, s := range segs {
		seg, err := compileSegment(s, class, funcs)
		if err != nil {
			return nil, err
		}
		cr.segments = append(cr.segments, seg)
	}

	for _, pos := range def.PageArguments {
		if pos < 0 || pos >= len(segs) {
			return nil, fmt.Errorf("page argument position %d out of range for %d segments", pos, len(segs))
		}
	}
	for _, pos := range def.AccessArguments {
		if pos < 0 || pos >= len(segs) {
			return nil, fmt.Errorf("access argument position %d out of range for %d segments", pos, len(segs))
		}
	}

	if strings.TrimSpace(def.PageCallback) == "" {
		return nil, errors.New("missing page callback")
	}
	cr.page = ParseRef(def.PageCallback)
	switch cr.page.Kind {
	case ConstRef:
		return nil, fmt.Errorf("page callback can not be a constant: %s", cr.page)
	case MethodRef:
		name, err := checkClassMethod(class, cr.page.Name, pageType)
		if err != nil {
			return nil, err
		}
		cr.pageM = name
	case FuncRef:
		fn, ok := funcs.Pages[cr.page.Name]
		if !ok {
			return nil, UnknownFuncError{Role: "page", Name: cr.page.Name}
		}
		cr.pageFn = fn
	}

	cr.access = Ref{Kind: ConstRef, Value: true}
	if strings.TrimSpace(def.AccessCallback) != "" {
		cr.access = ParseRef(def.AccessCallback)
	}
	switch cr.access.Kind {
	case MethodRef:
		name, err := checkClassMethod(class, cr.access.Name, accessType)
		if err != nil {
			return nil, err
		}
		cr.accessM = name
	case FuncRef:
		fn, ok := funcs.Access[cr.access.Name]
		if !ok {
			return nil, UnknownFuncError{Role: "access", Name: cr.access.Name}
		}
		cr.accessFn = fn
	}
	return cr, nil
}

func compileSegment(s string, class *Class, funcs Funcs) (segment, error) {
	if !strings.HasPrefix(s, "%") {
		return segment{kind: literalSegment, literal: s}, nil
	}

	name := strings.TrimPrefix(s, "%")
	if name == "" {
		return segment{kind: rawSegment}, nil
	}

	ref := ParseRef(name)
	switch ref.Kind {
	case MethodRef:
		method, err := checkClassMethod(class, ref.Name, loaderType)
		if err != nil {
			return segment{}, err
		}
		return segment{kind: loaderSegment, ref: ref, method: method}, nil
	case FuncRef:
		fn, ok := funcs.Loaders[ref.Name]
		if !ok {
			return segment{}, UnknownFuncError{Role: "loader", Name: ref.Name}
		}
		return segment{kind: loaderSegment, ref: ref, loader: fn}, nil
	default:
		return segment{}, fmt.Errorf("loader can not be a constant: %s", s)
	}
}

func checkClassMethod(class *Class, ref string, want reflect.Type) (string, error) {
	if class == nil {
		return "", ErrNoClass
	}
	return class.checkMethod(ref, want)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
