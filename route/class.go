// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"context"
	"fmt"
	"reflect"

	"github.com/stoewer/go-strcase"
	"github.com/z5labs/restrouter/request"
)

// Class describes an endpoint object type. A new object is constructed
// for every dispatched request with the [request.Request] injected.
//
// Methods referenced from route definitions as "api::snake_name" are
// looked up as the exported method SnakeName and must have one of the
// following signatures:
//
//	loader: func(context.Context, string, route.Args) (any, error)
//	page:   func(context.Context, route.Args) (any, error)
//	access: func(context.Context, route.Args) (bool, error)
type Class struct {
	name      string
	typ       reflect.Type
	construct func(*request.Request) any
}

// NewClass initializes a [Class] named name whose objects are created by construct.
func NewClass[T any](name string, construct func(*request.Request) T) *Class {
	return &Class{
		name: name,
		typ:  reflect.TypeFor[T](),
		construct: func(req *request.Request) any {
			return construct(req)
		},
	}
}

// Name returns the class name endpoint versions reference.
func (c *Class) Name() string {
	return c.name
}

// New constructs an endpoint object for req.
func (c *Class) New(req *request.Request) any {
	return c.construct(req)
}

var (
	loaderType = reflect.TypeOf((func(context.Context, string, Args) (any, error))(nil))
	pageType   = reflect.TypeOf((func(context.Context, Args) (any, error))(nil))
	accessType = reflect.TypeOf((func(context.Context, Args) (bool, error))(nil))
)

// MethodName returns the Go method name a snake_case reference maps to.
func MethodName(ref string) string {
	return strcase.UpperCamelCase(ref)
}

// MissingMethodError is returned by [Compile] when a method reference
// names a method the endpoint class does not have.
type MissingMethodError struct {
	Class  string
	Method string
}

func (e MissingMethodError) Error() string {
	return fmt.Sprintf("endpoint class %s has no method: %s", e.Class, e.Method)
}

// MethodSignatureError is returned by [Compile] when a referenced method
// exists but does not have the signature its role requires.
type MethodSignatureError struct {
	Class    string
	Method   string
	Expected reflect.Type
	Actual   reflect.Type
}

func (e MethodSignatureError) Error() string {
	return fmt.Sprintf(
		"method %s of endpoint class %s must be %s but is %s",
		e.Method,
		e.Class,
		e.Expected,
		e.Actual,
	)
}

// checkMethod verifies that the class has an exported method for the
// snake_case reference with the given signature and returns its Go name.
func (c *Class) checkMethod(ref string, want reflect.Type) (string, error) {
	name := MethodName(ref)
	m, ok := c.typ.MethodByName(name)
	if !ok {
		return "", MissingMethodError{Class: c.name, Method: name}
	}

	got := m.Type
	if c.typ.Kind() != reflect.Interface {
		got = withoutReceiver(m.Type)
	}
	if got != want {
		return "", MethodSignatureError{
			Class:    c.name,
			Method:   name,
			Expected: want,
			Actual:   got,
		}
	}
	return name, nil
}

func withoutReceiver(t reflect.Type) reflect.Type {
	in := make([]reflect.Type, 0, t.NumIn()-1)
	for i := 1; i < t.NumIn(); i++ {
		in = append(in, t.In(i))
	}
	out := make([]reflect.Type, 0, t.NumOut())
	for i := 0; i < t.NumOut(); i++ {
		out = append(out, t.Out(i))
	}
	return reflect.FuncOf(in, out, t.IsVariadic())
}

func bindMethod(obj any, name string) reflect.Value {
	return reflect.ValueOf(obj).MethodByName(name)
}

func bindLoader(obj any, name string) LoaderFunc {
	return bindMethod(obj, name).Interface().(func(context.Context, string, Args) (any, error))
}

func bindPage(obj any, name string) PageFunc {
	return bindMethod(obj, name).Interface().(func(context.Context, Args) (any, error))
}

func bindAccess(obj any, name string) AccessFunc {
	return bindMethod(obj, name).Interface().(func(context.Context, Args) (bool, error))
}
