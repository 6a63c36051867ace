// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import "strings"

// MethodPrefix marks a reference to a method of the endpoint object.
const MethodPrefix = "api::"

// RefKind identifies what a callback reference points at.
type RefKind int

const (
	// FuncRef references a free function registered in [Funcs].
	FuncRef RefKind = iota

	// MethodRef references a method of the endpoint object.
	MethodRef

	// ConstRef is a literal "true" or "false" access callback.
	ConstRef
)

func (k RefKind) String() string {
	switch k {
	case FuncRef:
		return "function"
	case MethodRef:
		return "method"
	case ConstRef:
		return "constant"
	default:
		return "unknown"
	}
}

// Ref is a parsed callback or loader reference.
type Ref struct {
	Kind RefKind

	// Name is the function or method name. Method names are the
	// snake_case names used in route definitions.
	Name string

	// Value is only meaningful for [ConstRef].
	Value bool
}

// ParseRef parses a reference. "api::name" references the endpoint
// method name, "true" and "false" are constants and anything else
// references a free function.
func ParseRef(s string) Ref {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, MethodPrefix):
		return Ref{Kind: MethodRef, Name: strings.TrimPrefix(s, MethodPrefix)}
	case s == "true":
		return Ref{Kind: ConstRef, Value: true}
	case s == "false":
		return Ref{Kind: ConstRef, Value: false}
	default:
		return Ref{Kind: FuncRef, Name: s}
	}
}

// String returns the reference in the form it is written in definitions.
func (r Ref) String() string {
	switch r.Kind {
	case MethodRef:
		return MethodPrefix + r.Name
	case ConstRef:
		if r.Value {
			return "true"
		}
		return "false"
	default:
		return r.Name
	}
}
