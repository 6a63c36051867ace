// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"fmt"
	"strings"
)

// InvalidDefinitionError is returned by [Build] when a definition fails validation.
type InvalidDefinitionError struct {
	Endpoint string
	Cause    error
}

func (e InvalidDefinitionError) Error() string {
	return fmt.Sprintf("invalid endpoint definition %s: %v", e.Endpoint, e.Cause)
}

// Unwrap returns the underlying cause.
func (e InvalidDefinitionError) Unwrap() error {
	return e.Cause
}

// DuplicatePathError is returned by [Build] when more than one endpoint
// declares the same path.
type DuplicatePathError struct {
	Path      string
	Endpoints []string
}

func (e DuplicatePathError) Error() string {
	return fmt.Sprintf("path %q is declared by more than one endpoint: %s", e.Path, strings.Join(e.Endpoints, ", "))
}

// ReservedPathError is returned by [Build] when an endpoint path lies
// under a reserved prefix.
type ReservedPathError struct {
	Endpoint string
	Path     string
	Reserved string
}

func (e ReservedPathError) Error() string {
	return fmt.Sprintf("endpoint %s: path %q is reserved by %q", e.Endpoint, e.Path, e.Reserved)
}

// UndeclaredVersionError is returned by [Build] when a definition
// references a version label it does not declare.
type UndeclaredVersionError struct {
	Version string
}

func (e UndeclaredVersionError) Error() string {
	return fmt.Sprintf("version is not declared: %q", e.Version)
}

// UnregisteredError is returned by [Build] when a definition references
// a router, class, plugin or format which has not been registered.
type UnregisteredError struct {
	Kind string
	Name string
}

func (e UnregisteredError) Error() string {
	return fmt.Sprintf("%s is not registered: %q", e.Kind, e.Name)
}

// ProviderError is returned by [Build] when a provider fails.
type ProviderError struct {
	Index int
	Cause error
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("endpoint provider %d failed: %v", e.Index, e.Cause)
}

// Unwrap returns the underlying cause.
func (e ProviderError) Unwrap() error {
	return e.Cause
}
