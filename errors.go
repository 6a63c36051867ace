// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package restrouter

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusCoder is implemented by errors which know the HTTP status
// they should be reported with.
type StatusCoder interface {
	StatusCode() int
}

// PublicError is a [StatusCoder] which also carries a message that
// is safe to send to API clients.
type PublicError interface {
	error
	StatusCoder

	PublicMessage() string
}

// StatusCode returns the status of the first error in err's chain
// implementing [StatusCoder]. Any other error maps to 500.
func StatusCode(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// UnknownEndpointError is returned when no registered endpoint path
// is a prefix of the request path.
type UnknownEndpointError struct {
	Path string
}

func (e UnknownEndpointError) Error() string {
	return fmt.Sprintf("no endpoint registered for path: %q", e.Path)
}

// StatusCode implements the [StatusCoder] interface.
func (e UnknownEndpointError) StatusCode() int {
	return http.StatusNotFound
}

// PublicMessage implements the [PublicError] interface.
func (e UnknownEndpointError) PublicMessage() string {
	return "No endpoint is registered for the requested path."
}

// VersionNotFoundError is returned when neither the version plugins
// nor the endpoint default produce a declared version label.
type VersionNotFoundError struct {
	Endpoint string

	// Version is the label which was detected but is not declared
	// by the endpoint. It is empty if no label was produced at all.
	Version string
}

func (e VersionNotFoundError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("no version resolved for endpoint: %s", e.Endpoint)
	}
	return fmt.Sprintf("endpoint %s does not declare version: %q", e.Endpoint, e.Version)
}

// StatusCode implements the [StatusCoder] interface.
func (e VersionNotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// PublicMessage implements the [PublicError] interface.
func (e VersionNotFoundError) PublicMessage() string {
	return "The requested API version does not exist."
}

// RouteNotFoundError is returned when no route of the resolved router
// matches the request, or when a matched route failed to load one of
// its arguments.
type RouteNotFoundError struct {
	Method string
	Path   string
	Cause  error
}

func (e RouteNotFoundError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("no route matches: %s %s", e.Method, e.Path)
	}
	return fmt.Sprintf("no route matches: %s %s: %v", e.Method, e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e RouteNotFoundError) Unwrap() error {
	return e.Cause
}

// StatusCode implements the [StatusCoder] interface.
func (e RouteNotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// PublicMessage implements the [PublicError] interface.
func (e RouteNotFoundError) PublicMessage() string {
	return "The requested resource could not be found."
}

// LoaderError describes a placeholder whose loader could not turn
// the raw path segment into a value. It is always reported wrapped
// in a [RouteNotFoundError].
type LoaderError struct {
	Loader string
	Value  string
	Cause  error
}

func (e LoaderError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("loader %s returned no value for: %q", e.Loader, e.Value)
	}
	return fmt.Sprintf("loader %s failed for %q: %v", e.Loader, e.Value, e.Cause)
}

// Unwrap returns the underlying cause.
func (e LoaderError) Unwrap() error {
	return e.Cause
}

// UnauthenticatedError is returned by authentication plugins when the
// request carries no credentials or the credentials are invalid.
type UnauthenticatedError struct {
	Plugin string
	Cause  error
}

func (e UnauthenticatedError) Error() string {
	return fmt.Sprintf("unauthenticated by plugin %s: %v", e.Plugin, e.Cause)
}

// Unwrap returns the underlying cause.
func (e UnauthenticatedError) Unwrap() error {
	return e.Cause
}

// StatusCode implements the [StatusCoder] interface.
func (e UnauthenticatedError) StatusCode() int {
	return http.StatusUnauthorized
}

// PublicMessage implements the [PublicError] interface.
func (e UnauthenticatedError) PublicMessage() string {
	return "Authentication is required."
}

// UnauthorizedError is returned by authentication plugins when valid
// credentials are not allowed to use the endpoint.
type UnauthorizedError struct {
	Plugin string
	Cause  error
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized by plugin %s: %v", e.Plugin, e.Cause)
}

// Unwrap returns the underlying cause.
func (e UnauthorizedError) Unwrap() error {
	return e.Cause
}

// StatusCode implements the [StatusCoder] interface.
func (e UnauthorizedError) StatusCode() int {
	return http.StatusForbidden
}

// PublicMessage implements the [PublicError] interface.
func (e UnauthorizedError) PublicMessage() string {
	return "The credentials are not allowed to use this endpoint."
}

// AccessDeniedError is returned when the access callback of a matched
// route denies the request.
type AccessDeniedError struct {
	Route string
}

func (e AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied to route: %s", e.Route)
}

// StatusCode implements the [StatusCoder] interface.
func (e AccessDeniedError) StatusCode() int {
	return http.StatusForbidden
}

// PublicMessage implements the [PublicError] interface.
func (e AccessDeniedError) PublicMessage() string {
	return "Access denied."
}

// CallbackError wraps a failure raised inside an access or page callback.
// Its cause is logged but never sent to clients.
type CallbackError struct {
	Route string
	Cause error
}

func (e CallbackError) Error() string {
	return fmt.Sprintf("callback for route %s failed: %v", e.Route, e.Cause)
}

// Unwrap returns the underlying cause.
func (e CallbackError) Unwrap() error {
	return e.Cause
}

// StatusCode implements the [StatusCoder] interface.
func (e CallbackError) StatusCode() int {
	return http.StatusInternalServerError
}

// PublicMessage implements the [PublicError] interface.
func (e CallbackError) PublicMessage() string {
	return "An internal server error occurred."
}

// UnsupportedFormatError is returned when the request Content-Type is not
// one of the request formats accepted by the endpoint.
type UnsupportedFormatError struct {
	ContentType string
}

func (e UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported request content type: %q", e.ContentType)
}

// StatusCode implements the [StatusCoder] interface.
func (e UnsupportedFormatError) StatusCode() int {
	return http.StatusUnsupportedMediaType
}

// PublicMessage implements the [PublicError] interface.
func (e UnsupportedFormatError) PublicMessage() string {
	return "The request format is not supported by this endpoint."
}

// NotAcceptableError is returned when none of the media types listed in
// the Accept header is a response format of the endpoint.
type NotAcceptableError struct {
	Accept string
}

func (e NotAcceptableError) Error() string {
	return fmt.Sprintf("no acceptable response format for: %q", e.Accept)
}

// StatusCode implements the [StatusCoder] interface.
func (e NotAcceptableError) StatusCode() int {
	return http.StatusNotAcceptable
}

// PublicMessage implements the [PublicError] interface.
func (e NotAcceptableError) PublicMessage() string {
	return "None of the accepted response formats are supported."
}

// BadRequestError is returned when the request body cannot be read
// or decoded with the negotiated request format.
type BadRequestError struct {
	Cause error
}

func (e BadRequestError) Error() string {
	return fmt.Sprintf("bad request error: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e BadRequestError) Unwrap() error {
	return e.Cause
}

// StatusCode implements the [StatusCoder] interface.
func (e BadRequestError) StatusCode() int {
	return http.StatusBadRequest
}

// PublicMessage implements the [PublicError] interface.
func (e BadRequestError) PublicMessage() string {
	return "The request body could not be decoded."
}

// PanicError holds a value recovered from a panic.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("recovered from panic: %v", e.Value)
}

// Unwrap returns the recovered value if it is an error and nil otherwise.
func (e PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Recover recovers from a panic and joins it, as a [PanicError], with the
// error referenced by err. It must be deferred directly.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}

	perr := PanicError{Value: r}
	if *err == nil {
		*err = perr
		return
	}
	*err = errors.Join(*err, perr)
}
