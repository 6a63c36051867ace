// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package response provides the envelopes every dispatch result is
// rendered as.
package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/format"
)

// Envelope is a renderable response body.
type Envelope interface {
	StatusCode() int
}

// Response is the envelope of a successful dispatch.
type Response struct {
	Status int `json:"status" yaml:"status"`
	Data   any `json:"data" yaml:"data"`
}

// OK wraps data in a 200 [Response].
func OK(data any) Response {
	return Response{
		Status: http.StatusOK,
		Data:   data,
	}
}

// StatusCode implements the [Envelope] interface.
func (r Response) StatusCode() int {
	return r.Status
}

// ErrorResponse is the envelope of a failed dispatch. It is also an
// error so callbacks may return it to control the rendered response.
type ErrorResponse struct {
	Status  int    `json:"status" yaml:"status"`
	Message string `json:"message" yaml:"message"`
}

// StatusCode implements the [Envelope] interface.
func (r ErrorResponse) StatusCode() int {
	return r.Status
}

func (r ErrorResponse) Error() string {
	return fmt.Sprintf("%d: %s", r.Status, r.Message)
}

func (ErrorResponse) envelope() {}

// FieldError is a single entry of a [StructuredErrorResponse].
type FieldError struct {
	ID      string `json:"id" yaml:"id"`
	Message string `json:"message" yaml:"message"`
}

// StructuredErrorResponse is an error envelope carrying one message per
// field or id, e.g. one per invalid form field.
type StructuredErrorResponse struct {
	Status  int                   `json:"status" yaml:"status"`
	Message string                `json:"message,omitempty" yaml:"message,omitempty"`
	Errors  map[string]FieldError `json:"errors" yaml:"errors"`
}

// NewStructuredError initializes a [StructuredErrorResponse] with no entries.
func NewStructuredError(status int, message string) *StructuredErrorResponse {
	return &StructuredErrorResponse{
		Status:  status,
		Message: message,
		Errors:  map[string]FieldError{},
	}
}

// AddErrorMessage sets the entry for id. A later call with the same id
// overwrites the earlier entry.
func (r *StructuredErrorResponse) AddErrorMessage(id, message string) {
	if r.Errors == nil {
		r.Errors = map[string]FieldError{}
	}
	r.Errors[id] = FieldError{ID: id, Message: message}
}

// HasErrors reports whether any entry has been added.
func (r StructuredErrorResponse) HasErrors() bool {
	return len(r.Errors) > 0
}

// StatusCode implements the [Envelope] interface.
func (r StructuredErrorResponse) StatusCode() int {
	return r.Status
}

func (r StructuredErrorResponse) Error() string {
	return fmt.Sprintf("%d: %s (%d field errors)", r.Status, r.Message, len(r.Errors))
}

func (StructuredErrorResponse) envelope() {}

type envelopeError interface {
	error
	Envelope

	envelope()
}

// InternalErrorMessage is the message of every error response whose
// cause is not meant for clients.
const InternalErrorMessage = "An internal server error occurred."

// FromError converts err into an error envelope. It checks, in order:
//  1. errors which are envelopes themselves, rendered as is, unless err
//     itself reports a public status, e.g. a route whose loader failed
//  2. errors carrying a status code, rendered with their public message
//  3. any other error, rendered as a 500 with a generic message
//
// If structured is set, tiers 2 and 3 produce a [StructuredErrorResponse]
// with no entries instead of an [ErrorResponse].
func FromError(err error, structured bool) Envelope {
	pe, public := err.(restrouter.PublicError)
	if !public {
		var ee envelopeError
		if errors.As(err, &ee) {
			return Normalize(ee)
		}
	}

	status := http.StatusInternalServerError
	message := InternalErrorMessage

	var sc restrouter.StatusCoder
	switch {
	case public:
		status = pe.StatusCode()
		message = pe.PublicMessage()
	case errors.As(err, &pe):
		status = pe.StatusCode()
		message = pe.PublicMessage()
	case errors.As(err, &sc):
		status = sc.StatusCode()
		message = http.StatusText(status)
	}

	if structured {
		return NewStructuredError(status, message)
	}
	return ErrorResponse{
		Status:  status,
		Message: message,
	}
}

// Normalize fills in the status of envelopes built without one: 200 for a
// [Response] and 500 for error envelopes. Pointers to complete envelopes
// are returned unchanged, others are copied so the caller's value is never
// modified.
func Normalize(env Envelope) Envelope {
	switch e := env.(type) {
	case Response:
		if e.Status == 0 {
			e.Status = http.StatusOK
		}
		return e
	case *Response:
		if e == nil {
			return OK(nil)
		}
		if e.Status != 0 {
			return e
		}
		c := Normalize(*e).(Response)
		return &c
	case ErrorResponse:
		if e.Status == 0 {
			e.Status = http.StatusInternalServerError
		}
		return e
	case *ErrorResponse:
		if e == nil {
			return ErrorResponse{Status: http.StatusInternalServerError, Message: InternalErrorMessage}
		}
		if e.Status != 0 {
			return e
		}
		c := Normalize(*e).(ErrorResponse)
		return &c
	case StructuredErrorResponse:
		if e.Status == 0 {
			e.Status = http.StatusInternalServerError
		}
		if e.Errors == nil {
			e.Errors = map[string]FieldError{}
		}
		return e
	case *StructuredErrorResponse:
		if e == nil {
			return NewStructuredError(http.StatusInternalServerError, InternalErrorMessage)
		}
		if e.Status != 0 && e.Errors != nil {
			return e
		}
		c := Normalize(*e).(StructuredErrorResponse)
		return &c
	}
	return env
}

// Write renders env with f. It sets the Content-Type header and the
// envelope status before encoding.
func Write(w http.ResponseWriter, f format.Format, env Envelope) error {
	if f.Encoder == nil {
		return fmt.Errorf("format %s can not encode responses", f.Name)
	}

	env = Normalize(env)
	status := env.StatusCode()
	if status < 100 || status > 999 {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.WriteHeader(status)
	return f.Encoder.Encode(w, env)
}
