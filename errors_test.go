// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package restrouter

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	testCases := []struct {
		Name   string
		Err    error
		Status int
	}{
		{Name: "unknown endpoint", Err: UnknownEndpointError{Path: "x"}, Status: http.StatusNotFound},
		{Name: "version not found", Err: VersionNotFoundError{Endpoint: "x"}, Status: http.StatusNotFound},
		{Name: "route not found", Err: RouteNotFoundError{Method: "GET", Path: "x"}, Status: http.StatusNotFound},
		{Name: "unauthenticated", Err: UnauthenticatedError{Plugin: "jwt"}, Status: http.StatusUnauthorized},
		{Name: "unauthorized", Err: UnauthorizedError{Plugin: "jwt"}, Status: http.StatusForbidden},
		{Name: "access denied", Err: AccessDeniedError{Route: "GET:x"}, Status: http.StatusForbidden},
		{Name: "callback", Err: CallbackError{Route: "GET:x"}, Status: http.StatusInternalServerError},
		{Name: "unsupported format", Err: UnsupportedFormatError{}, Status: http.StatusUnsupportedMediaType},
		{Name: "not acceptable", Err: NotAcceptableError{}, Status: http.StatusNotAcceptable},
		{Name: "bad request", Err: BadRequestError{}, Status: http.StatusBadRequest},
		{Name: "plain error", Err: errors.New("boom"), Status: http.StatusInternalServerError},
	}

	for _, testCase := range testCases {
		t.Run("will return the status for "+testCase.Name, func(t *testing.T) {
			assert.Equal(t, testCase.Status, StatusCode(testCase.Err))
		})
	}

	t.Run("will find the status of a wrapped error", func(t *testing.T) {
		err := fmt.Errorf("dispatch: %w", AccessDeniedError{Route: "GET:x"})

		assert.Equal(t, http.StatusForbidden, StatusCode(err))
	})
}

func TestRouteNotFoundError(t *testing.T) {
	t.Run("will unwrap to the loader failure", func(t *testing.T) {
		cause := errors.New("no such subscription")
		err := RouteNotFoundError{
			Method: http.MethodGet,
			Path:   "subscriptions/42",
			Cause: LoaderError{
				Loader: "api::load_subscription",
				Value:  "42",
				Cause:  cause,
			},
		}

		var lerr LoaderError
		if !assert.True(t, errors.As(err, &lerr)) {
			return
		}
		assert.Equal(t, "42", lerr.Value)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, http.StatusNotFound, StatusCode(err))
	})

	t.Run("will format without a cause", func(t *testing.T) {
		err := RouteNotFoundError{Method: "GET", Path: "a/b"}

		assert.Equal(t, "no route matches: GET a/b", err.Error())
	})
}

func TestLoaderError_Error(t *testing.T) {
	t.Run("will report a nil result", func(t *testing.T) {
		err := LoaderError{Loader: "node", Value: "7"}

		assert.Equal(t, `loader node returned no value for: "7"`, err.Error())
	})
}

func TestCallbackError_PublicMessage(t *testing.T) {
	t.Run("will not leak the cause", func(t *testing.T) {
		err := CallbackError{Route: "GET:x", Cause: errors.New("db password rejected")}

		assert.NotContains(t, err.PublicMessage(), "password")
	})
}

func TestVersionNotFoundError_Error(t *testing.T) {
	t.Run("will name the undeclared version", func(t *testing.T) {
		err := VersionNotFoundError{Endpoint: "nspi_api", Version: "3.0"}

		assert.Equal(t, `endpoint nspi_api does not declare version: "3.0"`, err.Error())
	})

	t.Run("will report that nothing was resolved", func(t *testing.T) {
		err := VersionNotFoundError{Endpoint: "nspi_api"}

		assert.Equal(t, "no version resolved for endpoint: nspi_api", err.Error())
	})
}

func TestPanicError_Unwrap(t *testing.T) {
	t.Run("will return nil if the recovered value is not an error", func(t *testing.T) {
		err := PanicError{Value: "boom"}

		assert.Nil(t, err.Unwrap())
		assert.Equal(t, "recovered from panic: boom", err.Error())
	})

	t.Run("will return the recovered value if it is an error", func(t *testing.T) {
		cause := errors.New("failed")
		err := PanicError{Value: cause}

		assert.ErrorIs(t, err, cause)
	})
}

func TestRecover(t *testing.T) {
	t.Run("will return a PanicError if the function panics with a string", func(t *testing.T) {
		f := func() (err error) {
			defer Recover(&err)
			panic("boom")
		}

		err := f()

		var perr PanicError
		if !assert.ErrorAs(t, err, &perr) {
			return
		}
		assert.Equal(t, "boom", perr.Value)
	})

	t.Run("will join the panic with an error already returned", func(t *testing.T) {
		cause := errors.New("failed")
		f := func() (err error) {
			defer Recover(&err)
			err = cause
			panic("boom")
		}

		err := f()

		assert.ErrorIs(t, err, cause)
		var perr PanicError
		assert.ErrorAs(t, err, &perr)
	})

	t.Run("will leave the error untouched if nothing panics", func(t *testing.T) {
		f := func() (err error) {
			defer Recover(&err)
			return nil
		}

		assert.Nil(t, f())
	})
}
