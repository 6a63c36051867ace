// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package jwtauth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/auth"
	"github.com/z5labs/restrouter/request"
)

const secret = "0123456789abcdef0123456789abcdef"

func authenticate(t *testing.T, cfg auth.Config, header string) (*request.Request, error) {
	a, err := New(cfg)
	require.Nil(t, err)

	req := request.New(http.MethodGet, "subscriptions")
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return req, a.Authenticate(context.Background(), req)
}

func TestNew(t *testing.T) {
	t.Run("will return an error if the secret is missing", func(t *testing.T) {
		_, err := New(auth.Config{"context": "nspi_api"})

		assert.Error(t, err)
	})
}

func TestAuthenticator_Authenticate(t *testing.T) {
	cfg := auth.Config{"secret": secret, "context": "nspi_api"}

	t.Run("will store the claims of a valid token", func(t *testing.T) {
		token, err := Sign(secret, "nspi_api", "consumer-1", time.Minute)
		require.Nil(t, err)

		req, err := authenticate(t, cfg, "Bearer "+token)
		if !assert.Nil(t, err) {
			return
		}

		claims, ok := ClaimsFrom(req)
		require.True(t, ok)
		assert.Equal(t, "consumer-1", claims.Subject)
		assert.Equal(t, "nspi_api", claims.Context)
	})

	t.Run("will return an UnauthenticatedError", func(t *testing.T) {
		t.Run("if the authorization header is missing", func(t *testing.T) {
			_, err := authenticate(t, cfg, "")

			var uerr restrouter.UnauthenticatedError
			require.True(t, errors.As(err, &uerr))
			assert.ErrorIs(t, err, ErrMissingToken)
			assert.Equal(t, http.StatusUnauthorized, restrouter.StatusCode(err))
		})

		t.Run("if the scheme is not bearer", func(t *testing.T) {
			_, err := authenticate(t, cfg, "Basic dXNlcjpwYXNz")

			var uerr restrouter.UnauthenticatedError
			assert.True(t, errors.As(err, &uerr))
		})

		t.Run("if the token is signed with another secret", func(t *testing.T) {
			token, err := Sign("another-secret", "nspi_api", "consumer-1", time.Minute)
			require.Nil(t, err)

			_, err = authenticate(t, cfg, "Bearer "+token)

			var uerr restrouter.UnauthenticatedError
			assert.True(t, errors.As(err, &uerr))
		})

		t.Run("if the token has expired", func(t *testing.T) {
			token, err := Sign(secret, "nspi_api", "consumer-1", -time.Minute)
			require.Nil(t, err)

			_, err = authenticate(t, cfg, "Bearer "+token)

			var uerr restrouter.UnauthenticatedError
			assert.True(t, errors.As(err, &uerr))
		})

		t.Run("if the issuer does not match", func(t *testing.T) {
			token, err := Sign(secret, "nspi_api", "consumer-1", time.Minute)
			require.Nil(t, err)

			_, err = authenticate(t, auth.Config{"secret": secret, "issuer": "https://issuer.example.com"}, "Bearer "+token)

			var uerr restrouter.UnauthenticatedError
			assert.True(t, errors.As(err, &uerr))
		})
	})

	t.Run("will return an UnauthorizedError if the token context differs", func(t *testing.T) {
		token, err := Sign(secret, "billing_api", "consumer-1", time.Minute)
		require.Nil(t, err)

		_, err = authenticate(t, cfg, "Bearer "+token)

		var uerr restrouter.UnauthorizedError
		require.True(t, errors.As(err, &uerr))

		var cerr ContextMismatchError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "billing_api", cerr.Actual)
		assert.Equal(t, http.StatusForbidden, restrouter.StatusCode(err))
	})
}
