// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package auth provides the authentication plugin contract and the
// pipeline endpoints run their plugins through.
package auth

import (
	"context"
	"errors"

	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/request"
)

// Config is the configuration of an auth plugin as declared by an endpoint.
type Config map[string]any

// Authenticator checks the credentials carried by a request.
//
// Implementations should return [restrouter.UnauthenticatedError] for
// missing or invalid credentials and [restrouter.UnauthorizedError] for
// valid credentials which may not use the endpoint.
type Authenticator interface {
	Authenticate(ctx context.Context, req *request.Request) error
}

// AuthenticatorFunc is an adapter to allow the use of ordinary functions as [Authenticator]s.
type AuthenticatorFunc func(context.Context, *request.Request) error

// Authenticate implements the [Authenticator] interface.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, req *request.Request) error {
	return f(ctx, req)
}

// Factory creates an [Authenticator] from its configuration.
type Factory func(Config) (Authenticator, error)

// Step is a named [Authenticator] within a [Pipeline].
type Step struct {
	Name          string
	Authenticator Authenticator
}

// Pipeline is an ordered collection of [Step]s which follows the
// logical AND (&&) semantics. It fails fast on the first failing step.
//
// An empty Pipeline always succeeds.
type Pipeline []Step

// Authenticate implements the [Authenticator] interface.
func (p Pipeline) Authenticate(ctx context.Context, req *request.Request) error {
	for _, step := range p {
		err := step.Authenticator.Authenticate(ctx, req)
		if err == nil {
			continue
		}

		var unauthenticated restrouter.UnauthenticatedError
		if errors.As(err, &unauthenticated) {
			return err
		}
		var unauthorized restrouter.UnauthorizedError
		if errors.As(err, &unauthorized) {
			return err
		}
		return restrouter.UnauthenticatedError{Plugin: step.Name, Cause: err}
	}
	return nil
}
