// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package nspi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/auth/jwtauth"
	"github.com/z5labs/restrouter/request"
	"github.com/z5labs/restrouter/response"
	"github.com/z5labs/restrouter/route"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// API is the endpoint class of every nspi_api version. A new API is
// constructed for each request.
type API struct {
	req   *request.Request
	store *Store
	log   *slog.Logger
}

// NewClass returns the endpoint class backed by store.
func NewClass(store *Store) *route.Class {
	log := restrouter.Logger("github.com/z5labs/restrouter/example/nspi")

	return route.NewClass(ClassName, func(req *request.Request) *API {
		return &API{
			req:   req,
			store: store,
			log:   log,
		}
	})
}

// LoadSubscription loads the subscription a path segment refers to.
func (a *API) LoadSubscription(ctx context.Context, id string, args route.Args) (any, error) {
	sub, ok := a.store.Get(id)
	if !ok {
		return nil, nil
	}
	return sub, nil
}

// OwnsSubscription allows access to subscriptions owned by the token subject.
func (a *API) OwnsSubscription(ctx context.Context, args route.Args) (bool, error) {
	sub, ok := args[0].(Subscription)
	if !ok {
		return false, nil
	}
	return sub.Owner == a.owner(), nil
}

// ListSubscriptions lists the subscriptions of the token subject.
func (a *API) ListSubscriptions(ctx context.Context, args route.Args) (any, error) {
	return a.store.List(a.owner()), nil
}

// ViewSubscription returns a loaded subscription.
func (a *API) ViewSubscription(ctx context.Context, args route.Args) (any, error) {
	return args[0], nil
}

// CreateSubscription validates the request body and stores a new subscription.
func (a *API) CreateSubscription(ctx context.Context, args route.Args) (any, error) {
	email, name, err := a.input()
	if err != nil {
		return nil, err
	}

	sub := a.store.Create(a.owner(), email, name)
	a.log.InfoContext(ctx, "created subscription", slog.String("subscription_id", sub.ID))

	return response.Response{
		Status: http.StatusCreated,
		Data:   sub,
	}, nil
}

// UpdateSubscription validates the request body and updates a loaded subscription.
func (a *API) UpdateSubscription(ctx context.Context, args route.Args) (any, error) {
	sub := args[0].(Subscription)

	email, name, err := a.input()
	if err != nil {
		return nil, err
	}

	updated, ok := a.store.Update(sub.ID, email, name)
	if !ok {
		return nil, restrouter.RouteNotFoundError{Method: a.req.Method, Path: a.req.Path}
	}
	return updated, nil
}

// DeleteSubscription removes a loaded subscription and returns it.
func (a *API) DeleteSubscription(ctx context.Context, args route.Args) (any, error) {
	sub := args[0].(Subscription)

	a.store.Delete(sub.ID)
	a.log.InfoContext(ctx, "deleted subscription", slog.String("subscription_id", sub.ID))

	return sub, nil
}

// input reads the subscription fields from the request body. Every
// invalid field is reported in a single structured error.
func (a *API) input() (email, name string, err error) {
	email = a.req.Lookup("email").String()
	name = a.req.Lookup("name").String()

	resp := response.NewStructuredError(http.StatusBadRequest, "The subscription is invalid.")
	if validate.Var(email, "required,email") != nil {
		resp.AddErrorMessage("email", "A valid e-mail address is required.")
	}
	if validate.Var(name, "max=64") != nil {
		resp.AddErrorMessage("name", "The name must not be longer than 64 characters.")
	}
	if resp.HasErrors() {
		return "", "", resp
	}
	return email, name, nil
}

func (a *API) owner() string {
	claims, ok := jwtauth.ClaimsFrom(a.req)
	if !ok {
		return ""
	}
	return claims.Subject
}
