// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package nspi implements the "nspi_api" endpoint: a versioned API for
// managing newsletter subscriptions.
//
// Version 1.0 lists, views, creates and updates subscriptions. Version 2.0
// additionally deletes them.
package nspi

import (
	"net/http"

	"github.com/z5labs/restrouter/endpoint"
	"github.com/z5labs/restrouter/route"
)

const (
	// Name is the machine name of the endpoint.
	Name = "nspi_api"

	// ClassName is the name the endpoint class is registered under.
	ClassName = "nspi_api"

	// RouterV1 is the name of the router serving version 1.0.
	RouterV1 = "nspi_router_v1"

	// RouterV2 is the name of the router serving version 2.0.
	RouterV2 = "nspi_router_v2"
)

func routesV1() []route.Definition {
	return []route.Definition{
		{
			Method:       http.MethodGet,
			Path:         "subscriptions",
			PageCallback: "api::list_subscriptions",
			Summary:      "List subscriptions",
		},
		{
			Method:          http.MethodGet,
			Path:            "subscriptions/%api::load_subscription",
			PageCallback:    "api::view_subscription",
			PageArguments:   []int{1},
			AccessCallback:  "api::owns_subscription",
			AccessArguments: []int{1},
			Summary:         "View a subscription",
		},
		{
			Method:          http.MethodPost,
			Path:            "subscriptions/%api::load_subscription",
			PageCallback:    "api::update_subscription",
			PageArguments:   []int{1},
			AccessCallback:  "api::owns_subscription",
			AccessArguments: []int{1},
			Summary:         "Update a subscription",
		},
		{
			Method:       http.MethodPost,
			Path:         "subscriptions",
			PageCallback: "api::create_subscription",
			Summary:      "Create a subscription",
		},
	}
}

func routesV2() []route.Definition {
	return append(routesV1(), route.Definition{
		Method:          http.MethodDelete,
		Path:            "subscriptions/%api::load_subscription",
		PageCallback:    "api::delete_subscription",
		PageArguments:   []int{1},
		AccessCallback:  "api::owns_subscription",
		AccessArguments: []int{1},
		Summary:         "Delete a subscription",
	})
}

// Definition returns the endpoint definition. Tokens must be signed
// with secret and issued for the nspi_api context.
func Definition(secret string) endpoint.Definition {
	return endpoint.Definition{
		Name: "NSPI API",
		Path: "api",
		Versions: map[string]endpoint.Version{
			"1.0": {Router: RouterV1, Class: ClassName},
			"2.0": {Router: RouterV2, Class: ClassName},
		},
		DefaultVersion: "1.0",
		Auth: []endpoint.PluginConfig{
			{
				Name: "jwt",
				Config: map[string]any{
					"secret":  secret,
					"context": Name,
				},
			},
		},
		Version: []endpoint.PluginConfig{
			{Name: "path"},
			{Name: "query"},
		},
		RequestFormats:   []string{"json", "yaml", "form"},
		ResponseFormats:  []string{"json", "yaml"},
		StructuredErrors: true,
	}
}

// Provider supplies the endpoint definition.
func Provider(secret string) endpoint.Provider {
	return endpoint.Static(map[string]endpoint.Definition{
		Name: Definition(secret),
	})
}

// BuildOptions registers the routers and the endpoint class backed by store.
func BuildOptions(store *Store) []endpoint.BuildOption {
	return []endpoint.BuildOption{
		endpoint.WithRouter(RouterV1, route.RouterFunc(routesV1)),
		endpoint.WithRouter(RouterV2, route.RouterFunc(routesV2)),
		endpoint.WithClass(NewClass(store)),
	}
}
