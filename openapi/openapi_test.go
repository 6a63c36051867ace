// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/endpoint"
	"github.com/z5labs/restrouter/route"
)

func noop(ctx context.Context, args route.Args) (any, error) {
	return nil, nil
}

func load(ctx context.Context, value string, args route.Args) (any, error) {
	return value, nil
}

func buildEndpoint(t *testing.T, def endpoint.Definition) *endpoint.Endpoint {
	t.Helper()

	router := route.RouterFunc(func() []route.Definition {
		return []route.Definition{
			{Method: http.MethodGet, Path: "subscriptions", PageCallback: "list", Summary: "List subscriptions"},
			{Method: http.MethodGet, Path: "subscriptions/%load", PageCallback: "view", PageArguments: []int{1}},
			{Method: http.MethodGet, Path: "subscriptions/%", PageCallback: "list"},
			{Method: http.MethodPost, Path: "subscriptions/%load/renew", PageCallback: "view", PageArguments: []int{1}},
		}
	})

	r, err := endpoint.Build(
		context.Background(),
		[]endpoint.Provider{endpoint.Static(map[string]endpoint.Definition{"nspi_api": def})},
		endpoint.WithRouter("subscriptions", router),
		endpoint.WithLoader("load", load),
		endpoint.WithPageCallback("list", noop),
		endpoint.WithPageCallback("view", noop),
	)
	require.Nil(t, err)

	ep, ok := r.Get("nspi_api")
	require.True(t, ok)
	return ep
}

func document(t *testing.T, ep *endpoint.Endpoint, version string) gjson.Result {
	t.Helper()

	spec, err := Document(ep, version)
	require.Nil(t, err)

	b, err := json.Marshal(spec)
	require.Nil(t, err)
	return gjson.ParseBytes(b)
}

func TestDocument(t *testing.T) {
	def := endpoint.Definition{
		Name: "NSPI API",
		Path: "api",
		Versions: map[string]endpoint.Version{
			"1.0": {Router: "subscriptions"},
		},
		DefaultVersion: "1.0",
		Auth: []endpoint.PluginConfig{
			{Name: "jwt", Config: map[string]any{"secret": "s3cr3t"}},
		},
		Version: []endpoint.PluginConfig{
			{Name: "path"},
		},
		ResponseFormats: []string{"json", "yaml"},
	}

	t.Run("will describe the endpoint version", func(t *testing.T) {
		doc := document(t, buildEndpoint(t, def), "1.0")

		assert.Equal(t, "NSPI API", doc.Get("info.title").String())
		assert.Equal(t, "1.0", doc.Get("info.version").String())
	})

	t.Run("will turn placeholders into required path parameters", func(t *testing.T) {
		doc := document(t, buildEndpoint(t, def), "1.0")

		op := doc.Get(`paths./api/1\.0/subscriptions/{arg1}.get`)
		require.True(t, op.Exists())

		params := op.Get("parameters").Array()
		require.Len(t, params, 1)
		assert.Equal(t, "arg1", params[0].Get("name").String())
		assert.Equal(t, "path", params[0].Get("in").String())
		assert.True(t, params[0].Get("required").Bool())

		renew := doc.Get(`paths./api/1\.0/subscriptions/{arg1}/renew.post`)
		assert.True(t, renew.Exists())
	})

	t.Run("will keep the first of two routes documented at the same path", func(t *testing.T) {
		doc := document(t, buildEndpoint(t, def), "1.0")

		op := doc.Get(`paths./api/1\.0/subscriptions/{arg1}.get`)
		assert.Equal(t, "get_subscriptions_load", op.Get("operationId").String())
	})

	t.Run("will use the route summary", func(t *testing.T) {
		doc := document(t, buildEndpoint(t, def), "1.0")

		op := doc.Get(`paths./api/1\.0/subscriptions.get`)
		assert.Equal(t, "List subscriptions", op.Get("summary").String())
	})

	t.Run("will document envelopes in every response format", func(t *testing.T) {
		doc := document(t, buildEndpoint(t, def), "1.0")

		ok := doc.Get(`paths./api/1\.0/subscriptions.get.responses.200.content`)
		assert.True(t, ok.Get("application/json").Exists())
		assert.True(t, ok.Get("application/yaml").Exists())

		notFound := doc.Get(`paths./api/1\.0/subscriptions.get.responses.404`)
		assert.True(t, notFound.Exists())
	})

	t.Run("will add a bearer security scheme for the jwt plugin", func(t *testing.T) {
		doc := document(t, buildEndpoint(t, def), "1.0")

		scheme := doc.Get("components.securitySchemes.bearer")
		assert.Equal(t, "http", scheme.Get("type").String())
		assert.Equal(t, "bearer", scheme.Get("scheme").String())
		assert.Equal(t, "JWT", scheme.Get("bearerFormat").String())

		security := doc.Get(`paths./api/1\.0/subscriptions.get.security.0.bearer`)
		assert.True(t, security.Exists())
	})

	t.Run("will omit the version segment without the path plugin", func(t *testing.T) {
		d := def
		d.Auth = nil
		d.Version = []endpoint.PluginConfig{{Name: "query"}}

		doc := document(t, buildEndpoint(t, d), "1.0")

		assert.True(t, doc.Get("paths./api/subscriptions.get").Exists())
		assert.False(t, doc.Get("components.securitySchemes.bearer").Exists())
	})

	t.Run("will honour the path plugin prefix", func(t *testing.T) {
		d := def
		d.Version = []endpoint.PluginConfig{{Name: "path", Config: map[string]any{"prefix": "v"}}}

		doc := document(t, buildEndpoint(t, d), "1.0")

		assert.True(t, doc.Get(`paths./api/v1\.0/subscriptions.get`).Exists())
	})

	t.Run("will return an error for an undeclared version", func(t *testing.T) {
		_, err := Document(buildEndpoint(t, def), "9.9")

		var verr restrouter.VersionNotFoundError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "9.9", verr.Version)
	})
}
