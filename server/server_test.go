// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/z5labs/restrouter/config"
	"github.com/z5labs/restrouter/dispatch"
	"github.com/z5labs/restrouter/endpoint"
	"github.com/z5labs/restrouter/health"
	"github.com/z5labs/restrouter/route"
)

func hello(ctx context.Context, args route.Args) (any, error) {
	return map[string]any{"hello": args.String(0)}, nil
}

func registry(t *testing.T) *endpoint.Registry {
	t.Helper()

	def := endpoint.Definition{
		Name: "Greeter",
		Path: "api",
		Versions: map[string]endpoint.Version{
			"1.0": {Router: "greeter"},
		},
		DefaultVersion: "1.0",
		Version:        []endpoint.PluginConfig{{Name: "path"}},
	}

	r, err := endpoint.Build(
		context.Background(),
		[]endpoint.Provider{endpoint.Static(map[string]endpoint.Definition{"greeter": def})},
		endpoint.WithRouter("greeter", route.RouterFunc(func() []route.Definition {
			return []route.Definition{
				{Method: http.MethodGet, Path: "hello/%", PageCallback: "hello", PageArguments: []int{1}},
			}
		})),
		endpoint.WithPageCallback("hello", hello),
	)
	require.Nil(t, err)
	return r
}

func get(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHandler(t *testing.T) {
	t.Run("will report liveness", func(t *testing.T) {
		h := Handler(dispatch.New(registry(t)))

		w := get(t, h, http.MethodGet, "/health/liveness")

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("will report a custom liveness monitor", func(t *testing.T) {
		var dead health.Binary
		h := Handler(dispatch.New(registry(t)), Liveness(&dead))

		w := get(t, h, http.MethodGet, "/health/liveness")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("will report ready once the dispatcher has a registry", func(t *testing.T) {
		d := dispatch.New(nil)
		h := Handler(d)

		w := get(t, h, http.MethodGet, "/health/readiness")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		d.Swap(registry(t))

		w = get(t, h, http.MethodGet, "/health/readiness")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("will combine the readiness monitor with the registry check", func(t *testing.T) {
		var ready health.Binary
		h := Handler(dispatch.New(registry(t)), Readiness(&ready))

		w := get(t, h, http.MethodGet, "/health/readiness")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		ready.MarkHealthy()

		w = get(t, h, http.MethodGet, "/health/readiness")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("will dispatch every other request", func(t *testing.T) {
		h := Handler(dispatch.New(registry(t)))

		w := get(t, h, http.MethodGet, "/api/1.0/hello/world")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "world", gjson.GetBytes(w.Body.Bytes(), "data.hello").String())
	})

	t.Run("will dispatch requests to health paths with other methods", func(t *testing.T) {
		h := Handler(dispatch.New(registry(t)))

		w := get(t, h, http.MethodPost, "/health/liveness")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, int64(http.StatusNotFound), gjson.GetBytes(w.Body.Bytes(), "status").Int())
	})

	t.Run("will apply middleware", func(t *testing.T) {
		h := Handler(dispatch.New(registry(t)), Middleware(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Served-By", "restrouter")
				next.ServeHTTP(w, r)
			})
		}))

		w := get(t, h, http.MethodGet, "/api/1.0/hello/world")

		assert.Equal(t, "restrouter", w.Header().Get("X-Served-By"))
	})
}

func TestReservedPaths(t *testing.T) {
	t.Run("will keep endpoints away from the paths the handler serves", func(t *testing.T) {
		for _, path := range []string{"/health/liveness", "/openapi/greeter"} {
			def := endpoint.Definition{
				Path: path,
				Versions: map[string]endpoint.Version{
					"1.0": {Router: "greeter"},
				},
				DefaultVersion: "1.0",
				Version:        []endpoint.PluginConfig{{Name: "path"}},
			}

			_, err := endpoint.Build(
				context.Background(),
				[]endpoint.Provider{endpoint.Static(map[string]endpoint.Definition{"shadowed": def})},
				endpoint.WithRouter("greeter", route.RouterFunc(func() []route.Definition {
					return []route.Definition{
						{Method: http.MethodGet, Path: "hello/%", PageCallback: "hello", PageArguments: []int{1}},
					}
				})),
				endpoint.WithPageCallback("hello", hello),
				endpoint.WithReservedPaths(ReservedPaths()...),
			)

			var rerr endpoint.ReservedPathError
			assert.True(t, errors.As(err, &rerr), path)
		}
	})
}

func TestHandler_OpenAPI(t *testing.T) {
	t.Run("will serve the document of an endpoint version", func(t *testing.T) {
		h := Handler(dispatch.New(registry(t)))

		w := get(t, h, http.MethodGet, "/openapi/greeter/1.0.json")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var doc map[string]any
		require.Nil(t, json.Unmarshal(w.Body.Bytes(), &doc))
		assert.True(t, gjson.GetBytes(w.Body.Bytes(), `paths./api/1\.0/hello/{arg1}.get`).Exists())
	})

	t.Run("will serve documents of a swapped registry", func(t *testing.T) {
		d := dispatch.New(registry(t))
		h := Handler(d)

		w := get(t, h, http.MethodGet, "/openapi/greeter/1.0.json")
		require.Equal(t, http.StatusOK, w.Code)

		d.Swap(&endpoint.Registry{})

		w = get(t, h, http.MethodGet, "/openapi/greeter/1.0.json")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	testCases := []struct {
		Name   string
		Target string
	}{
		{Name: "an unknown endpoint", Target: "/openapi/other/1.0.json"},
		{Name: "an undeclared version", Target: "/openapi/greeter/9.0.json"},
		{Name: "a document which is not json", Target: "/openapi/greeter/1.0.yaml"},
	}

	for _, testCase := range testCases {
		t.Run("will return not found for "+testCase.Name, func(t *testing.T) {
			h := Handler(dispatch.New(registry(t)))

			w := get(t, h, http.MethodGet, testCase.Target)

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, int64(http.StatusNotFound), gjson.GetBytes(w.Body.Bytes(), "status").Int())
		})
	}
}

func TestApp_Run(t *testing.T) {
	t.Run("will serve until the context is cancelled", func(t *testing.T) {
		ls, err := net.Listen("tcp", "127.0.0.1:0")
		require.Nil(t, err)

		a := NewApp(ls, Handler(dispatch.New(registry(t))), config.Default().Server)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- a.Run(ctx)
		}()

		resp, err := http.Get("http://" + a.Addr().String() + "/health/liveness")
		require.Nil(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		cancel()

		select {
		case err := <-errCh:
			assert.Nil(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("app did not shut down")
		}
	})

	t.Run("will return an error if serving fails", func(t *testing.T) {
		ls, err := net.Listen("tcp", "127.0.0.1:0")
		require.Nil(t, err)
		require.Nil(t, ls.Close())

		a := NewApp(ls, http.NotFoundHandler(), config.Default().Server)

		err = a.Run(context.Background())

		var opErr *net.OpError
		assert.True(t, errors.As(err, &opErr))
	})
}

func TestBuild(t *testing.T) {
	t.Run("will listen on the configured address", func(t *testing.T) {
		cfg := config.Default().Server
		cfg.Addr = "127.0.0.1:0"

		b := Build(cfg, buildHandler(http.NotFoundHandler()))

		a, err := b.Build(context.Background())
		require.Nil(t, err)
		defer a.ls.Close()

		assert.NotEmpty(t, a.Addr().String())
	})

	t.Run("will return the handler build error", func(t *testing.T) {
		buildErr := errors.New("no endpoints")

		b := Build(config.Default().Server, failingHandler(buildErr))

		_, err := b.Build(context.Background())
		assert.ErrorIs(t, err, buildErr)
	})
}

type handlerBuilder struct {
	h   http.Handler
	err error
}

func (b handlerBuilder) Build(ctx context.Context) (http.Handler, error) {
	return b.h, b.err
}

func buildHandler(h http.Handler) handlerBuilder {
	return handlerBuilder{h: h}
}

func failingHandler(err error) handlerBuilder {
	return handlerBuilder{err: err}
}
