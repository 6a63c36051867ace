// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package server exposes a [dispatch.Dispatcher] over HTTP.
//
// The handler built by [Handler] serves:
//   - Liveness at "/health/liveness"
//   - Readiness at "/health/readiness"
//   - OpenAPI documents at "/openapi/{endpoint}/{version}.json"
//   - every other request through the dispatcher
package server

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/concurrent"
	"github.com/z5labs/restrouter/dispatch"
	"github.com/z5labs/restrouter/endpoint"
	"github.com/z5labs/restrouter/format"
	"github.com/z5labs/restrouter/health"
	"github.com/z5labs/restrouter/openapi"
	"github.com/z5labs/restrouter/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HandlerOptions represents configurable values for [Handler].
type HandlerOptions struct {
	readiness  health.Monitor
	liveness   health.Monitor
	middleware []func(http.Handler) http.Handler
	logHandler slog.Handler
}

// HandlerOption sets values on [HandlerOptions].
type HandlerOption interface {
	ApplyHandlerOption(*HandlerOptions)
}

type handlerOptionFunc func(*HandlerOptions)

func (f handlerOptionFunc) ApplyHandlerOption(ho *HandlerOptions) {
	f(ho)
}

// Readiness adds m to the readiness check. The server is never ready
// before the dispatcher has a registry.
//
// See [Liveness, Readiness, and Startup Probes](https://kubernetes.io/docs/concepts/configuration/liveness-readiness-startup-probes/)
// for more details.
func Readiness(m health.Monitor) HandlerOption {
	return handlerOptionFunc(func(ho *HandlerOptions) {
		ho.readiness = m
	})
}

// Liveness sets the monitor reporting whether the process must be restarted.
// Defaults to always healthy.
func Liveness(m health.Monitor) HandlerOption {
	return handlerOptionFunc(func(ho *HandlerOptions) {
		ho.liveness = m
	})
}

// Middleware appends chi compatible middleware applied to every route.
func Middleware(mw ...func(http.Handler) http.Handler) HandlerOption {
	return handlerOptionFunc(func(ho *HandlerOptions) {
		ho.middleware = append(ho.middleware, mw...)
	})
}

// LogHandler sets the handler of the server logger.
func LogHandler(h slog.Handler) HandlerOption {
	return handlerOptionFunc(func(ho *HandlerOptions) {
		ho.logHandler = h
	})
}

// ReservedPaths returns the path prefixes [Handler] serves itself. Pass
// them to [endpoint.WithReservedPaths] so no endpoint is shadowed.
func ReservedPaths() []string {
	return []string{"health", "openapi"}
}

// Handler builds the HTTP front door of d.
//
// Requests under the prefixes returned by [ReservedPaths] may never reach
// the dispatcher, so endpoints must not be declared there.
func Handler(d *dispatch.Dispatcher, opts ...HandlerOption) http.Handler {
	var alive health.Binary
	alive.MarkHealthy()

	ho := &HandlerOptions{
		liveness:   &alive,
		logHandler: restrouter.LogHandler("server"),
	}
	for _, opt := range opts {
		opt.ApplyHandlerOption(ho)
	}

	readiness := health.And(health.Loaded(d.Registry))
	if ho.readiness != nil {
		readiness = append(readiness, ho.readiness)
	}

	m := chi.NewMux()
	m.Use(middleware.RealIP)
	m.Use(ho.middleware...)

	m.Get("/health/liveness", healthHandler(ho.liveness))
	m.Get("/health/readiness", healthHandler(readiness))
	m.Get("/openapi/{endpoint}/{file}", (&docServer{
		dispatcher: d,
		log:        slog.New(ho.logHandler),
	}).ServeHTTP)

	m.NotFound(d.ServeHTTP)
	m.MethodNotAllowed(d.ServeHTTP)

	return otelhttp.NewHandler(m, "restrouter")
}

func healthHandler(m health.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		healthy, err := m.Healthy(r.Context())
		if !healthy || err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

type docKey struct {
	endpoint string
	version  string
}

// docServer renders OpenAPI documents. Documents are cached until the
// dispatcher registry is swapped.
type docServer struct {
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger

	mu       sync.Mutex
	registry *endpoint.Registry
	docs     *concurrent.Cache[docKey, []byte]
}

func (s *docServer) cache(r *endpoint.Registry) *concurrent.Cache[docKey, []byte] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs == nil || s.registry != r {
		s.registry = r
		s.docs = concurrent.NewCache[docKey, []byte]()
	}
	return s.docs
}

func (s *docServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name := chi.URLParam(r, "endpoint")
	version, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".json")
	if !ok {
		s.writeError(w, r, restrouter.RouteNotFoundError{Method: r.Method, Path: r.URL.Path})
		return
	}

	reg := s.dispatcher.Registry()
	if reg == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	ep, ok := reg.Get(name)
	if !ok {
		s.writeError(w, r, restrouter.UnknownEndpointError{Path: name})
		return
	}

	b, err := s.cache(reg).GetOr(docKey{endpoint: name, version: version}, func() ([]byte, error) {
		spec, err := openapi.Document(ep, version)
		if err != nil {
			return nil, err
		}
		return json.Marshal(spec)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(b)
	if err == nil {
		return
	}
	s.log.ErrorContext(ctx, "failed to write openapi document", slog.Any("error", err))
}

func (s *docServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	env := response.FromError(err, false)
	if env.StatusCode() >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "failed to render openapi document", slog.Any("error", err))
	}

	err = response.Write(w, format.JSON(), env)
	if err == nil {
		return
	}
	s.log.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
}
