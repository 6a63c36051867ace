// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package dispatch runs requests through the endpoint pipeline:
//
//	lookup -> version -> auth -> request alteration -> route -> invoke
//
// Every stage fails fast and every failure is rendered as an error envelope.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/endpoint"
	"github.com/z5labs/restrouter/format"
	"github.com/z5labs/restrouter/request"
	"github.com/z5labs/restrouter/response"
	"github.com/z5labs/restrouter/route"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// RequestAlterer may rewrite the path or data of a request after
// version resolution and authentication, right before routing.
type RequestAlterer interface {
	AlterRequest(context.Context, *request.Request) error
}

// RequestAltererFunc is an adapter to allow the use of ordinary functions as [RequestAlterer]s.
type RequestAltererFunc func(context.Context, *request.Request) error

// AlterRequest implements the [RequestAlterer] interface.
func (f RequestAltererFunc) AlterRequest(ctx context.Context, req *request.Request) error {
	return f(ctx, req)
}

// Options represents configurable values for a [Dispatcher].
type Options struct {
	alterers       []RequestAlterer
	formats        *format.Set
	maxBodyBytes   int64
	logHandler     slog.Handler
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option sets values on [Options].
type Option interface {
	ApplyOption(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) ApplyOption(o *Options) {
	f(o)
}

// WithRequestAlterer appends a [RequestAlterer]. Alterers run in the order given.
func WithRequestAlterer(a RequestAlterer) Option {
	return optionFunc(func(o *Options) {
		o.alterers = append(o.alterers, a)
	})
}

// WithFormats sets the formats used for request decoding and response
// encoding. Defaults to [format.Default].
func WithFormats(s *format.Set) Option {
	return optionFunc(func(o *Options) {
		o.formats = s
	})
}

// WithMaxBodyBytes limits the size of request bodies. Defaults to 1MB.
// Zero or less disables the limit.
func WithMaxBodyBytes(n int64) Option {
	return optionFunc(func(o *Options) {
		o.maxBodyBytes = n
	})
}

// WithLogHandler sets the handler of the dispatcher logger.
func WithLogHandler(h slog.Handler) Option {
	return optionFunc(func(o *Options) {
		o.logHandler = h
	})
}

// WithTracerProvider sets the provider of the dispatcher tracer.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return optionFunc(func(o *Options) {
		o.tracerProvider = tp
	})
}

// WithMeterProvider sets the provider of the dispatcher meter.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return optionFunc(func(o *Options) {
		o.meterProvider = mp
	})
}

// Dispatcher dispatches requests to the endpoints of a [endpoint.Registry].
// It is safe for concurrent use.
type Dispatcher struct {
	registry atomic.Pointer[endpoint.Registry]

	alterers []RequestAlterer
	formats  *format.Set
	maxBody  int64
	tracer   trace.Tracer
	log      *slog.Logger
	requests metric.Int64Counter
}

// New initializes a [Dispatcher].
func New(r *endpoint.Registry, opts ...Option) *Dispatcher {
	o := &Options{
		formats:        format.Default(),
		maxBodyBytes:   1 << 20,
		logHandler:     restrouter.LogHandler("dispatch"),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt.ApplyOption(o)
	}

	log := slog.New(o.logHandler)

	requests, err := o.meterProvider.Meter("dispatch").Int64Counter(
		"restrouter.dispatch.requests",
		metric.WithDescription("Number of dispatched requests."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		log.Error("failed to create request counter", slog.Any("error", err))
	}

	d := &Dispatcher{
		alterers: o.alterers,
		formats:  o.formats,
		maxBody:  o.maxBodyBytes,
		tracer:   o.tracerProvider.Tracer("dispatch"),
		log:      log,
		requests: requests,
	}
	d.registry.Store(r)
	return d
}

// Registry returns the registry currently used for dispatching.
func (d *Dispatcher) Registry() *endpoint.Registry {
	return d.registry.Load()
}

// Swap atomically replaces the registry and returns the previous one.
// Requests already in flight finish against the registry they started with.
func (d *Dispatcher) Swap(r *endpoint.Registry) *endpoint.Registry {
	return d.registry.Swap(r)
}

// ServeHTTP implements the [http.Handler] interface.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := request.FromHTTP(r, d.maxBody)
	if err != nil {
		d.log.ErrorContext(ctx, "failed to read request", slog.Any("error", err))
		d.write(ctx, w, format.JSON(), response.FromError(err, false))
		return
	}
	w.Header().Set("X-Request-Id", req.ID.String())

	env := d.Dispatch(ctx, req)

	f, ok := d.formats.Get(req.ResponseFormat)
	if !ok || f.Encoder == nil {
		f = format.JSON()
	}
	d.write(ctx, w, f, env)
}

func (d *Dispatcher) write(ctx context.Context, w http.ResponseWriter, f format.Format, env response.Envelope) {
	err := response.Write(w, f, env)
	if err == nil {
		return
	}
	d.log.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
}

// Dispatch runs req through the pipeline and returns the envelope to
// render. The negotiated response format is recorded on req.
func (d *Dispatcher) Dispatch(ctx context.Context, req *request.Request) response.Envelope {
	spanCtx, span := d.tracer.Start(ctx, "Dispatcher.Dispatch", trace.WithAttributes(
		attribute.String("request.id", req.ID.String()),
		attribute.String("http.request.method", req.Method),
	))
	defer span.End()

	ep, result, err := d.dispatch(spanCtx, req)
	var env response.Envelope
	switch {
	case err != nil:
		structured := ep != nil && ep.StructuredErrors()
		env = response.FromError(err, structured)

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.log.ErrorContext(
			spanCtx,
			"sending error response",
			slog.String("request_id", req.ID.String()),
			slog.String("endpoint", req.Endpoint),
			slog.String("version", req.Version),
			slog.Int("status", env.StatusCode()),
			slog.Any("error", err),
		)
	default:
		e, ok := result.(response.Envelope)
		if !ok {
			e = response.OK(result)
		}
		env = response.Normalize(e)
	}

	span.SetAttributes(
		attribute.String("restrouter.endpoint", req.Endpoint),
		attribute.String("restrouter.version", req.Version),
		attribute.Int("http.response.status_code", env.StatusCode()),
	)
	if d.requests != nil {
		d.requests.Add(spanCtx, 1, metric.WithAttributes(
			attribute.String("endpoint", req.Endpoint),
			attribute.String("version", req.Version),
			attribute.String("status", strconv.Itoa(env.StatusCode())),
		))
	}
	return env
}

func (d *Dispatcher) dispatch(ctx context.Context, req *request.Request) (ep *endpoint.Endpoint, result any, err error) {
	defer restrouter.Recover(&err)

	err = d.stage(ctx, "dispatch.lookup", func(ctx context.Context) error {
		reg := d.Registry()
		if reg == nil {
			return restrouter.UnknownEndpointError{Path: req.Path}
		}

		var rest string
		ep, rest, err = reg.Lookup(req.Path)
		if err != nil {
			return err
		}
		req.Endpoint = ep.Name()
		req.SetPath(rest)
		return d.negotiate(ep, req)
	})
	if err != nil {
		return ep, nil, err
	}

	err = d.stage(ctx, "dispatch.version", func(ctx context.Context) error {
		label, err := ep.ResolveVersion(ctx, req)
		if err != nil {
			return err
		}
		req.Version = label
		return nil
	})
	if err != nil {
		return ep, nil, err
	}

	err = d.stage(ctx, "dispatch.auth", func(ctx context.Context) error {
		return ep.Authenticate(ctx, req)
	})
	if err != nil {
		return ep, nil, err
	}

	for _, a := range d.alterers {
		err = a.AlterRequest(ctx, req)
		if err != nil {
			return ep, nil, err
		}
	}

	ctx = request.NewContext(ctx, req)

	var (
		obj   any
		match *route.Match
	)
	err = d.stage(ctx, "dispatch.route", func(ctx context.Context) error {
		table, ok := ep.Table(req.Version)
		if !ok {
			return restrouter.VersionNotFoundError{Endpoint: ep.Name(), Version: req.Version}
		}
		if class := table.Class(); class != nil {
			obj = class.New(req)
		}

		match, err = table.Resolve(ctx, obj, req)
		return err
	})
	if err != nil {
		return ep, nil, err
	}

	err = d.stage(ctx, "dispatch.invoke", func(ctx context.Context) error {
		result, err = route.Invoke(ctx, match, obj)
		return err
	})
	return ep, result, err
}

// negotiate selects the response and request formats and decodes the body.
func (d *Dispatcher) negotiate(ep *endpoint.Endpoint, req *request.Request) error {
	rf, err := d.formats.Negotiate(req.Header.Get("Accept"), ep.ResponseFormats())
	if err != nil {
		return err
	}
	req.ResponseFormat = rf.Name

	if len(req.Body()) == 0 {
		return nil
	}

	f, err := d.formats.ForContentType(req.Header.Get("Content-Type"), ep.RequestFormats())
	if err != nil {
		return err
	}
	req.RequestFormat = f.Name
	return req.Decode(f.Decoder)
}

func (d *Dispatcher) stage(ctx context.Context, name string, f func(context.Context) error) error {
	spanCtx, span := d.tracer.Start(ctx, name)
	defer span.End()

	err := f(spanCtx)
	if err == nil {
		return nil
	}

	var sc restrouter.StatusCoder
	if !errors.As(err, &sc) || sc.StatusCode() >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, err.Error())
	}
	span.RecordError(err)
	return err
}
