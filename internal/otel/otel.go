// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otel installs the global OpenTelemetry trace, meter and logger
// providers used by every restrouter package.
package otel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/z5labs/restrouter/concurrent"
	"github.com/z5labs/restrouter/config"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ShutdownFunc flushes and stops the providers installed by [Initialize].
type ShutdownFunc func(context.Context) error

// Initialize installs the global providers described by cfg. The returned
// [ShutdownFunc] must be called once the application stops.
func Initialize(ctx context.Context, cfg config.OTel) (ShutdownFunc, error) {
	r, err := detectResource(ctx, cfg.Resource)
	if err != nil {
		return nil, err
	}

	conns := concurrent.NewCache[string, *grpc.ClientConn]()

	initers := []initializer{
		traceProviderInitializer{
			cfg:   cfg.Trace,
			r:     r,
			conns: conns,
		},
		meterProviderInitializer{
			cfg:   cfg.Metric,
			r:     r,
			conns: conns,
		},
		logProviderInitializer{
			cfg:   cfg.Log,
			r:     r,
			conns: conns,
		},
	}

	var shutdowns []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, f := range shutdowns {
			errs = append(errs, f(ctx))
		}
		for _, cc := range conns.Values() {
			errs = append(errs, cc.Close())
		}
		return errors.Join(errs...)
	}

	for _, initer := range initers {
		f, err := initer.Init(ctx)
		if err != nil {
			return nil, errors.Join(err, shutdown(ctx))
		}
		shutdowns = append(shutdowns, f)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return shutdown, nil
}

func clientConn(cfg config.OTLP, conns *concurrent.Cache[string, *grpc.ClientConn]) (*grpc.ClientConn, error) {
	return conns.GetOr(cfg.Target, func() (*grpc.ClientConn, error) {
		return grpc.NewClient(
			cfg.Target,
			// TODO: support secure transport credentials
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	})
}

type initializer interface {
	Init(context.Context) (ShutdownFunc, error)
}

// UnknownOTLPConnTypeError is returned for an OTLP connection type
// other than http or grpc.
type UnknownOTLPConnTypeError struct {
	Type config.OTLPConnType
}

func (e UnknownOTLPConnTypeError) Error() string {
	return fmt.Sprintf("unknown otlp conn type: %q", e.Type)
}

// UnknownExporterTypeError is returned for an unsupported exporter type.
type UnknownExporterTypeError struct {
	Signal string
	Type   string
}

func (e UnknownExporterTypeError) Error() string {
	return fmt.Sprintf("unknown %s exporter type: %q", e.Signal, e.Type)
}

type traceProviderInitializer struct {
	cfg   config.Trace
	r     *resource.Resource
	conns *concurrent.Cache[string, *grpc.ClientConn]
}

func (tpi traceProviderInitializer) Init(ctx context.Context) (ShutdownFunc, error) {
	opts := []trace.TracerProviderOption{
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(tpi.cfg.Sampling.Ratio))),
		trace.WithResource(tpi.r),
	}

	exp, err := initSpanExporter(ctx, tpi.cfg.Exporter, tpi.conns)
	if err != nil {
		return nil, err
	}
	if exp != nil {
		sp, err := initSpanProcessor(tpi.cfg.Processor, exp)
		if err != nil {
			return nil, err
		}
		opts = append(opts, trace.WithSpanProcessor(sp))
	}

	tp := trace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// initSpanExporter returns a nil exporter if spans are not exported.
func initSpanExporter(ctx context.Context, cfg config.SpanExporter, conns *concurrent.Cache[string, *grpc.ClientConn]) (trace.SpanExporter, error) {
	switch cfg.Type {
	case config.NoSpanExporterType:
		return nil, nil
	case config.OTLPSpanExporterType:
		switch cfg.OTLP.Type {
		case config.OTLPGRPC:
			cc, err := clientConn(cfg.OTLP, conns)
			if err != nil {
				return nil, err
			}

			return otlptracegrpc.New(
				ctx,
				otlptracegrpc.WithGRPCConn(cc),
			)
		case config.OTLPHTTP:
			return otlptracehttp.New(
				ctx,
				otlptracehttp.WithEndpoint(cfg.OTLP.Target),
			)
		default:
			return nil, UnknownOTLPConnTypeError{
				Type: cfg.OTLP.Type,
			}
		}
	default:
		return nil, UnknownExporterTypeError{Signal: "span", Type: string(cfg.Type)}
	}
}

// UnknownSpanProcessorTypeError is returned for an unsupported span processor type.
type UnknownSpanProcessorTypeError struct {
	Type config.SpanProcessorType
}

func (e UnknownSpanProcessorTypeError) Error() string {
	return fmt.Sprintf("unknown span processor type: %q", e.Type)
}

func initSpanProcessor(cfg config.SpanProcessor, exp trace.SpanExporter) (trace.SpanProcessor, error) {
	switch cfg.Type {
	case config.BatchSpanProcessorType:
		var opts []trace.BatchSpanProcessorOption
		if cfg.Batch.ExportInterval > 0 {
			opts = append(opts, trace.WithBatchTimeout(cfg.Batch.ExportInterval))
		}
		if cfg.Batch.MaxSize > 0 {
			opts = append(opts, trace.WithMaxExportBatchSize(cfg.Batch.MaxSize))
		}
		return trace.NewBatchSpanProcessor(exp, opts...), nil
	default:
		return nil, UnknownSpanProcessorTypeError{
			Type: cfg.Type,
		}
	}
}

type meterProviderInitializer struct {
	cfg   config.Metric
	r     *resource.Resource
	conns *concurrent.Cache[string, *grpc.ClientConn]
}

func (mpi meterProviderInitializer) Init(ctx context.Context) (ShutdownFunc, error) {
	opts := []metric.Option{
		metric.WithResource(mpi.r),
	}

	exp, err := initMetricExporter(ctx, mpi.cfg.Exporter, mpi.conns)
	if err != nil {
		return nil, err
	}
	if exp != nil {
		r, err := initMetricReader(mpi.cfg.Reader, exp)
		if err != nil {
			return nil, err
		}
		opts = append(opts, metric.WithReader(r))
	}

	mp := metric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)

	err = runtime.Start(
		runtime.WithMeterProvider(mp),
		runtime.WithMinimumReadMemStatsInterval(time.Second),
	)
	if err != nil {
		return nil, errors.Join(err, mp.Shutdown(ctx))
	}
	return mp.Shutdown, nil
}

// initMetricExporter returns a nil exporter if metrics are not exported.
func initMetricExporter(ctx context.Context, cfg config.MetricExporter, conns *concurrent.Cache[string, *grpc.ClientConn]) (metric.Exporter, error) {
	switch cfg.Type {
	case config.NoMetricExporterType:
		return nil, nil
	case config.OTLPMetricExporterType:
		switch cfg.OTLP.Type {
		case config.OTLPGRPC:
			cc, err := clientConn(cfg.OTLP, conns)
			if err != nil {
				return nil, err
			}

			return otlpmetricgrpc.New(
				ctx,
				otlpmetricgrpc.WithGRPCConn(cc),
			)
		case config.OTLPHTTP:
			return otlpmetrichttp.New(
				ctx,
				otlpmetrichttp.WithEndpoint(cfg.OTLP.Target),
			)
		default:
			return nil, UnknownOTLPConnTypeError{
				Type: cfg.OTLP.Type,
			}
		}
	default:
		return nil, UnknownExporterTypeError{Signal: "metric", Type: string(cfg.Type)}
	}
}

// UnknownMetricReaderTypeError is returned for an unsupported metric reader type.
type UnknownMetricReaderTypeError struct {
	Type config.MetricReaderType
}

func (e UnknownMetricReaderTypeError) Error() string {
	return fmt.Sprintf("unknown metric reader type: %q", e.Type)
}

func initMetricReader(cfg config.MetricReader, exp metric.Exporter) (metric.Reader, error) {
	switch cfg.Type {
	case config.PeriodicReaderType:
		opts := []metric.PeriodicReaderOption{
			metric.WithProducer(runtime.NewProducer()),
		}
		if cfg.Periodic.ExportInterval > 0 {
			opts = append(opts, metric.WithInterval(cfg.Periodic.ExportInterval))
		}
		return metric.NewPeriodicReader(exp, opts...), nil
	default:
		return nil, UnknownMetricReaderTypeError{
			Type: cfg.Type,
		}
	}
}

type logProviderInitializer struct {
	cfg   config.Log
	r     *resource.Resource
	conns *concurrent.Cache[string, *grpc.ClientConn]
}

func (lpi logProviderInitializer) Init(ctx context.Context) (ShutdownFunc, error) {
	exp, err := initLogExporter(ctx, lpi.cfg.Exporter, lpi.conns)
	if err != nil {
		return nil, err
	}

	lp, err := initLogProcessor(lpi.cfg.Processor, exp)
	if err != nil {
		return nil, err
	}

	provider := log.NewLoggerProvider(
		log.WithProcessor(newFilteringProcessor(lp, lpi.cfg.Levels)),
		log.WithResource(lpi.r),
	)
	global.SetLoggerProvider(provider)
	return provider.Shutdown, nil
}

func initLogExporter(ctx context.Context, cfg config.LogExporter, conns *concurrent.Cache[string, *grpc.ClientConn]) (log.Exporter, error) {
	switch cfg.Type {
	case config.StdoutLogExporterType:
		exp := &slogExporter{
			handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		}
		return exp, nil
	case config.OTLPLogExporterType:
		switch cfg.OTLP.Type {
		case config.OTLPGRPC:
			cc, err := clientConn(cfg.OTLP, conns)
			if err != nil {
				return nil, err
			}

			return otlploggrpc.New(
				ctx,
				otlploggrpc.WithGRPCConn(cc),
			)
		case config.OTLPHTTP:
			return otlploghttp.New(
				ctx,
				otlploghttp.WithEndpoint(cfg.OTLP.Target),
			)
		default:
			return nil, UnknownOTLPConnTypeError{
				Type: cfg.OTLP.Type,
			}
		}
	default:
		return nil, UnknownExporterTypeError{Signal: "log", Type: string(cfg.Type)}
	}
}

// UnknownLogProcessorTypeError is returned for an unsupported log processor type.
type UnknownLogProcessorTypeError struct {
	Type config.LogProcessorType
}

func (e UnknownLogProcessorTypeError) Error() string {
	return fmt.Sprintf("unknown log processor type: %q", e.Type)
}

func initLogProcessor(cfg config.LogProcessor, exp log.Exporter) (log.Processor, error) {
	switch cfg.Type {
	case config.SimpleLogProcessorType:
		return log.NewSimpleProcessor(exp), nil
	case config.BatchLogProcessorType:
		var opts []log.BatchProcessorOption
		if cfg.Batch.ExportInterval > 0 {
			opts = append(opts, log.WithExportInterval(cfg.Batch.ExportInterval))
		}
		if cfg.Batch.MaxSize > 0 {
			opts = append(opts, log.WithExportMaxBatchSize(cfg.Batch.MaxSize))
		}
		return log.NewBatchProcessor(exp, opts...), nil
	default:
		return nil, UnknownLogProcessorTypeError{
			Type: cfg.Type,
		}
	}
}
