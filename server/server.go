// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/app"
	"github.com/z5labs/restrouter/config"

	"github.com/sourcegraph/conc/pool"
)

// DefaultShutdownTimeout bounds the graceful shutdown of an [App].
const DefaultShutdownTimeout = 10 * time.Second

// AppOptions represents configurable values for an [App].
type AppOptions struct {
	errorLogHandler slog.Handler
	shutdownTimeout time.Duration
}

// AppOption sets values on [AppOptions].
type AppOption interface {
	ApplyAppOption(*AppOptions)
}

type appOptionFunc func(*AppOptions)

func (f appOptionFunc) ApplyAppOption(ao *AppOptions) {
	f(ao)
}

// ErrorLog sets the handler receiving errors of the underlying [http.Server].
func ErrorLog(h slog.Handler) AppOption {
	return appOptionFunc(func(ao *AppOptions) {
		ao.errorLogHandler = h
	})
}

// ShutdownTimeout replaces [DefaultShutdownTimeout].
func ShutdownTimeout(d time.Duration) AppOption {
	return appOptionFunc(func(ao *AppOptions) {
		ao.shutdownTimeout = d
	})
}

// App serves a handler until its context is cancelled.
type App struct {
	ls              net.Listener
	srv             *http.Server
	shutdownTimeout time.Duration
}

// NewApp initializes an [App] serving h on ls.
func NewApp(ls net.Listener, h http.Handler, cfg config.Server, opts ...AppOption) *App {
	ao := &AppOptions{
		errorLogHandler: restrouter.LogHandler("server"),
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt.ApplyAppOption(ao)
	}

	return &App{
		ls: ls,
		srv: &http.Server{
			Handler:                      h,
			DisableGeneralOptionsHandler: cfg.DisableGeneralOptionsHandler,
			ReadTimeout:                  cfg.ReadTimeout,
			ReadHeaderTimeout:            cfg.ReadHeaderTimeout,
			WriteTimeout:                 cfg.WriteTimeout,
			IdleTimeout:                  cfg.IdleTimeout,
			MaxHeaderBytes:               cfg.MaxHeaderBytes,
			ErrorLog:                     slog.NewLogLogger(ao.errorLogHandler, slog.LevelError),
		},
		shutdownTimeout: ao.shutdownTimeout,
	}
}

// Addr returns the address the app listens on.
func (a *App) Addr() net.Addr {
	return a.ls.Addr()
}

// Run implements the [app.Runtime] interface. It serves until ctx is
// cancelled and then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		return a.srv.Serve(a.ls)
	})

	p.Go(func(ctx context.Context) error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
		defer cancel()
		return a.srv.Shutdown(shutdownCtx)
	})

	err := p.Wait()
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Build returns a builder listening on cfg.Addr and serving the handler
// produced by b.
func Build(cfg config.Server, b app.Builder[http.Handler], opts ...AppOption) app.Builder[*App] {
	return app.Bind(b, func(h http.Handler) app.Builder[*App] {
		return app.BuilderFunc[*App](func(ctx context.Context) (*App, error) {
			var lc net.ListenConfig
			ls, err := lc.Listen(ctx, "tcp", cfg.Addr)
			if err != nil {
				return nil, err
			}
			return NewApp(ls, h, cfg, opts...), nil
		})
	})
}
