// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/z5labs/restrouter/app"
	"github.com/z5labs/restrouter/dispatch"
	"github.com/z5labs/restrouter/example/nspi"
	"github.com/z5labs/restrouter/internal/otel"
	"github.com/z5labs/restrouter/server"

	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

func serve(ctx context.Context, opts *rootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	return app.Run(ctx, app.WithHooks(func(ctx context.Context, hooks *app.HookRegistry) (*server.App, error) {
		shutdown, err := otel.Initialize(ctx, cfg.OTel)
		if err != nil {
			return nil, err
		}

		reg, err := buildRegistry(ctx, cfg, opts.secret, nspi.NewStore())
		if err != nil {
			return nil, errors.Join(err, shutdown(context.WithoutCancel(ctx)))
		}

		d := dispatch.New(reg, dispatch.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
		handler := app.BuilderFunc[http.Handler](func(ctx context.Context) (http.Handler, error) {
			return server.Handler(d), nil
		})

		a, err := server.Build(cfg.Server, handler).Build(ctx)
		if err != nil {
			return nil, errors.Join(err, shutdown(context.WithoutCancel(ctx)))
		}

		hooks.OnPostRun(app.HookFunc(shutdown))
		return a, nil
	}))
}
