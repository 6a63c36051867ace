// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
	"time"
)

// DefaultHookTimeout bounds the time all post-run hooks may take together.
const DefaultHookTimeout = 30 * time.Second

// HookFunc runs after the runtime returns.
type HookFunc func(context.Context) error

// HookRegistry collects post-run hooks while an application is built.
type HookRegistry struct {
	hooks   []HookFunc
	timeout time.Duration
}

// OnPostRun registers a hook. Hooks run in registration order and every
// hook runs even if the runtime or an earlier hook failed.
func (r *HookRegistry) OnPostRun(hook HookFunc) {
	r.hooks = append(r.hooks, hook)
}

// SetTimeout replaces [DefaultHookTimeout].
func (r *HookRegistry) SetTimeout(d time.Duration) {
	r.timeout = d
}

type hookRuntime struct {
	inner   Runtime
	hooks   []HookFunc
	timeout time.Duration
}

// Run runs the inner runtime and then every hook. Hooks receive a context
// which keeps the values of ctx but outlives its cancellation.
func (rt hookRuntime) Run(ctx context.Context) error {
	runErr := rt.inner.Run(ctx)

	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rt.timeout)
	defer cancel()

	errs := []error{runErr}
	for _, hook := range rt.hooks {
		errs = append(errs, hook(hookCtx))
	}
	return errors.Join(errs...)
}

// WithHooks wraps a build function with post-run hook support.
//
//	builder := app.WithHooks(func(ctx context.Context, h *app.HookRegistry) (*server.App, error) {
//	    shutdown, err := otel.Initialize(ctx, cfg.OTel)
//	    if err != nil {
//	        return nil, err
//	    }
//	    h.OnPostRun(app.HookFunc(shutdown))
//	    return server.NewApp(ls, handler, cfg.Server), nil
//	})
func WithHooks[T Runtime](f func(context.Context, *HookRegistry) (T, error)) Builder[Runtime] {
	return BuilderFunc[Runtime](func(ctx context.Context) (Runtime, error) {
		registry := &HookRegistry{
			timeout: DefaultHookTimeout,
		}

		inner, err := f(ctx, registry)
		if err != nil {
			return nil, err
		}

		return hookRuntime{
			inner:   inner,
			hooks:   registry.hooks,
			timeout: registry.timeout,
		}, nil
	})
}
