// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/auth"
	"github.com/z5labs/restrouter/auth/jwtauth"
	"github.com/z5labs/restrouter/format"
	"github.com/z5labs/restrouter/route"
	"github.com/z5labs/restrouter/version"
	"golang.org/x/sync/errgroup"
)

// BuildOptions represents configurable values for [Build].
type BuildOptions struct {
	routers        map[string]route.Router
	classes        map[string]*route.Class
	funcs          route.Funcs
	authPlugins    map[string]auth.Factory
	versionPlugins map[string]version.Factory
	alterers       []Alterer
	formats        *format.Set
	log            *slog.Logger
	reserved       []string
}

// BuildOption sets values on [BuildOptions].
type BuildOption interface {
	ApplyBuildOption(*BuildOptions)
}

type buildOptionFunc func(*BuildOptions)

func (f buildOptionFunc) ApplyBuildOption(bo *BuildOptions) {
	f(bo)
}

// WithRouter registers a router under name. Endpoint versions reference it
// by that name.
func WithRouter(name string, r route.Router) BuildOption {
	return buildOptionFunc(func(bo *BuildOptions) {
		bo.routers[name] = r
	})
}

// WithClass registers an endpoint class under its name.
func WithClass(c *route.Class) BuildOption {
	return buildOptionFunc(func(bo *BuildOptions) {
		bo.classes[c.Name()] = c
	})
}

// WithLoader registers a free loader function, referenced as "%name".
func WithLoader(name string, f route.LoaderFunc) BuildOption {
	return buildOptionFunc(func(bo *BuildOptions) {
		bo.funcs.Loaders[name] = f
	})
}

// WithPageCallback registers a free page callback.
func WithPageCallback(name string, f route.PageFunc) BuildOption {
	return buildOptionFunc(func(bo *BuildOptions) {
		bo.funcs.Pages[name] = f
	})
}

// WithAccessCallback registers a free access callback.
func WithAccessCallback(name string, f route.AccessFunc) BuildOption {
	return buildOptionFunc(func(bo *BuildOptions) {
		bo.funcs.Access[name] = f
	})
}

// WithAuthPlugin registers an auth plugin. The "jwt" plugin is
// registered by default.
func WithAuthPlugin(name string, f auth.Factory) BuildOption {
	return buildOptionFunc(func(bo *BuildOptions) {
		bo.authPlugins[name] = f
	})
}

// WithVersionPlugin registers a version plugin. The "path", "query"
// and "header" plugins are registered by default.
func WithVersionPlugin(name string, f version.Factory) BuildOption {
	return buildOptionFunc(func(bo *BuildOptions) {
		bo.versionPlugins[name] = f
	})
}

// WithAlterer appends an [Alterer]. Alterers run in the order they are given.
func WithAlterer(a Alterer) BuildOption {
	return buildOptionFunc(func(bo *BuildOptions) {
		bo.alterers = append(bo.alterers, a)
	})
}

// WithFormats sets the formats endpoints may declare. Defaults to [format.Default].
func WithFormats(s *format.Set) BuildOption {
	return buildOptionFunc(func(bo *BuildOptions) {
		bo.formats = s
	})
}

// WithLogger sets the logger used while building.
func WithLogger(log *slog.Logger) BuildOption {
	return buildOptionFunc(func(bo *BuildOptions) {
		bo.log = log
	})
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// WithReservedPaths rejects every endpoint whose path is, or lies under,
// one of paths. Use it for prefixes served ahead of the endpoints.
func WithReservedPaths(paths ...string) BuildOption {
	return buildOptionFunc(func(bo *BuildOptions) {
		for _, p := range paths {
			bo.reserved = append(bo.reserved, normalizePath(p))
		}
	})
}

// Build gathers the definitions of every provider and returns the
// resulting [Registry].
//
// Providers are called concurrently but merged in the order given, so a
// later provider replaces a definition with the same machine name.
func Build(ctx context.Context, providers []Provider, opts ...BuildOption) (*Registry, error) {
	bo := &BuildOptions{
		routers: map[string]route.Router{},
		classes: map[string]*route.Class{},
		funcs: route.Funcs{
			Loaders: map[string]route.LoaderFunc{},
			Pages:   map[string]route.PageFunc{},
			Access:  map[string]route.AccessFunc{},
		},
		authPlugins: map[string]auth.Factory{
			jwtauth.Name: jwtauth.New,
		},
		versionPlugins: version.Builtins(),
		formats:        format.Default(),
		log:            restrouter.Logger("endpoint"),
	}
	for _, opt := range opts {
		opt.ApplyBuildOption(bo)
	}

	gathered, err := gather(ctx, providers)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]*Definition)
	for _, defs := range gathered {
		for name, def := range defs {
			def := def.clone()
			merged[name] = &def
		}
	}

	for _, a := range bo.alterers {
		a.AlterEndpoints(merged)
	}

	err = checkPaths(merged)
	if err != nil {
		return nil, err
	}

	err = checkReserved(merged, bo.reserved)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(merged))
	for name, def := range merged {
		if def == nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	r := &Registry{
		byName: make(map[string]*Endpoint, len(names)),
	}
	for _, name := range names {
		ep, err := bo.instantiate(name, *merged[name])
		if err != nil {
			return nil, InvalidDefinitionError{Endpoint: name, Cause: err}
		}
		r.byName[name] = ep
		r.byPath = append(r.byPath, ep)
	}

	// Longest paths first so the first prefix match is the longest one.
	sort.SliceStable(r.byPath, func(i, j int) bool {
		return len(r.byPath[i].path) > len(r.byPath[j].path)
	})

	bo.log.InfoContext(ctx, "built endpoint registry", slog.Int("endpoints", len(names)))
	return r, nil
}

func gather(ctx context.Context, providers []Provider) ([]map[string]Definition, error) {
	results := make([]map[string]Definition, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		g.Go(func() error {
			defs, err := p.Endpoints(gctx)
			if err != nil {
				return ProviderError{Index: i, Cause: err}
			}
			results[i] = defs
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}
	return results, nil
}

func checkPaths(defs map[string]*Definition) error {
	byPath := make(map[string][]string)
	for name, def := range defs {
		if def == nil {
			continue
		}
		p := normalizePath(def.Path)
		byPath[p] = append(byPath[p], name)
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		names := byPath[p]
		if len(names) < 2 {
			continue
		}
		sort.Strings(names)
		return DuplicatePathError{Path: p, Endpoints: names}
	}
	return nil
}

func checkReserved(defs map[string]*Definition, reserved []string) error {
	names := make([]string, 0, len(defs))
	for name, def := range defs {
		if def == nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := normalizePath(defs[name].Path)
		for _, r := range reserved {
			if _, ok := hasSegmentPrefix(p, r); ok {
				return ReservedPathError{Endpoint: name, Path: p, Reserved: r}
			}
		}
	}
	return nil
}

func (bo *BuildOptions) instantiate(name string, def Definition) (*Endpoint, error) {
	def.Path = normalizePath(def.Path)
	if len(def.RequestFormats) == 0 {
		def.RequestFormats = []string{"json"}
	}
	if len(def.ResponseFormats) == 0 {
		def.ResponseFormats = []string{"json"}
	}

	err := validate.Struct(def)
	if err != nil {
		return nil, err
	}

	if def.DefaultVersion != "" {
		if _, ok := def.Versions[def.DefaultVersion]; !ok {
			return nil, UndeclaredVersionError{Version: def.DefaultVersion}
		}
	}

	err = bo.checkFormats(def)
	if err != nil {
		return nil, err
	}

	ep := &Endpoint{
		name:     name,
		path:     def.Path,
		def:      def,
		versions: def.VersionLabels(),
		tables:   make(map[string]*route.Table, len(def.Versions)),
	}

	for _, label := range ep.versions {
		v := def.Versions[label]

		router, ok := bo.routers[v.Router]
		if !ok {
			return nil, UnregisteredError{Kind: "router", Name: v.Router}
		}

		var class *route.Class
		if v.Class != "" {
			class, ok = bo.classes[v.Class]
			if !ok {
				return nil, UnregisteredError{Kind: "class", Name: v.Class}
			}
		}

		table, err := route.Compile(router, class, bo.funcs)
		if err != nil {
			return nil, fmt.Errorf("version %s: %w", label, err)
		}
		ep.tables[label] = table
	}

	for _, pc := range def.Version {
		factory, ok := bo.versionPlugins[pc.Name]
		if !ok {
			return nil, UnregisteredError{Kind: "version plugin", Name: pc.Name}
		}
		d, err := factory(version.Config(pc.Config))
		if err != nil {
			return nil, err
		}
		ep.detectors = append(ep.detectors, d)
	}

	for _, pc := range def.Auth {
		factory, ok := bo.authPlugins[pc.Name]
		if !ok {
			return nil, UnregisteredError{Kind: "auth plugin", Name: pc.Name}
		}
		a, err := factory(auth.Config(pc.Config))
		if err != nil {
			return nil, err
		}
		ep.auth = append(ep.auth, auth.Step{Name: pc.Name, Authenticator: a})
	}
	return ep, nil
}

func (bo *BuildOptions) checkFormats(def Definition) error {
	var errs []error
	for _, name := range def.RequestFormats {
		f, ok := bo.formats.Get(name)
		if !ok || f.Decoder == nil {
			errs = append(errs, UnregisteredError{Kind: "request format", Name: name})
		}
	}
	for _, name := range def.ResponseFormats {
		f, ok := bo.formats.Get(name)
		if !ok || f.Encoder == nil {
			errs = append(errs, UnregisteredError{Kind: "response format", Name: name})
		}
	}
	return errors.Join(errs...)
}

func normalizePath(p string) string {
	return strings.Trim(p, "/")
}

func hasSegmentPrefix(path, prefix string) (string, bool) {
	if path == prefix {
		return "", true
	}
	rest, ok := strings.CutPrefix(path, prefix+"/")
	if !ok {
		return "", false
	}
	return rest, true
}
