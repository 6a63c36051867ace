// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package version resolves the API version a request targets.
package version

import (
	"context"
	"mime"
	"slices"
	"strings"

	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/internal/pluginconfig"
	"github.com/z5labs/restrouter/request"
)

// Config is the configuration of a version plugin as declared by an endpoint.
type Config map[string]any

// Detector inspects a request and may produce a version label.
// Returning false means the detector has no opinion.
//
// versions lists the labels declared by the endpoint. Detectors may
// rewrite the request, e.g. to strip a consumed path segment.
type Detector interface {
	DetectVersion(ctx context.Context, req *request.Request, versions []string) (string, bool)
}

// DetectorFunc is an adapter to allow the use of ordinary functions as [Detector]s.
type DetectorFunc func(context.Context, *request.Request, []string) (string, bool)

// DetectVersion implements the [Detector] interface.
func (f DetectorFunc) DetectVersion(ctx context.Context, req *request.Request, versions []string) (string, bool) {
	return f(ctx, req, versions)
}

// Factory creates a [Detector] from its configuration.
type Factory func(Config) (Detector, error)

// Builtins returns the factories of the version plugins provided by
// this package keyed by plugin name.
func Builtins() map[string]Factory {
	return map[string]Factory{
		"path":   Path,
		"query":  Query,
		"header": Header,
	}
}

// Resolve runs detectors in order and returns the first label produced.
// If no detector has an opinion, defaultVersion is used. The resulting
// label must be one of versions, otherwise a [restrouter.VersionNotFoundError]
// is returned.
func Resolve(ctx context.Context, req *request.Request, detectors []Detector, versions []string, defaultVersion string) (string, error) {
	label := defaultVersion
	for _, d := range detectors {
		v, ok := d.DetectVersion(ctx, req, versions)
		if ok {
			label = v
			break
		}
	}

	if label == "" || !slices.Contains(versions, label) {
		return "", restrouter.VersionNotFoundError{
			Endpoint: req.Endpoint,
			Version:  label,
		}
	}
	return label, nil
}

type pathConfig struct {
	Prefix string `koanf:"prefix"`
}

// Path creates the "path" plugin. It consumes the first path segment if
// it names a declared version, optionally behind a prefix such as "v".
//
// Config keys: prefix.
func Path(cfg Config) (Detector, error) {
	var pc pathConfig
	err := pluginconfig.Decode("path", cfg, &pc)
	if err != nil {
		return nil, err
	}

	return DetectorFunc(func(ctx context.Context, req *request.Request, versions []string) (string, bool) {
		first, rest, _ := strings.Cut(req.Path, "/")
		label, ok := strings.CutPrefix(first, pc.Prefix)
		if !ok || !slices.Contains(versions, label) {
			return "", false
		}
		req.SetPath(rest)
		return label, true
	}), nil
}

type queryConfig struct {
	Name string `koanf:"name"`
}

// Query creates the "query" plugin which reads the version from a query
// parameter.
//
// Config keys: name (default "version").
func Query(cfg Config) (Detector, error) {
	qc := queryConfig{Name: "version"}
	err := pluginconfig.Decode("query", cfg, &qc)
	if err != nil {
		return nil, err
	}

	return DetectorFunc(func(ctx context.Context, req *request.Request, versions []string) (string, bool) {
		v := req.Get(qc.Name)
		return v, v != ""
	}), nil
}

type headerConfig struct {
	Name string `koanf:"name"`
}

// Header creates the "header" plugin which reads the version from a
// request header, falling back to the "version" parameter of the
// Accept media type, e.g. "application/json; version=2.0".
//
// Config keys: name (default "X-API-Version").
func Header(cfg Config) (Detector, error) {
	hc := headerConfig{Name: "X-API-Version"}
	err := pluginconfig.Decode("header", cfg, &hc)
	if err != nil {
		return nil, err
	}

	return DetectorFunc(func(ctx context.Context, req *request.Request, versions []string) (string, bool) {
		v := strings.TrimSpace(req.Header.Get(hc.Name))
		if v != "" {
			return v, true
		}

		for _, accept := range strings.Split(req.Header.Get("Accept"), ",") {
			_, params, err := mime.ParseMediaType(strings.TrimSpace(accept))
			if err != nil {
				continue
			}
			if v := params["version"]; v != "" {
				return v, true
			}
		}
		return "", false
	}), nil
}
