// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package endpoint builds the immutable registry of versioned endpoints.
//
// Endpoint definitions are gathered from [Provider]s, merged in provider
// order, handed to every [Alterer] and then validated. Building fails if
// any definition is invalid or references a router, class, callback or
// plugin which has not been registered with the build.
package endpoint

import (
	"maps"
	"slices"
)

// Definition declares a versioned endpoint.
type Definition struct {
	// Name is the display name.
	Name string `yaml:"name"`

	// Path is the path prefix of the endpoint, e.g. "api". It must be
	// unique across the registry.
	Path string `yaml:"path" validate:"required"`

	// Versions maps version labels to their router and endpoint class.
	Versions map[string]Version `yaml:"versions" validate:"required,min=1,dive"`

	// DefaultVersion is used when no version plugin detects a version.
	DefaultVersion string `yaml:"default_version"`

	// Auth lists the auth plugins. All of them must accept a request.
	Auth []PluginConfig `yaml:"auth" validate:"dive"`

	// Version lists the version plugins in the order they are tried.
	Version []PluginConfig `yaml:"version" validate:"dive"`

	// RequestFormats and ResponseFormats list the accepted format names.
	// Both default to json.
	RequestFormats  []string `yaml:"request_formats"`
	ResponseFormats []string `yaml:"response_formats"`

	// StructuredErrors renders every error of the endpoint with the
	// structured error envelope.
	StructuredErrors bool `yaml:"structured_errors"`
}

// Version binds a version label to a router and an endpoint class.
type Version struct {
	Router string `yaml:"router" validate:"required"`

	// Class may be empty if the router only references free functions.
	Class string `yaml:"class"`
}

// PluginConfig configures a single plugin.
type PluginConfig struct {
	Name   string         `yaml:"name" validate:"required"`
	Config map[string]any `yaml:"config"`
}

// VersionLabels returns the declared version labels in sorted order.
func (d Definition) VersionLabels() []string {
	return slices.Sorted(maps.Keys(d.Versions))
}

func (d Definition) clone() Definition {
	c := d
	c.Versions = maps.Clone(d.Versions)
	c.Auth = clonePlugins(d.Auth)
	c.Version = clonePlugins(d.Version)
	c.RequestFormats = slices.Clone(d.RequestFormats)
	c.ResponseFormats = slices.Clone(d.ResponseFormats)
	return c
}

func clonePlugins(pcs []PluginConfig) []PluginConfig {
	if pcs == nil {
		return nil
	}
	c := make([]PluginConfig, len(pcs))
	for i, pc := range pcs {
		c[i] = PluginConfig{
			Name:   pc.Name,
			Config: maps.Clone(pc.Config),
		}
	}
	return c
}
