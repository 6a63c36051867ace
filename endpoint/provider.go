// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Provider supplies endpoint definitions keyed by machine name.
type Provider interface {
	Endpoints(context.Context) (map[string]Definition, error)
}

// ProviderFunc is an adapter to allow the use of ordinary functions as [Provider]s.
type ProviderFunc func(context.Context) (map[string]Definition, error)

// Endpoints implements the [Provider] interface.
func (f ProviderFunc) Endpoints(ctx context.Context) (map[string]Definition, error) {
	return f(ctx)
}

// Static returns a [Provider] which always supplies defs.
func Static(defs map[string]Definition) Provider {
	return ProviderFunc(func(ctx context.Context) (map[string]Definition, error) {
		return defs, nil
	})
}

// FileProvider supplies the definitions declared in a YAML file of the form:
//
//	endpoints:
//	  nspi_api:
//	    path: api
//	    versions:
//	      "1.0": {router: nspi_router, class: nspi_api}
type FileProvider struct {
	path string
}

// NewFileProvider initializes a [FileProvider] for the file at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

type fileDocument struct {
	Endpoints map[string]Definition `yaml:"endpoints"`
}

// Endpoints implements the [Provider] interface. The file is read on every call.
func (p *FileProvider) Endpoints(ctx context.Context) (map[string]Definition, error) {
	b, err := os.ReadFile(p.path)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	var doc fileDocument
	err = dec.Decode(&doc)
	if errors.Is(err, io.EOF) {
		return map[string]Definition{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode endpoint definitions from %s: %w", p.path, err)
	}
	return doc.Endpoints, nil
}

// Alterer may add, remove or modify the merged definitions before they
// are validated.
type Alterer interface {
	AlterEndpoints(map[string]*Definition)
}

// AltererFunc is an adapter to allow the use of ordinary functions as [Alterer]s.
type AltererFunc func(map[string]*Definition)

// AlterEndpoints implements the [Alterer] interface.
func (f AltererFunc) AlterEndpoints(defs map[string]*Definition) {
	f(defs)
}
