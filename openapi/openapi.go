// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package openapi documents endpoint versions as OpenAPI 3.0 specs.
package openapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/endpoint"
	"github.com/z5labs/restrouter/format"
	"github.com/z5labs/restrouter/route"

	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

// BearerScheme is the name of the security scheme added for endpoints
// authenticating with the jwt plugin.
const BearerScheme = "bearer"

var errorStatuses = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusInternalServerError,
}

// Document builds the OpenAPI spec of a single endpoint version.
func Document(ep *endpoint.Endpoint, version string) (*openapi3.Spec, error) {
	table, ok := ep.Table(version)
	if !ok {
		return nil, restrouter.VersionNotFoundError{Endpoint: ep.Name(), Version: version}
	}

	def := ep.Definition()
	title := def.Name
	if title == "" {
		title = ep.Name()
	}

	spec := &openapi3.Spec{
		Openapi: "3.0.3",
		Info: openapi3.Info{
			Title:   title,
			Version: version,
		},
	}

	secured := usesPlugin(def.Auth, "jwt")
	if secured {
		spec.ComponentsEns().SecuritySchemesEns().WithMapOfSecuritySchemeOrRefValuesItem(
			BearerScheme,
			openapi3.SecuritySchemeOrRef{
				SecurityScheme: &openapi3.SecurityScheme{
					HTTPSecurityScheme: &openapi3.HTTPSecurityScheme{
						Scheme:       "bearer",
						BearerFormat: ptr.Ref("JWT"),
					},
				},
			},
		)
	}

	base := "/" + ep.Path()
	if pc, ok := plugin(def.Version, "path"); ok {
		prefix, _ := pc.Config["prefix"].(string)
		base += "/" + prefix + version
	}

	mediaTypes := responseMediaTypes(ep)
	seen := make(map[string]struct{})
	for _, rd := range table.Routes() {
		path, params := pathOf(base, rd)

		key := rd.Method + " " + path
		if _, shadowed := seen[key]; shadowed {
			continue
		}
		seen[key] = struct{}{}

		op := operation(rd, params, mediaTypes)
		if secured {
			op.WithSecurity(map[string][]string{
				BearerScheme: {},
			})
		}

		err := spec.AddOperation(rd.Method, path, op)
		if err != nil {
			return nil, err
		}
	}
	return spec, nil
}

func operation(rd route.Definition, params []openapi3.ParameterOrRef, mediaTypes []string) openapi3.Operation {
	op := openapi3.Operation{
		ID:         ptr.Ref(operationID(rd)),
		Parameters: params,
		Responses: openapi3.Responses{
			MapOfResponseOrRefValues: responses(mediaTypes),
		},
	}
	if rd.Summary != "" {
		op.Summary = ptr.Ref(rd.Summary)
	}
	return op
}

func responses(mediaTypes []string) map[string]openapi3.ResponseOrRef {
	content := make(map[string]openapi3.MediaType, len(mediaTypes))
	for _, mt := range mediaTypes {
		content[mt] = openapi3.MediaType{}
	}

	rs := map[string]openapi3.ResponseOrRef{
		strconv.Itoa(http.StatusOK): {
			Response: &openapi3.Response{
				Description: "Envelope holding the status and the page callback result.",
				Content:     content,
			},
		},
	}
	for _, status := range errorStatuses {
		rs[strconv.Itoa(status)] = openapi3.ResponseOrRef{
			Response: &openapi3.Response{
				Description: http.StatusText(status),
				Content:     content,
			},
		}
	}
	return rs
}

// pathOf converts a route pattern into an OpenAPI path template. Each
// placeholder at segment position N becomes the parameter "argN".
func pathOf(base string, rd route.Definition) (string, []openapi3.ParameterOrRef) {
	segs := rd.Segments()

	var params []openapi3.ParameterOrRef
	out := make([]string, len(segs))
	for i, seg := range segs {
		if !route.IsPlaceholder(seg) {
			out[i] = seg
			continue
		}

		name := "arg" + strconv.Itoa(i)
		out[i] = "{" + name + "}"
		params = append(params, openapi3.ParameterOrRef{
			Parameter: &openapi3.Parameter{
				Name:     name,
				In:       openapi3.ParameterInPath,
				Required: ptr.Ref(true),
				Schema: &openapi3.SchemaOrRef{
					Schema: &openapi3.Schema{
						Type: ptr.Ref(openapi3.SchemaTypeString),
					},
				},
			},
		})
	}

	if len(out) == 0 {
		return base, params
	}
	return base + "/" + strings.Join(out, "/"), params
}

func operationID(rd route.Definition) string {
	name := strings.Trim(rd.Path, "/")
	name = strings.NewReplacer("/", "_", "%", "", ":", "").Replace(name)
	if name == "" {
		name = "root"
	}
	return strings.ToLower(rd.Method) + "_" + name
}

func responseMediaTypes(ep *endpoint.Endpoint) []string {
	mts := make([]string, 0, len(ep.ResponseFormats()))
	formats := format.Default()
	for _, name := range ep.ResponseFormats() {
		f, ok := formats.Get(name)
		if !ok || f.Encoder == nil {
			continue
		}
		mts = append(mts, f.ContentType())
	}
	return mts
}

func usesPlugin(pcs []endpoint.PluginConfig, name string) bool {
	_, ok := plugin(pcs, name)
	return ok
}

func plugin(pcs []endpoint.PluginConfig, name string) (endpoint.PluginConfig, bool) {
	for _, pc := range pcs {
		if pc.Name == name {
			return pc, true
		}
	}
	return endpoint.PluginConfig{}, false
}
