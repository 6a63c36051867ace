// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package format provides the request and response formats an endpoint
// may declare, along with Content-Type and Accept negotiation.
package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Decoder parses a request body into structured data.
type Decoder interface {
	Decode([]byte) (map[string]any, error)
}

// DecoderFunc is an adapter to allow the use of ordinary functions as [Decoder]s.
type DecoderFunc func([]byte) (map[string]any, error)

// Decode implements the [Decoder] interface.
func (f DecoderFunc) Decode(b []byte) (map[string]any, error) {
	return f(b)
}

// Encoder writes a response payload.
type Encoder interface {
	Encode(io.Writer, any) error
}

// EncoderFunc is an adapter to allow the use of ordinary functions as [Encoder]s.
type EncoderFunc func(io.Writer, any) error

// Encode implements the [Encoder] interface.
func (f EncoderFunc) Encode(w io.Writer, v any) error {
	return f(w, v)
}

// Format is a named wire format. A Format without a [Decoder] cannot be
// used as a request format and one without an [Encoder] cannot be used
// as a response format.
type Format struct {
	// Name is the identifier endpoints use to declare the format, e.g. "json".
	Name string

	// MediaTypes lists the media types which select this format.
	// The first one is used as the response Content-Type.
	MediaTypes []string

	Decoder Decoder
	Encoder Encoder
}

// ContentType returns the media type written with responses.
func (f Format) ContentType() string {
	if len(f.MediaTypes) == 0 {
		return "application/octet-stream"
	}
	return f.MediaTypes[0]
}

// ErrNotAnObject is returned by decoders when the body is well formed
// but its top level value is not an object.
var ErrNotAnObject = errors.New("request body must be an object")

// JSON returns the "json" format backed by goccy/go-json.
func JSON() Format {
	return Format{
		Name:       "json",
		MediaTypes: []string{"application/json", "text/json"},
		Decoder: DecoderFunc(func(b []byte) (map[string]any, error) {
			var v any
			err := json.Unmarshal(b, &v)
			if err != nil {
				return nil, err
			}
			return asObject(v)
		}),
		Encoder: EncoderFunc(func(w io.Writer, v any) error {
			return json.NewEncoder(w).Encode(v)
		}),
	}
}

// YAML returns the "yaml" format.
func YAML() Format {
	return Format{
		Name:       "yaml",
		MediaTypes: []string{"application/yaml", "application/x-yaml", "text/yaml"},
		Decoder: DecoderFunc(func(b []byte) (map[string]any, error) {
			var v any
			err := yaml.Unmarshal(b, &v)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return map[string]any{}, nil
			}
			return asObject(v)
		}),
		Encoder: EncoderFunc(func(w io.Writer, v any) error {
			enc := yaml.NewEncoder(w)
			err := enc.Encode(v)
			if err != nil {
				return err
			}
			return enc.Close()
		}),
	}
}

// Form returns the "form" format for application/x-www-form-urlencoded
// bodies. It can only be used as a request format. Keys with a single
// value decode to a string, repeated keys to a []string.
func Form() Format {
	return Format{
		Name:       "form",
		MediaTypes: []string{"application/x-www-form-urlencoded"},
		Decoder: DecoderFunc(func(b []byte) (map[string]any, error) {
			vals, err := url.ParseQuery(string(bytes.TrimSpace(b)))
			if err != nil {
				return nil, err
			}

			data := make(map[string]any, len(vals))
			for k, vs := range vals {
				if len(vs) == 1 {
					data[k] = vs[0]
					continue
				}
				data[k] = vs
			}
			return data, nil
		}),
	}
}

func asObject(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotAnObject, v)
	}
	return m, nil
}
