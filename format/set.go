// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package format

import (
	"mime"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/z5labs/restrouter"
)

// Set is a collection of [Format]s addressable by name.
// A Set is immutable once created and safe for concurrent use.
type Set struct {
	formats map[string]Format
}

// NewSet initializes a [Set]. Later formats replace earlier ones with
// the same name.
func NewSet(formats ...Format) *Set {
	s := &Set{
		formats: make(map[string]Format, len(formats)),
	}
	for _, f := range formats {
		s.formats[f.Name] = f
	}
	return s
}

// Default returns a [Set] containing the json, yaml and form formats.
func Default() *Set {
	return NewSet(JSON(), YAML(), Form())
}

// Get returns the format registered under name.
func (s *Set) Get(name string) (Format, bool) {
	f, ok := s.formats[name]
	return f, ok
}

// ForContentType selects the request format for the given Content-Type
// header among the allowed format names. An empty Content-Type selects
// the first allowed format which can decode.
func (s *Set) ForContentType(contentType string, allowed []string) (Format, error) {
	if strings.TrimSpace(contentType) == "" {
		for _, name := range allowed {
			f, ok := s.formats[name]
			if ok && f.Decoder != nil {
				return f, nil
			}
		}
		return Format{}, restrouter.UnsupportedFormatError{ContentType: contentType}
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return Format{}, restrouter.UnsupportedFormatError{ContentType: contentType}
	}

	for _, name := range allowed {
		f, ok := s.formats[name]
		if !ok || f.Decoder == nil {
			continue
		}
		if slices.Contains(f.MediaTypes, mediaType) {
			return f, nil
		}
	}
	return Format{}, restrouter.UnsupportedFormatError{ContentType: contentType}
}

// Negotiate selects the response format for the given Accept header among
// the allowed format names. Media ranges are tried by descending quality,
// ties keep header order. A missing Accept header selects the first allowed
// format which can encode.
func (s *Set) Negotiate(accept string, allowed []string) (Format, error) {
	encoders := make([]Format, 0, len(allowed))
	for _, name := range allowed {
		f, ok := s.formats[name]
		if ok && f.Encoder != nil {
			encoders = append(encoders, f)
		}
	}
	if len(encoders) == 0 {
		return Format{}, restrouter.NotAcceptableError{Accept: accept}
	}
	if strings.TrimSpace(accept) == "" {
		return encoders[0], nil
	}

	for _, r := range parseAccept(accept) {
		for _, f := range encoders {
			if r.matches(f) {
				return f, nil
			}
		}
	}
	return Format{}, restrouter.NotAcceptableError{Accept: accept}
}

type mediaRange struct {
	typ     string
	subtype string
	quality float64
}

func (r mediaRange) matches(f Format) bool {
	for _, mt := range f.MediaTypes {
		typ, subtype, _ := strings.Cut(mt, "/")
		if r.typ != "*" && r.typ != typ {
			continue
		}
		if r.subtype != "*" && r.subtype != subtype {
			continue
		}
		return true
	}
	return false
}

func parseAccept(accept string) []mediaRange {
	var ranges []mediaRange
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}

		typ, subtype, ok := strings.Cut(mediaType, "/")
		if !ok {
			continue
		}

		q := 1.0
		if qs, ok := params["q"]; ok {
			q, err = strconv.ParseFloat(qs, 64)
			if err != nil {
				continue
			}
		}
		if q <= 0 {
			continue
		}

		ranges = append(ranges, mediaRange{
			typ:     typ,
			subtype: subtype,
			quality: q,
		})
	}

	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].quality > ranges[j].quality
	})
	return ranges
}
