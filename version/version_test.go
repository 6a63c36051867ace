// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package version

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/z5labs/restrouter"
	"github.com/z5labs/restrouter/request"
)

var versions = []string{"1.0", "2.0"}

func noOpinion() Detector {
	return DetectorFunc(func(ctx context.Context, r *request.Request, s []string) (string, bool) {
		return "", false
	})
}

func always(label string) Detector {
	return DetectorFunc(func(ctx context.Context, r *request.Request, s []string) (string, bool) {
		return label, true
	})
}

func TestResolve(t *testing.T) {
	t.Run("will return the label of the first detector with an opinion", func(t *testing.T) {
		req := request.New(http.MethodGet, "subscriptions")

		label, err := Resolve(context.Background(), req, []Detector{noOpinion(), always("2.0"), always("1.0")}, versions, "1.0")
		if !assert.Nil(t, err) {
			return
		}
		assert.Equal(t, "2.0", label)
	})

	t.Run("will fall back to the default version", func(t *testing.T) {
		req := request.New(http.MethodGet, "subscriptions")

		label, err := Resolve(context.Background(), req, []Detector{noOpinion()}, versions, "1.0")
		if !assert.Nil(t, err) {
			return
		}
		assert.Equal(t, "1.0", label)
	})

	t.Run("will return a VersionNotFoundError", func(t *testing.T) {
		t.Run("if there is no opinion and no default", func(t *testing.T) {
			req := request.New(http.MethodGet, "subscriptions")
			req.Endpoint = "nspi_api"

			_, err := Resolve(context.Background(), req, []Detector{noOpinion()}, versions, "")

			var verr restrouter.VersionNotFoundError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "nspi_api", verr.Endpoint)
			assert.Equal(t, http.StatusNotFound, restrouter.StatusCode(err))
		})

		t.Run("if the detected label is not declared", func(t *testing.T) {
			req := request.New(http.MethodGet, "subscriptions")

			_, err := Resolve(context.Background(), req, []Detector{always("3.0")}, versions, "1.0")

			var verr restrouter.VersionNotFoundError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "3.0", verr.Version)
		})

		t.Run("if the default is not declared", func(t *testing.T) {
			req := request.New(http.MethodGet, "subscriptions")

			_, err := Resolve(context.Background(), req, nil, versions, "9.9")

			var verr restrouter.VersionNotFoundError
			assert.True(t, errors.As(err, &verr))
		})
	})
}

func TestPath(t *testing.T) {
	t.Run("will consume a leading version segment", func(t *testing.T) {
		d, err := Path(nil)
		require.Nil(t, err)

		req := request.New(http.MethodPost, "1.0/subscriptions/7")
		label, ok := d.DetectVersion(context.Background(), req, versions)

		assert.True(t, ok)
		assert.Equal(t, "1.0", label)
		assert.Equal(t, "subscriptions/7", req.Path)
	})

	t.Run("will honour a configured prefix", func(t *testing.T) {
		d, err := Path(Config{"prefix": "v"})
		require.Nil(t, err)

		req := request.New(http.MethodGet, "v2.0")
		label, ok := d.DetectVersion(context.Background(), req, versions)

		assert.True(t, ok)
		assert.Equal(t, "2.0", label)
		assert.Equal(t, "", req.Path)
	})

	t.Run("will have no opinion if the first segment is not a declared version", func(t *testing.T) {
		d, err := Path(nil)
		require.Nil(t, err)

		req := request.New(http.MethodGet, "subscriptions/7")
		_, ok := d.DetectVersion(context.Background(), req, versions)

		assert.False(t, ok)
		assert.Equal(t, "subscriptions/7", req.Path)
	})
}

func TestQuery(t *testing.T) {
	t.Run("will read the default parameter", func(t *testing.T) {
		d, err := Query(nil)
		require.Nil(t, err)

		req := request.New(http.MethodGet, "subscriptions")
		req.Query.Set("version", "2.0")
		label, ok := d.DetectVersion(context.Background(), req, versions)

		assert.True(t, ok)
		assert.Equal(t, "2.0", label)
	})

	t.Run("will read a configured parameter", func(t *testing.T) {
		d, err := Query(Config{"name": "v"})
		require.Nil(t, err)

		req := request.New(http.MethodGet, "subscriptions")
		req.Query.Set("version", "2.0")
		_, ok := d.DetectVersion(context.Background(), req, versions)
		assert.False(t, ok)

		req.Query.Set("v", "1.0")
		label, ok := d.DetectVersion(context.Background(), req, versions)
		assert.True(t, ok)
		assert.Equal(t, "1.0", label)
	})
}

func TestHeader(t *testing.T) {
	t.Run("will read the version header", func(t *testing.T) {
		d, err := Header(nil)
		require.Nil(t, err)

		req := request.New(http.MethodGet, "subscriptions")
		req.Header.Set("X-API-Version", "2.0")
		label, ok := d.DetectVersion(context.Background(), req, versions)

		assert.True(t, ok)
		assert.Equal(t, "2.0", label)
	})

	t.Run("will read the version parameter of the accept header", func(t *testing.T) {
		d, err := Header(nil)
		require.Nil(t, err)

		req := request.New(http.MethodGet, "subscriptions")
		req.Header.Set("Accept", "application/json; version=1.0")
		label, ok := d.DetectVersion(context.Background(), req, versions)

		assert.True(t, ok)
		assert.Equal(t, "1.0", label)
	})

	t.Run("will have no opinion without a version", func(t *testing.T) {
		d, err := Header(nil)
		require.Nil(t, err)

		req := request.New(http.MethodGet, "subscriptions")
		req.Header.Set("Accept", "application/json")
		_, ok := d.DetectVersion(context.Background(), req, versions)

		assert.False(t, ok)
	})
}
