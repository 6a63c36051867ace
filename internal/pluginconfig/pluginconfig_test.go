// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package pluginconfig

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type testConfig struct {
	Name   string        `koanf:"name" validate:"required"`
	Leeway time.Duration `koanf:"leeway"`
	Count  int           `koanf:"count"`
}

func TestDecode(t *testing.T) {
	t.Run("will decode typed values", func(t *testing.T) {
		var cfg testConfig
		err := Decode("test", map[string]any{
			"name":   "alice",
			"leeway": "30s",
			"count":  "3",
		}, &cfg)
		if !assert.Nil(t, err) {
			return
		}
		assert.Equal(t, "alice", cfg.Name)
		assert.Equal(t, 30*time.Second, cfg.Leeway)
		assert.Equal(t, 3, cfg.Count)
	})

	t.Run("will decode a nil map", func(t *testing.T) {
		var cfg struct {
			Name string `koanf:"name"`
		}
		err := Decode("test", nil, &cfg)
		if !assert.Nil(t, err) {
			return
		}
		assert.Empty(t, cfg.Name)
	})

	t.Run("will return a validation error if a required key is missing", func(t *testing.T) {
		var cfg testConfig
		err := Decode("test", map[string]any{}, &cfg)

		var verr validator.ValidationErrors
		assert.True(t, errors.As(err, &verr))
	})
}
