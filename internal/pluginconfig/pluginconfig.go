// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package pluginconfig decodes the free form configuration maps of
// auth and version plugins into typed structs.
package pluginconfig

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode copies cfg into dst, which must be a pointer to a struct using
// koanf field tags, and validates the result with its validate tags.
// Durations may be given as strings, e.g. "30s".
func Decode(plugin string, cfg map[string]any, dst any) error {
	if cfg == nil {
		cfg = map[string]any{}
	}

	k := koanf.New(".")
	err := k.Load(confmap.Provider(cfg, ""), nil)
	if err != nil {
		return fmt.Errorf("%s: load config: %w", plugin, err)
	}

	err = k.Unmarshal("", dst)
	if err != nil {
		return fmt.Errorf("%s: decode config: %w", plugin, err)
	}

	err = validate.Struct(dst)
	if err != nil {
		return fmt.Errorf("%s: invalid config: %w", plugin, err)
	}
	return nil
}
