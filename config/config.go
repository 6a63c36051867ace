// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config defines the configuration of a restrouter server.
//
// Configuration is layered, later layers overriding earlier ones:
//
//  1. the values returned by [Default]
//  2. an optional YAML file
//  3. environment variables prefixed with RESTROUTER_
//
// Environment variable names map to keys by lower casing them and
// treating a double underscore as the key delimiter, e.g.
// RESTROUTER_SERVER__READ_TIMEOUT sets server.read_timeout.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment variable read by [Load].
const EnvPrefix = "RESTROUTER_"

// Config is the root configuration.
type Config struct {
	Server    Server    `koanf:"server"`
	OTel      OTel      `koanf:"otel"`
	Endpoints Endpoints `koanf:"endpoints"`
}

// Server configures the HTTP server.
type Server struct {
	Addr                         string        `koanf:"addr" validate:"required"`
	DisableGeneralOptionsHandler bool          `koanf:"disable_general_options_handler"`
	ReadTimeout                  time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout            time.Duration `koanf:"read_header_timeout"`
	WriteTimeout                 time.Duration `koanf:"write_timeout"`
	IdleTimeout                  time.Duration `koanf:"idle_timeout"`
	MaxHeaderBytes               int           `koanf:"max_header_bytes" validate:"gte=0"`

	// MaxBodyBytes limits the size of request bodies read by the dispatcher.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"gte=0"`
}

// Endpoints lists the sources of endpoint definitions.
type Endpoints struct {
	// Files are YAML endpoint definition files. Files are merged in
	// order so a later file overrides endpoints of earlier ones.
	Files []string `koanf:"files"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:              ":8080",
			ReadTimeout:       5 * time.Second,
			ReadHeaderTimeout: 2 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
			MaxBodyBytes:      1 << 20,
		},
		OTel: OTel{
			Trace: Trace{
				Processor: SpanProcessor{
					Type: BatchSpanProcessorType,
					Batch: Batch{
						ExportInterval: 5 * time.Second,
						MaxSize:        512,
					},
				},
				Sampling: SpanSampling{
					Ratio: 1,
				},
			},
			Metric: Metric{
				Reader: MetricReader{
					Type: PeriodicReaderType,
					Periodic: PeriodicReader{
						ExportInterval: time.Minute,
					},
				},
			},
			Log: Log{
				Processor: LogProcessor{
					Type: SimpleLogProcessorType,
				},
			},
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the configuration. The file at path is skipped if path is empty.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	err := k.Load(structs.Provider(Default(), "koanf"), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		err = k.Load(file.Provider(path), yaml.Parser())
		if err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err = k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	err = k.Unmarshal("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	err = validate.Struct(cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")

	// list values are comma separated
	if key == "endpoints.files" {
		return key, strings.Split(value, ",")
	}
	return key, value
}
