// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package restrouter dispatches HTTP requests to versioned REST endpoints.
//
// Endpoints are declared by providers (see package endpoint), compiled once
// into an immutable registry and served by a dispatcher (see package dispatch)
// which runs the pipeline:
//
//	lookup -> version detection -> authentication -> request alteration
//	  -> route matching and argument loading -> access check -> page callback
//	  -> response envelope
//
// This package holds the pieces shared by every stage: the error taxonomy
// and the logger constructors.
package restrouter

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Logger returns a [slog.Logger] which emits records through the global
// OpenTelemetry logger provider under the given instrumentation scope.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// LogHandler returns the [slog.Handler] backing [Logger].
func LogHandler(name string) slog.Handler {
	return otelslog.NewHandler(name)
}
