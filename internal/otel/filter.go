// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// levelFilter drops records below the minimum severity configured for
// their logger name. A configured name also applies to every logger
// nested under it, e.g. "dispatch" covers "dispatch/auth".
type levelFilter struct {
	inner sdklog.Processor

	// names are sorted longest first so the most specific name wins.
	names  []string
	levels map[string]log.Severity
}

func newFilteringProcessor(inner sdklog.Processor, levels map[string]string) sdklog.Processor {
	if len(levels) == 0 {
		return inner
	}

	f := &levelFilter{
		inner:  inner,
		names:  make([]string, 0, len(levels)),
		levels: make(map[string]log.Severity, len(levels)),
	}
	for name, level := range levels {
		f.names = append(f.names, name)
		f.levels[name] = parseLogLevel(level)
	}
	slices.SortFunc(f.names, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})
	return f
}

// parseLogLevel maps debug, info, warn(ing) and error to a severity.
// Anything else allows every record.
func parseLogLevel(level string) log.Severity {
	switch strings.ToLower(level) {
	case "info":
		return log.SeverityInfo
	case "warn", "warning":
		return log.SeverityWarn
	case "error":
		return log.SeverityError
	default:
		return log.SeverityDebug
	}
}

// OnEmit implements the [sdklog.Processor] interface.
func (f *levelFilter) OnEmit(ctx context.Context, record *sdklog.Record) error {
	floor, ok := f.minimum(record.InstrumentationScope().Name)
	if ok && record.Severity() < floor {
		return nil
	}
	return f.inner.OnEmit(ctx, record)
}

func (f *levelFilter) minimum(logger string) (log.Severity, bool) {
	for _, name := range f.names {
		if logger == name || strings.HasPrefix(logger, name+"/") || strings.HasPrefix(logger, name+".") {
			return f.levels[name], true
		}
	}
	return 0, false
}

// Shutdown implements the [sdklog.Processor] interface.
func (f *levelFilter) Shutdown(ctx context.Context) error {
	return f.inner.Shutdown(ctx)
}

// ForceFlush implements the [sdklog.Processor] interface.
func (f *levelFilter) ForceFlush(ctx context.Context) error {
	return f.inner.ForceFlush(ctx)
}
