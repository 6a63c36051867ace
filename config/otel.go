// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"time"
)

// Resource describes the service in emitted telemetry.
type Resource struct {
	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`
}

// Batch
type Batch struct {
	ExportInterval time.Duration `koanf:"export_interval"`
	MaxSize        int           `koanf:"max_size" validate:"gte=0"`
}

// OTLPConnType
type OTLPConnType string

const (
	OTLPHTTP OTLPConnType = "http"
	OTLPGRPC OTLPConnType = "grpc"
)

// OTLP configures the connection to an OTLP collector.
type OTLP struct {
	Type   OTLPConnType `koanf:"type" validate:"omitempty,oneof=http grpc"`
	Target string       `koanf:"target"`
}

// SpanProcessorType
type SpanProcessorType string

const (
	BatchSpanProcessorType SpanProcessorType = "batch"
)

// SpanProcessor
type SpanProcessor struct {
	Type  SpanProcessorType `koanf:"type"`
	Batch Batch             `koanf:"batch"`
}

// SpanSampling
type SpanSampling struct {
	Ratio float64 `koanf:"ratio" validate:"gte=0,lte=1"`
}

// SpanExporterType
type SpanExporterType string

const (
	// NoSpanExporterType drops every span. It is used when no
	// exporter type is configured.
	NoSpanExporterType   SpanExporterType = ""
	OTLPSpanExporterType SpanExporterType = "otlp"
)

// SpanExporter
type SpanExporter struct {
	Type SpanExporterType `koanf:"type"`
	OTLP OTLP             `koanf:"otlp"`
}

// Trace
type Trace struct {
	Processor SpanProcessor `koanf:"processor"`
	Sampling  SpanSampling  `koanf:"sampling"`
	Exporter  SpanExporter  `koanf:"exporter"`
}

// MetricReaderType
type MetricReaderType string

const (
	PeriodicReaderType MetricReaderType = "periodic"
)

// PeriodicReader
type PeriodicReader struct {
	ExportInterval time.Duration `koanf:"export_interval"`
}

// MetricReader
type MetricReader struct {
	Type     MetricReaderType `koanf:"type"`
	Periodic PeriodicReader   `koanf:"periodic"`
}

// MetricExporterType
type MetricExporterType string

const (
	NoMetricExporterType   MetricExporterType = ""
	OTLPMetricExporterType MetricExporterType = "otlp"
)

// MetricExporter
type MetricExporter struct {
	Type MetricExporterType `koanf:"type"`
	OTLP OTLP               `koanf:"otlp"`
}

// Metric
type Metric struct {
	Reader   MetricReader   `koanf:"reader"`
	Exporter MetricExporter `koanf:"exporter"`
}

// LogProcessorType
type LogProcessorType string

const (
	SimpleLogProcessorType LogProcessorType = "simple"
	BatchLogProcessorType  LogProcessorType = "batch"
)

// LogProcessor
type LogProcessor struct {
	Type  LogProcessorType `koanf:"type"`
	Batch Batch            `koanf:"batch"`
}

// LogExporterType
type LogExporterType string

const (
	// StdoutLogExporterType writes JSON log lines to stdout. It is used
	// when no exporter type is configured.
	StdoutLogExporterType LogExporterType = ""
	OTLPLogExporterType   LogExporterType = "otlp"
)

// LogExporter
type LogExporter struct {
	Type LogExporterType `koanf:"type"`
	OTLP OTLP            `koanf:"otlp"`
}

// Log
type Log struct {
	Processor LogProcessor `koanf:"processor"`
	Exporter  LogExporter  `koanf:"exporter"`

	// Levels maps logger names, e.g. "dispatch", to the minimum level
	// emitted: debug, info, warn or error. Names match by prefix.
	Levels map[string]string `koanf:"levels"`
}

// OTel configures traces, metrics and logs.
type OTel struct {
	Resource Resource `koanf:"resource"`
	Trace    Trace    `koanf:"trace"`
	Metric   Metric   `koanf:"metric"`
	Log      Log      `koanf:"log"`
}
