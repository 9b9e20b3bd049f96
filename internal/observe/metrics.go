// Package observe provides application-wide observability primitives for
// voxpi: OpenTelemetry metrics, tracing, trace-aware logging, and the HTTP
// endpoint that exposes them.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [InitProvider] and served by [Serve]. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxpi metrics.
const meterName = "github.com/MrWong99/voxpi"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// Frames counts PCM frames fed to a recognizer. Attribute: engine.
	Frames metric.Int64Counter

	// Segments counts finalized transcript segments. Attribute: engine.
	Segments metric.Int64Counter

	// RecognizerDuration tracks the wall time of one recognition run.
	// Attributes: engine, source.
	RecognizerDuration metric.Float64Histogram

	// RecognizerErrors counts aborted recognition runs. Attribute: engine.
	RecognizerErrors metric.Int64Counter

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// ButtonPresses counts physical button presses.
	ButtonPresses metric.Int64Counter

	// UPSVoltage reports the last battery voltage read.
	UPSVoltage metric.Float64Gauge

	// HTTPRequestDuration tracks metrics endpoint latency. Attributes:
	// method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// recognition and synthesis runs, which range from sub-second TTS replies to
// minute-long recordings.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.Frames, err = m.Int64Counter("voxpi.frames",
		metric.WithDescription("PCM frames fed to a recognizer."),
	); err != nil {
		return nil, err
	}
	if met.Segments, err = m.Int64Counter("voxpi.segments",
		metric.WithDescription("Finalized transcript segments."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerErrors, err = m.Int64Counter("voxpi.recognizer.errors",
		metric.WithDescription("Recognition runs aborted by an error."),
	); err != nil {
		return nil, err
	}
	if met.ButtonPresses, err = m.Int64Counter("voxpi.button.presses",
		metric.WithDescription("Physical button presses."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.RecognizerDuration, err = m.Float64Histogram("voxpi.recognizer.duration",
		metric.WithDescription("Wall time of one recognition run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("voxpi.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxpi.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.UPSVoltage, err = m.Float64Gauge("voxpi.ups.voltage",
		metric.WithDescription("Last UPS battery voltage read."),
		metric.WithUnit("V"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Call [InitProvider] first so the
// instruments bind to the Prometheus exporter.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordRecognition records one recognition run: its duration, the frames
// and segments it produced, and an error count when err is non-nil.
func (m *Metrics) RecordRecognition(ctx context.Context, engine, source string, d time.Duration, frames, segments int, err error) {
	engineAttr := metric.WithAttributes(attribute.String("engine", engine))
	m.Frames.Add(ctx, int64(frames), engineAttr)
	m.Segments.Add(ctx, int64(segments), engineAttr)
	m.RecognizerDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("engine", engine),
			attribute.String("source", source),
		),
	)
	if err != nil {
		m.RecognizerErrors.Add(ctx, 1, engineAttr)
	}
}

// RecordButtonPress increments the button press counter.
func (m *Metrics) RecordButtonPress(ctx context.Context) {
	m.ButtonPresses.Add(ctx, 1)
}
