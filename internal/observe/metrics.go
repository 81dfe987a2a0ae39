// Package observe provides application-wide observability primitives for
// voxbridge: OpenTelemetry metrics and the Prometheus exporter bridge that
// serves them on /metrics.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxbridge metrics.
const meterName = "github.com/voxbridge/voxbridge"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// ASRDuration tracks speech recognition latency per utterance.
	ASRDuration metric.Float64Histogram

	// MTDuration tracks translation latency per utterance.
	MTDuration metric.Float64Histogram

	// TTSDuration tracks speech synthesis latency per utterance.
	TTSDuration metric.Float64Histogram

	// UtteranceDuration tracks end-to-end latency from segment close to
	// playback enqueue.
	UtteranceDuration metric.Float64Histogram

	// --- Counters ---

	// Utterances counts finished utterances. Use with attributes:
	//   attribute.String("channel", ...), attribute.String("status", ...)
	Utterances metric.Int64Counter

	// StageErrors counts per-stage failures. Use with attributes:
	//   attribute.String("channel", ...), attribute.String("stage", ...)
	StageErrors metric.Int64Counter

	// DroppedChunks counts audio chunks discarded because a capture queue
	// was full. Use with attribute: attribute.String("channel", ...)
	DroppedChunks metric.Int64Counter

	// DroppedClips counts synthesized clips discarded because the playback
	// queue was full.
	DroppedClips metric.Int64Counter

	// FilteredTranscripts counts transcripts rejected before translation.
	// Use with attributes:
	//   attribute.String("channel", ...), attribute.String("reason", ...)
	FilteredTranscripts metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the current depth of the capture queues. Use with
	// attribute: attribute.String("channel", ...)
	QueueDepth metric.Int64UpDownCounter

	// ActivePipelines tracks the number of running channel pipelines.
	ActivePipelines metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// speech-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ASRDuration, err = m.Float64Histogram("voxbridge.asr.duration",
		metric.WithDescription("Latency of speech recognition per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MTDuration, err = m.Float64Histogram("voxbridge.mt.duration",
		metric.WithDescription("Latency of translation per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("voxbridge.tts.duration",
		metric.WithDescription("Latency of speech synthesis per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtteranceDuration, err = m.Float64Histogram("voxbridge.utterance.duration",
		metric.WithDescription("End-to-end utterance latency from segment close to playback enqueue."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Utterances, err = m.Int64Counter("voxbridge.utterances",
		metric.WithDescription("Total finished utterances by channel and status."),
	); err != nil {
		return nil, err
	}
	if met.StageErrors, err = m.Int64Counter("voxbridge.stage.errors",
		metric.WithDescription("Total pipeline stage failures by channel and stage."),
	); err != nil {
		return nil, err
	}
	if met.DroppedChunks, err = m.Int64Counter("voxbridge.dropped.chunks",
		metric.WithDescription("Audio chunks discarded because a capture queue was full."),
	); err != nil {
		return nil, err
	}
	if met.DroppedClips, err = m.Int64Counter("voxbridge.dropped.clips",
		metric.WithDescription("Synthesized clips discarded because the playback queue was full."),
	); err != nil {
		return nil, err
	}
	if met.FilteredTranscripts, err = m.Int64Counter("voxbridge.filtered.transcripts",
		metric.WithDescription("Transcripts rejected before translation by channel and reason."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.QueueDepth, err = m.Int64UpDownCounter("voxbridge.queue.depth",
		metric.WithDescription("Current depth of the capture queues."),
	); err != nil {
		return nil, err
	}
	if met.ActivePipelines, err = m.Int64UpDownCounter("voxbridge.active_pipelines",
		metric.WithDescription("Number of running channel pipelines."),
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
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordStage records one pipeline stage: its latency into the matching
// histogram and, on failure, an error counter increment.
func (m *Metrics) RecordStage(ctx context.Context, hist metric.Float64Histogram, channel, stage string, elapsed time.Duration, err error) {
	hist.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("channel", channel)))
	if err != nil {
		m.StageErrors.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("channel", channel),
				attribute.String("stage", stage),
			))
	}
}

// RecordUtterance records a finished utterance with its outcome status
// ("ok", "filtered", "error").
func (m *Metrics) RecordUtterance(ctx context.Context, channel, status string) {
	m.Utterances.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("status", status),
		))
}

// RecordFiltered records a transcript rejected before translation.
func (m *Metrics) RecordFiltered(ctx context.Context, channel, reason string) {
	m.FilteredTranscripts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("reason", reason),
		))
}
