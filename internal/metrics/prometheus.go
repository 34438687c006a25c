// Package metrics exposes Prometheus instrumentation for the transcription
// pipeline. Record helpers are nil-safe so components can run uninstrumented
// in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcription pipeline.
type Metrics struct {
	// Capture metrics
	FramesCaptured prometheus.Counter
	FramesDropped  prometheus.Counter
	QueueDepth     prometheus.Gauge

	// Assembler metrics
	BlocksEmitted *prometheus.CounterVec

	// Recognition metrics
	ChunksTranscribed   prometheus.Counter
	MalformedResults    prometheus.Counter
	RecognitionFailures prometheus.Counter
	RecognitionDuration prometheus.Histogram
	RealTimeFactor      prometheus.Histogram
}

// New creates and registers all pipeline metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		FramesCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcript_frames_captured_total",
			Help: "Total number of audio frames delivered by the capture source",
		}),
		FramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcript_frames_dropped_total",
			Help: "Total number of frames dropped on a full ingress queue",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "transcript_ingress_queue_depth",
			Help: "Current number of frames waiting in the ingress queue",
		}),
		BlocksEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transcript_blocks_emitted_total",
			Help: "Total number of sample blocks emitted by the assembler",
		}, []string{"kind"}),
		ChunksTranscribed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcript_chunks_transcribed_total",
			Help: "Total number of full chunks successfully transcribed",
		}),
		MalformedResults: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcript_malformed_results_total",
			Help: "Total number of model results skipped for unusable shape",
		}),
		RecognitionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcript_recognition_failures_total",
			Help: "Total number of failed recognition invocations",
		}),
		RecognitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcript_recognition_duration_seconds",
			Help:    "Wall time of recognition invocations",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}),
		RealTimeFactor: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcript_real_time_factor",
			Help:    "Recognition wall time divided by audio duration",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 0.01x to ~20x
		}),
	}
}

// RecordFrameCaptured increments the captured frames counter.
func (m *Metrics) RecordFrameCaptured() {
	if m == nil {
		return
	}
	m.FramesCaptured.Inc()
}

// RecordFrameDropped increments the dropped frames counter.
func (m *Metrics) RecordFrameDropped() {
	if m == nil {
		return
	}
	m.FramesDropped.Inc()
}

// SetQueueDepth sets the current ingress queue depth.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// RecordBlockEmitted counts one assembler emission by kind.
func (m *Metrics) RecordBlockEmitted(kind string) {
	if m == nil {
		return
	}
	m.BlocksEmitted.WithLabelValues(kind).Inc()
}

// RecordChunkTranscribed counts one successfully transcribed full chunk.
func (m *Metrics) RecordChunkTranscribed() {
	if m == nil {
		return
	}
	m.ChunksTranscribed.Inc()
}

// RecordMalformedResult counts one skipped model result.
func (m *Metrics) RecordMalformedResult() {
	if m == nil {
		return
	}
	m.MalformedResults.Inc()
}

// RecordRecognitionFailure counts one failed recognition invocation.
func (m *Metrics) RecordRecognitionFailure() {
	if m == nil {
		return
	}
	m.RecognitionFailures.Inc()
}

// RecordRecognition observes the duration and real-time factor of one
// successful recognition invocation.
func (m *Metrics) RecordRecognition(durationSeconds, rtf float64) {
	if m == nil {
		return
	}
	m.RecognitionDuration.Observe(durationSeconds)
	m.RealTimeFactor.Observe(rtf)
}
