package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the pipeline's collectors on a private registry. All
// methods are safe on a nil *Metrics so tests can leave it out.
type Metrics struct {
	registry *prometheus.Registry

	captures             *prometheus.CounterVec
	recognitionCache     *prometheus.CounterVec
	compressionFallbacks prometheus.Counter
	uploadFailures       *prometheus.CounterVec
	persistFailures      prometheus.Counter
	recordsSaved         prometheus.Counter
	recognitionLatency   prometheus.Histogram
	compressionLatency   prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itemcam",
			Name:      "captures_total",
			Help:      "Capture invocations by outcome.",
		}, []string{"outcome"}),
		recognitionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itemcam",
			Name:      "recognition_cache_total",
			Help:      "Recognition result cache lookups.",
		}, []string{"result"}),
		compressionFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "itemcam",
			Name:      "compression_fallbacks_total",
			Help:      "Frames encoded on the in-process fallback path.",
		}),
		uploadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itemcam",
			Name:      "upload_failures_total",
			Help:      "Failed image uploads by image kind.",
		}, []string{"kind"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "itemcam",
			Name:      "persist_failures_total",
			Help:      "Recognition records that were abandoned or failed to save.",
		}),
		recordsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "itemcam",
			Name:      "records_saved_total",
			Help:      "Recognition records written to the record store.",
		}),
		recognitionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "itemcam",
			Name:      "recognition_seconds",
			Help:      "Time to obtain a recognition result, cache hits included.",
			Buckets:   []float64{0.01, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}),
		compressionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "itemcam",
			Name:      "compression_seconds",
			Help:      "Time to compress a captured frame.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.captures,
		m.recognitionCache,
		m.compressionFallbacks,
		m.uploadFailures,
		m.persistFailures,
		m.recordsSaved,
		m.recognitionLatency,
		m.compressionLatency,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) CaptureOutcome(outcome string) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.recognitionCache.WithLabelValues("hit").Inc()
		return
	}
	m.recognitionCache.WithLabelValues("miss").Inc()
}

func (m *Metrics) CompressionFallback() {
	if m == nil {
		return
	}
	m.compressionFallbacks.Inc()
}

func (m *Metrics) UploadFailed(kind string) {
	if m == nil {
		return
	}
	m.uploadFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) RecordSaved() {
	if m == nil {
		return
	}
	m.recordsSaved.Inc()
}

func (m *Metrics) ObserveRecognition(d time.Duration) {
	if m == nil {
		return
	}
	m.recognitionLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveCompression(d time.Duration) {
	if m == nil {
		return
	}
	m.compressionLatency.Observe(d.Seconds())
}
