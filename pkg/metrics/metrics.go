// Package metrics defines the Prometheus collectors of an index build and
// exports them for scraping or as a node-exporter textfile.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "paper_index"

// Metrics holds all Prometheus collectors of the index builder. Each
// instance owns its registry, so tests and repeated builds never collide on
// the global default registerer.
type Metrics struct {
	Registry *prometheus.Registry

	RecordsProcessed prometheus.Counter
	RecordsSkipped   *prometheus.CounterVec
	RecordsDegraded  prometheus.Counter
	SpillPostings    prometheus.Counter
	SpillBytes       prometheus.Counter
	ChunkWords       *prometheus.GaugeVec
	ChunkBytes       *prometheus.GaugeVec
	MergeDuration    prometheus.Histogram
	BuildDuration    prometheus.Histogram
	BuildsTotal      *prometheus.CounterVec
	LastSuccess      prometheus.Gauge
	IndexWords       prometheus.Gauge

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RecordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Records projected into the index.",
		}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Records skipped, by reason (missing_id, malformed_id, malformed).",
		}, []string{"reason"}),
		RecordsDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_degraded_total",
			Help:      "Records tokenized with the fallback tokenizer.",
		}),
		SpillPostings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spill_postings_total",
			Help:      "Postings appended to spill storage.",
		}),
		SpillBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spill_bytes_total",
			Help:      "Bytes appended to spill storage.",
		}),
		ChunkWords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunk_words",
			Help:      "Tokens in the chunk of each bucket.",
		}, []string{"bucket"}),
		ChunkBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunk_bytes",
			Help:      "Size of the chunk file of each bucket.",
		}, []string{"bucket"}),
		MergeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bucket_merge_duration_seconds",
			Help:      "Time to merge one bucket.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of a full index build.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		BuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Index builds by outcome (success, failure).",
		}, []string{"status"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful build.",
		}),
		IndexWords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_words",
			Help:      "Tokens in the last successfully built index.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Status server requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Status server request latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "path"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RecordsProcessed,
		m.RecordsSkipped,
		m.RecordsDegraded,
		m.SpillPostings,
		m.SpillBytes,
		m.ChunkWords,
		m.ChunkBytes,
		m.MergeDuration,
		m.BuildDuration,
		m.BuildsTotal,
		m.LastSuccess,
		m.IndexWords,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// WriteTextfile writes the current metric values in the text exposition
// format, for node-exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
