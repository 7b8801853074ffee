package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// AnalysisCount counts finished analyses by kind (text, code) and status.
	AnalysisCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "originality_analyses_total",
			Help: "Total number of originality analyses",
		},
		[]string{"kind", "status"},
	)

	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "originality_analysis_duration_seconds",
			Help:    "Originality analysis duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	CorpusEntriesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_entries_ingested_total",
			Help: "Corpus entries written to the vector index",
		},
		[]string{"type"},
	)

	ExternalFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_service_failures_total",
			Help: "Failed calls to embedding and index backends after retry",
		},
		[]string{"op"},
	)
)

var once sync.Once

// InitPrometheus registers every collector with the default registry. Safe to
// call more than once.
func InitPrometheus() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestCount,
			RequestDuration,
			AnalysisCount,
			AnalysisDuration,
			CorpusEntriesIngested,
			ExternalFailures,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
