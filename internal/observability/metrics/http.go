package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	questionsTotal     *prometheus.CounterVec
	questionDuration   *prometheus.HistogramVec
	retrievedDocuments *prometheus.HistogramVec
	noResultsTotal     *prometheus.CounterVec
	uploadsTotal       *prometheus.CounterVec
	throttledTotal     *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoiceagent",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoiceagent",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "invoiceagent",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	questionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoiceagent",
			Subsystem: "chat",
			Name:      "questions_total",
			Help:      "Total answered questions by routed task category.",
		},
		[]string{"service", "task"},
	)
	questionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoiceagent",
			Subsystem: "chat",
			Name:      "question_duration_seconds",
			Help:      "End-to-end question answering duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "task"},
	)
	retrievedDocuments := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoiceagent",
			Subsystem: "chat",
			Name:      "retrieved_documents",
			Help:      "Distribution of retrieved invoices per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "task"},
	)
	noResultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoiceagent",
			Subsystem: "chat",
			Name:      "no_results_total",
			Help:      "Total questions answered without any retrieved invoices.",
		},
		[]string{"service", "task"},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoiceagent",
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Total accepted invoice uploads by partner.",
		},
		[]string{"service", "partner"},
	)
	throttledTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoiceagent",
			Subsystem: "http",
			Name:      "throttled_total",
			Help:      "Total requests refused by rate limiting or backpressure.",
		},
		[]string{"service", "reason"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		questionsTotal,
		questionDuration,
		retrievedDocuments,
		noResultsTotal,
		uploadsTotal,
		throttledTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		questionsTotal:     questionsTotal,
		questionDuration:   questionDuration,
		retrievedDocuments: retrievedDocuments,
		noResultsTotal:     noResultsTotal,
		uploadsTotal:       uploadsTotal,
		throttledTotal:     throttledTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/invoices/"):
		return "/v1/invoices/{upload_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordQuestion(service, task string, retrieved int, duration time.Duration) {
	if task == "" {
		task = "unknown"
	}
	m.questionsTotal.WithLabelValues(service, task).Inc()
	m.questionDuration.WithLabelValues(service, task).Observe(duration.Seconds())
	m.retrievedDocuments.WithLabelValues(service, task).Observe(float64(retrieved))

	if retrieved == 0 {
		m.noResultsTotal.WithLabelValues(service, task).Inc()
	}
}

func (m *HTTPServerMetrics) RecordUpload(service, partner string) {
	if partner == "" {
		partner = "unknown"
	}
	m.uploadsTotal.WithLabelValues(service, partner).Inc()
}

func (m *HTTPServerMetrics) RecordThrottled(service, reason string) {
	m.throttledTotal.WithLabelValues(service, reason).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
