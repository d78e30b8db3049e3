package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoiceagent",
			Subsystem: "worker",
			Name:      "upload_process_total",
			Help:      "Total processed invoice uploads by final status.",
		},
		[]string{"service", "status"},
	)
	rejectionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoiceagent",
			Subsystem: "worker",
			Name:      "upload_rejections_total",
			Help:      "Total rejected invoice uploads by failure kind.",
		},
		[]string{"service", "kind"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoiceagent",
			Subsystem: "worker",
			Name:      "upload_process_duration_seconds",
			Help:      "Invoice upload processing duration in seconds by final status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "invoiceagent",
			Subsystem: "worker",
			Name:      "upload_process_in_flight",
			Help:      "Number of in-flight invoice processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoiceagent",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between upload submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, rejectionsTotal, processDuration, processInFlight, queueLag)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		rejectionsTotal: rejectionsTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartUpload() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishUpload(service, status string, duration time.Duration) {
	m.processInFlight.Dec()

	if status == "" {
		status = "unknown"
	}
	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordRejection(service, kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.rejectionsTotal.WithLabelValues(service, kind).Inc()
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
