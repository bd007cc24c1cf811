package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ListenerMetrics covers the ingress binary: the HTTP surface that turns
// provider callbacks into events on the queue.
type ListenerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	rateLimitedTotal     *prometheus.CounterVec
	eventsPublishedTotal *prometheus.CounterVec
	publishErrorsTotal   *prometheus.CounterVec
	eventPayloadBytes    *prometheus.HistogramVec
}

func NewListenerMetrics(service string) *ListenerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eo",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eo",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "eo",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rateLimitedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eo",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total requests rejected by the ingress rate limiter.",
		},
		[]string{"service", "path"},
	)
	eventsPublishedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eo",
			Subsystem: "ingress",
			Name:      "events_published_total",
			Help:      "Total events published to the queue by source.",
		},
		[]string{"service", "source", "event_type"},
	)
	publishErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eo",
			Subsystem: "ingress",
			Name:      "publish_errors_total",
			Help:      "Total failed publish attempts by source.",
		},
		[]string{"service", "source"},
	)
	eventPayloadBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eo",
			Subsystem: "ingress",
			Name:      "event_payload_bytes",
			Help:      "Distribution of accepted event payload sizes.",
			Buckets:   []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
		},
		[]string{"service", "source"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rateLimitedTotal,
		eventsPublishedTotal,
		publishErrorsTotal,
		eventPayloadBytes,
	)

	return &ListenerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		rateLimitedTotal:     rateLimitedTotal,
		eventsPublishedTotal: eventsPublishedTotal,
		publishErrorsTotal:   publishErrorsTotal,
		eventPayloadBytes:    eventPayloadBytes,
	}
}

func (m *ListenerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ListenerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
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

func (m *ListenerMetrics) RecordRateLimited(service, path string) {
	m.rateLimitedTotal.WithLabelValues(service, path).Inc()
}

func (m *ListenerMetrics) RecordPublishedEvent(service, source, eventType string, payloadBytes int) {
	if source == "" {
		source = "unknown"
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.eventsPublishedTotal.WithLabelValues(service, source, eventType).Inc()
	if payloadBytes > 0 {
		m.eventPayloadBytes.WithLabelValues(service, source).Observe(float64(payloadBytes))
	}
}

func (m *ListenerMetrics) RecordPublishError(service, source string) {
	if source == "" {
		source = "unknown"
	}
	m.publishErrorsTotal.WithLabelValues(service, source).Inc()
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
