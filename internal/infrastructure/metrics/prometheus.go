// Package metrics содержит метрики приложения в формате Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "assignments"

// Metrics реализует Interface поверх Prometheus
type Metrics struct {
	sweepPasses   *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	closedTotal   prometheus.Counter
	publishTotal  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

var _ Interface = (*Metrics)(nil)

// NewMetrics регистрирует метрики в reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		sweepPasses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "passes_total",
			Help:      "Total deadline sweep passes by result.",
		}, []string{"result"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "pass_duration_seconds",
			Help:      "Duration of a deadline sweep pass including publishes.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		closedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "closed_total",
			Help:      "Total assignments closed by deadline sweeps.",
		}),
		publishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "events_total",
			Help:      "Total status events by status and result.",
		}, []string{"status", "result"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// RecordSweepPass записывает завершение прохода сверки
func (m *Metrics) RecordSweepPass(result string, duration time.Duration) {
	m.sweepPasses.WithLabelValues(result).Inc()
	m.sweepDuration.Observe(duration.Seconds())
}

// RecordClosed записывает число закрытых заданий
func (m *Metrics) RecordClosed(count int) {
	m.closedTotal.Add(float64(count))
}

// RecordPublish записывает результат публикации события
func (m *Metrics) RecordPublish(status, result string) {
	m.publishTotal.WithLabelValues(status, result).Inc()
}

// RecordHTTPRequest записывает обработанный HTTP запрос
func (m *Metrics) RecordHTTPRequest(method string, code int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}
