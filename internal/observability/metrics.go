package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported at /metrics.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec

	DBQueryDuration *prometheus.HistogramVec
	DBErrorsTotal   *prometheus.CounterVec

	BatchSize *prometheus.HistogramVec

	JobResults  *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rollbook",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rollbook",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route", "status"},
		),
		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rollbook",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency by logical op.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"op", "status"},
		),
		DBErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rollbook",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		BatchSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rollbook",
				Name:      "batch_size",
				Help:      "Records per roster or attendance batch.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
			},
			[]string{"kind"},
		),
		JobResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rollbook",
				Subsystem: "jobs",
				Name:      "results_total",
				Help:      "Background job outcomes by type.",
			},
			[]string{"job_type", "result"}, // result=done|failed|skipped
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rollbook",
				Subsystem: "jobs",
				Name:      "duration_seconds",
				Help:      "Background job execution time by type.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"job_type"},
		),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestsDuration, m.DBQueryDuration, m.DBErrorsTotal, m.BatchSize, m.JobResults, m.JobDuration)

	return m
}

// GinMiddleware records request count and latency per route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		m.RequestsTotal.WithLabelValues(method, route, status).Inc()
		m.RequestsDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	}
}

// ObserveBatch records the size of a submitted batch. Safe on a nil receiver.
func (m *Metrics) ObserveBatch(kind string, n int) {
	if m == nil {
		return
	}
	m.BatchSize.WithLabelValues(kind).Observe(float64(n))
}

// ObserveJob records one worker job outcome. Safe on a nil receiver.
func (m *Metrics) ObserveJob(jobType, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.JobResults.WithLabelValues(jobType, result).Inc()
	m.JobDuration.WithLabelValues(jobType).Observe(d.Seconds())
}
