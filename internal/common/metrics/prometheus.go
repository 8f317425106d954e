// Package metrics provides Prometheus metric collection.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the metric collector.
type Metrics struct {
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	withdrawalsTotal     *prometheus.CounterVec
	withdrawalAmount     *prometheus.CounterVec
	otpIssuedTotal       prometheus.Counter
	otpVerifiedTotal     *prometheus.CounterVec
	contractsSignedTotal prometheus.Counter
	notifyFailuresTotal  *prometheus.CounterVec
}

var defaultMetrics *Metrics

// Init creates the default metric collector.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "affiliate"
	}

	m := &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		withdrawalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "withdrawals_total",
				Help:      "Withdrawal status transitions",
			},
			[]string{"status"},
		),
		withdrawalAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "withdrawal_amount_vnd_total",
				Help:      "Withdrawn amounts in VND by status",
			},
			[]string{"status"},
		),
		otpIssuedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_issued_total",
				Help:      "One-time codes issued",
			},
		),
		otpVerifiedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_verified_total",
				Help:      "One-time code verification attempts",
			},
			[]string{"result"},
		),
		contractsSignedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "contracts_signed_total",
				Help:      "Referred customer contracts signed",
			},
		),
		notifyFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notify_failures_total",
				Help:      "Best-effort notification failures",
			},
			[]string{"channel"},
		),
	}

	defaultMetrics = m
	return m
}

// GetMetrics returns the default collector, creating it on first use.
func GetMetrics() *Metrics {
	if defaultMetrics == nil {
		return Init("")
	}
	return defaultMetrics
}

// Middleware returns the gin middleware recording request metrics.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.httpRequestsInFlight.Inc()

		c.Next()

		m.httpRequestsInFlight.Dec()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordWithdrawal records a withdrawal status transition.
func (m *Metrics) RecordWithdrawal(status string, amount int64) {
	m.withdrawalsTotal.WithLabelValues(status).Inc()
	m.withdrawalAmount.WithLabelValues(status).Add(float64(amount))
}

// RecordOtpIssued records an issued code.
func (m *Metrics) RecordOtpIssued() {
	m.otpIssuedTotal.Inc()
}

// RecordOtpVerified records a verification attempt outcome ("ok"/"fail").
func (m *Metrics) RecordOtpVerified(result string) {
	m.otpVerifiedTotal.WithLabelValues(result).Inc()
}

// RecordContractSigned records a signed contract.
func (m *Metrics) RecordContractSigned() {
	m.contractsSignedTotal.Inc()
}

// RecordNotifyFailure records a best-effort notification failure
// ("email"/"webhook").
func (m *Metrics) RecordNotifyFailure(channel string) {
	m.notifyFailuresTotal.WithLabelValues(channel).Inc()
}
