package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// ContractTransitions успешные переходы контракта и его этапов.
	ContractTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_contract_transitions_total",
			Help: "Total number of contract and milestone state transitions",
		},
		[]string{"transition"},
	)

	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_notifications_dispatched_total",
			Help: "Total number of dispatched notifications",
		},
		[]string{"type", "result"},
	)

	EscrowReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_escrow_released_total",
			Help: "Total amount released from escrow to freelancers",
		},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_ws_connections",
			Help: "Number of open WebSocket connections",
		},
	)
)

// Middleware собирает метрики по шаблону маршрута, чтобы не плодить метки для каждого id.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
