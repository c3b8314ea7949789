// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seniorcare_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seniorcare_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seniorcare_http_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)

	RemindersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seniorcare_reminders_fired_total",
			Help: "Total number of reminders dispatched by the scheduler",
		},
		[]string{"reminder_type", "result"},
	)

	SMSSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seniorcare_sms_total",
			Help: "Total number of SMS messages by provider and result",
		},
		[]string{"provider", "result"},
	)

	PushSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seniorcare_push_total",
			Help: "Total number of push notifications by channel and result",
		},
		[]string{"channel", "result"},
	)

	CacheFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seniorcare_cache_fallbacks_total",
			Help: "Reads answered from the fallback cache after a store failure",
		},
		[]string{"collection"},
	)

	PanicsRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seniorcare_panics_recovered_total",
			Help: "Handler panics turned into 500 responses",
		},
	)

	EmergencyAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seniorcare_emergency_alerts_total",
			Help: "Emergency alerts triggered by final status",
		},
		[]string{"status"},
	)
)

// Result labels.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultFailed
	}
	return ResultOK
}

// Middleware records request counts and latency per matched route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			HTTPActive.Inc()
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let echo write the error so the recorded status is final.
				c.Error(err)
			}

			HTTPActive.Dec()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// HTTPHandler is Handler for plain net/http muxes.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
