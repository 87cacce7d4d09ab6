package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests"},
		[]string{"path", "method", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"},
	)
	authOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "auth_outcomes_total", Help: "Register/login/logout outcomes"},
		[]string{"action", "outcome"},
	)
	gateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "session_gate_decisions_total", Help: "Session gate decisions on protected paths"},
		[]string{"decision"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, authOutcomes, gateDecisions) }

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// 未命中路由时用固定标签，避免路径基数失控
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpReqTotal.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// ObserveAuth outcome 取 success / 错误种类
func ObserveAuth(action, outcome string) {
	authOutcomes.WithLabelValues(action, outcome).Inc()
}
