package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fsms-platform/fsms-service/pkg/metrics"
)

// MetricsMiddleware creates middleware that records HTTP metrics
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid recursion
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		m.IncrementHTTPRequestsInFlight()
		defer m.DecrementHTTPRequestsInFlight()

		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		method := c.Request.Method
		path := c.FullPath() // Use route pattern, not actual path

		if path == "" {
			path = c.Request.URL.Path
		}

		m.RecordHTTPRequest(method, path, status, duration)
	}
}

// MetricsEndpoint returns a handler for the /metrics endpoint
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	handler := m.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// BusinessMetrics provides helpers for recording business-specific metrics
type BusinessMetrics struct {
	metrics *metrics.Metrics
}

// NewBusinessMetrics creates a new BusinessMetrics helper
func NewBusinessMetrics(m *metrics.Metrics) *BusinessMetrics {
	return &BusinessMetrics{metrics: m}
}

// RecordProcessStarted records a production process instantiation
func (b *BusinessMetrics) RecordProcessStarted(productType string) {
	b.metrics.RecordProcessStarted(productType)
}

// RecordStageTransition records a stage lifecycle transition
func (b *BusinessMetrics) RecordStageTransition(productType, action string) {
	b.metrics.RecordStageTransition(productType, action)
}

// RecordDivert records an out-of-tolerance reading
func (b *BusinessMetrics) RecordDivert(productType, stageName string) {
	b.metrics.RecordDivert(productType, stageName)
}

// RecordChangeDecision records a change request approval decision
func (b *BusinessMetrics) RecordChangeDecision(decision string) {
	b.metrics.RecordChangeDecision(decision)
}

// RecordNonConformanceRaised records a new non-conformance
func (b *BusinessMetrics) RecordNonConformanceRaised(source string) {
	b.metrics.RecordNonConformanceRaised(source)
}

// RecordCircuitBreakerState records circuit breaker state
func (b *BusinessMetrics) RecordCircuitBreakerState(name string, state int) {
	b.metrics.SetCircuitBreakerState(name, state)
}
