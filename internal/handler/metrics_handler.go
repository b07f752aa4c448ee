package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-feedback-api/pkg/response"
)

const readinessTimeout = 2 * time.Second

type metricsExporter interface {
	Handler() http.Handler
}

// ReadinessProbe reports whether the record store can serve reads.
type ReadinessProbe func(ctx context.Context) error

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics metricsExporter
	ready   ReadinessProbe
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics metricsExporter, ready ReadinessProbe) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, ready: ready}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness checks.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports 503 while the record store is unreachable.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "ready"}, nil)
}
