package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/portfolio-contact/internal/observability"
)

// MetricsHandler exposes in-memory counters to the owner.
type MetricsHandler struct {
	metrics *observability.Metrics
}

// NewMetricsHandler constructs handler.
func NewMetricsHandler(metrics *observability.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Snapshot GET /api/v1/admin/metrics.
func (h *MetricsHandler) Snapshot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
