package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-tracker/internal/service"
)

// MetricsHandler exposes the metrics engine, reports and the dashboard.
type MetricsHandler struct {
	metrics  *service.MetricsService
	location *time.Location
}

// NewMetricsHandler constructs handler.
func NewMetricsHandler(metricsService *service.MetricsService, loc *time.Location) *MetricsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &MetricsHandler{metrics: metricsService, location: loc}
}

// KPIs GET /api/metrics/kpis.
func (h *MetricsHandler) KPIs(c *fiber.Ctx) error {
	q, err := h.windowQuery(c)
	if err != nil {
		return err
	}
	kpis, err := h.metrics.KPIs(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": kpis})
}

// Distribution GET /api/metrics/distribution.
func (h *MetricsHandler) Distribution(c *fiber.Ctx) error {
	q, err := h.windowQuery(c)
	if err != nil {
		return err
	}
	dist, err := h.metrics.Distribution(c.UserContext(), q, c.Query("group_by"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dist})
}

// Technicians GET /api/metrics/technicians.
func (h *MetricsHandler) Technicians(c *fiber.Ctx) error {
	q, err := h.windowQuery(c)
	if err != nil {
		return err
	}
	report, err := h.metrics.Technicians(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// Rework GET /api/metrics/rework.
func (h *MetricsHandler) Rework(c *fiber.Ctx) error {
	q, err := h.windowQuery(c)
	if err != nil {
		return err
	}
	rate, err := h.metrics.ReworkRate(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rate})
}

// TimeByState GET /api/metrics/time-by-state.
func (h *MetricsHandler) TimeByState(c *fiber.Ctx) error {
	q, err := h.windowQuery(c)
	if err != nil {
		return err
	}
	result, err := h.metrics.TimeByState(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// BacklogTrend GET /api/metrics/backlog-trend?days=.
func (h *MetricsHandler) BacklogTrend(c *fiber.Ctx) error {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := parseRequiredInt("days", raw)
		if err != nil {
			return err
		}
		days = parsed
	}
	trend, err := h.metrics.BacklogTrend(c.UserContext(), days)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": trend})
}

// Summary GET /api/reports/summary and GET /api/analytics/dashboard.
func (h *MetricsHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.metrics.Summary(c.UserContext(), c.Query("period"), parseBool(c.Query("extended")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

func (h *MetricsHandler) windowQuery(c *fiber.Ctx) (service.WindowQuery, error) {
	q := service.WindowQuery{Period: c.Query("period")}
	var err error
	if q.From, err = parseTimeIn("from", c.Query("from"), h.location); err != nil {
		return q, err
	}
	if q.To, err = parseTimeIn("to", c.Query("to"), h.location); err != nil {
		return q, err
	}
	return q, nil
}
